package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/restobot/bot/config"
)

func TestSchedulerFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Telegram.Token = "token"
	cfg.Restaurant.Hours = map[string]config.Span{"mon": {Open: "10:00", Close: "22:00"}}
	require.NoError(t, config.Normalize(cfg))

	sched, err := Scheduler(cfg.Restaurant)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Yekaterinburg", sched.Location.String())
	assert.Equal(t, 2, sched.CakeLeadDays)

	at := func(day, hour, minute int) time.Time {
		return time.Date(2025, time.June, day, hour, minute, 0, 0, sched.Location)
	}
	assert.False(t, sched.IsOpen(at(2, 9, 30)), "monday opens at ten")
	assert.True(t, sched.IsOpen(at(2, 10, 30)))
	assert.True(t, sched.IsOpen(at(5, 23, 30)), "thursday runs to midnight")
	assert.False(t, sched.IsOpen(at(6, 0, 30)))
}

func TestSchedulerRejectsBadHours(t *testing.T) {
	rc := config.RestaurantConfig{Timezone: "UTC", Hours: map[string]config.Span{"mon": {Open: "25:00", Close: "22:00"}}}
	_, err := Scheduler(rc)
	require.Error(t, err)

	rc = config.RestaurantConfig{Timezone: "Nowhere/City"}
	_, err = Scheduler(rc)
	require.Error(t, err)
}

func TestRunOptionsNeedWiring(t *testing.T) {
	_, err := (&App{cfg: &config.Config{}}).TelegramRunOptions()
	require.Error(t, err)
}
