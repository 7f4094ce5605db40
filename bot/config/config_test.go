package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
restaurant:
  hours:
    mon: {open: "10:00", close: "22:00"}
redis:
  history_ttl: 2h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "longpoll", cfg.Telegram.RunMode)
	assert.Equal(t, "Asia/Yekaterinburg", cfg.Restaurant.Timezone)
	assert.Equal(t, 60, cfg.Restaurant.MinReadyMinutes)
	assert.Equal(t, 5, cfg.Restaurant.SlotMinutes)
	assert.EqualValues(t, 39, cfg.Restaurant.ServiceFee)
	assert.Equal(t, 2, cfg.Restaurant.CakeLeadDays)
	assert.Equal(t, Span{Open: "10:00", Close: "22:00"}, cfg.Restaurant.Hours["mon"])
	assert.Equal(t, Span{Open: "09:00", Close: "00:00"}, cfg.Restaurant.Hours["thu"])
	assert.Len(t, cfg.Restaurant.Hours, 7)
	assert.Len(t, cfg.Restaurant.Sites, 3)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 10, cfg.AI.HistoryTurns)
	assert.Equal(t, 2*time.Hour, cfg.Redis.HistoryTTL)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TG_GROUP_ORDERS_ID", "-1001")
	t.Setenv("AI_API_KEY", "sk-test")
	path := writeConfig(t, "telegram:\n  token: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.EqualValues(t, -1001, cfg.Groups.Orders)
	assert.Equal(t, "sk-test", cfg.AI.APIKey)
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing token", body: "restaurant: {}\n"},
		{name: "bad weekday", body: "telegram: {token: x}\nrestaurant:\n  hours:\n    funday: {open: \"09:00\", close: \"10:00\"}\n"},
		{name: "bad timezone", body: "telegram: {token: x}\nrestaurant: {timezone: Mars/Base}\n"},
		{name: "site without address", body: "telegram: {token: x}\nrestaurant:\n  sites:\n    - title: A\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BOT_TOKEN", "")
			require.NoError(t, os.Unsetenv("BOT_TOKEN"))
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
