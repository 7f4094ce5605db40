package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	coreconfig "github.com/m3rciful/restobot/core/config"
	"github.com/m3rciful/restobot/core/telegram/serial"
)

func middlewareNames(mws []Middleware) []string {
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	return names
}

func TestDefaultMiddlewaresOrder(t *testing.T) {
	exec := serial.New(serial.Options{})
	defer exec.Close()
	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 300, Burst: 5}}

	assert.Equal(t, []string{"serial", "recover", "update", "rate_limit"}, middlewareNames(DefaultMiddlewares(cfg, exec, nil)))
	assert.Equal(t, []string{"recover", "update"}, middlewareNames(DefaultMiddlewares(&coreconfig.Config{}, nil, nil)))
}
