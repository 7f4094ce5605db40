package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/restobot/core/config"
	"github.com/m3rciful/restobot/core/telegram/middleware"
	"github.com/m3rciful/restobot/core/telegram/serial"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
// With exec set, every update is first moved onto its sender's serial queue.
func DefaultMiddlewares(cfg *coreconfig.Config, exec *serial.Executor, onLimited func(tele.Context) error) []Middleware {
	var mws []Middleware
	if exec != nil {
		mws = append(mws, Middleware{Name: "serial", Use: middleware.SerialMiddleware(exec)})
	}
	mws = append(mws,
		Middleware{Name: "recover", Use: middleware.RecoverMiddleware},
		Middleware{Name: "update", Use: middleware.UpdateMiddleware},
	)

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Burst:     cfg.RateLimit.Burst,
					Exclude:   ex,
					OnLimited: onLimited,
				}),
			})
		}
	}
	return mws
}
