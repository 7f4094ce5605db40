package router

import (
	"log/slog"
	"time"

	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Interceptor inspects an update before the routed handler runs. It returns
// handled=true when the update must not reach the route. name labels the
// summary line and may be empty when nothing was handled.
type Interceptor func(c tele.Context) (name string, handled bool, err error)

// InterceptMiddleware runs fn ahead of every routed handler and logs a
// handler summary for the updates it keeps.
func InterceptMiddleware(fn Interceptor) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if fn == nil {
				return next(c)
			}
			start := time.Now()
			name, handled, err := fn(c)
			if !handled {
				if err != nil {
					summary(c, handlerName(name), start, outcomePassed, err)
				}
				return next(c)
			}
			_ = tghelpers.Respond(c, "")
			summary(c, handlerName(name), start, outcomeConsumed, err,
				slog.String("route", "intercept"),
			)
			return err
		}
	}
}
