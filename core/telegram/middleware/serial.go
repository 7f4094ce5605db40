package middleware

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/restobot/core/logger"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"
	"github.com/m3rciful/restobot/core/telegram/serial"

	tele "gopkg.in/telebot.v4"
)

// SerialMiddleware moves each update onto the sender's own queue so updates of
// one user are handled strictly in arrival order while users run in parallel.
// Updates without a sender run inline.
func SerialMiddleware(exec *serial.Executor) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if exec == nil || user == nil {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			err := exec.Submit(user.ID, func() {
				if err := next(c); err != nil {
					logger.Warn(ctx, logger.ComponentSerial, "handler.error",
						append([]slog.Attr{slog.String("status", "fail")}, logger.ErrAttrs(err, "")...)...,
					)
				}
			})
			if err == nil {
				return nil
			}
			// A full backlog drops the update; the user simply repeats the tap.
			status := "fail"
			if errors.Is(err, serial.ErrBacklog) {
				status = "skip"
			}
			logger.Warn(ctx, logger.ComponentSerial, "serial.reject",
				append([]slog.Attr{
					slog.String("status", status),
					slog.Int("pending", exec.Pending()),
				}, logger.ErrAttrs(err, "")...)...,
			)
			return nil
		}
	}
}
