package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/restobot/core/logger"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into an error log line; the update
// is dropped and the pending callback, if any, is answered.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(tghelpers.BuildContext(c), logger.ComponentTG, "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", logger.Clip(fmt.Sprint(r), 256)),
				slog.String("stack", string(debug.Stack())),
			)
			_ = tghelpers.Respond(c, "")
			err = nil
		}()
		return next(c)
	}
}
