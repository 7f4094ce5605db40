package middleware

import (
	"log/slog"

	"github.com/m3rciful/restobot/core/logger"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions guards the staff-only commands.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware passes only updates from AdminID. With no admin
// configured every caller is rejected.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if user := c.Sender(); opts.AdminID != 0 && user != nil && user.ID == opts.AdminID {
				return next(c)
			}
			logger.Info(tghelpers.BuildContext(c), logger.ComponentTG, "admin.reject",
				slog.String("status", "skip"),
				slog.Bool("admin_set", opts.AdminID != 0),
			)
			if opts.OnReject == nil {
				return nil
			}
			return opts.OnReject(c)
		}
	}
}
