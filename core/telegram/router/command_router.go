package router

import (
	"log/slog"
	"strings"

	"github.com/m3rciful/restobot/core/logger"
	tg "github.com/m3rciful/restobot/core/telegram"
	"github.com/m3rciful/restobot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures the admin gate of admin-only commands.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per command name and alias.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	var routes []tg.Route
	for name, cmd := range reg.Commands() {
		label := handlerName(name)
		h := func(c tele.Context) error { return run(c, label, cmd.Handler) }
		if cmd.AdminOnly {
			h = admin(h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: h})
		for _, alias := range cmd.Aliases {
			if !strings.HasPrefix(alias, "/") {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(logger.Background(), logger.ComponentWire, "routes.commands",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("endpoints", len(routes)),
		slog.Int("callbacks", len(reg.CallbackKeys())),
	)
	return routes
}
