package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/restobot/core/telegram"
	"github.com/m3rciful/restobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute dispatches callback queries by key. Unknown keys go to the
// registry's fallback. The query is always answered.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		defer func() { _ = tghelpers.Respond(c, "") }()

		key, _ := callbacks.ParseCallbackData(cb)
		name := "callback." + handlerName(key)
		keyAttr := slog.String("cb_key", key)
		if h, ok := reg.Callback(key); ok {
			return run(c, name, h, keyAttr)
		}
		notFound := slog.String("reason", "not_found")
		if fallback := reg.CallbackNotFound(); fallback != nil {
			return run(c, name, fallback, keyAttr, notFound)
		}
		summary(c, name, time.Now(), outcomeSkip, nil, keyAttr, notFound)
		return nil
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
