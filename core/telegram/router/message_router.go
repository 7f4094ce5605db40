package router

import (
	"time"

	tg "github.com/m3rciful/restobot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions sets the fallbacks for text and document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds the catch-all routes for text and documents. Text naming
// a public command, such as "menu" or "/menu@bot", runs that command.
func TextRoutes(reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if reg != nil {
			if name, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
				return run(c, handlerName(name), cmd.Handler)
			}
		}
		return fallback(c, "unknown_text", opts.UnknownText)
	}
	doc := func(c tele.Context) error {
		return fallback(c, "unexpected_document", opts.UnknownDocument)
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: text},
		{Endpoint: tele.OnDocument, Handler: doc},
	}
}

func fallback(c tele.Context, name string, h tele.HandlerFunc) error {
	if h != nil {
		return run(c, name, h)
	}
	summary(c, name, time.Now(), outcomeSkip, nil)
	return nil
}
