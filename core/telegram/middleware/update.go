package middleware

import (
	"log/slog"

	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const repliesKey = "rb.replies"

type replies struct {
	messages int
	keyboard bool
}

// countingContext counts the messages a handler sends back.
type countingContext struct {
	tele.Context
	r *replies
}

func (c countingContext) count(err error, opts []any) error {
	if err != nil {
		return err
	}
	c.r.messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			c.r.keyboard = c.r.keyboard || (v != nil && v.ReplyMarkup != nil)
		case *tele.ReplyMarkup:
			c.r.keyboard = c.r.keyboard || v != nil
		}
	}
	return nil
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(c.Context.EditOrSend(what, opts...), opts)
}

func (c countingContext) EditOrReply(what any, opts ...any) error {
	return c.count(c.Context.EditOrReply(what, opts...), opts)
}

// UpdateMiddleware attaches the logging context to the update, logs its
// receipt at debug level and counts the replies sent while handling it.
func UpdateMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil && user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.Clip(user.Username, 64)))
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			attrs = append(attrs,
				slog.String("cb_key", logger.Clip(key, 64)),
				slog.String("payload", logger.Clip(payload, 128)),
			)
		case upd.Message != nil:
			attrs = append(attrs, slog.String("payload", logger.Clip(c.Text(), 128)))
		}
		logger.Debug(ctx, logger.ComponentTG, "update.received", attrs...)

		r := &replies{}
		c.Set(repliesKey, r)
		return next(countingContext{Context: c, r: r})
	}
}

// Replies reports how many messages were sent for the update and whether any
// carried a keyboard.
func Replies(c tele.Context) (int, bool) {
	r, _ := c.Get(repliesKey).(*replies)
	if r == nil {
		return 0, false
	}
	return r.messages, r.keyboard
}
