// Package telegram adapts Telebot updates to the conversation scenarios and
// serves the menu, cart and static screens no scenario owns.
package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"
	"github.com/m3rciful/restobot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

const eventKey = "conv_event"

// EventFrom converts the update to a conv.Event. The event is cached on c so
// evictions recorded by the guard chain are visible to later handlers.
func EventFrom(c tele.Context) *conv.Event {
	if ev, ok := c.Get(eventKey).(*conv.Event); ok {
		return ev
	}
	var userID, chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	sender := c.Sender()
	if sender != nil {
		userID = sender.ID
	}
	if chatID == 0 {
		chatID = userID
	}

	var ev *conv.Event
	if cb := c.Callback(); cb != nil {
		ev = conv.NewButton(userID, chatID, conv.ParseAction(callbacks.ParseCallbackData(cb)))
	} else {
		ev = conv.NewText(userID, chatID, c.Text())
	}
	if sender != nil {
		ev.Username = sender.Username
		ev.FirstName = sender.FirstName
		ev.LastName = sender.LastName
	}
	c.Set(eventKey, ev)
	return ev
}

// Responder sends replies through the Telebot context.
type Responder struct {
	c   tele.Context
	ev  *conv.Event
	log record.MessageLogger
}

var _ conv.Responder = (*Responder)(nil)

// NewResponder builds a Responder. log may be nil.
func NewResponder(c tele.Context, log record.MessageLogger) *Responder {
	return &Responder{c: c, ev: EventFrom(c), log: log}
}

func (r *Responder) Reply(ctx context.Context, reply conv.Reply) error {
	opts := &tele.SendOptions{
		ParseMode:             parseMode(reply.Format),
		ReplyMarkup:           Markup(reply.Keyboard),
		DisableWebPagePreview: reply.NoPreview,
	}
	if err := tghelpers.SendText(r.c, reply.Text, opts); err != nil {
		return err
	}
	logMessage(ctx, r.log, r.ev, true, reply.Text)
	return nil
}

func (r *Responder) Typing(context.Context) error {
	return r.c.Notify(tele.Typing)
}

// Notice answers the callback; on plain messages it does nothing.
func (r *Responder) Notice(_ context.Context, text string) error {
	return tghelpers.Respond(r.c, text)
}

func parseMode(f conv.Format) tele.ParseMode {
	switch f {
	case conv.Markdown:
		return tele.ModeMarkdown
	case conv.HTML:
		return tele.ModeHTML
	}
	return tele.ModeDefault
}

// Markup turns a keyboard into inline markup; an empty keyboard yields nil.
func Markup(kb conv.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(kb))
	for _, row := range kb {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.InlineBtn{
				Text:   b.Text,
				Unique: b.Action.Key(),
				Data:   b.Action.Arg,
				URL:    b.URL,
			})
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineRows(rows...)
}

func logMessage(ctx context.Context, log record.MessageLogger, ev *conv.Event, fromBot bool, text string) {
	if log == nil || ev == nil || text == "" {
		return
	}
	err := log.LogMessage(ctx, record.Message{
		ChatID:    ev.ChatID,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		FromBot:   fromBot,
		Text:      text,
		At:        time.Now(),
	})
	if err != nil {
		logger.Warn(ctx, logger.ComponentStorage, "message.log",
			append(logger.ErrAttrs(err, "DB_WRITE"), slog.Bool("from_bot", fromBot))...,
		)
	}
}
