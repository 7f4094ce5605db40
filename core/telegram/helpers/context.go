// Package helpers holds small tele.Context utilities shared by handlers.
package helpers

import (
	"context"

	"github.com/m3rciful/restobot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "rb.ctx"

// BuildContext returns the logging context of the update, deriving it on
// first use from the update, user and chat ids.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	var userID, chatID int64
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		chatID = ch.ID
	}
	id := c.Update().ID
	ctx := logger.WithRID(context.Background(), logger.BuildRID(id, chatID, userID))
	ctx = logger.WithUpdateMeta(ctx, id, userID, chatID)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler names the route serving the update in its logging context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(BuildContext(c), handler)
	c.Set(ctxKey, ctx)
	return ctx
}
