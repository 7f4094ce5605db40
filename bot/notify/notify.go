// Package notify posts finished records to the staff group chats.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/restobot/bot/order"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/bot/reserve"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/format"

	tele "gopkg.in/telebot.v4"
)

// Sender is the part of *tele.Bot used here.
type Sender interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
}

// Groups holds the target chat ids. Zero disables a channel.
type Groups struct {
	Orders       int64
	Reservations int64
	Feedback     int64
}

// Queue runs sends in the background, labelled by notification kind.
// *sender.Dispatcher implements it.
type Queue interface {
	Enqueue(ctx context.Context, kind string, send func(context.Context) error) error
}

// Notifier is a record.Sink that sends Markdown cards to the staff groups.
type Notifier struct {
	bot    Sender
	groups Groups
	queue  Queue
}

var _ record.Sink = (*Notifier)(nil)

// New returns a Notifier. A nil queue sends on the caller's goroutine.
func New(bot Sender, groups Groups, queue Queue) *Notifier {
	return &Notifier{bot: bot, groups: groups, queue: queue}
}

func (n *Notifier) SubmitOrder(ctx context.Context, o record.Order) error {
	return n.post(ctx, "order", n.groups.Orders, order.Card(o))
}

func (n *Notifier) SubmitReservation(ctx context.Context, r record.Reservation) error {
	author := fmt.Sprintf("ID: %d", r.UserID)
	if r.Username != "" {
		author = "@" + r.Username
	}
	return n.post(ctx, "reservation", n.groups.Reservations, reserve.Card(r, author))
}

func (n *Notifier) SubmitFeedback(ctx context.Context, f record.Feedback) error {
	return n.post(ctx, "feedback", n.groups.Feedback, FeedbackCard(f))
}

// FeedbackCard renders a review for the staff chat.
func FeedbackCard(f record.Feedback) string {
	return fmt.Sprintf("📝 *Новый отзыв о боте*\n\n🙋 %s\n\n%s", format.MD(f.Author), format.MD(f.Text))
}

func (n *Notifier) post(ctx context.Context, kind string, chatID int64, text string) error {
	if chatID == 0 {
		logger.Debug(ctx, logger.ComponentNotify, "notify.skip",
			slog.String("kind", kind),
			slog.String("reason", "no_group"),
		)
		return nil
	}
	to := &tele.Chat{ID: chatID}
	send := func(context.Context) error {
		_, err := n.bot.Send(to, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		return err
	}
	if n.queue == nil {
		return send(ctx)
	}
	return n.queue.Enqueue(ctx, kind, send)
}
