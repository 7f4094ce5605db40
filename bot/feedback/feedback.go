// Package feedback collects one free-text review from a user.
package feedback

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/state"
)

const stepAwait state.Step = "await_text"

const (
	textPrompt = "🤔 Нам важно мнение гостей! Напишите, что понравилось или нет в работе бота.\n\n" +
		"Если передумали — нажмите «Отмена»."
	textThanks    = "Спасибо за отзыв! 🙏 Нам очень важно ваше мнение."
	textCancelled = "Отзыв отменён. Если передумаете — напишите снова!"
	textFailed    = "⚠️ Не удалось отправить отзыв. Попробуйте позже."
)

// Capture is the feedback scenario.
type Capture struct {
	store state.Store
	sink  record.Sink
	now   func() time.Time
}

// New builds the scenario on top of the shared session store.
func New(store state.Store, sink record.Sink) *Capture {
	return &Capture{store: store, sink: sink, now: time.Now}
}

func (f *Capture) Scenario() state.Scenario { return conv.ScenarioFeedback }

// Owns reports the buttons handled while feedback is awaited.
func (f *Capture) Owns(a conv.Action) bool {
	return a.Is(conv.ActionFeedbackCancel, conv.ActionFeedbackStart)
}

func (f *Capture) IsReentry(*conv.Event) bool { return false }

// Start takes the user over and asks for the review.
func (f *Capture) Start(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	_, evicted := f.store.Claim(ev.UserID, conv.ScenarioFeedback, stepAwait, nil)
	for _, sc := range evicted {
		ev.Evict(sc, conv.ReasonClaim)
	}
	logger.Info(ctx, logger.ComponentFeedback, "feedback.start", slog.String("status", "ok"))
	return r.Reply(ctx, conv.Text(textPrompt, conv.Column(
		conv.Btn("✖ Отмена", conv.ActionFeedbackCancel),
	)))
}

// HandleAction serves the cancel button and a repeated start.
func (f *Capture) HandleAction(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	switch ev.Action.Kind {
	case conv.ActionFeedbackStart:
		return f.Start(ctx, ev, r)
	case conv.ActionFeedbackCancel:
		f.store.End(ev.UserID, conv.ScenarioFeedback)
		_ = r.Notice(ctx, "Отмена")
		logger.Info(ctx, logger.ComponentFeedback, "feedback.cancel", slog.String("status", "ok"))
		return r.Reply(ctx, conv.Text(textCancelled))
	}
	return nil
}

// HandleText submits the text as the review and ends the scenario.
func (f *Capture) HandleText(ctx context.Context, ev *conv.Event, r conv.Responder) (conv.Outcome, error) {
	if _, ok := f.store.Get(ev.UserID, conv.ScenarioFeedback); !ok {
		return conv.NotApplicable, nil
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return conv.Consumed, nil
	}
	f.store.End(ev.UserID, conv.ScenarioFeedback)

	fb := record.Feedback{
		ID:        record.NewID(),
		UserID:    ev.UserID,
		Username:  ev.Username,
		Author:    author(ev),
		Text:      text,
		CreatedAt: f.now(),
	}
	if err := f.sink.SubmitFeedback(ctx, fb); err != nil {
		logger.Error(ctx, logger.ComponentFeedback, "feedback.submit",
			append(logger.ErrAttrs(err, "SINK_FAIL"), slog.String("id", fb.ID.String()))...,
		)
		return conv.Consumed, r.Reply(ctx, conv.Text(textFailed))
	}
	logger.Info(ctx, logger.ComponentFeedback, "feedback.submit",
		slog.String("status", "ok"),
		slog.String("id", fb.ID.String()),
		slog.Int("len", len([]rune(text))),
	)
	return conv.Consumed, r.Reply(ctx, conv.Text(textThanks))
}

func author(ev *conv.Event) string {
	if ev.Username != "" {
		return "@" + ev.Username
	}
	name := strings.TrimSpace(ev.FirstName + " " + ev.LastName)
	if name != "" {
		return name
	}
	return ev.Author()
}
