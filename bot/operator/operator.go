// Package operator runs the AI assisted operator chat.
package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/schedule"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/state"
)

const stepChat state.Step = "chat"

const (
	textGreeting = "💬 Вы в чате с оператором. Напишите вопрос — мы на связи."
	textWorking  = "⌛️ Оператор обрабатывает ваш вопрос..."
	textTimeout  = "⚠️ Время ожидания истекло. Попробуйте позже."
	textFailed   = "⚠️ Не удалось получить ответ оператора. Попробуйте ещё раз."
	textEmpty    = "⚠️ Ответ пуст."
	textExit     = "✅ Вы вышли из чата с оператором. Используйте /operator, чтобы снова начать."
	textLeftBtn  = "ℹ️ Вы выбрали действие вне чата с оператором. Диалог остановлен — выполняю ваш выбор."
	textLeftCmd  = "ℹ️ Вы ввели команду. Диалог с оператором закрыт — выполняю команду."
)

// Digester renders the menu for the system prompt.
type Digester interface {
	Digest() string
}

// Options tunes the session.
type Options struct {
	Preamble Preamble
	// Timeout bounds one completion call.
	Timeout time.Duration
	// TypingEvery is the interval of the typing indicator while a call is pending.
	TypingEvery time.Duration
	MaxTurns    int
}

// Session is the operator scenario.
type Session struct {
	store     state.Store
	history   History
	completer Completer
	menu      Digester
	sched     *schedule.Scheduler
	opts      Options
}

// New wires the operator. Zero options get 60s timeout, 3s typing and 10 turns.
func New(store state.Store, history History, completer Completer, menu Digester, sched *schedule.Scheduler, opts Options) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.TypingEvery <= 0 {
		opts.TypingEvery = 3 * time.Second
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 10
	}
	return &Session{store: store, history: history, completer: completer, menu: menu, sched: sched, opts: opts}
}

func (s *Session) Scenario() state.Scenario { return conv.ScenarioOperator }

func (s *Session) Owns(a conv.Action) bool {
	return a.Is(conv.ActionOperatorStart, conv.ActionOperatorExit)
}

// IsReentry reports /operator, which keeps a live chat instead of ending it.
func (s *Session) IsReentry(ev *conv.Event) bool {
	return ev.Kind == conv.KindCommand && ev.Command == "operator"
}

// Active reports whether the user is chatting with the operator.
func (s *Session) Active(userID int64) bool {
	_, ok := s.store.Get(userID, conv.ScenarioOperator)
	return ok
}

// Start opens the chat with an empty history. A live chat is only greeted again.
func (s *Session) Start(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	if !s.Active(ev.UserID) {
		_, evicted := s.store.Claim(ev.UserID, conv.ScenarioOperator, stepChat, nil)
		for _, sc := range evicted {
			ev.Evict(sc, conv.ReasonClaim)
		}
		if err := s.history.Clear(ctx, ev.UserID); err != nil {
			logger.Warn(ctx, logger.ComponentOperator, "operator.history", logger.ErrAttrs(err, "HISTORY_FAIL")...)
		}
		logger.Info(ctx, logger.ComponentOperator, "operator.start", slog.String("status", "ok"))
	}
	return r.Reply(ctx, conv.Text(textGreeting))
}

// Exit ends the chat on the user's request.
func (s *Session) Exit(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	if !s.end(ctx, ev.UserID) {
		return r.Notice(ctx, "Чат с оператором уже закрыт")
	}
	logger.Info(ctx, logger.ComponentOperator, "operator.exit", slog.String("status", "ok"))
	return r.Reply(ctx, conv.Text(textExit, menuKeyboard()))
}

// OnEvict tells the user the chat was closed by another action.
func (s *Session) OnEvict(ctx context.Context, ev *conv.Event, reason string, r conv.Responder) error {
	s.clearHistory(ctx, ev.UserID)
	text := textLeftBtn
	if reason == conv.ReasonCommand {
		text = textLeftCmd
	}
	return r.Reply(ctx, conv.Text(text, menuKeyboard()))
}

func (s *Session) HandleAction(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	switch ev.Action.Kind {
	case conv.ActionOperatorStart:
		return s.Start(ctx, ev, r)
	case conv.ActionOperatorExit:
		return s.Exit(ctx, ev, r)
	}
	return nil
}

// HandleText forwards the question to the model. The chat stays open whatever
// the outcome; a failed call leaves the history as it was before the question.
func (s *Session) HandleText(ctx context.Context, ev *conv.Event, r conv.Responder) (conv.Outcome, error) {
	if !s.Active(ev.UserID) {
		return conv.NotApplicable, nil
	}
	question := strings.TrimSpace(ev.Text)
	if question == "" {
		return conv.Consumed, nil
	}

	_ = r.Typing(ctx)
	if err := r.Reply(ctx, conv.Text(textWorking)); err != nil {
		return conv.Consumed, err
	}

	prior, err := s.history.Load(ctx, ev.UserID)
	if err != nil {
		logger.Warn(ctx, logger.ComponentOperator, "operator.history", logger.ErrAttrs(err, "HISTORY_FAIL")...)
		prior = nil
	}
	turns := Trim(append(prior, Turn{Role: RoleUser, Content: question}), s.opts.MaxTurns)
	system := s.opts.Preamble.Build(s.sched.Current(), s.menu.Digest())

	ctx = logger.WithTrace(ctx, uuid.NewString())
	started := time.Now()
	answer, err := s.complete(ctx, system, turns, r)
	if err != nil && !errors.Is(err, ErrEmptyReply) {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		code := "AI_FAIL"
		if timedOut {
			code = "AI_TIMEOUT"
		}
		logger.Error(ctx, logger.ComponentOperator, "operator.complete",
			append(logger.ErrAttrs(err, code), slog.Duration("took", logger.Took(started)))...,
		)
		if timedOut {
			return conv.Consumed, r.Reply(ctx, conv.Text(textTimeout))
		}
		return conv.Consumed, r.Reply(ctx, conv.Text(textFailed))
	}
	if answer == "" {
		logger.Warn(ctx, logger.ComponentOperator, "operator.complete",
			slog.String("status", "empty"),
			slog.Duration("took", logger.Took(started)),
		)
		return conv.Consumed, r.Reply(ctx, conv.Text(textEmpty, chatKeyboard()))
	}

	turns = Trim(append(turns, Turn{Role: RoleAssistant, Content: answer}), s.opts.MaxTurns)
	if err := s.history.Save(ctx, ev.UserID, turns); err != nil {
		logger.Warn(ctx, logger.ComponentOperator, "operator.history", logger.ErrAttrs(err, "HISTORY_FAIL")...)
	}
	logger.Info(ctx, logger.ComponentOperator, "operator.complete",
		slog.String("status", "ok"),
		slog.Int("turns", len(turns)),
		slog.Duration("took", logger.Took(started)),
	)
	return conv.Consumed, r.Reply(ctx, conv.Text(answer, chatKeyboard()))
}

func chatKeyboard() conv.Keyboard {
	return conv.Column(
		conv.Btn("📋 Меню", conv.ActionFoodMenu),
		conv.Btn("❌ Выйти из диалога", conv.ActionOperatorExit),
	)
}

// complete runs one call under the deadline while a ticker keeps the typing
// indicator alive. The ticker stops before complete returns.
func (s *Session) complete(ctx context.Context, system string, turns []Turn, r conv.Responder) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		t := time.NewTicker(s.opts.TypingEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = r.Typing(callCtx)
			}
		}
	}()

	answer, err := s.completer.Complete(callCtx, system, turns)
	close(done)
	<-stopped
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return strings.TrimSpace(answer), err
}

func (s *Session) end(ctx context.Context, userID int64) bool {
	ended := s.store.End(userID, conv.ScenarioOperator)
	s.clearHistory(ctx, userID)
	return ended
}

func (s *Session) clearHistory(ctx context.Context, userID int64) {
	if err := s.history.Clear(ctx, userID); err != nil {
		logger.Warn(ctx, logger.ComponentOperator, "operator.history", logger.ErrAttrs(err, "HISTORY_FAIL")...)
	}
}

func menuKeyboard() conv.Keyboard {
	return conv.Column(conv.Btn("📋 Меню", conv.ActionFoodMenu))
}
