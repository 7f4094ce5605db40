package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/feedback"
	"github.com/m3rciful/restobot/bot/guard"
	"github.com/m3rciful/restobot/bot/operator"
	"github.com/m3rciful/restobot/bot/order"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/bot/reserve"
	"github.com/m3rciful/restobot/core/logger"
	coretelegram "github.com/m3rciful/restobot/core/telegram"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"
	"github.com/m3rciful/restobot/core/telegram/state"
	"github.com/m3rciful/restobot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

const textNothingToCancel = "Нет активных действий."

// Handler is the catch-all that runs after the guard chain passed an event on.
type Handler struct {
	Views    Views
	Store    state.Store
	Chain    *guard.Chain
	Order    *order.Wizard
	Reserve  *reserve.Wizard
	Operator *operator.Session
	Feedback *feedback.Capture
	// Messages stores the chat history; nil disables it.
	Messages record.MessageLogger
}

// Intercept hands every update to the guard chain first.
func (h *Handler) Intercept(c tele.Context) (string, bool, error) {
	ev := EventFrom(c)
	ctx := tghelpers.BuildContext(c)
	if ev.Kind != conv.KindButton {
		logMessage(ctx, h.Messages, ev, false, ev.Text)
	}
	return h.Chain.Dispatch(ctx, ev, h.responder(c))
}

func (h *Handler) responder(c tele.Context) *Responder {
	return NewResponder(c, h.Messages)
}

// Serve handles a button press nobody owned.
func (h *Handler) Serve(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	a := ev.Action
	switch a.Kind {
	case conv.ActionCartCheckout:
		return h.Order.Checkout(ctx, ev, r)
	case conv.ActionStartOrder:
		return h.Order.Start(ctx, ev, r)
	case conv.ActionReserveTable:
		return h.Reserve.Start(ctx, ev, r)
	case conv.ActionReserveCancel:
		left, err := h.Reserve.Cancel(ctx, ev, r)
		if err != nil || left {
			return err
		}
		return r.Notice(ctx, textUnavailable)
	case conv.ActionOperatorStart:
		return h.Operator.Start(ctx, ev, r)
	case conv.ActionOperatorExit:
		return h.Operator.Exit(ctx, ev, r)
	case conv.ActionFeedbackStart:
		return h.Feedback.Start(ctx, ev, r)

	case conv.ActionMainMenu:
		return r.Reply(ctx, h.Views.Welcome())
	case conv.ActionFoodMenu:
		return r.Reply(ctx, h.Views.Sections())
	case conv.ActionCategory:
		if reply, ok := h.Views.Category(a.Arg); ok {
			return r.Reply(ctx, reply)
		}
	case conv.ActionSubcategory:
		if reply, ok := h.Views.Subcategory(a.Arg); ok {
			return r.Reply(ctx, reply)
		}
	case conv.ActionAddDish:
		return h.add(ctx, ev, r)
	case conv.ActionCartShow:
		return r.Reply(ctx, h.Views.Cart(ev.UserID))
	case conv.ActionCartInc:
		if _, ok := h.Views.Carts.Increase(ev.UserID, a.Arg); !ok {
			return r.Notice(ctx, textUnavailable)
		}
		_ = r.Notice(ctx, "Добавлено 1 шт.")
		return r.Reply(ctx, h.Views.Cart(ev.UserID))
	case conv.ActionCartDec:
		if _, ok := h.Views.Carts.Decrease(ev.UserID, a.Arg); !ok {
			return r.Notice(ctx, textUnavailable)
		}
		_ = r.Notice(ctx, "Убрано 1 шт.")
		return r.Reply(ctx, h.Views.Cart(ev.UserID))
	case conv.ActionCartQty:
		for _, l := range h.Views.Carts.Lines(ev.UserID) {
			if l.Dish.ID == a.Arg {
				return r.Notice(ctx, fmt.Sprintf("В корзине: %d шт.", l.Quantity))
			}
		}
	case conv.ActionCartClear:
		h.Views.Carts.Clear(ev.UserID)
		_ = r.Notice(ctx, "Корзина очищена.")
		return r.Reply(ctx, h.Views.Cart(ev.UserID))
	case conv.ActionShowVideo:
		return r.Reply(ctx, h.Views.Video())
	case conv.ActionPolicy:
		return r.Reply(ctx, h.Views.Policy())
	}

	logger.Debug(ctx, logger.ComponentTG, "callback.unavailable",
		slog.String("status", "skip"),
		slog.String("action", a.Kind.String()),
		slog.String("arg", a.Arg),
	)
	return r.Notice(ctx, textUnavailable)
}

func (h *Handler) add(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	d, ok := h.Views.Menu.Dish(ev.Action.Arg)
	if !ok {
		return r.Notice(ctx, "Блюдо не найдено")
	}
	qty := h.Views.Carts.Add(ev.UserID, d)
	logger.Debug(ctx, logger.ComponentTG, "cart.add",
		slog.String("status", "ok"),
		slog.String("dish_id", d.ID),
		slog.Int("qty", qty),
	)
	_ = r.Notice(ctx, "Добавлено 1 шт.")
	return r.Reply(ctx, h.Views.Added(d, qty))
}

// Cancel leaves whatever the guard chain ended for this command.
func (h *Handler) Cancel(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	texts := guard.CancelReplies(ev)
	if len(texts) == 0 && !ev.Evicted(conv.ScenarioOperator) {
		return r.Reply(ctx, h.Views.WithMenu(textNothingToCancel))
	}
	for _, text := range texts {
		if err := r.Reply(ctx, conv.Text(text)); err != nil {
			return err
		}
	}
	return nil
}

// Sessions reports live scenarios per kind.
func (h *Handler) Sessions(ctx context.Context, r conv.Responder) error {
	counts := h.Store.Counts()
	if len(counts) == 0 {
		return r.Reply(ctx, conv.Text("Активных сессий нет."))
	}
	names := make([]string, 0, len(counts))
	for sc := range counts {
		names = append(names, string(sc))
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Активные сессии:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n%s: %d", name, counts[state.Scenario(name)])
	}
	return r.Reply(ctx, conv.Text(b.String()))
}

// Register binds commands, callbacks and fallbacks to reg.
func (h *Handler) Register(reg *coretelegram.Registry) error {
	cmds := []struct {
		name string
		cmd  coretelegram.Command
	}{
		{"/start", coretelegram.Command{
			Description: "Главное меню",
			Handler:     h.reply(func(*conv.Event) conv.Reply { return h.Views.Welcome() }),
		}},
		{"/menu", coretelegram.Command{
			Description: "Меню ресторана",
			Handler:     h.reply(func(*conv.Event) conv.Reply { return h.Views.Sections() }),
		}},
		{"/cart", coretelegram.Command{
			Description: "Корзина",
			Handler:     h.reply(func(ev *conv.Event) conv.Reply { return h.Views.Cart(ev.UserID) }),
		}},
		{"/operator", coretelegram.Command{
			Description: "Связаться с оператором",
			Handler:     h.serve(h.Operator.Start),
		}},
		{"/reserve", coretelegram.Command{
			Description: "Забронировать стол",
			Handler:     h.serve(h.Reserve.Start),
		}},
		{"/feedback", coretelegram.Command{
			Description: "Оставить отзыв",
			Handler:     h.serve(h.Feedback.Start),
		}},
		{"/policy", coretelegram.Command{
			Description: "Политика обработки данных",
			Handler:     h.reply(func(*conv.Event) conv.Reply { return h.Views.Policy() }),
		}},
		{"/cancel", coretelegram.Command{
			Description: "Выйти из текущего действия",
			Aliases:     []string{"/cancel_reserve", "/reserve_exit"},
			Handler:     h.serve(h.Cancel),
		}},
		{"/sessions", coretelegram.Command{
			Description: "Активные сессии",
			AdminOnly:   true,
			Hidden:      true,
			Handler: h.serve(func(ctx context.Context, _ *conv.Event, r conv.Responder) error {
				return h.Sessions(ctx, r)
			}),
		}},
	}
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			return err
		}
	}

	onCallback := h.serve(h.Serve)
	for _, key := range conv.Keys() {
		if err := reg.RegisterCallback(key, onCallback); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	return nil
}

var _ ui.FallbackProvider = (*Handler)(nil)

// UnknownText answers text that neither a scenario nor a command took.
func (h *Handler) UnknownText() tele.HandlerFunc {
	return h.reply(func(*conv.Event) conv.Reply { return h.Views.UseMenu() })
}

// UnknownDocument answers files and documents the same way.
func (h *Handler) UnknownDocument() tele.HandlerFunc {
	return h.UnknownText()
}

// UnknownCallback serves callbacks whose key is not registered, such as
// legacy keys that carry the argument in the key itself.
func (h *Handler) UnknownCallback() tele.HandlerFunc {
	return h.serve(h.Serve)
}

func (h *Handler) serve(fn func(ctx context.Context, ev *conv.Event, r conv.Responder) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(tghelpers.BuildContext(c), EventFrom(c), h.responder(c))
	}
}

func (h *Handler) reply(view func(ev *conv.Event) conv.Reply) tele.HandlerFunc {
	return h.serve(func(ctx context.Context, ev *conv.Event, r conv.Responder) error {
		return r.Reply(ctx, view(ev))
	})
}
