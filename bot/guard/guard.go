// Package guard routes inbound events through the scenario guards in priority
// order so that at most one scenario handles an event and starting a new flow
// ends the one in progress.
package guard

import (
	"context"
	"log/slog"

	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/state"
)

// Guard is one scenario as seen by the chain.
type Guard interface {
	Scenario() state.Scenario
	// Owns reports the buttons the scenario handles while it owns the user.
	Owns(a conv.Action) bool
	// IsReentry reports a command that restarts the scenario without ending it.
	IsReentry(ev *conv.Event) bool
	HandleAction(ctx context.Context, ev *conv.Event, r conv.Responder) error
	HandleText(ctx context.Context, ev *conv.Event, r conv.Responder) (conv.Outcome, error)
}

// Evictor is implemented by guards that talk to the user when they lose them.
type Evictor interface {
	OnEvict(ctx context.Context, ev *conv.Event, reason string, r conv.Responder) error
}

// Chain holds the guards in priority order.
type Chain struct {
	store  state.Store
	guards []Guard
}

// NewChain builds a chain; guards run in the order given.
func NewChain(store state.Store, guards ...Guard) *Chain {
	return &Chain{store: store, guards: guards}
}

// Owner returns the first guard, in priority order, that owns the user.
func (c *Chain) Owner(userID int64) (Guard, bool) {
	for _, g := range c.guards {
		if _, ok := c.store.Get(userID, g.Scenario()); ok {
			return g, true
		}
	}
	return nil, false
}

// Dispatch offers ev to every guard owning the user. handled reports that a
// guard consumed the event; otherwise the caller serves it, reading
// ev.Evictions to learn what was ended on the way.
func (c *Chain) Dispatch(ctx context.Context, ev *conv.Event, r conv.Responder) (name string, handled bool, err error) {
	for _, g := range c.guards {
		sc := g.Scenario()
		if _, ok := c.store.Get(ev.UserID, sc); !ok {
			continue
		}
		gctx := logger.WithScenario(ctx, string(sc))
		name = "guard." + string(sc)

		switch ev.Kind {
		case conv.KindButton:
			if g.Owns(ev.Action) {
				logger.Debug(gctx, logger.ComponentGuard, "guard.action",
					slog.String("status", "ok"),
					slog.String("action", ev.Action.Kind.String()),
				)
				return name, true, g.HandleAction(gctx, ev, r)
			}
			c.evict(gctx, g, ev, conv.ReasonCallback, r)
		case conv.KindCommand:
			if g.IsReentry(ev) {
				continue
			}
			c.evict(gctx, g, ev, conv.ReasonCommand, r)
		default:
			out, err := g.HandleText(gctx, ev, r)
			if out == conv.Consumed {
				return name, true, err
			}
			if err != nil {
				logger.Warn(gctx, logger.ComponentGuard, "guard.text", logger.ErrAttrs(err, "GUARD_TEXT")...)
			}
			c.evict(gctx, g, ev, conv.ReasonFinished, r)
		}
	}
	return "", false, nil
}

func (c *Chain) evict(ctx context.Context, g Guard, ev *conv.Event, reason string, r conv.Responder) {
	sc := g.Scenario()
	c.store.End(ev.UserID, sc)
	ev.Evict(sc, reason)
	logger.Info(ctx, logger.ComponentGuard, "guard.evict",
		slog.String("status", "ok"),
		slog.String("reason", reason),
		slog.String("kind", ev.Kind.String()),
	)
	if reason == conv.ReasonFinished {
		return
	}
	if ex, ok := g.(Evictor); ok {
		if err := ex.OnEvict(ctx, ev, reason, r); err != nil {
			logger.Warn(ctx, logger.ComponentGuard, "guard.on_evict", logger.ErrAttrs(err, "EVICT_NOTIFY")...)
		}
	}
}
