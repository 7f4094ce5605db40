// Package router turns the registry into Telebot routes and writes one
// handler.handled line per routed update.
package router

import (
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/restobot/core/logger"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"
	"github.com/m3rciful/restobot/core/telegram/middleware"
	"github.com/m3rciful/restobot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// Outcomes besides ok and fail.
const (
	outcomeSkip     = "skip"
	outcomeConsumed = "consumed"
	outcomePassed   = "passed"
)

func run(c tele.Context, name string, h tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	tghelpers.WithHandler(c, name)
	err := h(c)
	summary(c, name, start, "", err, extras...)
	return err
}

func summary(c tele.Context, name string, start time.Time, outcome string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, name)
	msgs, kb := middleware.Replies(c)
	status := logger.Status(err)
	if outcome == "" {
		outcome = status
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	attrs = append(attrs, extras...)
	if err != nil {
		attrs = append(attrs, logger.ErrAttrs(err, string(netutil.Classify(err)))...)
		logger.Warn(ctx, logger.ComponentTG, "handler.handled", attrs...)
		return
	}
	logger.Info(ctx, logger.ComponentTG, "handler.handled", attrs...)
}

// handlerName turns a command or callback key into a log label.
func handlerName(key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		return "unknown"
	}
	return strings.ReplaceAll(key, " ", "_")
}
