// Package app assembles the restaurant bot from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/restobot/bot/cart"
	"github.com/m3rciful/restobot/bot/catalog"
	"github.com/m3rciful/restobot/bot/config"
	"github.com/m3rciful/restobot/bot/feedback"
	"github.com/m3rciful/restobot/bot/guard"
	"github.com/m3rciful/restobot/bot/notify"
	"github.com/m3rciful/restobot/bot/operator"
	"github.com/m3rciful/restobot/bot/order"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/bot/reserve"
	"github.com/m3rciful/restobot/bot/schedule"
	"github.com/m3rciful/restobot/bot/storage"
	bottelegram "github.com/m3rciful/restobot/bot/telegram"
	"github.com/m3rciful/restobot/core/bootstrap"
	"github.com/m3rciful/restobot/core/logger"
	coretelegram "github.com/m3rciful/restobot/core/telegram"
	tghelpers "github.com/m3rciful/restobot/core/telegram/helpers"
	"github.com/m3rciful/restobot/core/telegram/router"
	"github.com/m3rciful/restobot/core/telegram/sender"
	"github.com/m3rciful/restobot/core/telegram/serial"
	"github.com/m3rciful/restobot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// App holds the wired bot and the resources it must release.
type App struct {
	cfg     *config.Config
	infra   *bootstrap.Result
	bot     *tele.Bot
	exec    *serial.Executor
	notices *sender.Dispatcher
	writes  *storage.Async
	redis   *redis.Client
	reg     *coretelegram.Registry
	handler *bottelegram.Handler
}

// New runs the bootstrap pipeline and wires every scenario.
func New(cfg *config.Config) (*App, error) {
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, infra: infra}
	if err := a.wire(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	ctx := logger.Background()
	cfg := a.cfg

	menu, err := catalog.Load(ctx, cfg.Menu.Path)
	if err != nil {
		return err
	}
	sched, err := Scheduler(cfg.Restaurant)
	if err != nil {
		return err
	}
	a.bot, err = coretelegram.BuildBot(&cfg.Config, coretelegram.BotOptions{Synchronous: true})
	if err != nil {
		return err
	}

	a.notices = sender.New(sender.Options{})
	sink := record.Fanout{notify.New(a.bot, notify.Groups{
		Orders:       cfg.Groups.Orders,
		Reservations: cfg.Groups.Reservations,
		Feedback:     cfg.Groups.Feedback,
	}, a.notices)}
	var messages record.MessageLogger
	if a.infra.DB != nil {
		a.writes = storage.NewAsync(storage.NewPostgres(a.infra.DB), storage.AsyncOptions{
			Workers:   cfg.Storage.Workers,
			QueueSize: cfg.Storage.QueueSize,
			Timeout:   cfg.Storage.Timeout,
		})
		sink = append(record.Fanout{a.writes}, sink...)
		if cfg.Storage.LogMessages {
			messages = a.writes
		}
	}

	store := state.NewMemoryStore()
	carts := cart.New(cfg.Restaurant.ServiceFee)
	sites := cfg.Restaurant.Sites

	fb := feedback.New(store, sink)
	res := reserve.New(store, sched, sink, sites)
	ord := order.New(store, carts, menu, sched, sink, fb, order.Options{
		Sites:             sites,
		MinReady:          time.Duration(cfg.Restaurant.MinReadyMinutes) * time.Minute,
		ScheduledMinReady: time.Duration(cfg.Restaurant.ScheduledMinReadyMinutes) * time.Minute,
		Upsell:            cfg.Restaurant.Upsell,
	})
	op := operator.New(store, a.history(), operator.NewOpenAICompleter(operator.OpenAIOptions{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Referer:     cfg.AI.Referer,
		Title:       cfg.AI.Title,
	}), menu, sched, operator.Options{
		Preamble: operator.Preamble{
			Name:  cfg.Restaurant.Name,
			Sites: sites,
			Hours: sched.Hours,
			Info:  cfg.Restaurant.Info,
		},
		Timeout:  cfg.AI.Timeout,
		MaxTurns: cfg.AI.HistoryTurns,
	})

	a.handler = &bottelegram.Handler{
		Views: bottelegram.Views{
			Menu:      menu,
			Carts:     carts,
			Name:      cfg.Restaurant.Name,
			PolicyURL: cfg.PolicyURL,
			VideoURL:  cfg.VideoURL,
		},
		Store: store,
		// Order fixes precedence when several scenarios are live at once.
		Chain:    guard.NewChain(store, res, ord, op, fb),
		Order:    ord,
		Reserve:  res,
		Operator: op,
		Feedback: fb,
		Messages: messages,
	}
	a.reg = coretelegram.NewRegistry()
	if err := a.handler.Register(a.reg); err != nil {
		return fmt.Errorf("app: register handlers: %w", err)
	}
	a.exec = serial.New(serial.Options{})

	logger.Info(ctx, logger.ComponentApp, "app.wired",
		slog.String("status", "ok"),
		slog.Int("dishes", menu.Len()),
		slog.Bool("db", a.infra.DB != nil),
		slog.Bool("redis", a.redis != nil),
		slog.Bool("message_log", messages != nil),
		slog.Bool("trace", logger.TraceEnabled()),
	)
	return nil
}

func (a *App) history() operator.History {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		return operator.NewMemoryHistory()
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	return operator.NewRedisHistory(a.redis, rc.HistoryTTL)
}

// Scheduler builds the business-hours scheduler of the restaurant.
func Scheduler(rc config.RestaurantConfig) (*schedule.Scheduler, error) {
	loc, err := time.LoadLocation(rc.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app: restaurant timezone: %w", err)
	}
	spans := make(map[time.Weekday][2]string, len(config.Weekdays))
	for i, key := range config.Weekdays {
		if span, ok := rc.Hours[key]; ok {
			spans[time.Weekday(i)] = [2]string{span.Open, span.Close}
		}
	}
	hours, err := schedule.ParseHours(spans)
	if err != nil {
		return nil, fmt.Errorf("app: restaurant hours: %w", err)
	}
	return &schedule.Scheduler{
		Location:     loc,
		Hours:        hours,
		SlotMinutes:  rc.SlotMinutes,
		CakeLeadDays: rc.CakeLeadDays,
		CakeMarker:   rc.CakeMarker,
	}, nil
}

// TelegramRunOptions exposes the middlewares and routes to the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	if a.handler == nil {
		return coretelegram.RunOptions{}, errors.New("app: not wired")
	}
	onLimited := func(c tele.Context) error {
		return tghelpers.Respond(c, "Слишком часто, попробуйте чуть позже")
	}
	mws := coretelegram.DefaultMiddlewares(&a.cfg.Config, a.exec, onLimited)
	mws = append(mws, coretelegram.Middleware{
		Name: "guard_chain",
		Use:  router.InterceptMiddleware(a.handler.Intercept),
	})

	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.reg))
	routes = append(routes, router.TextRoutes(a.reg, router.TextOptions{
		UnknownText:     a.handler.UnknownText(),
		UnknownDocument: a.handler.UnknownDocument(),
	})...)

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.reg,
		Bot:         a.bot,
		Middlewares: mws,
		Routes:      routes,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	attrs := []slog.Attr{
		slog.Int("serial_pending", a.exec.Pending()),
		slog.Int("notify_queued", a.notices.Len()),
		slog.Uint64("notify_failures", a.notices.ErrorCount()),
	}
	for key, n := range a.notices.Failures() {
		attrs = append(attrs, slog.Uint64("notify_failures."+key, n))
	}
	if a.writes != nil {
		attrs = append(attrs, slog.Uint64("db_failures", a.writes.Failures()))
	}
	logger.Info(ctx, logger.ComponentApp, "app.stats", attrs...)
	return nil
}

// Close drains pending writes and releases connections.
func (a *App) Close() error {
	if a.exec != nil {
		a.exec.Close()
	}
	if a.notices != nil {
		a.notices.Close()
	}
	if a.writes != nil {
		a.writes.Close()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.infra.Close())
	return errors.Join(errs...)
}
