// Package reserve implements the table booking wizard.
package reserve

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/m3rciful/restobot/bot/config"
	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/bot/schedule"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/format"
	"github.com/m3rciful/restobot/core/telegram/state"
)

// Wizard steps.
const (
	StepName    state.Step = "name"
	StepPhone   state.Step = "phone"
	StepAddress state.Step = "address"
	StepDate    state.Step = "date"
	StepGuests  state.Step = "guests"
	StepTime    state.Step = "time"
	StepComment state.Step = "comment"
)

const (
	fieldName    = "name"
	fieldPhone   = "phone"
	fieldSite    = "site"
	fieldDate    = "date"
	fieldGuests  = "guests"
	fieldTime    = "time"
	fieldComment = "comment"
)

const (
	pickerDays = 7
	maxGuests  = 30
)

var (
	phoneRe  = regexp.MustCompile(`^7\d{10}$`)
	guestsRe = regexp.MustCompile(`^\d{1,2}$`)
)

// Wizard is the reservation scenario.
type Wizard struct {
	store state.Store
	sched *schedule.Scheduler
	sink  record.Sink
	sites []config.Site
}

// New wires the wizard; an empty sites list falls back to the default sites.
func New(store state.Store, sched *schedule.Scheduler, sink record.Sink, sites []config.Site) *Wizard {
	if len(sites) == 0 {
		sites = config.DefaultSites
	}
	return &Wizard{store: store, sched: sched, sink: sink, sites: sites}
}

func (w *Wizard) Scenario() state.Scenario { return conv.ScenarioReservation }

// Owns lists the booking buttons.
func (w *Wizard) Owns(a conv.Action) bool {
	return a.Is(conv.ActionReserveTable, conv.ActionReserveAddress, conv.ActionReserveDate, conv.ActionReserveCancel)
}

func (w *Wizard) IsReentry(*conv.Event) bool { return false }

// Start takes the user over and asks for a name.
func (w *Wizard) Start(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	_, evicted := w.store.Claim(ev.UserID, conv.ScenarioReservation, StepName, nil)
	for _, sc := range evicted {
		ev.Evict(sc, conv.ReasonClaim)
	}
	logger.Info(ctx, logger.ComponentReserve, "reserve.start", slog.String("status", "ok"))
	return r.Reply(ctx, conv.Text("📝 Как вас зовут?"))
}

// Cancel ends a live booking. It reports whether there was one.
func (w *Wizard) Cancel(ctx context.Context, ev *conv.Event, r conv.Responder) (bool, error) {
	if !w.store.End(ev.UserID, conv.ScenarioReservation) {
		return false, nil
	}
	logger.Info(ctx, logger.ComponentReserve, "reserve.cancel", slog.String("status", "ok"))
	return true, r.Reply(ctx, conv.Text("❌ Вы вышли из бронирования."))
}

// HandleAction serves booking buttons; a button that does not fit the step re-prompts it.
func (w *Wizard) HandleAction(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	switch ev.Action.Kind {
	case conv.ActionReserveTable:
		return w.Start(ctx, ev, r)
	case conv.ActionReserveCancel:
		_, err := w.Cancel(ctx, ev, r)
		return err
	}

	s, ok := w.store.Get(ev.UserID, conv.ScenarioReservation)
	if !ok {
		return r.Notice(ctx, "Действие недоступно")
	}
	switch {
	case ev.Action.Kind == conv.ActionReserveAddress && s.Step == StepAddress:
		n, err := strconv.Atoi(ev.Action.Arg)
		if err != nil || n < 1 || n > len(w.sites) {
			return r.Reply(ctx, w.prompt(s))
		}
		return w.advance(ctx, ev, r, StepDate, map[string]string{fieldSite: strconv.Itoa(n)})
	case ev.Action.Kind == conv.ActionReserveDate && s.Step == StepDate:
		return w.chooseDate(ctx, ev, r, ev.Action.Arg)
	}
	return r.Reply(ctx, w.prompt(s))
}

// HandleText feeds the current step; invalid input re-prompts and is still consumed.
func (w *Wizard) HandleText(ctx context.Context, ev *conv.Event, r conv.Responder) (conv.Outcome, error) {
	s, ok := w.store.Get(ev.UserID, conv.ScenarioReservation)
	if !ok {
		return conv.NotApplicable, nil
	}
	text := strings.TrimSpace(ev.Text)

	var err error
	switch s.Step {
	case StepName:
		if text == "" {
			err = r.Reply(ctx, w.prompt(s))
			break
		}
		err = w.advance(ctx, ev, r, StepPhone, map[string]string{fieldName: text})
	case StepPhone:
		if !phoneRe.MatchString(text) {
			err = r.Reply(ctx, conv.Text("❌ Введите телефон в формате 79999999999"))
			break
		}
		err = w.advance(ctx, ev, r, StepAddress, map[string]string{fieldPhone: text})
	case StepDate:
		err = w.chooseDate(ctx, ev, r, text)
	case StepGuests:
		n, _ := strconv.Atoi(text)
		if !guestsRe.MatchString(text) || n < 1 || n > maxGuests {
			err = r.Reply(ctx, conv.Text("❌ Введите число гостей (например, 2):"))
			break
		}
		err = w.advance(ctx, ev, r, StepTime, map[string]string{fieldGuests: strconv.Itoa(n)})
	case StepTime:
		if text == "" {
			err = r.Reply(ctx, w.prompt(s))
			break
		}
		err = w.advance(ctx, ev, r, StepComment, map[string]string{fieldTime: text})
	case StepComment:
		s.Fields[fieldComment] = text
		err = w.finalize(ctx, ev, r, s)
	default:
		err = r.Reply(ctx, w.prompt(s))
	}
	return conv.Consumed, err
}

func (w *Wizard) chooseDate(ctx context.Context, ev *conv.Event, r conv.Responder, text string) error {
	d, err := w.sched.ParseISODate(text)
	if err != nil || d.Before(w.sched.StartOfDay(w.sched.Current())) {
		return r.Reply(ctx, conv.Text("❌ Введите дату в формате ГГГГ-ММ-ДД (например, 2025-07-13):", w.picker()))
	}
	return w.advance(ctx, ev, r, StepGuests, map[string]string{fieldDate: d.Format(schedule.ISODateLayout)})
}

func (w *Wizard) advance(ctx context.Context, ev *conv.Event, r conv.Responder, next state.Step, fields map[string]string) error {
	s, err := w.store.Update(ev.UserID, conv.ScenarioReservation, func(s *state.Session) error {
		for k, v := range fields {
			s.Fields[k] = v
		}
		s.Step = next
		return nil
	})
	if err != nil {
		return fmt.Errorf("reserve: advance to %s: %w", next, err)
	}
	logger.Debug(ctx, logger.ComponentReserve, "reserve.step",
		slog.String("status", "ok"),
		slog.String("step", string(next)),
	)
	return r.Reply(ctx, w.prompt(s))
}

// Build turns a completed session into a reservation record.
func (w *Wizard) Build(ev *conv.Event, s state.Session) record.Reservation {
	res := record.Reservation{
		ID:        record.NewID(),
		UserID:    ev.UserID,
		ChatID:    ev.ChatID,
		Username:  ev.Username,
		Name:      s.Field(fieldName),
		Phone:     s.Field(fieldPhone),
		Time:      s.Field(fieldTime),
		CreatedAt: w.sched.Current(),
	}
	if n, err := strconv.Atoi(s.Field(fieldSite)); err == nil && n >= 1 && n <= len(w.sites) {
		res.Site = w.sites[n-1].Title
		res.Address = w.sites[n-1].Address
	}
	if d, err := w.sched.ParseISODate(s.Field(fieldDate)); err == nil {
		res.Date = d
	}
	res.Guests, _ = strconv.Atoi(s.Field(fieldGuests))
	if c := strings.TrimSpace(s.Field(fieldComment)); !strings.EqualFold(c, "нет") {
		res.Comment = c
	}
	return res
}

func (w *Wizard) finalize(ctx context.Context, ev *conv.Event, r conv.Responder, s state.Session) error {
	res := w.Build(ev, s)
	w.store.End(ev.UserID, conv.ScenarioReservation)

	replyErr := r.Reply(ctx, conv.Reply{
		Text:   "✅ Ваша бронь отправлена!\n\n" + Card(res, ev.Author()) + "\n\nОжидайте подтверждения.",
		Format: conv.Markdown,
	})
	if err := w.sink.SubmitReservation(ctx, res); err != nil {
		logger.Error(ctx, logger.ComponentReserve, "reserve.submit",
			append(logger.ErrAttrs(err, "SINK_FAIL"), slog.String("reservation_id", res.ID.String()))...,
		)
	}
	logger.Info(ctx, logger.ComponentReserve, "reserve.finalize",
		slog.String("status", "ok"),
		slog.String("reservation_id", res.ID.String()),
		slog.Int("guests", res.Guests),
	)
	return replyErr
}

func (w *Wizard) picker() conv.Keyboard {
	days := w.sched.NextDays(w.sched.Current(), pickerDays)
	buttons := make([]conv.Button, 0, len(days))
	for _, d := range days {
		buttons = append(buttons, conv.Btn(d.Format("02.01"), conv.ActionReserveDate, d.Format(schedule.ISODateLayout)))
	}
	return conv.Column(buttons...)
}

func (w *Wizard) prompt(s state.Session) conv.Reply {
	switch s.Step {
	case StepName:
		return conv.Text("📝 Как вас зовут?")
	case StepPhone:
		return conv.Text("📞 Ваш номер телефона (например, 79999999999):")
	case StepAddress:
		buttons := make([]conv.Button, 0, len(w.sites))
		for i, site := range w.sites {
			buttons = append(buttons, conv.Btn(site.Title, conv.ActionReserveAddress, strconv.Itoa(i+1)))
		}
		return conv.Text("🏢 Выберите ресторан для брони:", conv.Column(buttons...))
	case StepDate:
		return conv.Text("📆 На какую дату бронируем?\n\nВыберите дату кнопкой или введите вручную в формате ГГГГ-ММ-ДД:", w.picker())
	case StepGuests:
		return conv.Text("👥 На сколько человек столик?")
	case StepTime:
		return conv.Text("⏰ К какому времени подойти? (например, 18:00)")
	case StepComment:
		return conv.Text("💬 Оставьте комментарий для администратора (или напишите “нет”):")
	}
	return conv.Text("❓ Пожалуйста, используйте кнопки.")
}

// Card renders a reservation as a legacy Markdown message. author is "@user" or "ID: n".
func Card(res record.Reservation, author string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Новая бронь столика с Telegram* (%s)\n\n", format.MD(author))
	fmt.Fprintf(&b, "👤 *Имя:* %s\n", format.MD(res.Name))
	fmt.Fprintf(&b, "📞 *Телефон:* +%s\n", res.Phone)
	fmt.Fprintf(&b, "🏢 *Адрес ресторана:* %s\n", format.MD(res.Site))
	fmt.Fprintf(&b, "📆 *Дата:* %s\n", res.Date.Format(schedule.ISODateLayout))
	fmt.Fprintf(&b, "👥 *Гостей:* %d\n", res.Guests)
	fmt.Fprintf(&b, "⏰ *Время:* %s\n", format.MD(res.Time))
	if res.Comment != "" {
		fmt.Fprintf(&b, "💬 *Комментарий:* %s\n", format.MD(res.Comment))
	}
	return strings.TrimRight(b.String(), "\n")
}
