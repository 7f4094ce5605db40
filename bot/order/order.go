// Package order implements the checkout wizard that turns a cart into a
// finalized order.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/restobot/bot/cart"
	"github.com/m3rciful/restobot/bot/catalog"
	"github.com/m3rciful/restobot/bot/config"
	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/bot/schedule"
	"github.com/m3rciful/restobot/core/logger"
	"github.com/m3rciful/restobot/core/telegram/state"
)

// Wizard steps.
const (
	StepName           state.Step = "name"
	StepPhone          state.Step = "phone"
	StepDeliveryType   state.Step = "delivery_type"
	StepAddress        state.Step = "address"
	StepPickupLocation state.Step = "pickup_location"
	StepDeliverySpeed  state.Step = "delivery_speed"
	StepDate           state.Step = "date"
	StepTime           state.Step = "time"
	StepComment        state.Step = "comment"
	StepOperatorCall   state.Step = "operator_call"
	StepPayment        state.Step = "payment"
)

// Session field names.
const (
	fieldName         = "name"
	fieldPhone        = "phone"
	fieldDeliveryType = "delivery_type"
	fieldAddress      = "address"
	fieldPickupSite   = "pickup_site"
	fieldClosed       = "closed"
	fieldFast         = "fast"
	fieldDate         = "date"
	fieldTime         = "time"
	fieldComment      = "comment"
	fieldOperatorCall = "operator_call"
)

// FeedbackStarter is notified after a successful order.
type FeedbackStarter interface {
	Start(ctx context.Context, ev *conv.Event, r conv.Responder) error
}

// Options tunes the wizard.
type Options struct {
	Sites []config.Site
	// MinReady is the preparation time used for "as soon as possible".
	MinReady time.Duration
	// ScheduledMinReady drives the earliest-time hint of a pre-order for today.
	ScheduledMinReady time.Duration
	// Upsell lists category names offered before checkout.
	Upsell []string
}

// Wizard is the order scenario.
type Wizard struct {
	store    state.Store
	carts    *cart.Carts
	menu     *catalog.Catalog
	sched    *schedule.Scheduler
	sink     record.Sink
	feedback FeedbackStarter
	opts     Options
}

// New wires the wizard. menu and feedback may be nil.
func New(store state.Store, carts *cart.Carts, menu *catalog.Catalog, sched *schedule.Scheduler, sink record.Sink, feedback FeedbackStarter, opts Options) *Wizard {
	if opts.MinReady <= 0 {
		opts.MinReady = time.Hour
	}
	if opts.ScheduledMinReady <= 0 {
		opts.ScheduledMinReady = 90 * time.Minute
	}
	if len(opts.Sites) == 0 {
		opts.Sites = config.DefaultSites
	}
	if opts.Upsell == nil {
		opts.Upsell = []string{"Напитки", "Десерты", "Соусы"}
	}
	return &Wizard{
		store:    store,
		carts:    carts,
		menu:     menu,
		sched:    sched,
		sink:     sink,
		feedback: feedback,
		opts:     opts,
	}
}

func (w *Wizard) Scenario() state.Scenario { return conv.ScenarioOrder }

// Owns lists the buttons that belong to checkout.
func (w *Wizard) Owns(a conv.Action) bool {
	return a.Is(
		conv.ActionCartCheckout,
		conv.ActionStartOrder,
		conv.ActionDeliveryType,
		conv.ActionPickup,
		conv.ActionDeliveryFast,
		conv.ActionDeliveryScheduled,
		conv.ActionOperatorCall,
		conv.ActionPayment,
	)
}

func (w *Wizard) IsReentry(*conv.Event) bool { return false }

// Checkout offers a few more categories before the wizard starts.
func (w *Wizard) Checkout(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	if len(w.carts.Lines(ev.UserID)) == 0 {
		return r.Notice(ctx, "Корзина пуста!")
	}
	var kb conv.Keyboard
	if w.menu != nil {
		for _, name := range w.opts.Upsell {
			if i := w.menu.CategoryIndex(name); i >= 0 {
				cat, _ := w.menu.Category(i)
				kb = append(kb, []conv.Button{conv.Btn(cat, conv.ActionCategory, strconv.Itoa(i))})
			}
		}
	}
	kb = append(kb, []conv.Button{conv.Btn("🧾 Перейти к оформлению", conv.ActionStartOrder)})
	return r.Reply(ctx, conv.Text("🍽 Перед оформлением заказа, не хотите добавить что-нибудь ещё?", kb))
}

// Start snapshots the cart and takes the user over.
func (w *Wizard) Start(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	snap, err := w.carts.Snapshot(ev.UserID)
	if errors.Is(err, cart.ErrEmptyCart) {
		return r.Notice(ctx, "Корзина пуста!")
	}
	if err != nil {
		return err
	}
	_, evicted := w.store.Claim(ev.UserID, conv.ScenarioOrder, StepName, snap)
	for _, sc := range evicted {
		ev.Evict(sc, conv.ReasonClaim)
	}
	logger.Info(ctx, logger.ComponentOrder, "order.start",
		slog.String("status", "ok"),
		slog.Int("lines", len(snap.Lines)),
		slog.Int64("total", snap.Total),
	)
	return r.Reply(ctx, conv.Text("📝 Укажите ваше имя:"))
}

// HandleAction serves checkout buttons. A button that does not fit the
// current step re-prompts that step.
func (w *Wizard) HandleAction(ctx context.Context, ev *conv.Event, r conv.Responder) error {
	switch ev.Action.Kind {
	case conv.ActionCartCheckout:
		return w.Checkout(ctx, ev, r)
	case conv.ActionStartOrder:
		return w.Start(ctx, ev, r)
	}

	s, ok := w.store.Get(ev.UserID, conv.ScenarioOrder)
	if !ok {
		return r.Notice(ctx, "Действие недоступно")
	}
	arg := ev.Action.Arg
	switch {
	case ev.Action.Kind == conv.ActionDeliveryType && s.Step == StepDeliveryType:
		return w.chooseDeliveryType(ctx, ev, r, arg)
	case ev.Action.Kind == conv.ActionPickup && s.Step == StepPickupLocation:
		return w.choosePickup(ctx, ev, r, arg)
	case ev.Action.Kind == conv.ActionDeliveryFast && s.Step == StepDeliverySpeed:
		return w.chooseFast(ctx, ev, r, s)
	case ev.Action.Kind == conv.ActionDeliveryScheduled && s.Step == StepDeliverySpeed:
		return w.advance(ctx, ev, r, StepDate, nil)
	case ev.Action.Kind == conv.ActionOperatorCall && s.Step == StepOperatorCall:
		return w.advance(ctx, ev, r, StepPayment, map[string]string{
			fieldOperatorCall: strconv.FormatBool(arg == conv.AnswerYes),
		})
	case ev.Action.Kind == conv.ActionPayment && s.Step == StepPayment:
		return w.pay(ctx, ev, r, s, arg)
	}

	logger.Debug(ctx, logger.ComponentOrder, "order.action.out_of_step",
		slog.String("status", "skip"),
		slog.String("action", ev.Action.Kind.String()),
		slog.String("step", string(s.Step)),
	)
	return r.Reply(ctx, w.prompt(s))
}

// HandleText feeds the current step. Invalid input re-prompts and is still consumed.
func (w *Wizard) HandleText(ctx context.Context, ev *conv.Event, r conv.Responder) (conv.Outcome, error) {
	s, ok := w.store.Get(ev.UserID, conv.ScenarioOrder)
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
		phone, perr := NormalizePhone(text)
		if perr != nil {
			err = r.Reply(ctx, conv.Text("❌ Неверный формат номера. Введите, например: 79123456789"))
			break
		}
		err = w.advance(ctx, ev, r, StepDeliveryType, map[string]string{fieldPhone: phone})

	case StepAddress:
		if text == "" {
			err = r.Reply(ctx, w.prompt(s))
			break
		}
		err = w.advance(ctx, ev, r, StepDeliverySpeed, map[string]string{fieldAddress: text})

	case StepDate:
		err = w.chooseDate(ctx, ev, r, s, text)

	case StepTime:
		if text == "" {
			err = r.Reply(ctx, w.prompt(s))
			break
		}
		err = w.advance(ctx, ev, r, StepComment, map[string]string{fieldTime: text})

	case StepComment:
		err = w.advance(ctx, ev, r, StepOperatorCall, map[string]string{fieldComment: text})

	case StepPayment:
		q := strings.ToLower(text)
		switch {
		case strings.Contains(q, "налич"):
			err = w.pay(ctx, ev, r, s, conv.PaymentCash)
		case strings.Contains(q, "карт"):
			err = w.pay(ctx, ev, r, s, conv.PaymentCard)
		default:
			err = r.Reply(ctx, conv.Text("❌ Пожалуйста, выберите способ оплаты, используя кнопки ниже."))
		}

	default:
		err = r.Reply(ctx, conv.Text("❓ Пожалуйста, используйте кнопки."))
	}
	return conv.Consumed, err
}

// advance stores fields, moves to next and sends its prompt.
func (w *Wizard) advance(ctx context.Context, ev *conv.Event, r conv.Responder, next state.Step, fields map[string]string) error {
	s, err := w.store.Update(ev.UserID, conv.ScenarioOrder, func(s *state.Session) error {
		for k, v := range fields {
			s.Fields[k] = v
		}
		s.Step = next
		return nil
	})
	if err != nil {
		return fmt.Errorf("order: advance to %s: %w", next, err)
	}
	logger.Debug(ctx, logger.ComponentOrder, "order.step",
		slog.String("status", "ok"),
		slog.String("step", string(next)),
	)
	return r.Reply(ctx, w.prompt(s))
}

func (w *Wizard) chooseDeliveryType(ctx context.Context, ev *conv.Event, r conv.Responder, kind string) error {
	if kind == conv.DeliveryTypePickup {
		return w.advance(ctx, ev, r, StepPickupLocation, map[string]string{fieldDeliveryType: record.Pickup})
	}
	return w.advance(ctx, ev, r, StepAddress, map[string]string{fieldDeliveryType: record.Delivery})
}

func (w *Wizard) choosePickup(ctx context.Context, ev *conv.Event, r conv.Responder, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(w.opts.Sites) {
		s, _ := w.store.Get(ev.UserID, conv.ScenarioOrder)
		return r.Reply(ctx, w.prompt(s))
	}
	fields := map[string]string{fieldPickupSite: strconv.Itoa(n)}
	if !w.sched.IsOpenNow() {
		fields[fieldClosed] = "true"
		if _, err := w.store.Update(ev.UserID, conv.ScenarioOrder, func(s *state.Session) error {
			for k, v := range fields {
				s.Fields[k] = v
			}
			s.Step = StepDeliverySpeed
			return nil
		}); err != nil {
			return err
		}
		logger.Info(ctx, logger.ComponentOrder, "order.pickup.closed", slog.String("status", "skip"))
		return r.Reply(ctx, closedReply())
	}
	return w.advance(ctx, ev, r, StepDeliverySpeed, fields)
}

func (w *Wizard) chooseFast(ctx context.Context, ev *conv.Event, r conv.Responder, s state.Session) error {
	now := w.sched.Current()
	snap, _ := s.Payload.(cart.Snapshot)
	if w.sched.CakeOnly(snap.Categories()) {
		suggested := w.sched.CakeSuggestion(now).Format(schedule.DateLayout)
		return r.Reply(ctx, conv.Text(
			fmt.Sprintf("🎂 Торты нужно заказывать минимум за 2 дня. Быстрая доставка невозможна.\nВыберите предзаказ и укажите дату начиная с %s.", suggested),
			conv.Column(conv.Btn("📅 Предзаказ", conv.ActionDeliveryScheduled)),
		))
	}
	if s.Field(fieldClosed) == "true" {
		return r.Reply(ctx, closedReply())
	}
	eta := w.sched.EarliestReady(now, w.opts.MinReady)
	return w.advance(ctx, ev, r, StepComment, map[string]string{
		fieldFast: "true",
		fieldDate: eta.Format(schedule.ISODateLayout),
		fieldTime: eta.Format(schedule.ClockLayout),
	})
}

func (w *Wizard) chooseDate(ctx context.Context, ev *conv.Event, r conv.Responder, s state.Session, text string) error {
	now := w.sched.Current()
	date, err := w.sched.ParseOrderDate(text, now)
	switch {
	case errors.Is(err, schedule.ErrDateFormat):
		return r.Reply(ctx, conv.Text("❌ Неверный формат даты. Введите, например: 06.06 или 06.06.2024"))
	case err != nil:
		return r.Reply(ctx, conv.Text("❌ Неверная дата. Попробуйте ещё раз."))
	}
	snap, _ := s.Payload.(cart.Snapshot)
	if minDate := w.sched.CakeMinDate(now); w.sched.CakeOnly(snap.Categories()) && date.Before(minDate) {
		return r.Reply(ctx, conv.Text(fmt.Sprintf(
			"🎂 Торты нужно заказывать минимум за 2 дня. Пожалуйста, выберите дату не раньше %s",
			minDate.Format(schedule.DateLayout),
		)))
	}
	return w.advance(ctx, ev, r, StepTime, map[string]string{fieldDate: date.Format(schedule.ISODateLayout)})
}

func (w *Wizard) pay(ctx context.Context, ev *conv.Event, r conv.Responder, s state.Session, method string) error {
	switch method {
	case conv.PaymentCard:
		if s.Field(fieldDeliveryType) != record.Pickup {
			_ = r.Notice(ctx, "Оплата картой доступна только при самовывозе.")
			return r.Reply(ctx, conv.Text(
				"💳 Оплата картой доступна только при самовывозе. Пожалуйста, выберите наличные.",
				conv.Column(conv.Btn("💶 Наличные", conv.ActionPayment, conv.PaymentCash)),
			))
		}
		_ = r.Notice(ctx, "Вы выбрали оплату картой 💳")
		return w.finalize(ctx, ev, r, s, record.Card)
	case conv.PaymentCash:
		_ = r.Notice(ctx, "Вы выбрали оплату наличными 💵")
		return w.finalize(ctx, ev, r, s, record.Cash)
	}
	return r.Reply(ctx, w.prompt(s))
}

// Build turns a completed session into an order record.
func (w *Wizard) Build(ev *conv.Event, s state.Session, payment string) record.Order {
	snap, _ := s.Payload.(cart.Snapshot)
	o := record.Order{
		ID:           record.NewID(),
		UserID:       ev.UserID,
		ChatID:       ev.ChatID,
		Username:     ev.Username,
		Name:         s.Field(fieldName),
		Phone:        s.Field(fieldPhone),
		DeliveryType: s.Field(fieldDeliveryType),
		Fast:         s.Field(fieldFast) == "true",
		Time:         s.Field(fieldTime),
		Subtotal:     snap.Subtotal,
		Fee:          snap.Fee,
		Total:        snap.Total,
		OperatorCall: s.Field(fieldOperatorCall) == "true",
		Payment:      payment,
		CreatedAt:    w.sched.Current(),
	}
	if o.DeliveryType == record.Pickup {
		if site, ok := w.site(s.Field(fieldPickupSite)); ok {
			o.PickupSite = site.Title
			o.Address = site.Address
		}
	} else {
		o.Address = s.Field(fieldAddress)
	}
	if d, err := w.sched.ParseISODate(s.Field(fieldDate)); err == nil {
		o.Date = d
	}
	if c := s.Field(fieldComment); !isNo(c) {
		o.Comment = c
	}
	for _, l := range snap.Lines {
		o.Lines = append(o.Lines, record.Line{
			DishID:   l.Dish.ID,
			Title:    l.Dish.Title,
			Modifier: l.Dish.Modifier,
			Category: l.Dish.Category,
			Price:    l.Dish.Price,
			Quantity: l.Quantity,
		})
	}
	return o
}

func (w *Wizard) finalize(ctx context.Context, ev *conv.Event, r conv.Responder, s state.Session, payment string) error {
	o := w.Build(ev, s, payment)
	w.store.End(ev.UserID, conv.ScenarioOrder)
	w.carts.Clear(ev.UserID)

	card := Card(o)
	replyErr := r.Reply(ctx, conv.Reply{
		Text:   "✅ Ваш заказ принят!\n\n" + card + "\n\n🍽 Благодарим за заказ!",
		Format: conv.Markdown,
	})

	if err := w.sink.SubmitOrder(ctx, o); err != nil {
		logger.Error(ctx, logger.ComponentOrder, "order.submit",
			append(logger.ErrAttrs(err, "SINK_FAIL"), slog.String("order_id", o.ID.String()))...,
		)
	}
	logger.Info(ctx, logger.ComponentOrder, "order.finalize",
		slog.String("status", "ok"),
		slog.String("order_id", o.ID.String()),
		slog.String("delivery", o.DeliveryType),
		slog.Bool("fast", o.Fast),
		slog.Int64("total", o.Total),
	)

	if w.feedback != nil {
		if err := w.feedback.Start(ctx, ev, r); err != nil {
			return errors.Join(replyErr, err)
		}
	}
	return replyErr
}

func (w *Wizard) site(arg string) (config.Site, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(w.opts.Sites) {
		return config.Site{}, false
	}
	return w.opts.Sites[n-1], true
}

// prompt is the question asked at the session's current step.
func (w *Wizard) prompt(s state.Session) conv.Reply {
	switch s.Step {
	case StepName:
		return conv.Text("📝 Укажите ваше имя:")
	case StepPhone:
		return conv.Text("📞 Укажите номер телефона (например, 79999999999):")
	case StepDeliveryType:
		return conv.Text("🚚 Выберите тип доставки:", conv.Column(
			conv.Btn("🚗 Доставка", conv.ActionDeliveryType, conv.DeliveryTypeDelivery),
			conv.Btn("🏃‍♂️ Самовывоз", conv.ActionDeliveryType, conv.DeliveryTypePickup),
		))
	case StepAddress:
		return conv.Text("📍 Укажите адрес доставки, подъезд, квартиру, этаж и домофон (при наличии)")
	case StepPickupLocation:
		buttons := make([]conv.Button, 0, len(w.opts.Sites))
		for i, site := range w.opts.Sites {
			buttons = append(buttons, conv.Btn(site.Title, conv.ActionPickup, strconv.Itoa(i+1)))
		}
		return conv.Text("🏠 Выберите адрес самовывоза:", conv.Column(buttons...))
	case StepDeliverySpeed:
		if s.Field(fieldClosed) == "true" {
			return closedReply()
		}
		text := "⏱ Выберите предпочтение по доставке:"
		if s.Field(fieldDeliveryType) == record.Pickup {
			text = "⏱ Когда хотите забрать заказ?"
		}
		return conv.Text(text, conv.Column(
			conv.Btn("🚀 Как можно быстрее", conv.ActionDeliveryFast),
			conv.Btn("📅 Предзаказ", conv.ActionDeliveryScheduled),
		))
	case StepDate:
		return conv.Text("📅 Укажите дату (например, 25.05.2025):")
	case StepTime:
		text := "⏰ Укажите время (например, 18:30):"
		now := w.sched.Current()
		if d, err := w.sched.ParseISODate(s.Field(fieldDate)); err == nil && d.Equal(w.sched.StartOfDay(now)) {
			eta := w.sched.EarliestReady(now, w.opts.ScheduledMinReady)
			text += "\nБлижайшее время на сегодня: " + eta.Format(schedule.ClockLayout)
		}
		return conv.Text(text)
	case StepComment:
		return conv.Text("💬 Есть комментарий к заказу? Если нет, напишите “нет”:")
	case StepOperatorCall:
		return conv.Text("📞 Требуется звонок оператора для подтверждения заказа?", conv.Keyboard{{
			conv.Btn("✅ Да", conv.ActionOperatorCall, conv.AnswerYes),
			conv.Btn("❌ Нет", conv.ActionOperatorCall, conv.AnswerNo),
		}})
	case StepPayment:
		if s.Field(fieldDeliveryType) == record.Pickup {
			return conv.Text("💳 Выберите способ оплаты:", conv.Keyboard{{
				conv.Btn("💳 Карта", conv.ActionPayment, conv.PaymentCard),
				conv.Btn("💶 Наличные", conv.ActionPayment, conv.PaymentCash),
			}})
		}
		return conv.Text("💳 Оплата картой доступна только при самовывозе. Выберите способ оплаты:",
			conv.Column(conv.Btn("💶 Наличные", conv.ActionPayment, conv.PaymentCash)))
	}
	return conv.Text("❓ Пожалуйста, используйте кнопки.")
}

func closedReply() conv.Reply {
	return conv.Text(
		"❌ Сейчас ресторан закрыт. Самовывоз возможен только с начала рабочего дня. Выберите предзаказ.",
		conv.Column(conv.Btn("📅 Предзаказ", conv.ActionDeliveryScheduled)),
	)
}

func isNo(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "" || s == "нет" || s == "-"
}
