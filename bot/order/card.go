package order

import (
	"fmt"
	"strings"

	"github.com/m3rciful/restobot/bot/record"
	"github.com/m3rciful/restobot/bot/schedule"
	"github.com/m3rciful/restobot/core/telegram/format"
)

// DeliveryLabel renders the delivery type the way staff read it.
func DeliveryLabel(kind string) string {
	if kind == record.Pickup {
		return "Самовывоз"
	}
	return "Доставка"
}

// PaymentLabel renders the payment method.
func PaymentLabel(method string) string {
	switch method {
	case record.Card:
		return "Карта"
	case record.Cash:
		return "Наличные"
	}
	return "не указано"
}

// Card renders an order as a legacy Markdown message for the user and the staff group.
func Card(o record.Order) string {
	var b strings.Builder
	user := "без username"
	if o.Username != "" {
		user = o.Username
	}
	fmt.Fprintf(&b, "🏠 *Новый заказ c Telegram* (@%s)\n\n", format.MD(user))
	fmt.Fprintf(&b, "👤 *Имя:* %s\n", format.MD(o.Name))
	fmt.Fprintf(&b, "📞 *Телефон:* %s\n", o.Phone)
	fmt.Fprintf(&b, "🚚 *Тип:* %s\n", DeliveryLabel(o.DeliveryType))
	date := "не указана"
	if !o.Date.IsZero() {
		date = o.Date.Format(schedule.DateLayout)
	}
	fmt.Fprintf(&b, "📅 *Дата:* %s\n", date)
	fmt.Fprintf(&b, "⏰ *Время:* %s\n", format.MD(o.Time))
	if o.DeliveryType == record.Delivery {
		fmt.Fprintf(&b, "📍 *Адрес:* %s\n", format.MD(o.Address))
	} else {
		fmt.Fprintf(&b, "🏪 *Самовывоз:* %s\n", format.MD(o.Address))
	}

	b.WriteString("\n🛒 *Заказ:*\n")
	for _, l := range o.Lines {
		title := l.Title
		if l.Modifier != "" {
			title += " (" + l.Modifier + ")"
		}
		fmt.Fprintf(&b, "• %s — %d шт. — %d₽\n", format.MD(title), l.Quantity, l.Sum())
	}
	if o.Fee > 0 {
		fmt.Fprintf(&b, "• 💼 Сервисный сбор — %d₽\n", o.Fee)
	}
	fmt.Fprintf(&b, "\n💰 *Итого:* %d₽", o.Total)

	if o.Comment != "" {
		fmt.Fprintf(&b, "\n\n💬 *Комментарий:* %s", format.MD(o.Comment))
	}
	call := "Не требуется"
	if o.OperatorCall {
		call = "Да"
	}
	fmt.Fprintf(&b, "\n📞 *Звонок оператора:* %s", call)
	fmt.Fprintf(&b, "\n💵 *Оплата:* %s", PaymentLabel(o.Payment))
	return b.String()
}
