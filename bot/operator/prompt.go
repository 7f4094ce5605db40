package operator

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/restobot/bot/config"
	"github.com/m3rciful/restobot/bot/schedule"
)

var weekdayNames = [7]string{"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота"}

// Preamble holds the restaurant facts given to the model.
type Preamble struct {
	Name  string
	Sites []config.Site
	Hours schedule.Hours
	Info  string
}

// Build renders the system prompt for a request made at now.
// menu is the catalog digest, one dish per line.
func (p Preamble) Build(now time.Time, menu string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Время запроса: %s\n\n", now.Format("02.01.2006, 15:04:05"))

	b.WriteString("# Роль ассистента\n")
	fmt.Fprintf(&b, "Ты — профессиональный AI-ассистент ресторана «%s». ", p.Name)
	b.WriteString("Твоя задача — вежливо и чётко консультировать клиентов по меню, помогать выбрать блюда, " +
		"делать апсейл строго по меню и отвечать на вопросы о ресторане.\n\n")

	b.WriteString("Меню:\n")
	b.WriteString(strings.TrimSpace(menu))
	b.WriteString("\n\n")

	b.WriteString("# Данные о ресторане\n")
	fmt.Fprintf(&b, "Рестораны «%s» находятся по адресам:\n", p.Name)
	for i, s := range p.Sites {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Title)
	}
	b.WriteString("\n🕒 График работы:\n")
	for _, wd := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday} {
		w := p.Hours[wd]
		fmt.Fprintf(&b, "— %s: %02d:%02d–%02d:%02d\n", weekdayNames[wd], w.Open.Hour, w.Open.Minute, w.Close.Hour, w.Close.Minute)
	}
	if info := strings.TrimSpace(p.Info); info != "" {
		b.WriteString("\n")
		b.WriteString(info)
		b.WriteString("\n")
	}

	b.WriteString(`
# Стиль общения
- Вежливый, профессиональный, но тёплый
- Используй смайлики в меру
- Блюда обязательно нумеруй

# Цель
- Помочь клиенту сделать осознанный выбор
- Повысить ценность заказа через рекомендации
- Отвечать на любые вопросы, связанные с меню и рестораном
- Если не понимаешь запрос — ответь: "Уточните, пожалуйста!"
- Если гость выбрал какое-то блюдо, подскажи как его заказать через меню

# Запрещено
- Не записывать и не оформлять заказы
- Не выдумывать блюда, ингредиенты или цены
- Не собирать адреса, телефоны и т.п.
- Не говорить о доставке или самовывозе — ты консультируешь, но не обслуживаешь`)
	return b.String()
}
