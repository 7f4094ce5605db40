package guard

import (
	"github.com/m3rciful/restobot/bot/conv"
	"github.com/m3rciful/restobot/core/telegram/state"
)

var leftText = map[state.Scenario]string{
	conv.ScenarioReservation: "❌ Вы вышли из бронирования.",
	conv.ScenarioOrder:       "❌ Оформление заказа отменено.",
	conv.ScenarioFeedback:    "Отзыв отменён. Если передумаете — напишите снова!",
}

// CancelReplies describes what a /cancel ended. The operator chat is
// described by its own eviction notice and is not repeated here.
func CancelReplies(ev *conv.Event) []string {
	var out []string
	for _, e := range ev.Evictions() {
		if text, ok := leftText[e.Scenario]; ok {
			out = append(out, text)
		}
	}
	return out
}
