// Package keyboard builds Telebot inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is one inline button. URL buttons ignore Unique and Data.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

// InlineRows builds inline markup from rows of buttons. It returns nil when
// there is nothing to show so callers can pass the result straight to Send.
func InlineRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	out := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		btns := make([]tele.Btn, 0, len(row))
		for _, b := range row {
			btns = append(btns, btn(markup, b))
		}
		out = append(out, markup.Row(btns...))
	}
	markup.Inline(out...)
	return markup
}

func btn(markup *tele.ReplyMarkup, b InlineBtn) tele.Btn {
	switch {
	case b.URL != "":
		return markup.URL(b.Text, b.URL)
	case b.Data == "":
		return markup.Data(b.Text, b.Unique)
	}
	return markup.Data(b.Text, b.Unique, b.Data)
}
