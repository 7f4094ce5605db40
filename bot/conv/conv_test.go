package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		key, payload string
		want         Action
	}{
		{"delivery_type", "pickup", Action{Kind: ActionDeliveryType, Arg: "pickup"}},
		{"delivery_type_delivery", "", Action{Kind: ActionDeliveryType, Arg: "delivery"}},
		{"payment_card", "", Action{Kind: ActionPayment, Arg: "card"}},
		{"operator_call_no", "", Action{Kind: ActionOperatorCall, Arg: "no"}},
		{"pickup_2", "", Action{Kind: ActionPickup, Arg: "2"}},
		{"reserve_date_2025-07-13", "", Action{Kind: ActionReserveDate, Arg: "2025-07-13"}},
		{"delivery_fast", "", Action{Kind: ActionDeliveryFast}},
		{"reserve_exit", "", Action{Kind: ActionReserveCancel}},
		{"cart_inc", "dish_3", Action{Kind: ActionCartInc, Arg: "dish_3"}},
		{"something_else", "", Action{Kind: ActionUnknown, Arg: "something_else"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAction(tt.key, tt.payload))
		})
	}
}

func TestActionKeyIsStable(t *testing.T) {
	a := Act(ActionPickup, "1")
	assert.Equal(t, "pickup", a.Key())
	assert.Equal(t, a, ParseAction(a.Key(), a.Arg))
	assert.Equal(t, "cancel_reserve", ActionReserveCancel.String())
	assert.True(t, a.Is(ActionPayment, ActionPickup))
	assert.False(t, a.Is(ActionPayment))
}

func TestNewTextDetectsCommands(t *testing.T) {
	ev := NewText(1, 1, "/Start@restobot now")
	assert.Equal(t, KindCommand, ev.Kind)
	assert.Equal(t, "start", ev.Command)

	ev = NewText(1, 1, "привет")
	assert.Equal(t, KindText, ev.Kind)
	assert.Empty(t, ev.Command)

	assert.Equal(t, KindText, NewText(1, 1, "/").Kind)
}

func TestEvictions(t *testing.T) {
	ev := NewButton(1, 1, Act(ActionFoodMenu))
	assert.Empty(t, ev.Evictions())
	ev.Evict(ScenarioReservation, ReasonCallback)
	assert.True(t, ev.Evicted(ScenarioReservation))
	assert.False(t, ev.Evicted(ScenarioOrder))
	assert.Equal(t, []Eviction{{Scenario: ScenarioReservation, Reason: ReasonCallback}}, ev.Evictions())
}

func TestGrid(t *testing.T) {
	kb := Grid(2, Btn("a", ActionMainMenu), Btn("b", ActionMainMenu), Btn("c", ActionMainMenu))
	assert.Len(t, kb, 2)
	assert.Len(t, kb[1], 1)
	assert.Len(t, Column(Btn("a", ActionMainMenu), Btn("b", ActionMainMenu)), 2)
}

func TestAuthor(t *testing.T) {
	assert.Equal(t, "@ann", (&Event{Username: "ann"}).Author())
	assert.Equal(t, "ID: 7", (&Event{UserID: 7}).Author())
}
