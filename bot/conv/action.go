package conv

import (
	"sort"
	"strings"
)

// ActionKind is the closed set of buttons the bot understands.
type ActionKind int

const (
	ActionUnknown ActionKind = iota

	ActionCartCheckout
	ActionStartOrder
	ActionDeliveryType
	ActionPickup
	ActionDeliveryFast
	ActionDeliveryScheduled
	ActionOperatorCall
	ActionPayment

	ActionReserveTable
	ActionReserveAddress
	ActionReserveDate
	ActionReserveCancel

	ActionOperatorStart
	ActionOperatorExit

	ActionFeedbackStart
	ActionFeedbackCancel

	ActionMainMenu
	ActionFoodMenu
	ActionCategory
	ActionSubcategory
	ActionAddDish
	ActionCartShow
	ActionCartInc
	ActionCartDec
	ActionCartQty
	ActionCartClear
	ActionShowVideo
	ActionPolicy
)

// Argument values used by the wizards.
const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
	PaymentCard          = "card"
	PaymentCash          = "cash"
	AnswerYes            = "yes"
	AnswerNo             = "no"
)

var actionKeys = map[ActionKind]string{
	ActionCartCheckout:      "cart_checkout",
	ActionStartOrder:        "start_order",
	ActionDeliveryType:      "delivery_type",
	ActionPickup:            "pickup",
	ActionDeliveryFast:      "delivery_fast",
	ActionDeliveryScheduled: "delivery_scheduled",
	ActionOperatorCall:      "operator_call",
	ActionPayment:           "payment",
	ActionReserveTable:      "reserve_table",
	ActionReserveAddress:    "reserve_address",
	ActionReserveDate:       "reserve_date",
	ActionReserveCancel:     "cancel_reserve",
	ActionOperatorStart:     "start_operator_chat",
	ActionOperatorExit:      "exit_operator_chat",
	ActionFeedbackStart:     "start_feedback",
	ActionFeedbackCancel:    "cancel_feedback",
	ActionMainMenu:          "main_menu",
	ActionFoodMenu:          "button_food_clicked",
	ActionCategory:          "category",
	ActionSubcategory:       "subcategory",
	ActionAddDish:           "add",
	ActionCartShow:          "cart_show",
	ActionCartInc:           "cart_inc",
	ActionCartDec:           "cart_dec",
	ActionCartQty:           "cart_qty",
	ActionCartClear:         "cart_clear",
	ActionShowVideo:         "show_video",
	ActionPolicy:            "policy",
}

var (
	kindsByKey = func() map[string]ActionKind {
		out := make(map[string]ActionKind, len(actionKeys)+1)
		for kind, key := range actionKeys {
			out[key] = kind
		}
		out["reserve_exit"] = ActionReserveCancel
		return out
	}()

	// Older keyboards put the argument into the key itself, e.g. "payment_card".
	legacyPrefixes = []struct {
		prefix string
		kind   ActionKind
	}{
		{"delivery_type_", ActionDeliveryType},
		{"operator_call_", ActionOperatorCall},
		{"payment_", ActionPayment},
		{"pickup_", ActionPickup},
		{"reserve_address_", ActionReserveAddress},
		{"reserve_date_", ActionReserveDate},
		{"add_", ActionAddDish},
	}
)

// Action is a decoded button press.
type Action struct {
	Kind ActionKind
	Arg  string
}

// ParseAction decodes a callback key and payload. Unknown keys yield ActionUnknown.
func ParseAction(key, payload string) Action {
	key = strings.TrimSpace(key)
	payload = strings.TrimSpace(payload)
	if kind, ok := kindsByKey[key]; ok {
		return Action{Kind: kind, Arg: payload}
	}
	if payload == "" {
		for _, lp := range legacyPrefixes {
			if arg, ok := strings.CutPrefix(key, lp.prefix); ok && arg != "" {
				return Action{Kind: lp.kind, Arg: arg}
			}
		}
	}
	return Action{Kind: ActionUnknown, Arg: key}
}

// Key is the callback key the action is encoded with.
func (a Action) Key() string {
	return actionKeys[a.Kind]
}

// Is reports whether a is of any of the given kinds.
func (a Action) Is(kinds ...ActionKind) bool {
	for _, k := range kinds {
		if a.Kind == k {
			return true
		}
	}
	return false
}

func (k ActionKind) String() string {
	if key, ok := actionKeys[k]; ok {
		return key
	}
	return "unknown"
}

// Keys lists the callback keys of every known action, sorted.
func Keys() []string {
	out := make([]string, 0, len(actionKeys))
	for _, key := range actionKeys {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Act is shorthand for building an Action.
func Act(kind ActionKind, arg ...string) Action {
	a := Action{Kind: kind}
	if len(arg) > 0 {
		a.Arg = arg[0]
	}
	return a
}
