// Package conv holds the transport-neutral types shared by the conversation
// scenarios: inbound events, decoded button actions and outbound replies.
package conv

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/restobot/core/telegram/state"
)

// Scenarios that can own a user.
const (
	ScenarioReservation state.Scenario = "reservation"
	ScenarioOrder       state.Scenario = "order"
	ScenarioOperator    state.Scenario = "operator"
	ScenarioFeedback    state.Scenario = "feedback"
)

// Eviction reasons.
const (
	ReasonCommand  = "command"
	ReasonCallback = "callback"
	ReasonFinished = "finished"
	ReasonClaim    = "claim"
)

// Kind classifies an inbound event.
type Kind int

const (
	KindText Kind = iota
	KindButton
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindCommand:
		return "command"
	default:
		return "text"
	}
}

// Eviction records a scenario that lost the user while an event was routed.
type Eviction struct {
	Scenario state.Scenario
	Reason   string
}

// Event is one inbound update from a user.
type Event struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string
	LastName  string

	Kind Kind
	// Text is the message text; for commands it includes the slash.
	Text string
	// Command is the lower-cased command name without slash or bot suffix.
	Command string
	Action  Action

	evictions []Eviction
}

// NewText classifies text as a command when it starts with a slash.
func NewText(userID, chatID int64, text string) *Event {
	ev := &Event{UserID: userID, ChatID: chatID, Kind: KindText, Text: text}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "/") && len(trimmed) > 1 {
		name := strings.Fields(trimmed)[0][1:]
		name, _, _ = strings.Cut(name, "@")
		ev.Kind = KindCommand
		ev.Command = strings.ToLower(name)
	}
	return ev
}

// NewButton builds a button event.
func NewButton(userID, chatID int64, a Action) *Event {
	return &Event{UserID: userID, ChatID: chatID, Kind: KindButton, Action: a}
}

// Evict records that sc was ended while routing the event.
func (e *Event) Evict(sc state.Scenario, reason string) {
	e.evictions = append(e.evictions, Eviction{Scenario: sc, Reason: reason})
}

// Evictions lists the scenarios ended while routing the event.
func (e *Event) Evictions() []Eviction {
	return append([]Eviction(nil), e.evictions...)
}

// Evicted reports whether sc was ended while routing the event.
func (e *Event) Evicted(sc state.Scenario) bool {
	for _, ev := range e.evictions {
		if ev.Scenario == sc {
			return true
		}
	}
	return false
}

// Author renders "@username" or "ID: <id>" for staff cards.
func (e *Event) Author() string {
	if e.Username != "" {
		return "@" + e.Username
	}
	return fmt.Sprintf("ID: %d", e.UserID)
}

// Format selects the parse mode of a reply.
type Format int

const (
	Plain Format = iota
	Markdown
	HTML
)

// Button is an inline button: either an action or a URL.
type Button struct {
	Text   string
	Action Action
	URL    string
}

// Btn builds an action button.
func Btn(text string, kind ActionKind, arg ...string) Button {
	return Button{Text: text, Action: Act(kind, arg...)}
}

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

// Column places each button on its own row.
func Column(buttons ...Button) Keyboard {
	kb := make(Keyboard, 0, len(buttons))
	for _, b := range buttons {
		kb = append(kb, []Button{b})
	}
	return kb
}

// Grid places up to n buttons per row.
func Grid(n int, buttons ...Button) Keyboard {
	if n < 1 {
		n = 1
	}
	var kb Keyboard
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		kb = append(kb, append([]Button(nil), buttons[i:end]...))
	}
	return kb
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Format   Format
	Keyboard Keyboard
	// NoPreview disables link previews.
	NoPreview bool
}

// Text builds a plain reply with an optional keyboard.
func Text(text string, kb ...Keyboard) Reply {
	r := Reply{Text: text}
	if len(kb) > 0 {
		r.Keyboard = kb[0]
	}
	return r
}

// Responder delivers replies to the user the event came from.
type Responder interface {
	Reply(ctx context.Context, r Reply) error
	// Typing shows the "typing" chat action.
	Typing(ctx context.Context) error
	// Notice answers the pressed button with a short toast.
	Notice(ctx context.Context, text string) error
}

// Outcome is what a scenario did with a text event.
type Outcome int

const (
	// Consumed means the scenario advanced or re-prompted.
	Consumed Outcome = iota
	// NotApplicable means the scenario no longer wants the user.
	NotApplicable
)

func (o Outcome) String() string {
	if o == Consumed {
		return "consumed"
	}
	return "not_applicable"
}
