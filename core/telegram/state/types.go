package state

import "errors"

// Scenario names a conversation flow that can own a user.
type Scenario string

// Step identifies a node of a scenario's state machine.
type Step string

// ErrNoSession is returned by Update when the user holds no session for the scenario.
var ErrNoSession = errors.New("state: no session")

// Session is a snapshot of one scenario's state for one user.
// Values returned by a Store are copies; mutate them through Update.
type Session struct {
	UserID   int64
	Scenario Scenario
	Step     Step
	// Fields holds validated answers keyed by field name.
	Fields map[string]string
	// Payload carries scenario data that is immutable for the session lifetime.
	Payload any
}

// Field returns a collected value or "" when absent.
func (s Session) Field(name string) string {
	return s.Fields[name]
}

func (s Session) clone() Session {
	out := s
	out.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = v
	}
	return out
}

// Store is the session registry contract.
type Store interface {
	// Start creates a session, replacing any live session of the same scenario.
	Start(userID int64, sc Scenario, step Step, payload any) Session
	// Claim is Start that also ends all other scenarios of the user, returning them.
	Claim(userID int64, sc Scenario, step Step, payload any) (Session, []Scenario)
	Get(userID int64, sc Scenario) (Session, bool)
	// Update applies fn to the live session under the store lock.
	// The change is discarded when fn returns an error.
	Update(userID int64, sc Scenario, fn func(*Session) error) (Session, error)
	// End removes the session and reports whether one existed.
	End(userID int64, sc Scenario) bool
	// Active lists the user's live scenarios in no particular order.
	Active(userID int64) []Scenario
	// Counts returns the number of live sessions per scenario.
	Counts() map[Scenario]int
}
