package state

import (
	"sort"
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]map[Scenario]*Session
}

// NewMemoryStore constructs an in-memory Store keyed by user ID.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]map[Scenario]*Session),
	}
}

func newSession(userID int64, sc Scenario, step Step, payload any) *Session {
	return &Session{
		UserID:   userID,
		Scenario: sc,
		Step:     step,
		Fields:   make(map[string]string),
		Payload:  payload,
	}
}

// Start creates a fresh session for the scenario, dropping a previous one of the same kind.
func (m *memoryStore) Start(userID int64, sc Scenario, step Step, payload any) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	byScenario, ok := m.sessions[userID]
	if !ok {
		byScenario = make(map[Scenario]*Session)
		m.sessions[userID] = byScenario
	}
	s := newSession(userID, sc, step, payload)
	byScenario[sc] = s
	return s.clone()
}

// Claim makes sc the only live scenario of the user.
func (m *memoryStore) Claim(userID int64, sc Scenario, step Step, payload any) (Session, []Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []Scenario
	for other := range m.sessions[userID] {
		if other != sc {
			evicted = append(evicted, other)
		}
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i] < evicted[j] })

	s := newSession(userID, sc, step, payload)
	m.sessions[userID] = map[Scenario]*Session{sc: s}
	return s.clone(), evicted
}

// Get returns a copy of the user's session for the scenario.
func (m *memoryStore) Get(userID int64, sc Scenario) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[userID][sc]
	if !ok {
		return Session{}, false
	}
	return s.clone(), true
}

// Update runs fn against a working copy and commits it when fn succeeds.
func (m *memoryStore) Update(userID int64, sc Scenario, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID][sc]
	if !ok {
		return Session{}, ErrNoSession
	}
	work := s.clone()
	if err := fn(&work); err != nil {
		return s.clone(), err
	}
	work.UserID, work.Scenario = userID, sc
	*s = work
	return work.clone(), nil
}

// End removes the session; the user entry is dropped once empty.
func (m *memoryStore) End(userID int64, sc Scenario) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	byScenario, ok := m.sessions[userID]
	if !ok {
		return false
	}
	if _, ok := byScenario[sc]; !ok {
		return false
	}
	delete(byScenario, sc)
	if len(byScenario) == 0 {
		delete(m.sessions, userID)
	}
	return true
}

// Active lists the user's live scenarios sorted by name.
func (m *memoryStore) Active(userID int64) []Scenario {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Scenario, 0, len(m.sessions[userID]))
	for sc := range m.sessions[userID] {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Counts aggregates live sessions per scenario.
func (m *memoryStore) Counts() map[Scenario]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[Scenario]int)
	for _, byScenario := range m.sessions {
		for sc := range byScenario {
			out[sc]++
		}
	}
	return out
}
