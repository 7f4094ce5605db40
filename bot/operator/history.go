package operator

import (
	"context"
	"sync"
)

// Role of a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the operator conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History stores the recent turns of each user's operator conversation.
type History interface {
	Load(ctx context.Context, userID int64) ([]Turn, error)
	Save(ctx context.Context, userID int64, turns []Turn) error
	Clear(ctx context.Context, userID int64) error
}

// Trim keeps the last max turns.
func Trim(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	return append([]Turn(nil), turns[len(turns)-max:]...)
}

// MemoryHistory keeps histories in process memory.
type MemoryHistory struct {
	mu    sync.Mutex
	turns map[int64][]Turn
}

// NewMemoryHistory returns an empty in-memory store.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{turns: make(map[int64][]Turn)}
}

func (m *MemoryHistory) Load(_ context.Context, userID int64) ([]Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.turns[userID]...), nil
}

func (m *MemoryHistory) Save(_ context.Context, userID int64, turns []Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[userID] = append([]Turn(nil), turns...)
	return nil
}

func (m *MemoryHistory) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.turns, userID)
	m.mu.Unlock()
	return nil
}
