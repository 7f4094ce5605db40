package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scOrder   Scenario = "order"
	scReserve Scenario = "reservation"
	scChat    Scenario = "operator"
)

func TestStartGetEnd(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get(1, scOrder)
	assert.False(t, ok)

	s := store.Start(1, scOrder, "name", "cart")
	assert.Equal(t, Step("name"), s.Step)
	assert.Equal(t, "cart", s.Payload)

	got, ok := store.Get(1, scOrder)
	require.True(t, ok)
	assert.Equal(t, Step("name"), got.Step)

	assert.True(t, store.End(1, scOrder))
	_, ok = store.Get(1, scOrder)
	assert.False(t, ok, "ended session must stay gone until started again")
	assert.False(t, store.End(1, scOrder))
}

func TestStartReplacesSameScenarioOnly(t *testing.T) {
	store := NewMemoryStore()
	store.Start(1, scOrder, "name", nil)
	_, err := store.Update(1, scOrder, func(s *Session) error {
		s.Fields["name"] = "Ann"
		s.Step = "phone"
		return nil
	})
	require.NoError(t, err)
	store.Start(1, scReserve, "name", nil)

	restarted := store.Start(1, scOrder, "name", nil)
	assert.Empty(t, restarted.Fields)
	assert.ElementsMatch(t, []Scenario{scOrder, scReserve}, store.Active(1))
}

func TestClaimEvictsOtherScenarios(t *testing.T) {
	store := NewMemoryStore()
	store.Start(7, scOrder, "name", nil)
	store.Start(7, scChat, "chat", nil)
	store.Start(8, scOrder, "name", nil)

	_, evicted := store.Claim(7, scReserve, "name", nil)
	assert.Equal(t, []Scenario{scChat, scOrder}, evicted)
	assert.Equal(t, []Scenario{scReserve}, store.Active(7))
	assert.Equal(t, []Scenario{scOrder}, store.Active(8), "other users are untouched")
	assert.Equal(t, map[Scenario]int{scReserve: 1, scOrder: 1}, store.Counts())
}

func TestUpdateIsTransactional(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Update(1, scOrder, func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrNoSession)

	store.Start(1, scOrder, "phone", nil)
	boom := errors.New("invalid")
	_, err = store.Update(1, scOrder, func(s *Session) error {
		s.Step = "delivery_type"
		s.Fields["phone"] = "+7900"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := store.Get(1, scOrder)
	assert.Equal(t, Step("phone"), got.Step)
	assert.Empty(t, got.Field("phone"))
}

func TestReturnedSessionsAreCopies(t *testing.T) {
	store := NewMemoryStore()
	s := store.Start(1, scOrder, "name", nil)
	s.Fields["name"] = "leak"
	s.Step = "payment"

	got, _ := store.Get(1, scOrder)
	assert.Equal(t, Step("name"), got.Step)
	assert.Empty(t, got.Fields)
}

func TestConcurrentClaimsKeepOneOwner(t *testing.T) {
	store := NewMemoryStore()
	scenarios := []Scenario{scOrder, scReserve, scChat}

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Claim(42, scenarios[i%len(scenarios)], "start", nil)
			assert.LessOrEqual(t, len(store.Active(42)), 1)
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.Active(42), 1)
}
