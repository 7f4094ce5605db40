package record

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &Recording{}
	boom := errors.New("db down")
	failing := &Recording{Err: boom}

	f := Fanout{failing, ok}
	err := f.SubmitOrder(context.Background(), Order{ID: NewID(), Name: "Ann"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.Orders, 1)
	assert.Len(t, failing.Orders, 1)

	assert.NoError(t, Fanout{ok}.SubmitReservation(context.Background(), Reservation{Guests: 2}))
	assert.NoError(t, Fanout{ok}.SubmitFeedback(context.Background(), Feedback{Text: "ok"}))
	assert.Len(t, ok.Reservations, 1)
	assert.Len(t, ok.Feedback, 1)
}

func TestLineSum(t *testing.T) {
	assert.EqualValues(t, 900, Line{Price: 450, Quantity: 2}.Sum())
}
