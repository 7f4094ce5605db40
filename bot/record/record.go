// Package record defines the finished artefacts of the scenarios and the
// sink contract they are handed to.
package record

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Delivery types.
const (
	Delivery = "delivery"
	Pickup   = "pickup"
)

// Payment methods.
const (
	Card = "card"
	Cash = "cash"
)

// Line is one ordered dish.
type Line struct {
	DishID   string `json:"dish_id"`
	Title    string `json:"title"`
	Modifier string `json:"modifier,omitempty"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Sum is price times quantity.
func (l Line) Sum() int64 { return l.Price * int64(l.Quantity) }

// Order is a finalized order.
type Order struct {
	ID       uuid.UUID
	UserID   int64
	ChatID   int64
	Username string

	Name  string
	Phone string
	// DeliveryType is Delivery or Pickup.
	DeliveryType string
	// Address is the delivery address or the pickup site address.
	Address    string
	PickupSite string
	Fast       bool
	Date       time.Time
	Time       string

	Lines    []Line
	Subtotal int64
	Fee      int64
	Total    int64

	// Comment is empty when the user declined to leave one.
	Comment      string
	OperatorCall bool
	Payment      string
	CreatedAt    time.Time
}

// Reservation is a finalized table booking.
type Reservation struct {
	ID       uuid.UUID
	UserID   int64
	ChatID   int64
	Username string

	Name    string
	Phone   string
	Site    string
	Address string
	Date    time.Time
	Time    string
	Guests  int
	Comment string

	CreatedAt time.Time
}

// Feedback is free text left by a user.
type Feedback struct {
	ID        uuid.UUID
	UserID    int64
	Username  string
	Author    string
	Text      string
	CreatedAt time.Time
}

// Message is one logged chat message, inbound or outbound.
type Message struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	FromBot   bool
	Text      string
	At        time.Time
}

// Sink receives finished records. Implementations may be asynchronous.
type Sink interface {
	SubmitOrder(ctx context.Context, o Order) error
	SubmitReservation(ctx context.Context, r Reservation) error
	SubmitFeedback(ctx context.Context, f Feedback) error
}

// MessageLogger stores chat history.
type MessageLogger interface {
	LogMessage(ctx context.Context, m Message) error
}

// NewID returns a fresh record id.
func NewID() uuid.UUID { return uuid.New() }

// Fanout delivers every record to all sinks and joins their errors.
type Fanout []Sink

var _ Sink = Fanout(nil)

func (f Fanout) SubmitOrder(ctx context.Context, o Order) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SubmitOrder(ctx, o))
	}
	return errors.Join(errs...)
}

func (f Fanout) SubmitReservation(ctx context.Context, r Reservation) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SubmitReservation(ctx, r))
	}
	return errors.Join(errs...)
}

func (f Fanout) SubmitFeedback(ctx context.Context, fb Feedback) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.SubmitFeedback(ctx, fb))
	}
	return errors.Join(errs...)
}

// Recording is an in-memory Sink, mostly for tests and offline runs.
type Recording struct {
	Orders       []Order
	Reservations []Reservation
	Feedback     []Feedback
	// Err is returned from every submission when set.
	Err error
}

var _ Sink = (*Recording)(nil)

func (r *Recording) SubmitOrder(_ context.Context, o Order) error {
	r.Orders = append(r.Orders, o)
	return r.Err
}

func (r *Recording) SubmitReservation(_ context.Context, res Reservation) error {
	r.Reservations = append(r.Reservations, res)
	return r.Err
}

func (r *Recording) SubmitFeedback(_ context.Context, f Feedback) error {
	r.Feedback = append(r.Feedback, f)
	return r.Err
}
