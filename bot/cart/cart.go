// Package cart keeps per-user shopping carts and produces the immutable
// snapshot an order is built from.
package cart

import (
	"errors"
	"sync"

	"github.com/m3rciful/restobot/bot/catalog"
)

// ErrEmptyCart is returned when a snapshot is requested for an empty cart.
var ErrEmptyCart = errors.New("cart: empty")

// Line is one dish with its quantity.
type Line struct {
	Dish     catalog.Dish
	Quantity int
}

// Sum is price times quantity.
func (l Line) Sum() int64 { return l.Dish.Price * int64(l.Quantity) }

// Snapshot is a copy of a cart taken at a point in time.
type Snapshot struct {
	Lines    []Line
	Subtotal int64
	Fee      int64
	Total    int64
}

// Categories lists the category of every line, one entry per line.
func (s Snapshot) Categories() []string {
	out := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, l.Dish.Category)
	}
	return out
}

// Empty reports whether the snapshot has no lines.
func (s Snapshot) Empty() bool { return len(s.Lines) == 0 }

type userCart struct {
	order []string
	lines map[string]*Line
}

// Carts stores carts in memory keyed by user id.
type Carts struct {
	mu    sync.Mutex
	fee   int64
	carts map[int64]*userCart
}

// New builds an empty cart store charging fee on every non-empty order.
func New(fee int64) *Carts {
	return &Carts{fee: fee, carts: make(map[int64]*userCart)}
}

// Fee returns the service fee.
func (c *Carts) Fee() int64 { return c.fee }

// Add puts one more unit of dish into the cart and returns the new quantity.
func (c *Carts) Add(userID int64, dish catalog.Dish) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	uc, ok := c.carts[userID]
	if !ok {
		uc = &userCart{lines: make(map[string]*Line)}
		c.carts[userID] = uc
	}
	line, ok := uc.lines[dish.ID]
	if !ok {
		line = &Line{Dish: dish}
		uc.lines[dish.ID] = line
		uc.order = append(uc.order, dish.ID)
	}
	line.Quantity++
	return line.Quantity
}

// Increase adds one unit of a dish already in the cart.
// It reports false when the dish is not there.
func (c *Carts) Increase(userID int64, dishID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.line(userID, dishID)
	if !ok {
		return 0, false
	}
	line.Quantity++
	return line.Quantity, true
}

// Decrease removes one unit; the line is dropped at zero.
func (c *Carts) Decrease(userID int64, dishID string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, ok := c.line(userID, dishID)
	if !ok {
		return 0, false
	}
	line.Quantity--
	if line.Quantity > 0 {
		return line.Quantity, true
	}
	uc := c.carts[userID]
	delete(uc.lines, dishID)
	for i, id := range uc.order {
		if id == dishID {
			uc.order = append(uc.order[:i], uc.order[i+1:]...)
			break
		}
	}
	if len(uc.order) == 0 {
		delete(c.carts, userID)
	}
	return 0, true
}

func (c *Carts) line(userID int64, dishID string) (*Line, bool) {
	uc, ok := c.carts[userID]
	if !ok {
		return nil, false
	}
	line, ok := uc.lines[dishID]
	return line, ok
}

// Clear empties the user's cart.
func (c *Carts) Clear(userID int64) {
	c.mu.Lock()
	delete(c.carts, userID)
	c.mu.Unlock()
}

// Lines returns the cart content in insertion order.
func (c *Carts) Lines(userID int64) []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines(userID)
}

func (c *Carts) lines(userID int64) []Line {
	uc, ok := c.carts[userID]
	if !ok {
		return nil
	}
	out := make([]Line, 0, len(uc.order))
	for _, id := range uc.order {
		out = append(out, *uc.lines[id])
	}
	return out
}

// Subtotal is the sum of all lines without the fee.
func (c *Carts) Subtotal(userID int64) int64 {
	return subtotal(c.Lines(userID))
}

// Total is the subtotal plus the service fee, or zero for an empty cart.
func (c *Carts) Total(userID int64) int64 {
	lines := c.Lines(userID)
	if len(lines) == 0 {
		return 0
	}
	return subtotal(lines) + c.fee
}

// Snapshot copies the cart. ErrEmptyCart is returned when there is nothing to order.
func (c *Carts) Snapshot(userID int64) (Snapshot, error) {
	c.mu.Lock()
	lines := c.lines(userID)
	c.mu.Unlock()

	if len(lines) == 0 {
		return Snapshot{}, ErrEmptyCart
	}
	sub := subtotal(lines)
	return Snapshot{Lines: lines, Subtotal: sub, Fee: c.fee, Total: sub + c.fee}, nil
}

func subtotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.Sum()
	}
	return sum
}
