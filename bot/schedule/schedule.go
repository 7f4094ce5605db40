// Package schedule answers business-hours questions in the restaurant time zone:
// whether the restaurant is open, the earliest ready time of an order and the
// lead time of cake-only carts.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDateFormat reports text that is not a date in an accepted layout.
	ErrDateFormat = errors.New("schedule: unsupported date format")
	// ErrDateInvalid reports a well formed but non-existent calendar date.
	ErrDateInvalid = errors.New("schedule: invalid date")
)

const (
	// DateLayout is the user facing date format.
	DateLayout = "02.01.2006"
	// ISODateLayout is used by the reservation picker and storage.
	ISODateLayout = "2006-01-02"
	// ClockLayout formats wall-clock times.
	ClockLayout = "15:04"
)

var (
	dayMonthYearRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)
	dayMonthRe     = regexp.MustCompile(`^\d{2}\.\d{2}$`)
	isoDateRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hour, Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Clock{}, fmt.Errorf("schedule: clock %q: want HH:MM", s)
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("schedule: clock %q: out of range", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) on(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// Window is one day's opening span. A Close at or before Open rolls over to
// the following day, so "09:00"-"00:00" closes at midnight.
type Window struct {
	Open, Close Clock
}

// Hours is indexed by time.Weekday.
type Hours [7]Window

// ParseHours builds Hours from "HH:MM" pairs keyed by weekday.
// Every weekday must be present.
func ParseHours(spans map[time.Weekday][2]string) (Hours, error) {
	var h Hours
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		span, ok := spans[wd]
		if !ok {
			return Hours{}, fmt.Errorf("schedule: no hours for %s", wd)
		}
		open, err := ParseClock(span[0])
		if err != nil {
			return Hours{}, fmt.Errorf("%s open: %w", wd, err)
		}
		closing, err := ParseClock(span[1])
		if err != nil {
			return Hours{}, fmt.Errorf("%s close: %w", wd, err)
		}
		h[wd] = Window{Open: open, Close: closing}
	}
	return h, nil
}

// Scheduler evaluates business rules against Now. The zero Now uses time.Now.
type Scheduler struct {
	Location     *time.Location
	Hours        Hours
	SlotMinutes  int
	CakeLeadDays int
	// CakeMarker is matched case-insensitively against item categories.
	CakeMarker string
	Now        func() time.Time
}

func (s *Scheduler) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

// Current returns the present instant in the restaurant zone.
func (s *Scheduler) Current() time.Time {
	if s.Now != nil {
		return s.Now().In(s.loc())
	}
	return time.Now().In(s.loc())
}

// window resolves the opening span that starts on day's calendar date.
func (s *Scheduler) window(day time.Time) (time.Time, time.Time) {
	w := s.Hours[day.Weekday()]
	open := w.Open.on(day)
	closing := w.Close.on(day)
	if !closing.After(open) {
		closing = closing.AddDate(0, 0, 1)
	}
	return open, closing
}

// IsOpen reports whether t falls strictly inside an opening span. The span
// opened yesterday is checked as well because it may run past midnight.
func (s *Scheduler) IsOpen(t time.Time) bool {
	t = t.In(s.loc())
	for _, day := range []time.Time{t, t.AddDate(0, 0, -1)} {
		open, closing := s.window(day)
		if t.After(open) && t.Before(closing) {
			return true
		}
	}
	return false
}

// IsOpenNow is IsOpen at the current instant.
func (s *Scheduler) IsOpenNow() bool {
	return s.IsOpen(s.Current())
}

// RoundUp moves t forward to the next slot boundary of the wall clock.
// Times already on a boundary are returned unchanged.
func (s *Scheduler) RoundUp(t time.Time) time.Time {
	slot := s.SlotMinutes
	if slot <= 0 {
		slot = 5
	}
	t = t.In(s.loc())
	y, m, d := t.Date()
	base := time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
	elapsed := t.Sub(base)
	step := time.Duration(slot) * time.Minute
	slots := elapsed / step
	if elapsed%step != 0 {
		slots++
	}
	return base.Add(slots * step)
}

// Clamp moves t into an opening span: before opening it becomes the opening
// time, at or after closing it becomes the next day's opening time.
func (s *Scheduler) Clamp(t time.Time) time.Time {
	t = t.In(s.loc())
	if open, closing := s.window(t.AddDate(0, 0, -1)); !t.Before(open) && t.Before(closing) {
		return t
	}
	open, closing := s.window(t)
	switch {
	case t.Before(open):
		return open
	case !t.Before(closing):
		next, _ := s.window(t.AddDate(0, 0, 1))
		return next
	}
	return t
}

// EarliestReady is now plus minReady, rounded up to a slot and clamped into opening hours.
func (s *Scheduler) EarliestReady(now time.Time, minReady time.Duration) time.Time {
	return s.Clamp(s.RoundUp(now.Add(minReady)))
}

// StartOfDay returns midnight of t's date in the restaurant zone.
func (s *Scheduler) StartOfDay(t time.Time) time.Time {
	t = t.In(s.loc())
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Scheduler) leadDays() int {
	if s.CakeLeadDays <= 0 {
		return 2
	}
	return s.CakeLeadDays
}

// CakeMinDate is the first date a cake-only cart may be fulfilled.
func (s *Scheduler) CakeMinDate(now time.Time) time.Time {
	return s.StartOfDay(now).AddDate(0, 0, s.leadDays())
}

// CakeSuggestion is the date suggested when fast fulfilment of cakes is refused.
func (s *Scheduler) CakeSuggestion(now time.Time) time.Time {
	return now.In(s.loc()).AddDate(0, 0, s.leadDays())
}

// CakeOnly reports whether every category names a cake. An empty list is not cake-only.
func (s *Scheduler) CakeOnly(categories []string) bool {
	if len(categories) == 0 {
		return false
	}
	marker := strings.ToLower(s.CakeMarker)
	if marker == "" {
		marker = "торт"
	}
	for _, c := range categories {
		if !strings.Contains(strings.ToLower(c), marker) {
			return false
		}
	}
	return true
}

// ParseOrderDate accepts "DD.MM.YYYY" or "DD.MM"; the short form takes the
// current year of now.
func (s *Scheduler) ParseOrderDate(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	switch {
	case dayMonthYearRe.MatchString(text):
	case dayMonthRe.MatchString(text):
		text = fmt.Sprintf("%s.%04d", text, now.In(s.loc()).Year())
	default:
		return time.Time{}, ErrDateFormat
	}
	d, err := time.ParseInLocation(DateLayout, text, s.loc())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateInvalid, text)
	}
	return d, nil
}

// ParseISODate accepts "YYYY-MM-DD".
func (s *Scheduler) ParseISODate(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if !isoDateRe.MatchString(text) {
		return time.Time{}, ErrDateFormat
	}
	d, err := time.ParseInLocation(ISODateLayout, text, s.loc())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrDateInvalid, text)
	}
	return d, nil
}

// NextDays returns n consecutive dates starting today.
func (s *Scheduler) NextDays(now time.Time, n int) []time.Time {
	start := s.StartOfDay(now)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, start.AddDate(0, 0, i))
	}
	return days
}
