package order

import (
	"errors"
	"regexp"
	"strings"
)

// ErrPhone is returned for numbers that are not Russian mobile numbers.
var ErrPhone = errors.New("order: invalid phone")

var (
	nonDigits = regexp.MustCompile(`\D`)
	phoneRe   = regexp.MustCompile(`^(?:[78]\d{10}|9\d{9})$`)
)

// NormalizePhone strips everything but digits and returns "+7XXXXXXXXXX".
// Accepted inputs are 11 digits starting with 7 or 8, or 10 digits starting with 9.
func NormalizePhone(raw string) (string, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if !phoneRe.MatchString(digits) {
		return "", ErrPhone
	}
	switch {
	case strings.HasPrefix(digits, "8"):
		digits = "7" + digits[1:]
	case strings.HasPrefix(digits, "9"):
		digits = "7" + digits
	}
	return "+" + digits, nil
}
