// Package netutil sorts Telegram API failures into classes that drive retries.
package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Class names a failure family. It is logged as error_kind.
type Class string

const (
	ClassNone       Class = ""
	ClassFlood      Class = "flood"
	ClassBlocked    Class = "blocked"
	ClassBadRequest Class = "bad_request"
	ClassAuth       Class = "auth"
	ClassServer     Class = "server"
	ClassTimeout    Class = "timeout"
	ClassNetwork    Class = "network"
	ClassCanceled   Class = "canceled"
	ClassUnknown    Class = "unknown"
)

// Retryable reports whether another attempt may succeed.
func (c Class) Retryable() bool {
	switch c {
	case ClassFlood, ClassServer, ClassTimeout, ClassNetwork:
		return true
	}
	return false
}

// Classify maps err onto a Class. Telegram answers are checked before
// transport errors because telebot wraps both into plain errors.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	if errors.Is(err, context.Canceled) {
		return ClassCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return ClassFlood
	}
	if code := StatusCode(err); code != 0 {
		return classifyStatus(code)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}
	return ClassUnknown
}

func classifyStatus(code int) Class {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassFlood
	case code == http.StatusForbidden:
		return ClassBlocked
	case code == http.StatusUnauthorized:
		return ClassAuth
	case code >= 500:
		return ClassServer
	case code >= 400:
		return ClassBadRequest
	}
	return ClassUnknown
}

// StatusCode extracts the Bot API error code, or 0 when err is not an API answer.
func StatusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var group tele.GroupError
	if errors.As(err, &group) {
		return http.StatusBadRequest
	}
	// Unlisted API errors come back as "telegram: <description> (<code>)".
	msg := err.Error()
	if !strings.HasPrefix(msg, "telegram: ") || !strings.HasSuffix(msg, ")") {
		return 0
	}
	open := strings.LastIndex(msg, "(")
	if open < 0 {
		return 0
	}
	code, convErr := strconv.Atoi(msg[open+1 : len(msg)-1])
	if convErr != nil {
		return 0
	}
	return code
}

// RetryAfter returns the wait Telegram asked for on a flood error.
func RetryAfter(err error) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return 0
}

// Unsent reports whether err happened before the request left the host, so
// resending it cannot duplicate a message.
func Unsent(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Redact renders err with bot tokens masked.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
