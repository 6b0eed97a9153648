package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected is returned when operation requires connection
	ErrNotConnected = errors.New("not connected to chat platform")

	// ErrAuthenticationFailed is returned when the user session cannot be authorized
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrChatNotFound is returned when a chat was never listed or cannot be resolved
	ErrChatNotFound = errors.New("chat not found")

	// ErrNoAccess is returned when the sending bot cannot reach the chat
	ErrNoAccess = errors.New("no access to chat")
)

// RateLimitError is a platform flood signal carrying the mandated wait
type RateLimitError struct {
	RetryAfter time.Duration
	Op         string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Op, e.RetryAfter)
}

// RetryAfter extracts the mandated wait from a rate-limit error
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
