package github

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotAccessible marks a repository or descriptor that is confirmed gone:
// deleted, private, or missing on every candidate branch. It is terminal for
// the repository in question and never aborts a batch.
var ErrNotAccessible = errors.New("repository not accessible")

// RateLimitError is returned when the API refuses a request because the rate
// budget is exhausted. Reset is the server-reported time at which the budget
// replenishes.
type RateLimitError struct {
	Reset time.Time
}

// Error returns the error message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited until %s", e.Reset.Format(time.RFC3339))
}

// HTTPError represents a non-2xx API response.
type HTTPError struct {
	StatusCode int
	URL        string
	Message    string
}

// Error returns the error message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
