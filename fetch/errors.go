package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// NoDataError means pagination finished without a single record; the run
// cannot continue.
type NoDataError struct {
	Category string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no records fetched for category %q", e.Category)
}

// StatusError is a non-2xx application response. It is never retried: a 404
// ends pagination, any other code skips the page.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Code, e.URL)
}

// PayloadError is a malformed response body. Retrying would fetch the same
// bytes, so the page is skipped instead.
type PayloadError struct {
	Page int
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("page %d payload parse: %v", e.Page, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// isTransient classifies an error as a network/timeout-class failure worth
// retrying. Application status errors, malformed payloads and context
// cancellation are not.
func isTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return false
	}
	var pe *PayloadError
	if errors.As(err, &pe) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// url.Error wrapping a closed connection, DNS failure etc. also lands
	// here: anything that is not classified above came from the transport.
	return true
}
