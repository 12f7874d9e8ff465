package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Precondition failures. These are raised before any network call and leave
// no side effects behind.
var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a request is already in flight")
	ErrDisconnected = errors.New("api server is unreachable")
	ErrOutOfRange   = errors.New("session index out of range")
	ErrLastSession  = errors.New("cannot delete the last session")
)

// TimeoutError reports that the gateway cancelled an in-flight request after
// its time budget expired.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.Budget)
}

// NetworkError reports a transport-level failure where no response was
// received at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError reports a non-2xx response. Detail carries the server-provided
// error detail when the body had one, otherwise a generic status-text
// message.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
}
