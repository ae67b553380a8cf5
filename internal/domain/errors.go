package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ConfigError reports an invalid or missing construction parameter. It is
// raised synchronously at construction time, never during delivery.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// TimeoutError reports a delivery attempt that exceeded its per-attempt
// deadline without receiving a response. Always retryable.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("delivery attempt timed out after %s", e.Timeout)
}

// StatusError reports a non-2xx HTTP response from the collector. It is
// the only error kind that can be non-retryable: retrying is futile for
// 4xx responses other than 429.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector returned status %d", e.Code)
}

// NetworkError reports a transport-level failure (connection refused,
// DNS, reset) where no HTTP response was received. Always retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network failure: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ExhaustedError reports that every retry attempt for one event was
// consumed without success. It wraps the last observed attempt error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("delivery failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsRetryable classifies a delivery attempt failure. Classification is
// strictly type-based: only an actual HTTP response (StatusError) can be
// non-retryable; anything that never produced a response is transient.
// Unknown error kinds (marshal failures, cancelled contexts) are not
// retried.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
