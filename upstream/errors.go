package upstream

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the circuit is open and no cached value of
// any freshness exists for the key. Safe call sites receive the empty result
// instead.
var ErrUnavailable = errors.New("upstream: unavailable, rate-limit circuit open")

// ThrottleError marks an explicit HTTP 429 from the upstream. It is a
// first-class signal: it feeds the circuit window and is the only error
// class the backoff loop retries.
type ThrottleError struct {
	Endpoint string
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("upstream: throttled (429) on %s", e.Endpoint)
}

// IsThrottle reports whether err is (or wraps) a ThrottleError.
func IsThrottle(err error) bool {
	var te *ThrottleError
	return errors.As(err, &te)
}

// StatusError is a non-200, non-429 HTTP response.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s returned HTTP %d", e.Endpoint, e.Code)
}

// APIError is a 200 response whose payload carries an upstream-reported
// error block instead of data.
type APIError struct {
	Endpoint string
	Detail   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream: %s reported error: %s", e.Endpoint, e.Detail)
}
