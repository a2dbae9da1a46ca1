package peruri

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeoutRequired is returned when Call is invoked without a positive timeout.
var ErrTimeoutRequired = errors.New("peruri: call timeout must be positive")

// ErrUnknownEndpoint is returned for endpoints outside the supported set.
var ErrUnknownEndpoint = errors.New("peruri: unknown endpoint")

// AuthTokenError means the gateway refused to issue a JWT for our credentials.
// It signals misconfiguration and is never retryable.
type AuthTokenError struct {
	StatusCode  int
	ResultCode  string
	Description string
}

func (e *AuthTokenError) Error() string {
	if e.ResultCode != "" {
		return fmt.Sprintf("peruri auth token rejected: result %s: %s", e.ResultCode, e.Description)
	}
	return fmt.Sprintf("peruri auth token rejected: http %d", e.StatusCode)
}

// Retryable reports whether the caller may retry.
func (e *AuthTokenError) Retryable() bool { return false }

// GatewayError is a transport-level failure: connection error, non-2xx status
// or a body that is not a valid envelope. StatusCode is 0 when no response arrived.
type GatewayError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("peruri %s: %s", e.Endpoint, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry.
func (e *GatewayError) Retryable() bool { return true }

// GatewayTimeoutError means the gateway did not answer within the caller's budget.
type GatewayTimeoutError struct {
	Endpoint string
	Timeout  time.Duration
	Err      error
}

func (e *GatewayTimeoutError) Error() string {
	return fmt.Sprintf("peruri %s: timed out after %s", e.Endpoint, e.Timeout)
}

func (e *GatewayTimeoutError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry.
func (e *GatewayTimeoutError) Retryable() bool { return true }

// IsRetryable reports whether err is a transient gateway failure. The client
// never retries by itself; this only informs callers that choose to.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}
