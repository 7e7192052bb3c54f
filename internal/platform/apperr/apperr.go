// Package apperr defines the closed error taxonomy of spec §7 and the
// retry/failover propagation policy that every component in the
// ingestion path agrees on. It wraps errors with Go 1.13 %w chaining
// rather than pulling in a third-party error library — the taxonomy is
// a small closed sum type that a plain switch exhausts completely, and
// errors.As/errors.Is already cover everything callers need.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the closed set of error categories from spec §7.
type Code string

const (
	CodeValidation         Code = "validation"
	CodeAuthentication     Code = "authentication"
	CodeRateLimited        Code = "rate_limited"
	CodeProviderTimeout    Code = "provider_timeout"
	CodeProviderServer     Code = "provider_server_error"
	CodeProviderClient     Code = "provider_client_error"
	CodeNotFound           Code = "not_found"
	CodeCancelled          Code = "cancelled"
	CodePrecisionLoss      Code = "precision_loss"
	CodeInternal           Code = "internal"
)

// Error is the engine's wire-format error: a closed code, a message,
// and an optional cause chain.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that chains to cause via %w semantics.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// As extracts an *Error from err's chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Retryable reports whether this error class should be retried with
// backoff before failing over to the next provider (spec §7's
// propagation policy): rate limiting, timeouts, and 5xx provider
// errors are retryable; everything else is not.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeProviderTimeout, CodeProviderServer:
		return true
	default:
		return false
	}
}

// Fatal reports whether this error should quarantine the provider for
// the remainder of the session (authentication failures) rather than
// merely triggering a retry or an ordinary failover.
func (e *Error) Fatal() bool {
	return e.Code == CodeAuthentication
}

// IsRetryable is a convenience wrapper over As+Retryable for callers
// holding a plain error.
func IsRetryable(err error) bool {
	e, ok := As(err)
	return ok && e.Retryable()
}

// IsFatal is a convenience wrapper over As+Fatal.
func IsFatal(err error) bool {
	e, ok := As(err)
	return ok && e.Fatal()
}
