// Package apperrors implements the error taxonomy shared by every layer of
// the crawler: a single sum-typed Error carrying a Kind, a retryability
// flag, and an optional retry hint, instead of ad hoc fmt.Errorf chains.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind enumerates the error taxonomy of the crawl pipeline.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindStateViolation  Kind = "state_violation"
	KindDuplicate       Kind = "duplicate"
	KindRateLimit       Kind = "rate_limit"
	KindExternalService Kind = "external_service"
	KindDatabase        Kind = "database"
	KindTimeout         Kind = "timeout"
	KindApplication     Kind = "application"
	KindUnexpected      Kind = "unexpected"
)

// retryableKinds mirrors the table in the error handling design: only
// these kinds are retried, and each has its own backoff schedule.
var retryableKinds = map[Kind]bool{
	KindRateLimit:       true,
	KindExternalService: true,
	KindDatabase:        true,
	KindApplication:     true,
	KindUnexpected:      true,
}

// Error is the single exported error type used across the crawler.
type Error struct {
	Kind       Kind
	Message    string
	Retryable  bool
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind, defaulting Retryable from the
// taxonomy table.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryableKinds[kind]}
}

// Wrap builds an Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryableKinds[kind], Err: err}
}

// WithRetryAfter attaches a retry-after hint (used by rate_limit errors).
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// Is reports a match when target is an *Error of the same Kind, so
// errors.Is(err, apperrors.New(apperrors.KindNotFound, "")) matches any not-found error.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// IsRetryable reports whether err should be retried per the taxonomy.
// An error that is not an *Error is classed as KindUnexpected, as in KindOf.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return retryableKinds[KindUnexpected]
}

// RetryDelay computes the backoff delay for attempt index k (0-based) per kind.
func RetryDelay(kind Kind, k int) time.Duration {
	switch kind {
	case KindRateLimit:
		return time.Duration(900+300*k) * time.Second
	case KindExternalService:
		return capDuration(60*pow2(k), 300) * time.Second
	case KindDatabase:
		return capDuration(30*pow2(k), 120) * time.Second
	case KindApplication:
		return capDuration(60*pow2(k), 180) * time.Second
	default:
		return capDuration(120*pow2(k), 600) * time.Second
	}
}

func pow2(k int) int64 {
	if k < 0 {
		return 1
	}
	result := int64(1)
	for i := 0; i < k; i++ {
		result *= 2
	}
	return result
}

func capDuration(v int64, max int64) time.Duration {
	if v > max {
		return time.Duration(max)
	}
	return time.Duration(v)
}

// MaxAttempts returns the maximum retry attempts per task kind.
func MaxAttempts(taskKind string) int {
	switch taskKind {
	case "crawl":
		return 3
	case "cleanup":
		return 2
	case "health":
		return 1
	default:
		return 1
	}
}
