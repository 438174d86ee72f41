// Package resilience implements the retry, fallback, and circuit-breaker
// primitives requires of every call into an external
// collaborator (Kanban, LLM refiner) or the persistence backends.
package resilience

import "errors"

// ErrBreakerOpen is returned when a circuit breaker rejects a call because
// it is in the open state and recovery_timeout has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: circuit breaker open")

// ErrStorageFailure wraps a persistence backend error surfaced through the
// fallback wrapper. Per it is logged, not propagated, by callers
// that wrap storage in Fallback; it exists as a type so those callers can
// still recognize and log it distinctly from other errors.
type ErrStorageFailure struct {
	Collection string
	Err        error
}

func (e *ErrStorageFailure) Error() string {
	return "resilience: storage failure on " + e.Collection + ": " + e.Err.Error()
}

func (e *ErrStorageFailure) Unwrap() error { return e.Err }

// ErrRemoteUnavailable is surfaced once a RemoteTransient failure exhausts
// its retry budget.
type ErrRemoteUnavailable struct {
	Target string
	Err    error
}

func (e *ErrRemoteUnavailable) Error() string {
	return "resilience: " + e.Target + " unavailable after retries: " + e.Err.Error()
}

func (e *ErrRemoteUnavailable) Unwrap() error { return e.Err }
