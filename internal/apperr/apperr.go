// Package apperr defines the error types shared across services and mapped
// to HTTP responses by the handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the base sentinel for missing records; wrap with NotFound
// for a typed message.
var ErrNotFound = errors.New("not found")

// ErrEscrowDivergence signals that a release or refund found less in escrow
// than the request's recorded amount. The books are wrong; nothing is moved.
var ErrEscrowDivergence = errors.New("escrow balance diverges from request amount")

// NotFoundError reports a missing record by kind.
type NotFoundError struct {
	Kind string
}

func (e *NotFoundError) Error() string { return e.Kind + " not found" }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError for the given record kind.
func NotFound(kind string) error { return &NotFoundError{Kind: kind} }

// ValidationError reports malformed or rule-violating input. Fields maps a
// field name to what is wrong with it.
type ValidationError struct {
	Msg    string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Msg
	}
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+": "+v)
	}
	return e.Msg + " (" + strings.Join(parts, "; ") + ")"
}

// Validation builds a ValidationError with a message only.
func Validation(msg string) error { return &ValidationError{Msg: msg} }

// ValidationFields builds a ValidationError with per-field detail.
func ValidationFields(msg string, fields map[string]string) error {
	return &ValidationError{Msg: msg, Fields: fields}
}

// PermissionError reports that the caller may not perform the action on this
// record.
type PermissionError struct {
	Msg string
}

func (e *PermissionError) Error() string { return e.Msg }

// Permission builds a PermissionError.
func Permission(msg string) error { return &PermissionError{Msg: msg} }

// StateError reports an attempted transition not allowed from the record's
// current status.
type StateError struct {
	Current   string
	Attempted string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a request in status %q", e.Attempted, e.Current)
}

// InsufficientCreditsError reports that a debit would overdraw the balance.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Available)
}

// AlreadyProcessedError reports a duplicate of an operation that already ran
// to completion, such as a second feedback submission or a repeated refund.
type AlreadyProcessedError struct {
	Msg string
}

func (e *AlreadyProcessedError) Error() string { return e.Msg }

// AlreadyProcessed builds an AlreadyProcessedError.
func AlreadyProcessed(msg string) error { return &AlreadyProcessedError{Msg: msg} }
