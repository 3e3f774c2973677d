package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the HTTP boundary.
type ErrorKind string

const (
	KindUpstream   ErrorKind = "upstream"
	KindAuth       ErrorKind = "auth"
	KindValidation ErrorKind = "validation"
	KindState      ErrorKind = "state"
	KindNotFound   ErrorKind = "not_found"
)

// Error is a classified failure. Cause is kept for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Upstream wraps a banking or billing API failure.
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstream, Message: op, Cause: err}
}

// Unauthorized reports an unknown member or a wrong password.
func Unauthorized(reason string) error {
	return &Error{Kind: KindAuth, Message: reason}
}

// Invalid reports a malformed request payload.
func Invalid(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// StateConflict reports an operation not allowed in the entity's current state.
func StateConflict(msg string) error {
	return &Error{Kind: KindState, Message: msg}
}

// NotFound reports a missing entity.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf returns the kind of err, or KindUpstream for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
