package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindInvalidInput    Kind = "INVALID_INPUT"
	KindNotFound        Kind = "NOT_FOUND"
	KindDuplicateRating Kind = "DUPLICATE_RATING"
	KindAlreadyExists   Kind = "ALREADY_EXISTS"
	KindNotInSet        Kind = "NOT_IN_SET"
	KindForbidden       Kind = "FORBIDDEN"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindConflict        Kind = "CONFLICT"
	KindStorageFailure  Kind = "STORAGE_FAILURE"
)

// Error carries a machine-readable kind and a message safe to show callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" && t.Message != e.Message {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput    = &Error{Kind: KindInvalidInput}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrDuplicateRating = &Error{Kind: KindDuplicateRating}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrNotInSet        = &Error{Kind: KindNotInSet}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrStorageFailure  = &Error{Kind: KindStorageFailure}
)

// E builds an error of the given kind.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Storage wraps an unexpected persistence error.
func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: message, Err: err}
}

// KindOf reports the kind of err, treating unknown errors as storage failures.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorageFailure
}

// IsBenign reports whether err is an idempotency signal rather than a failure.
func IsBenign(err error) bool {
	switch KindOf(err) {
	case KindDuplicateRating, KindAlreadyExists, KindNotInSet:
		return true
	}
	return false
}

// ValidID reports whether id is a well-formed identifier.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
