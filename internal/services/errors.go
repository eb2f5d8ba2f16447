package services

import (
	"errors"

	"social-fitness-backend/internal/repository"
)

// Kind classifies a domain error surfaced to callers
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindCapacityExceeded
	KindValidation
	KindUnauthenticated
)

// Error is a user-visible domain error
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any error of the same kind when the target is a bare sentinel
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrUnauthenticated  = &Error{Kind: KindUnauthenticated}
)

func notFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }
func forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }
func capacityExceeded(msg string) error { return &Error{Kind: KindCapacityExceeded, Message: msg} }
func validationFailed(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }

// isNotFound reports whether a store error means the row is absent
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
