// Package apperr carries the planner's error kinds up to the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	BadInput           Kind = "BAD_INPUT"
	NotFound           Kind = "NOT_FOUND"
	DuplicatePlace     Kind = "DUPLICATE_PLACE"
	ExcludedPlace      Kind = "EXCLUDED_PLACE"
	SameCategory       Kind = "SAME_CATEGORY"
	RevisionMismatch   Kind = "REVISION_MISMATCH"
	NoCandidate        Kind = "NO_CANDIDATE"
	StoreUnavailable   Kind = "STORE_UNAVAILABLE"
	PlannerUnavailable Kind = "PLANNER_UNAVAILABLE"
	Internal           Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.New(k, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func New(kind Kind, message string) *Error { return &Error{Kind: kind, Message: message} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns Internal for errors that did not come from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Message is the client-facing text of err; causes stay out of it.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func IsKind(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

func HTTPStatus(kind Kind) int {
	switch kind {
	case BadInput:
		return http.StatusBadRequest
	case NotFound, NoCandidate:
		return http.StatusNotFound
	case DuplicatePlace, ExcludedPlace, SameCategory, RevisionMismatch:
		return http.StatusConflict
	case PlannerUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
