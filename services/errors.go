package services

import "errors"

// Error kinds. Every error returned by this package that is not a storage
// failure wraps exactly one of these, so callers can pick a response with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("not authorized")
	ErrConflict   = errors.New("conflict")
)

// kindError carries a caller-facing message and unwraps to its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrInvalidID          = newError(ErrValidation, "invalid id")
	ErrInvalidTaskType    = newError(ErrValidation, "invalid task type provided")
	ErrHabitIDRequired    = newError(ErrValidation, "a habitId is required")
	ErrHabitNotAssigned   = newError(ErrValidation, "this habit is not assigned to the specified child")
	ErrInvalidWindow      = newError(ErrValidation, "invalid calendar window")
	ErrChildNotFound      = newError(ErrNotFound, "child not found")
	ErrHabitNotFound      = newError(ErrNotFound, "habit not found")
	ErrHabitNotInRecord   = newError(ErrNotFound, "habit is not on today's list")
	ErrNotAuthorized      = newError(ErrForbidden, "not authorized to perform this action")
	ErrHabitAlreadyListed = newError(ErrConflict, "this habit is already on today's list")
)

// IsDomainError reports whether err is one of the kinds above rather than a storage failure.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) || errors.Is(err, ErrConflict)
}
