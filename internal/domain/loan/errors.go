package loan

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("loan not found")
	ErrReturnRequestNotFound = errors.New("return request not found")
	ErrExtensionNotFound     = errors.New("extension request not found")
	ErrAlreadyApproved       = errors.New("loan already approved")
	ErrInvalidTransition     = errors.New("loan not in a state that allows this action")

	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("forbidden")
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// AuthorizationError carries diagnostic detail that only non-production builds expose.
type AuthorizationError struct {
	ActorID string
	Reason  string
	Detail  map[string]any
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("actor %q not authorized: %s", e.ActorID, e.Reason)
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrForbidden }

// PersistenceError wraps a store failure; the transition is treated as not having happened.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Persist wraps err unless it is already a domain error.
func Persist(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrNotFound, ErrReturnRequestNotFound, ErrExtensionNotFound, ErrAlreadyApproved,
		ErrInvalidTransition, ErrValidation, ErrForbidden, ErrPersistence,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &PersistenceError{Op: op, Err: err}
}
