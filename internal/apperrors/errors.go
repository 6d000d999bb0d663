package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input such as an unknown status or an empty platform list.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyApplied marks a duplicate application to the same posting.
	ErrAlreadyApplied = errors.New("already applied")
	// ErrNotFound marks an unknown application id.
	ErrNotFound = errors.New("not found")
	// ErrSource marks a failed or timed out job source fetch.
	ErrSource = errors.New("job source failed")
	// ErrStorage marks an unavailable persistence layer.
	ErrStorage = errors.New("storage failed")
)

// Error wraps a cause with one of the package sentinels and the operation that failed.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation builds a validation error with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound builds a not found error for the given operation.
func NotFound(op string, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Source wraps a job source failure.
func Source(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrSource, Op: op, Err: err}
}

// Storage wraps a persistence failure. Errors that already carry a kind are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return err
	}
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

// ConflictError reports that an application for the same platform and url already exists.
type ConflictError struct {
	Platform   string
	SourceURL  string
	ExistingID uint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s %s (application %d)", ErrAlreadyApplied, e.Platform, e.SourceURL, e.ExistingID)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrAlreadyApplied
}

// IsRecoverable reports whether a batch may continue after err.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrAlreadyApplied)
}
