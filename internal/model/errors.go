package model

import "fmt"

// NotFoundError reports an absent referenced entity. Resource names the
// entity kind (exam, subject, question, result, student, class).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NewNotFound returns a NotFoundError for the given resource kind.
func NewNotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ConflictError reports a write rejected because it would duplicate an
// existing record or clashed with a concurrent update.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return e.Msg
}

// NewConflict returns a ConflictError with the given message.
func NewConflict(msg string) *ConflictError {
	return &ConflictError{Msg: msg}
}

// ValidationError reports missing or malformed request fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidation returns a ValidationError with a formatted message.
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
