package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for miarag.
// It carries the code and category used to decide how a failure is handled:
// skipped, logged best-effort, or surfaced to the caller.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_DOCUMENT_UNREADABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Document, Batch, Client, Service, ...).
	Category Category

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given code and message.
// The category is derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ClientError creates a client input error.
func ClientError(code, message string) *Error {
	return New(code, message, nil)
}

// ServiceError creates a collaborator failure error.
func ServiceError(code string, cause error) *Error {
	return Wrap(code, cause)
}

// IsSkippable reports whether an error is a per-document ingestion error
// that should be recorded and skipped rather than aborting the run.
func IsSkippable(err error) bool {
	return CategoryOf(err) == CategoryDocument
}

// IsClient reports whether an error is caused by invalid caller input.
func IsClient(err error) bool {
	return CategoryOf(err) == CategoryClient
}

// CategoryOf extracts the category from an error chain.
// Returns empty string if no *Error is present.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// CodeOf extracts the error code from an error chain.
// Returns empty string if no *Error is present.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
