package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeParse              = "PARSE_ERROR"
	CodeMissingInput       = "MISSING_INPUT"
	CodeConfig             = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")

	// ErrServiceUnavailable: the parsing service never became reachable. Fatal to the call.
	ErrServiceUnavailable = errors.New("parsing service unavailable")
	// ErrParse: the parser produced no usable result. Fatal to the call.
	ErrParse = errors.New("could not parse pdf")
	// ErrMalformedCoordinate: a TEI coords attribute could not be read. The element is skipped.
	ErrMalformedCoordinate = errors.New("malformed coordinate")
	// ErrPageIndex: a bounding box references a page the PDF does not have.
	ErrPageIndex = errors.New("page index out of range")
	// ErrMissingInput: the accumulator lacks a required input field.
	ErrMissingInput = errors.New("missing required input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ServiceUnavailable builds an AppError matching ErrServiceUnavailable (and cause, if any).
func ServiceUnavailable(message string, cause error) *AppError {
	return NewAppError(CodeServiceUnavailable, message, joinCause(ErrServiceUnavailable, cause))
}

// ParseFailure builds an AppError matching ErrParse (and cause, if any).
func ParseFailure(message string, cause error) *AppError {
	return NewAppError(CodeParse, message, joinCause(ErrParse, cause))
}

// MissingInput builds an AppError matching ErrMissingInput.
func MissingInput(field string) *AppError {
	return NewAppError(CodeMissingInput, fmt.Sprintf("production has no %q", field), ErrMissingInput)
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return errors.Join(sentinel, cause)
}

// PageIndexError reports a bounding box on a page outside 1..PageCount.
type PageIndexError struct {
	Page      int
	PageCount int
}

func (e *PageIndexError) Error() string {
	return fmt.Sprintf("page %d out of range (document has %d pages)", e.Page, e.PageCount)
}

func (e *PageIndexError) Is(target error) bool { return target == ErrPageIndex }

// MalformedCoordinateError reports an unreadable TEI coords attribute.
type MalformedCoordinateError struct {
	Raw    string
	Reason string
}

func (e *MalformedCoordinateError) Error() string {
	return fmt.Sprintf("malformed coordinate %q: %s", e.Raw, e.Reason)
}

func (e *MalformedCoordinateError) Is(target error) bool { return target == ErrMalformedCoordinate }
