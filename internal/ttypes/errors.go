package ttypes

import (
	"errors"
	"fmt"
)

// Common studio errors
var (
	// ErrMissingKey indicates the provider needs a credential and none was given
	ErrMissingKey = errors.New("an API key is required for this provider")

	// ErrMissingVoice indicates no voice has been selected
	ErrMissingVoice = errors.New("select a voice first")

	// ErrEmptyText indicates there is nothing to synthesize
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the text exceeds the provider's maximum
	ErrTextTooLong = errors.New("text exceeds the maximum length")

	// ErrMissingAudioURL indicates a success response without an audio URL
	ErrMissingAudioURL = errors.New("server response is missing the audio URL")

	// ErrNotFound indicates a preset or audio file does not exist
	ErrNotFound = errors.New("not found")

	// ErrNoMedia indicates no audio has been loaded
	ErrNoMedia = errors.New("no audio loaded")
)

// Error represents a studio error with additional context
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode identifies specific error types
type ErrorCode string

const (
	// Input errors are reported before any request is sent
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorCodeTextTooLong  ErrorCode = "TEXT_TOO_LONG"

	// Transport errors carry the best message we could extract
	ErrorCodeTransport ErrorCode = "TRANSPORT"

	// Success status, but the body broke the contract
	ErrorCodeContractViolation ErrorCode = "CONTRACT_VIOLATION"

	// Local storage errors are never fatal
	ErrorCodeStorage ErrorCode = "STORAGE"

	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	ErrorCodeCanceled ErrorCode = "CANCELED"
)

// NewError creates a new studio error with context
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// IsValidation returns true if the error was raised before contacting the backend
func (e *Error) IsValidation() bool {
	return e.Code == ErrorCodeInvalidInput || e.Code == ErrorCodeTextTooLong
}

// IsRetryable returns true if the operation can be retried
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeTransport, ErrorCodeCanceled:
		return true
	default:
		return false
	}
}

// CodeOf returns the error code of err, or an empty code when err is not a studio error.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// MessageOf returns the user facing part of err.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
