package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeEmptyDiagram     = "EMPTY_DIAGRAM"
	ErrCodeMalformedDiagram = "MALFORMED_DIAGRAM"
	ErrCodeDanglingEdge     = "DANGLING_EDGE"
	ErrCodeGeneration       = "GENERATION_ERROR"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTemplate         = "TEMPLATE_ERROR"
)

// ReqbotError is the structured error type for all ReqBot operations.
type ReqbotError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Section string         `json:"section,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ReqbotError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("[%s] section %s: %s", e.Code, e.Section, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ReqbotError) Unwrap() error {
	return e.Cause
}

// NewError creates a new ReqbotError.
func NewError(code, message string) *ReqbotError {
	return &ReqbotError{Code: code, Message: message}
}

// NewErrorf creates a new ReqbotError with a formatted message.
func NewErrorf(code, format string, args ...any) *ReqbotError {
	return &ReqbotError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithSection attaches a report section name to the error.
func (e *ReqbotError) WithSection(section string) *ReqbotError {
	e.Section = section
	return e
}

// WithCause attaches an underlying cause.
func (e *ReqbotError) WithCause(err error) *ReqbotError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *ReqbotError) WithDetails(details map[string]any) *ReqbotError {
	e.Details = details
	return e
}

// ErrorCode returns the code of the first ReqbotError in err's chain, or "".
func ErrorCode(err error) string {
	var re *ReqbotError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
