package errors

import (
	stderrors "errors"
	"fmt"
)

// AmanError is the structured error type for amantmpl.
// It provides rich context for error handling, logging, and user presentation.
type AmanError struct {
	// Code is the unique error code (e.g., "ERR_602_TEMPLATE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *AmanError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AmanError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with AmanError.
func (e *AmanError) Is(target error) bool {
	if t, ok := target.(*AmanError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AmanError) WithDetail(key, value string) *AmanError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *AmanError) WithSuggestion(suggestion string) *AmanError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AmanError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *AmanError {
	return &AmanError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new AmanError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *AmanError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an AmanError from an existing error.
// The error's message becomes the AmanError message.
func Wrap(code string, err error) *AmanError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Code returns a bare error carrying only the code, for use as an
// errors.Is target: errors.Is(err, errors.Code(ErrCodeTemplateNotFound)).
func Code(code string) *AmanError {
	return &AmanError{Code: code}
}

// As extracts the first AmanError from err's chain.
func As(err error) (*AmanError, bool) {
	var ae *AmanError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// HasCode reports whether any AmanError in err's chain has the given code.
func HasCode(err error, code string) bool {
	return stderrors.Is(err, Code(code))
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// IsRecoverable reports whether err is a lookup error the caller can
// recover from, for example by asking for a different template.
func IsRecoverable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Category == CategoryLookup
	}
	return false
}

// GetCode extracts the error code from an AmanError.
// Returns empty string if not an AmanError.
func GetCode(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from an AmanError.
// Returns empty string if not an AmanError.
func GetCategory(err error) Category {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return ""
}
