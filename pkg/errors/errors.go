// Package errors defines the error taxonomy of the reconciliation
// pipeline. Fatal load and configuration problems are surfaced to the
// caller with a category, a code and a suggestion; per-record anomalies
// during matching are absorbed locally and never abort a run.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents the broad class an error belongs to.
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode identifies a specific failure mode within a category.
type ErrorCode string

const (
	// File errors (fatal: abort before any pass executes)
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Reconciliation errors. Pattern and classifier codes are soft:
	// callers log them and skip the offending record or pass.
	CodeEmptyInput            ErrorCode = "empty_input"
	CodePatternInvalid        ErrorCode = "pattern_invalid"
	CodeClassifierUnavailable ErrorCode = "classifier_unavailable"
	CodeProcessingError       ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors.
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error.
type Context map[string]interface{}

// Error implements the error interface.
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error.
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error should abort the whole run. Only
// load-time and configuration problems are fatal; everything that
// happens during matching is absorbed per record.
func (e *ReconcilerError) IsFatal() bool {
	switch e.Category {
	case CategoryFile, CategoryParse, CategoryConfiguration:
		return true
	default:
		return false
	}
}

// GetExitCode returns an appropriate process exit code for the error.
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error.
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error.
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError.
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// LoadError creates a fatal error for a file that could not be loaded.
func LoadError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string
	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("input file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied reading file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("failed to load file: %s", path)
		suggestion = "check the file and try again"
	}

	result := wrapOrNew(err, CategoryFile, code, message)
	return result.WithSuggestion(suggestion).WithContext("file_path", path)
}

// ParseError creates a parsing-related error with row context.
func ParseError(code ErrorCode, file string, line int, column, value string, err error) *ReconcilerError {
	var message, suggestion string
	switch code {
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column %q in file %s", column, file)
		suggestion = "verify the file has all required columns with correct headers"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s at line %d, column %q: %q", file, line, column, value)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("parse error in file %s at line %d", file, line)
		suggestion = "check the file format and data integrity"
	}

	result := wrapOrNew(err, CategoryParse, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// ValidationError creates a validation-related error.
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string
	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field %q: %v", field, value)
		suggestion = "ensure amounts are valid decimal numbers (e.g. '12.34')"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field %q: %v", field, value)
		suggestion = "use date format YYYY-MM-DD"
	case CodeMissingField:
		message = fmt.Sprintf("required field %q is missing or empty", field)
		suggestion = "provide a value for this required field"
	default:
		message = fmt.Sprintf("validation error in field %q: %v", field, value)
		suggestion = "check the field value and format"
	}

	result := wrapOrNew(err, CategoryValidation, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error.
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string
	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for %q: %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	result := wrapOrNew(err, CategoryConfiguration, code, message)
	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// PatternError creates a soft error for a sequence number or identifier
// that produced an invalid search pattern. Callers log it and skip the
// offending record, never aborting the pass.
func PatternError(pattern string, err error) *ReconcilerError {
	result := wrapOrNew(err, CategoryReconciliation, CodePatternInvalid,
		fmt.Sprintf("invalid search pattern built from %q", pattern))
	return result.
		WithSuggestion("the record is skipped; review the sequence number for unusual characters").
		WithContext("pattern", pattern)
}

// ClassifierUnavailableError indicates that the optional classifier
// pass cannot run. It is treated as a pass skip, not a failure.
func ClassifierUnavailableError(reason string) *ReconcilerError {
	return New(CategoryReconciliation, CodeClassifierUnavailable,
		fmt.Sprintf("classifier pass unavailable: %s", reason)).
		WithSuggestion("supply a trained classifier or leave the pass disabled")
}

// ReconciliationProcessError creates an error for a failure inside the
// matching pipeline itself.
func ReconciliationProcessError(operation string, err error) *ReconcilerError {
	result := wrapOrNew(err, CategoryReconciliation, CodeProcessingError,
		fmt.Sprintf("processing error during %s", operation))
	return result.
		WithSuggestion("review the data and configuration").
		WithContext("operation", operation)
}

// InternalError creates an error for unexpected conditions.
func InternalError(operation string, err error) *ReconcilerError {
	result := wrapOrNew(err, CategoryInternal, CodeUnexpectedError,
		fmt.Sprintf("unexpected error during %s", operation))
	return result.WithSuggestion("this is likely a bug - please report it with the error details")
}

func wrapOrNew(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// AsReconcilerError extracts a *ReconcilerError from err or any error
// in its unwrap chain.
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	for err != nil {
		if re, ok := err.(*ReconcilerError); ok {
			return re, true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = unwrapper.Unwrap()
	}
	return nil, false
}
