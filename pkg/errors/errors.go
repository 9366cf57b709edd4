package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStorage       ErrorCategory = "storage"
	CategoryImport        ErrorCategory = "import"
	CategoryLinking       ErrorCategory = "linking"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Configuration errors
	CodeMissingIdentifiers ErrorCode = "missing_identifiers"
	CodeInvalidOption      ErrorCode = "invalid_option"
	CodeMissingConfig      ErrorCode = "missing_config"

	// Storage errors
	CodeIndexCreation  ErrorCode = "index_creation"
	CodeQueryFailed    ErrorCode = "query_failed"
	CodeUpdateFailed   ErrorCode = "update_failed"
	CodeStoreUnopened  ErrorCode = "store_unopened"
	CodeRecordNotFound ErrorCode = "record_not_found"

	// Import errors
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeInvalidData   ErrorCode = "invalid_data"

	// Linking errors
	CodeBillInvalid     ErrorCode = "bill_invalid"
	CodeProcessingError ErrorCode = "processing_error"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// LinkerError is the base error type for all application errors
type LinkerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *LinkerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *LinkerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *LinkerError) GetExitCode() int {
	switch e.Category {
	case CategoryConfiguration:
		return 2
	case CategoryImport:
		return 3
	case CategoryStorage:
		return 4
	case CategoryLinking, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *LinkerError) WithContext(key string, value interface{}) *LinkerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *LinkerError) WithSuggestion(suggestion string) *LinkerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new LinkerError
func New(category ErrorCategory, code ErrorCode, message string) *LinkerError {
	return &LinkerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with LinkerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *LinkerError {
	if err == nil {
		return nil
	}

	return &LinkerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, err error) *LinkerError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingIdentifiers:
		message = "no identifiers could be resolved from field overrides or options"
		suggestion = "set --identifiers or provide a bank_identifier field override"
	case CodeInvalidOption:
		message = fmt.Sprintf("invalid value for option '%s'", setting)
		suggestion = "check the option documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting on the command line or in the config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *LinkerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting)
}

// StorageError creates a storage-related error
func StorageError(code ErrorCode, operation string, err error) *LinkerError {
	var message string
	var suggestion string

	switch code {
	case CodeIndexCreation:
		message = fmt.Sprintf("failed to create index during %s", operation)
		suggestion = "check that the store is writable"
	case CodeQueryFailed:
		message = fmt.Sprintf("query failed during %s", operation)
		suggestion = "check the store file and the date range"
	case CodeUpdateFailed:
		message = fmt.Sprintf("update failed during %s", operation)
		suggestion = "check that the store is writable and the record exists"
	case CodeStoreUnopened:
		message = fmt.Sprintf("store is not open for %s", operation)
		suggestion = "open the store before using it"
	case CodeRecordNotFound:
		message = fmt.Sprintf("record not found during %s", operation)
		suggestion = "check the record identifier"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check the store and try again"
	}

	var result *LinkerError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ImportError creates an import-related error
func ImportError(code ErrorCode, file string, err error) *LinkerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", file)
		suggestion = "check if the file path is correct and the file exists"
	case CodeInvalidFormat:
		message = fmt.Sprintf("invalid format in file %s", file)
		suggestion = "check the data format and ensure it matches the expected structure"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in file %s", file)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("import error for file %s", file)
		suggestion = "check the file format and data integrity"
	}

	var result *LinkerError
	if err != nil {
		result = Wrap(err, CategoryImport, code, message)
	} else {
		result = New(CategoryImport, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file)
}

// LinkError creates a linking-related error
func LinkError(code ErrorCode, billID string, err error) *LinkerError {
	var message string
	var suggestion string

	switch code {
	case CodeBillInvalid:
		message = fmt.Sprintf("bill %s is invalid", billID)
		suggestion = "check the bill document fields"
	case CodeProcessingError:
		message = fmt.Sprintf("processing failed for bill %s", billID)
		suggestion = "re-run the batch; applied links are idempotent"
	default:
		message = fmt.Sprintf("linking error for bill %s", billID)
		suggestion = "review the bill and the candidate operations"
	}

	var result *LinkerError
	if err != nil {
		result = Wrap(err, CategoryLinking, code, message)
	} else {
		result = New(CategoryLinking, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("bill_id", billID)
}

// Utility functions

// IsLinkerError checks if an error is a LinkerError
func IsLinkerError(err error) bool {
	_, ok := err.(*LinkerError)
	return ok
}

// AsLinkerError extracts a LinkerError from an error chain
func AsLinkerError(err error) (*LinkerError, bool) {
	var linkerErr *LinkerError
	if errors.As(err, &linkerErr) {
		return linkerErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a LinkerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *LinkerError {
	if err == nil {
		return nil
	}

	if linkerErr, ok := AsLinkerError(err); ok {
		return linkerErr
	}

	return Wrap(err, category, code, message)
}
