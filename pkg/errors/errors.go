// Package errors provides structured error handling for the reconciliation engine.
//
// Errors are categorized (decode, extract, validation, configuration, store) with
// specific error codes, operator-facing suggestions, contextual information, and
// stack traces for debugging. Technical detail stays in logs; the message and
// suggestion are what the operator sees.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryDecode        ErrorCategory = "decode"
	CategoryExtract       ErrorCategory = "extract"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Decode errors
	CodeUnreadableFile    ErrorCode = "unreadable_file"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeEmptyWorkbook     ErrorCode = "empty_workbook"

	// Extract errors
	CodeNoHeaderFound ErrorCode = "no_header_found"
	CodeNoMovements   ErrorCode = "no_movements"

	// Validation errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidStatus ErrorCode = "invalid_status"
	CodeUnknownID     ErrorCode = "unknown_id"
	CodeInvoiceHeld   ErrorCode = "invoice_held"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Store errors
	CodeCommitConflict   ErrorCode = "commit_conflict"
	CodeCommitFailure    ErrorCode = "commit_failure"
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeQueryFailed      ErrorCode = "query_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
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
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryDecode:
		return 2
	case CategoryExtract, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryStore:
		return 5
	case CategoryInternal:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
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

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// DecodeError creates an error for a statement file that could not be decoded.
// Decode failures abort the upload entirely; no partial transactions are added.
func DecodeError(code ErrorCode, source string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeUnreadableFile:
		message = fmt.Sprintf("file for source '%s' is not a readable spreadsheet", source)
		suggestion = "verify the file is a valid .xlsx or .xls export and is not corrupted"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("file for source '%s' is not a supported format", source)
		suggestion = "export the statement as .xlsx or .xls from the bank portal"
	case CodeEmptyWorkbook:
		message = fmt.Sprintf("file for source '%s' contains no rows", source)
		suggestion = "check that the first sheet of the workbook holds the statement data"
	default:
		message = fmt.Sprintf("failed to decode file for source '%s'", source)
		suggestion = "check the file and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryDecode, code, message)
	} else {
		result = New(CategoryDecode, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ExtractError creates an extraction-related error. NoHeaderFound is reported
// per source and does not block uploads for other sources.
func ExtractError(code ErrorCode, source string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeNoHeaderFound:
		message = fmt.Sprintf("no recognizable columns in statement from source '%s'", source)
		suggestion = "the layout may have changed; check for date, description and credit columns"
	case CodeNoMovements:
		message = fmt.Sprintf("no transactions could be extracted from source '%s'", source)
		suggestion = "verify the statement contains dated rows with positive amounts"
	default:
		message = fmt.Sprintf("extraction failed for source '%s'", source)
		suggestion = "review the uploaded statement layout"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryExtract, code, message)
	} else {
		result = New(CategoryExtract, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// ValidationError creates a validation-related error
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "transaction amounts must be positive decimal numbers"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in field '%s': %v", field, value)
		suggestion = "use the DD/MM/YYYY date format"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is missing or empty", field)
		suggestion = "provide a value for this required field"
	case CodeInvalidStatus:
		message = fmt.Sprintf("invalid payment status in field '%s': %v", field, value)
		suggestion = "payment status must be pending, paid or void"
	case CodeUnknownID:
		message = fmt.Sprintf("no record found for '%s': %v", field, value)
		suggestion = "the id may belong to a record that was removed or committed"
	case CodeInvoiceHeld:
		message = fmt.Sprintf("invoice '%v' is already paired with another movement", value)
		suggestion = "remove the existing candidate before pairing the invoice again"
	default:
		message = fmt.Sprintf("validation error in field '%s': %v", field, value)
		suggestion = "check the field value and format"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// CommitConflictError creates the error for invoices that were no longer pending
// at commit time. Distinct from CommitFailureError so the operator can re-sync
// and retry only the conflicting candidates.
func CommitConflictError(invoiceIDs []string) *ReconcilerError {
	message := fmt.Sprintf("commit rejected: %d invoice(s) no longer pending: %s",
		len(invoiceIDs), strings.Join(invoiceIDs, ", "))

	return New(CategoryStore, CodeCommitConflict, message).
		WithSuggestion("refresh the pending invoice list and remove the conflicting candidates before retrying").
		WithContext("invoice_ids", invoiceIDs)
}

// CommitFailureError creates the error for infrastructure-level commit failures.
// The batch is rolled back entirely; all candidates remain queued for retry.
func CommitFailureError(err error) *ReconcilerError {
	return Wrap(err, CategoryStore, CodeCommitFailure,
		"payment commit failed; no invoices were updated").
		WithSuggestion("check store connectivity and retry the confirmation")
}

// StoreError creates a generic store-related error
func StoreError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("store connection failed during %s", operation)
		suggestion = "verify the database URL and that the store is reachable"
	case CodeQueryFailed:
		message = fmt.Sprintf("store query failed during %s", operation)
		suggestion = "check the store schema and retry"
	default:
		message = fmt.Sprintf("store error during %s", operation)
		suggestion = "review store connectivity and configuration"
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryStore, code, message)
	} else {
		result = New(CategoryStore, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error for unexpected conditions
func InternalError(message string, err error) *ReconcilerError {
	if err != nil {
		return Wrap(err, CategoryInternal, CodeUnexpectedError, message).
			WithSuggestion("this is an unexpected condition; check the logs for details")
	}
	return New(CategoryInternal, CodeUnexpectedError, message).
		WithSuggestion("this is an unexpected condition; check the logs for details")
}

// AsReconcilerError attempts to extract a ReconcilerError from any error
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	if err == nil {
		return nil, false
	}

	if reconcilerErr, ok := err.(*ReconcilerError); ok {
		return reconcilerErr, true
	}

	// Check wrapped errors
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}

	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Category == category
	}
	return false
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.Code == code
	}
	return false
}

// IsCommitConflict reports whether the error is a commit conflict, which is
// retryable after the operator re-syncs the pending invoice list.
func IsCommitConflict(err error) bool {
	return IsCode(err, CodeCommitConflict)
}

// GetExitCode extracts an exit code from any error
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr.GetExitCode()
	}

	return 1
}
