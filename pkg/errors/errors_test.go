package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "decode error",
			category:   CategoryDecode,
			code:       CodeUnreadableFile,
			message:    "unreadable spreadsheet",
			cause:      errors.New("zip: not a valid zip file"),
			expectCode: 2,
		},
		{
			name:       "extract error",
			category:   CategoryExtract,
			code:       CodeNoHeaderFound,
			message:    "no recognizable columns",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "store error",
			category:   CategoryStore,
			code:       CodeCommitFailure,
			message:    "commit failed",
			cause:      errors.New("connection reset"),
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}

			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}

			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}

			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestReconcilerErrorWithContext(t *testing.T) {
	err := New(CategoryDecode, CodeUnreadableFile, "test error").
		WithContext("source", "bci").
		WithContext("size", 1024).
		WithSuggestion("check the export")

	if err.Context["source"] != "bci" {
		t.Errorf("expected source context 'bci', got %v", err.Context["source"])
	}
	if err.Context["size"] != 1024 {
		t.Errorf("expected size context 1024, got %v", err.Context["size"])
	}
	if err.Suggestion != "check the export" {
		t.Errorf("expected suggestion 'check the export', got %s", err.Suggestion)
	}

	// Suggestion is appended to the error string
	if !strings.Contains(err.Error(), "suggestion: check the export") {
		t.Errorf("expected error string to contain suggestion, got %s", err.Error())
	}
}

func TestDecodeError(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := DecodeError(CodeUnreadableFile, "santander", cause)

	if err.Category != CategoryDecode {
		t.Errorf("expected decode category, got %s", err.Category)
	}
	if err.Context["source"] != "santander" {
		t.Errorf("expected source context 'santander', got %v", err.Context["source"])
	}
	if err.Unwrap() != cause {
		t.Errorf("expected cause to be preserved")
	}
	if err.Suggestion == "" {
		t.Error("expected a suggestion for decode errors")
	}
}

func TestExtractError(t *testing.T) {
	err := ExtractError(CodeNoHeaderFound, "bci", nil)

	if err.Code != CodeNoHeaderFound {
		t.Errorf("expected no_header_found code, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "bci") {
		t.Errorf("expected message to name the source, got %s", err.Message)
	}
}

func TestCommitConflictError(t *testing.T) {
	err := CommitConflictError([]string{"inv-1", "inv-2"})

	if !IsCommitConflict(err) {
		t.Error("expected IsCommitConflict to be true")
	}
	if !strings.Contains(err.Message, "inv-1") || !strings.Contains(err.Message, "inv-2") {
		t.Errorf("expected message to list conflicting invoices, got %s", err.Message)
	}

	ids, ok := err.Context["invoice_ids"].([]string)
	if !ok || len(ids) != 2 {
		t.Errorf("expected invoice_ids context with 2 entries, got %v", err.Context["invoice_ids"])
	}
}

func TestCommitFailureError(t *testing.T) {
	cause := errors.New("write: broken pipe")
	err := CommitFailureError(cause)

	if IsCommitConflict(err) {
		t.Error("commit failure must not be classified as a conflict")
	}
	if err.Code != CodeCommitFailure {
		t.Errorf("expected commit_failure code, got %s", err.Code)
	}
	if err.Unwrap() != cause {
		t.Error("expected cause to be preserved")
	}
}

func TestAsReconcilerError(t *testing.T) {
	reconcilerErr := New(CategoryStore, CodeQueryFailed, "query failed")

	extracted, ok := AsReconcilerError(reconcilerErr)
	if !ok || extracted != reconcilerErr {
		t.Error("expected to extract the same ReconcilerError")
	}

	if _, ok := AsReconcilerError(errors.New("plain error")); ok {
		t.Error("plain errors must not be extracted as ReconcilerError")
	}

	if _, ok := AsReconcilerError(nil); ok {
		t.Error("nil must not be extracted as ReconcilerError")
	}
}

func TestIsCategoryAndCode(t *testing.T) {
	err := ExtractError(CodeNoMovements, "scotiabank", nil)

	if !IsCategory(err, CategoryExtract) {
		t.Error("expected extract category")
	}
	if IsCategory(err, CategoryStore) {
		t.Error("did not expect store category")
	}
	if !IsCode(err, CodeNoMovements) {
		t.Error("expected no_movements code")
	}
}

func TestGetExitCode(t *testing.T) {
	if got := GetExitCode(nil); got != 0 {
		t.Errorf("expected 0 for nil error, got %d", got)
	}
	if got := GetExitCode(errors.New("plain")); got != 1 {
		t.Errorf("expected 1 for plain error, got %d", got)
	}
	if got := GetExitCode(CommitFailureError(errors.New("infra"))); got != 5 {
		t.Errorf("expected 5 for store error, got %d", got)
	}
}
