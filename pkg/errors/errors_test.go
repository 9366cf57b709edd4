package errors

import (
	"fmt"
	"testing"
)

func TestLinkerErrorMessage(t *testing.T) {
	err := New(CategoryStorage, CodeQueryFailed, "query failed")
	if err.Error() != "query failed" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	err.WithSuggestion("check the store")
	if err.Error() != "query failed (suggestion: check the store)" {
		t.Errorf("Expected the suggestion appended, got: %s", err.Error())
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected int
	}{
		{CategoryConfiguration, 2},
		{CategoryImport, 3},
		{CategoryStorage, 4},
		{CategoryLinking, 5},
		{CategoryInternal, 5},
		{ErrorCategory("unknown"), 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, CodeUnexpectedError, "test")
			if got := err.GetExitCode(); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, CategoryStorage, CodeUpdateFailed, "update failed")

	if err.Unwrap() != cause {
		t.Error("Expected Unwrap to return the cause")
	}
	if err.Category != CategoryStorage || err.Code != CodeUpdateFailed {
		t.Errorf("Unexpected category/code: %s/%s", err.Category, err.Code)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryStorage, CodeUpdateFailed, "noop") != nil {
		t.Error("Expected nil for a nil cause")
	}
}

func TestWithContext(t *testing.T) {
	err := New(CategoryLinking, CodeProcessingError, "failed").
		WithContext("bill_id", "b1").
		WithContext("operation_id", "o1")

	if err.Context["bill_id"] != "b1" || err.Context["operation_id"] != "o1" {
		t.Errorf("Unexpected context: %v", err.Context)
	}
}

func TestConfigurationErrorMissingIdentifiers(t *testing.T) {
	err := ConfigurationError(CodeMissingIdentifiers, "identifiers", nil)

	if err.Category != CategoryConfiguration {
		t.Errorf("Expected configuration category, got %s", err.Category)
	}
	if err.Suggestion == "" {
		t.Error("Expected a suggestion")
	}
	if err.Context["setting"] != "identifiers" {
		t.Errorf("Expected the setting in context, got %v", err.Context)
	}
}

func TestAsLinkerErrorThroughChain(t *testing.T) {
	inner := StorageError(CodeRecordNotFound, "lookup", nil)
	wrapped := fmt.Errorf("outer: %w", inner)

	got, ok := AsLinkerError(wrapped)
	if !ok {
		t.Fatal("Expected to extract the LinkerError from the chain")
	}
	if got.Code != CodeRecordNotFound {
		t.Errorf("Unexpected code: %s", got.Code)
	}
}

func TestAsLinkerErrorPlainError(t *testing.T) {
	if _, ok := AsLinkerError(fmt.Errorf("plain")); ok {
		t.Error("Expected no LinkerError in a plain error")
	}
}

func TestWrapIfNeeded(t *testing.T) {
	inner := StorageError(CodeQueryFailed, "range query", nil)
	if got := WrapIfNeeded(inner, CategoryInternal, CodeUnexpectedError, "other"); got != inner {
		t.Error("Expected an existing LinkerError to pass through unchanged")
	}

	plain := fmt.Errorf("plain")
	got := WrapIfNeeded(plain, CategoryStorage, CodeQueryFailed, "query failed")
	if got.Category != CategoryStorage || got.Cause != plain {
		t.Errorf("Expected the plain error wrapped, got %+v", got)
	}

	if WrapIfNeeded(nil, CategoryStorage, CodeQueryFailed, "noop") != nil {
		t.Error("Expected nil for a nil error")
	}
}
