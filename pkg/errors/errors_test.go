package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewCode(t *testing.T) {
	validCodes := []string{
		"schema.unknown_table",
		"query.validation_failed",
		"repository.partial_cascade",
		"aggregate.unknown_type",
	}

	for _, codeStr := range validCodes {
		code, err := NewCode(codeStr)
		if err != nil {
			t.Errorf("Expected valid code '%s' to succeed, got error: %v", codeStr, err)
		}
		if code.String() != codeStr {
			t.Errorf("Expected code string '%s', got '%s'", codeStr, code.String())
		}
	}

	invalidCodes := []string{
		"invalid",                // No dot
		"schema.",                // Ends with dot
		".unknown_table",         // Starts with dot
		"Schema.unknown_table",   // Uppercase
		"schema.unknown-table",   // Hyphens not allowed
		"schema..unknown_table",  // Double dot
		"schema.unknown_table.x", // Extra segment
		"schema.table_error",     // Redundant error marker
		"query.err_bad_value",    // Redundant err marker
	}

	for _, codeStr := range invalidCodes {
		_, err := NewCode(codeStr)
		if err == nil {
			t.Errorf("Expected invalid code '%s' to fail, but it succeeded", codeStr)
		}
	}
}

func TestMustNewCodePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustNewCode to panic on invalid code")
		}
	}()
	MustNewCode("not-a-valid-code")
}

func TestCodeParts(t *testing.T) {
	code := MustNewCode("query.execution_failed")
	if code.Package() != "query" {
		t.Errorf("Expected package 'query', got '%s'", code.Package())
	}
	if code.Name() != "execution_failed" {
		t.Errorf("Expected name 'execution_failed', got '%s'", code.Name())
	}
}

func TestNewWithCause(t *testing.T) {
	cause := fmt.Errorf("db is down")
	err := New(CommonInternal, "select failed", cause)

	if err.Error() != "select failed: db is down" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if len(err.Stack) == 0 {
		t.Error("Expected a captured stack trace")
	}
}

func TestAddContextChaining(t *testing.T) {
	err := Newf(CommonValidation, "bad column %q", "na me").
		AddContext("table", "drugs").
		AddContext("column", "na me")

	if err.Context["table"] != "drugs" {
		t.Errorf("Expected context table=drugs, got %v", err.Context)
	}
	if err.Context["column"] != "na me" {
		t.Errorf("Expected context column, got %v", err.Context)
	}
}

func TestGetCodeAndHasCode(t *testing.T) {
	err := New(CommonNotFound, "no such row", nil)

	if GetCode(err) != "common.not_found" {
		t.Errorf("Expected code 'common.not_found', got '%s'", GetCode(err))
	}
	if !HasCode(err, CommonNotFound) {
		t.Error("HasCode should match the error's code")
	}
	if HasCode(err, CommonInternal) {
		t.Error("HasCode should not match a different code")
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("GetCode on a foreign error should be empty")
	}
}

func TestAsError(t *testing.T) {
	if AsError(nil) != nil {
		t.Error("AsError(nil) should be nil")
	}

	original := New(CommonConflict, "duplicate", nil)
	if AsError(original) != original {
		t.Error("AsError should return existing *Error unchanged")
	}

	wrapped := AsError(fmt.Errorf("plain failure"))
	if !wrapped.Code.Equals(CommonInternal) {
		t.Errorf("Expected foreign errors to become common.internal, got %s", wrapped.Code)
	}
}

type fakeInternal struct{ msg string }

func (f *fakeInternal) Error() string { return f.msg }
func (f *fakeInternal) Transform() *Error {
	return New(CommonUnsupported, f.msg, nil)
}

func TestAsErrorTransformsInternal(t *testing.T) {
	err := AsError(&fakeInternal{msg: "nope"})
	if !err.Code.Equals(CommonUnsupported) {
		t.Errorf("Expected transformed code, got %s", err.Code)
	}
}

func TestFormatError(t *testing.T) {
	err := New(CommonInternal, "boom", fmt.Errorf("root")).AddContext("op", "select")
	out := FormatError(err)

	for _, want := range []string{"Code: common.internal", "Message: boom", "op: select", "Cause: root"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatError output missing %q:\n%s", want, out)
		}
	}
}
