package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("platform", "unknown value")

	if err.Error() != "platform: unknown value" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !stderrors.Is(err, ErrInvalidInput) {
		t.Fatal("expected error to wrap ErrInvalidInput")
	}
	if !IsValidationError(err) {
		t.Fatal("IsValidationError should return true")
	}
}

func TestRequiredError(t *testing.T) {
	err := RequiredError("token")

	if err.Error() != "token: is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if !IsValidationError(err) {
		t.Fatal("IsValidationError should return true for RequiredError")
	}
}

func TestWrappedValidationErrorStillMatches(t *testing.T) {
	err := fmt.Errorf("register device token: %w", RequiredError("token"))
	if !IsValidationError(err) {
		t.Fatal("wrapping should preserve the validation sentinel")
	}
}

func TestUnrelatedErrorIsNotValidation(t *testing.T) {
	if IsValidationError(stderrors.New("connection refused")) {
		t.Fatal("plain errors must not read as validation errors")
	}
}
