package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := Wrap(ErrCodeInvalidReport, cause, "decode report")

	if err.Code != ErrCodeInvalidReport {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidReport)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	want := "INVALID_REPORT: decode report: unexpected end of JSON input"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeUnknownStage, "test"),
			code:     ErrCodeUnknownStage,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeUnknownStage,
			expected: false,
		},
		{
			name:     "outer code wins",
			err:      Wrap(ErrCodeInvalidReport, New(ErrCodeUnknownStage, "inner"), "outer"),
			code:     ErrCodeInvalidReport,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      fmtWrap(New(ErrCodeReportNotFound, "missing")),
			code:     ErrCodeReportNotFound,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func fmtWrap(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "context: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeInvalidFormat, "x")); got != ErrCodeInvalidFormat {
		t.Errorf("GetCode() = %q, want %q", got, ErrCodeInvalidFormat)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(New(ErrCodeUnknownStage, "stage %d not found", 3)); got != "stage 3 not found" {
		t.Errorf("UserMessage() = %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != "boom" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}
