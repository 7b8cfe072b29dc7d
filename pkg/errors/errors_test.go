package errors

import (
	stderrors "errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := &Error{Type: ErrorTypeAuth, Message: "session expired", Code: 401}
	want := "auth error (code 401): session expired"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}

	e = New(ErrorTypeSigning, "missing dynamic rules")
	want = "signing error: missing dynamic rules"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestWrapAndTypeOf(t *testing.T) {
	cause := stderrors.New("connection refused")
	e := Wrap(ErrorTypeNetwork, "request failed", cause)

	if !stderrors.Is(e, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if TypeOf(e) != ErrorTypeNetwork {
		t.Errorf("TypeOf = %v, want %v", TypeOf(e), ErrorTypeNetwork)
	}
	if TypeOf(cause) != ErrorTypeUnknown {
		t.Errorf("TypeOf(plain error) = %v, want unknown", TypeOf(cause))
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []ErrorType{ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError}
	for _, et := range retryable {
		if !IsRetryable(et) {
			t.Errorf("IsRetryable(%v) = false, want true", et)
		}
	}

	permanent := []ErrorType{ErrorTypeAuth, ErrorTypeSigning, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeStorage, ErrorTypeUnknown}
	for _, et := range permanent {
		if IsRetryable(et) {
			t.Errorf("IsRetryable(%v) = true, want false", et)
		}
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{0, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{521, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{200, false},
	}

	for _, tt := range tests {
		if got := IsRetryableStatusCode(tt.code); got != tt.want {
			t.Errorf("IsRetryableStatusCode(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
