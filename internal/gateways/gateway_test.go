package gateways

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusSuccessful, StatusFailed, StatusCancelled, StatusAbandoned}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%q should not be terminal", s)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &APIError{StatusCode: http.StatusBadGateway}, true},
		{"client error", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &APIError{StatusCode: http.StatusUnauthorized}, false},
		{"wrapped api error", fmt.Errorf("submit: %w", &APIError{StatusCode: http.StatusInternalServerError}), true},
		{"not supported", ErrNotSupported, false},
		{"bad signature", ErrInvalidSignature, false},
		{"transport failure", errors.New("dial tcp: connection refused"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{
		Gateway:    NamePaystack,
		StatusCode: http.StatusBadRequest,
		Status:     "400 Bad Request",
		Body:       `{"message":"Invalid amount"}`,
	}
	got := err.Error()
	want := `paystack error: 400 Bad Request: {"message":"Invalid amount"}`
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	empty := &APIError{Gateway: NameNium, Status: "503 Service Unavailable"}
	if empty.Error() != "nium error: 503 Service Unavailable" {
		t.Errorf("Error() without body = %q", empty.Error())
	}
}
