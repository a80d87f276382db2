package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{429, true},
		{500, true},
		{503, true},
	}
	for _, tc := range cases {
		got := IsRetryableHTTPStatus(tc.code)
		if got != tc.want {
			t.Fatalf("IsRetryableHTTPStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Reason
	}{
		{"empty", fmt.Errorf("decode: %w", ErrEmptyReply), ReasonEmpty},
		{"malformed", fmt.Errorf("%w: unexpected EOF", ErrMalformed), ReasonMalformed},
		{"status", &StatusError{Code: 502}, ReasonStatus},
		{"deadline", fmt.Errorf("send request: %w", context.DeadlineExceeded), ReasonTimeout},
		{"net timeout", fmt.Errorf("send request: %w", timeoutErr{}), ReasonTimeout},
		{"canceled", context.Canceled, ReasonCanceled},
		{"other", errors.New("connection refused"), ReasonTransport},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMissRetryable(t *testing.T) {
	if !NewMiss("a", &StatusError{Code: 429}).Retryable() {
		t.Fatalf("429 miss should be retryable")
	}
	if NewMiss("a", &StatusError{Code: 401}).Retryable() {
		t.Fatalf("401 miss should not be retryable")
	}
	if NewMiss("a", ErrEmptyReply).Retryable() {
		t.Fatalf("empty miss should not be retryable")
	}
}

func TestNewMissKeepsExistingMiss(t *testing.T) {
	inner := &Miss{Provider: "first", Reason: ReasonEmpty, Err: ErrEmptyReply}
	got := NewMiss("second", fmt.Errorf("wrapped: %w", inner))
	if got != inner {
		t.Fatalf("NewMiss() = %+v, want original miss", got)
	}
}
