package main

import (
	"errors"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryDelayFromError(t *testing.T) {
	tests := []struct {
		err  error
		want time.Duration
	}{
		{nil, 0},
		{errors.New("Too Many Requests: retry after 7"), 7 * time.Second},
		{errors.New("Too Many Requests"), 3 * time.Second},
		{timeoutErr{}, 2 * time.Second},
		{errors.New("connection reset"), 1 * time.Second},
	}
	for _, tt := range tests {
		if got := retryDelayFromError(tt.err); got != tt.want {
			t.Errorf("retryDelayFromError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestClampDelay(t *testing.T) {
	if d := clampDelay(0, time.Second, 15*time.Second); d != time.Second {
		t.Errorf("Expected 1s, got %v", d)
	}
	if d := clampDelay(time.Minute, time.Second, 15*time.Second); d != 15*time.Second {
		t.Errorf("Expected 15s, got %v", d)
	}
}

func TestShortHash(t *testing.T) {
	a := shortHash("123:abc")
	if len(a) != 16 {
		t.Errorf("Expected 16 hex chars, got %q", a)
	}
	if got := shortHash(""); got != "cbf29ce484222325" {
		t.Errorf("Expected FNV-1a offset basis for empty input, got %s", got)
	}
	if a != shortHash("123:abc") || a == shortHash("123:abd") {
		t.Error("hash must be stable and token specific")
	}
}
