package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNetworkError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("retriable error", func(t *testing.T) {
		err := NewNetworkError("coins", baseErr)

		if !err.IsRetriable() {
			t.Error("Expected error to be retriable")
		}

		if err.Error() != "coins: connection refused" {
			t.Errorf("Error message = %q, want %q", err.Error(), "coins: connection refused")
		}

		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("fatal error", func(t *testing.T) {
		err := NewFatalNetworkError("coins", baseErr)

		if err.IsRetriable() {
			t.Error("Expected error to not be retriable")
		}
	})

	t.Run("status error", func(t *testing.T) {
		tests := []struct {
			status    int
			retriable bool
		}{
			{404, false},
			{400, false},
			{429, true},
			{500, true},
			{503, true},
		}
		for _, tt := range tests {
			err := NewStatusError("global", tt.status, ErrUnexpectedStatus)
			if err.IsRetriable() != tt.retriable {
				t.Errorf("status %d: retriable = %v, want %v", tt.status, err.IsRetriable(), tt.retriable)
			}
			if !errors.Is(err, ErrUnexpectedStatus) {
				t.Errorf("status %d: expected ErrUnexpectedStatus to be wrapped", tt.status)
			}
		}

		msg := NewStatusError("coin_detail", 404, ErrNotFound).Error()
		if msg != "coin_detail: status 404: not found" {
			t.Errorf("Error message = %q", msg)
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		retriable := NewNetworkError("dial", baseErr)
		fatal := NewFatalNetworkError("auth", baseErr)
		plain := errors.New("plain error")

		if !IsRetriable(retriable) {
			t.Error("IsRetriable should return true for retriable error")
		}

		if IsRetriable(fatal) {
			t.Error("IsRetriable should return false for fatal error")
		}

		if IsRetriable(plain) {
			t.Error("IsRetriable should return false for plain error")
		}
	})
}

func TestCancellationError(t *testing.T) {
	err := &CancellationError{Op: "coins", Cause: context.Canceled}

	if !errors.Is(err, ErrCancelled) {
		t.Error("CancellationError should match ErrCancelled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("CancellationError should unwrap to context.Canceled")
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		t.Error("Cancellation must never look like a NetworkError")
	}
}

func TestIsCancellation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"typed", &CancellationError{Op: "ohlc"}, true},
		{"context canceled", context.Canceled, true},
		{"wrapped context canceled", fmt.Errorf("do: %w", context.Canceled), true},
		{"deadline is a failure", context.DeadlineExceeded, false},
		{"network", NewNetworkError("coins", errors.New("boom")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCancellation(tt.err); got != tt.want {
				t.Errorf("IsCancellation(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestPersistenceReadError(t *testing.T) {
	base := errors.New("unexpected end of JSON input")
	err := &PersistenceReadError{Key: "cryptodash-favorites", Err: base}

	if !errors.Is(err, base) {
		t.Error("Expected PersistenceReadError to wrap its cause")
	}
	expected := "persistence read [cryptodash-favorites]: unexpected end of JSON input"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "api.coingecko.base_url", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [api.coingecko.base_url]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
