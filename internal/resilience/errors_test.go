package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp: timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("sirene overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("lookup registry: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"net timeout", fmt.Errorf("geocode: %w", timeoutErr{}), true},
		{"conn reset", fmt.Errorf("scrap seller: %w", syscall.ECONNRESET), true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"message heuristic", errors.New("read tcp 10.0.0.1: i/o timeout"), true},
		{"plain", errors.New("sirene: unexpected status 404"), false},
		{"circuit open", fmt.Errorf("estimate distance: %w", ErrCircuitOpen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"503", NewTransientError(errors.New("sirene down"), http.StatusServiceUnavailable), true},
		{"502", NewTransientError(errors.New("bad gateway"), http.StatusBadGateway), true},
		{"504", NewTransientError(errors.New("gateway timeout"), http.StatusGatewayTimeout), true},
		{"network", NewTransientError(errors.New("reset"), 0), true},
		{"500", fmt.Errorf("lookup registry: %w", NewTransientError(errors.New("boom"), http.StatusInternalServerError)), false},
		{"429", NewTransientError(errors.New("rate limited"), http.StatusTooManyRequests), false},
		{"conn refused", fmt.Errorf("geocode: %w", syscall.ECONNREFUSED), true},
		{"plain", errors.New("sirene: unexpected status 404"), false},
		{"circuit open", ErrCircuitOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnavailable(tt.err); got != tt.want {
				t.Errorf("IsUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	te := NewTransientError(inner, http.StatusBadGateway)
	if !errors.Is(te, inner) {
		t.Error("expected TransientError to unwrap to inner error")
	}
	if te.Error() != "boom" {
		t.Errorf("unexpected message %q", te.Error())
	}
	if te.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected status %d", te.StatusCode)
	}
}

func TestIsTransientStatus(t *testing.T) {
	transient := []int{408, 429, 500, 502, 503, 504}
	for _, code := range transient {
		if !IsTransientStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	permanent := []int{200, 204, 400, 401, 403, 404, 422, 501}
	for _, code := range permanent {
		if IsTransientStatus(code) {
			t.Errorf("expected %d to be permanent", code)
		}
	}
}
