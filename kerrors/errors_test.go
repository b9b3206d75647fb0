package kerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{InvalidArgument, "invalid argument"},
		{NotPermitted, "not permitted"},
		{Deadlock, "deadlock"},
		{Timeout, "timeout"},
		{Busy, "busy"},
		{ResourceLimit, "resource limit"},
		{NotSupported, "not supported"},
		{Overflow, "overflow"},
		{Interrupted, "interrupted"},
		{Kind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKernelError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *KernelError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &KernelError{
				Op:      "lock",
				Subject: "spi-bus",
				Kind:    Busy,
				Detail:  "mutex already locked",
				Err:     fmt.Errorf("wait list non-empty"),
			},
			expected: "spi-bus: lock: mutex already locked: wait list non-empty",
		},
		{
			name: "no detail falls back to kind",
			err: &KernelError{
				Op:   "wait",
				Kind: Timeout,
			},
			expected: "wait: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKernelError_Is(t *testing.T) {
	a := New(Timeout, "wait", "")
	b := New(Timeout, "lock", "different op, same kind")
	c := New(Busy, "tryLock", "")

	if !errors.Is(a, b) {
		t.Error("expected errors with the same Kind to match via Is")
	}
	if errors.Is(a, c) {
		t.Error("expected errors with different Kind not to match via Is")
	}
}

func TestKernelError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner failure")
	wrapped := Wrap(inner, ResourceLimit, "lock")

	if !errors.Is(wrapped, inner) {
		t.Error("expected Unwrap to expose the inner error to errors.Is")
	}
}

func TestIsKindAndGetKind(t *testing.T) {
	err := WrapWithSubject(fmt.Errorf("boom"), Deadlock, "lock", "mtx-1")

	if !IsKind(err, Deadlock) {
		t.Error("expected IsKind(err, Deadlock) to be true")
	}
	if IsKind(err, Busy) {
		t.Error("expected IsKind(err, Busy) to be false")
	}

	kind, ok := GetKind(err)
	if !ok || kind != Deadlock {
		t.Errorf("GetKind() = (%v, %v), want (Deadlock, true)", kind, ok)
	}

	if _, ok := GetKind(fmt.Errorf("plain error")); ok {
		t.Error("expected GetKind on a non-KernelError to return false")
	}
}

func TestSentinels_AreDistinguishableByKind(t *testing.T) {
	if !errors.Is(ErrMutexBusy, ErrSemaphoreBusy) {
		t.Error("sentinels sharing a Kind should compare equal via errors.Is")
	}
	if errors.Is(ErrMutexDeadlock, ErrMutexRecursionLimit) {
		t.Error("sentinels with different Kind should not compare equal")
	}
}
