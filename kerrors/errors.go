// Package kerrors provides typed error handling for the kernelcore RTOS core.
//
// It defines the nine error kinds spec.md's error model names so callers can
// classify and test for them with the standard errors.Is()/errors.As().
package kerrors

import (
	"errors"
	"fmt"
)

// Kind represents the category of a kernel error.
type Kind int

const (
	// InvalidArgument indicates a bad state transition or bad parameter.
	InvalidArgument Kind = iota
	// NotPermitted indicates an operation forbidden in the caller's role,
	// e.g. unlocking a mutex not owned by the caller.
	NotPermitted
	// Deadlock indicates a self-lock on an error-checking mutex or a self-join.
	Deadlock
	// Timeout indicates a deadline was reached during a timed wait.
	Timeout
	// Busy indicates a non-blocking operation could not proceed.
	Busy
	// ResourceLimit indicates a recursion count, queued-signal queue,
	// semaphore max value, or boost-chain depth limit was exceeded.
	ResourceLimit
	// NotSupported indicates a feature disabled at build time, e.g. signal
	// reception on a thread created without a signal receiver.
	NotSupported
	// Overflow indicates a semaphore post beyond its configured max value.
	Overflow
	// Interrupted indicates a wait was aborted by signal delivery.
	Interrupted
)

// String returns a human-readable name for the error kind.
func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case NotPermitted:
		return "not permitted"
	case Deadlock:
		return "deadlock"
	case Timeout:
		return "timeout"
	case Busy:
		return "busy"
	case ResourceLimit:
		return "resource limit"
	case NotSupported:
		return "not supported"
	case Overflow:
		return "overflow"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown error"
	}
}

// KernelError is an error returned by a kernel syscall-style operation.
type KernelError struct {
	// Op is the operation that failed (e.g. "lock", "wait", "join").
	Op string
	// Subject identifies the object involved, if applicable (thread name,
	// mutex name, signal number as a string, ...).
	Subject string
	// Err is the underlying error, if any.
	Err error
	// Kind is the error classification.
	Kind Kind
	// Detail provides additional context about the error.
	Detail string
}

// Error returns the error message.
func (e *KernelError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: ", e.Subject)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *KernelError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is a *KernelError with the same Kind, or if the
// underlying error matches.
func (e *KernelError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*KernelError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new KernelError with the given kind.
func New(kind Kind, op string, detail string) *KernelError {
	return &KernelError{
		Op:     op,
		Kind:   kind,
		Detail: detail,
	}
}

// Wrap wraps an error with kernel operation context.
func Wrap(err error, kind Kind, op string) *KernelError {
	return &KernelError{
		Op:   op,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithSubject wraps an error with operation context and a subject.
func WrapWithSubject(err error, kind Kind, op string, subject string) *KernelError {
	return &KernelError{
		Op:      op,
		Subject: subject,
		Err:     err,
		Kind:    kind,
	}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind Kind, op string, detail string) *KernelError {
	return &KernelError{
		Op:     op,
		Err:    err,
		Kind:   kind,
		Detail: detail,
	}
}

// IsKind reports whether err is a KernelError of the given kind.
func IsKind(err error, kind Kind) bool {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return kerr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a KernelError.
func GetKind(err error) (Kind, bool) {
	var kerr *KernelError
	if errors.As(err, &kerr) {
		return kerr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
