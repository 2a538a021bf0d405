// Package kapselerr names the error kinds the engine distinguishes, so
// the orchestrator can tell a setup failure from a child failure from a
// benign kernel residual without string-matching.
package kapselerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	SetupFailure Kind = iota
	ChildInitFailure
	ExecFailure
	CleanupFailure
	BenignKernelResidual
)

func (k Kind) String() string {
	switch k {
	case SetupFailure:
		return "setup failure"
	case ChildInitFailure:
		return "child init failure"
	case ExecFailure:
		return "exec failure"
	case CleanupFailure:
		return "cleanup failure"
	case BenignKernelResidual:
		return "benign kernel residual"
	default:
		return "unknown"
	}
}

// Error wraps an underlying syscall/exec error with the phase/operation
// that failed and the Kind the orchestrator should treat it as.
type Error struct {
	Kind      Kind
	Operation string
	Err       error
}

func New(kind Kind, operation string, err error) *Error {
	return &Error{Kind: kind, Operation: operation, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Operation)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Operation, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, kapselerr.Sentinel(kapselerr.SetupFailure)) work by comparing Kind
// against a *Error wrapper constructed purely to carry a Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) && t.Err == nil {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinel returns a bare *Error carrying only a Kind, useful as the
// target of errors.Is checks: errors.Is(err, kapselerr.Sentinel(kapselerr.BenignKernelResidual)).
func Sentinel(kind Kind) error {
	return &Error{Kind: kind}
}
