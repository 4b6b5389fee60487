// Package derrors defines coded domain errors shared across modules.
//
// Every error that crosses a module boundary carries a Code so transport
// layers can translate it without string matching, and so audit records can
// preserve the reason category. Use New for leaf errors, Wrap to annotate a
// cause, and HasCode to branch on a code anywhere up the chain.
package derrors

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error category.
type Code string

const (
	// Client/protocol errors: rejected synchronously, no state mutation.
	CodeInvalidInput    Code = "invalid_input"
	CodeInvalidPlan     Code = "invalid_plan"
	CodeStepMismatch    Code = "step_mismatch"
	CodeSessionTerminal Code = "session_terminal"
	CodeSessionBusy     Code = "session_busy"

	// Timing errors: mutate state to TimedOut/Disqualified.
	CodeDeadlineExceeded Code = "deadline_exceeded"
	CodeSessionExpired   Code = "session_expired"

	// Detector errors: the capability could not run at all. Distinct from a
	// negative verdict and must stay distinguishable through aggregation.
	CodeDetectorUnavailable Code = "detector_unavailable"

	// Exhaustion: retry budget consumed.
	CodeAttemptsExhausted Code = "attempts_exhausted"

	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a leaf domain error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a leaf domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates a cause with a domain code. Returns nil if err is nil.
func Wrap(code Code, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or any error in its chain carries the code.
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.cause
		e = nil
	}
	return false
}

// CodeOf returns the outermost domain code in err's chain, or CodeInternal
// if err carries no domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
