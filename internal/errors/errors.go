// Package errors provides the structured error type used across the
// orchestrator. Every KeystoneError carries an ErrorCode that maps to an
// exit code, following spec's four error classes:
//   - Exit 1: fatal configuration errors
//   - Exit 2: work-directory errors
//   - Exit 3: solver/scheduling errors (non-fatal to the process as a whole)
//   - Exit 4: store contention/corruption errors
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error condition recognized by the
// orchestrator.
type ErrorCode int

const (
	// Configuration errors (fatal = exit 1)
	INVALID_CONFIG ErrorCode = iota + 1
	MISSING_TOP
	DUPLICATE_SOURCE_FILENAME
	PATH_ESCAPES_WORKDIR

	// Work-directory errors (exit 2)
	WORKDIR_EXISTS
	WORKDIR_NOT_INITIALIZED

	// Solver/scheduling errors (exit 3, non-fatal to the rest of the run)
	SOLVER_TASK_FAILED
	SOLVER_TASK_CANCELLED
	UNEXPECTED_STATE_TRANSITION
	UNREACHABLE_SINK

	// Store errors (exit 4)
	STORE_CONTENTION
	STORE_CORRUPTION
)

var errorCodeNames = map[ErrorCode]string{
	INVALID_CONFIG:              "INVALID_CONFIG",
	MISSING_TOP:                 "MISSING_TOP",
	DUPLICATE_SOURCE_FILENAME:   "DUPLICATE_SOURCE_FILENAME",
	PATH_ESCAPES_WORKDIR:        "PATH_ESCAPES_WORKDIR",
	WORKDIR_EXISTS:              "WORKDIR_EXISTS",
	WORKDIR_NOT_INITIALIZED:     "WORKDIR_NOT_INITIALIZED",
	SOLVER_TASK_FAILED:          "SOLVER_TASK_FAILED",
	SOLVER_TASK_CANCELLED:       "SOLVER_TASK_CANCELLED",
	UNEXPECTED_STATE_TRANSITION: "UNEXPECTED_STATE_TRANSITION",
	UNREACHABLE_SINK:            "UNREACHABLE_SINK",
	STORE_CONTENTION:            "STORE_CONTENTION",
	STORE_CORRUPTION:            "STORE_CORRUPTION",
}

// String returns the string representation of an ErrorCode.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return ""
}

// ExitCode returns the process exit code for this error code.
func (c ErrorCode) ExitCode() int {
	switch c {
	case INVALID_CONFIG, MISSING_TOP, DUPLICATE_SOURCE_FILENAME, PATH_ESCAPES_WORKDIR:
		return 1
	case WORKDIR_EXISTS, WORKDIR_NOT_INITIALIZED:
		return 2
	case STORE_CONTENTION, STORE_CORRUPTION:
		return 4
	default:
		return 3
	}
}

// KeystoneError is the orchestrator's primary error type: an error code,
// a message, and an optional wrapped error.
type KeystoneError struct {
	code    ErrorCode
	message string
	wrapped error
}

// New creates a new KeystoneError with the given code and message.
func New(code ErrorCode, msg string) *KeystoneError {
	return &KeystoneError{code: code, message: msg}
}

// Newf creates a new KeystoneError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *KeystoneError {
	return &KeystoneError{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with additional context, preserving its code if it is (or
// wraps) a KeystoneError.
func Wrap(err error, context string) *KeystoneError {
	if err == nil {
		return nil
	}
	return &KeystoneError{code: Code(err), message: context, wrapped: err}
}

// Error implements the error interface.
func (e *KeystoneError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.code.String(), e.message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.code.String(), e.message)
}

// Is implements errors.Is comparison: two KeystoneErrors are equal if they
// carry the same code.
func (e *KeystoneError) Is(target error) bool {
	var t *KeystoneError
	if errors.As(target, &t) {
		return e.code == t.code
	}
	return false
}

// Unwrap returns the wrapped error, if any.
func (e *KeystoneError) Unwrap() error {
	return e.wrapped
}

// Code extracts the ErrorCode from err, or the zero value if err is not
// (and does not wrap) a KeystoneError.
func Code(err error) ErrorCode {
	if err == nil {
		return ErrorCode(0)
	}
	var ke *KeystoneError
	if errors.As(err, &ke) {
		return ke.code
	}
	return ErrorCode(0)
}

// IsFatalConfig reports whether err is a configuration error (exit 1).
func IsFatalConfig(err error) bool { return errExitCodeIs(err, 1) }

// IsWorkdirError reports whether err is a work-directory error (exit 2).
func IsWorkdirError(err error) bool { return errExitCodeIs(err, 2) }

// IsStoreError reports whether err is a store contention/corruption error
// (exit 4).
func IsStoreError(err error) bool { return errExitCodeIs(err, 4) }

func errExitCodeIs(err error, code int) bool {
	if err == nil {
		return false
	}
	c := Code(err)
	if c == ErrorCode(0) {
		return false
	}
	return c.ExitCode() == code
}

// ExitCode returns the process exit code for err: 0 for nil, 1 for a
// non-KeystoneError, else the error code's own exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	code := Code(err)
	if code == ErrorCode(0) {
		return 1
	}
	return code.ExitCode()
}
