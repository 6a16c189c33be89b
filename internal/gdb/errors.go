package gdb

import (
	"errors"
	"fmt"
)

const (
	CodeWorkspaceUnreachable = "E_WORKSPACE_UNREACHABLE"
	CodeObjectNotFound       = "E_OBJECT_NOT_FOUND"
	CodeObjectExists         = "E_OBJECT_EXISTS"
	CodeSchemaMismatch       = "E_SCHEMA_MISMATCH"
	CodeLocked               = "E_LOCKED"
	CodeUnsupported          = "E_UNSUPPORTED"
)

// Error wraps workspace failures with a code and retryability hint.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return e.Code }
func (e *Error) RetryableStatus() bool { return e.Retryable }

// WrapError builds a coded workspace error.
func WrapError(code string, retryable bool, err error) *Error {
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// NotFound reports a missing data object.
func NotFound(name string) *Error {
	return WrapError(CodeObjectNotFound, false, fmt.Errorf("data object %q not found", name))
}

// Exists reports a data object that is already present.
func Exists(name string) *Error {
	return WrapError(CodeObjectExists, false, fmt.Errorf("data object %q already exists", name))
}

// HasCode reports whether err carries the given workspace error code.
func HasCode(err error, code string) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Code == code
	}
	return false
}
