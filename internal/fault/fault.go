// Package fault holds the error taxonomy of a consolidation run.
//
// Every per-file failure is a *Error value that is recorded and reported, never
// raised past the run. Only CodeUsage stops the process before scanning.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies the phase an error belongs to.
type Code string

const (
	CodeScan  Code = "SCAN"
	CodeHash  Code = "HASH"
	CodeExec  Code = "EXEC"
	CodeUsage Code = "USAGE"
)

// Kind refines CodeExec failures.
type Kind string

const (
	KindNone         Kind = ""
	KindCrossDevice  Kind = "cross-device"
	KindPermission   Kind = "permission"
	KindLinkFailed   Kind = "link-failed"
	KindRenameFailed Kind = "rename-failed"
	KindChanged      Kind = "changed"
)

// Error is a structured error with code, optional kind and the path it concerns.
type Error struct {
	Code    Code
	Kind    Kind
	Path    string
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	prefix := string(e.Code)
	if e.Kind != KindNone {
		prefix = fmt.Sprintf("%s:%s", e.Code, e.Kind)
	}

	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s %q", e.Message, e.Path)
	}

	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, msg, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", prefix, msg)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches on code, and on kind when the target sets one.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	return t.Kind == KindNone || e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrScan        = &Error{Code: CodeScan}
	ErrHash        = &Error{Code: CodeHash}
	ErrExec        = &Error{Code: CodeExec}
	ErrUsage       = &Error{Code: CodeUsage}
	ErrCrossDevice = &Error{Code: CodeExec, Kind: KindCrossDevice}
)

func Scan(path string, err error) *Error {
	return &Error{Code: CodeScan, Path: path, Message: "cannot read", Wrapped: err}
}

func Hash(path string, err error) *Error {
	return &Error{Code: CodeHash, Path: path, Message: "cannot hash", Wrapped: err}
}

func Exec(kind Kind, path string, message string, err error) *Error {
	return &Error{Code: CodeExec, Kind: kind, Path: path, Message: message, Wrapped: err}
}

func Usage(format string, args ...interface{}) *Error {
	return &Error{Code: CodeUsage, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err when it is an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// CodeOf returns the code of err when it is an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
