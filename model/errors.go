package model

import (
	"errors"
	"fmt"

	"github.com/signadot/tony-format/go-dash/enum"
)

var (
	ErrNotFound        = errors.New("property not found")
	ErrNotSettable     = errors.New("property not settable")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotCallable     = errors.New("property not callable")
	ErrNilPointer      = errors.New("nil pointer")

	// ErrEnumLookup is the error returned when a string or value matches no
	// reachable member of an enumeration.
	ErrEnumLookup = enum.ErrLookup
)

// PathError records an error and the operation and path that caused it.
type PathError struct {
	Op   string // "get", "set", "call", ...
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Path == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// TypeError represents a value whose type is incompatible with the declared
// type of a property.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
	Message  string
}

func (e *TypeError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
	}
	if e.Path != "" {
		return fmt.Sprintf("type mismatch at %s: %s", e.Path, msg)
	}
	return "type mismatch: " + msg
}

func (e *TypeError) Unwrap() error {
	return ErrTypeMismatch
}

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

func typeErr(path, expected string, v any) error {
	return &TypeError{Path: path, Expected: expected, Actual: describe(v)}
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%T (%v)", v, v)
}
