package discovery

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes factory and parser errors so callers can branch on
// "bad call" versus "bad capability" versus "bad document".
type ErrorCode string

const (
	InvalidArgument    ErrorCode = "InvalidArgument"
	UnsupportedVersion ErrorCode = "UnsupportedVersion"
	MalformedDocument  ErrorCode = "MalformedDocument"
	DataIntegrity      ErrorCode = "DataIntegrity"
	NotFound           ErrorCode = "NotFound"
)

// Sentinels for errors.Is. Every *Error matches exactly one of them.
var (
	ErrInvalidArgument    = errors.New("discovery: invalid argument")
	ErrUnsupportedVersion = errors.New("discovery: unsupported version")
	ErrMalformedDocument  = errors.New("discovery: malformed document")
	ErrDataIntegrity      = errors.New("discovery: data integrity violation")
	ErrNotFound           = errors.New("discovery: not found")
)

// Error is a structured error with an optional JSON Pointer into the
// discovery document.
type Error struct {
	Code    ErrorCode
	Message string
	Pointer string // e.g. "/resources/adunits/methods/list"
	Cause   error
}

func (e *Error) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("%s (at %s)", e.Message, e.Pointer)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidArgument:
		return e.Code == InvalidArgument
	case ErrUnsupportedVersion:
		return e.Code == UnsupportedVersion
	case ErrMalformedDocument:
		return e.Code == MalformedDocument
	case ErrDataIntegrity:
		return e.Code == DataIntegrity
	case ErrNotFound:
		return e.Code == NotFound
	}
	return false
}

func newError(code ErrorCode, pointer, format string, args ...any) *Error {
	return &Error{Code: code, Message: "discovery: " + fmt.Sprintf(format, args...), Pointer: pointer}
}

func malformed(pointer, format string, args ...any) *Error {
	return newError(MalformedDocument, pointer, format, args...)
}

func integrity(pointer, format string, args ...any) *Error {
	return newError(DataIntegrity, pointer, format, args...)
}
