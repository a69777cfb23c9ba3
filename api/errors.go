// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for levee.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrChannelClosed   = fmt.Errorf("channel is closed")
	ErrSenderClosed    = fmt.Errorf("sender is closed")
	ErrBufferTooSmall  = fmt.Errorf("buffer too small")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotSupported    = fmt.Errorf("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeChannelClosed
	ErrCodeSenderClosed
	ErrCodeBufferTooSmall
	ErrCodeNotSupported
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeChannelClosed:
		return "channel_closed"
	case ErrCodeSenderClosed:
		return "sender_closed"
	case ErrCodeBufferTooSmall:
		return "buffer_too_small"
	case ErrCodeNotSupported:
		return "not_supported"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Context) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (context: %+v)", e.Message, e.Context)
}

// Unwrap exposes the sentinel the error was built from, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Wrap builds a structured error around a sentinel so errors.Is keeps working.
func Wrap(err error, context map[string]any) *Error {
	e := NewError(CodeOf(err), err.Error())
	e.cause = err
	for k, v := range context {
		e.Context[k] = v
	}
	return e
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf maps an error to its ErrorCode.
func CodeOf(err error) ErrorCode {
	var se *Error
	switch {
	case err == nil:
		return ErrCodeOK
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrChannelClosed):
		return ErrCodeChannelClosed
	case errors.Is(err, ErrSenderClosed):
		return ErrCodeSenderClosed
	case errors.Is(err, ErrBufferTooSmall):
		return ErrCodeBufferTooSmall
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidArgument
	case errors.Is(err, ErrNotSupported):
		return ErrCodeNotSupported
	default:
		return ErrCodeInternal
	}
}
