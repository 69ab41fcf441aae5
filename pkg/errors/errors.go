package errors

import (
	"fmt"
	"runtime"
	"time"
)

// Error is the canonical error type carried across component boundaries.
// Code is compulsory; everything else is optional decoration.
type Error struct {
	Code      Code
	Message   string
	Cause     error
	Context   map[string]string
	Stack     []Frame
	Timestamp time.Time
}

// Frame represents a stack frame
type Frame struct {
	Function string
	File     string
	Line     int
}

// InternalError is implemented by package-local error types that know how
// to transform themselves into the canonical form.
type InternalError interface {
	error
	Transform() *Error
}

// New creates a new Error. A nil cause is allowed.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
		Stack:     captureStackTrace(),
	}
}

// Newf creates a new Error with a formatted message and no cause.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrapf wraps a cause with a formatted message.
func Wrapf(code Code, cause error, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), cause)
}

// AddContext attaches a key/value pair, returning the error for chaining.
func (e *Error) AddContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause replaces the cause, returning the error for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func captureStackTrace() []Frame {
	var frames []Frame
	for i := 1; i < 10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		frames = append(frames, Frame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}
	return frames
}
