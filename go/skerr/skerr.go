// Package skerr provides functions for attaching call-site context to errors
// as they propagate up the stack.
package skerr

import (
	"fmt"
	"runtime"
	"strings"
)

// StackTrace identifies a filename (base filename only) and line number.
type StackTrace struct {
	File string
	Line int
}

// String gives the file and line number as "file:NNN".
func (st *StackTrace) String() string {
	return fmt.Sprintf("%s:%d", st.File, st.Line)
}

// ErrorWithContext is an error plus the call stack at the point it was
// wrapped and an optional additional message.
type ErrorWithContext struct {
	// Wrapped is the original error.
	Wrapped error
	// CallStack is the stack at the point Wrap, Wrapf, or Fmt was called.
	// The first element is the direct caller.
	CallStack []StackTrace
	// Message, if non-empty, is prepended to the wrapped error's message.
	Message string
}

// Error implements the error interface.
func (err *ErrorWithContext) Error() string {
	var sb strings.Builder
	if err.Message != "" {
		sb.WriteString(err.Message)
		if err.Wrapped != nil {
			sb.WriteString(": ")
		}
	}
	if err.Wrapped != nil {
		sb.WriteString(err.Wrapped.Error())
	}
	if len(err.CallStack) > 0 {
		stack := make([]string, 0, len(err.CallStack))
		for _, st := range err.CallStack {
			stack = append(stack, st.String())
		}
		sb.WriteString(" At ")
		sb.WriteString(strings.Join(stack, " "))
	}
	return sb.String()
}

// Unwrap supports errors.Is and errors.As.
func (err *ErrorWithContext) Unwrap() error {
	return err.Wrapped
}

// callStack returns the call stack, skipping the given number of frames.
func callStack(skip int) []StackTrace {
	rv := []StackTrace{}
	for i := skip; ; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		split := strings.Split(file, "/")
		rv = append(rv, StackTrace{
			File: split[len(split)-1],
			Line: line,
		})
	}
	return rv
}

// Wrap adds the current call stack to err. Returns nil if err is nil. If err
// is already an *ErrorWithContext it is returned unchanged so that the
// original wrap site is preserved.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*ErrorWithContext); ok {
		return err
	}
	return &ErrorWithContext{
		Wrapped:   err,
		CallStack: callStack(2),
	}
}

// Unwrap recursively removes *ErrorWithContext wrappers and returns the
// original error.
func Unwrap(err error) error {
	for {
		wrapper, ok := err.(*ErrorWithContext)
		if !ok {
			return err
		}
		err = wrapper.Wrapped
	}
}

// Wrapf adds the current call stack and a formatted message to err. Returns
// nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ErrorWithContext{
		Wrapped:   err,
		CallStack: callStack(2),
		Message:   fmt.Sprintf(format, args...),
	}
}

// Fmt creates a new error with the current call stack and a formatted
// message, like fmt.Errorf.
func Fmt(format string, args ...interface{}) error {
	return &ErrorWithContext{
		Wrapped:   fmt.Errorf(format, args...),
		CallStack: callStack(2),
	}
}
