// Package errors provides errors carrying operation context and a stack trace,
// plus panic recovery for the solver and the HTTP API.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Error represents an error with context and stack trace.
type Error struct {
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Component != "" {
		if builder.Len() > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("component=")
		builder.WriteString(e.Component)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error with a message.
func New(msg string) *Error {
	return &Error{
		Message: msg,
		Stack:   getStackTrace(3),
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(3),
	}
}

// Wrap wraps an error with additional context. An *Error is reused so its
// stack is kept.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if !stderrors.As(err, &e) {
		e = &Error{
			Err:   err,
			Stack: getStackTrace(3),
		}
	}

	if msg != "" {
		e.Message = msg
	}

	return e
}

// Recover converts a panic into an error assigned to *errp. It must be
// deferred directly:
//
//	defer errors.Recover(&err, "solve", "solver")
//
// Panic values that are errors stay reachable through errors.Is and
// errors.As.
func Recover(errp *error, op, component string) {
	rec := recover()
	if rec == nil {
		return
	}

	e := &Error{
		Message:   "recovered from panic",
		Operation: op,
		Component: component,
		Stack:     getStackTrace(4),
	}
	if err, ok := rec.(error); ok {
		e.Err = err
	} else {
		e.Err = fmt.Errorf("%v", rec)
	}
	*errp = e
}

// getStackTrace returns the current stack trace as a slice of strings,
// skipping the given number of frames.
func getStackTrace(skip int) []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
