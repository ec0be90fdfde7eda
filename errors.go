package v8host

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rogchap.com/v8go"
)

var (
	// ErrIsolateBusy is returned when script execution is requested on an
	// isolate that is already executing script.
	ErrIsolateBusy = errors.New("v8host: isolate is already executing script")
	// ErrDisposed is returned by operations on a disposed isolate.
	ErrDisposed = errors.New("v8host: isolate has been disposed")
	// ErrContextClosed is returned by operations on a closed context.
	ErrContextClosed = errors.New("v8host: context has been closed")
	// ErrScopeExpired is returned when a Scope is used after the native call
	// it was handed to has returned.
	ErrScopeExpired = errors.New("v8host: scope used outside of its native call")
	// ErrTerminated matches a RuntimeError caused by Isolate.Terminate.
	ErrTerminated = errors.New("v8host: script execution was terminated")
	// ErrWrongIsolate is returned when values, templates or scripts from one
	// isolate are used with another.
	ErrWrongIsolate = errors.New("v8host: value belongs to a different isolate")
)

// ContractViolation is the panic value for embedder misuse that leaves the
// engine in an undefined state, such as disposing an isolate from one of its
// own native calls. It is never converted into a script exception.
type ContractViolation struct {
	Msg string
}

func (v *ContractViolation) Error() string { return "v8host: " + v.Msg }

// Loc defines a script location.
type Loc struct {
	Funcname, Filename string
	Line, Column       int
}

func (l Loc) String() string {
	if l.Line == 0 {
		return l.Filename
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// parseLoc splits a "file:line:column" location as reported by the engine.
// Filenames may themselves contain colons, so the numbers are taken from the
// right.
func parseLoc(s string) Loc {
	var loc Loc
	rest := s
	var nums []int
	for i := 0; i < 2; i++ {
		idx := strings.LastIndexByte(rest, ':')
		if idx < 0 {
			break
		}
		n, err := strconv.Atoi(rest[idx+1:])
		if err != nil {
			break
		}
		nums = append([]int{n}, nums...)
		rest = rest[:idx]
	}
	loc.Filename = rest
	switch len(nums) {
	case 2:
		loc.Line, loc.Column = nums[0], nums[1]
	case 1:
		loc.Line = nums[0]
	}
	return loc
}

// InitError reports misuse of the engine lifecycle: initializing twice,
// operating before initialization, or shutting down with live isolates.
type InitError struct {
	Op     string
	State  RuntimeState
	Reason string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("v8host: %s: %s (runtime %s)", e.Op, e.Reason, e.State)
}

// ConversionError is returned when a script value has no representation as
// the requested Go type.
type ConversionError struct {
	Kinds []Kind
	To    string
	Cause error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("v8host: cannot convert %v value to %s", e.Kinds, e.To)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// CompileError is returned by Compile for malformed source.
type CompileError struct {
	Message string
	Loc     Loc
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error: %s\nat %s", e.Message, e.Loc)
}

// RuntimeError is returned when running a script raises an uncaught
// exception. If the exception came from a failing native binding, the Go
// error it returned is available through errors.Unwrap.
type RuntimeError struct {
	Message    string
	Loc        Loc
	StackTrace string
	Terminated bool

	cause error
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString("Uncaught exception: ")
	b.WriteString(e.Message)
	if e.Loc.Filename != "" || e.Loc.Line != 0 {
		b.WriteString("\nat ")
		b.WriteString(e.Loc.String())
	}
	return b.String()
}

func (e *RuntimeError) Unwrap() error { return e.cause }

func (e *RuntimeError) Is(target error) bool {
	return target == ErrTerminated && e.Terminated
}

func newCompileError(err error) error {
	var jsErr *v8go.JSError
	if !errors.As(err, &jsErr) {
		return &CompileError{Message: err.Error()}
	}
	return &CompileError{Message: jsErr.Message, Loc: parseLoc(jsErr.Location)}
}

func newRuntimeError(err error) *RuntimeError {
	var jsErr *v8go.JSError
	if !errors.As(err, &jsErr) {
		return &RuntimeError{Message: err.Error()}
	}
	return &RuntimeError{
		Message:    jsErr.Message,
		Loc:        parseLoc(jsErr.Location),
		StackTrace: jsErr.StackTrace,
	}
}
