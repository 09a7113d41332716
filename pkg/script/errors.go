package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// Signals raised by scripts through the flow utilities. They are control flow,
// not failures of the script itself.
var (
	// ErrNotImplemented means this implementation path does not apply.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNotReady means the implementation cannot produce a result yet.
	ErrNotReady = errors.New("not ready")

	// ErrValidationFailed is wrapped by every ValidationFailure.
	ErrValidationFailed = errors.New("validation failed")
)

// ValidationFailure is raised by assert().
type ValidationFailure struct {
	Message string
}

func (v *ValidationFailure) Error() string {
	return "validation failed: " + v.Message
}

func (v *ValidationFailure) Unwrap() error { return ErrValidationFailed }

// IsSignal reports whether err is one of the benign flow signals.
func IsSignal(err error) bool {
	return errors.Is(err, ErrNotImplemented) || errors.Is(err, ErrNotReady)
}

// ErrorType categorizes script errors
type ErrorType string

const (
	ErrorTypeSyntax   ErrorType = "syntax_error"
	ErrorTypeRuntime  ErrorType = "runtime_error"
	ErrorTypeTimeout  ErrorType = "timeout_error"
	ErrorTypeSecurity ErrorType = "security_error"
	ErrorTypeInternal ErrorType = "internal_error"
)

// JSError represents a structured script execution error
type JSError struct {
	Type       ErrorType    `json:"type"`
	Message    string       `json:"message"`
	StackTrace []StackFrame `json:"stack_trace,omitempty"`
	Line       int          `json:"line,omitempty"`
	Column     int          `json:"column,omitempty"`
}

// StackFrame represents a single frame in the stack trace
type StackFrame struct {
	FunctionName string `json:"function_name,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

// Error implements the error interface
func (e *JSError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Type, e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}

	for i, frame := range e.StackTrace {
		if i == 0 {
			b.WriteString("\nStack trace:")
		}
		if i >= 10 {
			fmt.Fprintf(&b, "\n  ... %d more frames", len(e.StackTrace)-i)
			break
		}
		name := frame.FunctionName
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "\n  at %s (line %d:%d)", name, frame.Line, frame.Column)
	}

	return b.String()
}

// IsTimeout reports whether err is a script timeout.
func IsTimeout(err error) bool {
	var jsErr *JSError
	return errors.As(err, &jsErr) && jsErr.Type == ErrorTypeTimeout
}

// parseException converts a goja exception into a JSError
func parseException(exc *goja.Exception) *JSError {
	jsErr := &JSError{
		Type:    ErrorTypeRuntime,
		Message: exc.Error(),
	}

	if v := exc.Value(); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		if obj, ok := v.(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
					jsErr.Message = name.String() + ": " + msg.String()
				} else {
					jsErr.Message = msg.String()
				}
			}
			if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
				jsErr.StackTrace = parseStackTrace(stack.String())
			}
		} else {
			jsErr.Message = v.String()
		}
	}
	if len(jsErr.StackTrace) > 0 {
		jsErr.Line = jsErr.StackTrace[0].Line
		jsErr.Column = jsErr.StackTrace[0].Column
	}

	lower := strings.ToLower(jsErr.Message)
	switch {
	case strings.Contains(lower, "not allowed") || strings.Contains(lower, "forbidden"):
		jsErr.Type = ErrorTypeSecurity
	case strings.Contains(lower, "syntaxerror"):
		jsErr.Type = ErrorTypeSyntax
	}
	return jsErr
}

// parseStackTrace parses a stack trace string into frames.
// Frames look like "at name (file:line:column(pc))" or "at file:line:column(pc)".
func parseStackTrace(stack string) []StackFrame {
	var frames []StackFrame
	for _, line := range strings.Split(stack, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "at ") {
			continue
		}
		frames = append(frames, parseStackFrame(strings.TrimPrefix(line, "at ")))
	}
	return frames
}

func parseStackFrame(line string) StackFrame {
	var frame StackFrame
	location := line
	if idx := strings.Index(line, " ("); idx != -1 && strings.HasSuffix(line, ")") {
		frame.FunctionName = strings.TrimSpace(line[:idx])
		location = line[idx+2 : len(line)-1]
	}
	// drop the trailing program counter, e.g. "(12)"
	if idx := strings.Index(location, "("); idx != -1 {
		location = location[:idx]
	}
	parts := strings.Split(location, ":")
	if len(parts) >= 3 {
		frame.FileName = strings.Join(parts[:len(parts)-2], ":")
		fmt.Sscanf(parts[len(parts)-2], "%d", &frame.Line)
		fmt.Sscanf(parts[len(parts)-1], "%d", &frame.Column)
	}
	return frame
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(timeout fmt.Stringer) *JSError {
	return &JSError{
		Type:    ErrorTypeTimeout,
		Message: fmt.Sprintf("execution timeout after %s", timeout),
	}
}

// NewSecurityError creates a new security error
func NewSecurityError(message string) *JSError {
	return &JSError{Type: ErrorTypeSecurity, Message: message}
}

// NewInternalError creates a new internal error
func NewInternalError(message string) *JSError {
	return &JSError{Type: ErrorTypeInternal, Message: message}
}

// wrapError converts a goja error into a JSError
func wrapError(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return parseException(exc)
	}
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return &JSError{Type: ErrorTypeSyntax, Message: syntax.Error()}
	}
	var jsErr *JSError
	if errors.As(err, &jsErr) {
		return jsErr
	}
	return &JSError{Type: ErrorTypeInternal, Message: err.Error()}
}
