package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures across the pipeline.
type ErrorKind string

const (
	ErrorKindTranscription   ErrorKind = "transcription_failed"
	ErrorKindToolNotFound    ErrorKind = "tool_not_found"
	ErrorKindInvalidArgs     ErrorKind = "invalid_arguments"
	ErrorKindToolTimeout     ErrorKind = "tool_timeout"
	ErrorKindToolProvider    ErrorKind = "tool_provider_error"
	ErrorKindModelInference  ErrorKind = "model_inference_error"
	ErrorKindSynthesis       ErrorKind = "synthesis_failed"
	ErrorKindSessionNotFound ErrorKind = "session_not_found"
)

// Error is the structured error type used throughout the pipeline.
// Provider names the upstream service when one was involved.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Provider string    `json:"provider,omitempty"`
	Tool     string    `json:"tool,omitempty"`
	wrapped  error
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Recoverable reports whether a turn can continue after this error.
// Tool-level failures are surfaced to the model as results; everything
// else aborts the turn.
func (e *Error) Recoverable() bool {
	switch e.Kind {
	case ErrorKindToolNotFound, ErrorKindInvalidArgs, ErrorKindToolTimeout, ErrorKindToolProvider:
		return true
	}
	return false
}

func newError(kind ErrorKind, wrapped error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), wrapped: wrapped}
}

func NewTranscriptionError(wrapped error, format string, args ...any) *Error {
	return newError(ErrorKindTranscription, wrapped, format, args...)
}

func NewToolNotFoundError(name string) *Error {
	e := newError(ErrorKindToolNotFound, nil, "no tool named %q is registered", name)
	e.Tool = name
	return e
}

func NewInvalidArgsError(tool, format string, args ...any) *Error {
	e := newError(ErrorKindInvalidArgs, nil, format, args...)
	e.Tool = tool
	return e
}

func NewToolTimeoutError(tool string, wrapped error) *Error {
	e := newError(ErrorKindToolTimeout, wrapped, "tool %q did not finish in time", tool)
	e.Tool = tool
	return e
}

func NewToolProviderError(tool string, wrapped error) *Error {
	e := newError(ErrorKindToolProvider, wrapped, "tool %q failed: %v", tool, wrapped)
	e.Tool = tool
	return e
}

func NewModelError(provider string, wrapped error, format string, args ...any) *Error {
	e := newError(ErrorKindModelInference, wrapped, format, args...)
	e.Provider = provider
	return e
}

func NewSynthesisError(provider string, wrapped error, format string, args ...any) *Error {
	e := newError(ErrorKindSynthesis, wrapped, format, args...)
	e.Provider = provider
	return e
}

func NewSessionNotFoundError(id string) *Error {
	return newError(ErrorKindSessionNotFound, nil, "session %q does not exist", id)
}

// KindOf extracts the ErrorKind from err, or "" when err is not a
// pipeline error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
