// Package errors provides structured error handling for dta2parquet
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeStructural represents tag/field mismatches and truncated input
	ErrorTypeStructural ErrorType = "structural_parse"
	// ErrorTypeUnsupportedVersion represents a file format release we cannot read
	ErrorTypeUnsupportedVersion ErrorType = "unsupported_version"
	// ErrorTypeUnsupportedByteOrder represents a non little-endian file
	ErrorTypeUnsupportedByteOrder ErrorType = "unsupported_byte_order"
	// ErrorTypeUnknownTypeCode represents an unrecognized variable storage type
	ErrorTypeUnknownTypeCode ErrorType = "unknown_type_code"
	// ErrorTypeStrlLookup represents a long-string reference absent from the side table
	ErrorTypeStrlLookup ErrorType = "strl_lookup"
	// ErrorTypeDecode represents malformed scalar bytes or invalid text encoding
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeEncode represents failures while encoding the columnar output
	ErrorTypeEncode ErrorType = "encode"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeFile represents file and object storage errors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error, or any error it wraps, is of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsInputError reports whether err was caused by a malformed or unsupported input file.
func IsInputError(err error) bool {
	switch {
	case IsType(err, ErrorTypeStructural),
		IsType(err, ErrorTypeUnsupportedVersion),
		IsType(err, ErrorTypeUnsupportedByteOrder),
		IsType(err, ErrorTypeUnknownTypeCode),
		IsType(err, ErrorTypeStrlLookup),
		IsType(err, ErrorTypeDecode):
		return true
	default:
		return false
	}
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
