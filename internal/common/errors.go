package common

import (
	"errors"
	"fmt"
)

// CodedError carries a stable reason code (e.g. HTML_MISSING) alongside the
// human-readable message. The code is what the audit log records as reason=.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

// NewCodedError creates a CodedError wrapping err (which may be nil)
func NewCodedError(code, message string, err error) *CodedError {
	return &CodedError{Code: code, Message: message, Err: err}
}

func (e *CodedError) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the reason code
func (e *CodedError) ErrorCode() string {
	return e.Code
}

// ErrorName identifies coded errors in the audit log
func (e *CodedError) ErrorName() string {
	return "CodedError"
}

// CodeOf returns the first reason code found in err's chain, or fallback
func CodeOf(err error, fallback string) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		return coded.ErrorCode()
	}
	return fallback
}

// Errorf is NewCodedError with a formatted message and no wrapped error
func Errorf(code, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// MessageOf returns the short message of the first CodedError in err's
// chain, falling back to err.Error()
func MessageOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return err.Error()
}
