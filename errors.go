/*
Package requestkit – error types.
*/
package requestkit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// ErrorCode is a well-known error category string.
type ErrorCode string

const (
	ErrFormat         ErrorCode = "FormatError"
	ErrArgument       ErrorCode = "ArgumentError"
	ErrClientMismatch ErrorCode = "ClientConsistencyError"
	ErrCapacity       ErrorCode = "CapacityError"
	ErrMissingClient  ErrorCode = "MissingClientError"
	ErrEncryption     ErrorCode = "FieldEncryptionError"
	ErrTransport      ErrorCode = "TransportError"
)

// RequestError is the error type surfaced by every component in this
// package. It carries a Code for programmatic handling and a free-form
// Context map for extra debugging data.
type RequestError struct {
	Message string
	Code    ErrorCode
	Context map[string]any
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error { return e.Cause }

// NewError constructs a RequestError.
func NewError(msg string, opts ...func(*RequestError)) *RequestError {
	err := &RequestError{Message: msg}
	for _, o := range opts {
		o(err)
	}
	return err
}

// WithCode sets the error code.
func WithCode(c ErrorCode) func(*RequestError) {
	return func(e *RequestError) { e.Code = c }
}

// WithContext attaches a context map.
func WithContext(ctx map[string]any) func(*RequestError) {
	return func(e *RequestError) { e.Context = ctx }
}

// WithCause wraps an underlying error.
func WithCause(cause error) func(*RequestError) {
	return func(e *RequestError) { e.Cause = cause }
}

// NewArgError constructs a RequestError for invalid arguments.
func NewArgError(msg string) *RequestError {
	return &RequestError{Message: msg, Code: ErrArgument}
}

// NewFormatError constructs a RequestError for bad format specifiers.
func NewFormatError(msg string) *RequestError {
	return &RequestError{Message: msg, Code: ErrFormat}
}

// HasCode reports whether err (or anything it wraps) is a RequestError
// carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsConditionalFailure reports whether err originates from a failed
// condition expression or a cancelled transaction.
func IsConditionalFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ConditionalCheckFailedException", "TransactionCanceledException":
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "ConditionalCheckFailed") ||
		strings.Contains(msg, "TransactionCanceledException")
}

// wrapTransportErr wraps a store client failure with the operation kind
// that issued it. Retry is the client's responsibility, never ours.
func wrapTransportErr(op string, err error) *RequestError {
	return NewError(fmt.Sprintf("%q call failed: %s", op, err.Error()),
		WithCode(ErrTransport),
		WithCause(err),
		WithContext(map[string]any{"operation": op}))
}
