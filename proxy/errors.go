package proxy

import "fmt"

// Code is a machine-readable error code.
type Code string

const (
	// CodeConfiguration: no subject or no cache bound when a call is attempted.
	CodeConfiguration Code = "CONFIGURATION"
	// CodeNameCollision: the subject exposes an operation named like one of the proxy's own.
	CodeNameCollision Code = "NAME_COLLISION"
	// CodeUnknownOperation: the bound subject has no operation with the requested name.
	CodeUnknownOperation Code = "UNKNOWN_OPERATION"
	// CodeExecution: the subject operation failed while being dispatched.
	CodeExecution Code = "EXECUTION"
	// CodeInvalidConfiguration: a setter received an unusable value.
	CodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	// CodeInvalidArgument: the subject reference is not an object.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeUnknownFingerprint: hit count requested for a fingerprint never populated.
	CodeUnknownFingerprint Code = "UNKNOWN_FINGERPRINT"
	// CodeInternalInconsistency: the backend holds a fingerprint the hit counter does not know.
	CodeInternalInconsistency Code = "INTERNAL_INCONSISTENCY"
	// CodeBackend: the cache backend itself reported a failure.
	CodeBackend Code = "BACKEND"
)

// Error is the error type returned by every Proxy operation.
type Error struct {
	Code      Code   // Machine-readable error code
	Message   string // Human readable description
	Operation string // Intercepted operation, when there is one
	Cause     error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("proxy: %s: %s", e.Operation, e.Message)
	}
	return "proxy: " + e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code. An invalid argument
// is also an invalid configuration.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeInvalidArgument && t.Code == CodeInvalidConfiguration
}

// Sentinels for errors.Is checks.
var (
	ErrConfiguration         = &Error{Code: CodeConfiguration}
	ErrNameCollision         = &Error{Code: CodeNameCollision}
	ErrUnknownOperation      = &Error{Code: CodeUnknownOperation}
	ErrExecution             = &Error{Code: CodeExecution}
	ErrInvalidConfiguration  = &Error{Code: CodeInvalidConfiguration}
	ErrInvalidArgument       = &Error{Code: CodeInvalidArgument}
	ErrUnknownFingerprint    = &Error{Code: CodeUnknownFingerprint}
	ErrInternalInconsistency = &Error{Code: CodeInternalInconsistency}
	ErrBackend               = &Error{Code: CodeBackend}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// executionError keeps the subject failure's message and chain.
func executionError(op string, cause error) *Error {
	return &Error{
		Code:      CodeExecution,
		Message:   cause.Error(),
		Operation: op,
		Cause:     cause,
	}
}

func backendError(op, action string, cause error) *Error {
	return &Error{
		Code:      CodeBackend,
		Message:   action + ": " + cause.Error(),
		Operation: op,
		Cause:     cause,
	}
}
