package protocol

import "fmt"

// CallError is the typed failure returned from an invocation. It carries the
// taxonomy kind so callers can branch without string matching.
type CallError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewCallError builds a CallError with a formatted message.
func NewCallError(kind ErrorKind, format string, args ...interface{}) *CallError {
	return &CallError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from an error. Errors that are not
// CallErrors map to the protocol kind, the catch-all for unexpected failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if ce, ok := err.(*CallError); ok {
		return ce.Kind
	}
	return ErrKindProtocol
}
