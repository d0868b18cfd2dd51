package utils

import "fmt"

// ESDMError attaches the operation and object an error happened on, such as
// "dataset temperature" or "write [0,4) to temperature", to its cause. The
// root package wraps backend and option failures with it; errors.Is still
// reaches the sentinel errors underneath.
type ESDMError struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *ESDMError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// WrapError returns cause with context prepended, or nil when cause is nil.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &ESDMError{
		Context: context,
		Cause:   cause,
	}
}

// Unwrap returns the cause.
func (e *ESDMError) Unwrap() error {
	return e.Cause
}
