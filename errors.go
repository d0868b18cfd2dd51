package esdm

import "errors"

// Status errors returned by the decomposition core. Returned errors wrap one
// of these with context, so test with errors.Is.
var (
	// ErrInvalidArgument reports an out-of-range index, mismatched
	// dimensionality or malformed subdivision bounds.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState reports a mutation that is no longer allowed, such as
	// subdividing a grid whose cells exist or occupying a cell twice.
	ErrInvalidState = errors.New("invalid state")

	// ErrIncompleteData reports a read from a region nobody has written yet.
	ErrIncompleteData = errors.New("incomplete data")

	// ErrInvalidData reports a malformed serialized grid document.
	ErrInvalidData = errors.New("invalid data")
)
