// Package hypercube implements the N-dimensional box geometry and the
// covering-set algebra used to decide which fragments of a dataset answer a
// given request.
//
// A Range is a half-open interval [Start, End). A Hypercube is an
// axis-aligned box made of one Range per dimension. A Set is a growable,
// possibly overlapping list of hypercubes supporting subtraction, coverage
// tests and approximate minimal-cover search.
//
// The package performs no I/O and holds no locks. Values returned by the
// package never share their range storage with the caller's inputs.
//
// Passing hypercubes of different dimensionality to a binary operation is a
// programming error and panics.
package hypercube
