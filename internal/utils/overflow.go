package utils

import (
	"fmt"
	"math"
)

// CheckMultiplyOverflow checks if multiplying two non-negative int64 values would overflow.
// Returns an error if overflow would occur or if either operand is negative.
func CheckMultiplyOverflow(a, b int64) error {
	if a < 0 || b < 0 {
		return fmt.Errorf("negative operand: %d * %d", a, b)
	}
	if a == 0 || b == 0 {
		return nil
	}

	if a > math.MaxInt64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds int64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two int64 values and returns the result if no overflow occurs.
// Returns 0 and an error if overflow would occur.
func SafeMultiply(a, b int64) (int64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// Product safely calculates the product of all values.
// The product of an empty list is 1.
//
// Example:
//
//	cells, err := Product([]int64{4, 5, 6}) // 120
func Product(values []int64) (int64, error) {
	total := int64(1)
	for i, v := range values {
		next, err := SafeMultiply(total, v)
		if err != nil {
			return 0, fmt.Errorf("product overflow at index %d: %w", i, err)
		}
		total = next
	}
	return total, nil
}

// CalculateByteSize safely calculates the byte size of a block with the given
// per-dimension element counts.
// Returns an error if overflow would occur.
func CalculateByteSize(dimensions []int64, elementSize int64) (int64, error) {
	if len(dimensions) == 0 {
		return 0, fmt.Errorf("no dimensions provided")
	}

	if elementSize <= 0 {
		return 0, fmt.Errorf("element size must be positive, got %d", elementSize)
	}

	count, err := Product(dimensions)
	if err != nil {
		return 0, err
	}

	size, err := SafeMultiply(count, elementSize)
	if err != nil {
		return 0, fmt.Errorf("byte size overflow (elements: %d, elem size: %d): %w", count, elementSize, err)
	}
	return size, nil
}

// CeilDiv returns ceil(a/b) for positive b and non-negative a.
func CeilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
