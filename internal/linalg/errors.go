package linalg

import (
	"errors"
	"fmt"
)

// ErrEmpty is the cause attached to a DimensionError raised for a matrix or
// vector with no elements.
var ErrEmpty = errors.New("linalg: empty operand")

// DimensionError reports operands whose shapes do not fit the operation.
//
// Expected and Actual carry the offending sizes when a single size comparison
// failed (for example cols(A) vs rows(B) in Multiply). The original cause, if
// any, is available through errors.Unwrap.
type DimensionError struct {
	Op       string
	Reason   string
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionError) Error() string {
	if e.Expected == 0 && e.Actual == 0 {
		return fmt.Sprintf("linalg: %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("linalg: %s: %s: expected %d, got %d", e.Op, e.Reason, e.Expected, e.Actual)
}

func (e *DimensionError) Unwrap() error { return e.cause }

func emptyError(op string) error {
	return &DimensionError{Op: op, Reason: "matrix has no rows or columns", cause: ErrEmpty}
}
