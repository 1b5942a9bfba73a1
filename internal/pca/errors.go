package pca

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned when an eigenvector index does not exist in
// the run.
var ErrIndexOutOfRange = errors.New("pca: eigenvector index out of range")

// ShapeError reports a vector whose length is not a perfect square and so
// cannot be reshaped into an S×S image.
type ShapeError struct {
	Length int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("pca: cannot reshape vector of length %d into a square image", e.Length)
}

// DegenerateInputError reports a constant input to the normalizer. It is
// informational: Normalize still returns a valid (all loTarget) result.
type DegenerateInputError struct {
	Value float64
	Count int
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("pca: zero-variance input (%d values all equal to %g)", e.Count, e.Value)
}
