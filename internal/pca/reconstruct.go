package pca

import (
	"fmt"
	"math"

	"github.com/andresmejia3/eigenfaces/internal/types"
)

// Reshape lays a length-D vector out row-major as an S×S image, S = √D.
func Reshape(values []int) (types.Sample, error) {
	side, ok := squareSide(len(values))
	if !ok {
		return nil, &ShapeError{Length: len(values)}
	}
	img := make(types.Sample, side)
	for r := 0; r < side; r++ {
		img[r] = append([]int(nil), values[r*side:(r+1)*side]...)
	}
	return img, nil
}

func squareSide(n int) (int, bool) {
	if n <= 0 {
		return 0, false
	}
	s := int(math.Sqrt(float64(n)))
	for s*s > n {
		s--
	}
	for (s+1)*(s+1) <= n {
		s++
	}
	return s, s*s == n
}

// Eigenface returns eigenvector k as a displayable image with values in
// [0, displayMax]. Eigenvectors in a Run are already in pixel space.
func (r *Run) Eigenface(k, displayMax int) (types.Sample, error) {
	if k < 0 || k >= r.eigen.Len() {
		return nil, fmt.Errorf("eigenface %d of %d: %w", k, r.eigen.Len(), ErrIndexOutOfRange)
	}
	return r.toImage(fmt.Sprintf("eigenface %d", k), r.eigen.Eigenvectors[k], displayMax)
}

// MeanFace returns the mean vector as a displayable image.
func (r *Run) MeanFace(displayMax int) (types.Sample, error) {
	return r.toImage("mean face", r.mean, displayMax)
}

func (r *Run) toImage(what string, v []float64, displayMax int) (types.Sample, error) {
	if err := CheckVariance(v); err != nil {
		r.log.Warn().Err(err).Str("image", what).Msg("constant vector, rendering flat image")
	}
	img, err := Reshape(Normalize(v, 0, displayMax))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return img, nil
}
