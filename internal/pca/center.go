package pca

import "github.com/andresmejia3/eigenfaces/internal/linalg"

// Center computes the per-column mean of an N×D sample matrix and returns it
// together with the centered matrix (every sample minus the mean face).
//
// Means are taken down each column, i.e. per pixel across samples. A single
// sample is valid and yields a zero centered matrix.
func Center(samples linalg.Matrix) ([]float64, linalg.Matrix, error) {
	if err := linalg.Validate(samples); err != nil {
		return nil, nil, err
	}
	n, d := samples.Dims()

	mean := make([]float64, d)
	for _, row := range samples {
		for j, v := range row {
			mean[j] += v
		}
	}
	invN := 1.0 / float64(n)
	for j := range mean {
		mean[j] *= invN
	}

	centered := linalg.Zeros(n, d)
	for i, row := range samples {
		for j, v := range row {
			centered[i][j] = v - mean[j]
		}
	}
	return mean, centered, nil
}
