package pca

import "math"

// Normalize linearly rescales values so that min(values) maps to loTarget and
// max(values) to hiTarget, rounding to the nearest integer. A constant input
// maps every element to loTarget. An empty input yields an empty result.
func Normalize(values []float64, loTarget, hiTarget int) []int {
	out := make([]int, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := bounds(values)
	if hi == lo {
		for k := range out {
			out[k] = loTarget
		}
		return out
	}
	span := hi - lo
	target := float64(hiTarget - loTarget)
	for k, v := range values {
		out[k] = int(math.Round((v-lo)/span*target)) + loTarget
	}
	return out
}

// NormalizeInts is Normalize for integer input, e.g. re-normalizing display
// values.
func NormalizeInts(values []int, loTarget, hiTarget int) []int {
	f := make([]float64, len(values))
	for k, v := range values {
		f[k] = float64(v)
	}
	return Normalize(f, loTarget, hiTarget)
}

// CheckVariance returns a *DegenerateInputError when every value is equal.
func CheckVariance(values []float64) error {
	if len(values) == 0 {
		return nil
	}
	lo, hi := bounds(values)
	if hi == lo {
		return &DegenerateInputError{Value: lo, Count: len(values)}
	}
	return nil
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
