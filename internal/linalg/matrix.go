// Package linalg holds the dense matrix primitives the PCA pipeline needs:
// transpose, multiply, dot product, zero construction and flattening.
//
// A Matrix is a slice of equal-length rows of float64. Every function treats
// its inputs as read-only and returns freshly allocated results, so values
// produced here can be shared between pipeline stages without copying.
package linalg

import (
	"math"
	"strconv"
)

// Matrix is a dense, row-major matrix.
type Matrix [][]float64

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the length of the first row, or 0 for a matrix without rows.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Dims returns rows and columns.
func (m Matrix) Dims() (int, int) { return m.Rows(), m.Cols() }

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// Validate checks that m has at least one row, at least one column and that
// every row has the same length.
func Validate(m Matrix) error {
	return validate("validate", m)
}

func validate(op string, m Matrix) error {
	if len(m) == 0 || len(m[0]) == 0 {
		return emptyError(op)
	}
	cols := len(m[0])
	for i := 1; i < len(m); i++ {
		if len(m[i]) != cols {
			return &DimensionError{
				Op:       op,
				Reason:   "non-rectangular matrix at row " + strconv.Itoa(i),
				Expected: cols,
				Actual:   len(m[i]),
			}
		}
	}
	return nil
}

// Zeros returns a rows×cols matrix filled with 0. Both sizes must be
// non-negative.
func Zeros(rows, cols int) Matrix {
	backing := make([]float64, rows*cols)
	m := make(Matrix, rows)
	for i := range m {
		m[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return m
}

// Transpose returns m' with m'[j][i] == m[i][j].
func Transpose(m Matrix) (Matrix, error) {
	if err := validate("transpose", m); err != nil {
		return nil, err
	}
	r, c := m.Dims()
	t := Zeros(c, r)
	for i, row := range m {
		for j, v := range row {
			t[j][i] = v
		}
	}
	return t, nil
}

// Multiply returns the product a·b. It requires cols(a) == rows(b).
//
// Entries are accumulated in k order for each (i, j), the same order as a
// row-by-column dot product.
func Multiply(a, b Matrix) (Matrix, error) {
	if err := validate("multiply", a); err != nil {
		return nil, err
	}
	if err := validate("multiply", b); err != nil {
		return nil, err
	}
	if a.Cols() != b.Rows() {
		return nil, &DimensionError{
			Op:       "multiply",
			Reason:   "cols(A) must equal rows(B)",
			Expected: a.Cols(),
			Actual:   b.Rows(),
		}
	}

	n, inner, p := a.Rows(), a.Cols(), b.Cols()
	c := Zeros(n, p)
	for i := 0; i < n; i++ {
		ai := a[i]
		ci := c[i]
		for j := 0; j < p; j++ {
			var sum float64
			for k := 0; k < inner; k++ {
				sum += ai[k] * b[k][j]
			}
			ci[j] = sum
		}
	}
	return c, nil
}

// DotProduct returns Σ u[k]*v[k]. The vectors must have equal length.
func DotProduct(u, v []float64) (float64, error) {
	if len(u) != len(v) {
		return 0, &DimensionError{
			Op:       "dot product",
			Reason:   "vectors of different length",
			Expected: len(u),
			Actual:   len(v),
		}
	}
	var sum float64
	for k := range u {
		sum += u[k] * v[k]
	}
	return sum, nil
}

// MulVec returns m·x as a vector of length rows(m).
func MulVec(m Matrix, x []float64) ([]float64, error) {
	if err := validate("matrix-vector product", m); err != nil {
		return nil, err
	}
	if m.Cols() != len(x) {
		return nil, &DimensionError{
			Op:       "matrix-vector product",
			Reason:   "cols(M) must equal len(x)",
			Expected: m.Cols(),
			Actual:   len(x),
		}
	}
	out := make([]float64, m.Rows())
	for i, row := range m {
		out[i], _ = DotProduct(row, x)
	}
	return out, nil
}

// Flatten concatenates the rows of m in order.
func Flatten(m Matrix) []float64 {
	n := 0
	for _, row := range m {
		n += len(row)
	}
	out := make([]float64, 0, n)
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

// Scale returns alpha·m.
func Scale(m Matrix, alpha float64) Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = v * alpha
		}
	}
	return out
}

// Column returns a copy of column j.
func Column(m Matrix, j int) []float64 {
	col := make([]float64, len(m))
	for i, row := range m {
		col[i] = row[j]
	}
	return col
}

// IsSymmetric reports whether m is square and |m[a][b]-m[b][a]| <= tol for
// every pair.
func IsSymmetric(m Matrix, tol float64) bool {
	n := m.Rows()
	if n == 0 || m.Cols() != n {
		return false
	}
	for a := 0; a < n; a++ {
		if len(m[a]) != n {
			return false
		}
		for b := a + 1; b < n; b++ {
			if math.Abs(m[a][b]-m[b][a]) > tol {
				return false
			}
		}
	}
	return true
}

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
