package linalg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranspose(t *testing.T) {
	m := Matrix{{1, 2, 3}, {4, 5, 6}}
	got, err := Transpose(m)
	require.NoError(t, err)
	assert.Equal(t, Matrix{{1, 4}, {2, 5}, {3, 6}}, got)

	// input untouched
	assert.Equal(t, Matrix{{1, 2, 3}, {4, 5, 6}}, m)
}

func TestTranspose_SymmetricIsFixedPoint(t *testing.T) {
	symmetric := []Matrix{
		{{7}},
		{{1, 2}, {2, 1}},
		{{4, -1, 0.5}, {-1, 3, 2}, {0.5, 2, 9}},
	}
	for _, m := range symmetric {
		got, err := Transpose(m)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestTranspose_Errors(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{name: "no rows", m: Matrix{}},
		{name: "nil", m: nil},
		{name: "empty row", m: Matrix{{}}},
		{name: "ragged", m: Matrix{{1, 2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transpose(tt.m)
			var dimErr *DimensionError
			require.ErrorAs(t, err, &dimErr)
			assert.Equal(t, "transpose", dimErr.Op)
		})
	}

	_, err := Transpose(nil)
	assert.True(t, errors.Is(err, ErrEmpty))
}

func TestMultiply(t *testing.T) {
	a := Matrix{{1, 2}, {3, 4}, {5, 6}}
	b := Matrix{{7, 8, 9}, {10, 11, 12}}
	got, err := Multiply(a, b)
	require.NoError(t, err)
	assert.Equal(t, Matrix{
		{27, 30, 33},
		{61, 68, 75},
		{95, 106, 117},
	}, got)
}

func TestMultiply_DimensionMismatch(t *testing.T) {
	_, err := Multiply(Matrix{{1, 2, 3}}, Matrix{{1}, {2}})
	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
	assert.Contains(t, err.Error(), "expected 3, got 2")

	_, err = Multiply(Matrix{}, Matrix{{1}})
	require.ErrorAs(t, err, &dimErr)
}

func TestMultiply_Associative(t *testing.T) {
	a := Matrix{{0.1, 2.5, -3}, {4.25, 0, 1e-3}}
	b := Matrix{{1, 2}, {3.3, -4}, {5, 6.75}}
	c := Matrix{{0.7, -1.1, 2}, {9, 0.01, -5}}

	ab, err := Multiply(a, b)
	require.NoError(t, err)
	left, err := Multiply(ab, c)
	require.NoError(t, err)

	bc, err := Multiply(b, c)
	require.NoError(t, err)
	right, err := Multiply(a, bc)
	require.NoError(t, err)

	require.Equal(t, left.Rows(), right.Rows())
	for i := range left {
		for j := range left[i] {
			assert.InDelta(t, left[i][j], right[i][j], 1e-9, "entry (%d,%d)", i, j)
		}
	}
}

func TestDotProduct(t *testing.T) {
	got, err := DotProduct([]float64{1, 2, 3}, []float64{4, -5, 6})
	require.NoError(t, err)
	assert.Equal(t, 12.0, got)

	_, err = DotProduct([]float64{1}, []float64{1, 2})
	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
}

func TestMulVec(t *testing.T) {
	got, err := MulVec(Matrix{{1, 0, 2}, {0, 3, 1}}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 9}, got)

	_, err = MulVec(Matrix{{1, 2}}, []float64{1, 2, 3})
	var dimErr *DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestZeros(t *testing.T) {
	z := Zeros(2, 3)
	assert.Equal(t, Matrix{{0, 0, 0}, {0, 0, 0}}, z)

	// rows must not alias each other
	z[0] = append(z[0], 1)
	assert.Equal(t, []float64{0, 0, 0}, z[1])
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, Flatten(Matrix{{1, 2}, {3, 4}, {5, 6}}))
	assert.Empty(t, Flatten(nil))
}

func TestScaleColumnNorm(t *testing.T) {
	m := Matrix{{3, 4}, {6, 8}}
	assert.Equal(t, Matrix{{1.5, 2}, {3, 4}}, Scale(m, 0.5))
	assert.Equal(t, []float64{4, 8}, Column(m, 1))
	assert.Equal(t, 5.0, Norm(m[0]))
}

func TestIsSymmetric(t *testing.T) {
	assert.True(t, IsSymmetric(Matrix{{1, 2}, {2 + 1e-12, 1}}, 1e-9))
	assert.False(t, IsSymmetric(Matrix{{1, 2}, {3, 1}}, 1e-9))
	assert.False(t, IsSymmetric(Matrix{{1, 2, 3}}, 1e-9))
	assert.False(t, IsSymmetric(nil, 1e-9))
}

func TestClone(t *testing.T) {
	m := Matrix{{1, 2}}
	c := m.Clone()
	c[0][0] = 9
	assert.Equal(t, 1.0, m[0][0])
}
