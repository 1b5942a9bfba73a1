package pca

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/solver"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

var twoFaces = linalg.Matrix{
	{1, 2, 3, 4},
	{5, 6, 7, 9},
}

// fakeSolver returns a canned result regardless of the input matrix.
type fakeSolver struct {
	res   *types.EigenResult
	err   error
	calls int
}

func (f *fakeSolver) Solve(_ context.Context, _ linalg.Matrix) (*types.EigenResult, error) {
	f.calls++
	return f.res, f.err
}

func TestCenter(t *testing.T) {
	mean, centered, err := Center(twoFaces)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5, 6.5}, mean)
	assert.Equal(t, linalg.Matrix{{-2, -2, -2, -2.5}, {2, 2, 2, 2.5}}, centered)
}

func TestCenter_SingleSample(t *testing.T) {
	mean, centered, err := Center(linalg.Matrix{{7, 8, 9, 10}})
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8, 9, 10}, mean)
	assert.Equal(t, linalg.Matrix{{0, 0, 0, 0}}, centered)
}

func TestCenter_ColumnMeansVanish(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	samples := linalg.Zeros(6, 16)
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = float64(rng.Intn(256))
		}
	}
	_, centered, err := Center(samples)
	require.NoError(t, err)
	for j := 0; j < centered.Cols(); j++ {
		var sum float64
		for i := range centered {
			sum += centered[i][j]
		}
		assert.InDelta(t, 0, sum, 1e-9, "column %d", j)
	}
}

func TestCenter_Errors(t *testing.T) {
	_, _, err := Center(nil)
	assert.ErrorIs(t, err, linalg.ErrEmpty)

	_, _, err = Center(linalg.Matrix{{1, 2}, {3}})
	var dimErr *linalg.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestChooseForm(t *testing.T) {
	assert.Equal(t, FormDirect, ChooseForm(4, 4))
	assert.Equal(t, FormDirect, ChooseForm(10, 3))
	assert.Equal(t, FormSnapshot, ChooseForm(2, 4))
}

func TestParseForm(t *testing.T) {
	for in, want := range map[string]Form{"": FormAuto, "AUTO": FormAuto, "direct": FormDirect, "snapshot": FormSnapshot, "gram": FormSnapshot} {
		got, err := ParseForm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseForm("eigen")
	assert.Error(t, err)
}

func TestCovariance_Symmetric(t *testing.T) {
	_, centered, err := Center(twoFaces)
	require.NoError(t, err)

	direct, form, err := Covariance(centered, FormDirect)
	require.NoError(t, err)
	assert.Equal(t, FormDirect, form)
	assert.Equal(t, 4, direct.Rows())
	assert.True(t, linalg.IsSymmetric(direct, 1e-12))

	gram, form, err := Covariance(centered, FormAuto)
	require.NoError(t, err)
	assert.Equal(t, FormSnapshot, form)
	assert.Equal(t, linalg.Matrix{{9.125, -9.125}, {-9.125, 9.125}}, gram)
	assert.True(t, linalg.IsSymmetric(gram, 1e-12))
}

func TestBackProject(t *testing.T) {
	_, centered, err := Center(twoFaces)
	require.NoError(t, err)

	u, err := BackProject(centered, []float64{1 / math.Sqrt2, -1 / math.Sqrt2})
	require.NoError(t, err)
	norm := math.Sqrt(73)
	want := []float64{-4 / norm, -4 / norm, -4 / norm, -5 / norm}
	assert.InDeltaSlice(t, want, u, 1e-12)

	zero, err := BackProject(centered, []float64{1 / math.Sqrt2, 1 / math.Sqrt2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, zero)

	_, err = BackProject(centered, []float64{1, 0, 0})
	var dimErr *linalg.DimensionError
	assert.ErrorAs(t, err, &dimErr)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []int{0, 0, 0}, Normalize([]float64{5, 5, 5}, 0, 255))
	assert.Equal(t, []int{0, 128, 255}, Normalize([]float64{0, 5, 10}, 0, 255))
	assert.Equal(t, []int{10, 20}, Normalize([]float64{-3, 7}, 10, 20))
	assert.Empty(t, Normalize(nil, 0, 255))
}

func TestNormalize_Idempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]float64, 64)
	for k := range values {
		values[k] = rng.NormFloat64()
	}
	once := Normalize(values, 0, 255)
	assert.Equal(t, once, NormalizeInts(once, 0, 255))
}

func TestCheckVariance(t *testing.T) {
	err := CheckVariance([]float64{2, 2})
	var degenerate *DegenerateInputError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, 2.0, degenerate.Value)
	assert.NoError(t, CheckVariance([]float64{1, 2}))
	assert.NoError(t, CheckVariance(nil))
}

func TestReshape(t *testing.T) {
	img, err := Reshape([]int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, types.Sample{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}}, img)

	_, err = Reshape(make([]int, 10))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 10, shapeErr.Length)

	_, err = Reshape(nil)
	assert.ErrorAs(t, err, &shapeErr)
}

func TestCompute_Gonum(t *testing.T) {
	run, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{SortDescending: true})
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, FormSnapshot, run.Form())
	assert.Equal(t, 2, run.Samples())
	assert.Equal(t, 4, run.Dim())
	require.Equal(t, 2, run.Len())

	values := run.Eigenvalues()
	assert.InDelta(t, 18.25, values[0], 1e-9)
	assert.InDelta(t, 0, values[1], 1e-9)

	top, err := run.Eigenvector(0)
	require.NoError(t, err)
	assert.InDelta(t, 1, linalg.Norm(top), 1e-9)
	norm := math.Sqrt(73)
	for j, want := range []float64{4, 4, 4, 5} {
		assert.InDelta(t, want/norm, math.Abs(top[j]), 1e-9)
	}

	null, err := run.Eigenvector(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, null)

	share := run.ExplainedVariance()
	assert.InDelta(t, 1, share[0], 1e-9)
	assert.InDelta(t, 0, share[1], 1e-9)
}

func TestCompute_FormsAgree(t *testing.T) {
	direct, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{Form: FormDirect, SortDescending: true})
	require.NoError(t, err)
	snapshot, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{Form: FormSnapshot, SortDescending: true})
	require.NoError(t, err)

	assert.Equal(t, 4, direct.Len())
	assert.Equal(t, 2, snapshot.Len())
	assert.InDelta(t, snapshot.Eigenvalues()[0], direct.Eigenvalues()[0], 1e-9)

	a, _ := direct.Eigenvector(0)
	b, _ := snapshot.Eigenvector(0)
	dot, err := linalg.DotProduct(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1, math.Abs(dot), 1e-9)
}

func TestCompute_DefaultOrderTopComponentFirst(t *testing.T) {
	samples := linalg.Matrix{{1, 2, 3, 4}, {5, 6, 7, 9}, {0, 9, 2, 1}}
	run, err := Compute(context.Background(), samples, solver.Gonum{}, Options{})
	require.NoError(t, err)
	require.Equal(t, FormSnapshot, run.Form())

	values := run.Eigenvalues()
	require.Len(t, values, 3)
	assert.Greater(t, values[0], values[1])
	assert.Greater(t, values[1], values[2])
	assert.InDelta(t, 0, values[2], 1e-9)

	top, err := run.Eigenface(0, 255)
	require.NoError(t, err)
	assert.Contains(t, flattenSample(top), 255)

	null, err := run.Eigenvector(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, null)
}

func flattenSample(s types.Sample) []int {
	var out []int
	for _, row := range s {
		out = append(out, row...)
	}
	return out
}

func TestCompute_SingleSample(t *testing.T) {
	run, err := Compute(context.Background(), linalg.Matrix{{1, 2, 3, 4}}, solver.Gonum{}, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, run.Len())

	v, err := run.Eigenvector(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, v)

	face, err := run.Eigenface(0, 255)
	require.NoError(t, err)
	assert.Equal(t, types.Sample{{0, 0}, {0, 0}}, face)
}

func TestCompute_KeepsSolverOrderUnlessSorted(t *testing.T) {
	samples := linalg.Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}}
	canned := func() *types.EigenResult {
		return &types.EigenResult{
			Eigenvalues:  []float64{1, -5, 3},
			Eigenvectors: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		}
	}

	run, err := Compute(context.Background(), samples, &fakeSolver{res: canned()}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -5, 3}, run.Eigenvalues())

	sorted, err := Compute(context.Background(), samples, &fakeSolver{res: canned()}, Options{SortDescending: true})
	require.NoError(t, err)
	assert.Equal(t, []float64{-5, 3, 1}, sorted.Eigenvalues())
	v, _ := sorted.Eigenvector(0)
	assert.Equal(t, []float64{0, 1, 0}, v)
}

func TestCompute_SolverFailures(t *testing.T) {
	_, garbage := solver.ParseOutput("fake", []byte("not json at all"))
	require.Error(t, garbage)

	tests := []struct {
		name string
		s    *fakeSolver
	}{
		{"non-json output", &fakeSolver{err: garbage}},
		{"eigenvalues only", &fakeSolver{res: &types.EigenResult{Eigenvalues: []float64{1, 0}}}},
		{"wrong vector length", &fakeSolver{res: &types.EigenResult{Eigenvalues: []float64{1}, Eigenvectors: [][]float64{{1, 0, 0}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := Compute(context.Background(), twoFaces, tt.s, Options{})
			assert.Nil(t, run)
			var se *solver.SolverError
			assert.ErrorAs(t, err, &se)
			assert.Equal(t, 1, tt.s.calls)
		})
	}
}

func TestCompute_BadSamplesNeverReachSolver(t *testing.T) {
	s := &fakeSolver{}
	run, err := Compute(context.Background(), linalg.Matrix{{1, 2}, {3}}, s, Options{})
	assert.Nil(t, run)
	var dimErr *linalg.DimensionError
	assert.ErrorAs(t, err, &dimErr)
	assert.Zero(t, s.calls)
}

func TestRun_Faces(t *testing.T) {
	run, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{SortDescending: true})
	require.NoError(t, err)

	mean, err := run.MeanFace(255)
	require.NoError(t, err)
	assert.Equal(t, types.Sample{{0, 73}, {146, 255}}, mean)

	face, err := run.Eigenface(0, 255)
	require.NoError(t, err)
	// ±(4,4,4,5): three equal pixels at one end of the range, one at the other.
	flat := append(append([]int(nil), face[0]...), face[1]...)
	assert.Equal(t, flat[0], flat[1])
	assert.Equal(t, flat[1], flat[2])
	assert.ElementsMatch(t, []int{0, 255}, []int{flat[0], flat[3]})

	_, err = run.Eigenface(2, 255)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	_, err = run.Eigenface(-1, 255)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestRun_AccessorsCopy(t *testing.T) {
	run, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{})
	require.NoError(t, err)

	m := run.Mean()
	m[0] = 100
	assert.Equal(t, 3.0, run.Mean()[0])

	c := run.Centered()
	c[0][0] = 100
	assert.Equal(t, -2.0, run.Centered()[0][0])

	cov := run.Covariance()
	cov[0][0] = 0
	assert.Equal(t, 9.125, run.Covariance()[0][0])
}

func TestRestore(t *testing.T) {
	run, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{SortDescending: true})
	require.NoError(t, err)

	restored, err := Restore(run.State(), run.EigenResult(), nil)
	require.NoError(t, err)
	assert.Equal(t, run.Eigenvalues(), restored.Eigenvalues())
	assert.Equal(t, run.Form(), restored.Form())
	assert.Nil(t, restored.Covariance())

	want, _ := run.Eigenface(0, 255)
	got, err := restored.Eigenface(0, 255)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestore_KeepsRecordedForm(t *testing.T) {
	run, err := Compute(context.Background(), twoFaces, solver.Gonum{}, Options{Form: FormDirect})
	require.NoError(t, err)
	require.Equal(t, FormDirect, run.Form())

	state := run.State()
	assert.Equal(t, "direct", state.Form)
	restored, err := Restore(state, run.EigenResult(), nil)
	require.NoError(t, err)
	assert.Equal(t, FormDirect, restored.Form())

	state.Form = ""
	guessed, err := Restore(state, run.EigenResult(), nil)
	require.NoError(t, err)
	assert.Equal(t, FormSnapshot, guessed.Form())

	state.Form = "diagonal"
	_, err = Restore(state, run.EigenResult(), nil)
	assert.ErrorContains(t, err, "restoring form")
}

func TestRestore_Rejects(t *testing.T) {
	state := types.MeanState{Mean: []float64{1, 2}, AvgMatrix: [][]float64{{0, 0}}}
	_, err := Restore(state, types.EigenResult{Eigenvalues: []float64{1}, Eigenvectors: [][]float64{{1, 0, 0}}}, nil)
	var dimErr *linalg.DimensionError
	assert.ErrorAs(t, err, &dimErr)

	_, err = Restore(types.MeanState{Mean: []float64{1}, AvgMatrix: [][]float64{{0, 0}}}, types.EigenResult{}, nil)
	assert.ErrorAs(t, err, &dimErr)

	_, err = Restore(state, types.EigenResult{Eigenvalues: []float64{1}}, nil)
	assert.Error(t, err)
}
