// Package pca turns a stack of flattened face images into eigenfaces.
//
// Compute runs the whole pipeline once: mean-centering, covariance (direct
// D×D or snapshot N×N form), one call to an injected eigen solver and, for the
// snapshot form, back-projection of the eigenvectors into pixel space. The
// resulting Run is immutable; any change to the input requires a new Compute.
package pca

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/solver"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

// Options tune a pipeline run.
type Options struct {
	// Form selects the covariance formulation. FormAuto picks the cheaper one.
	Form Form
	// SortDescending reorders eigenpairs by |eigenvalue|, largest first. When
	// false the solver's order is kept and index k is just "the k-th pair the
	// solver returned".
	SortDescending bool
	Logger         *zerolog.Logger
}

// Run is the immutable result of one pipeline execution.
type Run struct {
	mean       []float64
	centered   linalg.Matrix
	covariance linalg.Matrix // nil for restored runs
	form       Form
	eigen      types.EigenResult // eigenvectors in pixel space
	log        zerolog.Logger
}

// Compute executes the pipeline over an N×D sample matrix. On failure it
// returns a nil Run and the first error encountered; solver failures are
// *solver.SolverError, shape problems *linalg.DimensionError.
func Compute(ctx context.Context, samples linalg.Matrix, s solver.Solver, opts Options) (*Run, error) {
	log := loggerOf(opts.Logger)

	mean, centered, err := Center(samples)
	if err != nil {
		return nil, fmt.Errorf("mean centering: %w", err)
	}
	n, d := centered.Dims()
	log.Debug().Int("samples", n).Int("dim", d).Msg("centered sample matrix")

	cov, form, err := Covariance(centered, opts.Form)
	if err != nil {
		return nil, fmt.Errorf("covariance: %w", err)
	}
	log.Info().Stringer("form", form).Int("size", cov.Rows()).Msg("covariance matrix built")

	raw, err := s.Solve(ctx, cov)
	if err != nil {
		return nil, fmt.Errorf("eigen decomposition: %w", err)
	}
	if len(raw.Eigenvectors) == 0 {
		return nil, fmt.Errorf("eigen decomposition: %w", &solver.SolverError{
			Backend:  fmt.Sprintf("%T", s),
			Reason:   "solver returned eigenvalues without eigenvectors",
			ExitCode: -1,
		})
	}
	if err := solver.Validate(fmt.Sprintf("%T", s), raw, cov.Rows()); err != nil {
		return nil, fmt.Errorf("eigen decomposition: %w", err)
	}

	eigen := types.EigenResult{
		Eigenvalues:  append([]float64(nil), raw.Eigenvalues...),
		Eigenvectors: make([][]float64, len(raw.Eigenvectors)),
	}
	for k, v := range raw.Eigenvectors {
		if form == FormSnapshot {
			u, err := BackProject(centered, v)
			if err != nil {
				return nil, fmt.Errorf("back-projecting eigenvector %d: %w", k, err)
			}
			eigen.Eigenvectors[k] = u
			continue
		}
		eigen.Eigenvectors[k] = append([]float64(nil), v...)
	}

	if opts.SortDescending {
		sortDescending(&eigen)
	}
	log.Info().Int("eigenpairs", eigen.Len()).Bool("sorted", opts.SortDescending).Msg("eigenfaces ready")

	return &Run{
		mean:       mean,
		centered:   centered,
		covariance: cov,
		form:       form,
		eigen:      eigen,
		log:        log,
	}, nil
}

// Restore rebuilds a Run from persisted state without recomputation. The
// eigenvectors must already be in pixel space (as written by a previous run).
// A state without a recorded form falls back to ChooseForm.
func Restore(state types.MeanState, eigen types.EigenResult, logger *zerolog.Logger) (*Run, error) {
	centered := linalg.Matrix(state.AvgMatrix)
	if err := linalg.Validate(centered); err != nil {
		return nil, fmt.Errorf("restoring centered matrix: %w", err)
	}
	d := centered.Cols()
	if len(state.Mean) != d {
		return nil, &linalg.DimensionError{Op: "restore", Reason: "mean length must equal sample dimension", Expected: d, Actual: len(state.Mean)}
	}
	if len(eigen.Eigenvectors) == 0 {
		return nil, fmt.Errorf("restoring eigen result: no eigenvectors")
	}
	if len(eigen.Eigenvalues) != len(eigen.Eigenvectors) {
		return nil, &linalg.DimensionError{Op: "restore", Reason: "eigenvalue and eigenvector counts differ", Expected: len(eigen.Eigenvalues), Actual: len(eigen.Eigenvectors)}
	}
	for k, v := range eigen.Eigenvectors {
		if len(v) != d {
			return nil, &linalg.DimensionError{Op: "restore", Reason: fmt.Sprintf("eigenvector %d length", k), Expected: d, Actual: len(v)}
		}
	}

	form, err := ParseForm(state.Form)
	if err != nil {
		return nil, fmt.Errorf("restoring form: %w", err)
	}
	if form == FormAuto {
		form = ChooseForm(centered.Rows(), d)
	}
	return &Run{
		mean:     append([]float64(nil), state.Mean...),
		centered: centered.Clone(),
		form:     form,
		eigen:    copyEigen(eigen),
		log:      loggerOf(logger),
	}, nil
}

// Mean returns a copy of the mean vector.
func (r *Run) Mean() []float64 { return append([]float64(nil), r.mean...) }

// Centered returns a copy of the centered sample matrix.
func (r *Run) Centered() linalg.Matrix { return r.centered.Clone() }

// Covariance returns a copy of the matrix handed to the solver, or nil for a
// restored run.
func (r *Run) Covariance() linalg.Matrix {
	if r.covariance == nil {
		return nil
	}
	return r.covariance.Clone()
}

// Form reports which covariance form produced the run.
func (r *Run) Form() Form { return r.form }

// Samples returns the number of samples N.
func (r *Run) Samples() int { return r.centered.Rows() }

// Dim returns the pixel dimension D.
func (r *Run) Dim() int { return len(r.mean) }

// Len returns the number of eigenpairs.
func (r *Run) Len() int { return r.eigen.Len() }

// Eigenvalues returns a copy of the eigenvalues in run order.
func (r *Run) Eigenvalues() []float64 { return append([]float64(nil), r.eigen.Eigenvalues...) }

// Eigenvector returns a copy of pixel-space eigenvector k.
func (r *Run) Eigenvector(k int) ([]float64, error) {
	if k < 0 || k >= r.eigen.Len() {
		return nil, fmt.Errorf("eigenvector %d of %d: %w", k, r.eigen.Len(), ErrIndexOutOfRange)
	}
	return append([]float64(nil), r.eigen.Eigenvectors[k]...), nil
}

// State returns the persistable centering state.
func (r *Run) State() types.MeanState {
	return types.MeanState{Mean: r.Mean(), AvgMatrix: r.Centered(), Form: r.form.String()}
}

// EigenResult returns a copy of the pixel-space eigen result.
func (r *Run) EigenResult() types.EigenResult { return copyEigen(r.eigen) }

// ExplainedVariance returns each eigenvalue's share of the total, with
// negative round-off eigenvalues counted as zero. All zeros when the total is 0.
func (r *Run) ExplainedVariance() []float64 {
	share := make([]float64, r.eigen.Len())
	var total float64
	for _, v := range r.eigen.Eigenvalues {
		total += math.Max(v, 0)
	}
	if total == 0 {
		return share
	}
	for k, v := range r.eigen.Eigenvalues {
		share[k] = math.Max(v, 0) / total
	}
	return share
}

func sortDescending(e *types.EigenResult) {
	idx := make([]int, e.Len())
	for k := range idx {
		idx[k] = k
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(math.Abs(e.Eigenvalues[b]), math.Abs(e.Eigenvalues[a]))
	})
	values := make([]float64, len(idx))
	vectors := make([][]float64, len(idx))
	for pos, k := range idx {
		values[pos] = e.Eigenvalues[k]
		vectors[pos] = e.Eigenvectors[k]
	}
	e.Eigenvalues, e.Eigenvectors = values, vectors
}

func copyEigen(e types.EigenResult) types.EigenResult {
	out := types.EigenResult{
		Eigenvalues:  append([]float64(nil), e.Eigenvalues...),
		Eigenvectors: make([][]float64, len(e.Eigenvectors)),
	}
	for k, v := range e.Eigenvectors {
		out.Eigenvectors[k] = append([]float64(nil), v...)
	}
	return out
}

func loggerOf(l *zerolog.Logger) zerolog.Logger {
	if l == nil {
		return zerolog.Nop()
	}
	return *l
}
