// Package solver adapts external eigen-decomposition routines to the PCA
// pipeline. A Solver receives a symmetric matrix and returns eigenvalues and
// eigenvectors without any ordering guarantee.
package solver

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

// Solver computes the eigen decomposition of a symmetric square matrix.
type Solver interface {
	Solve(ctx context.Context, m linalg.Matrix) (*types.EigenResult, error)
}

// maxQuoted bounds how much raw solver output is echoed in an error message.
const maxQuoted = 256

// SolverError reports a failed or malformed eigen computation. It is fatal to
// the run: no part of the result is usable.
type SolverError struct {
	Backend  string
	Reason   string
	ExitCode int    // process exit code, -1 when not applicable
	Output   string // raw stdout (possibly truncated)
	Stderr   string
	cause    error
}

func (e *SolverError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "solver(%s): %s", e.Backend, e.Reason)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		if len(out) > maxQuoted {
			out = out[:maxQuoted] + "..."
		}
		fmt.Fprintf(&b, "; output: %q", out)
	}
	return b.String()
}

func (e *SolverError) Unwrap() error { return e.cause }

func newError(backend, reason string, cause error) *SolverError {
	return &SolverError{Backend: backend, Reason: reason, ExitCode: -1, cause: cause}
}

// rawOutput is the union of the accepted stdout shapes.
type rawOutput struct {
	types.EigenResult
	types.ErrorResult
}

// ParseOutput decodes solver stdout. Two shapes are accepted: an object
// {"eigenvalues": [...], "eigenvectors": [[...]...]} and, for the
// eigenvalues-only variant, a bare array of numbers (Eigenvectors is then nil).
// An object carrying an "error" field, empty output, non-JSON text or a
// truncated document is a *SolverError.
func ParseOutput(backend string, raw []byte) (*types.EigenResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, newError(backend, "empty output", nil)
	}

	fail := func(reason string, cause error) error {
		e := newError(backend, reason, cause)
		e.Output = string(raw)
		return e
	}

	switch trimmed[0] {
	case '[':
		var values []float64
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return nil, fail("malformed eigenvalue array", err)
		}
		return &types.EigenResult{Eigenvalues: values}, nil
	case '{':
		var out rawOutput
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fail("malformed output", err)
		}
		if out.Error != "" {
			return nil, fail("solver reported error: "+out.Error, nil)
		}
		if out.Eigenvalues == nil {
			return nil, fail("output has no eigenvalues", nil)
		}
		return &types.EigenResult{Eigenvalues: out.Eigenvalues, Eigenvectors: out.Eigenvectors}, nil
	default:
		return nil, fail("output is not JSON", nil)
	}
}

// Validate checks a parsed result against the dimension of the matrix that was
// solved. Eigenvectors may be absent (eigenvalues-only variant); when present
// there must be one per eigenvalue, each of length dim.
func Validate(backend string, res *types.EigenResult, dim int) error {
	n := len(res.Eigenvalues)
	if n == 0 {
		return newError(backend, "no eigenvalues returned", nil)
	}
	if n > dim {
		return newError(backend, fmt.Sprintf("%d eigenvalues for a %dx%d matrix", n, dim, dim), nil)
	}
	for k, v := range res.Eigenvalues {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newError(backend, fmt.Sprintf("eigenvalue %d is not finite", k), nil)
		}
	}
	if res.Eigenvectors == nil {
		return nil
	}
	if len(res.Eigenvectors) != n {
		return newError(backend, fmt.Sprintf("%d eigenvectors for %d eigenvalues", len(res.Eigenvectors), n), nil)
	}
	for k, vec := range res.Eigenvectors {
		if len(vec) != dim {
			return newError(backend, fmt.Sprintf("eigenvector %d has length %d, want %d", k, len(vec), dim), nil)
		}
		for _, x := range vec {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return newError(backend, fmt.Sprintf("eigenvector %d is not finite", k), nil)
			}
		}
	}
	return nil
}

// requireSquare rejects inputs that cannot be eigen-decomposed at all. This is
// a precondition failure, reported as a *linalg.DimensionError.
func requireSquare(m linalg.Matrix) error {
	if err := linalg.Validate(m); err != nil {
		return err
	}
	if m.Rows() != m.Cols() {
		return &linalg.DimensionError{
			Op:       "eigen solve",
			Reason:   "matrix must be square",
			Expected: m.Rows(),
			Actual:   m.Cols(),
		}
	}
	return nil
}
