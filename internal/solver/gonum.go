package solver

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

const gonumBackend = "gonum"

// Gonum solves in-process with gonum's symmetric eigen decomposition. Only the
// upper triangle of the input is read. Eigenpairs come back largest
// eigenvalue first, the same order as the bundled python script.
type Gonum struct{}

// Solve implements Solver.
func (Gonum) Solve(ctx context.Context, m linalg.Matrix) (*types.EigenResult, error) {
	if err := requireSquare(m); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, newError(gonumBackend, "cancelled", err)
	}

	n := m.Rows()
	sym := mat.NewSymDense(n, linalg.Flatten(m))

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return nil, newError(gonumBackend, "eigen decomposition did not converge", nil)
	}

	values := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// gonum returns ascending eigenvalues; walk them backwards.
	res := &types.EigenResult{
		Eigenvalues:  make([]float64, n),
		Eigenvectors: make([][]float64, n),
	}
	for k := range values {
		src := n - 1 - k
		res.Eigenvalues[k] = values[src]
		res.Eigenvectors[k] = mat.Col(nil, src, &vecs)
	}
	if err := Validate(gonumBackend, res, n); err != nil {
		return nil, err
	}
	return res, nil
}
