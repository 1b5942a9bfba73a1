package pca

import (
	"fmt"
	"strings"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
)

// Form selects which symmetric matrix is handed to the eigen solver.
type Form int

const (
	// FormAuto picks FormDirect when D <= N and FormSnapshot otherwise.
	FormAuto Form = iota
	// FormDirect is the D×D pixel covariance Cᵀ·C / N.
	FormDirect
	// FormSnapshot is the N×N Gram matrix C·Cᵀ / N. Its eigenvectors live in
	// sample space and must be back-projected with BackProject.
	FormSnapshot
)

func (f Form) String() string {
	switch f {
	case FormAuto:
		return "auto"
	case FormDirect:
		return "direct"
	case FormSnapshot:
		return "snapshot"
	default:
		return fmt.Sprintf("Form(%d)", int(f))
	}
}

// ParseForm maps "auto", "direct" and "snapshot" (case-insensitive) to a Form.
func ParseForm(s string) (Form, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormAuto, nil
	case "direct":
		return FormDirect, nil
	case "snapshot", "gram":
		return FormSnapshot, nil
	}
	return FormAuto, fmt.Errorf("unknown covariance form %q (want auto, direct or snapshot)", s)
}

// ChooseForm resolves FormAuto for an N×D centered matrix.
func ChooseForm(n, d int) Form {
	if d <= n {
		return FormDirect
	}
	return FormSnapshot
}

// Covariance builds the symmetric matrix for the requested form and returns it
// along with the form actually used (FormAuto is resolved). Both forms are
// divided by N, so their non-zero eigenvalues coincide.
func Covariance(centered linalg.Matrix, form Form) (linalg.Matrix, Form, error) {
	if err := linalg.Validate(centered); err != nil {
		return nil, form, err
	}
	n, d := centered.Dims()
	if form == FormAuto {
		form = ChooseForm(n, d)
	}

	t, err := linalg.Transpose(centered)
	if err != nil {
		return nil, form, err
	}

	var g linalg.Matrix
	switch form {
	case FormDirect:
		g, err = linalg.Multiply(t, centered)
	case FormSnapshot:
		g, err = linalg.Multiply(centered, t)
	default:
		return nil, form, fmt.Errorf("pca: unsupported covariance form %v", form)
	}
	if err != nil {
		return nil, form, err
	}
	return linalg.Scale(g, 1.0/float64(n)), form, nil
}

// BackProject maps a Gram-space eigenvector v (length N) to pixel space:
// u = Cᵀ·v, rescaled to unit length. A numerically zero projection, which
// belongs to a zero eigenvalue, is returned as the zero vector.
func BackProject(centered linalg.Matrix, v []float64) ([]float64, error) {
	if err := linalg.Validate(centered); err != nil {
		return nil, err
	}
	if len(v) != centered.Rows() {
		return nil, &linalg.DimensionError{
			Op:       "back-project",
			Reason:   "eigenvector length must equal sample count",
			Expected: centered.Rows(),
			Actual:   len(v),
		}
	}

	u := make([]float64, centered.Cols())
	for i, row := range centered {
		w := v[i]
		if w == 0 {
			continue
		}
		for j, c := range row {
			u[j] += w * c
		}
	}

	norm := linalg.Norm(u)
	if norm < zeroNorm {
		for j := range u {
			u[j] = 0
		}
		return u, nil
	}
	for j := range u {
		u[j] /= norm
	}
	return u, nil
}

// zeroNorm is the length below which a back-projected vector is treated as the
// null direction of the centered data.
const zeroNorm = 1e-10
