package types

// Sample is one parsed S×S grayscale image. Identity is its index in the dataset.
type Sample [][]int

// EigenResult matches the JSON object emitted by the eigen solver process and
// persisted to eigen.json. Eigenvectors[k] is the eigenvector paired with
// Eigenvalues[k].
type EigenResult struct {
	Eigenvalues  []float64   `json:"eigenvalues"`
	Eigenvectors [][]float64 `json:"eigenvectors"`
}

// Len returns the number of eigenpairs.
func (r *EigenResult) Len() int { return len(r.Eigenvalues) }

// MeanState is the persisted centering state: the mean face, the centered
// sample matrix and the covariance form the eigenpairs were solved in.
// Form is empty in documents written before it was recorded.
type MeanState struct {
	Mean      []float64   `json:"mean"`
	AvgMatrix [][]float64 `json:"avgMatrix"`
	Form      string      `json:"form,omitempty"`
}

// ErrorResult captures the error object a solver script may print on failure
type ErrorResult struct {
	Error string `json:"error"`
}
