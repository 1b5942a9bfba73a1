package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/andresmejia3/eigenfaces/internal/linalg"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("store: run not found")

// Store manages the PostgreSQL connection holding datasets and PCA runs.
type Store struct {
	conn *pgx.Conn
}

// Dataset describes an ingested face dump.
type Dataset struct {
	ID      string
	Path    string
	Samples int
	Side    int
}

// RunMeta is the descriptive part of a persisted run.
type RunMeta struct {
	ID        string
	DatasetID string
	Name      string
	Form      string
	Solver    string
	Sorted    bool
	CreatedAt time.Time
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunMeta
	DatasetPath string
	Samples     int
	Dim         int
	Eigenpairs  int
	TopValue    float64 // eigenvalue with the largest magnitude
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			samples INT NOT NULL,
			side INT NOT NULL,
			ingested_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS pca_runs (
			id TEXT PRIMARY KEY,
			dataset_id TEXT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT '',
			form TEXT NOT NULL,
			solver TEXT NOT NULL,
			sorted BOOLEAN NOT NULL DEFAULT FALSE,
			samples INT NOT NULL,
			dim INT NOT NULL,
			mean DOUBLE PRECISION[] NOT NULL,
			centered DOUBLE PRECISION[] NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS eigenpairs (
			run_id TEXT NOT NULL REFERENCES pca_runs(id) ON DELETE CASCADE,
			idx INT NOT NULL,
			eigenvalue DOUBLE PRECISION NOT NULL,
			vector DOUBLE PRECISION[] NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
		CREATE INDEX IF NOT EXISTS pca_runs_dataset_id_idx ON pca_runs (dataset_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// EnsureDataset registers the dataset. If it exists, its path and timestamp are refreshed.
func (s *Store) EnsureDataset(ctx context.Context, d Dataset) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO datasets (id, path, samples, side, ingested_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET ingested_at = NOW(), path = EXCLUDED.path
	`, d.ID, d.Path, d.Samples, d.Side)
	return err
}

// SaveRun stores the run row and one row per eigenpair in a single transaction.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, state types.MeanState, eigen types.EigenResult) error {
	centered := linalg.Matrix(state.AvgMatrix)
	if err := linalg.Validate(centered); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if len(eigen.Eigenvalues) != len(eigen.Eigenvectors) {
		return fmt.Errorf("store: %d eigenvalues but %d eigenvectors", len(eigen.Eigenvalues), len(eigen.Eigenvectors))
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO pca_runs (id, dataset_id, name, form, solver, sorted, samples, dim, mean, centered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, meta.ID, meta.DatasetID, meta.Name, meta.Form, meta.Solver, meta.Sorted,
		centered.Rows(), centered.Cols(), state.Mean, linalg.Flatten(centered))
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	batch := &pgx.Batch{}
	for k, value := range eigen.Eigenvalues {
		batch.Queue("INSERT INTO eigenpairs (run_id, idx, eigenvalue, vector) VALUES ($1, $2, $3, $4)",
			meta.ID, k, value, eigen.Eigenvectors[k])
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting eigenpairs: %w", err)
	}

	return tx.Commit(ctx)
}

// LoadRun fetches a run with its centering state and eigenpairs in stored order.
func (s *Store) LoadRun(ctx context.Context, id string) (RunMeta, types.MeanState, types.EigenResult, error) {
	var (
		meta     RunMeta
		state    types.MeanState
		eigen    types.EigenResult
		rows     int
		dim      int
		centered []float64
	)
	err := s.conn.QueryRow(ctx, `
		SELECT id, dataset_id, name, form, solver, sorted, created_at, samples, dim, mean, centered
		FROM pca_runs WHERE id = $1
	`, id).Scan(&meta.ID, &meta.DatasetID, &meta.Name, &meta.Form, &meta.Solver, &meta.Sorted,
		&meta.CreatedAt, &rows, &dim, &state.Mean, &centered)
	if errors.Is(err, pgx.ErrNoRows) {
		return meta, state, eigen, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return meta, state, eigen, err
	}
	if len(centered) != rows*dim {
		return meta, state, eigen, fmt.Errorf("store: run %s has %d centered values, want %d", id, len(centered), rows*dim)
	}
	state.Form = meta.Form
	state.AvgMatrix = make([][]float64, rows)
	for i := range state.AvgMatrix {
		state.AvgMatrix[i] = centered[i*dim : (i+1)*dim : (i+1)*dim]
	}

	pairs, err := s.conn.Query(ctx, "SELECT eigenvalue, vector FROM eigenpairs WHERE run_id = $1 ORDER BY idx", id)
	if err != nil {
		return meta, state, eigen, err
	}
	defer pairs.Close()
	for pairs.Next() {
		var value float64
		var vec []float64
		if err := pairs.Scan(&value, &vec); err != nil {
			return meta, state, eigen, err
		}
		eigen.Eigenvalues = append(eigen.Eigenvalues, value)
		eigen.Eigenvectors = append(eigen.Eigenvectors, vec)
	}
	return meta, state, eigen, pairs.Err()
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT r.id, r.dataset_id, r.name, r.form, r.solver, r.sorted, r.created_at,
		       d.path, r.samples, r.dim,
		       COUNT(e.idx), COALESCE(MAX(ABS(e.eigenvalue)), 0)
		FROM pca_runs r
		JOIN datasets d ON d.id = r.dataset_id
		LEFT JOIN eigenpairs e ON e.run_id = r.id
		GROUP BY r.id, d.path
		ORDER BY r.created_at DESC, r.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.Name, &r.Form, &r.Solver, &r.Sorted, &r.CreatedAt,
			&r.DatasetPath, &r.Samples, &r.Dim, &r.Eigenpairs, &r.TopValue); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RenameRun updates the display name of a run.
func (s *Store) RenameRun(ctx context.Context, id, name string) error {
	tag, err := s.conn.Exec(ctx, "UPDATE pca_runs SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return nil
}

// Reset drops all application tables to clear the database state.
// The schema is recreated on the next connection.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS eigenpairs CASCADE;
		DROP TABLE IF EXISTS pca_runs CASCADE;
		DROP TABLE IF EXISTS datasets CASCADE;
	`)
	return err
}
