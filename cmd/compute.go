package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/eigenfaces/internal/dataset"
	"github.com/andresmejia3/eigenfaces/internal/pca"
	"github.com/andresmejia3/eigenfaces/internal/solver"
	"github.com/andresmejia3/eigenfaces/internal/statefile"
	"github.com/andresmejia3/eigenfaces/internal/store"
	"github.com/andresmejia3/eigenfaces/internal/utils"
)

var computeOpts Options

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute eigenfaces for a face dump and write the run state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		applyConfig(cmd, &computeOpts)
		return runCompute(cmd.Context(), computeOpts)
	},
}

func init() {
	computeCmd.Flags().StringVarP(&computeOpts.InputPath, "input", "i", "", "Path to the face dump")
	computeCmd.Flags().StringVarP(&computeOpts.OutputDir, "output", "o", "", "Directory for pca.json and eigen.json (default from config: out)")
	computeCmd.Flags().StringVarP(&computeOpts.Form, "form", "f", "", "Covariance form: auto, direct, snapshot")
	computeCmd.Flags().StringVarP(&computeOpts.Solver, "solver", "s", "", "Eigen solver backend: python, gonum")
	computeCmd.Flags().BoolVar(&computeOpts.Sort, "sort", false, "Order eigenpairs by |eigenvalue|, largest first")
	computeCmd.Flags().BoolVar(&computeOpts.Save, "save", false, "Persist the run to PostgreSQL")

	computeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(computeCmd)
}

// applyConfig fills options the user did not set on the command line.
func applyConfig(cmd *cobra.Command, opts *Options) {
	if Cfg == nil {
		return
	}
	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if !set("output") {
		opts.OutputDir = Cfg.OutputDir
	}
	if !set("form") {
		opts.Form = Cfg.Pipeline.Form
	}
	if !set("solver") {
		opts.Solver = Cfg.Solver.Backend
	}
	if !set("sort") {
		opts.Sort = Cfg.Pipeline.Sort
	}
	if !set("size") {
		opts.Size = Cfg.Render.Size
	}
	if !set("count") {
		opts.Count = Cfg.Render.Count
	}
	if !set("engines") {
		opts.NumEngines = Cfg.Render.Engines
	}
}

func runCompute(ctx context.Context, opts Options) error {
	if err := validateComputeFlags(&opts); err != nil {
		return fail("Invalid compute options", err)
	}
	form, _ := pca.ParseForm(opts.Form)

	samples, err := dataset.ParseFile(opts.InputPath)
	if err != nil {
		return fail("Failed to parse dataset", err)
	}
	side := len(samples[0])
	datasetID, err := utils.DatasetID(opts.InputPath)
	if err != nil {
		return fail("Failed to generate dataset ID", err)
	}
	fmt.Fprintf(os.Stderr, "📥 Dataset %s: %d samples of %dx%d\n", utils.ShortID(datasetID), len(samples), side, side)

	s, err := newSolver(opts.Solver)
	if err != nil {
		return fail("Failed to configure solver", err)
	}

	fmt.Fprintf(os.Stderr, "🧮 Running PCA (form %s, solver %s)...\n", form, opts.Solver)
	run, err := pca.Compute(ctx, dataset.SampleMatrix(samples), s, pca.Options{
		Form:           form,
		SortDescending: opts.Sort,
		Logger:         &Log,
	})
	if err != nil {
		return fail("PCA computation failed", err)
	}

	if err := statefile.Save(opts.OutputDir, run); err != nil {
		return fail("Failed to write run state", err)
	}
	fmt.Fprintf(os.Stderr, "💾 State written to %s (%s, %s)\n", opts.OutputDir, statefile.MeanFile, statefile.EigenFile)

	if opts.Save {
		id, err := saveRun(ctx, opts, run, datasetID, side)
		if err != nil {
			return fail("Failed to persist run", err)
		}
		fmt.Fprintf(os.Stderr, "🗄️  Run saved as %s\n", id)
	}

	printRunSummary(run)
	return nil
}

func saveRun(ctx context.Context, opts Options, run *pca.Run, datasetID string, side int) (string, error) {
	db, err := openStore(ctx)
	if err != nil {
		return "", err
	}
	if err := db.EnsureDataset(ctx, store.Dataset{ID: datasetID, Path: opts.InputPath, Samples: run.Samples(), Side: side}); err != nil {
		return "", err
	}
	meta := store.RunMeta{
		ID:        uuid.NewString(),
		DatasetID: datasetID,
		Form:      run.Form().String(),
		Solver:    opts.Solver,
		Sorted:    opts.Sort,
	}
	if err := db.SaveRun(ctx, meta, run.State(), run.EigenResult()); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func printRunSummary(run *pca.Run) {
	values := run.Eigenvalues()
	share := run.ExplainedVariance()
	fmt.Printf("✅ %d eigenfaces from %d samples (dim %d, %s form)\n", run.Len(), run.Samples(), run.Dim(), run.Form())
	shown := min(len(values), 5)
	for k := 0; k < shown; k++ {
		fmt.Printf("   #%d  λ=%.6g  (%.1f%%)\n", k, values[k], share[k]*100)
	}
	if len(values) > shown {
		fmt.Printf("   ... %d more (see 'eigenfaces inspect')\n", len(values)-shown)
	}
}

func newSolver(name string) (solver.Solver, error) {
	switch strings.ToLower(name) {
	case "gonum":
		return solver.Gonum{}, nil
	case "python", "":
		p := solver.NewPython(Cfg.Solver.Script)
		p.Command = Cfg.Solver.Python
		p.MaxOutput = Cfg.Solver.MaxOutput
		p.Logger = &Log
		timeout, err := Cfg.SolverTimeout()
		if err != nil {
			return nil, err
		}
		p.Timeout = timeout
		return p, nil
	}
	return nil, fmt.Errorf("unknown solver %q (want python or gonum)", name)
}

func validateComputeFlags(opts *Options) error {
	if err := requireFile(opts.InputPath); err != nil {
		return err
	}
	if _, err := pca.ParseForm(opts.Form); err != nil {
		return err
	}
	switch strings.ToLower(opts.Solver) {
	case "python", "gonum", "":
	default:
		return fmt.Errorf("unknown solver %q (want python or gonum)", opts.Solver)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "out"
	}
	return nil
}

func requireFile(path string) error {
	if path == "" {
		return fmt.Errorf("input path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %w", err)
		}
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected a face dump", path)
	}
	return nil
}
