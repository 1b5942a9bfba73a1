package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andresmejia3/eigenfaces/internal/pca"
	"github.com/andresmejia3/eigenfaces/internal/render"
	"github.com/andresmejia3/eigenfaces/internal/statefile"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

// displayMax is the top of the display range images are normalized to.
const displayMax = 255

var renderOpts Options

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the mean face and eigenfaces of a run as PNG images",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		applyConfig(cmd, &renderOpts)
		return runRender(cmd.Context(), renderOpts)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOpts.OutputDir, "output", "o", "", "Directory for the PNG files (default from config: out)")
	renderCmd.Flags().StringVar(&renderOpts.StateDir, "state-dir", "", "Directory holding pca.json and eigen.json (default: the output directory)")
	renderCmd.Flags().StringVar(&renderOpts.RunID, "run", "", "Load the run from the database instead of state files")
	renderCmd.Flags().IntVarP(&renderOpts.Count, "count", "k", 0, "Number of eigenfaces to render (0 renders all)")
	renderCmd.Flags().IntVar(&renderOpts.Size, "size", 256, "Canvas edge in pixels")
	renderCmd.Flags().IntVarP(&renderOpts.NumEngines, "engines", "e", 4, "Number of parallel encoders")
	rootCmd.AddCommand(renderCmd)
}

// renderJob is one image to encode.
type renderJob struct {
	name  string
	image func() (types.Sample, error)
}

func runRender(ctx context.Context, opts Options) error {
	if err := validateRenderFlags(&opts); err != nil {
		return fail("Invalid render options", err)
	}

	run, err := loadRun(ctx, opts)
	if err != nil {
		return fail("Failed to load run", err)
	}

	count := run.Len()
	if opts.Count > 0 && opts.Count < count {
		count = opts.Count
	}
	jobs := []renderJob{{name: "mean.png", image: func() (types.Sample, error) { return run.MeanFace(displayMax) }}}
	for k := 0; k < count; k++ {
		k := k
		jobs = append(jobs, renderJob{
			name:  fmt.Sprintf("eigenface_%d.png", k),
			image: func() (types.Sample, error) { return run.Eigenface(k, displayMax) },
		})
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fail("Failed to create output directory", err)
	}
	fmt.Fprintf(os.Stderr, "🎨 Rendering %d images with %d engines...\n", len(jobs), opts.NumEngines)
	if err := renderAll(ctx, jobs, opts); err != nil {
		return fail("Rendering failed", err)
	}
	fmt.Printf("✅ Wrote %d images to %s\n", len(jobs), opts.OutputDir)
	return nil
}

func renderAll(ctx context.Context, jobs []renderJob, opts Options) error {
	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("🖼️  Rendering"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumEngines)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := job.image()
			if err != nil {
				return fmt.Errorf("%s: %w", job.name, err)
			}
			if err := render.WriteFile(filepath.Join(opts.OutputDir, job.name), img, opts.Size); err != nil {
				return fmt.Errorf("%s: %w", job.name, err)
			}
			bar.Add(1)
			return nil
		})
	}
	return g.Wait()
}

// loadRun restores a run from the database when a run id is given and from
// state files otherwise.
func loadRun(ctx context.Context, opts Options) (*pca.Run, error) {
	if opts.RunID != "" {
		db, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		_, state, eigen, err := db.LoadRun(ctx, opts.RunID)
		if err != nil {
			return nil, err
		}
		return pca.Restore(state, eigen, &Log)
	}
	dir := opts.StateDir
	if dir == "" {
		dir = opts.OutputDir
	}
	return statefile.Restore(dir, &Log)
}

func validateRenderFlags(opts *Options) error {
	if opts.OutputDir == "" {
		opts.OutputDir = "out"
	}
	if opts.Size < 1 {
		return fmt.Errorf("size must be >= 1, got %d", opts.Size)
	}
	if opts.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", opts.Count)
	}
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}
	if opts.RunID != "" && opts.StateDir != "" {
		return fmt.Errorf("--run and --state-dir are mutually exclusive")
	}
	return nil
}
