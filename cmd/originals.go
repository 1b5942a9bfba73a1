package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/eigenfaces/internal/dataset"
	"github.com/andresmejia3/eigenfaces/internal/types"
)

var originalsOpts Options

var originalsCmd = &cobra.Command{
	Use:   "originals",
	Short: "Render the raw samples of a face dump as PNG images",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		applyConfig(cmd, &originalsOpts)
		return runOriginals(cmd.Context(), originalsOpts)
	},
}

func init() {
	originalsCmd.Flags().StringVarP(&originalsOpts.InputPath, "input", "i", "", "Path to the face dump")
	originalsCmd.Flags().StringVarP(&originalsOpts.OutputDir, "output", "o", "", "Directory for the PNG files (default from config: out)")
	originalsCmd.Flags().IntVar(&originalsOpts.Size, "size", 256, "Canvas edge in pixels")
	originalsCmd.Flags().IntVarP(&originalsOpts.NumEngines, "engines", "e", 4, "Number of parallel encoders")

	originalsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(originalsCmd)
}

func runOriginals(ctx context.Context, opts Options) error {
	if err := requireFile(opts.InputPath); err != nil {
		return fail("Invalid originals options", err)
	}
	if err := validateRenderFlags(&opts); err != nil {
		return fail("Invalid originals options", err)
	}

	samples, err := dataset.ParseFile(opts.InputPath)
	if err != nil {
		return fail("Failed to parse dataset", err)
	}

	jobs := make([]renderJob, len(samples))
	for i, s := range samples {
		s := s
		jobs[i] = renderJob{
			name:  fmt.Sprintf("original_%d.png", i),
			image: func() (types.Sample, error) { return s, nil },
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fail("Failed to create output directory", err)
	}
	if err := renderAll(ctx, jobs, opts); err != nil {
		return fail("Rendering failed", err)
	}
	fmt.Printf("✅ Wrote %d originals to %s\n", len(jobs), opts.OutputDir)
	return nil
}
