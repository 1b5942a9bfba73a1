package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/eigenfaces/internal/pca"
)

var inspectOpts Options

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Tabulate the eigenvalues of a run with their explained variance",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		applyConfig(cmd, &inspectOpts)
		return runInspect(cmd.Context(), inspectOpts)
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectOpts.StateDir, "state-dir", "", "Directory holding pca.json and eigen.json (default: the output directory)")
	inspectCmd.Flags().StringVar(&inspectOpts.RunID, "run", "", "Load the run from the database instead of state files")
	inspectCmd.Flags().StringVarP(&inspectOpts.OutputDir, "output", "o", "", "Output directory used by compute (default from config: out)")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(ctx context.Context, opts Options) error {
	if opts.OutputDir == "" {
		opts.OutputDir = "out"
	}
	run, err := loadRun(ctx, opts)
	if err != nil {
		return fail("Failed to load run", err)
	}
	writeEigenTable(os.Stdout, run)
	return nil
}

func writeEigenTable(out io.Writer, run *pca.Run) {
	fmt.Fprintf(out, "%d samples, dim %d, %s form\n\n", run.Samples(), run.Dim(), run.Form())

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "K\tEIGENVALUE\tVARIANCE\tCUMULATIVE")
	fmt.Fprintln(w, "-\t----------\t--------\t----------")

	var cumulative float64
	share := run.ExplainedVariance()
	for k, v := range run.Eigenvalues() {
		cumulative += share[k]
		fmt.Fprintf(w, "%d\t%.6g\t%.2f%%\t%.2f%%\n", k, v, share[k]*100, cumulative*100)
	}
	w.Flush()
}
