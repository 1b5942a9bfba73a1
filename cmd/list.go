package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all PCA runs stored in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runList(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command) error {
	ctx := cmd.Context()
	db, err := openStore(ctx)
	if err != nil {
		return fail("Failed to open database", err)
	}
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return fail("Failed to list runs", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found in database.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDATASET\tSAMPLES\tDIM\tFORM\tSOLVER\tPAIRS\tTOP λ\tCREATED")
	fmt.Fprintln(w, "--\t----\t-------\t-------\t---\t----\t------\t-----\t-----\t-------")

	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%d\t%.4g\t%s\n",
			r.ID, r.Name, r.DatasetPath, r.Samples, r.Dim, r.Form, r.Solver, r.Eigenpairs, r.TopValue,
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	w.Flush()
	return nil
}
