package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var labelCmd = &cobra.Command{
	Use:   "label <run_id> <name>",
	Short: "Assign a name to a stored PCA run",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runLabel(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}

func runLabel(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail("Invalid label", fmt.Errorf("name must not be empty"))
	}
	db, err := openStore(ctx)
	if err != nil {
		return fail("Failed to open database", err)
	}
	if err := db.RenameRun(ctx, id, name); err != nil {
		return fail("Failed to label run", err)
	}

	fmt.Printf("✅ Run %s labeled as '%s'\n", id, name)
	return nil
}
