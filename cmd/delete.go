package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete screenshots from the history",
	Long: `Remove screenshots and their catalog entries.

Deleting an id that is not stored succeeds.

Example:
  shotvault delete 3f1c2b1e-8f7a-4d3e-9c55-0a7d1c2e4b6f`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	for _, id := range args {
		if err := svc.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", id, err)
		}
		fmt.Printf("✓ Deleted %s\n", id)
	}
	return nil
}
