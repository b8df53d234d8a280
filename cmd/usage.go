package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/cobra"
)

var usageFormat string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show storage usage against the budget",
	Long: `Measure the history on disk and compare it with the storage budget.

Usage is recomputed from the item directories every time; the catalog
document itself is not counted.

Examples:
  shotvault usage
  shotvault usage --format json
  shotvault usage --format toon`,
	Args: cobra.NoArgs,
	RunE: runUsage,
}

func init() {
	rootCmd.AddCommand(usageCmd)

	usageCmd.Flags().StringVar(&usageFormat, "format", formatText, "Output format: text|json|yaml|toon")
}

func runUsage(cmd *cobra.Command, args []string) error {
	if err := validFormat(usageFormat); err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	u, err := svc.Usage(context.Background())
	if err != nil {
		return fmt.Errorf("failed to compute usage: %w", err)
	}

	if done, err := printStructured(usageFormat, u); done || err != nil {
		return err
	}

	fmt.Println("Storage Usage")
	fmt.Println("━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Printf("Root:        %s\n", svc.Root())
	fmt.Printf("Screenshots: %d\n", u.ItemCount)
	fmt.Printf("Used:        %s\n", humanize.IBytes(uint64(u.UsedBytes)))
	fmt.Printf("Budget:      %s\n", humanize.IBytes(uint64(u.BudgetBytes)))
	fmt.Printf("             %s %.1f%%\n", usageBar(u), u.Percent())
	return nil
}

func usageBar(u models.Usage) string {
	const width = 20
	filled := int(u.Percent() / 100 * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
