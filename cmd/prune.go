package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pders01/shotvault/internal/history"
	"github.com/spf13/cobra"
)

var (
	pruneDryRun bool
	pruneFormat string
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Repair the history and enforce the storage budget",
	Long: `Bring the history back into a consistent state, then evict the oldest
screenshots until usage fits the storage budget.

Repair covers what an interrupted save can leave behind:
  - abandoned staging directories
  - catalog entries whose directory is gone
  - directories missing from the catalog (re-cataloged from meta.json,
    or removed when meta.json is unusable)

The budget is configured in ~/.config/shotvault/config.toml:
  [storage]
  budget_mb = 500

Examples:
  shotvault prune --dry-run   # Show what would be evicted
  shotvault prune`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Show what would be evicted without deleting")
	pruneCmd.Flags().StringVar(&pruneFormat, "format", formatText, "Output format: text|json|yaml|toon")
}

type pruneResult struct {
	Reconcile *history.ReconcileReport `json:"reconcile,omitempty" yaml:"reconcile,omitempty"`
	Enforce   history.EnforceReport    `json:"enforce" yaml:"enforce"`
}

func runPrune(cmd *cobra.Command, args []string) error {
	if err := validFormat(pruneFormat); err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	var result pruneResult

	if pruneDryRun {
		result.Enforce, err = svc.PlanEviction(ctx)
		if err != nil {
			return fmt.Errorf("failed to plan eviction: %w", err)
		}
	} else {
		rec, err := svc.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("failed to reconcile history: %w", err)
		}
		result.Reconcile = &rec

		result.Enforce, err = svc.Enforce(ctx)
		if err != nil {
			return fmt.Errorf("failed to enforce storage budget: %w", err)
		}
	}

	if done, err := printStructured(pruneFormat, result); done || err != nil {
		return err
	}

	if rec := result.Reconcile; rec != nil {
		if rec.Changed() {
			fmt.Println("Repaired history:")
			fmt.Printf("  Re-cataloged:      %d\n", len(rec.Adopted))
			fmt.Printf("  Dropped entries:   %d\n", len(rec.Dropped))
			fmt.Printf("  Removed orphans:   %d\n", len(rec.Removed))
			fmt.Printf("  Swept staging:     %d\n", len(rec.Swept))
			fmt.Println()
		} else {
			fmt.Println("History is consistent")
		}
	}

	rep := result.Enforce
	fmt.Printf("Storage budget: %s\n", humanize.IBytes(uint64(rep.BudgetBytes)))
	fmt.Printf("Used:           %s\n\n", humanize.IBytes(uint64(rep.BeforeBytes)))

	if len(rep.Evicted) == 0 {
		fmt.Println("Nothing to evict")
		printOverBudget(rep)
		return nil
	}

	if rep.DryRun {
		fmt.Printf("Screenshots to evict (%d), oldest first:\n", len(rep.Evicted))
	} else {
		fmt.Printf("Evicted %d screenshot(s), oldest first:\n", len(rep.Evicted))
	}
	for _, id := range rep.Evicted {
		fmt.Printf("  %s\n", id)
	}
	for _, id := range rep.Failed {
		fmt.Printf("  Error: could not evict %s\n", id)
	}
	fmt.Printf("\nUsage after: %s\n", humanize.IBytes(uint64(rep.AfterBytes)))
	printOverBudget(rep)

	if rep.DryRun {
		fmt.Println("\nThis is a dry run. Run without --dry-run to evict.")
	}
	return nil
}

func printOverBudget(rep history.EnforceReport) {
	if !rep.OverBudget() {
		return
	}
	fmt.Printf("\nWarning: still over budget by %s\n", humanize.IBytes(uint64(rep.AfterBytes-rep.BudgetBytes)))
}
