package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pders01/shotvault/internal/config"
	"github.com/pders01/shotvault/internal/history"
	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/cobra"
)

var (
	listLimit  int
	listFormat string
)

var listCmd = &cobra.Command{
	Use:   "list [search]",
	Short: "List stored screenshots, newest first",
	Long: `List stored screenshots sorted by creation time, newest first.

The optional search term is matched case-insensitively against the ticket
id and the creation timestamp.

Examples:
  shotvault list
  shotvault list jira
  shotvault list 2025-01 --limit 50
  shotvault list --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of results (default list.default_limit)")
	listCmd.Flags().StringVar(&listFormat, "format", formatText, "Output format: text|json|yaml|toon")
}

func runList(cmd *cobra.Command, args []string) error {
	if err := validFormat(listFormat); err != nil {
		return err
	}
	if listLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	q := history.Query{Limit: listLimit}
	if len(args) > 0 {
		q.Search = args[0]
	}
	if q.Limit == 0 {
		q.Limit = config.GetDefaultLimit()
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	items, err := svc.List(context.Background(), q)
	if err != nil {
		return fmt.Errorf("failed to list screenshots: %w", err)
	}

	if done, err := printStructured(listFormat, items); done || err != nil {
		return err
	}

	if len(items) == 0 {
		fmt.Println("No screenshots found")
		return nil
	}

	fmt.Printf("Found %d screenshot(s):\n\n", len(items))
	for _, it := range items {
		printListEntry(it)
	}
	return nil
}

func printListEntry(it models.Screenshot) {
	fmt.Printf("  %s\n", it.ID)
	fmt.Printf("    Created:     %s\n", displayTime(it))
	if it.TicketID != nil {
		fmt.Printf("    Ticket:      %s\n", *it.TicketID)
	}
	fmt.Printf("    Size:        %s\n", humanize.IBytes(uint64(it.SizeBytes)))
	fmt.Printf("    Annotations: %d\n", it.AnnotationCount)
	if it.UploadedURL != nil {
		fmt.Printf("    Uploaded:    %s\n", *it.UploadedURL)
	}
	fmt.Println()
}

// displayTime renders created_at in local time with a relative hint
func displayTime(it models.Screenshot) string {
	t, err := it.CreatedTime()
	if err != nil {
		return it.CreatedAt
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04:05"), humanize.Time(t))
}
