package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var metaFormat string

var metaCmd = &cobra.Command{
	Use:   "meta <id>",
	Short: "Show metadata for a screenshot",
	Long: `Display the catalog record of a stored screenshot.

Example:
  shotvault meta 3f1c2b1e-8f7a-4d3e-9c55-0a7d1c2e4b6f
  shotvault meta 3f1c2b1e-8f7a-4d3e-9c55-0a7d1c2e4b6f --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)

	metaCmd.Flags().StringVar(&metaFormat, "format", formatText, "Output format: text|json|yaml|toon")
}

func runMeta(cmd *cobra.Command, args []string) error {
	if err := validFormat(metaFormat); err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	item, err := svc.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	if done, err := printStructured(metaFormat, item); done || err != nil {
		return err
	}

	fmt.Printf("Screenshot: %s\n\n", item.ID)
	fmt.Printf("Created:       %s\n", displayTime(item))
	fmt.Printf("Ticket:        %s\n", orNone(item.Ticket()))
	fmt.Printf("Size:          %s (%d bytes)\n", humanize.IBytes(uint64(item.SizeBytes)), item.SizeBytes)
	fmt.Printf("Annotations:   %d\n", item.AnnotationCount)
	fmt.Printf("Original:      %s\n", item.OriginalPath)
	if item.AnnotatedPath != nil {
		fmt.Printf("Annotated:     %s\n", *item.AnnotatedPath)
	}
	fmt.Printf("Thumbnail:     %s\n", item.ThumbnailPath)
	if item.UploadedURL != nil {
		fmt.Printf("Uploaded URL:  %s\n", *item.UploadedURL)
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
