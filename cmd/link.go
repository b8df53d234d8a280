package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <id> <url>",
	Short: "Record where a screenshot was uploaded",
	Long: `Attach the URL a screenshot was uploaded to. The URL must be an
absolute http or https URL.

Example:
  shotvault link 3f1c2b1e-8f7a-4d3e-9c55-0a7d1c2e4b6f https://files.example.com/a.png`,
	Args: cobra.ExactArgs(2),
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	item, err := svc.SetUploadedURL(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("failed to record uploaded url: %w", err)
	}

	fmt.Printf("✓ %s -> %s\n", item.ID, *item.UploadedURL)
	return nil
}
