package cmd

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pders01/shotvault/internal/history"
	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/cobra"
)

var (
	archiveOutput string
	archiveTicket string
)

var archiveCmd = &cobra.Command{
	Use:   "archive <year|YYYY-MM|YYYY-MM-DD|all>",
	Short: "Bundle screenshots for external storage",
	Long: `Create a tar.gz archive of stored screenshots for backup or transfer.
Each screenshot directory is written under its id, meta.json included.

Examples:
  shotvault archive 2025                 # Everything captured in 2025
  shotvault archive 2025-01              # January 2025
  shotvault archive all --ticket JIRA-1  # Every screenshot of one ticket
  shotvault archive all --output shots.tar.gz`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveOutput, "output", "", "Output file path (default: shotvault-<period>.tar.gz)")
	archiveCmd.Flags().StringVar(&archiveTicket, "ticket", "", "Only screenshots with this ticket id")
}

func runArchive(cmd *cobra.Command, args []string) error {
	period := args[0]

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	items, err := svc.List(context.Background(), history.Query{Limit: math.MaxInt32})
	if err != nil {
		return fmt.Errorf("failed to list screenshots: %w", err)
	}

	var selected []models.Screenshot
	for _, it := range items {
		if period != "all" && !strings.HasPrefix(it.CreatedAt, period) {
			continue
		}
		if archiveTicket != "" && !strings.EqualFold(it.Ticket(), archiveTicket) {
			continue
		}
		selected = append(selected, it)
	}

	if len(selected) == 0 {
		fmt.Println("No screenshots match the filter criteria")
		return nil
	}

	outputFile := archiveOutput
	if outputFile == "" {
		outputFile = fmt.Sprintf("shotvault-%s.tar.gz", period)
	}

	fmt.Printf("Archiving %d screenshot(s) to: %s\n", len(selected), outputFile)

	if err := createArchive(outputFile, svc.Root(), selected); err != nil {
		os.Remove(outputFile)
		return fmt.Errorf("failed to create archive: %w", err)
	}

	if info, err := os.Stat(outputFile); err == nil {
		fmt.Printf("\n✓ Archive created: %s (%s)\n", outputFile, humanize.IBytes(uint64(info.Size())))
	} else {
		fmt.Printf("\n✓ Archive created: %s\n", outputFile)
	}
	return nil
}

func createArchive(filename, root string, items []models.Screenshot) error {
	outFile, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	tarWriter := tar.NewWriter(gzWriter)

	for i, it := range items {
		fmt.Printf("  [%d/%d] %s\n", i+1, len(items), it.ID)
		if err := addItemToArchive(tarWriter, root, it.ID); err != nil {
			return fmt.Errorf("failed to add %s: %w", it.ID, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return err
	}
	return outFile.Close()
}

func addItemToArchive(tw *tar.Writer, root, id string) error {
	itemDir := filepath.Join(root, id)
	return filepath.Walk(itemDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
}
