package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pders01/shotvault/internal/history"
	"github.com/spf13/cobra"
)

var (
	saveOriginal    string
	saveAnnotated   string
	saveThumbnail   string
	saveAnnotations string
	saveTicket      string
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store a screenshot in the history",
	Long: `Copy a captured screenshot and its exports into the history.

The original and thumbnail images are required. The annotation document
is read from a file, or from stdin when given as "-". After saving, the
oldest screenshots are evicted until the history fits the storage budget.

Examples:
  shotvault save --original shot.png --thumbnail thumb.png
  shotvault save --original shot.png --annotated out.png --thumbnail thumb.png \
    --annotations shapes.json --ticket JIRA-123`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringVar(&saveOriginal, "original", "", "Original capture (PNG)")
	saveCmd.Flags().StringVar(&saveAnnotated, "annotated", "", "Annotated export (PNG, optional)")
	saveCmd.Flags().StringVar(&saveThumbnail, "thumbnail", "", "Thumbnail (PNG)")
	saveCmd.Flags().StringVar(&saveAnnotations, "annotations", "", `Annotation document (JSON file, "-" for stdin)`)
	saveCmd.Flags().StringVar(&saveTicket, "ticket", "", "Ticket id, e.g. JIRA-123")
}

func runSave(cmd *cobra.Command, args []string) error {
	if saveOriginal == "" || saveThumbnail == "" {
		return fmt.Errorf("--original and --thumbnail are required")
	}

	annotations, err := readAnnotations(saveAnnotations)
	if err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	id, err := svc.Save(context.Background(), history.SaveRequest{
		OriginalPath:  saveOriginal,
		AnnotatedPath: saveAnnotated,
		ThumbnailPath: saveThumbnail,
		Annotations:   annotations,
		TicketID:      saveTicket,
	})
	if err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}

	fmt.Println(id)
	return nil
}

func readAnnotations(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read annotations from stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read annotations: %w", err)
		}
		return data, nil
	}
}
