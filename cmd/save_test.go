package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/config"
	"github.com/pders01/shotvault/internal/models"
	"github.com/pders01/shotvault/internal/testutil"
	"github.com/spf13/viper"
)

// setupStore points the commands at a fresh storage root
func setupStore(t *testing.T) *testutil.TempStore {
	t.Helper()

	store := testutil.NewTempStore(t)
	viper.Reset()
	config.SetDefaults()
	viper.Set("storage.root", store.Root)
	t.Cleanup(viper.Reset)
	return store
}

// captureStdout runs fn and returns everything it printed
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	old := os.Stdout
	os.Stdout = w

	out := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		out <- buf.String()
	}()

	runErr := fn()
	w.Close()
	os.Stdout = old
	return <-out, runErr
}

func resetSaveFlags() {
	saveOriginal = ""
	saveAnnotated = ""
	saveThumbnail = ""
	saveAnnotations = ""
	saveTicket = ""
}

// createTestScreenshot saves a screenshot through the save command and returns its id
func createTestScreenshot(t *testing.T, store *testutil.TempStore, ticket string) string {
	t.Helper()

	resetSaveFlags()
	saveOriginal = store.CreateImage("original.png", 2048)
	saveThumbnail = store.CreateImage("thumbnail.png", 128)
	saveAnnotations = store.CreateFile("annotations.json", []byte(`[{"type":"arrow"}]`))
	saveTicket = ticket

	output, err := captureStdout(t, func() error { return runSave(nil, nil) })
	if err != nil {
		t.Fatalf("save command failed: %v", err)
	}
	return strings.TrimSpace(output)
}

func TestSaveCommand(t *testing.T) {
	store := setupStore(t)

	resetSaveFlags()
	saveOriginal = store.CreateImage("original.png", 4096)
	saveAnnotated = store.CreateImage("annotated.png", 5000)
	saveThumbnail = store.CreateImage("thumbnail.png", 256)
	saveAnnotations = store.CreateFile("annotations.json", []byte(`[{"type":"arrow"},{"type":"text"}]`))
	saveTicket = "JIRA-77"

	output, err := captureStdout(t, func() error { return runSave(nil, nil) })
	if err != nil {
		t.Fatalf("save command failed: %v", err)
	}
	id := strings.TrimSpace(output)

	dirs := store.ItemDirs()
	if len(dirs) != 1 || dirs[0] != id {
		t.Fatalf("expected item dir %q, got %v", id, dirs)
	}

	for _, name := range []string{"original.png", "annotated.png", "thumbnail.png", "annotations.json", "meta.json"} {
		if !store.FileExists(id, name) {
			t.Errorf("%s not stored", name)
		}
	}

	var meta models.Screenshot
	if err := json.Unmarshal(store.GetFileContent(id, "meta.json"), &meta); err != nil {
		t.Fatalf("failed to parse meta.json: %v", err)
	}
	if meta.Ticket() != "JIRA-77" {
		t.Errorf("expected ticket JIRA-77, got %q", meta.Ticket())
	}
	if meta.AnnotationCount != 2 {
		t.Errorf("expected 2 annotations, got %d", meta.AnnotationCount)
	}
	if meta.UploadedURL != nil {
		t.Errorf("expected no uploaded url, got %q", *meta.UploadedURL)
	}
}

func TestSaveMissingRequiredFlags(t *testing.T) {
	store := setupStore(t)

	resetSaveFlags()
	saveOriginal = store.CreateImage("original.png", 10)

	if err := runSave(nil, nil); err == nil {
		t.Error("expected error without --thumbnail")
	}
	if dirs := store.ItemDirs(); len(dirs) != 0 {
		t.Errorf("expected nothing stored, got %v", dirs)
	}
}

func TestSaveInvalidAnnotations(t *testing.T) {
	store := setupStore(t)

	resetSaveFlags()
	saveOriginal = store.CreateImage("original.png", 10)
	saveThumbnail = store.CreateImage("thumbnail.png", 10)
	saveAnnotations = store.CreateFile("annotations.json", []byte(`[{"broken"`))

	if err := runSave(nil, nil); err == nil {
		t.Error("expected error with malformed annotations")
	}
	if dirs := store.ItemDirs(); len(dirs) != 0 {
		t.Errorf("expected nothing stored, got %v", dirs)
	}
}

func TestSaveEnforcesBudget(t *testing.T) {
	store := setupStore(t)
	viper.Set("storage.budget_mb", 1)

	resetSaveFlags()
	saveOriginal = store.CreateImage("original.png", 600*1024)
	saveThumbnail = store.CreateImage("thumbnail.png", 1024)

	var ids []string
	for i := 0; i < 3; i++ {
		output, err := captureStdout(t, func() error { return runSave(nil, nil) })
		if err != nil {
			t.Fatalf("save command failed: %v", err)
		}
		ids = append(ids, strings.TrimSpace(output))
	}

	// Each item is ~600 KiB, so only the newest fits in 1 MiB.
	dirs := store.ItemDirs()
	if len(dirs) != 1 || dirs[0] != ids[2] {
		t.Errorf("expected only %s to remain, got %v", ids[2], dirs)
	}
}
