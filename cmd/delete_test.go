package cmd

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/models"
)

func TestDeleteCommand(t *testing.T) {
	store := setupStore(t)
	keep := createTestScreenshot(t, store, "")
	drop := createTestScreenshot(t, store, "")

	if _, err := captureStdout(t, func() error { return runDelete(nil, []string{drop}) }); err != nil {
		t.Fatalf("delete command failed: %v", err)
	}
	if dirs := store.ItemDirs(); len(dirs) != 1 || dirs[0] != keep {
		t.Errorf("expected only %s to remain, got %v", keep, dirs)
	}

	// Deleting again is not an error
	if _, err := captureStdout(t, func() error { return runDelete(nil, []string{drop}) }); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestDeleteInvalidID(t *testing.T) {
	setupStore(t)

	if err := runDelete(nil, []string{"../outside"}); err == nil {
		t.Error("expected error for path-like id")
	}
}

func TestLinkCommand(t *testing.T) {
	store := setupStore(t)
	id := createTestScreenshot(t, store, "")

	output, err := captureStdout(t, func() error {
		return runLink(nil, []string{id, "https://files.example.com/shot.png"})
	})
	if err != nil {
		t.Fatalf("link command failed: %v", err)
	}
	if !strings.Contains(output, "https://files.example.com/shot.png") {
		t.Errorf("unexpected output: %s", output)
	}

	var meta models.Screenshot
	if err := json.Unmarshal(store.GetFileContent(id, "meta.json"), &meta); err != nil {
		t.Fatalf("failed to parse meta.json: %v", err)
	}
	if meta.UploadedURL == nil || *meta.UploadedURL != "https://files.example.com/shot.png" {
		t.Errorf("meta.json not updated: %+v", meta.UploadedURL)
	}
}

func TestLinkRejectsBadURL(t *testing.T) {
	store := setupStore(t)
	id := createTestScreenshot(t, store, "")

	if err := runLink(nil, []string{id, "not-a-url"}); err == nil {
		t.Error("expected error for invalid url")
	}
	if err := runLink(nil, []string{"missing", "https://example.com/a.png"}); err == nil {
		t.Error("expected error for unknown id")
	}
}
