package cmd

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pders01/shotvault/internal/models"
	"github.com/spf13/viper"
)

func TestUsageCommand(t *testing.T) {
	store := setupStore(t)
	createTestScreenshot(t, store, "")

	usageFormat = formatText
	output, err := captureStdout(t, func() error { return runUsage(nil, []string{}) })
	if err != nil {
		t.Fatalf("usage command failed: %v", err)
	}
	if !strings.Contains(output, "Screenshots: 1") {
		t.Errorf("unexpected output:\n%s", output)
	}
	if !strings.Contains(output, "500 MiB") {
		t.Errorf("expected default budget in output:\n%s", output)
	}
}

func TestUsageJSON(t *testing.T) {
	store := setupStore(t)
	viper.Set("storage.budget_mb", 10)
	createTestScreenshot(t, store, "")
	createTestScreenshot(t, store, "")

	usageFormat = formatJSON
	defer func() { usageFormat = formatText }()

	output, err := captureStdout(t, func() error { return runUsage(nil, []string{}) })
	if err != nil {
		t.Fatalf("usage command failed: %v", err)
	}

	var u models.Usage
	if err := json.Unmarshal([]byte(output), &u); err != nil {
		t.Fatalf("failed to parse output: %v\n%s", err, output)
	}
	if u.ItemCount != 2 {
		t.Errorf("expected 2 items, got %d", u.ItemCount)
	}
	if u.BudgetBytes != 10*1024*1024 {
		t.Errorf("expected 10 MiB budget, got %d", u.BudgetBytes)
	}
	// Two items of 2048+128+annotations bytes plus their meta.json
	if u.UsedBytes < 2*(2048+128) {
		t.Errorf("used bytes too small: %d", u.UsedBytes)
	}
}

func TestUsageToon(t *testing.T) {
	setupStore(t)

	usageFormat = formatToon
	defer func() { usageFormat = formatText }()

	output, err := captureStdout(t, func() error { return runUsage(nil, []string{}) })
	if err != nil {
		t.Fatalf("usage command failed: %v", err)
	}
	if !strings.Contains(output, "524288000") {
		t.Errorf("expected budget in toon output:\n%s", output)
	}
}
