package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	SetDefaults()
	t.Cleanup(viper.Reset)
}

func TestDefaults(t *testing.T) {
	resetViper(t)

	assert.Equal(t, int64(500*1024*1024), GetBudgetBytes())
	assert.Equal(t, "json", GetCatalogBackend())
	assert.Equal(t, 20, GetDefaultLimit())
	assert.Equal(t, "127.0.0.1:7420", GetServeAddr())
	assert.Equal(t, "info", GetLogLevel())
	assert.Equal(t, "console", GetLogFormat())
}

func TestStorageRootOverride(t *testing.T) {
	resetViper(t)
	viper.Set("storage.root", "/srv/shots")

	root, err := GetStorageRoot()
	require.NoError(t, err)
	assert.Equal(t, "/srv/shots", root)
}

func TestStorageRootDefaultsToDataDir(t *testing.T) {
	resetViper(t)
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("LOCALAPPDATA", dataHome)

	root, err := GetStorageRoot()
	require.NoError(t, err)
	assert.Equal(t, AppDirName, filepath.Base(filepath.Dir(root)))
	assert.Equal(t, "history", filepath.Base(root))
}

func TestBudgetFromConfigFile(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbudget_mb = 2\n"), 0o644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())
	assert.Equal(t, int64(2*1024*1024), GetBudgetBytes())
}

func TestWatchReloadsOnWrite(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbudget_mb = 1\n"), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var budget atomic.Int64
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func() { budget.Store(GetBudgetBytes()) })
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbudget_mb = 3\n"), 0o644))

	// A write can arrive as several events; wait for the final content.
	require.Eventually(t, func() bool {
		return budget.Load() == 3*1024*1024
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchReloadsOnRenameOverFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbudget_mb = 1\n"), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	var budget atomic.Int64
	go func() {
		_ = Watch(ctx, path, func() {
			reloads.Add(1)
			budget.Store(GetBudgetBytes())
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// Editors save by writing a sibling file and renaming it over the original.
	replace := func(mb int) {
		tmp := filepath.Join(dir, "config.toml.tmp")
		require.NoError(t, os.WriteFile(tmp, []byte(fmt.Sprintf("[storage]\nbudget_mb = %d\n", mb)), 0o644))
		require.NoError(t, os.Rename(tmp, path))
	}

	replace(7)
	require.Eventually(t, func() bool {
		return budget.Load() == 7*1024*1024
	}, 5*time.Second, 20*time.Millisecond)

	// The watch survives the first replacement.
	replace(9)
	require.Eventually(t, func() bool {
		return budget.Load() == 9*1024*1024
	}, 5*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(2))
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbudget_mb = 1\n"), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go func() {
		_ = Watch(ctx, path, func() { reloads.Add(1) })
	}()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, reloads.Load())
}

func TestWatchMissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing.toml"), func() {})
	assert.Error(t, err)
}
