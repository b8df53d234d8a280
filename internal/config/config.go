package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pders01/shotvault/internal/catalog"
	"github.com/spf13/viper"
)

// AppDirName is the application directory under the platform data directory
const AppDirName = "com.screenshot-annotate"

// SetDefaults registers the default value of every setting
func SetDefaults() {
	viper.SetDefault("storage.root", "")
	viper.SetDefault("storage.budget_mb", 500)
	viper.SetDefault("catalog.backend", catalog.BackendJSON)
	viper.SetDefault("list.default_limit", 20)
	viper.SetDefault("serve.addr", "127.0.0.1:7420")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

// GetStorageRoot returns the configured storage root, falling back to the
// platform local data directory.
func GetStorageRoot() (string, error) {
	if root := viper.GetString("storage.root"); root != "" {
		return root, nil
	}
	dataDir, err := LocalDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, AppDirName, "history"), nil
}

// GetBudgetBytes returns the storage budget in bytes. budget_mb may be
// fractional.
func GetBudgetBytes() int64 {
	return int64(viper.GetFloat64("storage.budget_mb") * 1024 * 1024)
}

// GetCatalogBackend returns the catalog backend name (json|sqlite)
func GetCatalogBackend() string {
	return viper.GetString("catalog.backend")
}

// GetDefaultLimit returns how many items list shows when no limit is given
func GetDefaultLimit() int {
	return viper.GetInt("list.default_limit")
}

// GetServeAddr returns the listen address of the HTTP API
func GetServeAddr() string {
	return viper.GetString("serve.addr")
}

// GetLogLevel returns the configured log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// GetLogFormat returns console or json
func GetLogFormat() string {
	return viper.GetString("log.format")
}

// LocalDataDir returns the per-user local data directory:
// $XDG_DATA_HOME or ~/.local/share on Unix, ~/Library/Application Support
// on macOS and %LOCALAPPDATA% on Windows.
func LocalDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support"), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, "AppData", "Local"), nil
	}
	return filepath.Join(home, ".local", "share"), nil
}
