package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Watch re-reads the config file at path whenever it changes and calls
// onChange afterwards. A reload that fails keeps the previous settings.
// It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so a save that
// replaces the file by rename is seen as well.
func Watch(ctx context.Context, path string, onChange func()) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	log.Info().Str("path", path).Msg("Watching config file for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := viper.ReadInConfig(); err != nil {
				log.Error().Err(err).Str("path", path).Msg("Config reload failed, keeping previous config")
				continue
			}

			log.Info().Str("path", path).Msg("Config reloaded")
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Config watcher error")
		}
	}
}
