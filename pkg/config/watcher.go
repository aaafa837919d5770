package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/mountfd/internal/logger"
)

// Watch watches the configuration file and invokes onChange with the
// freshly loaded configuration whenever it is rewritten.
//
// The parent directory is watched rather than the file itself so atomic
// replacement (write to temp file, rename over the original) is picked up.
// Events are debounced because editors typically emit several in a burst.
// Reloads that fail to parse or validate are logged and skipped; the
// previous configuration stays in effect.
//
// Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		path = GetDefaultConfigPath()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	logger.Debug("Config watcher started", "path", path)

	const debounce = 250 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil

			cfg, err := Load(path)
			if err != nil {
				logger.Warn("Ignoring config reload with errors", "error", err)
				continue
			}
			logger.Info("Configuration reloaded", "path", path)
			onChange(cfg)
		}
	}
}
