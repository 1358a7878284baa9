package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/Elpablo777/Telegram-Audio-Downloader-sub001/internal/logger"
)

// WatchLogging watches the config file and applies logging level and
// format changes at runtime without a restart. It blocks until the
// context is cancelled; run it in its own goroutine.
//
// Only the logging section is hot-reloaded. Other changes still require a
// restart and are ignored here.
func WatchLogging(ctx context.Context, configPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(configPath); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}

	logger.Debug("Watching config file for logging changes", logger.KeyPath, configPath)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Editors often replace the file; re-add the watch on rename
			if event.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
				_ = watcher.Add(configPath)
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(configPath)
			if err != nil {
				logger.Warn("Config reload skipped", logger.KeyError, err)
				continue
			}
			applyLogging(cfg.Logging)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// applyLogging pushes level and format changes into the logger.
func applyLogging(cfg LoggingConfig) {
	before := logger.GetLevel()
	logger.SetLevel(cfg.Level)
	logger.SetFormat(cfg.Format)

	if logger.GetLevel() != before {
		logger.Info("Log level changed", "level", strings.ToUpper(cfg.Level))
	}
}
