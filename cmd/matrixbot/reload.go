// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"

	"github.com/bureau-foundation/matrixbot/lib/config"
)

var reloadableLevels = []string{"debug", "info", "warn", "error"}

// watchLogLevel re-reads the configuration file at path whenever it
// changes and applies its log.level to level. The parent directory is
// watched because editors commonly replace the file by rename. Other
// keys in the file are ignored until restart. applied, if non-nil, is
// called after every successful reload.
func watchLogLevel(path string, level *slog.LevelVar, logger *slog.Logger, applied func(slog.Level)) (stop func(), err error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absolute)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(absolute), err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absolute || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				reloadLogLevel(absolute, level, logger, applied)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	return func() {
		watcher.Close()
		<-done
	}, nil
}

func reloadLogLevel(path string, level *slog.LevelVar, logger *slog.Logger, applied func(slog.Level)) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		logger.Warn("config reload failed, keeping log level", "path", path, "error", err)
		return
	}
	if !slices.Contains(reloadableLevels, cfg.Log.Level) {
		logger.Warn("config reload ignored invalid log level", "path", path, "level", cfg.Log.Level)
		return
	}
	next := parseLevel(cfg.Log.Level)
	if next != level.Level() {
		logger.Info("log level changed", "from", level.Level(), "to", next)
		level.Set(next)
	}
	if applied != nil {
		applied(next)
	}
}
