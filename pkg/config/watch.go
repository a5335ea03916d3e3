package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/darescore/dare/pkg/logger"
)

const watchDebounce = 200 * time.Millisecond

// Watch calls fn with the reloaded config every time the file at path changes,
// until ctx is done. The parent directory is watched so that editors that
// replace the file by rename are picked up. Invalid files are logged and
// skipped; fn keeps the last good config.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	log := logger.Get().Named("config")
	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				pending = time.After(watchDebounce)
			case <-pending:
				pending = nil
				cfg, err := Load(abs)
				if err != nil {
					log.Warn(ctx, "config reload rejected", logger.String("path", abs), logger.Error(err))
					continue
				}
				log.Info(ctx, "config reloaded", logger.String("path", abs))
				fn(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error(ctx, "config watcher error", logger.Error(err))
			}
		}
	}()
	return nil
}
