package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"promptloom/internal/config"
)

const defaultDebounce = 500 * time.Millisecond

type WatchOptions struct {
	Options
	// Debounce is how long the watcher waits after the last markdown change before
	// re-running ingestion.
	Debounce time.Duration
	// OnResult receives the outcome of every run, the initial one included.
	OnResult func(*Result, error)
}

// Watch runs ingestion once, then again whenever a markdown file under a layer path
// changes. It blocks until ctx is cancelled.
func Watch(ctx context.Context, cfg *config.ProjectConfig, db Store, options WatchOptions) error {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
		options.Logger = logger
	}
	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	report := options.OnResult
	if report == nil {
		report = func(*Result, error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	excludes := cleanExcludes(cfg.Exclude)
	for _, layer := range cfg.Layers {
		for _, root := range layer.Paths {
			if err := watchTree(watcher, filepath.Clean(root), excludes); err != nil {
				return fmt.Errorf("watching layer %s: %w", layer.Name, err)
			}
		}
	}

	report(Run(ctx, cfg, db, options.Options))
	// Later runs are incremental regardless of the initial mode.
	incremental := options.Options
	incremental.Full = false

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name, excludes); err != nil {
						logger.Warn("watching new directory", zap.String("path", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".md") || isExcluded(event.Name, excludes) {
				continue
			}
			logger.Debug("lore file changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case <-timer.C:
			report(Run(ctx, cfg, db, incremental))
		}
	}
}

func watchTree(watcher *fsnotify.Watcher, root string, excludes []string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isExcluded(path, excludes) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
