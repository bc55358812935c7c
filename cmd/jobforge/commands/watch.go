package commands

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jobforge/jobforge/pkg/telemetry"
)

// debounceDelay coalesces editor save bursts into a single recompile.
const debounceDelay = 250 * time.Millisecond

// watchAndRun blocks, rerunning run whenever a definition file under
// root changes. It returns when the context is cancelled.
func watchAndRun(ctx context.Context, logger *telemetry.Logger, root string, run func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
	} else {
		err = watcher.Add(filepath.Dir(root))
	}
	if err != nil {
		return err
	}

	logger.Infof("watching %s for changes", root)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			// New subdirectories join the watch so nested files are
			// picked up too.
			if event.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						logger.WithError(err).Warn("failed to watch new directory")
					}
				}
			}
			if !isWatchRelevant(event.Name) {
				continue
			}
			logger.WithField("file", event.Name).Debug("definition changed")
			if timer == nil {
				timer = time.NewTimer(debounceDelay)
				timerCh = timer.C
			} else {
				timer.Reset(debounceDelay)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watch error")
		case <-timerCh:
			if err := run(ctx); err != nil {
				logger.WithError(err).Error("compilation failed")
			}
		}
	}
}

// isWatchRelevant filters out editor temp files. Everything else
// counts, since definitions may include arbitrary script files.
func isWatchRelevant(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return !strings.HasSuffix(base, ".swp")
}
