package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay collapses the burst of events editors produce when saving a file.
const settleDelay = 50 * time.Millisecond

// dirWatcher reports changes in the directories of a set of files. Files are watched through
// their parent directory, so replacing a file by rename keeps being noticed.
type dirWatcher struct {
	watcher *fsnotify.Watcher
	ignore  map[string]bool
	logger  *slog.Logger
}

// newDirWatcher watches the given files and directories. Changes to the files in ignore,
// typically the outputs written on every change, are not reported.
func newDirWatcher(paths, ignore []string, logger *slog.Logger) (*dirWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	dw := &dirWatcher{watcher: watcher, ignore: map[string]bool{}, logger: logger}

	for _, p := range ignore {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		dw.ignore[abs] = true
	}

	watched := map[string]bool{}
	for _, p := range paths {
		dir, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
			dir = filepath.Dir(dir)
		}
		if watched[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		watched[dir] = true
		logger.Debug("Watch directory", "dir", dir)
	}
	return dw, nil
}

func (dw *dirWatcher) Close() error {
	return dw.watcher.Close()
}

// run calls onChange after every change until ctx is done.
func (dw *dirWatcher) run(ctx context.Context, onChange func()) error {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if dw.ignore[filepath.Clean(ev.Name)] {
				continue
			}
			dw.logger.Debug("File changed", "name", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(settleDelay)
			} else {
				timer.Reset(settleDelay)
			}
			fire = timer.C
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return nil
			}
			dw.logger.Error("Watch files", "error", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}
