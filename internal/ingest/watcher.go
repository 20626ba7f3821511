package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing PDFs
	SkipHidden  bool          // ignore dot-files and dot-directories
	Debounce    time.Duration // coalesce rapid create/write/rename bursts
	Logger      *slog.Logger
}

// StartWatcher emits the paths of new or changed PDFs under cfg.Roots until
// ctx ends. Both channels are closed when the watcher stops.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		found, err := addTree(w, r, cfg.SkipHidden)
		if err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
		if cfg.InitialScan {
			initial = append(initial, found...)
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		// pending is only touched from this goroutine; the debounce timer is
		// drained in the select below.
		pending := map[string]struct{}{}
		var timer *time.Timer
		var timerC <-chan time.Time
		flush := func() bool {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timerC:
				timerC = nil
				if !flush() {
					return
				}
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					found, err := addNewDir(w, e.Name, cfg.SkipHidden)
					if err != nil {
						logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
					}
					for _, p := range found {
						pending[p] = struct{}{}
					}
				}

				if AllowedExt(filepath.Ext(e.Name)) && (e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename)) != 0 {
					pending[e.Name] = struct{}{}
				}
				if len(pending) == 0 {
					continue
				}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				timerC = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// addTree watches every directory under root and returns the PDFs it saw.
func addTree(w *fsnotify.Watcher, root string, skipHidden bool) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if AllowedExt(filepath.Ext(path)) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// addNewDir starts watching path if it is a directory created after startup.
// Files already inside it are returned since their events were missed.
func addNewDir(w *fsnotify.Watcher, path string, skipHidden bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	return addTree(w, path, skipHidden)
}
