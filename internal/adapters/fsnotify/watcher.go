// Package fsnotify implements the ports.Watcher interface using
// github.com/fsnotify/fsnotify. It watches the downloads directory during a
// fetch run: files removed, renamed away, or truncated behind the pipeline's
// back are reported so their ledger records can be invalidated instead of
// being trusted on the next retry.
package fsnotify

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw      *fsnotify.Watcher
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// NewWatcher creates a new downloads-directory watcher.
func NewWatcher() (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:   fw,
		done: make(chan struct{}),
	}, nil
}

// Watch starts monitoring dir (non-recursive).
// onInvalid is called with the absolute path of each invalidated file.
func (w *Watcher) Watch(dir string, onInvalid func(path string)) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := w.fw.Add(absDir); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if shouldIgnore(event.Name) {
					continue
				}

				switch {
				case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
					onInvalid(event.Name)
				case event.Has(fsnotify.Write):
					// A write to a finished download means something external
					// is mutating the cache; only an empty file is clearly
					// invalid, anything else is the fetcher itself at work.
					if info, err := os.Stat(event.Name); err == nil && info.Size() == 0 {
						onInvalid(event.Name)
					}
				}

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// Watch errors are not fatal to the fetch run; the ledger
				// simply keeps records the watcher could not audit.

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// shouldIgnore filters the fetcher's own temp files and manifest writes.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.Contains(base, ".part-") {
		return true
	}
	return base == ".DS_Store"
}

// Stop ends monitoring. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}
