package resourceindex

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ark-builders/ark/internal/logger"
	"github.com/ark-builders/ark/internal/metrics"
	"github.com/ark-builders/ark/pkg/resourceid"
)

// DefaultDebounce is the default interval fsnotify events are coalesced
// over before a rescan is triggered.
const DefaultDebounce = 2 * time.Second

// UpdateKind distinguishes a full rescan from a scoped single-path
// update in a WatchEvent.
type UpdateKind int

const (
	UpdatedOne UpdateKind = iota
	UpdatedAll
)

// WatchEvent is emitted by the watch stream after each debounced batch
// is reconciled and persisted.
type WatchEvent[T resourceid.ID[T]] struct {
	Kind   UpdateKind
	Update IndexUpdate[T]
}

// Watcher wraps an fsnotify watcher over an Index's root, debouncing raw
// filesystem events into UpdateOne/UpdateAll calls. Dropping it (Close)
// terminates the watcher goroutine and releases filesystem handles.
type Watcher[T resourceid.ID[T]] struct {
	idx      *Index[T]
	fsw      *fsnotify.Watcher
	debounce time.Duration

	events chan WatchEvent[T]
	done   chan struct{}
}

// Watch builds and persists idx, then spawns a debounced filesystem
// watcher over its root. debounce of 0 uses DefaultDebounce.
func Watch[T resourceid.ID[T]](idx *Index[T], debounce time.Duration) (*Watcher[T], error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if err := idx.Build(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("resourceindex: failed to start filesystem watcher", "root", idx.Root(), "error", err)
		return nil, fmt.Errorf("resourceindex: new watcher: %w", err)
	}

	if err := addRecursive(fsw, idx.Root()); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher[T]{
		idx:      idx,
		fsw:      fsw,
		debounce: debounce,
		events:   make(chan WatchEvent[T], 16),
		done:     make(chan struct{}),
	}

	go w.run()
	return w, nil
}

// Events returns the channel watch events are published on. It is
// closed when the watcher stops.
func (w *Watcher[T]) Events() <-chan WatchEvent[T] { return w.events }

// Close terminates the watcher goroutine and releases filesystem
// handles.
func (w *Watcher[T]) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher[T]) run() {
	defer close(w.events)

	pending := make(map[string]struct{})
	rescanNeeded := false
	timer := time.NewTimer(0)
	timer.Stop()

	flush := func() {
		if rescanNeeded {
			update, err := w.idx.UpdateAll()
			if err != nil {
				logger.Warn("resourceindex: update_all failed", "root", w.idx.Root(), "error", err)
			} else if !update.IsEmpty() {
				metrics.IndexRebuilds.WithLabelValues("watch_rescan").Inc()
				w.events <- WatchEvent[T]{Kind: UpdatedAll, Update: update}
			}
			rescanNeeded = false
			pending = make(map[string]struct{})
			return
		}

		for path := range pending {
			update, err := w.idx.UpdateOne(path)
			if err != nil {
				logger.Warn("resourceindex: update_one failed", "root", w.idx.Root(), "path", path, "error", err)
				continue
			}
			if !update.IsEmpty() {
				w.events <- WatchEvent[T]{Kind: UpdatedOne, Update: update}
			}
		}
		pending = make(map[string]struct{})
	}

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if !acceptedOp(ev.Op) {
				continue
			}

			if ev.Op.Has(fsnotify.Rename) {
				rescanNeeded = true
			} else if rel, err := filepath.Rel(w.idx.Root(), ev.Name); err == nil {
				pending[filepath.ToSlash(rel)] = struct{}{}
			}

			if ev.Op.Has(fsnotify.Create) {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					addRecursive(w.fsw, ev.Name)
				}
			}

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("resourceindex: watcher error", "root", w.idx.Root(), "error", err)
		}
	}
}

// ignored reports whether path lies under <root>/.ark/.
func (w *Watcher[T]) ignored(path string) bool {
	rel, err := filepath.Rel(w.idx.Root(), path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	return rel == arkDirName || strings.HasPrefix(rel, arkDirName+"/")
}

// acceptedOp keeps data modification, name change, create, remove, and
// the conservative "any metadata change" kind, per the accepted-events
// set; all-bits-clear or unrecognized ops are dropped.
func acceptedOp(op fsnotify.Op) bool {
	const accepted = fsnotify.Write | fsnotify.Rename | fsnotify.Create | fsnotify.Remove | fsnotify.Chmod
	return op&accepted != 0
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := fsw.Add(path); addErr != nil {
			logger.Warn("resourceindex: failed to watch directory", "path", path, "error", addErr)
		}
		return nil
	})
}
