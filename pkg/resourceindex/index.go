// Package resourceindex implements ResourceIndex: a bidirectional
// path<->id index over a directory tree, kept coherent with the
// filesystem via a full rebuild (Build/UpdateAll) or incremental,
// per-path reconciliation (UpdateOne), with an optional fsnotify-backed
// watch stream layered on top.
package resourceindex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ark-builders/ark/internal/arkerr"
	"github.com/ark-builders/ark/internal/logger"
	"github.com/ark-builders/ark/internal/metrics"
	"github.com/ark-builders/ark/pkg/resourceid"
)

// ErrCollision is a sentinel for callers that choose to treat an id
// shared by several paths as an error. The index itself never returns
// it: collisions are kept as path sets and listed by Collisions.
var ErrCollision = errors.New("resourceindex: id collision")

// persistedFileName is the index's own file under .ark/, excluded from
// indexing by the same hidden-directory filter that excludes the rest
// of .ark/.
const persistedFileName = "index"

// arkDirName is the reserved directory every root carries its own
// bookkeeping under; it and everything inside it are never indexed.
const arkDirName = ".ark"

// Timestamped pairs a value with the instant it was last observed as
// modified, sourced from filesystem mtime.
type Timestamped[T any] struct {
	Item         T
	LastModified time.Time
}

// IndexUpdate describes a batch of path->id changes: a removal and
// addition at the same path represents a content mutation; a removal
// alone is a delete; an addition alone is a create. A rename appears as
// one removal and one addition at different paths.
type IndexUpdate[T resourceid.ID[T]] struct {
	Added   map[string]Timestamped[T]
	Removed map[string]Timestamped[T]
}

func newUpdate[T resourceid.ID[T]]() IndexUpdate[T] {
	return IndexUpdate[T]{
		Added:   make(map[string]Timestamped[T]),
		Removed: make(map[string]Timestamped[T]),
	}
}

func (u IndexUpdate[T]) IsEmpty() bool {
	return len(u.Added) == 0 && len(u.Removed) == 0
}

// Index maintains PathToID and IDToPaths coherent with the contents of
// Root. Its interior is protected by a readers-writer lock so reads
// proceed in parallel and writes are exclusive, per the concurrency
// model.
type Index[T resourceid.ID[T]] struct {
	mu sync.RWMutex

	root   string
	hasher resourceid.Hasher[T]

	pathToID map[string]Timestamped[T]
	idToPath map[T]*orderedmap.OrderedMap[string, struct{}]
}

// New constructs an empty index over root without touching the
// filesystem. Use Build to populate it from disk.
func New[T resourceid.ID[T]](root string, hasher resourceid.Hasher[T]) (*Index[T], error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resourceindex: abs %s: %w", root, err)
	}
	return &Index[T]{
		root:     abs,
		hasher:   hasher,
		pathToID: make(map[string]Timestamped[T]),
		idToPath: make(map[T]*orderedmap.OrderedMap[string, struct{}]),
	}, nil
}

// Root returns the canonical absolute root path this index watches.
func (idx *Index[T]) Root() string { return idx.root }

// Build walks root from scratch, computes ids for every surviving entry,
// populates both maps, and persists the index to <root>/.ark/index.
func (idx *Index[T]) Build() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	current, err := idx.scan()
	if err != nil {
		return err
	}

	pathToID := make(map[string]Timestamped[T], len(current))
	idToPath := make(map[T]*orderedmap.OrderedMap[string, struct{}])

	for path, mtime := range current {
		id, err := idx.hasher.FromPath(filepath.Join(idx.root, path))
		if err != nil {
			logger.Warn("resourceindex: failed to hash entry, skipping",
				"root", idx.root, "path", path, "error", err)
			continue
		}
		pathToID[path] = Timestamped[T]{Item: id, LastModified: mtime}
		insertPath(idToPath, id, path)
	}

	idx.pathToID = pathToID
	idx.idToPath = idToPath

	metrics.IndexRebuilds.WithLabelValues("initial").Inc()
	idx.recordGauges()

	return idx.store()
}

// UpdateAll re-walks root, diffs against the tracked state, applies
// deletions/modifications/additions atomically to the in-memory maps,
// persists, and returns the resulting IndexUpdate.
func (idx *Index[T]) UpdateAll() (IndexUpdate[T], error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	current, err := idx.scan()
	if err != nil {
		return IndexUpdate[T]{}, err
	}

	update := newUpdate[T]()

	for path, tracked := range idx.pathToID {
		if _, stillPresent := current[path]; !stillPresent {
			update.Removed[path] = tracked
			idx.removeLocked(path, tracked.Item)
		}
	}

	for path, mtime := range current {
		tracked, wasTracked := idx.pathToID[path]
		if !wasTracked {
			id, err := idx.hasher.FromPath(filepath.Join(idx.root, path))
			if err != nil {
				logger.Warn("resourceindex: failed to hash new entry, skipping",
					"root", idx.root, "path", path, "error", err)
				continue
			}
			ts := Timestamped[T]{Item: id, LastModified: mtime}
			idx.addLocked(path, ts)
			update.Added[path] = ts
			continue
		}

		if !mtime.After(tracked.LastModified) {
			continue
		}

		id, err := idx.hasher.FromPath(filepath.Join(idx.root, path))
		if err != nil {
			logger.Warn("resourceindex: failed to rehash changed entry, skipping",
				"root", idx.root, "path", path, "error", err)
			continue
		}

		if id == tracked.Item {
			idx.pathToID[path] = Timestamped[T]{Item: id, LastModified: mtime}
			continue
		}

		update.Removed[path] = tracked
		idx.removeLocked(path, tracked.Item)

		ts := Timestamped[T]{Item: id, LastModified: mtime}
		idx.addLocked(path, ts)
		update.Added[path] = ts
	}

	metrics.IndexRebuilds.WithLabelValues("manual").Inc()
	idx.recordGauges()

	if err := idx.store(); err != nil {
		return IndexUpdate[T]{}, err
	}
	return update, nil
}

// UpdateOne reconciles a single relative path against the filesystem,
// scoped to that path only, and returns an IndexUpdate with at most one
// addition and one removal.
func (idx *Index[T]) UpdateOne(relativePath string) (IndexUpdate[T], error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	update := newUpdate[T]()
	relativePath = filepath.ToSlash(relativePath)

	absPath := filepath.Join(idx.root, relativePath)
	info, err := os.Stat(absPath)

	tracked, wasTracked := idx.pathToID[relativePath]

	switch {
	case err != nil && os.IsNotExist(err):
		if wasTracked {
			update.Removed[relativePath] = tracked
			idx.removeLocked(relativePath, tracked.Item)
		}
	case err != nil:
		return IndexUpdate[T]{}, arkerr.Context("resourceindex", absPath, err)
	case !isIndexable(idx.root, absPath, info):
		if wasTracked {
			update.Removed[relativePath] = tracked
			idx.removeLocked(relativePath, tracked.Item)
		}
	default:
		mtime := info.ModTime()
		if wasTracked && !mtime.After(tracked.LastModified) {
			break
		}

		id, hashErr := idx.hasher.FromPath(absPath)
		if hashErr != nil {
			logger.Warn("resourceindex: failed to hash entry, skipping",
				"root", idx.root, "path", relativePath, "error", hashErr)
			break
		}

		if wasTracked {
			if id == tracked.Item {
				idx.pathToID[relativePath] = Timestamped[T]{Item: id, LastModified: mtime}
				break
			}
			update.Removed[relativePath] = tracked
			idx.removeLocked(relativePath, tracked.Item)
		}

		ts := Timestamped[T]{Item: id, LastModified: mtime}
		idx.addLocked(relativePath, ts)
		update.Added[relativePath] = ts
	}

	if update.IsEmpty() {
		return update, nil
	}

	idx.recordGauges()
	if err := idx.store(); err != nil {
		return IndexUpdate[T]{}, err
	}
	return update, nil
}

// GetResourcesByID returns the (possibly empty) set of paths sharing id,
// preserving the order in which they were inserted into the index.
func (idx *Index[T]) GetResourcesByID(id T) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	set, ok := idx.idToPath[id]
	if !ok {
		return nil
	}
	paths := make([]string, 0, set.Len())
	for pair := set.Oldest(); pair != nil; pair = pair.Next() {
		paths = append(paths, pair.Key)
	}
	return paths
}

// GetResourceByPath returns the unique resource tracked at p, if any.
func (idx *Index[T]) GetResourceByPath(p string) (Timestamped[T], bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ts, ok := idx.pathToID[filepath.ToSlash(p)]
	return ts, ok
}

// Collisions returns every id currently mapped to more than one path.
func (idx *Index[T]) Collisions() map[T][]string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[T][]string)
	for id, set := range idx.idToPath {
		if set.Len() <= 1 {
			continue
		}
		paths := make([]string, 0, set.Len())
		for pair := set.Oldest(); pair != nil; pair = pair.Next() {
			paths = append(paths, pair.Key)
		}
		out[id] = paths
	}
	return out
}

// Len returns the number of tracked paths.
func (idx *Index[T]) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.pathToID)
}

func (idx *Index[T]) addLocked(path string, ts Timestamped[T]) {
	idx.pathToID[path] = ts
	insertPath(idx.idToPath, ts.Item, path)
}

func (idx *Index[T]) removeLocked(path string, id T) {
	delete(idx.pathToID, path)
	set, ok := idx.idToPath[id]
	if !ok {
		return
	}
	set.Delete(path)
	if set.Len() == 0 {
		delete(idx.idToPath, id)
	}
}

func insertPath[T resourceid.ID[T]](idToPath map[T]*orderedmap.OrderedMap[string, struct{}], id T, path string) {
	set, ok := idToPath[id]
	if !ok {
		set = orderedmap.New[string, struct{}]()
		idToPath[id] = set
	}
	set.Set(path, struct{}{})
}

func (idx *Index[T]) recordGauges() {
	metrics.IndexEntries.WithLabelValues(idx.root).Set(float64(len(idx.pathToID)))

	collisions := 0
	for _, set := range idx.idToPath {
		if set.Len() > 1 {
			collisions++
		}
	}
	metrics.IndexCollisions.WithLabelValues(idx.root).Set(float64(collisions))
}

// scan walks root and returns every indexable path (relative, slash
// separated) mapped to its mtime.
func (idx *Index[T]) scan() (map[string]time.Time, error) {
	current := make(map[string]time.Time)

	err := filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("resourceindex: walk error, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != idx.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logger.Warn("resourceindex: stat error, skipping", "path", path, "error", err)
			return nil
		}

		if !isIndexable(idx.root, path, info) {
			return nil
		}

		rel, err := filepath.Rel(idx.root, path)
		if err != nil {
			return nil
		}
		current[filepath.ToSlash(rel)] = info.ModTime()
		return nil
	})
	if err != nil {
		return nil, arkerr.Context("resourceindex", idx.root, err)
	}
	return current, nil
}

// isIndexable applies the hidden-or-empty-or-index-own-file filter:
// dotfile-prefixed names, zero-length files, non-regular files, and
// anything under .ark/ are excluded.
func isIndexable(root, path string, info os.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if info.Size() == 0 {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == arkDirName || strings.HasPrefix(rel, arkDirName+"/") {
		return false
	}
	return true
}

func (idx *Index[T]) arkDir() string {
	return filepath.Join(idx.root, arkDirName)
}

func (idx *Index[T]) persistedPath() string {
	return filepath.Join(idx.arkDir(), persistedFileName)
}
