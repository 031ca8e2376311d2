// Package memstore implements MemoryLimitedStorage: a directory of
// one-JSON-file-per-key values, backed by a bounded in-memory LRU so
// keyspaces too large to load wholesale still get O(1) access to their
// hot subset.
package memstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ark-builders/ark/internal/metrics"
)

// KeyCodec formats and parses keys as the filenames used for per-key
// JSON files on disk (<key>.json).
type KeyCodec[K any] interface {
	Format(K) string
	Parse(string) (K, error)
}

// StringCodec is the identity KeyCodec for string keys.
type StringCodec struct{}

func (StringCodec) Format(k string) string         { return k }
func (StringCodec) Parse(s string) (string, error) { return s, nil }

// Storage is a MemoryLimitedStorage: an LRU of bounded size over a
// directory holding one JSON file per key.
type Storage[K comparable, V any] struct {
	label          string
	dir            string
	codec          KeyCodec[K]
	maxMemoryItems int

	lru    *orderedmap.OrderedMap[K, V]
	mtimes map[K]time.Time
}

// New scans dir for *.json files, collects (key, mtime) pairs, loads the
// maxMemoryItems most recently modified into an in-memory LRU, and
// records the full mtime map for the rest.
func New[K comparable, V any](label, dir string, codec KeyCodec[K], maxMemoryItems int) (*Storage[K, V], error) {
	s := &Storage[K, V]{
		label:          label,
		dir:            dir,
		codec:          codec,
		maxMemoryItems: maxMemoryItems,
		lru:            orderedmap.New[K, V](),
		mtimes:         make(map[K]time.Time),
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memstore[%s]: mkdir %s: %w", label, dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("memstore[%s]: readdir %s: %w", label, dir, err)
	}

	type keyMtime struct {
		key   K
		mtime time.Time
	}
	var found []keyMtime

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		base := e.Name()[:len(e.Name())-len(".json")]
		key, err := codec.Parse(base)
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		s.mtimes[key] = info.ModTime()
		found = append(found, keyMtime{key: key, mtime: info.ModTime()})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].mtime.After(found[j].mtime) })

	limit := maxMemoryItems
	if limit > len(found) {
		limit = len(found)
	}
	// Insert oldest-of-the-hot-set first so the most recently modified
	// key ends up newest in the LRU, matching what a real access
	// pattern would produce.
	for i := limit - 1; i >= 0; i-- {
		key := found[i].key
		v, err := s.readFile(key)
		if err != nil {
			continue
		}
		s.lru.Set(key, v)
	}

	return s, nil
}

// Get returns the value for k, reading through to disk on a cache miss.
// A cache hit promotes k to most-recently-used.
func (s *Storage[K, V]) Get(k K) (V, bool, error) {
	if v, ok := s.lru.Get(k); ok {
		s.promote(k, v)
		metrics.StorageCacheOperations.WithLabelValues(s.label, "hit").Inc()
		return v, true, nil
	}

	if _, onDisk := s.mtimes[k]; !onDisk {
		metrics.StorageCacheOperations.WithLabelValues(s.label, "miss").Inc()
		var zero V
		return zero, false, nil
	}

	v, err := s.readFile(k)
	if err != nil {
		var zero V
		return zero, false, err
	}

	s.insertEvicting(k, v)
	metrics.StorageCacheOperations.WithLabelValues(s.label, "miss").Inc()
	return v, true, nil
}

// Set writes dir/<k>.json (temp-and-rename, fsynced), updates the mtime
// map, and inserts k into the LRU, evicting the least-recently-used
// entry if the LRU is already full.
func (s *Storage[K, V]) Set(k K, v V) error {
	path := s.pathFor(k)
	if err := writeJSONAtomic(path, v); err != nil {
		return fmt.Errorf("memstore[%s]: write %s: %w", s.label, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("memstore[%s]: stat %s: %w", s.label, path, err)
	}
	s.mtimes[k] = info.ModTime()

	s.insertEvicting(k, v)
	return nil
}

// Delete removes k's on-disk file and evicts it from the LRU.
func (s *Storage[K, V]) Delete(k K) error {
	path := s.pathFor(k)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("memstore[%s]: remove %s: %w", s.label, path, err)
	}
	s.lru.Delete(k)
	delete(s.mtimes, k)
	return nil
}

// Has reports whether k exists on disk, whether or not it is cached.
func (s *Storage[K, V]) Has(k K) bool {
	_, ok := s.mtimes[k]
	return ok
}

// Keys returns every key known on disk, cached or not.
func (s *Storage[K, V]) Keys() []K {
	keys := make([]K, 0, len(s.mtimes))
	for k := range s.mtimes {
		keys = append(keys, k)
	}
	return keys
}

func (s *Storage[K, V]) promote(k K, v V) {
	s.lru.Delete(k)
	s.lru.Set(k, v)
}

func (s *Storage[K, V]) insertEvicting(k K, v V) {
	if _, already := s.lru.Get(k); !already && s.lru.Len() >= s.maxMemoryItems && s.maxMemoryItems > 0 {
		if oldest := s.lru.Oldest(); oldest != nil {
			s.lru.Delete(oldest.Key)
			metrics.StorageCacheOperations.WithLabelValues(s.label, "evict").Inc()
		}
	}
	s.promote(k, v)
}

func (s *Storage[K, V]) pathFor(k K) string {
	return filepath.Join(s.dir, s.codec.Format(k)+".json")
}

func (s *Storage[K, V]) readFile(k K) (V, error) {
	var v V
	raw, err := os.ReadFile(s.pathFor(k))
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("memstore[%s]: parse %s: %w", s.label, s.pathFor(k), err)
	}
	return v, nil
}

func writeJSONAtomic(path string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
