// Package kvstore implements KvFileStorage: a single on-disk file
// persisting a sorted key-value map, with external-mutation detection
// and monoid-based merging for reconciling concurrent writers across
// processes.
package kvstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Version is the current on-disk storage format version written to the
// header line of every KvFileStorage file.
const Version = 2

var (
	// ErrStorageFormat is returned when a file exists but its version
	// header is missing or does not match Version.
	ErrStorageFormat = errors.New("kvstore: storage format mismatch")
	// ErrNotFound is returned by Remove when the key is absent.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrNoOp is returned by WriteFS when the on-disk mtime did not
	// advance (typically clock resolution too coarse to observe the
	// write); the caller decides whether to retry.
	ErrNoOp = errors.New("kvstore: write was a no-op")
)

// KeyCodec formats and parses keys as the strings used for on-disk JSON
// object keys. resourceid.Codec satisfies this for id-keyed stores;
// plain strings use StringCodec.
type KeyCodec[K any] interface {
	Format(K) string
	Parse(string) (K, error)
}

// StringCodec is the identity KeyCodec for string keys.
type StringCodec struct{}

func (StringCodec) Format(k string) string         { return k }
func (StringCodec) Parse(s string) (string, error) { return s, nil }

// Monoid gives V a neutral element and an associative combine operator,
// used by MergeFrom to reconcile two stores entry by entry.
type Monoid[V any] interface {
	Neutral() V
	Combine(a, b V) V
}

// Storage is a KvFileStorage: a sorted map persisted to a single file
// at path, labeled for logging/metrics purposes.
type Storage[K comparable, V any] struct {
	label  string
	path   string
	codec  KeyCodec[K]
	monoid Monoid[V]

	data        map[K]V
	cachedMtime time.Time
}

// New opens label at path, loading existing content if present. A file
// that exists but fails the version check fails with ErrStorageFormat.
func New[K comparable, V any](label, path string, codec KeyCodec[K], monoid Monoid[V]) (*Storage[K, V], error) {
	s := &Storage[K, V]{
		label:  label,
		path:   path,
		codec:  codec,
		monoid: monoid,
		data:   make(map[K]V),
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("kvstore[%s]: stat %s: %w", label, path, err)
	}

	data, err := readFile[K, V](path, codec)
	if err != nil {
		return nil, err
	}
	s.data = data
	s.cachedMtime = info.ModTime()
	return s, nil
}

// Get returns the value for k and whether it was present.
func (s *Storage[K, V]) Get(k K) (V, bool) {
	v, ok := s.data[k]
	return v, ok
}

// Len returns the number of entries currently held in memory.
func (s *Storage[K, V]) Len() int { return len(s.data) }

// Keys returns the store's keys in no particular order.
func (s *Storage[K, V]) Keys() []K {
	keys := make([]K, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// Set inserts or overwrites k and persists immediately.
func (s *Storage[K, V]) Set(k K, v V) error {
	s.data[k] = v
	return s.WriteFS()
}

// Remove deletes k and persists. Returns ErrNotFound if k is absent.
func (s *Storage[K, V]) Remove(k K) error {
	if _, ok := s.data[k]; !ok {
		return ErrNotFound
	}
	delete(s.data, k)
	return s.WriteFS()
}

// NeedsSyncing reports whether the file's on-disk mtime exceeds the
// cached mtime, meaning some external process wrote since our last
// read or write.
func (s *Storage[K, V]) NeedsSyncing() (bool, error) {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kvstore[%s]: stat %s: %w", s.label, s.path, err)
	}
	return info.ModTime().After(s.cachedMtime), nil
}

// ReadFS reloads the map from disk, verifying the version header, and
// updates the cached mtime and in-memory map.
func (s *Storage[K, V]) ReadFS() (map[K]V, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("kvstore[%s]: stat %s: %w", s.label, s.path, err)
	}

	data, err := readFile[K, V](s.path, s.codec)
	if err != nil {
		return nil, err
	}

	s.data = data
	s.cachedMtime = info.ModTime()
	return data, nil
}

// WriteFS writes the header and pretty-printed sorted JSON map, fsyncs,
// and updates the cached mtime. Returns ErrNoOp if the mtime did not
// advance.
func (s *Storage[K, V]) WriteFS() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("kvstore[%s]: mkdir %s: %w", s.label, filepath.Dir(s.path), err)
	}

	encoded := make(map[string]V, len(s.data))
	for k, v := range s.data {
		encoded[s.codec.Format(k)] = v
	}
	body, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore[%s]: marshal: %w", s.label, err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("kvstore[%s]: open %s: %w", s.label, s.path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintf(w, "version %d\n", Version); err != nil {
		return fmt.Errorf("kvstore[%s]: write header: %w", s.label, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("kvstore[%s]: write body: %w", s.label, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("kvstore[%s]: flush: %w", s.label, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("kvstore[%s]: fsync: %w", s.label, err)
	}

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("kvstore[%s]: stat after write: %w", s.label, err)
	}

	if !info.ModTime().After(s.cachedMtime) {
		return ErrNoOp
	}
	s.cachedMtime = info.ModTime()
	return nil
}

// MergeFrom combines other into s entrywise using V's monoid: each key's
// resulting value is Combine(self.get(k) or Neutral, other.get(k) or
// Neutral). The merged result is persisted.
func (s *Storage[K, V]) MergeFrom(other map[K]V) error {
	neutral := s.monoid.Neutral()
	merged := make(map[K]V, len(s.data)+len(other))

	for k, v := range s.data {
		merged[k] = v
	}
	for k, ov := range other {
		sv, ok := merged[k]
		if !ok {
			sv = neutral
		}
		merged[k] = s.monoid.Combine(sv, ov)
	}
	// keys present only in s keep their value; Combine(v, neutral) must
	// be v for any well-formed monoid, so recomputing them is optional,
	// but doing so keeps this loop simple and monoid-law-honest.
	for k, v := range s.data {
		if _, ok := other[k]; !ok {
			merged[k] = s.monoid.Combine(v, neutral)
		}
	}

	s.data = merged
	return s.WriteFS()
}

// Erase deletes the backing file.
func (s *Storage[K, V]) Erase() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("kvstore[%s]: remove %s: %w", s.label, s.path, err)
	}
	return nil
}

func readFile[K comparable, V any](path string, codec KeyCodec[K]) (map[K]V, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %s: %w", path, err)
	}

	nl := bytes.IndexByte(raw, '\n')
	if nl < 0 {
		return nil, fmt.Errorf("kvstore: %s: %w", path, ErrStorageFormat)
	}
	header := strings.TrimSpace(string(raw[:nl]))
	fields := strings.Fields(header)
	if len(fields) != 2 || fields[0] != "version" {
		return nil, fmt.Errorf("kvstore: %s: %w", path, ErrStorageFormat)
	}
	version, err := strconv.Atoi(fields[1])
	if err != nil || version != Version {
		return nil, fmt.Errorf("kvstore: %s: %w", path, ErrStorageFormat)
	}

	var encoded map[string]V
	if err := json.Unmarshal(raw[nl+1:], &encoded); err != nil {
		return nil, fmt.Errorf("kvstore: %s: parse body: %w", path, err)
	}

	data := make(map[K]V, len(encoded))
	for s, v := range encoded {
		k, err := codec.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("kvstore: %s: parse key %q: %w", path, s, err)
		}
		data[k] = v
	}
	return data, nil
}
