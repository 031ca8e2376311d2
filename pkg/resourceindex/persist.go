package resourceindex

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ark-builders/ark/internal/arkerr"
	"github.com/ark-builders/ark/pkg/resourceid"
)

// persistedEntry is one resource as it appears in the index's on-disk
// JSON form: the id plus an explicit nanosecond timestamp, which
// survives round-tripping in a way a platform-specific time.Time
// encoding would not.
type persistedEntry struct {
	ID               string `json:"id"`
	LastModifiedNano int64  `json:"last_modified"`
}

type persistedIndex struct {
	Root      string                    `json:"root"`
	Resources map[string]persistedEntry `json:"resources"`
}

// Load reads an index previously persisted at <root>/.ark/index,
// rebuilding id_to_paths from path_to_id. The hasher's Variant must
// match the id encoding used when the file was written, or ids will
// fail to parse.
func Load[T resourceid.ID[T]](root string, hasher resourceid.Hasher[T]) (*Index[T], error) {
	idx, err := New(root, hasher)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(idx.persistedPath())
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, arkerr.Context("resourceindex", idx.persistedPath(), err)
	}

	var p persistedIndex
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("resourceindex: parse %s: %w", idx.persistedPath(), err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for path, entry := range p.Resources {
		id, err := hasher.ParseString(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("resourceindex: parse id for %s: %w", path, err)
		}
		ts := Timestamped[T]{Item: id, LastModified: time.Unix(0, entry.LastModifiedNano)}
		idx.pathToID[path] = ts
		insertPath(idx.idToPath, id, path)
	}

	return idx, nil
}

// store serializes root and path_to_id to <root>/.ark/index. Callers
// must hold idx.mu.
func (idx *Index[T]) store() error {
	if err := os.MkdirAll(idx.arkDir(), 0o755); err != nil {
		return arkerr.Context("resourceindex", idx.arkDir(), err)
	}

	p := persistedIndex{
		Root:      idx.root,
		Resources: make(map[string]persistedEntry, len(idx.pathToID)),
	}
	for path, ts := range idx.pathToID {
		p.Resources[path] = persistedEntry{
			ID:               ts.Item.String(),
			LastModifiedNano: ts.LastModified.UnixNano(),
		}
	}

	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("resourceindex: marshal %s: %w", idx.persistedPath(), err)
	}

	tmp, err := os.CreateTemp(idx.arkDir(), ".index-*.tmp")
	if err != nil {
		return arkerr.Context("resourceindex", idx.arkDir(), err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return arkerr.Context("resourceindex", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return arkerr.Context("resourceindex", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return arkerr.Context("resourceindex", tmpPath, err)
	}

	if err := os.Rename(tmpPath, idx.persistedPath()); err != nil {
		return arkerr.Context("resourceindex", idx.persistedPath(), err)
	}
	return nil
}
