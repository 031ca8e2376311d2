package auxstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ark-builders/ark/pkg/atomicfile"
	"github.com/ark-builders/ark/pkg/resourceid"
)

// MetadataStore holds generated, content-derived data under
// <root>/.ark/cache/metadata/<id>. Writing replaces the previous value
// entirely, since metadata is assumed to be a deterministic function of
// content and should coincide across devices.
type MetadataStore[T resourceid.ID[T]] struct {
	root     string
	nameFunc atomicfile.NameFunc
}

// NewMetadataStore returns a MetadataStore rooted at root.
func NewMetadataStore[T resourceid.ID[T]](root string, nameFunc atomicfile.NameFunc) *MetadataStore[T] {
	return &MetadataStore[T]{root: root, nameFunc: nameFunc}
}

func (m *MetadataStore[T]) dirFor(id T) string {
	return filepath.Join(m.root, ".ark", "cache", "metadata", id.String())
}

// Load returns the raw bytes of the current AtomicFile view for id.
// Callers deserialize per their own schema.
func (m *MetadataStore[T]) Load(id T) ([]byte, error) {
	af, err := atomicfile.Open(m.dirFor(id), m.nameFunc, "")
	if err != nil {
		return nil, err
	}
	view, err := af.Load()
	if err != nil {
		return nil, err
	}
	return af.ReadContent(view)
}

// Save replaces the stored value for id with value entirely.
func (m *MetadataStore[T]) Save(id T, value []byte) error {
	af, err := atomicfile.Open(m.dirFor(id), m.nameFunc, "")
	if err != nil {
		return err
	}
	return af.Modify(func(_ []byte) ([]byte, error) {
		return value, nil
	})
}

// SaveJSON marshals value and replaces the stored value for id.
func (m *MetadataStore[T]) SaveJSON(id T, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("auxstore: marshal metadata: %w", err)
	}
	return m.Save(id, body)
}
