package auxstore

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/ark-builders/ark/pkg/atomicfile"
	"github.com/ark-builders/ark/pkg/resourceid"
)

// PropertiesStore holds user-authored data under
// <root>/.ark/user/properties/<id>. Writing merges the new JSON with
// whatever is already stored via the recursive JSON merge rule, so
// concurrent device-local edits don't clobber each other.
type PropertiesStore[T resourceid.ID[T]] struct {
	root     string
	nameFunc atomicfile.NameFunc
}

// NewPropertiesStore returns a PropertiesStore rooted at root.
func NewPropertiesStore[T resourceid.ID[T]](root string, nameFunc atomicfile.NameFunc) *PropertiesStore[T] {
	return &PropertiesStore[T]{root: root, nameFunc: nameFunc}
}

func (p *PropertiesStore[T]) dirFor(id T) string {
	return filepath.Join(p.root, ".ark", "user", "properties", id.String())
}

// Load returns the raw bytes of the current AtomicFile view for id.
// Callers deserialize per their own schema.
func (p *PropertiesStore[T]) Load(id T) ([]byte, error) {
	af, err := atomicfile.Open(p.dirFor(id), p.nameFunc, "")
	if err != nil {
		return nil, err
	}
	view, err := af.Load()
	if err != nil {
		return nil, err
	}
	return af.ReadContent(view)
}

// Merge recursively merges newValue into the stored properties for id
// (see Merge) and persists the result.
func (p *PropertiesStore[T]) Merge(id T, newValue []byte) error {
	af, err := atomicfile.Open(p.dirFor(id), p.nameFunc, "")
	if err != nil {
		return err
	}
	return af.Modify(func(current []byte) ([]byte, error) {
		if len(current) == 0 {
			return newValue, nil
		}
		return Merge(json.RawMessage(current), json.RawMessage(newValue))
	})
}

// MergeJSON marshals value and merges it into the stored properties.
func (p *PropertiesStore[T]) MergeJSON(id T, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("auxstore: marshal properties: %w", err)
	}
	return p.Merge(id, body)
}
