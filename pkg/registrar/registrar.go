// Package registrar implements IndexRegistrar: a process-wide mapping
// from canonical root path to a shared ResourceIndex handle, so
// multiple callers addressing the same root share one index instance
// rather than racing independent copies.
package registrar

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ark-builders/ark/pkg/resourceid"
	"github.com/ark-builders/ark/pkg/resourceindex"
)

// Registrar hands out shared *resourceindex.Index handles keyed by
// canonical root path. Its own mutation is serialized by mu; the
// returned indices carry their own interior synchronization.
type Registrar[T resourceid.ID[T]] struct {
	hasher resourceid.Hasher[T]

	mu      sync.RWMutex
	indices map[string]*resourceindex.Index[T]
}

// New returns an empty Registrar that loads or builds indices using
// hasher.
func New[T resourceid.ID[T]](hasher resourceid.Hasher[T]) *Registrar[T] {
	return &Registrar[T]{
		hasher:  hasher,
		indices: make(map[string]*resourceindex.Index[T]),
	}
}

// Get returns the shared index for root, loading a persisted index or
// building a fresh one on first access. Subsequent calls for the same
// canonical root return the same handle.
func (r *Registrar[T]) Get(root string) (*resourceindex.Index[T], error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("registrar: abs %s: %w", root, err)
	}

	r.mu.RLock()
	idx, ok := r.indices[abs]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.indices[abs]; ok {
		return idx, nil
	}

	idx, err = resourceindex.Load(abs, r.hasher)
	if err != nil {
		return nil, err
	}
	if idx.Len() == 0 {
		if err := idx.Build(); err != nil {
			return nil, err
		}
	}

	r.indices[abs] = idx
	return idx, nil
}

// Drop releases the registrar's handle for root. Existing holders of
// the handle are unaffected; a later Get for the same root builds a
// fresh one.
func (r *Registrar[T]) Drop(root string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indices, abs)
}

// Roots returns every canonical root currently registered.
func (r *Registrar[T]) Roots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roots := make([]string, 0, len(r.indices))
	for root := range r.indices {
		roots = append(roots, root)
	}
	return roots
}
