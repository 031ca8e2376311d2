// Package ark is the root of the local-first, content-addressed
// resource substrate: process-wide singletons (the machine id, the
// index registrar) behind an explicit Initialize/Teardown gate, plus
// DefaultID, the concrete ResourceId variant those singletons use.
//
// Callers who want no global state construct resourceindex.Index and
// appid.Provider values directly and never call Initialize.
package ark

import (
	"errors"
	"sync"

	"github.com/ark-builders/ark/internal/appid"
	"github.com/ark-builders/ark/pkg/registrar"
	"github.com/ark-builders/ark/pkg/resourceid"
	"github.com/ark-builders/ark/pkg/resourceindex"
)

// DefaultID is the ResourceId variant used by the process-wide
// singletons. It is a compile-time choice: direct callers are free to
// build their own resourceindex.Index[T] over any T satisfying
// resourceid.ID[T], including resourceid.CRC32.
type DefaultID = resourceid.Blake2b256

// DefaultHasher is the Hasher for DefaultID.
var DefaultHasher resourceid.Hasher[DefaultID] = resourceid.Blake2bHasher{}

// ErrNotInitialized is returned by singleton accessors before
// Initialize has been called, or after Teardown.
var ErrNotInitialized = errors.New("ark: not initialized")

// ErrAlreadyInitialized is returned by Initialize when called twice
// without an intervening Teardown.
var ErrAlreadyInitialized = errors.New("ark: already initialized")

var (
	mu           sync.Mutex
	appIDProv    *appid.Provider
	idxRegistrar *registrar.Registrar[DefaultID]
)

// Initialize establishes the process-wide machine id and index
// registrar, rooted under homeDir. It must be called before MachineID
// or Index.
func Initialize(homeDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if appIDProv != nil {
		return ErrAlreadyInitialized
	}

	appIDProv = appid.New(homeDir)
	idxRegistrar = registrar.New[DefaultID](DefaultHasher)
	return nil
}

// Teardown releases the process-wide singletons. A subsequent
// Initialize starts fresh.
func Teardown() {
	mu.Lock()
	defer mu.Unlock()
	appIDProv = nil
	idxRegistrar = nil
}

// MachineID returns the per-installation machine id, generating and
// persisting one on first use. Requires Initialize.
func MachineID() (string, error) {
	mu.Lock()
	prov := appIDProv
	mu.Unlock()

	if prov == nil {
		return "", ErrNotInitialized
	}
	return prov.MachineID()
}

// Index returns the shared ResourceIndex handle for root, building or
// loading it on first access. Requires Initialize.
func Index(root string) (*resourceindex.Index[DefaultID], error) {
	mu.Lock()
	reg := idxRegistrar
	mu.Unlock()

	if reg == nil {
		return nil, ErrNotInitialized
	}
	return reg.Get(root)
}

