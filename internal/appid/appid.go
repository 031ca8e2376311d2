// Package appid provides the per-installation machine id used as the
// <machineId> component of AtomicFile child filenames.
package appid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Provider lazily generates and persists a machine id under a home
// directory. The zero value is not usable; construct with New.
type Provider struct {
	path string

	mu sync.Mutex
	id string
}

// New returns a Provider whose machine id lives at <homeDir>/.ark/app_id.
func New(homeDir string) *Provider {
	return &Provider{path: filepath.Join(homeDir, ".ark", "app_id")}
}

// MachineID returns the persisted machine id, generating and persisting
// one on first call if none exists yet.
func (p *Provider) MachineID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id, nil
	}

	if raw, err := os.ReadFile(p.path); err == nil {
		id := strings.TrimSpace(string(raw))
		if id != "" {
			p.id = id
			return p.id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("appid: read %s: %w", p.path, err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return "", fmt.Errorf("appid: mkdir %s: %w", filepath.Dir(p.path), err)
	}
	if err := os.WriteFile(p.path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("appid: write %s: %w", p.path, err)
	}

	p.id = id
	return p.id, nil
}
