// Package storagetable is the fixed table mapping the core's logical
// storage labels to their on-disk layout under a root's .ark directory.
package storagetable

import "path/filepath"

// Kind distinguishes a single-file KvFileStorage from a directory of
// per-resource AtomicFile folders.
type Kind int

const (
	KindKvFile Kind = iota
	KindAtomicFileDir
)

// Entry describes one logical storage label: its on-disk kind and the
// relative path under a root where it lives.
type Entry struct {
	Label        string
	Kind         Kind
	RelativePath string
}

// Table is the fixed set of storage labels the core exposes, grounded
// on the original CLI's storage-name translation.
var Table = []Entry{
	{Label: "tags", Kind: KindKvFile, RelativePath: filepath.Join(".ark", "user", "tags")},
	{Label: "scores", Kind: KindKvFile, RelativePath: filepath.Join(".ark", "user", "scores")},
	{Label: "properties", Kind: KindAtomicFileDir, RelativePath: filepath.Join(".ark", "user", "properties")},
	{Label: "metadata", Kind: KindAtomicFileDir, RelativePath: filepath.Join(".ark", "cache", "metadata")},
	{Label: "previews", Kind: KindAtomicFileDir, RelativePath: filepath.Join(".ark", "cache", "previews")},
	{Label: "thumbnails", Kind: KindAtomicFileDir, RelativePath: filepath.Join(".ark", "cache", "thumbnails")},
	{Label: "stats", Kind: KindAtomicFileDir, RelativePath: filepath.Join(".ark", "stats")},
}

// Lookup resolves a storage label to its table entry.
func Lookup(label string) (Entry, bool) {
	for _, e := range Table {
		if e.Label == label {
			return e, true
		}
	}
	return Entry{}, false
}

// Path resolves label to its absolute path under root.
func Path(root, label string) (string, bool) {
	e, ok := Lookup(label)
	if !ok {
		return "", false
	}
	return filepath.Join(root, e.RelativePath), true
}

// Labels returns every known storage label, in table order.
func Labels() []string {
	labels := make([]string, len(Table))
	for i, e := range Table {
		labels[i] = e.Label
	}
	return labels
}
