package commands

import (
	"fmt"

	"github.com/ark-builders/ark"
	"github.com/ark-builders/ark/pkg/resourceindex"
)

// resolveID accepts either a path tracked by idx or a literal id string,
// and returns the corresponding id.
func resolveID(idx *resourceindex.Index[indexID], arg string) (indexID, error) {
	if ts, ok := idx.GetResourceByPath(arg); ok {
		return ts.Item, nil
	}

	id, err := ark.DefaultHasher.ParseString(arg)
	if err != nil {
		return id, fmt.Errorf("%q is neither a tracked path nor a valid id: %w", arg, err)
	}
	return id, nil
}
