// Package arkerr provides a single wrapping helper so every surfaced
// error carries which subsystem and which path it came from, without
// introducing a custom error type hierarchy.
package arkerr

import "fmt"

// Context wraps err with the subsystem and path that produced it. err is
// preserved under %w so errors.Is/errors.As still see through to the
// original sentinel.
func Context(subsystem, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %s: %w", subsystem, path, err)
}
