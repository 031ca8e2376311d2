package commands

import "github.com/ark-builders/ark"

// indexID is the ResourceId variant arkctl operates over: the same
// compile-time choice ark's process-wide singletons use.
type indexID = ark.DefaultID
