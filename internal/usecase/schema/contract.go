package schema

import (
	"github.com/kailas-cloud/indexsync/internal/registry"
)

// Registry resolves descriptors for entity names.
type Registry interface {
	Lookup(entity string) (*registry.Descriptor, bool)
}
