package health

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
)

// NodeProber queries individual cluster nodes.
type NodeProber interface {
	Nodes() []cluster.Node
	ProbeHealth(ctx context.Context, node cluster.Node) (bool, error)
	ProbeDebug(ctx context.Context, node cluster.Node) (cluster.DebugInfo, error)
	Stats(ctx context.Context, node cluster.Node) (map[string]any, error)
}

// CollectionReader reads collection metadata for the document count.
type CollectionReader interface {
	RetrieveCollection(ctx context.Context, name string) (collection.Info, error)
}

// DBPinger checks relational database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}
