package db

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

// Engine is the search engine facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Engine interface {
	CollectionManager
	DocumentStore
	Searcher
	SynonymStore
	NodeProber
	Close()
}

// CollectionManager provides collection lifecycle operations.
type CollectionManager interface {
	CreateCollection(ctx context.Context, schema collection.Schema) (collection.Info, error)
	DeleteCollection(ctx context.Context, name string) error
	RetrieveCollection(ctx context.Context, name string) (collection.Info, error)
}

// DocumentStore provides document writes and reads.
type DocumentStore interface {
	// ImportDocuments writes one batch and returns one result per document in input order.
	ImportDocuments(
		ctx context.Context, name string, docs []document.Document, action document.Action,
	) ([]batch.Result, error)
	UpsertDocument(ctx context.Context, name string, doc document.Document) (document.Document, error)
	DeleteDocument(ctx context.Context, name, id string) error
	RetrieveDocument(ctx context.Context, name, id string) (document.Document, error)
}

// Searcher runs queries against a collection.
type Searcher interface {
	Search(ctx context.Context, name string, params document.SearchParams) (document.SearchResult, error)
}

// SynonymStore manages synonym groups of a collection.
type SynonymStore interface {
	UpsertSynonym(ctx context.Context, name string, s synonym.Synonym) error
	ListSynonyms(ctx context.Context, name string) ([]synonym.Synonym, error)
	DeleteSynonym(ctx context.Context, name, id string) error
}

// NodeProber queries individual cluster nodes. Probes never fail over.
type NodeProber interface {
	Nodes() []cluster.Node
	ProbeHealth(ctx context.Context, node cluster.Node) (bool, error)
	ProbeDebug(ctx context.Context, node cluster.Node) (cluster.DebugInfo, error)
	Stats(ctx context.Context, node cluster.Node) (map[string]any, error)
}
