package syncer

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/engine"
)

// SchemaGenerator derives collection schemas.
type SchemaGenerator interface {
	Generate(entity string) (collection.Schema, error)
}

// Normalizer turns domain objects into documents. ok is false for objects that must not be indexed.
type Normalizer interface {
	Document(obj any) (document.Document, bool, error)
}

// IndexClient is the subset of the index client the workflows use.
type IndexClient interface {
	CreateCollection(ctx context.Context, schema collection.Schema) (collection.Info, error)
	DeleteCollection(ctx context.Context, name string) (engine.DeleteResult, error)
	ImportDocuments(
		ctx context.Context, name string, docs []document.Document, action document.Action,
	) ([]batch.Result, error)
}

// Repository yields every stored object of an entity, in a stable order.
type Repository interface {
	FindAll(ctx context.Context, entity string) ([]any, error)
}

// ErrorTracker records failures.
type ErrorTracker interface {
	TrackError(message string, ctx map[string]any, err error)
	FormattedNodeDetails(err error) (string, bool)
}

// Reporter renders workflow outcomes for humans.
type Reporter interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// Progress receives per-item advancement during reindex.
type Progress interface {
	Start(total int)
	Advance()
	Finish()
}
