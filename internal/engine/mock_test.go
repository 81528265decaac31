package engine

import (
	"context"

	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

// mockEngine implements db.Engine with overridable funcs.
type mockEngine struct {
	createFn   func(ctx context.Context, s collection.Schema) (collection.Info, error)
	deleteFn   func(ctx context.Context, name string) error
	retrieveFn func(ctx context.Context, name string) (collection.Info, error)
	importFn   func(ctx context.Context, name string, docs []document.Document, a document.Action) ([]batch.Result, error)
	getDocFn   func(ctx context.Context, name, id string) (document.Document, error)
	delDocFn   func(ctx context.Context, name, id string) error
	synonyms   map[string]synonym.Synonym
}

func (m *mockEngine) CreateCollection(ctx context.Context, s collection.Schema) (collection.Info, error) {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return collection.Info{Schema: s}, nil
}

func (m *mockEngine) DeleteCollection(ctx context.Context, name string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

func (m *mockEngine) RetrieveCollection(ctx context.Context, name string) (collection.Info, error) {
	if m.retrieveFn != nil {
		return m.retrieveFn(ctx, name)
	}
	return collection.Info{Schema: collection.Schema{Name: name}}, nil
}

func (m *mockEngine) ImportDocuments(
	ctx context.Context, name string, docs []document.Document, a document.Action,
) ([]batch.Result, error) {
	if m.importFn != nil {
		return m.importFn(ctx, name, docs, a)
	}
	out := make([]batch.Result, len(docs))
	for i := range out {
		out[i] = batch.NewOK()
	}
	return out, nil
}

func (m *mockEngine) UpsertDocument(_ context.Context, _ string, doc document.Document) (document.Document, error) {
	return doc, nil
}

func (m *mockEngine) DeleteDocument(ctx context.Context, name, id string) error {
	if m.delDocFn != nil {
		return m.delDocFn(ctx, name, id)
	}
	return nil
}

func (m *mockEngine) RetrieveDocument(ctx context.Context, name, id string) (document.Document, error) {
	if m.getDocFn != nil {
		return m.getDocFn(ctx, name, id)
	}
	return document.Document{"id": id}, nil
}

func (m *mockEngine) Search(_ context.Context, _ string, _ document.SearchParams) (document.SearchResult, error) {
	return document.SearchResult{}, nil
}

func (m *mockEngine) UpsertSynonym(_ context.Context, _ string, s synonym.Synonym) error {
	if m.synonyms == nil {
		m.synonyms = map[string]synonym.Synonym{}
	}
	m.synonyms[s.ID] = s
	return nil
}

func (m *mockEngine) ListSynonyms(_ context.Context, _ string) ([]synonym.Synonym, error) {
	out := make([]synonym.Synonym, 0, len(m.synonyms))
	for _, s := range m.synonyms {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockEngine) DeleteSynonym(_ context.Context, _, id string) error {
	delete(m.synonyms, id)
	return nil
}

func (m *mockEngine) Nodes() []cluster.Node { return nil }

func (m *mockEngine) ProbeHealth(_ context.Context, _ cluster.Node) (bool, error) { return true, nil }

func (m *mockEngine) ProbeDebug(_ context.Context, _ cluster.Node) (cluster.DebugInfo, error) {
	return cluster.DebugInfo{}, nil
}

func (m *mockEngine) Stats(_ context.Context, _ cluster.Node) (map[string]any, error) { return nil, nil }

func (m *mockEngine) Close() {}
