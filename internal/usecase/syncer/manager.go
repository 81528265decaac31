// Package syncer orchestrates collection lifecycle and bulk reindex workflows.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// DefaultSettleDelay is the pause between delete and create during recreate.
const DefaultSettleDelay = time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithReporter sets the human-readable outcome sink.
func WithReporter(r Reporter) Option { return func(m *Manager) { m.reporter = r } }

// WithProgress sets the reindex progress side channel.
func WithProgress(p Progress) Option { return func(m *Manager) { m.progress = p } }

// WithSettleDelay overrides the recreate pause.
func WithSettleDelay(d time.Duration) Option { return func(m *Manager) { m.settle = d } }

// Manager runs the create, delete, recreate and reindex workflows for one entity at a time.
type Manager struct {
	gen      SchemaGenerator
	norm     Normalizer
	client   IndexClient
	repo     Repository
	tracker  ErrorTracker
	reporter Reporter
	progress Progress
	settle   time.Duration
	logger   *zap.Logger
}

// New creates a sync manager.
func New(
	gen SchemaGenerator, norm Normalizer, client IndexClient, repo Repository,
	tracker ErrorTracker, logger *zap.Logger, opts ...Option,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		gen: gen, norm: norm, client: client, repo: repo, tracker: tracker,
		reporter: nopReporter{}, progress: nopProgress{},
		settle: DefaultSettleDelay, logger: logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create generates the schema and creates the collection. Failures are tracked,
// reported and returned.
func (m *Manager) Create(ctx context.Context, entity string) error {
	schema, err := m.gen.Generate(entity)
	if err != nil {
		m.fail("Failed to generate schema", entity, "", err)
		return fmt.Errorf("generate schema: %w", err)
	}
	if _, err := m.client.CreateCollection(ctx, schema); err != nil {
		m.fail("Failed to create collection", entity, schema.Name, err)
		return fmt.Errorf("create collection: %w", err)
	}
	m.reporter.Success(fmt.Sprintf("Collection %s created for %s", schema.Name, entity))
	return nil
}

// Delete drops the entity's collection. A missing collection is reported as a
// warning and is not an error.
func (m *Manager) Delete(ctx context.Context, entity string) error {
	schema, err := m.gen.Generate(entity)
	if err != nil {
		m.fail("Failed to generate schema", entity, "", err)
		return fmt.Errorf("generate schema: %w", err)
	}
	res, err := m.client.DeleteCollection(ctx, schema.Name)
	if err != nil {
		m.fail("Failed to delete collection", entity, schema.Name, err)
		return fmt.Errorf("delete collection: %w", err)
	}
	if res.Absent {
		m.reporter.Warning(fmt.Sprintf("Collection %s does not exist, nothing to delete", schema.Name))
		return nil
	}
	m.reporter.Success(fmt.Sprintf("Collection %s deleted", schema.Name))
	return nil
}

// Recreate deletes, waits for the cluster to settle and creates again. Failures
// are reported but not returned; ok is false when either step failed.
func (m *Manager) Recreate(ctx context.Context, entity string) bool {
	if err := m.Delete(ctx, entity); err != nil {
		m.reporter.Error(fmt.Sprintf("Recreate of %s aborted", entity))
		return false
	}
	if !sleep(ctx, m.settle) {
		m.reporter.Error(fmt.Sprintf("Recreate of %s interrupted: %v", entity, ctx.Err()))
		return false
	}
	if err := m.Create(ctx, entity); err != nil {
		m.reporter.Error(fmt.Sprintf("Recreate of %s aborted", entity))
		return false
	}
	return true
}

// ReindexResult describes one reindex run.
type ReindexResult struct {
	Collection string
	Fetched    int
	Skipped    int
	Summary    batch.Summary
	// Err is the absorbed failure, already tracked and reported.
	Err error
}

// Imported is the number of documents written successfully.
func (r ReindexResult) Imported() int { return r.Summary.Succeeded }

// Reindex imports every stored object of entity and returns the number of
// documents written. Failures are tracked and reported, never returned.
func (m *Manager) Reindex(ctx context.Context, entity string) int {
	return m.ReindexDetailed(ctx, entity).Imported()
}

// ReindexDetailed is Reindex with the full outcome. Documents written by batches
// that completed before a failure are counted.
func (m *Manager) ReindexDetailed(ctx context.Context, entity string) ReindexResult {
	var res ReindexResult

	schema, err := m.gen.Generate(entity)
	if err != nil {
		res.Err = m.fail("Failed to generate schema", entity, "", err)
		return res
	}
	res.Collection = schema.Name

	objs, err := m.repo.FindAll(ctx, entity)
	if err != nil {
		res.Err = m.fail("Failed to load objects", entity, schema.Name, err)
		return res
	}
	res.Fetched = len(objs)

	docs, err := m.normalizeAll(objs)
	if err != nil {
		res.Err = m.fail("Failed to normalize objects", entity, schema.Name, err)
		return res
	}
	res.Skipped = len(objs) - len(docs)

	if len(docs) == 0 {
		m.reporter.Info(fmt.Sprintf("No documents to import into %s", schema.Name))
		return res
	}

	results, err := m.client.ImportDocuments(ctx, schema.Name, docs, document.ActionUpsert)
	res.Summary = batch.Tally(results)
	m.record(schema.Name, res.Summary)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Summary = batch.Summary{}
		res.Err = m.fail("Collection not found", entity, schema.Name, err)
		m.reporter.Warning(fmt.Sprintf("Collection %s does not exist. Run recreate for %s first.", schema.Name, entity))
		return res
	case err != nil:
		res.Err = m.fail("Failed to import documents", entity, schema.Name, err)
		if res.Summary.Succeeded > 0 {
			m.reporter.Warning(fmt.Sprintf("%d documents were imported into %s before the failure",
				res.Summary.Succeeded, schema.Name))
		}
		return res
	}

	if res.Summary.Failed > 0 {
		m.reporter.Warning(fmt.Sprintf("Imported %d documents into %s, %d failed. First error: %s",
			res.Summary.Succeeded, schema.Name, res.Summary.Failed, res.Summary.FirstError))
		m.logger.Warn("Reindex finished with failures",
			zap.String("collection", schema.Name),
			zap.Int("succeeded", res.Summary.Succeeded),
			zap.Int("failed", res.Summary.Failed),
			zap.String("first_error", res.Summary.FirstError),
		)
		return res
	}

	m.reporter.Success(fmt.Sprintf("Imported %d documents into %s", res.Summary.Succeeded, schema.Name))
	m.logger.Info("Reindex finished",
		zap.String("collection", schema.Name),
		zap.Int("imported", res.Summary.Succeeded),
		zap.Int("skipped", res.Skipped),
	)
	return res
}

func (m *Manager) normalizeAll(objs []any) ([]document.Document, error) {
	m.progress.Start(len(objs))
	defer m.progress.Finish()

	docs := make([]document.Document, 0, len(objs))
	for _, obj := range objs {
		doc, ok, err := m.norm.Document(obj)
		if err != nil {
			return nil, err
		}
		m.progress.Advance()
		if ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *Manager) record(collection string, s batch.Summary) {
	if s.Succeeded > 0 {
		metrics.SyncDocumentsTotal.WithLabelValues(collection, "success").Add(float64(s.Succeeded))
	}
	if s.Failed > 0 {
		metrics.SyncDocumentsTotal.WithLabelValues(collection, "failure").Add(float64(s.Failed))
	}
}

// fail tracks, logs and reports err, and returns it.
func (m *Manager) fail(msg, entity, collection string, err error) error {
	ctx := map[string]any{"entity": entity, "error_kind": domain.Kind(err)}
	if collection != "" {
		ctx["collection"] = collection
	}
	m.tracker.TrackError(msg, ctx, err)

	fields := []zap.Field{zap.String("entity", entity), zap.Error(err)}
	if node, ok := m.tracker.FormattedNodeDetails(err); ok {
		fields = append(fields, zap.String("node", node))
	}
	m.logger.Error(msg, fields...)

	m.reporter.Error(fmt.Sprintf("%s for %s: %v", msg, entity, err))
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type nopReporter struct{}

func (nopReporter) Info(string)    {}
func (nopReporter) Success(string) {}
func (nopReporter) Warning(string) {}
func (nopReporter) Error(string)   {}

type nopProgress struct{}

func (nopProgress) Start(int) {}
func (nopProgress) Advance()  {}
func (nopProgress) Finish()   {}
