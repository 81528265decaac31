// Package engine is the index client: collection, document and synonym
// operations over a db.Engine with retry, batching and error classification.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// Defaults.
const (
	DefaultBatchSize      = 100
	DefaultMaxAttempts    = 3
	DefaultRetryBaseDelay = time.Second
)

// Options tunes the client.
type Options struct {
	// RetryBaseDelay is the first backoff delay; each retry doubles it.
	RetryBaseDelay time.Duration
	// MaxAttempts counts the first try.
	MaxAttempts uint
	BatchSize   int
	// ImportRateLimit caps import batches per second. Zero means unlimited.
	ImportRateLimit float64
}

func (o Options) withDefaults() Options {
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// Client is the index client. It is safe for sequential reuse; concurrent
// safety is whatever the underlying engine provides.
type Client struct {
	store   db.Engine
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates an index client over store.
func New(store db.Engine, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	c := &Client{store: store, opts: opts, logger: logger}
	if opts.ImportRateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.ImportRateLimit), 1)
	}
	return c
}

// CreateCollection creates a collection, retrying transient failures.
// An existing collection fails with domain.ErrConflict without retry.
func (c *Client) CreateCollection(ctx context.Context, schema collection.Schema) (collection.Info, error) {
	info, err := retry(ctx, c, db.OpCreateCollection, func() (collection.Info, error) {
		return c.store.CreateCollection(ctx, schema)
	})
	if err != nil {
		return collection.Info{}, err
	}
	c.logger.Info("Collection created", zap.String("collection", schema.Name))
	return info, nil
}

// DeleteResult reports a collection deletion. Absent is set when there was
// nothing to delete.
type DeleteResult struct {
	Success bool `json:"success"`
	Absent  bool `json:"absent,omitempty"`
}

// DeleteCollection drops a collection, retrying transient failures. A missing
// collection counts as deleted.
func (c *Client) DeleteCollection(ctx context.Context, name string) (DeleteResult, error) {
	_, err := retry(ctx, c, db.OpDeleteCollection, func() (struct{}, error) {
		return struct{}{}, c.store.DeleteCollection(ctx, name)
	})
	switch {
	case err == nil:
		c.logger.Info("Collection deleted", zap.String("collection", name))
		return DeleteResult{Success: true}, nil
	case errors.Is(err, domain.ErrNotFound):
		c.logger.Debug("Collection already absent", zap.String("collection", name))
		return DeleteResult{Success: true, Absent: true}, nil
	default:
		return DeleteResult{}, err
	}
}

// RetrieveCollection returns the collection info.
func (c *Client) RetrieveCollection(ctx context.Context, name string) (collection.Info, error) {
	start := time.Now()
	info, err := c.store.RetrieveCollection(ctx, name)
	c.observe(db.OpRetrieveCollection, start, err)
	if err != nil {
		return collection.Info{}, classify(db.OpRetrieveCollection, err)
	}
	return info, nil
}

// CollectionExists reports whether the collection exists.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := c.RetrieveCollection(ctx, name)
	return exists(err)
}

// ImportDocuments writes docs in sequential batches and returns one result per
// document in input order. A failed batch aborts the remaining ones; results of
// batches already written are returned together with the error.
func (c *Client) ImportDocuments(
	ctx context.Context, name string, docs []document.Document, action document.Action,
) ([]batch.Result, error) {
	if action == "" {
		action = document.ActionUpsert
	}
	if !action.IsValid() {
		return nil, domain.NewConfigurationError("unknown import action %q", action)
	}

	results := make([]batch.Result, 0, len(docs))
	for offset := 0; offset < len(docs); offset += c.opts.BatchSize {
		end := min(offset+c.opts.BatchSize, len(docs))
		chunk := docs[offset:end]

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return results, fmt.Errorf("import throttle: %w", err)
			}
		}

		start := time.Now()
		res, err := c.store.ImportDocuments(ctx, name, chunk, action)
		c.observe(db.OpImportDocuments, start, err)
		if err != nil {
			c.logger.Error("Import batch failed",
				zap.String("collection", name),
				zap.Int("batch_offset", offset),
				zap.Int("batch_size", len(chunk)),
				zap.Error(err),
			)
			return results, importError(err)
		}
		results = append(results, res...)
	}
	return results, nil
}

func importError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return classify(db.OpImportDocuments, err)
	}
	return newClusterError(db.OpImportDocuments, domain.ErrTransientCluster, err)
}

// UpsertDocument creates or replaces a single document.
func (c *Client) UpsertDocument(ctx context.Context, name string, doc document.Document) (document.Document, error) {
	start := time.Now()
	out, err := c.store.UpsertDocument(ctx, name, doc)
	c.observe(db.OpUpsertDocument, start, err)
	if err != nil {
		return nil, classify(db.OpUpsertDocument, err)
	}
	return out, nil
}

// DeleteDocument removes a single document. A missing document is reported as domain.ErrNotFound.
func (c *Client) DeleteDocument(ctx context.Context, name, id string) error {
	start := time.Now()
	err := c.store.DeleteDocument(ctx, name, id)
	c.observe(db.OpDeleteDocument, start, err)
	return classify(db.OpDeleteDocument, err)
}

// RetrieveDocument fetches a single document.
func (c *Client) RetrieveDocument(ctx context.Context, name, id string) (document.Document, error) {
	start := time.Now()
	doc, err := c.store.RetrieveDocument(ctx, name, id)
	c.observe(db.OpRetrieveDocument, start, err)
	if err != nil {
		return nil, classify(db.OpRetrieveDocument, err)
	}
	return doc, nil
}

// DocumentExists reports whether the document exists.
func (c *Client) DocumentExists(ctx context.Context, name, id string) (bool, error) {
	_, err := c.RetrieveDocument(ctx, name, id)
	return exists(err)
}

// Search passes the query through to the engine.
func (c *Client) Search(ctx context.Context, name string, params document.SearchParams) (document.SearchResult, error) {
	start := time.Now()
	res, err := c.store.Search(ctx, name, params)
	c.observe(db.OpSearch, start, err)
	if err != nil {
		return document.SearchResult{}, classify(db.OpSearch, err)
	}
	return res, nil
}

// UpsertSynonym creates or replaces a synonym group by id.
func (c *Client) UpsertSynonym(ctx context.Context, name string, s synonym.Synonym) error {
	start := time.Now()
	err := c.store.UpsertSynonym(ctx, name, s)
	c.observe(db.OpUpsertSynonym, start, err)
	return classify(db.OpUpsertSynonym, err)
}

// ListSynonyms lists the synonym groups of a collection.
func (c *Client) ListSynonyms(ctx context.Context, name string) ([]synonym.Synonym, error) {
	start := time.Now()
	out, err := c.store.ListSynonyms(ctx, name)
	c.observe(db.OpListSynonyms, start, err)
	if err != nil {
		return nil, classify(db.OpListSynonyms, err)
	}
	return out, nil
}

// DeleteSynonym removes a synonym group.
func (c *Client) DeleteSynonym(ctx context.Context, name, id string) error {
	start := time.Now()
	err := c.store.DeleteSynonym(ctx, name, id)
	c.observe(db.OpDeleteSynonym, start, err)
	return classify(db.OpDeleteSynonym, err)
}

func exists(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.EngineRequestsTotal.WithLabelValues(op, status).Inc()
	metrics.EngineRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// newBackOff yields base, 2*base, 4*base, ... without jitter.
func newBackOff(base time.Duration, attempts uint) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         base << attempts,
	}
	b.Reset()
	return b
}

// retry runs fn with exponential backoff: MaxAttempts tries, delays of base, 2*base, ...
// Exhausted retries fail with domain.ErrTransientCluster wrapping the last error.
func retry[T any](ctx context.Context, c *Client, op string, fn func() (T, error)) (T, error) {
	b := newBackOff(c.opts.RetryBaseDelay, c.opts.MaxAttempts)

	var last error
	out, err := backoff.Retry(ctx, func() (T, error) {
		start := time.Now()
		v, err := fn()
		c.observe(op, start, err)
		if err != nil {
			last = err
			if permanent(err) {
				return v, backoff.Permanent(err)
			}
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.EngineRetriesTotal.WithLabelValues(op).Inc()
			c.logger.Warn("Engine request failed, retrying",
				zap.String("op", op),
				zap.Duration("backoff", next),
				zap.Error(err),
			)
		}),
	)
	if err == nil {
		return out, nil
	}
	if last == nil {
		// Context ended before the first attempt.
		return out, fmt.Errorf("%s: %w", op, err)
	}
	if permanent(last) {
		return out, classify(op, last)
	}
	return out, newClusterError(op, domain.ErrTransientCluster, last)
}
