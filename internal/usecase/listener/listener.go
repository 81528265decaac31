// Package listener mirrors domain object changes into the index after the
// primary write has committed.
package listener

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/metrics"
)

// ChangeKind is the lifecycle event that triggered a sync.
type ChangeKind string

// Change kinds.
const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// Outcome is what the listener did with one event.
type Outcome string

// Outcomes, also used as the metric result label.
const (
	OutcomeIndexed  Outcome = "indexed"
	OutcomeRemoved  Outcome = "removed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeDisabled Outcome = "disabled"
	OutcomeFailed   Outcome = "failed"
)

// Normalizer builds index documents. ok is false for objects that must not be indexed.
type Normalizer interface {
	Normalize(obj any) (document.Normalized, bool, error)
}

// IndexClient is the single-document subset of the index client.
type IndexClient interface {
	UpsertDocument(ctx context.Context, name string, doc document.Document) (document.Document, error)
	DeleteDocument(ctx context.Context, name, id string) error
}

// ErrorTracker records failures.
type ErrorTracker interface {
	TrackError(message string, ctx map[string]any, err error)
}

// Listener syncs single objects on change. Index failures are tracked and
// logged; they never reach the caller's transaction.
type Listener struct {
	norm    Normalizer
	client  IndexClient
	tracker ErrorTracker
	enabled bool
	logger  *zap.Logger
}

// New creates a listener. enabled mirrors the auto_update setting.
func New(norm Normalizer, client IndexClient, tracker ErrorTracker, enabled bool, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{norm: norm, client: client, tracker: tracker, enabled: enabled, logger: logger}
}

// Enabled reports whether change events are synced.
func (l *Listener) Enabled() bool { return l.enabled }

// OnChange syncs obj after a committed write.
func (l *Listener) OnChange(ctx context.Context, obj any, kind ChangeKind) Outcome {
	out := l.handle(ctx, obj, kind)
	metrics.ListenerEventsTotal.WithLabelValues(string(kind), string(out)).Inc()
	return out
}

func (l *Listener) handle(ctx context.Context, obj any, kind ChangeKind) Outcome {
	if !l.enabled {
		return OutcomeDisabled
	}

	nd, ok, err := l.norm.Normalize(obj)
	if err != nil {
		l.failed("Failed to normalize changed object", kind, "", "", err)
		return OutcomeFailed
	}
	if !ok {
		return OutcomeSkipped
	}
	id := nd.Document.ID()

	switch kind {
	case Created, Updated:
		if _, err := l.client.UpsertDocument(ctx, nd.Collection, nd.Document); err != nil {
			l.failed("Failed to index document", kind, nd.Collection, id, err)
			return OutcomeFailed
		}
		l.logger.Debug("Document indexed", zap.String("collection", nd.Collection), zap.String("id", id))
		return OutcomeIndexed
	case Deleted:
		err := l.client.DeleteDocument(ctx, nd.Collection, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			l.failed("Failed to remove document", kind, nd.Collection, id, err)
			return OutcomeFailed
		}
		l.logger.Debug("Document removed", zap.String("collection", nd.Collection), zap.String("id", id))
		return OutcomeRemoved
	default:
		l.logger.Warn("Unknown change kind", zap.String("kind", string(kind)))
		return OutcomeSkipped
	}
}

func (l *Listener) failed(msg string, kind ChangeKind, collection, id string, err error) {
	l.tracker.TrackError(msg, map[string]any{
		"change":     string(kind),
		"collection": collection,
		"document":   id,
	}, err)
	l.logger.Error(msg,
		zap.String("change", string(kind)),
		zap.String("collection", collection),
		zap.String("id", id),
		zap.Error(err),
	)
}
