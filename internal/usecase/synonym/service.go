// Package synonym manages synonym groups across collections.
package synonym

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domsyn "github.com/kailas-cloud/indexsync/internal/domain/synonym"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

// Store is the synonym subset of the index client.
type Store interface {
	UpsertSynonym(ctx context.Context, collection string, s domsyn.Synonym) error
	ListSynonyms(ctx context.Context, collection string) ([]domsyn.Synonym, error)
	DeleteSynonym(ctx context.Context, collection, id string) error
}

// Catalog lists the registered indexable types.
type Catalog interface {
	Descriptors() []*registry.Descriptor
}

// Target is the set of synonyms to push to one collection.
type Target struct {
	Collection string
	Synonyms   []domsyn.Synonym
}

// ApplyResult counts pushed definitions.
type ApplyResult struct {
	Applied int
	Failed  int
}

// Service upserts, lists and deletes synonyms. An empty collection means every
// registered collection.
type Service struct {
	store      Store
	catalog    Catalog
	configured []domsyn.Synonym
	logger     *zap.Logger
}

// New creates a synonym service. configured holds the synonyms from config.
func New(store Store, catalog Catalog, configured []domsyn.Synonym, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, catalog: catalog, configured: configured, logger: logger}
}

// Upsert creates or replaces s by id.
func (s *Service) Upsert(ctx context.Context, collection string, syn domsyn.Synonym) error {
	if err := syn.Validate(); err != nil {
		return domain.NewConfigurationError("%v", err)
	}
	cols, err := s.collections(collection)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if err := s.store.UpsertSynonym(ctx, c, syn); err != nil {
			return fmt.Errorf("upsert synonym %s in %s: %w", syn.ID, c, err)
		}
		s.logger.Info("Synonym upserted", zap.String("collection", c), zap.String("id", syn.ID))
	}
	return nil
}

// List returns the synonyms stored in collection, tagged with their collection.
func (s *Service) List(ctx context.Context, collection string) ([]domsyn.Synonym, error) {
	cols, err := s.collections(collection)
	if err != nil {
		return nil, err
	}
	var out []domsyn.Synonym
	for _, c := range cols {
		list, err := s.store.ListSynonyms(ctx, c)
		if err != nil {
			if collection == "" && errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("list synonyms of %s: %w", c, err)
		}
		for _, syn := range list {
			syn.Collection = c
			out = append(out, syn)
		}
	}
	return out, nil
}

// Delete removes a synonym group. When collection is empty, collections that
// lack the group are ignored.
func (s *Service) Delete(ctx context.Context, collection, id string) error {
	if id == "" {
		return domain.NewConfigurationError("synonym id is required")
	}
	cols, err := s.collections(collection)
	if err != nil {
		return err
	}
	deleted := 0
	for _, c := range cols {
		err := s.store.DeleteSynonym(ctx, c, id)
		switch {
		case err == nil:
			deleted++
		case collection == "" && errors.Is(err, domain.ErrNotFound):
		default:
			return fmt.Errorf("delete synonym %s in %s: %w", id, c, err)
		}
	}
	if deleted == 0 {
		return &domain.ClusterError{Kind: domain.ErrNotFound, Op: "delete_synonym", Message: "synonym " + id}
	}
	return nil
}

// Plan merges type-declared and configured synonyms per collection. Global
// definitions go to every registered collection. Later definitions with the
// same id replace earlier ones.
func (s *Service) Plan() []Target {
	byCol := map[string][]domsyn.Synonym{}
	add := func(c string, syn domsyn.Synonym) {
		syn.Collection = c
		list := byCol[c]
		for i := range list {
			if list[i].ID == syn.ID {
				list[i] = syn
				return
			}
		}
		byCol[c] = append(list, syn)
	}

	descs := s.catalog.Descriptors()
	for _, d := range descs {
		for _, syn := range d.Synonyms {
			add(d.Collection, syn)
		}
	}
	for _, syn := range s.configured {
		if syn.IsGlobal() {
			for _, d := range descs {
				add(d.Collection, syn)
			}
			continue
		}
		add(syn.Collection, syn)
	}

	out := make([]Target, 0, len(byCol))
	for c, list := range byCol {
		out = append(out, Target{Collection: c, Synonyms: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Collection < out[j].Collection })
	return out
}

// Apply pushes every planned synonym. It keeps going after a failure and
// returns the joined errors.
func (s *Service) Apply(ctx context.Context) (ApplyResult, error) {
	var (
		res  ApplyResult
		errs []error
	)
	for _, target := range s.Plan() {
		for _, syn := range target.Synonyms {
			if err := syn.Validate(); err != nil {
				res.Failed++
				errs = append(errs, domain.NewConfigurationError("%v", err))
				continue
			}
			if err := s.store.UpsertSynonym(ctx, target.Collection, syn); err != nil {
				res.Failed++
				errs = append(errs, fmt.Errorf("apply synonym %s to %s: %w", syn.ID, target.Collection, err))
				s.logger.Error("Failed to apply synonym",
					zap.String("collection", target.Collection),
					zap.String("id", syn.ID),
					zap.Error(err),
				)
				continue
			}
			res.Applied++
		}
	}
	s.logger.Info("Synonyms applied", zap.Int("applied", res.Applied), zap.Int("failed", res.Failed))
	return res, errors.Join(errs...)
}

func (s *Service) collections(collection string) ([]string, error) {
	if collection != "" {
		return []string{collection}, nil
	}
	descs := s.catalog.Descriptors()
	if len(descs) == 0 {
		return nil, domain.NewConfigurationError("no indexable collections are registered")
	}
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Collection)
	}
	return out, nil
}
