package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

// UpsertSynonym runs FT.SYNUPDATE and records the definition for listing.
// RediSearch groups are symmetric, so a root term joins the group as a plain term.
func (s *Store) UpsertSynonym(ctx context.Context, name string, syn synonym.Synonym) error {
	terms := make([]string, 0, len(syn.Synonyms)+1)
	if syn.Root != "" {
		terms = append(terms, syn.Root)
	}
	terms = append(terms, syn.Synonyms...)

	args := append([]string{s.indexName(name), syn.ID}, terms...)
	if err := s.do(ctx, s.b().Arbitrary("FT.SYNUPDATE").Args(args...).Build()).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return &db.Error{Op: db.OpUpsertSynonym, Err: fmt.Errorf("%w: collection %s", db.ErrNotFound, name)}
		}
		return opError(db.OpUpsertSynonym, err)
	}

	raw, err := json.Marshal(syn)
	if err != nil {
		return &db.Error{Op: db.OpUpsertSynonym, Err: err}
	}
	hset := s.b().Hset().Key(s.synonymKey(name)).FieldValue().FieldValue(syn.ID, string(raw)).Build()
	if err := s.do(ctx, hset).Error(); err != nil {
		return opError(db.OpUpsertSynonym, err)
	}
	return nil
}

// ListSynonyms returns recorded definitions ordered by id.
func (s *Store) ListSynonyms(ctx context.Context, name string) ([]synonym.Synonym, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(s.synonymKey(name)).Build()).AsStrMap()
	if err != nil {
		return nil, opError(db.OpListSynonyms, err)
	}
	list := make([]synonym.Synonym, 0, len(m))
	for id, raw := range m {
		var syn synonym.Synonym
		if err := json.Unmarshal([]byte(raw), &syn); err != nil {
			return nil, &db.Error{Op: db.OpListSynonyms, Err: fmt.Errorf("decode synonym %s: %w", id, err)}
		}
		syn.ID = id
		syn.Collection = name
		list = append(list, syn)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// DeleteSynonym forgets the definition. RediSearch keeps the group itself,
// which is reported as db.ErrNotSupported.
func (s *Store) DeleteSynonym(ctx context.Context, name, id string) error {
	n, err := s.do(ctx, s.b().Hdel().Key(s.synonymKey(name)).Field(id).Build()).AsInt64()
	if err != nil {
		return opError(db.OpDeleteSynonym, err)
	}
	if n == 0 {
		return &db.Error{Op: db.OpDeleteSynonym, Err: fmt.Errorf("%w: synonym %s/%s", db.ErrNotFound, name, id)}
	}
	return &db.Error{
		Op:  db.OpDeleteSynonym,
		Err: fmt.Errorf("%w: synonym group %s stays in the index until it is recreated", db.ErrNotSupported, id),
	}
}
