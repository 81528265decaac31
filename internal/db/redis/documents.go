package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
)

// ImportDocuments writes a batch with one JSON.SET per document in a single DoMulti round-trip.
func (s *Store) ImportDocuments(
	ctx context.Context, name string, docs []document.Document, action document.Action,
) ([]batch.Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := s.requireCollection(ctx, db.OpImportDocuments, name); err != nil {
		return nil, err
	}

	results := make([]batch.Result, len(docs))
	cmds := make([]rueidis.Completed, 0, len(docs))
	slots := make([]int, 0, len(docs))
	for i, d := range docs {
		id := d.ID()
		if id == "" {
			results[i] = batch.NewError("Document is missing the `id` field.")
			continue
		}
		raw, err := json.Marshal(d)
		if err != nil {
			results[i] = batch.NewError(err.Error())
			continue
		}
		cmds = append(cmds, s.jsonSet(name, id, raw, action))
		slots = append(slots, i)
	}
	if len(cmds) == 0 {
		return results, nil
	}

	replies := s.client.DoMulti(ctx, cmds...)
	for j, res := range replies {
		i := slots[j]
		switch err := res.Error(); {
		case err == nil:
			results[i] = batch.NewOK()
		case rueidis.IsRedisNil(err):
			results[i] = batch.NewError(conditionFailure(action))
		case isTransient(err):
			return nil, &db.Error{Op: db.OpImportDocuments, Transient: true, Err: err}
		default:
			results[i] = batch.NewError(err.Error())
		}
	}
	return results, nil
}

func (s *Store) jsonSet(name, id string, raw []byte, action document.Action) rueidis.Completed {
	args := []string{"$", string(raw)}
	switch action {
	case document.ActionCreate:
		args = append(args, "NX")
	case document.ActionUpdate:
		args = append(args, "XX")
	}
	return s.b().Arbitrary("JSON.SET").Keys(s.docKey(name, id)).Args(args...).Build()
}

func conditionFailure(action document.Action) string {
	if action == document.ActionUpdate {
		return "Could not find a document with the given id."
	}
	return "A document with the given id already exists."
}

func (s *Store) requireCollection(ctx context.Context, op, name string) error {
	n, err := s.do(ctx, s.b().Exists().Key(s.metaKey(name)).Build()).AsInt64()
	if err != nil {
		return opError(op, err)
	}
	if n == 0 {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: collection %s", db.ErrNotFound, name)}
	}
	return nil
}

// UpsertDocument creates or replaces a single document.
func (s *Store) UpsertDocument(ctx context.Context, name string, doc document.Document) (document.Document, error) {
	id := doc.ID()
	if id == "" {
		return nil, &db.Error{Op: db.OpUpsertDocument, Err: fmt.Errorf("document id is required")}
	}
	if err := s.requireCollection(ctx, db.OpUpsertDocument, name); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &db.Error{Op: db.OpUpsertDocument, Err: err}
	}
	if err := s.do(ctx, s.jsonSet(name, id, raw, document.ActionUpsert)).Error(); err != nil {
		return nil, opError(db.OpUpsertDocument, err)
	}
	return doc, nil
}

// DeleteDocument removes a document key. Zero keys removed is db.ErrNotFound.
func (s *Store) DeleteDocument(ctx context.Context, name, id string) error {
	n, err := s.do(ctx, s.b().Del().Key(s.docKey(name, id)).Build()).AsInt64()
	if err != nil {
		return opError(db.OpDeleteDocument, err)
	}
	if n == 0 {
		return &db.Error{Op: db.OpDeleteDocument, Err: fmt.Errorf("%w: document %s/%s", db.ErrNotFound, name, id)}
	}
	return nil
}

// RetrieveDocument reads a document by id.
func (s *Store) RetrieveDocument(ctx context.Context, name, id string) (document.Document, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(s.docKey(name, id)).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, &db.Error{Op: db.OpRetrieveDocument, Err: fmt.Errorf("%w: document %s/%s", db.ErrNotFound, name, id)}
		}
		return nil, opError(db.OpRetrieveDocument, err)
	}
	var doc document.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &db.Error{Op: db.OpRetrieveDocument, Err: fmt.Errorf("decode document: %w", err)}
	}
	return doc, nil
}
