package typesense

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

type synonymPayload struct {
	ID       string   `json:"id,omitempty"`
	Root     string   `json:"root,omitempty"`
	Synonyms []string `json:"synonyms"`
}

// UpsertSynonym creates or replaces a synonym group by id.
func (c *Client) UpsertSynonym(ctx context.Context, name string, s synonym.Synonym) error {
	in := synonymPayload{Root: s.Root, Synonyms: s.Synonyms}
	return c.sendJSON(ctx, db.OpUpsertSynonym, http.MethodPut, collectionPath(name, "synonyms", s.ID), nil, in, nil)
}

// ListSynonyms returns every synonym group of a collection.
func (c *Client) ListSynonyms(ctx context.Context, name string) ([]synonym.Synonym, error) {
	var out struct {
		Synonyms []synonymPayload `json:"synonyms"`
	}
	if err := c.getJSON(ctx, c.readNodes(), db.OpListSynonyms, collectionPath(name, "synonyms"), nil, &out); err != nil {
		return nil, err
	}
	list := make([]synonym.Synonym, 0, len(out.Synonyms))
	for _, p := range out.Synonyms {
		list = append(list, synonym.Synonym{ID: p.ID, Root: p.Root, Synonyms: p.Synonyms, Collection: name})
	}
	return list, nil
}

// DeleteSynonym removes a synonym group by id.
func (c *Client) DeleteSynonym(ctx context.Context, name, id string) error {
	_, err := c.do(ctx, c.writeNodes(), request{
		op: db.OpDeleteSynonym, method: http.MethodDelete, path: collectionPath(name, "synonyms", id),
	})
	return err
}
