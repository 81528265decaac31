package typesense

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
)

// CreateCollection posts the schema. An existing collection yields db.ErrAlreadyExists.
func (c *Client) CreateCollection(ctx context.Context, schema collection.Schema) (collection.Info, error) {
	var info collection.Info
	err := c.sendJSON(ctx, db.OpCreateCollection, http.MethodPost, "/collections", nil, schema, &info)
	return info, err
}

// DeleteCollection drops a collection. A missing collection yields db.ErrNotFound.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	_, err := c.do(ctx, c.writeNodes(), request{
		op: db.OpDeleteCollection, method: http.MethodDelete, path: collectionPath(name),
	})
	return err
}

// RetrieveCollection fetches the applied schema and document count.
func (c *Client) RetrieveCollection(ctx context.Context, name string) (collection.Info, error) {
	var info collection.Info
	err := c.getJSON(ctx, c.readNodes(), db.OpRetrieveCollection, collectionPath(name), nil, &info)
	return info, err
}
