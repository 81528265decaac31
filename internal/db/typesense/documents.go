package typesense

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/batch"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
)

// ImportDocuments sends one JSONL batch. The engine answers with one JSON line per document.
func (c *Client) ImportDocuments(
	ctx context.Context, name string, docs []document.Document, action document.Action,
) ([]batch.Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if action == "" {
		action = document.ActionUpsert
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return nil, &db.Error{Op: db.OpImportDocuments, Err: fmt.Errorf("encode document %s: %w", d.ID(), err)}
		}
	}

	body, err := c.do(ctx, c.writeNodes(), request{
		op:          db.OpImportDocuments,
		method:      http.MethodPost,
		path:        collectionPath(name, "documents", "import"),
		query:       url.Values{"action": {string(action)}},
		body:        buf.Bytes(),
		contentType: "text/plain",
	})
	if err != nil {
		return nil, err
	}
	return parseImportResults(body, len(docs))
}

func parseImportResults(body []byte, expected int) ([]batch.Result, error) {
	results := make([]batch.Result, 0, expected)
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), MaxResponseSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var r batch.Result
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, &db.Error{Op: db.OpImportDocuments, Err: fmt.Errorf("decode import line %d: %w", len(results)+1, err)}
		}
		results = append(results, r)
	}
	if err := sc.Err(); err != nil {
		return nil, &db.Error{Op: db.OpImportDocuments, Err: fmt.Errorf("read import response: %w", err)}
	}
	if len(results) != expected {
		return nil, &db.Error{
			Op:  db.OpImportDocuments,
			Err: fmt.Errorf("import returned %d results for %d documents", len(results), expected),
		}
	}
	return results, nil
}

// UpsertDocument creates or replaces a single document.
func (c *Client) UpsertDocument(ctx context.Context, name string, doc document.Document) (document.Document, error) {
	var out document.Document
	err := c.sendJSON(ctx, db.OpUpsertDocument, http.MethodPost, collectionPath(name, "documents"),
		url.Values{"action": {string(document.ActionUpsert)}}, doc, &out)
	return out, err
}

// DeleteDocument removes a document by id.
func (c *Client) DeleteDocument(ctx context.Context, name, id string) error {
	_, err := c.do(ctx, c.writeNodes(), request{
		op: db.OpDeleteDocument, method: http.MethodDelete, path: collectionPath(name, "documents", id),
	})
	return err
}

// RetrieveDocument fetches a document by id.
func (c *Client) RetrieveDocument(ctx context.Context, name, id string) (document.Document, error) {
	var out document.Document
	err := c.getJSON(ctx, c.readNodes(), db.OpRetrieveDocument, collectionPath(name, "documents", id), nil, &out)
	return out, err
}

// Search passes params through to the search endpoint.
func (c *Client) Search(ctx context.Context, name string, p document.SearchParams) (document.SearchResult, error) {
	q := url.Values{}
	q.Set("q", p.Q)
	if p.Q == "" {
		q.Set("q", "*")
	}
	if p.QueryBy != "" {
		q.Set("query_by", p.QueryBy)
	}
	if p.FilterBy != "" {
		q.Set("filter_by", p.FilterBy)
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}
	for k, v := range p.Extra {
		q.Set(k, v)
	}

	var out document.SearchResult
	err := c.getJSON(ctx, c.readNodes(), db.OpSearch, collectionPath(name, "documents", "search"), q, &out)
	return out, err
}
