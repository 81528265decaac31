// Package typesense is the HTTP transport to a Typesense-compatible cluster.
package typesense

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
)

// Compile-time check: Client implements db.Engine.
var _ db.Engine = (*Client)(nil)

const (
	// DefaultTimeout is the per-request timeout when none is configured.
	DefaultTimeout = 5 * time.Second

	// MaxResponseSize caps response bodies (64MB).
	MaxResponseSize = 64 * 1024 * 1024

	apiKeyHeader = "X-TYPESENSE-API-KEY"
)

// Read preferences.
const (
	ReadLeaderOnly   = "leader_only"
	ReadFollowerOnly = "follower_only"
	ReadNearest      = "nearest"
)

// Config holds connection parameters for the cluster.
type Config struct {
	APIKey         string
	Nodes          []cluster.Node
	ReadPreference string
	Timeout        time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client talks to every configured node over HTTP and fails over between them.
// It is safe for sequential reuse.
type Client struct {
	apiKey   string
	nodes    []cluster.Node
	readPref string
	http     *http.Client
	logger   *zap.Logger
}

// New creates a cluster client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("at least one node is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	pref := cfg.ReadPreference
	if pref == "" {
		pref = ReadNearest
	}
	return &Client{
		apiKey:   cfg.APIKey,
		nodes:    cfg.Nodes,
		readPref: pref,
		http:     hc,
		logger:   logger,
	}, nil
}

// Nodes returns the configured nodes.
func (c *Client) Nodes() []cluster.Node { return c.nodes }

// Close releases idle connections.
func (c *Client) Close() { c.http.CloseIdleConnections() }

// writeNodes orders leaders first, then followers.
func (c *Client) writeNodes() []cluster.Node {
	out := make([]cluster.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		if n.Role != cluster.RoleFollower {
			out = append(out, n)
		}
	}
	for _, n := range c.nodes {
		if n.Role == cluster.RoleFollower {
			out = append(out, n)
		}
	}
	return out
}

// readNodes filters by read preference. An empty filter result falls back to all nodes.
func (c *Client) readNodes() []cluster.Node {
	var want cluster.Role
	switch c.readPref {
	case ReadLeaderOnly:
		want = cluster.RoleLeader
	case ReadFollowerOnly:
		want = cluster.RoleFollower
	default:
		return c.nodes
	}
	var out []cluster.Node
	for _, n := range c.nodes {
		if n.Role == want {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return c.nodes
	}
	return out
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// do sends req to each candidate until one answers without a transient failure.
func (c *Client) do(ctx context.Context, nodes []cluster.Node, req request) ([]byte, error) {
	var lastErr error
	for _, n := range nodes {
		body, err := c.doNode(ctx, n, req)
		if err == nil {
			return body, nil
		}
		if !db.IsTransient(err) {
			return nil, err
		}
		c.logger.Warn("Node request failed, trying next node",
			zap.String("op", req.op),
			zap.String("node", n.Addr()),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) doNode(ctx context.Context, n cluster.Node, req request) ([]byte, error) {
	origin := &domain.NodeOrigin{
		Host: n.Host, Port: n.Port, Protocol: n.Protocol, Role: string(n.Role), Path: req.path,
	}

	u := n.BaseURL() + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	var rdr io.Reader
	if req.body != nil {
		rdr = bytes.NewReader(req.body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.method, u, rdr)
	if err != nil {
		return nil, &db.Error{Op: req.op, Node: origin, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	hreq.Header.Set(apiKeyHeader, c.apiKey)
	hreq.Header.Set("Accept", "application/json")
	if req.body != nil {
		ct := req.contentType
		if ct == "" {
			ct = "application/json"
		}
		hreq.Header.Set("Content-Type", ct)
	}

	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, &db.Error{Op: req.op, Node: origin, Transient: true, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &db.Error{Op: req.op, Node: origin, Transient: true, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &db.Error{Op: req.op, Node: origin, Err: fmt.Errorf("response exceeds %d bytes", MaxResponseSize)}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, statusError(req.op, origin, resp.StatusCode, body)
}

func statusError(op string, origin *domain.NodeOrigin, status int, body []byte) error {
	msg := errorMessage(body, status)
	e := &db.Error{Op: op, Node: origin, StatusCode: status}
	switch {
	case status == http.StatusNotFound:
		e.Err = fmt.Errorf("%w: %s", db.ErrNotFound, msg)
	case status == http.StatusConflict:
		e.Err = fmt.Errorf("%w: %s", db.ErrAlreadyExists, msg)
	case status >= 500:
		e.Transient = true
		e.Err = errors.New(msg)
	default:
		e.Err = errors.New(msg)
	}
	return e
}

func errorMessage(body []byte, status int) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return http.StatusText(status)
}

func (c *Client) getJSON(ctx context.Context, nodes []cluster.Node, op, path string, q url.Values, out any) error {
	body, err := c.do(ctx, nodes, request{op: op, method: http.MethodGet, path: path, query: q})
	if err != nil {
		return err
	}
	return decode(op, body, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, q url.Values, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}
	body, err := c.do(ctx, c.writeNodes(), request{op: op, method: method, path: path, query: q, body: payload})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(op, body, out)
}

func decode(op string, body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func collectionPath(name string, parts ...string) string {
	p := "/collections/" + url.PathEscape(name)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}
