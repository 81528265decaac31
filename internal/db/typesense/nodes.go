package typesense

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
)

// ProbeHealth asks a single node whether it is healthy.
func (c *Client) ProbeHealth(ctx context.Context, node cluster.Node) (bool, error) {
	body, err := c.doNode(ctx, node, request{op: db.OpHealth, method: http.MethodGet, path: "/health"})
	if err != nil {
		return false, err
	}
	var out struct {
		OK bool `json:"ok"`
	}
	if err := decode(db.OpHealth, body, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

// ProbeDebug reads version and raft state from a single node.
func (c *Client) ProbeDebug(ctx context.Context, node cluster.Node) (cluster.DebugInfo, error) {
	var info cluster.DebugInfo
	body, err := c.doNode(ctx, node, request{op: db.OpDebug, method: http.MethodGet, path: "/debug"})
	if err != nil {
		return info, err
	}
	err = decode(db.OpDebug, body, &info)
	return info, err
}

// Stats reads the node's stats.json.
func (c *Client) Stats(ctx context.Context, node cluster.Node) (map[string]any, error) {
	body, err := c.doNode(ctx, node, request{op: db.OpStats, method: http.MethodGet, path: "/stats.json"})
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &db.Error{Op: db.OpStats, Err: err}
	}
	return out, nil
}
