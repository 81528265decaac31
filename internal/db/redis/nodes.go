package redis

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
)

// Nodes returns the probed nodes.
func (s *Store) Nodes() []cluster.Node { return s.nodes }

// ProbeHealth sends PING to a single node.
func (s *Store) ProbeHealth(ctx context.Context, node cluster.Node) (bool, error) {
	c, err := s.probe(node)
	if err != nil {
		return false, nodeError(db.OpHealth, node, err)
	}
	if err := c.Do(ctx, c.B().Ping().Build()).Error(); err != nil {
		return false, nodeError(db.OpHealth, node, err)
	}
	return true, nil
}

// ProbeDebug maps the replication role onto engine state codes
// (master = leader, replica = follower).
func (s *Store) ProbeDebug(ctx context.Context, node cluster.Node) (cluster.DebugInfo, error) {
	c, err := s.probe(node)
	if err != nil {
		return cluster.DebugInfo{}, nodeError(db.OpDebug, node, err)
	}
	replies := c.DoMulti(ctx,
		c.B().Arbitrary("INFO").Args("server").Build(),
		c.B().Arbitrary("INFO").Args("replication").Build(),
	)
	var info cluster.DebugInfo
	for i, res := range replies {
		raw, err := res.ToString()
		if err != nil {
			return cluster.DebugInfo{}, nodeError(db.OpDebug, node, err)
		}
		kv := parseInfo(raw)
		if i == 0 {
			info.Version = kv["redis_version"]
			continue
		}
		switch kv["role"] {
		case "master":
			info.State = cluster.StateLeader
		case "slave", "replica":
			info.State = cluster.StateFollower
		}
	}
	return info, nil
}

// Stats returns the INFO stats section as strings.
func (s *Store) Stats(ctx context.Context, node cluster.Node) (map[string]any, error) {
	c, err := s.probe(node)
	if err != nil {
		return nil, nodeError(db.OpStats, node, err)
	}
	raw, err := c.Do(ctx, c.B().Arbitrary("INFO").Args("stats").Build()).ToString()
	if err != nil {
		return nil, nodeError(db.OpStats, node, err)
	}
	out := make(map[string]any)
	for k, v := range parseInfo(raw) {
		out[k] = v
	}
	return out, nil
}

func (s *Store) probe(node cluster.Node) (rueidis.Client, error) {
	addr := node.Addr()
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.probes[addr]; ok {
		return c, nil
	}
	c, err := s.dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	s.probes[addr] = c
	return c, nil
}

func nodeError(op string, node cluster.Node, err error) error {
	return &db.Error{
		Op: op,
		Node: &domain.NodeOrigin{
			Host: node.Host, Port: node.Port, Protocol: node.Protocol, Role: string(node.Role),
		},
		Transient: isTransient(err),
		Err:       err,
	}
}

// parseInfo reads "key:value" lines, skipping "# Section" headers.
func parseInfo(raw string) map[string]string {
	kv := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			kv[k] = v
		}
	}
	return kv
}
