package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
)

// Compile-time check: Store implements db.Engine.
var _ db.Engine = (*Store)(nil)

// DefaultKeyPrefix namespaces every key the store writes.
const DefaultKeyPrefix = "indexsync:"

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	// Nodes are probed individually for health; defaults to Addrs as leaders.
	Nodes []cluster.Node
}

// Store implements db.Engine on Redis 8+ (RediSearch + RedisJSON) via rueidis.
type Store struct {
	client rueidis.Client
	prefix string
	nodes  []cluster.Node

	dial   func(addr string) (rueidis.Client, error)
	mu     sync.Mutex
	probes map[string]rueidis.Client
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	opt := rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH and FT.INFO parsing expect RESP2 arrays
	}
	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	nodes := cfg.Nodes
	if len(nodes) == 0 {
		nodes = nodesFromAddrs(cfg.Addrs)
	}

	s := &Store{client: client, prefix: prefix, nodes: nodes, probes: map[string]rueidis.Client{}}
	s.dial = func(addr string) (rueidis.Client, error) {
		o := opt
		o.InitAddress = []string{addr}
		o.DisableRetry = true
		return rueidis.NewClient(o)
	}
	return s, nil
}

func nodesFromAddrs(addrs []string) []cluster.Node {
	nodes := make([]cluster.Node, 0, len(addrs))
	for _, a := range addrs {
		host, port := a, 6379
		if i := strings.LastIndexByte(a, ':'); i > 0 {
			host = a[:i]
			_, _ = fmt.Sscanf(a[i+1:], "%d", &port)
		}
		nodes = append(nodes, cluster.Node{Host: host, Port: port, Protocol: "redis", Role: cluster.RoleLeader})
	}
	return nodes
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the main client and every probe client.
func (s *Store) Close() {
	s.mu.Lock()
	for addr, c := range s.probes {
		if c != s.client {
			c.Close()
		}
		delete(s.probes, addr)
	}
	s.mu.Unlock()
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

func (s *Store) indexName(collection string) string { return s.prefix + collection + ":idx" }
func (s *Store) docPrefix(collection string) string { return s.prefix + "doc:" + collection + ":" }
func (s *Store) docKey(collection, id string) string { return s.docPrefix(collection) + id }
func (s *Store) metaKey(collection string) string    { return s.prefix + "collection:" + collection }
func (s *Store) synonymKey(collection string) string { return s.prefix + "synonyms:" + collection }

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}

// isTransient reports network-level failures; server replies are never transient.
func isTransient(err error) bool {
	_, ok := rueidis.IsRedisErr(err)
	return !ok && !rueidis.IsRedisNil(err)
}

func opError(op string, err error) *db.Error {
	return &db.Error{Op: op, Transient: isTransient(err), Err: err}
}
