package redis

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/indexsync/internal/domain/cluster"
)

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
// Probe clients resolve to the same client.
func NewStoreForTest(c rueidis.Client, nodes ...cluster.Node) *Store {
	return &Store{
		client: c,
		prefix: "test:",
		nodes:  nodes,
		probes: map[string]rueidis.Client{},
		dial:   func(string) (rueidis.Client, error) { return c, nil },
	}
}
