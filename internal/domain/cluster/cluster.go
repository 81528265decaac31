package cluster

import (
	"fmt"
	"strconv"
)

// Role is the configured role of a node.
type Role string

// Node roles.
const (
	RoleLeader   Role = "leader"
	RoleFollower Role = "follower"
)

// Engine state codes reported by the debug endpoint.
const (
	StateLeader   = 1
	StateFollower = 4
)

// Node describes one cluster member.
type Node struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Role     Role   `json:"role" yaml:"role"`
}

// Addr returns host:port.
func (n Node) Addr() string { return n.Host + ":" + strconv.Itoa(n.Port) }

// BaseURL returns protocol://host:port.
func (n Node) BaseURL() string { return fmt.Sprintf("%s://%s:%d", n.Protocol, n.Host, n.Port) }

// DebugInfo is the subset of the debug endpoint the evaluator needs.
type DebugInfo struct {
	Version string `json:"version"`
	State   int    `json:"state"`
}

// StateName maps a state code to leader, follower or unknown.
func StateName(state int) string {
	switch state {
	case StateLeader:
		return "leader"
	case StateFollower:
		return "follower"
	default:
		return "unknown"
	}
}

// Verdict is the tri-state cluster health.
type Verdict string

// Verdicts.
const (
	Green  Verdict = "green"
	Yellow Verdict = "yellow"
	Red    Verdict = "red"
)

// Quorum returns floor(n/2)+1.
func Quorum(n int) int { return n/2 + 1 }

// Evaluate computes the verdict and its reason from node counts.
// Split brain and lost quorum are red; no leader with quorum is yellow.
func Evaluate(active, leaders, total int) (Verdict, string) {
	q := Quorum(total)
	switch {
	case active < q:
		return Red, fmt.Sprintf("quorum not met: %d of %d nodes active, %d required", active, total, q)
	case leaders > 1:
		return Red, fmt.Sprintf("split brain: %d nodes report leadership", leaders)
	case leaders == 0:
		return Yellow, fmt.Sprintf("no leader elected: %d of %d nodes active", active, total)
	default:
		return Green, fmt.Sprintf("%d of %d nodes active, leader elected", active, total)
	}
}
