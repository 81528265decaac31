package cluster

import (
	"strings"
	"testing"
)

func TestQuorum(t *testing.T) {
	tests := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3}
	for n, want := range tests {
		if got := Quorum(n); got != want {
			t.Errorf("Quorum(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name                   string
		active, leaders, total int
		want                   Verdict
		reason                 string
	}{
		{"two of three with leader", 2, 1, 3, Green, "leader elected"},
		{"one of three", 1, 0, 3, Red, "quorum"},
		{"two of three no leader", 2, 0, 3, Yellow, "no leader"},
		{"split brain", 2, 2, 2, Red, "split brain"},
		{"single node leader", 1, 1, 1, Green, "leader elected"},
	}
	for _, tt := range tests {
		got, reason := Evaluate(tt.active, tt.leaders, tt.total)
		if got != tt.want {
			t.Errorf("%s: verdict = %q, want %q", tt.name, got, tt.want)
		}
		if !strings.Contains(reason, tt.reason) {
			t.Errorf("%s: reason = %q, want to contain %q", tt.name, reason, tt.reason)
		}
	}
}

func TestStateName(t *testing.T) {
	if StateName(1) != "leader" || StateName(4) != "follower" || StateName(0) != "unknown" {
		t.Error("state names mismatch")
	}
}

func TestNode_Addr(t *testing.T) {
	n := Node{Host: "search-1", Port: 8108, Protocol: "http"}
	if n.Addr() != "search-1:8108" {
		t.Errorf("Addr() = %q", n.Addr())
	}
	if n.BaseURL() != "http://search-1:8108" {
		t.Errorf("BaseURL() = %q", n.BaseURL())
	}
}
