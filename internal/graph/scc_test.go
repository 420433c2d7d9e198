package graph_test

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/tobias/keystone/internal/graph"
)

func TestFindSCCsLinearChainIsLeavesFirst(t *testing.T) {
	// a -> b -> c: c is a sink, should appear first.
	order := []string{"a", "b", "c"}
	adj := map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}
	got := graph.FindSCCs(order, adj)
	if len(got) != 3 {
		t.Fatalf("expected 3 singleton components, got %v", got)
	}
	if got[0][0] != "c" {
		t.Errorf("first component = %v, want sink c first", got[0])
	}
	if got[2][0] != "a" {
		t.Errorf("last component = %v, want source a last", got[2])
	}
}

func TestFindSCCsCycle(t *testing.T) {
	// a -> b -> c -> a is one strongly connected component.
	order := []string{"a", "b", "c"}
	adj := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	got := graph.FindSCCs(order, adj)
	if len(got) != 1 {
		t.Fatalf("expected 1 component, got %v", got)
	}
	want := map[string]bool{"a": true, "b": true, "c": true}
	gotSet := map[string]bool{}
	for _, v := range got[0] {
		gotSet[v] = true
	}
	if !reflect.DeepEqual(want, gotSet) {
		t.Errorf("component = %v, want %v", gotSet, want)
	}
}

func TestFindSCCsDeterministicTieBreak(t *testing.T) {
	// Two disconnected singleton vertices: order must follow insertion order.
	order := []string{"z", "a"}
	adj := map[string][]string{}
	got := graph.FindSCCs(order, adj)
	if len(got) != 2 || got[0][0] != "z" || got[1][0] != "a" {
		t.Errorf("FindSCCs() = %v, want insertion-ordered [z] [a]", got)
	}
}

func TestFindSCCsDeepChainIsIterative(t *testing.T) {
	const n = 20000
	order := make([]string, n)
	adj := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		order[i] = "v" + strconv.Itoa(i)
		if i+1 < n {
			adj[order[i]] = []string{"v" + strconv.Itoa(i+1)}
		}
	}
	got := graph.FindSCCs(order, adj)
	if len(got) != n {
		t.Fatalf("expected %d singleton components on a deep chain, got %d", n, len(got))
	}
}

func TestAssignRanksLeavesGetLowestRankUnderReversedInput(t *testing.T) {
	// Forward graph a -> b -> c. Caller passes the reversed adjacency
	// (c -> b -> a) so AssignRanks produces a source-first rank order.
	order := []string{"a", "b", "c"}
	reverseAdj := map[string][]string{
		"c": {"b"},
		"b": {"a"},
	}
	ranks := graph.AssignRanks(order, reverseAdj)
	if ranks["a"] >= ranks["b"] || ranks["b"] >= ranks["c"] {
		t.Errorf("ranks = %v, want a < b < c", ranks)
	}
}
