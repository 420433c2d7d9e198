// Package graph provides an iterative strongly-connected-components finder
// used both for the historical proof-cycle report and for assigning a
// topological rank to status graph vertices.
package graph

import "math"

// FindSCCs returns the strongly connected components of the graph
// described by adj, in reverse topological order (leaves/sinks first).
//
// adj maps a vertex key to its out-edge target keys. order gives the
// vertices in the insertion order used to break ties deterministically;
// it must include every key that appears in adj (as a source or a target)
// for the result to be well-defined, and any adj entry absent from order
// is still visited when reached via an edge, using edges in the order
// returned by adj's slice value.
//
// The algorithm is a standard Tarjan's algorithm, implemented with an
// explicit stack so that arbitrarily deep graphs do not overflow the Go
// call stack.
func FindSCCs(order []string, adj map[string][]string) [][]string {
	low := make(map[string]int)
	var stack []string
	var components [][]string

	type frame struct {
		node  string
		edges []string
		idx   int // next edge index to try
		num   int
	}
	var dfs []frame

	visit := func(start string) {
		if _, seen := low[start]; seen {
			return
		}
		dfs = append(dfs, frame{node: start, edges: nil, idx: -1, num: len(low)})

		for len(dfs) > 0 {
			top := &dfs[len(dfs)-1]

			if top.idx == -1 {
				if _, seen := low[top.node]; seen {
					dfs = dfs[:len(dfs)-1]
					continue
				}
				low[top.node] = top.num
				stack = append(stack, top.node)
				top.edges = adj[top.node]
				top.idx = 0
			}

			if top.idx < len(top.edges) {
				next := top.edges[top.idx]
				top.idx++
				if _, seen := low[next]; !seen {
					dfs = append(dfs, frame{node: next, edges: nil, idx: -1, num: len(low)})
				}
				continue
			}

			node := top.node
			num := top.num
			val := low[node]
			for _, e := range adj[node] {
				if lv, seen := low[e]; seen {
					if lv < val {
						val = lv
					}
				}
			}
			low[node] = val
			dfs = dfs[:len(dfs)-1]

			if num == val {
				var component []string
				for len(stack) > 0 {
					n := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					component = append(component, n)
					low[n] = math.MaxInt // fully closed, excluded from future min comparisons
					if n == node {
						break
					}
				}
				components = append(components, component)
			}
		}
	}

	for _, start := range order {
		visit(start)
	}
	return components
}
