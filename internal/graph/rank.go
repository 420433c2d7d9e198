package graph

// AssignRanks computes an integer rank for every vertex in order, equal to
// its emission order when the graph's SCCs (of the edge-reversed graph)
// are listed leaves-first. Vertices within the same SCC receive
// consecutive ranks in the SCC's internal (stack-pop) order.
//
// reverseAdj must be the reverse of the forward adjacency used elsewhere
// (i.e. reverseAdj[v] lists the vertices with an edge into v), since
// ranking is defined over the reversed graph: this yields a source-to-sink
// topological order modulo cycles, matching spec's "assign each vertex an
// integer rank equal to its emission order (SCC-by-SCC)".
func AssignRanks(order []string, reverseAdj map[string][]string) map[string]int {
	sccs := FindSCCs(order, reverseAdj)
	ranks := make(map[string]int)
	rank := 0
	for _, comp := range sccs {
		for _, v := range comp {
			ranks[v] = rank
			rank++
		}
	}
	return ranks
}
