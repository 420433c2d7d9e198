package statusgraph

import (
	"sort"

	"github.com/tobias/keystone/internal/entity"
	"github.com/tobias/keystone/internal/graph"
)

// Edge is a directed edge from Src to Dst in the status graph.
type Edge struct {
	Src Vertex
	Dst Vertex
}

// Graph is the constructed status graph: vertices with an assigned
// topological rank, sorted in/out edge indices, the cross/entity
// cross-reference maps, and the derived vertex sets the propagation and
// usefulness passes need.
type Graph struct {
	// Vertices lists every vertex, indexed by rank (Vertices[rank] is the
	// vertex with that rank).
	Vertices []Vertex
	// RankOf maps a vertex key to its rank (index into Vertices).
	RankOf map[string]int

	// InEdges and OutEdges are sorted (by source/dest rank) adjacency
	// lists indexed by rank.
	InEdges  [][]int
	OutEdges [][]int

	// CrossOrderMap[rank] gives the rank of cross(name(v)) when v is an
	// entity vertex, or -1 otherwise.
	CrossOrderMap []int
	// CrossOrderInvMap[rank] gives the rank of entity(name(v)) when v is a
	// cross vertex, or -1 otherwise.
	CrossOrderInvMap []int

	// NonEntitySources are ranks of non-entity, non-task vertices with no
	// incoming edges: definitionally pass.
	NonEntitySources []int
	// Tasks are the ranks of all task vertices.
	Tasks []int
	// Sinks are the ranks of vertices with no outgoing edges.
	Sinks []int

	// TaskVertex maps a task vertex's rank back to its (name, solver)
	// identity, for callers that need to report on individual tasks.
	TaskVertex map[int]Vertex
}

// Build constructs the status graph from a solve-resolved entity model.
// Resolve must already have been called on m.
func Build(m *entity.Model) *Graph {
	var edges []Edge

	emit := func(src, dst Vertex) {
		edges = append(edges, Edge{Src: src, Dst: dst})
	}

	for _, key := range m.ProofOrder {
		p := m.Proofs[key]
		pv := Proof(p.Name)

		if p.Solve && len(p.Asserts) > 0 {
			for _, solver := range p.SolveOrder {
				emit(Task(p.Name, solver), pv)
			}
		}

		for _, a := range p.Assumes {
			if a.Cross {
				emit(Cross(a.Target), pv)
			} else {
				emit(Entity(a.Target), pv)
			}
		}

		for _, u := range p.Uses {
			emit(Export(u.Target), pv)
			if u.Export {
				emit(Export(u.Target), Export(p.Name))
			}
		}

		for _, x := range p.Asserts {
			emit(pv, Entity(x.Target))
			if !x.Local {
				emit(Entity(x.Target), AssumeProof(p.Name))
			}
		}

		emit(AssumeProof(p.Name), Entity(p.Name))

		for _, e := range p.Exports {
			if e.Cross {
				emit(Cross(e.Target), Export(p.Name))
			} else {
				emit(Entity(e.Target), Export(p.Name))
			}
		}
	}

	for _, key := range m.InvarOrder {
		inv := m.Invariants[key]
		if inv.Solve {
			for _, solver := range inv.SolveOrder {
				emit(Task(inv.Name, solver), Entity(inv.Name))
			}
		}
	}

	return buildFromEdges(edges)
}

// buildFromEdges performs rank assignment and index precomputation given a
// flat edge list, independent of how the edges were derived (used
// directly by tests).
func buildFromEdges(edges []Edge) *Graph {
	adj := make(map[string][]string)
	reverseAdj := make(map[string][]string)
	vertexByKey := make(map[string]Vertex)
	var insertionOrder []string

	register := func(v Vertex) {
		k := v.Key()
		if _, exists := vertexByKey[k]; !exists {
			vertexByKey[k] = v
			insertionOrder = append(insertionOrder, k)
		}
	}

	for _, e := range edges {
		register(e.Src)
		register(e.Dst)
		sk, dk := e.Src.Key(), e.Dst.Key()
		adj[sk] = append(adj[sk], dk)
		reverseAdj[dk] = append(reverseAdj[dk], sk)
	}

	for _, k := range insertionOrder {
		sort.Strings(adj[k])
		sort.Strings(reverseAdj[k])
	}

	ranks := graph.AssignRanks(insertionOrder, reverseAdj)

	n := len(insertionOrder)
	vertices := make([]Vertex, n)
	for k, r := range ranks {
		vertices[r] = vertexByKey[k]
	}

	rankOf := make(map[string]int, n)
	for k, r := range ranks {
		rankOf[k] = r
	}

	inEdges := make([][]int, n)
	outEdges := make([][]int, n)
	for _, e := range edges {
		sr, dr := rankOf[e.Src.Key()], rankOf[e.Dst.Key()]
		outEdges[sr] = append(outEdges[sr], dr)
		inEdges[dr] = append(inEdges[dr], sr)
	}
	for i := range outEdges {
		sort.Ints(outEdges[i])
		sort.Ints(inEdges[i])
	}

	crossOrderMap := make([]int, n)
	crossOrderInvMap := make([]int, n)
	for i := range crossOrderMap {
		crossOrderMap[i] = -1
		crossOrderInvMap[i] = -1
	}
	for i, v := range vertices {
		switch v.Kind {
		case KindEntity:
			if r, ok := rankOf[Cross(v.Name).Key()]; ok {
				crossOrderMap[i] = r
			}
		case KindCross:
			if r, ok := rankOf[Entity(v.Name).Key()]; ok {
				crossOrderInvMap[i] = r
			}
		}
	}

	var nonEntitySources, tasks, sinks []int
	taskVertex := make(map[int]Vertex)
	for i, v := range vertices {
		if v.Kind == KindTask {
			tasks = append(tasks, i)
			taskVertex[i] = v
		} else if v.Kind != KindEntity && len(inEdges[i]) == 0 {
			nonEntitySources = append(nonEntitySources, i)
		}
		if len(outEdges[i]) == 0 {
			sinks = append(sinks, i)
		}
	}

	return &Graph{
		Vertices:         vertices,
		RankOf:           rankOf,
		InEdges:          inEdges,
		OutEdges:         outEdges,
		CrossOrderMap:    crossOrderMap,
		CrossOrderInvMap: crossOrderInvMap,
		NonEntitySources: nonEntitySources,
		Tasks:            tasks,
		Sinks:            sinks,
		TaskVertex:       taskVertex,
	}
}

// RankByVertex returns the rank of v and whether it exists in the graph.
func (g *Graph) RankByVertex(v Vertex) (int, bool) {
	r, ok := g.RankOf[v.Key()]
	return r, ok
}
