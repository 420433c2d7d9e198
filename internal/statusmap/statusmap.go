package statusmap

import (
	"github.com/tobias/keystone/internal/status"
	"github.com/tobias/keystone/internal/statusgraph"
)

// Map is a mutable valuation from vertex rank to status, plus a per-vertex
// usefulness flag, built against a fixed Graph.
type Map struct {
	g       *statusgraph.Graph
	current []status.Status
	useful  []bool

	dirty       *dirtyQueue
	crossDirty  map[int]bool
	usefulDirty *usefulQueue
}

// New builds a Map over g, initialized per spec: every vertex starts
// Unreachable, then every non-entity source is set to Pass, and every task
// vertex is seeded from taskStatus (falling back to Pending when the
// store has no value for it yet).
func New(g *statusgraph.Graph, taskStatus map[statusgraph.Vertex]status.Status) *Map {
	m := &Map{
		g:           g,
		current:     make([]status.Status, len(g.Vertices)),
		useful:      make([]bool, len(g.Vertices)),
		dirty:       newDirtyQueue(),
		crossDirty:  make(map[int]bool),
		usefulDirty: newUsefulQueue(),
	}
	for i := range m.current {
		m.current[i] = status.Unreachable
	}
	for _, r := range g.NonEntitySources {
		m.setStatus(r, status.Pass)
	}
	for _, r := range g.Tasks {
		v := g.TaskVertex[r]
		s, ok := taskStatus[v]
		if !ok {
			s = status.Pending
		}
		m.setStatus(r, s)
	}
	return m
}

// Status returns the current status of the vertex at rank.
func (m *Map) Status(rank int) status.Status { return m.current[rank] }

// Useful returns the current usefulness flag of the vertex at rank.
func (m *Map) Useful(rank int) bool { return m.useful[rank] }

// setStatus implements spec's set_status(v, s): no-op if unchanged;
// otherwise records the new value, marks cross-dirty if applicable, and
// enqueues every out-edge target as dirty.
func (m *Map) setStatus(rank int, s status.Status) {
	if m.current[rank] == s {
		return
	}
	m.current[rank] = s
	if m.g.CrossOrderMap[rank] >= 0 {
		m.crossDirty[rank] = true
	}
	for _, dst := range m.g.OutEdges[rank] {
		m.dirty.push(dst)
	}
}

// Iterate runs the forward propagation fixed-point loop (spec §4.4) to
// completion: drain the dirty queue by ascending rank, recomputing each
// vertex by its combinator, then flush cross-dirty vertices into their
// paired cross vertex, repeating until both are empty.
func (m *Map) Iterate() {
	for {
		for {
			rank, ok := m.dirty.pop()
			if !ok {
				break
			}
			m.recompute(rank)
		}
		if len(m.crossDirty) == 0 {
			return
		}
		for rank := range m.crossDirty {
			delete(m.crossDirty, rank)
			crossRank := m.g.CrossOrderMap[rank]
			if crossRank >= 0 {
				m.setStatus(crossRank, m.current[rank])
			}
		}
		if m.dirty.empty() && len(m.crossDirty) == 0 {
			return
		}
	}
}

// recompute applies the vertex's combinator over its in-edge values and
// stores the result via setStatus.
func (m *Map) recompute(rank int) {
	v := m.g.Vertices[rank]
	ins := m.g.InEdges[rank]
	vals := make([]status.Status, len(ins))
	for i, src := range ins {
		vals[i] = m.current[src]
	}
	var s status.Status
	if v.Kind.IsCombinatorAnd() {
		s = status.And(vals)
	} else {
		s = status.Or(vals)
	}
	m.setStatus(rank, s)
}

// MarkSinksUseful seeds the usefulness back-propagation queue from the
// graph's sink vertices (spec §4.5's mark_sinks_as_useful).
func (m *Map) MarkSinksUseful() {
	for _, r := range m.g.Sinks {
		m.setUseful(r)
	}
}

// setUseful is idempotent and short-circuits on terminal statuses,
// matching spec's set_useful(v).
func (m *Map) setUseful(rank int) {
	if m.useful[rank] {
		return
	}
	if m.current[rank].Terminal() {
		return
	}
	m.useful[rank] = true
	for _, src := range m.g.InEdges[rank] {
		m.usefulDirty.push(src)
	}
	if crossSrc := m.g.CrossOrderInvMap[rank]; crossSrc >= 0 {
		m.usefulDirty.push(crossSrc)
	}
}

// BackPropagateUseful drains the usefulness queue (highest rank first),
// marking each popped vertex useful per spec §4.5: a vertex is useful if
// it is a non-proof sink (seeded by MarkSinksUseful) or a predecessor of a
// useful vertex whose own status is not yet terminal.
func (m *Map) BackPropagateUseful() {
	for {
		rank, ok := m.usefulDirty.pop()
		if !ok {
			return
		}
		m.setUseful(rank)
	}
}
