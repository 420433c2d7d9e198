// Package entity models the tagged-union proof/invariant entities ingested
// from a design's JSON export, along with the solve-resolution pass that
// assigns solver directives before the status graph is built.
package entity

import "github.com/tobias/keystone/internal/name"

// Kind is the closed set of entity kinds. Only Proof and Invariant are
// materialized here; Sequence and Property may appear only as reference
// targets in raw export data and are not represented as entities.
type Kind int

const (
	KindProof Kind = iota
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindProof:
		return "proof"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Assumption is a reference to another entity assumed by a proof, with an
// optional cross flag (lagged-by-one-cycle assumption).
type Assumption struct {
	Target name.Name
	Cross  bool
}

// Assertion is a reference to an invariant asserted by a proof, with an
// optional local flag (not re-exported as an entity-level assumption).
type Assertion struct {
	Target name.Name
	Local  bool
}

// Use is a reference to another proof reused by this one, with an optional
// export flag (transitively re-exported).
type Use struct {
	Target name.Name
	Export bool
}

// Export is a reference re-exported by this proof, with an optional cross
// flag.
type Export struct {
	Target name.Name
	Cross  bool
}

// SolveDirective names a solver and an optional priority for a single
// solve target.
type SolveDirective struct {
	Solver   string
	Priority *int
}

// Proof is a proof entity: its name, source location, and the sets of
// items that drive status-graph edge generation.
type Proof struct {
	Name      name.Name
	SrcLoc    string
	TopLevel  bool
	Automatic bool

	Uses    []Use
	Assumes []Assumption
	Asserts []Assertion
	Exports []Export

	// Solve is set true once the solve-resolution pass (Resolve) determines
	// this proof (or its entity) must be solved by at least one solver.
	Solve bool
	// SolveWith maps solver string to an optional priority, populated by
	// Resolve. Keys are insertion-ordered via SolveOrder.
	SolveWith  map[string]*int
	SolveOrder []string
}

// Invariant is an invariant entity: solve/solve_with are populated only by
// module- or proof-level solve directives during resolution, never
// directly from the invariant's own JSON record.
type Invariant struct {
	Name   name.Name
	SrcLoc string

	Solve      bool
	SolveWith  map[string]*int
	SolveOrder []string
}

// ModuleSolve is a module-level solve directive from the JSON export's
// top-level "solve" array, targeting either a proof or an invariant by
// name.
type ModuleSolve struct {
	Target   name.Name
	Solver   string
	Priority *int
}

// Model is the fully ingested, solve-resolved entity set: the input to
// status graph construction.
type Model struct {
	Proofs      map[string]*Proof
	Invariants  map[string]*Invariant
	ProofOrder  []string
	InvarOrder  []string
	ModuleSolve []ModuleSolve
}

// NewModel constructs an empty Model ready for population by an ingestion
// step and subsequent Resolve call.
func NewModel() *Model {
	return &Model{
		Proofs:     make(map[string]*Proof),
		Invariants: make(map[string]*Invariant),
	}
}

// AddProof registers a proof in the model, preserving insertion order.
func (m *Model) AddProof(p *Proof) {
	key := p.Name.Key()
	if _, exists := m.Proofs[key]; !exists {
		m.ProofOrder = append(m.ProofOrder, key)
	}
	if p.SolveWith == nil {
		p.SolveWith = make(map[string]*int)
	}
	m.Proofs[key] = p
}

// AddInvariant registers an invariant in the model, preserving insertion
// order.
func (m *Model) AddInvariant(inv *Invariant) {
	key := inv.Name.Key()
	if _, exists := m.Invariants[key]; !exists {
		m.InvarOrder = append(m.InvarOrder, key)
	}
	if inv.SolveWith == nil {
		inv.SolveWith = make(map[string]*int)
	}
	m.Invariants[key] = inv
}

// ProofByKey looks up a proof by its name key.
func (m *Model) ProofByKey(key string) (*Proof, bool) {
	p, ok := m.Proofs[key]
	return p, ok
}

// InvariantByKey looks up an invariant by its name key.
func (m *Model) InvariantByKey(key string) (*Invariant, bool) {
	inv, ok := m.Invariants[key]
	return inv, ok
}

// addSolveWith inserts a solver directive into an entity's solve_with map,
// preserving insertion order in the order slice. A later directive for the
// same solver overwrites the priority but does not duplicate the order
// entry.
func addSolveWith(solveWith map[string]*int, order *[]string, solver string, priority *int) {
	if _, exists := solveWith[solver]; !exists {
		*order = append(*order, solver)
	}
	solveWith[solver] = priority
}
