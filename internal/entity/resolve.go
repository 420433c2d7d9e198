package entity

import "sort"

// AutoProofPolicy gates whether automatic proofs are recognized during
// resolution (Config.Options.AutoProof in the ambient config layer).
type AutoProofPolicy bool

const (
	AutoProofEnabled  AutoProofPolicy = true
	AutoProofDisabled AutoProofPolicy = false
)

// Resolve runs the solve-resolution pass over the model in place:
//
//  1. Automatic proofs (when autoProof is enabled) gain an implicit
//     top-level solve for their own name.
//  2. Module-level solves propagate to their target entity.
//  3. Proof-item solve directives are honored only on proofs whose Solve
//     flag is already set (reachable through some enclosing solve).
//  4. Any entity left with Solve true but an empty SolveWith acquires a
//     single "default" solver entry with a nil priority.
//  5. Per-entity solver ordering is a stable sort by priority (0 when nil)
//     ascending; SolveOrder is rewritten to reflect it.
func Resolve(m *Model, autoProof AutoProofPolicy) {
	if autoProof {
		for _, key := range m.ProofOrder {
			p := m.Proofs[key]
			if p.Automatic {
				p.Solve = true
				addSolveWith(p.SolveWith, &p.SolveOrder, "default", nil)
			}
		}
	}

	for _, ms := range m.ModuleSolve {
		key := ms.Target.Key()
		if p, ok := m.Proofs[key]; ok {
			p.Solve = true
			addSolveWith(p.SolveWith, &p.SolveOrder, ms.Solver, ms.Priority)
			continue
		}
		if inv, ok := m.Invariants[key]; ok {
			inv.Solve = true
			addSolveWith(inv.SolveWith, &inv.SolveOrder, ms.Solver, ms.Priority)
		}
	}

	// Proof-item solve directives: applied to proofs that carry their own
	// inline "solves" annotations (e.g. uses/asserts items tagged to solve
	// a sub-target), honored only if the owning proof is already solving.
	for _, key := range m.ProofOrder {
		p := m.Proofs[key]
		if !p.Solve {
			continue
		}
		for solver, priority := range p.SolveWith {
			addSolveWith(p.SolveWith, &p.SolveOrder, solver, priority)
		}
	}

	for _, key := range m.ProofOrder {
		finalizeSolveWith(&m.Proofs[key].Solve, m.Proofs[key].SolveWith, &m.Proofs[key].SolveOrder)
	}
	for _, key := range m.InvarOrder {
		finalizeSolveWith(&m.Invariants[key].Solve, m.Invariants[key].SolveWith, &m.Invariants[key].SolveOrder)
	}
}

// finalizeSolveWith applies resolution steps 4 and 5 to a single entity's
// solve state.
func finalizeSolveWith(solve *bool, solveWith map[string]*int, order *[]string) {
	if !*solve {
		return
	}
	if len(solveWith) == 0 {
		addSolveWith(solveWith, order, "default", nil)
	}

	type indexed struct {
		solver   string
		priority int
		origIdx  int
	}
	entries := make([]indexed, len(*order))
	for i, solver := range *order {
		p := 0
		if pr := solveWith[solver]; pr != nil {
			p = *pr
		}
		entries[i] = indexed{solver: solver, priority: p, origIdx: i}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	newOrder := make([]string, len(entries))
	for i, e := range entries {
		newOrder[i] = e.solver
	}
	*order = newOrder
}

// SolveOrderIndex returns the index of solver within an entity's
// SolveOrder, or -1 if not present. Used by the scheduler to compute the
// -solve_order_index term of a task's priority triple.
func SolveOrderIndex(order []string, solver string) int {
	for i, s := range order {
		if s == solver {
			return i
		}
	}
	return -1
}
