package orchestrator_test

import (
	"testing"

	"github.com/tobias/keystone/internal/entity"
	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/orchestrator"
	"github.com/tobias/keystone/internal/status"
	"github.com/tobias/keystone/internal/statusgraph"
	"github.com/tobias/keystone/internal/store"
)

func TestDryRunUnreachableSinksFlagsCycleWithNoSolverTask(t *testing.T) {
	// a and b assume each other (non-cross) and each asserts an
	// otherwise-unused invariant, closing a cycle through
	// entity -> assume_proof -> entity -> proof with no task vertex
	// anywhere to seed it away from Unreachable. c then assumes a and
	// asserts nothing of its own, so c itself is a sink (no outgoing
	// edges) whose single input never escapes Unreachable.
	m := entity.NewModel()
	a := name.New([]string{"a"})
	b := name.New([]string{"b"})
	c := name.New([]string{"c"})

	m.AddProof(&entity.Proof{
		Name:    a,
		Assumes: []entity.Assumption{{Target: b}},
		Asserts: []entity.Assertion{{Target: name.New([]string{"ia"})}},
	})
	m.AddProof(&entity.Proof{
		Name:    b,
		Assumes: []entity.Assumption{{Target: a}},
		Asserts: []entity.Assertion{{Target: name.New([]string{"ib"})}},
	})
	m.AddProof(&entity.Proof{
		Name:    c,
		Assumes: []entity.Assumption{{Target: a}},
	})
	entity.Resolve(m, entity.AutoProofDisabled)

	g := statusgraph.Build(m)
	warnings := orchestrator.DryRunUnreachableSinks(g)
	found := false
	for _, n := range warnings {
		if n.Equal(c) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected proof c to be reported as an unreachable sink, got %v", warnings)
	}
}

func TestBuildReportSortsByName(t *testing.T) {
	full := map[store.Task]status.Status{
		{Name: name.New([]string{"zeta"}), Solver: "sby smtbmc"}: status.Pass,
		{Name: name.New([]string{"alpha"}), Solver: "sby smtbmc"}: status.Fail,
	}
	reduced := map[string]status.Status{
		name.New([]string{"zeta"}).Key():  status.Pass,
		name.New([]string{"alpha"}).Key(): status.Fail,
	}
	r := orchestrator.BuildReport(full, reduced)
	if len(r.Tasks) != 2 || r.Tasks[0].Name != "alpha" {
		t.Fatalf("expected alpha sorted first, got %+v", r.Tasks)
	}
	if len(r.Reduced) != 2 || r.Reduced[0].Name != "alpha" {
		t.Fatalf("expected reduced alpha sorted first, got %+v", r.Reduced)
	}
}
