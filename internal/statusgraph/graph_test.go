package statusgraph_test

import (
	"testing"

	"github.com/tobias/keystone/internal/entity"
	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/statusgraph"
)

func TestBuildSimpleSolvedProofWithAssertion(t *testing.T) {
	m := entity.NewModel()
	invName := name.New([]string{"inv"})
	proofName := name.New([]string{"p"})

	m.AddInvariant(&entity.Invariant{Name: invName, SolveWith: map[string]*int{}})
	m.AddProof(&entity.Proof{
		Name:    proofName,
		Solve:   true,
		Asserts: []entity.Assertion{{Target: invName}},
		SolveWith: map[string]*int{"default": nil},
	})
	m.Proofs[proofName.Key()].SolveOrder = []string{"default"}

	g := statusgraph.Build(m)

	taskRank, ok := g.RankByVertex(statusgraph.Task(proofName, "default"))
	if !ok {
		t.Fatal("expected a task vertex for the solved proof")
	}
	proofRank, ok := g.RankByVertex(statusgraph.Proof(proofName))
	if !ok {
		t.Fatal("expected a proof vertex")
	}
	entityRank, ok := g.RankByVertex(statusgraph.Entity(invName))
	if !ok {
		t.Fatal("expected an entity vertex for the invariant")
	}

	found := false
	for _, dst := range g.OutEdges[taskRank] {
		if dst == proofRank {
			found = true
		}
	}
	if !found {
		t.Error("expected task(p) -> proof(p) edge")
	}

	found = false
	for _, dst := range g.OutEdges[proofRank] {
		if dst == entityRank {
			found = true
		}
	}
	if !found {
		t.Error("expected proof(p) -> entity(inv) edge")
	}
}

func TestNonEntitySourcesArePass(t *testing.T) {
	m := entity.NewModel()
	proofName := name.New([]string{"p"})
	m.AddProof(&entity.Proof{Name: proofName})

	g := statusgraph.Build(m)

	assumeProofRank, ok := g.RankByVertex(statusgraph.AssumeProof(proofName))
	if !ok {
		t.Fatal("expected an assume_proof vertex")
	}
	isSource := false
	for _, r := range g.NonEntitySources {
		if r == assumeProofRank {
			isSource = true
		}
	}
	if !isSource {
		t.Error("assume_proof(p) with no incoming edges should be a non-entity source")
	}
}
