package entity

import (
	"encoding/json"
	"fmt"

	"github.com/tobias/keystone/internal/name"
)

// RawExport is the top-level JSON export schema produced externally by the
// design's synthesis tool: proofs, invariants, and module-level solves.
type RawExport struct {
	Proofs     []RawProof      `json:"proofs"`
	Invariants []RawInvariant  `json:"invariants"`
	Solve      []RawModuleSolve `json:"solve"`
}

// RawProof is one proof record in the JSON export.
type RawProof struct {
	Name       []string  `json:"name"`
	SrcLoc     string    `json:"srcloc"`
	TopLevel   bool      `json:"top_level"`
	Automatic  bool      `json:"automatic"`
	UseProof   []RawItem `json:"use_proof"`
	Assume     []RawItem `json:"assume"`
	Assert     []RawItem `json:"assert"`
	Export     []RawItem `json:"export"`
	Solve      []RawItem `json:"solve"`
}

// RawInvariant is one invariant record in the JSON export.
type RawInvariant struct {
	Name   []string `json:"name"`
	SrcLoc string   `json:"srcloc"`
}

// RawItem is a generic reference item: used for use_proof/assume/assert/
// export/solve entries, each interpreting the kind-specific flags that
// apply to it and ignoring the rest.
type RawItem struct {
	Name     []string `json:"name"`
	Type     string   `json:"type,omitempty"`
	Cross    bool     `json:"cross,omitempty"`
	Export   bool     `json:"export,omitempty"`
	Local    bool     `json:"local,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	With     string   `json:"with,omitempty"`
}

// RawModuleSolve is one entry in the export's top-level "solve" array.
type RawModuleSolve struct {
	Name     []string `json:"name"`
	Type     string   `json:"type"`
	With     string   `json:"with,omitempty"`
	Priority *int     `json:"priority,omitempty"`
}

// ParseExport decodes a JSON export blob into a RawExport.
func ParseExport(data []byte) (*RawExport, error) {
	var raw RawExport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing JSON export: %w", err)
	}
	return &raw, nil
}

// BuildModel converts a RawExport into a Model, ready for Resolve. It does
// not perform solve resolution itself.
func BuildModel(raw *RawExport) *Model {
	m := NewModel()

	for _, rp := range raw.Proofs {
		p := &Proof{
			Name:      name.New(rp.Name),
			SrcLoc:    rp.SrcLoc,
			TopLevel:  rp.TopLevel,
			Automatic: rp.Automatic,
			SolveWith: make(map[string]*int),
		}
		for _, u := range rp.UseProof {
			p.Uses = append(p.Uses, Use{Target: name.New(u.Name), Export: u.Export})
		}
		for _, a := range rp.Assume {
			p.Assumes = append(p.Assumes, Assumption{Target: name.New(a.Name), Cross: a.Cross})
		}
		for _, a := range rp.Assert {
			p.Asserts = append(p.Asserts, Assertion{Target: name.New(a.Name), Local: a.Local})
		}
		for _, e := range rp.Export {
			p.Exports = append(p.Exports, Export{Target: name.New(e.Name), Cross: e.Cross})
		}
		for _, s := range rp.Solve {
			solver := s.With
			if solver == "" {
				solver = "default"
			}
			p.Solve = true
			addSolveWith(p.SolveWith, &p.SolveOrder, solver, s.Priority)
		}
		m.AddProof(p)
	}

	for _, ri := range raw.Invariants {
		inv := &Invariant{
			Name:      name.New(ri.Name),
			SrcLoc:    ri.SrcLoc,
			SolveWith: make(map[string]*int),
		}
		m.AddInvariant(inv)
	}

	for _, rs := range raw.Solve {
		solver := rs.With
		if solver == "" {
			solver = "default"
		}
		m.ModuleSolve = append(m.ModuleSolve, ModuleSolve{
			Target:   name.New(rs.Name),
			Solver:   solver,
			Priority: rs.Priority,
		})
	}

	return m
}
