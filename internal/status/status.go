// Package status defines the closed, ordered status lattice shared by the
// status graph, status map, and persistent store, along with its
// combinators.
package status

import "fmt"

// Status is a value in the closed, totally ordered status lattice:
//
//	unreachable < abandoned < error < fail < unknown < pending < scheduled < running < pass
//
// Lower values are "worse" (further from proven); pass is the top.
type Status int

const (
	Unreachable Status = iota
	Abandoned
	Error
	Fail
	Unknown
	Pending
	Scheduled
	Running
	Pass
)

var names = [...]string{
	Unreachable: "unreachable",
	Abandoned:   "abandoned",
	Error:       "error",
	Fail:        "fail",
	Unknown:     "unknown",
	Pending:     "pending",
	Scheduled:   "scheduled",
	Running:     "running",
	Pass:        "pass",
}

// String returns the canonical lower-case name of the status.
func (s Status) String() string {
	if s < Unreachable || s > Pass {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return names[s]
}

// MarshalJSON renders the status as its canonical lower-case name rather
// than the underlying int, so CLI JSON output reads the same as text
// output.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Parse maps a canonical status name (case-sensitive, lower-case) to a
// Status. It also accepts the upper-case solver result codes PASS, FAIL,
// UNKNOWN, ERROR as produced by the external solver driver's exit
// artefact.
func Parse(s string) (Status, bool) {
	switch s {
	case "unreachable":
		return Unreachable, true
	case "abandoned":
		return Abandoned, true
	case "error", "ERROR":
		return Error, true
	case "fail", "FAIL":
		return Fail, true
	case "unknown", "UNKNOWN":
		return Unknown, true
	case "pending":
		return Pending, true
	case "scheduled":
		return Scheduled, true
	case "running":
		return Running, true
	case "pass", "PASS":
		return Pass, true
	default:
		return Unreachable, false
	}
}

// Terminal reports whether the status is one the scheduler will never
// transition further on its own: pass or fail.
func (s Status) Terminal() bool {
	return s == Pass || s == Fail
}

// And is the conjunction combinator for proof/assume_proof/export vertices:
// the minimum of the set, with identity Pass (an empty set conjoins to Pass).
func And(statuses []Status) Status {
	result := Pass
	for _, s := range statuses {
		if s < result {
			result = s
		}
	}
	return result
}

// Or is the disjunction combinator for entity/cross vertices: the maximum
// of the set, with identity Unreachable (an empty set disjoins to
// Unreachable).
func Or(statuses []Status) Status {
	result := Unreachable
	for _, s := range statuses {
		if s > result {
			result = s
		}
	}
	return result
}

// OrEquivalent is the fail-dominant disjunction used to reduce a task's
// per-solver statuses down to a single per-entity status: Fail if any
// input is Fail, else Or(statuses).
func OrEquivalent(statuses []Status) Status {
	for _, s := range statuses {
		if s == Fail {
			return Fail
		}
	}
	return Or(statuses)
}
