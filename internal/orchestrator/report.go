package orchestrator

import (
	"sort"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/status"
	"github.com/tobias/keystone/internal/store"
)

// Report is the flat status summary produced by the `status` command and
// after a `run`/`prove` completes: one line per task, plus the
// per-entity reduced status.
type Report struct {
	Tasks   []TaskStatus
	Reduced []EntityStatus
}

// TaskStatus is one (name, solver) row of the report.
type TaskStatus struct {
	Name   string // Display() form
	Solver string
	Status status.Status
}

// EntityStatus is one reduced (name) row of the report.
type EntityStatus struct {
	Name   string
	Status status.Status
}

// BuildReport assembles a Report from the store's full and reduced status
// maps, sorted by name for deterministic output.
func BuildReport(full map[store.Task]status.Status, reduced map[string]status.Status) Report {
	var r Report
	for t, st := range full {
		r.Tasks = append(r.Tasks, TaskStatus{Name: t.Name.Display(), Solver: t.Solver, Status: st})
	}
	sort.Slice(r.Tasks, func(i, j int) bool {
		if r.Tasks[i].Name != r.Tasks[j].Name {
			return r.Tasks[i].Name < r.Tasks[j].Name
		}
		return r.Tasks[i].Solver < r.Tasks[j].Solver
	})

	for key, st := range reduced {
		display := key
		if n, err := name.FromDBKey(key); err == nil {
			display = n.Display()
		}
		r.Reduced = append(r.Reduced, EntityStatus{Name: display, Status: st})
	}
	sort.Slice(r.Reduced, func(i, j int) bool { return r.Reduced[i].Name < r.Reduced[j].Name })

	return r
}
