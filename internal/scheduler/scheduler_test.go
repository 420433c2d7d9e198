package scheduler_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tobias/keystone/internal/entity"
	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/scheduler"
	"github.com/tobias/keystone/internal/solver"
	"github.com/tobias/keystone/internal/status"
	"github.com/tobias/keystone/internal/statusgraph"
	"github.com/tobias/keystone/internal/store"
	"github.com/tobias/keystone/internal/workdir"
)

// writeFakeDriver writes a tiny shell script masquerading as a solver
// driver (sby's -f <file> calling convention): it derives the task's own
// work directory from the basename of its -f argument, relative to its
// cwd (which Task.Run sets to the tasks/ directory, matching the real
// driver's own workdir-next-to-input convention), and writes a status
// file there. An optional delay lets tests exercise cancellation.
func writeFakeDriver(t *testing.T, result string, delay time.Duration) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-sby")
	script := "#!/bin/sh\n"
	if delay > 0 {
		script += fmt.Sprintf("sleep %d\n", int(delay.Seconds()+0.999))
	}
	script += "base=$(basename \"$2\" .sby)\n"
	script += "mkdir -p \"$base\"\n"
	script += "echo " + result + " > \"$base/status\"\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake driver: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) (*store.Store, *workdir.Dir) {
	t.Helper()
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	st, err := store.Open(dir.StorePath(), true, nil)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, dir
}

// singleProofGraph builds a resolved model and status graph for one
// solved proof asserting its own invariant, so the proof's entity vertex
// is reachable from the dispatched task.
func singleProofGraph(t *testing.T, proofName name.Name, solvers ...string) *statusgraph.Graph {
	t.Helper()
	m := entity.NewModel()
	invName := name.New(append(proofName.Parts(), "inv"))
	m.AddInvariant(&entity.Invariant{Name: invName, SolveWith: map[string]*int{}})

	solveWith := map[string]*int{}
	for _, s := range solvers {
		solveWith[s] = nil
	}
	m.AddProof(&entity.Proof{
		Name:       proofName,
		Solve:      true,
		Asserts:    []entity.Assertion{{Target: invName}},
		SolveWith:  solveWith,
		SolveOrder: solvers,
	})
	entity.Resolve(m, entity.AutoProofDisabled)
	return statusgraph.Build(m)
}

func TestDispatchAllRunsSingleTaskToPass(t *testing.T) {
	st, dir := newTestStore(t)
	n := name.New([]string{"top", "proof_a"})
	g := singleProofGraph(t, n, "default")

	driver := writeFakeDriver(t, "PASS", 0)
	sched := scheduler.New(st, g, dir, 4, driver, func(name.Name, string) solver.Input {
		return solver.Input{Top: "top"}
	}, nil)

	task := store.Task{Name: n, Solver: "default"}
	if err := st.InitializeStatus(context.Background(), []store.Task{task}); err != nil {
		t.Fatalf("InitializeStatus() error: %v", err)
	}
	if _, err := st.ChangeStatusMany(context.Background(), []store.Task{task}, status.Scheduled, []status.Status{status.Pending}); err != nil {
		t.Fatalf("ChangeStatusMany() error: %v", err)
	}

	sched.DispatchAll(context.Background(), []scheduler.PendingTask{
		{Name: n, Solver: "default", SolveOrderIndex: 0},
	})

	full, err := st.FullStatus(context.Background())
	if err != nil {
		t.Fatalf("FullStatus() error: %v", err)
	}
	if got := full[task]; got != status.Pass {
		t.Errorf("task status = %v, want Pass", got)
	}

	if _, err := os.Stat(dir.TasksDir()); err != nil {
		t.Errorf("expected tasks dir to exist: %v", err)
	}
}

// TestDispatchAllCancelsNegativeSiblingOnPositivePass exercises the
// sentinel gate and sibling cancellation: a fast, positive-priority task
// passes immediately, which must both release the negative task from the
// gate and cancel it before its own (slow) driver ever gets to report.
func TestDispatchAllCancelsNegativeSiblingOnPositivePass(t *testing.T) {
	st, dir := newTestStore(t)
	n := name.New([]string{"top", "proof_b"})

	// dispatchOne splits the (non-"default") solver string itself into a
	// driver and extra args, so naming each solver after its own fake
	// driver path lets one scheduler exercise two distinct drivers.
	fastSolver := writeFakeDriver(t, "PASS", 0)
	slowSolver := writeFakeDriver(t, "FAIL", 2*time.Second)
	g := singleProofGraph(t, n, fastSolver, slowSolver)

	sched := scheduler.New(st, g, dir, 4, "default", func(name.Name, string) solver.Input {
		return solver.Input{Top: "top"}
	}, nil)

	tasks := []store.Task{{Name: n, Solver: fastSolver}, {Name: n, Solver: slowSolver}}
	if err := st.InitializeStatus(context.Background(), tasks); err != nil {
		t.Fatalf("InitializeStatus() error: %v", err)
	}
	if _, err := st.ChangeStatusMany(context.Background(), tasks, status.Scheduled, []status.Status{status.Pending}); err != nil {
		t.Fatalf("ChangeStatusMany() error: %v", err)
	}

	positive := 1
	negative := -1
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.DispatchAll(context.Background(), []scheduler.PendingTask{
			{Name: n, Solver: fastSolver, Priority: &positive, SolveOrderIndex: 0},
			{Name: n, Solver: slowSolver, Priority: &negative, SolveOrderIndex: 1},
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("DispatchAll did not return in time")
	}

	full, err := st.FullStatus(context.Background())
	if err != nil {
		t.Fatalf("FullStatus() error: %v", err)
	}
	if got := full[store.Task{Name: n, Solver: fastSolver}]; got != status.Pass {
		t.Errorf("fast task status = %v, want Pass", got)
	}
	slowStatus := full[store.Task{Name: n, Solver: slowSolver}]
	if slowStatus == status.Fail {
		t.Errorf("slow task status = %v, should have been cancelled before reporting Fail", slowStatus)
	}
}
