package solver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sync/semaphore"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/solver"
	"github.com/tobias/keystone/internal/status"
)

// fakeDriver is a tiny script masquerading as the solver-driver binary: it
// ignores its arguments and writes a status file containing $STUB_STATUS
// into the directory it is invoked from.
func writeFakeDriver(t *testing.T, result string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-sby")
	script := "#!/bin/sh\necho " + result + " > status\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake driver: %v", err)
	}
	return path
}

func TestRunMapsPassResult(t *testing.T) {
	driver := writeFakeDriver(t, "PASS")
	workDir := t.TempDir()

	task := &solver.Task{
		Name:      name.New([]string{"top"}),
		Solver:    "sby smtbmc",
		WorkDir:   workDir,
		InputPath: filepath.Join(workDir, "task.sby"),
		Driver:    driver,
	}

	lease := semaphore.NewWeighted(1)
	st, err := task.Run(context.Background(), lease, solver.Input{Top: "top"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if st != status.Pass {
		t.Errorf("Run() = %v, want Pass", st)
	}
}

func TestRunMapsMissingStatusFileToError(t *testing.T) {
	// A driver that exits without ever writing a status file.
	dir := t.TempDir()
	driver := filepath.Join(dir, "noop-sby")
	if err := os.WriteFile(driver, []byte("#!/bin/sh\ntrue\n"), 0755); err != nil {
		t.Fatalf("writing driver: %v", err)
	}
	workDir := t.TempDir()

	task := &solver.Task{
		Name:      name.New([]string{"top"}),
		Solver:    "sby smtbmc",
		WorkDir:   workDir,
		InputPath: filepath.Join(workDir, "task.sby"),
		Driver:    driver,
	}

	lease := semaphore.NewWeighted(1)
	st, err := task.Run(context.Background(), lease, solver.Input{Top: "top"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if st != status.Error {
		t.Errorf("Run() = %v, want Error", st)
	}
}

func TestRunRespectsCancelledContext(t *testing.T) {
	driver := writeFakeDriver(t, "PASS")
	workDir := t.TempDir()

	task := &solver.Task{
		Name:      name.New([]string{"top"}),
		Solver:    "sby smtbmc",
		WorkDir:   workDir,
		InputPath: filepath.Join(workDir, "task.sby"),
		Driver:    driver,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lease := semaphore.NewWeighted(1)
	st, err := task.Run(ctx, lease, solver.Input{Top: "top"})
	if err == nil {
		t.Error("Run() on a cancelled context should return an error")
	}
	if st != status.Pending {
		t.Errorf("Run() on a cancelled context = %v, want Pending", st)
	}
}

func TestCancelAbandonedOutcome(t *testing.T) {
	task := &solver.Task{Name: name.New([]string{"top"})}
	task.Cancel(false, true)

	driver := writeFakeDriver(t, "PASS")
	task.Driver = driver
	workDir := t.TempDir()
	task.WorkDir = workDir
	task.InputPath = filepath.Join(workDir, "task.sby")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lease := semaphore.NewWeighted(1)
	st, _ := task.Run(ctx, lease, solver.Input{Top: "top"})
	if st != status.Abandoned {
		t.Errorf("Run() after Cancel(false, true) = %v, want Abandoned", st)
	}
}
