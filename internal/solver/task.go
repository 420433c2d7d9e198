// Package solver implements one external solver invocation: the
// per-(entity, solver) task that writes an input file, spawns the
// solver-driver subprocess, and maps its exit artefact to a Status.
package solver

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/status"
)

// ProofStatusEvent is emitted by a Task as its state changes; the
// scheduler persists it via the store and recomputes usefulness.
type ProofStatusEvent struct {
	Name   name.Name
	Status status.Status
}

// Input describes the per-task solver input: the assumptions, assertions,
// and cross-assumptions for one proof run, written to the work
// directory's tasks/<filename>.sby file before the subprocess is spawned.
type Input struct {
	Top              string
	Assumes          []string // RTLIL names, as set via "setattr -set ivy_assume"
	Asserts          []string // RTLIL names, via "setattr -set ivy_assert"
	CrossAssumes     []string // RTLIL names, via "setattr -set ivy_cross_assume"
	EngineLines      []string
	ScriptLines      []string
	SolverBinaryArgs []string // the solver-specific arguments split off the solver string
}

// Task represents one proof run for a specific (entity, solver) pair.
type Task struct {
	Name       name.Name
	Solver     string
	WorkDir    string // the task's own tasks/<filename>/ directory
	InputPath  string // tasks/<filename>.sby
	Driver     string // the solver-driver binary, e.g. "sby"

	mu        sync.Mutex
	cancelled bool
	abandoned bool
	done      bool
}

// writeInput renders in to a .sby-equivalent input file at t.InputPath,
// following the reference driver's [options]/[engines]/[script] section
// layout and its setattr-based assumption/assertion wiring.
func (t *Task) writeInput(in Input) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[options]\n")
	fmt.Fprintf(&b, "mode prove\n\n")

	fmt.Fprintf(&b, "[engines]\n")
	for _, l := range in.EngineLines {
		fmt.Fprintln(&b, l)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "[script]\n")
	for _, l := range in.ScriptLines {
		fmt.Fprintln(&b, l)
	}
	for _, a := range in.Asserts {
		fmt.Fprintf(&b, "setattr -set ivy_assert 1 %s\n", a)
	}
	for _, a := range in.Assumes {
		fmt.Fprintf(&b, "setattr -set ivy_assume 1 %s\n", a)
	}
	for _, a := range in.CrossAssumes {
		fmt.Fprintf(&b, "setattr -set ivy_cross_assume 1 %s\n", a)
	}

	return os.WriteFile(t.InputPath, []byte(b.String()), 0644)
}

// Run executes the task: acquires one unit of the lease, writes the input
// file, spawns the solver-driver subprocess, awaits its exit, then reads
// the result artefact. It returns the resulting Status.
//
// If ctx is cancelled before the subprocess starts, Run returns
// (status.Pending, ctx.Err()) without spawning anything. If ctx is
// cancelled while the subprocess is running, the subprocess is killed and
// Run returns status.Pending or status.Abandoned depending on which of
// Cancel's flags was set (already_solved => Pending, explicit abandon =>
// Abandoned), per spec's cooperative-cancellation contract.
func (t *Task) Run(ctx context.Context, lease *semaphore.Weighted, in Input) (status.Status, error) {
	if err := lease.Acquire(ctx, 1); err != nil {
		return t.cancelOutcome(), ctx.Err()
	}
	defer lease.Release(1)

	select {
	case <-ctx.Done():
		return t.cancelOutcome(), ctx.Err()
	default:
	}

	if err := t.writeInput(in); err != nil {
		return status.Error, fmt.Errorf("writing solver input for %s: %w", t.Name.DBKey(), err)
	}

	args := append([]string{"-f", t.InputPath}, in.SolverBinaryArgs...)
	cmd := exec.CommandContext(ctx, t.Driver, args...)
	cmd.Dir = filepath.Dir(t.InputPath)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return t.cancelOutcome(), ctx.Err()
		}
		// A non-zero exit is not itself fatal: the result is read from the
		// artefact file regardless, matching the reference driver (which
		// may exit non-zero yet still have written a definitive verdict).
		_ = err
	}

	return t.readResult()
}

// readResult reads tasks/<filename>/status, whose first whitespace
// token is one of PASS|FAIL|UNKNOWN|ERROR; a missing file maps to Error.
func (t *Task) readResult() (status.Status, error) {
	statusPath := filepath.Join(t.WorkDir, "status")
	f, err := os.Open(statusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return status.Error, nil
		}
		return status.Error, fmt.Errorf("reading result artefact for %s: %w", t.Name.DBKey(), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return status.Error, nil
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return status.Error, nil
	}
	st, ok := status.Parse(fields[0])
	if !ok {
		return status.Unknown, nil
	}
	return st, nil
}

// Cancel requests cooperative cancellation. alreadySolved indicates the
// cancellation is a consequence of another task for the same entity
// already reaching pass/fail (never changes the persisted status beyond
// stopping work); abandoned indicates an explicit usefulness-driven
// cancellation, which should be recorded as Abandoned rather than
// Pending. Cancel itself does not cancel the context; the caller's
// context.CancelFunc must also be invoked.
func (t *Task) Cancel(alreadySolved, abandoned bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	t.abandoned = abandoned && !alreadySolved
}

func (t *Task) cancelOutcome() status.Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.abandoned {
		return status.Abandoned
	}
	return status.Pending
}
