// Package scheduler implements the proof-task scheduler (spec §4.8): it
// maintains per-entity dispatch sets, enforces positive-before-negative
// priority ordering via a sentinel gate, dispatches solver tasks onto a
// job-server-style lease, and drives the usefulness recompute loop that
// cancels tasks the status graph no longer needs.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/solver"
	"github.com/tobias/keystone/internal/status"
	"github.com/tobias/keystone/internal/statusgraph"
	"github.com/tobias/keystone/internal/statusmap"
	"github.com/tobias/keystone/internal/store"
	"github.com/tobias/keystone/internal/workdir"
)

// InputBuilder renders a solver.Input for one (entity, solver) task,
// translating the entity model's assumptions/assertions/cross-assumptions
// and the config's engine/script lines. Owned by the orchestrator, which
// holds the entity.Model and config.Config this scheduler does not.
type InputBuilder func(target name.Name, solverString string) solver.Input

// PendingTask is one (entity, solver) pair awaiting dispatch, as produced
// by the orchestrator's solve-order walk over the entity model.
type PendingTask struct {
	Name            name.Name
	Solver          string // as recorded in SolveWith; may be "default"
	Priority        *int
	SolveOrderIndex int
}

type taskState struct {
	name     name.Name
	solver   string // the original (pre-default-substitution) solver string
	priority Priority
	handle   *solver.Task
	cancel   context.CancelFunc
	finished bool
}

type entityState struct {
	name     name.Name
	positive map[string]*taskState
	negative map[string]*taskState
	all      map[string]*taskState
	sentinel *sentinelGate
}

// Scheduler owns the dispatch sets and drives solver tasks to completion,
// persisting every transition through the store and recomputing
// usefulness after each pass/fail.
type Scheduler struct {
	st            *store.Store
	graph         *statusgraph.Graph
	dir           *workdir.Dir
	lease         *semaphore.Weighted
	defaultSolver string
	buildInput    InputBuilder
	log           *zap.Logger
	onEvent       func(solver.ProofStatusEvent)

	// mu guards entities; Dispatch/events run from arbitrary goroutines
	// (the task goroutines reporting completion), unlike the reference
	// implementation's single-threaded event loop, so unlike spec's
	// prose this scheduler serializes its dispatch-set mutations with a
	// mutex rather than a single thread. Store transactions remain the
	// source of linearizable truth regardless.
	mu       sync.Mutex
	entities map[string]*entityState

	ticksMu sync.Mutex
	ticks   uint64

	wg sync.WaitGroup
}

// New constructs a Scheduler. jobCapacity is the job-server lease size
// (-j N); defaultSolver replaces any "default" solver string; dir supplies
// each task's tasks/<filename>.sby input path and tasks/<filename>/ work
// directory.
func New(st *store.Store, g *statusgraph.Graph, dir *workdir.Dir, jobCapacity int64, defaultSolver string, buildInput InputBuilder, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		st:            st,
		graph:         g,
		dir:           dir,
		lease:         semaphore.NewWeighted(jobCapacity),
		defaultSolver: defaultSolver,
		buildInput:    buildInput,
		log:           log,
		entities:      make(map[string]*entityState),
	}
}

// OnEvent registers a hook invoked for every ProofStatusEvent, used by
// --debug-events to log every transition as it happens.
func (s *Scheduler) OnEvent(fn func(solver.ProofStatusEvent)) {
	s.onEvent = fn
}

func (s *Scheduler) entityFor(n name.Name) *entityState {
	key := n.Key()
	e, ok := s.entities[key]
	if !ok {
		e = &entityState{
			name:     n,
			positive: make(map[string]*taskState),
			negative: make(map[string]*taskState),
			all:      make(map[string]*taskState),
		}
		s.entities[key] = e
	}
	return e
}

func priorityValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// DispatchAll dispatches every pending task in priority order: positive
// entity priority first, then ascending solve-order index, then ascending
// dependency order (earlier status-graph sinks first). It blocks until
// every dispatched task has reached a terminal outcome.
func (s *Scheduler) DispatchAll(ctx context.Context, tasks []PendingTask) {
	q := &dispatchQueue{}
	for _, pt := range tasks {
		dependencyOrder := -1
		if r, ok := s.graph.RankByVertex(statusgraph.Entity(pt.Name)); ok {
			dependencyOrder = r
		}
		ts := &taskState{
			name:   pt.Name,
			solver: pt.Solver,
			priority: Priority{
				EntityPriority:  priorityValue(pt.Priority),
				SolveOrderIndex: pt.SolveOrderIndex,
				DependencyOrder: dependencyOrder,
			},
		}
		q.push(ts)
	}
	for {
		ts, ok := q.pop()
		if !ok {
			break
		}
		s.dispatchOne(ctx, ts)
	}
	s.wg.Wait()
}

// dispatchOne implements dispatch_proof_task (spec §4.8): resolves the
// default solver, splits solver-specific arguments, registers the task
// under its entity, lazily creates the sentinel gate, and spawns the
// task's goroutine.
func (s *Scheduler) dispatchOne(ctx context.Context, ts *taskState) {
	actual := ts.solver
	if actual == "default" {
		actual = s.defaultSolver
	}
	fields := strings.Fields(actual)
	if len(fields) == 0 {
		s.emitError(ts.name, ts.solver, fmt.Errorf("empty solver string"))
		return
	}
	driver, extraArgs := fields[0], fields[1:]

	s.mu.Lock()
	ent := s.entityFor(ts.name)
	ent.all[ts.solver] = ts
	if ts.priority.Positive() {
		ent.positive[ts.solver] = ts
		if ent.sentinel != nil && !ent.sentinel.closed {
			ent.sentinel.remainingPositive++
		}
	} else {
		ent.negative[ts.solver] = ts
	}
	if len(ent.positive) > 0 && len(ent.negative) > 0 && ent.sentinel == nil {
		ent.sentinel = newSentinelGate(len(ent.positive))
	}
	gate := ent.sentinel
	waitForGate := !ts.priority.Positive() && gate != nil
	s.mu.Unlock()

	taskWorkDir, err := s.dir.TaskWorkDir(ts.name, ts.solver)
	if err != nil {
		s.mu.Lock()
		delete(ent.all, ts.solver)
		delete(ent.positive, ts.solver)
		delete(ent.negative, ts.solver)
		s.mu.Unlock()
		s.emitError(ts.name, ts.solver, err)
		return
	}

	taskCtx, cancel := context.WithCancel(ctx)
	ts.cancel = cancel

	handle := &solver.Task{
		Name:      ts.name,
		Solver:    ts.solver,
		Driver:    driver,
		WorkDir:   taskWorkDir,
		InputPath: s.dir.TaskInputPath(ts.name, ts.solver),
	}
	ts.handle = handle

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if waitForGate {
			select {
			case <-gate.ready:
			case <-taskCtx.Done():
				// taskCtx is already cancelled; runTask's handle.Run call
				// short-circuits through Task.Run's own cancellation check
				// and reports the outcome Cancel recorded (pending or
				// abandoned), without spawning anything.
			}
		}
		s.runTask(taskCtx, ts, handle, extraArgs)
	}()
}

func (s *Scheduler) runTask(ctx context.Context, ts *taskState, handle *solver.Task, extraArgs []string) {
	storeTask := store.Task{Name: ts.name, Solver: ts.solver}

	if _, ok, err := s.st.ChangeStatus(ctx, storeTask, status.Running, []status.Status{status.Scheduled}); err != nil || !ok {
		if err != nil {
			s.log.Debug("change_status(running) failed", zap.Error(err))
		}
	}
	s.emit(solver.ProofStatusEvent{Name: ts.name, Status: status.Running})

	in := s.buildInput(ts.name, ts.solver)
	in.SolverBinaryArgs = append(in.SolverBinaryArgs, extraArgs...)

	st, err := handle.Run(ctx, s.lease, in)
	if err != nil && st == status.Error {
		s.log.Debug("solver task errored", zap.String("entity", ts.name.DBKey()), zap.Error(err))
	}
	s.finishTask(ts, st, nil)
}

// finishTask persists the terminal (or cancellation) status with the
// require set spec's event-handling rule names, then reacts: pass/fail
// cancels siblings and triggers a usefulness recompute; a positive task's
// completion may release its entity's sentinel gate.
func (s *Scheduler) finishTask(ts *taskState, st status.Status, runErr error) {
	storeTask := store.Task{Name: ts.name, Solver: ts.solver}

	var require []status.Status
	switch st {
	case status.Running:
		require = []status.Status{status.Scheduled}
	case status.Abandoned, status.Pending:
		require = []status.Status{status.Pending, status.Scheduled, status.Running}
	default:
		require = []status.Status{status.Running}
	}
	if _, ok, err := s.st.ChangeStatus(context.Background(), storeTask, st, require); err != nil || !ok {
		if err != nil {
			s.log.Debug("change_status mismatch or error", zap.Error(err))
		}
	}
	s.emit(solver.ProofStatusEvent{Name: ts.name, Status: st})

	s.mu.Lock()
	ts.finished = true
	ent := s.entities[ts.name.Key()]
	if ent != nil && ts.priority.Positive() && ent.sentinel != nil {
		ent.sentinel.positiveFinished()
	}
	s.mu.Unlock()

	if st.Terminal() {
		s.cancelEntityTasks(ts.name, ts.solver, true, false)
		go s.recomputeUsefulness(context.Background())
	}
}

func (s *Scheduler) emit(ev solver.ProofStatusEvent) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

func (s *Scheduler) emitError(n name.Name, solverStr string, err error) {
	s.log.Debug("dispatch error", zap.String("entity", n.DBKey()), zap.String("solver", solverStr), zap.Error(err))
	s.emit(solver.ProofStatusEvent{Name: n, Status: status.Error})
}

// cancelEntityTasks implements cancel_proof_tasks: cancel every
// still-unfinished task under the named entity except excludeSolver (the
// task whose own completion triggered this cancellation, if any), then
// discard the set.
func (s *Scheduler) cancelEntityTasks(n name.Name, excludeSolver string, alreadySolved, abandoned bool) {
	s.mu.Lock()
	ent, ok := s.entities[n.Key()]
	if !ok {
		s.mu.Unlock()
		return
	}
	var toCancel []*taskState
	for solverStr, ts := range ent.all {
		if solverStr == excludeSolver || ts.finished {
			continue
		}
		toCancel = append(toCancel, ts)
	}
	delete(s.entities, n.Key())
	s.mu.Unlock()

	for _, ts := range toCancel {
		if ts.handle != nil {
			ts.handle.Cancel(alreadySolved, abandoned)
		}
		if ts.cancel != nil {
			ts.cancel()
		}
	}
}

// cancelTask cancels a single, possibly not-yet-running task (used by
// usefulness recompute, which targets individual tasks rather than whole
// entities).
func (s *Scheduler) cancelTask(n name.Name, solverStr string, alreadySolved, abandoned bool) {
	s.mu.Lock()
	ent, ok := s.entities[n.Key()]
	var ts *taskState
	if ok {
		ts = ent.all[solverStr]
	}
	s.mu.Unlock()
	if ts == nil || ts.finished || ts.cancel == nil {
		return
	}
	if ts.handle != nil {
		ts.handle.Cancel(alreadySolved, abandoned)
	}
	ts.cancel()
}

// recomputeUsefulness implements the debounced usefulness recompute
// (spec §4.8): snapshot status_ticks, skip if it has since advanced,
// otherwise rebuild a status map from reduced per-task status, propagate,
// mark sinks useful, back-propagate, and cancel every no-longer-useful
// non-terminal task.
func (s *Scheduler) recomputeUsefulness(ctx context.Context) {
	s.ticksMu.Lock()
	snapshot := s.ticks
	s.ticksMu.Unlock()

	s.ticksMu.Lock()
	if s.ticks != snapshot {
		s.ticksMu.Unlock()
		return
	}
	s.ticks++
	s.ticksMu.Unlock()

	full, err := s.st.FullStatus(ctx)
	if err != nil {
		s.log.Debug("usefulness recompute: full_status failed", zap.Error(err))
		return
	}
	taskStatus := make(map[statusgraph.Vertex]status.Status, len(full))
	for t, st := range full {
		taskStatus[statusgraph.Task(t.Name, t.Solver)] = st
	}

	m := statusmap.New(s.graph, taskStatus)
	m.Iterate()
	m.MarkSinksUseful()
	m.BackPropagateUseful()

	for rank, v := range s.graph.TaskVertex {
		st := m.Status(rank)
		if !m.Useful(rank) && (st == status.Pending || st == status.Scheduled || st == status.Running) {
			s.cancelTask(v.Name, v.Solver, false, true)
		}
	}
}
