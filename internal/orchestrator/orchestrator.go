// Package orchestrator implements the top-level sequencing (spec.md
// §4.9): config → work directory → store → JSON export → entity model and
// status graph → dry propagation warnings → command branch.
package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/tobias/keystone/internal/config"
	"github.com/tobias/keystone/internal/entity"
	kerrors "github.com/tobias/keystone/internal/errors"
	"github.com/tobias/keystone/internal/logging"
	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/scheduler"
	"github.com/tobias/keystone/internal/solver"
	"github.com/tobias/keystone/internal/status"
	"github.com/tobias/keystone/internal/statusgraph"
	"github.com/tobias/keystone/internal/statusmap"
	"github.com/tobias/keystone/internal/store"
	"github.com/tobias/keystone/internal/workdir"
)

// Options collects the global CLI flags that influence orchestration.
type Options struct {
	ConfigPath    string
	Force         bool
	Debug         bool
	DebugEvents   bool
	JobCapacity   int64
	ResetSchedule bool
}

// Orchestrator holds the state assembled by Prepare: the parsed config,
// the work directory handle, the store, and the built status graph.
type Orchestrator struct {
	Config *config.Config
	Dir    *workdir.Dir
	Store  *store.Store
	Model  *entity.Model
	Graph  *statusgraph.Graph
	Log    *zap.Logger

	opts Options
}

// Prepare runs spec.md §4.9 steps 1–4: parse config, set up (or validate)
// the work directory, open the store, obtain the JSON export, build the
// entity model and status graph, and report unreachable sinks. setup
// indicates this is the `setup` command, which creates (rather than
// requires) the work directory.
func Prepare(ctx context.Context, opts Options, isSetup bool) (*Orchestrator, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, kerrors.Wrap(err, "loading config")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, kerrors.New(kerrors.INVALID_CONFIG, err.Error())
	}

	dirPath := WorkDirPath(opts.ConfigPath)
	dir := workdir.Open(dirPath)

	if isSetup {
		if err := dir.Setup(opts.Force); err != nil {
			return nil, err
		}
	} else {
		if err := dir.RequireInitialized(); err != nil {
			return nil, err
		}
	}

	logfilePath, err := dir.NextLogfile()
	if err != nil {
		return nil, kerrors.Wrap(err, "selecting logfile")
	}
	logWriter, err := openLogfile(logfilePath)
	if err != nil {
		return nil, kerrors.Wrap(err, "opening logfile")
	}
	log := logging.New(logging.Options{Debug: opts.Debug, Writer: logWriter})

	st, err := store.Open(dir.StorePath(), true, log)
	if err != nil {
		return nil, kerrors.New(kerrors.STORE_CORRUPTION, err.Error())
	}

	o := &Orchestrator{Config: cfg, Dir: dir, Store: st, Log: log, opts: opts}

	if isSetup {
		return o, nil
	}

	raw, err := ObtainExport(ctx, cfg, dir, log)
	if err != nil {
		return nil, kerrors.Wrap(err, "obtaining design export")
	}

	model := entity.BuildModel(raw)
	entity.Resolve(model, entity.AutoProofPolicy(cfg.AutoProof))
	graph := statusgraph.Build(model)

	o.Model = model
	o.Graph = graph

	for _, warning := range DryRunUnreachableSinks(graph) {
		log.Warn("unreachable sink detected", zap.String("entity", warning.DBKey()))
	}

	return o, nil
}

// DryRunUnreachableSinks runs a dry forward propagation with every task
// vertex seeded at its default (pending), returning the names of every
// sink vertex whose status remains unreachable: a cycle isolated from any
// solver task.
func DryRunUnreachableSinks(g *statusgraph.Graph) []name.Name {
	m := statusmap.New(g, map[statusgraph.Vertex]status.Status{})
	m.Iterate()

	var warnings []name.Name
	for _, rank := range g.Sinks {
		if m.Status(rank) == status.Unreachable {
			warnings = append(warnings, g.Vertices[rank].Name)
		}
	}
	return warnings
}

// Close releases the orchestrator's store handle.
func (o *Orchestrator) Close() error {
	if o.Store == nil {
		return nil
	}
	return o.Store.Close()
}

// allTasks enumerates every (name, solver) pair named by the resolved
// entity model's proofs and invariants, in solve-order.
func (o *Orchestrator) allTasks() []store.Task {
	var tasks []store.Task
	for _, key := range o.Model.ProofOrder {
		p := o.Model.Proofs[key]
		for _, solverStr := range p.SolveOrder {
			tasks = append(tasks, store.Task{Name: p.Name, Solver: solverStr})
		}
	}
	for _, key := range o.Model.InvarOrder {
		inv := o.Model.Invariants[key]
		for _, solverStr := range inv.SolveOrder {
			tasks = append(tasks, store.Task{Name: inv.Name, Solver: solverStr})
		}
	}
	return tasks
}

// Run implements the `run`/`prove` branch of spec.md §4.9 step 5: bulk
// transition tasks pending→scheduled (or from {pending,scheduled,running}
// if ResetSchedule), dispatch every scheduled task, and await completion.
func (o *Orchestrator) Run(ctx context.Context) error {
	tasks := o.allTasks()
	if err := o.Store.InitializeStatus(ctx, tasks); err != nil {
		// InitializeStatus is only meaningful the first time; a duplicate
		// primary key on a re-run is expected and not an error condition
		// here, so the bulk transition below is what actually matters.
		_ = err
	}

	require := []status.Status{status.Pending}
	if o.opts.ResetSchedule {
		require = []status.Status{status.Pending, status.Scheduled, status.Running}
	}
	results, err := o.Store.ChangeStatusMany(ctx, tasks, status.Scheduled, require)
	if err != nil {
		return kerrors.New(kerrors.STORE_CONTENTION, err.Error())
	}

	var pending []scheduler.PendingTask
	for _, r := range results {
		if !r.Applied {
			o.Log.Warn("skipping task left in place by a prior interrupted run",
				zap.String("entity", r.Task.Name.DBKey()), zap.String("solver", r.Task.Solver),
				zap.String("status", r.Current.String()))
			continue
		}
		pending = append(pending, o.pendingTaskFor(r.Task))
	}

	sched := scheduler.New(o.Store, o.Graph, o.Dir, o.opts.JobCapacity, o.Config.DefaultSolver, o.buildInput, o.Log)
	if o.opts.DebugEvents {
		sched.OnEvent(func(ev solver.ProofStatusEvent) {
			logging.LogEvent(o.Log, ev.Name, ev.Status)
		})
	}
	sched.DispatchAll(ctx, pending)
	return nil
}

func (o *Orchestrator) pendingTaskFor(t store.Task) scheduler.PendingTask {
	var priority *int
	var solveOrder []string
	if p, ok := o.Model.ProofByKey(t.Name.Key()); ok {
		priority = p.SolveWith[t.Solver]
		solveOrder = p.SolveOrder
	} else if inv, ok := o.Model.InvariantByKey(t.Name.Key()); ok {
		priority = inv.SolveWith[t.Solver]
		solveOrder = inv.SolveOrder
	}
	return scheduler.PendingTask{
		Name:            t.Name,
		Solver:          t.Solver,
		Priority:        priority,
		SolveOrderIndex: entity.SolveOrderIndex(solveOrder, t.Solver),
	}
}

// buildInput renders the solver.Input for one (entity, solver) task by
// walking the entity model's assumptions, assertions, and exports for the
// owning proof or invariant, and the config's engines/script sections.
func (o *Orchestrator) buildInput(target name.Name, solverString string) solver.Input {
	in := solver.Input{
		Top:         o.Config.Top,
		EngineLines: o.Config.Engines,
		ScriptLines: o.Config.Script,
	}
	if p, ok := o.Model.ProofByKey(target.Key()); ok {
		for _, a := range p.Assumes {
			if a.Cross {
				in.CrossAssumes = append(in.CrossAssumes, a.Target.RTLIL())
			} else {
				in.Assumes = append(in.Assumes, a.Target.RTLIL())
			}
		}
		for _, x := range p.Asserts {
			in.Asserts = append(in.Asserts, x.Target.RTLIL())
		}
	}
	return in
}

// Status implements the `status` command: produces a report from the
// persisted store only, without dispatching anything.
func (o *Orchestrator) Status(ctx context.Context) (Report, error) {
	full, err := o.Store.FullStatus(ctx)
	if err != nil {
		return Report{}, kerrors.New(kerrors.STORE_CONTENTION, err.Error())
	}
	reduced, err := o.Store.ReducedStatus(ctx)
	if err != nil {
		return Report{}, kerrors.New(kerrors.STORE_CONTENTION, err.Error())
	}
	return BuildReport(full, reduced), nil
}

// WorkDirPath derives the work directory path from a config file path: the
// config's base name with its extension stripped, per spec.md §6.
func WorkDirPath(configPath string) string {
	return configBaseNoExt(configPath)
}

func configBaseNoExt(path string) string {
	i := len(path)
	for i > 0 && path[i-1] != '/' {
		i--
	}
	base := path[i:]
	for j := len(base) - 1; j >= 0; j-- {
		if base[j] == '.' {
			base = base[:j]
			break
		}
	}
	if base == "" {
		return "work"
	}
	return base
}

func openLogfile(path string) (*logfileWriter, error) {
	return newLogfileWriter(path)
}
