// Package workdir manages the on-disk work directory layout (spec.md §6):
// creation, force-overwrite, the per-run logfile rotation, and the
// tasks/<filename>.sby + tasks/<filename>/status artefact paths the
// solver package reads and writes. Generalizes the teacher's hand-rolled
// internal/ledger.LedgerLock into a github.com/gofrs/flock-backed guard
// against two processes initializing the same work directory at once.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gofrs/flock"

	"github.com/tobias/keystone/internal/errors"
	"github.com/tobias/keystone/internal/name"
)

const (
	lockFileName    = ".keystone.lock"
	gitignoreBody   = "*\n"
	statusStoreName = "status.sqlite"
)

// Dir represents an initialized (or about-to-be-initialized) work
// directory rooted at Path.
type Dir struct {
	Path string

	lock *flock.Flock
}

// Open returns a Dir handle for path without touching the filesystem.
func Open(path string) *Dir {
	return &Dir{Path: path, lock: flock.New(filepath.Join(path, lockFileName))}
}

// Exists reports whether the work directory already exists on disk.
func (d *Dir) Exists() bool {
	info, err := os.Stat(d.Path)
	return err == nil && info.IsDir()
}

// Initialized reports whether the work directory has already been set up
// (status store present).
func (d *Dir) Initialized() bool {
	_, err := os.Stat(filepath.Join(d.Path, statusStoreName))
	return err == nil
}

// Setup creates the work directory layout: the directory itself (removed
// and recreated first if force is true and it already exists), the
// .gitignore, model/, tasks/, and src/ subdirectories. Returns
// errors.WORKDIR_EXISTS if the directory is present and force is false.
func (d *Dir) Setup(force bool) error {
	if d.Exists() {
		if !force {
			return errors.New(errors.WORKDIR_EXISTS, fmt.Sprintf("work directory %s already exists (use -f to overwrite)", d.Path))
		}
		if err := os.RemoveAll(d.Path); err != nil {
			return errors.Wrap(err, "removing existing work directory")
		}
	}

	if err := d.acquire(); err != nil {
		return err
	}
	defer d.release()

	for _, sub := range []string{"", "model", "tasks", "src"} {
		if err := os.MkdirAll(filepath.Join(d.Path, sub), 0755); err != nil {
			return errors.Wrap(err, "creating work directory layout")
		}
	}

	if err := os.WriteFile(filepath.Join(d.Path, ".gitignore"), []byte(gitignoreBody), 0644); err != nil {
		return errors.Wrap(err, "writing .gitignore")
	}
	return nil
}

// RequireInitialized returns errors.WORKDIR_NOT_INITIALIZED unless the
// work directory already holds a status store, for non-setup commands.
func (d *Dir) RequireInitialized() error {
	if !d.Initialized() {
		return errors.New(errors.WORKDIR_NOT_INITIALIZED, fmt.Sprintf("work directory %s is not initialized; run setup first", d.Path))
	}
	return nil
}

func (d *Dir) acquire() error {
	if err := os.MkdirAll(d.Path, 0755); err != nil {
		return errors.Wrap(err, "creating work directory")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "acquiring work directory lock")
	}
	if !ok {
		return errors.New(errors.WORKDIR_EXISTS, fmt.Sprintf("work directory %s is locked by another process", d.Path))
	}
	return nil
}

func (d *Dir) release() {
	_ = d.lock.Unlock()
}

// StorePath returns the path to the persistent status store.
func (d *Dir) StorePath() string {
	return filepath.Join(d.Path, statusStoreName)
}

// ModelDir, TasksDir, and SrcDir return the corresponding layout
// subdirectories.
func (d *Dir) ModelDir() string { return filepath.Join(d.Path, "model") }
func (d *Dir) TasksDir() string { return filepath.Join(d.Path, "tasks") }
func (d *Dir) SrcDir() string   { return filepath.Join(d.Path, "src") }

// ExportPaths returns the ivy_export.{ys,log,json} artefact paths.
func (d *Dir) ExportPaths() (ys, log, json string) {
	base := filepath.Join(d.Path, "ivy_export")
	return base + ".ys", base + ".log", base + ".json"
}

var logfileRotation = regexp.MustCompile(`^logfile(?:-(\d+))?\.txt$`)

// NextLogfile returns the path for this run's logfile: logfile.txt if
// absent, otherwise logfile-<n>.txt for the lowest unused n.
func (d *Dir) NextLogfile() (string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Join(d.Path, "logfile.txt"), nil
		}
		return "", errors.Wrap(err, "listing work directory")
	}
	highest := -1
	for _, e := range entries {
		m := logfileRotation.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n := 0
		if m[1] != "" {
			fmt.Sscanf(m[1], "%d", &n)
		}
		if n > highest {
			highest = n
		}
	}
	if highest < 0 {
		return filepath.Join(d.Path, "logfile.txt"), nil
	}
	return filepath.Join(d.Path, fmt.Sprintf("logfile-%d.txt", highest+1)), nil
}

// taskFilename builds the per-(entity, solver) task filename: the entity's
// filename form, plus a sanitized solver suffix when solver names anything
// other than the lone "default" solver, so two solvers racing against the
// same entity never share one input file or result directory.
func taskFilename(n name.Name, solver string) string {
	base := n.Filename()
	if solver == "" || solver == "default" {
		return base
	}
	return base + "." + sanitizeSolver(solver)
}

func sanitizeSolver(solver string) string {
	var b strings.Builder
	for _, r := range solver {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// TaskInputPath returns tasks/<task-filename>.sby for the (n, solver) task.
func (d *Dir) TaskInputPath(n name.Name, solver string) string {
	return filepath.Join(d.TasksDir(), taskFilename(n, solver)+".sby")
}

// TaskWorkDir returns the tasks/<task-filename>/ directory that holds a
// task's status and detail artefacts, creating it if absent.
func (d *Dir) TaskWorkDir(n name.Name, solver string) (string, error) {
	dir := filepath.Join(d.TasksDir(), taskFilename(n, solver))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "creating task work directory")
	}
	return dir, nil
}
