package workdir_test

import (
	"os"
	"path/filepath"
	"testing"

	kerrors "github.com/tobias/keystone/internal/errors"
	"github.com/tobias/keystone/internal/name"
	"github.com/tobias/keystone/internal/workdir"
)

func TestSetupCreatesLayout(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))

	if err := dir.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	for _, sub := range []string{"model", "tasks", "src"} {
		if info, err := os.Stat(filepath.Join(dir.Path, sub)); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s to exist", sub)
		}
	}
	body, err := os.ReadFile(filepath.Join(dir.Path, ".gitignore"))
	if err != nil || string(body) != "*\n" {
		t.Errorf(".gitignore = %q, err %v; want \"*\\n\"", body, err)
	}
}

func TestSetupRejectsExistingWithoutForce(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("first Setup() error: %v", err)
	}
	err := dir.Setup(false)
	if err == nil {
		t.Fatal("expected Setup() to reject an existing work directory without force")
	}
	if kerrors.Code(err) != kerrors.WORKDIR_EXISTS {
		t.Errorf("Code(err) = %v, want WORKDIR_EXISTS", kerrors.Code(err))
	}
}

func TestSetupForceOverwrites(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("first Setup() error: %v", err)
	}
	marker := filepath.Join(dir.Path, "src", "stale.sv")
	if err := os.WriteFile(marker, []byte("x"), 0644); err != nil {
		t.Fatalf("writing marker file: %v", err)
	}
	if err := dir.Setup(true); err != nil {
		t.Fatalf("forced Setup() error: %v", err)
	}
	if _, err := os.Stat(marker); !os.IsNotExist(err) {
		t.Error("forced Setup() should have removed the stale marker file")
	}
}

func TestRequireInitialized(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if err := dir.RequireInitialized(); err == nil {
		t.Error("expected RequireInitialized() to fail before the store exists")
	}
	if err := os.WriteFile(dir.StorePath(), []byte{}, 0644); err != nil {
		t.Fatalf("writing stub store file: %v", err)
	}
	if err := dir.RequireInitialized(); err != nil {
		t.Errorf("RequireInitialized() unexpected error: %v", err)
	}
}

func TestNextLogfileRotates(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	first, err := dir.NextLogfile()
	if err != nil {
		t.Fatalf("NextLogfile() error: %v", err)
	}
	if filepath.Base(first) != "logfile.txt" {
		t.Errorf("first NextLogfile() = %q, want logfile.txt", first)
	}
	if err := os.WriteFile(first, []byte("run 1"), 0644); err != nil {
		t.Fatalf("writing logfile: %v", err)
	}

	second, err := dir.NextLogfile()
	if err != nil {
		t.Fatalf("NextLogfile() error: %v", err)
	}
	if filepath.Base(second) != "logfile-1.txt" {
		t.Errorf("second NextLogfile() = %q, want logfile-1.txt", second)
	}
}

func TestTaskPaths(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	n := name.New([]string{"top", "inst", "proof_a"})
	input := dir.TaskInputPath(n, "default")
	if filepath.Dir(input) != dir.TasksDir() {
		t.Errorf("TaskInputPath() not under tasks dir: %q", input)
	}
	if filepath.Ext(input) != ".sby" {
		t.Errorf("TaskInputPath() = %q, want .sby suffix", input)
	}

	taskDir, err := dir.TaskWorkDir(n, "default")
	if err != nil {
		t.Fatalf("TaskWorkDir() error: %v", err)
	}
	if info, err := os.Stat(taskDir); err != nil || !info.IsDir() {
		t.Errorf("TaskWorkDir() did not create %q", taskDir)
	}
}

func TestTaskPathsDistinguishSolvers(t *testing.T) {
	root := t.TempDir()
	dir := workdir.Open(filepath.Join(root, "proj"))
	if err := dir.Setup(false); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	n := name.New([]string{"top", "inst", "proof_a"})
	a := dir.TaskInputPath(n, "sby smtbmc")
	b := dir.TaskInputPath(n, "sby abc")
	if a == b {
		t.Errorf("two distinct solvers against the same entity produced the same input path: %q", a)
	}
}
