package config_test

import (
	"testing"

	"github.com/tobias/keystone/internal/config"
)

func TestDefaultHasSpecDefaults(t *testing.T) {
	cfg := config.Default()
	if cfg.DefaultSolver != "sby smtbmc" {
		t.Errorf("Default().DefaultSolver = %q, want %q", cfg.DefaultSolver, "sby smtbmc")
	}
	if !cfg.AutoProof {
		t.Error("Default().AutoProof should be true")
	}
	if cfg.Top != "" {
		t.Errorf("Default().Top = %q, want empty (must be set by caller)", cfg.Top)
	}
}

func TestParseOptionsSection(t *testing.T) {
	data := []byte(`
[options]
top = mytop
default_solver = sby abc
auto_proof = false
`)
	cfg, err := config.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Top != "mytop" {
		t.Errorf("Top = %q, want mytop", cfg.Top)
	}
	if cfg.DefaultSolver != "sby abc" {
		t.Errorf("DefaultSolver = %q, want %q", cfg.DefaultSolver, "sby abc")
	}
	if cfg.AutoProof {
		t.Error("AutoProof should be false when explicitly set")
	}
}

func TestParseFileSections(t *testing.T) {
	data := []byte(`
[options]
top = mytop

[file src/top.sv]
module top; endmodule
`)
	cfg, err := config.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(cfg.FileBodies) != 1 {
		t.Fatalf("FileBodies = %v, want 1 entry", cfg.FileBodies)
	}
	if cfg.FileBodies[0].Path != "src/top.sv" {
		t.Errorf("FileBodies[0].Path = %q, want %q", cfg.FileBodies[0].Path, "src/top.sv")
	}
}

func TestValidateRequiresTop(t *testing.T) {
	cfg := config.Default()
	if err := config.Validate(cfg); err == nil {
		t.Error("Validate() should fail when top is unset")
	}
	cfg.Top = "mytop"
	if err := config.Validate(cfg); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestValidateRejectsPathEscape(t *testing.T) {
	cfg := config.Default()
	cfg.Top = "mytop"
	cfg.FileBodies = []config.FileEntry{{Path: "../etc/passwd", Body: "x"}}
	if err := config.Validate(cfg); err == nil {
		t.Error("Validate() should reject a file path containing '..'")
	}
}

func TestValidateRejectsDuplicateFilenames(t *testing.T) {
	cfg := config.Default()
	cfg.Top = "mytop"
	cfg.FileBodies = []config.FileEntry{
		{Path: "a/top.sv", Body: "x"},
		{Path: "b/top.sv", Body: "y"},
	}
	if err := config.Validate(cfg); err == nil {
		t.Error("Validate() should reject duplicate basenames across file sections")
	}
}
