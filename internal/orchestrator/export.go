package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tobias/keystone/internal/config"
	"github.com/tobias/keystone/internal/entity"
	"github.com/tobias/keystone/internal/workdir"
)

// designExportDriver is the external design-export collaborator's binary
// name (spec.md §1's "yosys/sby-equivalent tool", out of scope to
// implement here).
const designExportDriver = "yosys"

// ObtainExport returns the JSON export for cfg, reusing ivy_export.json
// from a previous run when it is present and parses cleanly, otherwise
// invoking the design-export driver to produce it (spec.md §4.9 step 3).
func ObtainExport(ctx context.Context, cfg *config.Config, dir *workdir.Dir, log *zap.Logger) (*entity.RawExport, error) {
	ysPath, logPath, jsonPath := dir.ExportPaths()

	if data, err := os.ReadFile(jsonPath); err == nil {
		if raw, perr := entity.ParseExport(data); perr == nil {
			log.Debug("reusing cached design export", zap.String("path", jsonPath))
			return raw, nil
		}
		log.Debug("cached design export is invalid, regenerating", zap.String("path", jsonPath))
	}

	if err := writeExportScript(ysPath, cfg, jsonPath); err != nil {
		return nil, fmt.Errorf("writing design-export script: %w", err)
	}

	if err := copySources(cfg, dir); err != nil {
		return nil, fmt.Errorf("staging source files: %w", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating design-export log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, designExportDriver, "-s", ysPath)
	cmd.Dir = dir.Path
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", designExportDriver, err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("reading design export output: %w", err)
	}
	return entity.ParseExport(data)
}

// writeExportScript renders the [read]-section yosys commands plus the
// write_ivy_json invocation targeting jsonPath.
func writeExportScript(ysPath string, cfg *config.Config, jsonPath string) error {
	var b strings.Builder
	for _, line := range cfg.Read {
		fmt.Fprintln(&b, line)
	}
	fmt.Fprintf(&b, "hierarchy -top %s\n", cfg.Top)
	fmt.Fprintf(&b, "write_ivy_json %s\n", jsonPath)
	return os.WriteFile(ysPath, []byte(b.String()), 0644)
}

// copySources stages every [files]/[file <path>] entry into the work
// directory's src/ tree, as spec.md §6's layout requires.
func copySources(cfg *config.Config, dir *workdir.Dir) error {
	for _, fe := range cfg.FileBodies {
		dst := filepath.Join(dir.SrcDir(), filepath.Base(fe.Path))
		if err := os.WriteFile(dst, []byte(fe.Body), 0644); err != nil {
			return err
		}
	}
	for _, f := range cfg.Files {
		src := f
		dst := filepath.Join(dir.SrcDir(), filepath.Base(f))
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return err
		}
	}
	return nil
}
