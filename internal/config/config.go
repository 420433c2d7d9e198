// Package config provides configuration loading and validation for the
// `<name>.ivy` sectioned config file: sections [options], [read], [files],
// [file <path>], [engines], [script].
package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultSolver is the solver string used when [options] omits
// default_solver.
const DefaultSolver = "sby smtbmc"

// FileEntry is one [file <path>] section: a source file copied into the
// work directory's src/ tree.
type FileEntry struct {
	Path string
	Body string
}

// Config holds the parsed contents of a `<name>.ivy` file.
type Config struct {
	// Top is the required top-level module name ([options] top).
	Top string
	// DefaultSolver is used whenever a solve directive names "default".
	DefaultSolver string
	// AutoProof gates whether automatic proofs are recognized at all
	// during solve resolution (entity.Resolve). Default true.
	AutoProof bool

	// Read holds the [read] section body verbatim (yosys read-style
	// script lines), passed through to the design-export collaborator.
	Read []string
	// Files holds [files] section lines: bare source file names to copy
	// into src/ without inline content.
	Files []string
	// FileBodies holds [file <path>] sections: inline file content keyed
	// by path.
	FileBodies []FileEntry
	// Engines holds the [engines] section body verbatim, passed to the
	// solver driver.
	Engines []string
	// Script holds the [script] section body verbatim.
	Script []string
}

// Load parses the `.ivy` file at path.
func Load(path string) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:       true,
		AllowNonUniqueSections: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return fromINI(f)
}

// Parse parses `.ivy` content already in memory (useful for tests and for
// embedding config in other artefacts).
func Parse(data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:       true,
		AllowNonUniqueSections: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return fromINI(f)
}

func fromINI(f *ini.File) (*Config, error) {
	cfg := Default()

	opts := f.Section("options")
	if opts != nil {
		if k := opts.Key("top"); k.String() != "" {
			cfg.Top = k.String()
		}
		if k := opts.Key("default_solver"); k.String() != "" {
			cfg.DefaultSolver = k.String()
		}
		if opts.HasKey("auto_proof") {
			b, err := opts.Key("auto_proof").Bool()
			if err != nil {
				return nil, fmt.Errorf("options.auto_proof: %w", err)
			}
			cfg.AutoProof = b
		}
	}

	if s := f.Section("read"); s != nil {
		cfg.Read = sectionBody(s)
	}
	if s := f.Section("files"); s != nil {
		cfg.Files = sectionBody(s)
	}
	if s := f.Section("engines"); s != nil {
		cfg.Engines = sectionBody(s)
	}
	if s := f.Section("script"); s != nil {
		cfg.Script = sectionBody(s)
	}

	for _, s := range f.Sections() {
		name := s.Name()
		if strings.HasPrefix(name, "file ") {
			cfg.FileBodies = append(cfg.FileBodies, FileEntry{
				Path: strings.TrimSpace(strings.TrimPrefix(name, "file ")),
				Body: strings.Join(sectionBody(s), "\n"),
			})
		}
	}

	return cfg, nil
}

// sectionBody returns a section's raw body as individual lines, taking
// each key's raw rendering (this package treats these sections as
// free-form script text, not key/value pairs).
func sectionBody(s *ini.Section) []string {
	var lines []string
	for _, k := range s.Keys() {
		if k.Value() == "" {
			lines = append(lines, k.Name())
		} else {
			lines = append(lines, k.Name()+" "+k.Value())
		}
	}
	return lines
}

// Default returns a Config with the spec-mandated defaults: no top (must
// be set), default_solver "sby smtbmc", auto_proof true.
func Default() *Config {
	return &Config{
		DefaultSolver: DefaultSolver,
		AutoProof:     true,
	}
}

// Validate checks that the config is usable: top must be set, and
// [file <path>] entries must not collide on basename nor escape the work
// directory via "..".
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if c.Top == "" {
		return fmt.Errorf("options.top is required")
	}

	seen := make(map[string]string)
	for _, fe := range c.FileBodies {
		if strings.Contains(fe.Path, "..") {
			return fmt.Errorf("file path %q escapes the work directory", fe.Path)
		}
		base := baseName(fe.Path)
		if prior, ok := seen[base]; ok {
			return fmt.Errorf("duplicate source filename %q (from %q and %q)", base, prior, fe.Path)
		}
		seen[base] = fe.Path
	}
	for _, f := range c.Files {
		if strings.Contains(f, "..") {
			return fmt.Errorf("file path %q escapes the work directory", f)
		}
		base := baseName(f)
		if prior, ok := seen[base]; ok {
			return fmt.Errorf("duplicate source filename %q (from %q and %q)", base, prior, f)
		}
		seen[base] = f
	}

	return nil
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
