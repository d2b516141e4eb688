// Package config loads BundleConfig: the "CLI / configuration loader"
// external collaborator of spec.md §6. Defaults are overlaid by an
// optional YAML config file and then by explicit CLI flags, the same
// layering order cmd/pybundle applies before calling internal/bundler.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pybundle/pybundle/internal/stdlib"
)

// BundleConfig controls one bundling run.
type BundleConfig struct {
	// EntryPath is the Python script to bundle.
	EntryPath string `yaml:"entry"`

	// SourceRoot is the first-party root directory; relative imports may
	// not escape it. Defaults to the entry script's directory.
	SourceRoot string `yaml:"source_root"`

	// TargetVersion selects the stdlib module set the Import Classifier
	// consults.
	TargetVersion stdlib.Version `yaml:"target_version"`

	// OutputPath is where the bundled source is written; "" means stdout.
	OutputPath string `yaml:"output"`

	// EmitManifest turns on requirements.txt-shaped manifest emission
	// alongside the bundle.
	EmitManifest bool `yaml:"emit_manifest"`

	// ManifestPath is where the manifest is written when EmitManifest is
	// set; defaults to "requirements.txt", a path relative to the current
	// working directory (not to OutputPath).
	ManifestPath string `yaml:"manifest_path"`

	// KeepDeadCode disables the tree shaker (C6), retaining every
	// discovered symbol instead of only what's reachable from the entry.
	// Inverse of spec.md §6's `tree_shake` option.
	KeepDeadCode bool `yaml:"keep_dead_code"`

	// StripTypeOnlyImports drops import statements, whatever their origin,
	// whose bound names are all referenced only inside annotation positions (function
	// parameter or variable annotations) and nowhere else — spec.md §6's
	// `strip_type_only_imports`.
	StripTypeOnlyImports bool `yaml:"strip_type_only_imports"`

	// EmitDocstrings controls whether module/function/class docstrings
	// survive into the bundle — spec.md §6's `emit_docstrings`. Defaults
	// to true (docstrings retained).
	EmitDocstrings bool `yaml:"emit_docstrings"`

	// Verbose turns on per-phase progress logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration used when neither a config file nor
// CLI flags override a field.
func Default() BundleConfig {
	return BundleConfig{
		TargetVersion:  stdlib.Py311,
		ManifestPath:   "requirements.txt",
		EmitDocstrings: true,
	}
}

// Load builds a BundleConfig: defaults, then (if path != "") a YAML
// overlay, then a final validation pass. Fields a CLI caller wants to
// override further should be set on the returned value directly — Load
// doesn't know about flags, matching the teacher's layered
// defaults-then-file-then-flags construction in cmd/ailang/main.go.
func Load(path string) (BundleConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that required fields are set and internally consistent.
func (c BundleConfig) Validate() error {
	if c.EntryPath == "" {
		return fmt.Errorf("config: entry path is required")
	}
	if _, err := os.Stat(c.EntryPath); err != nil {
		return fmt.Errorf("config: entry path %s: %w", c.EntryPath, err)
	}
	return nil
}
