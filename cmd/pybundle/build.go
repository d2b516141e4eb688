package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/pybundle/pybundle/internal/bundler"
	"github.com/pybundle/pybundle/internal/config"
	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/schema"
	"github.com/pybundle/pybundle/internal/stdlib"
)

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var (
		out              = fs.String("out", "", "output path for the bundled source (default: stdout)")
		configPath       = fs.String("config", "", "YAML config file overlay")
		targetVersion    = fs.String("target-version", "", "target Python stdlib version, e.g. 3.11")
		noTreeShake      = fs.Bool("no-tree-shake", false, "disable tree shaking (C6), keep every discovered item")
		keepDocstrings   = fs.Bool("keep-docstrings", true, "retain module/function/class docstrings in the bundle")
		stripTypeImports = fs.Bool("strip-type-imports", false, "drop imports referenced only in type annotations")
		emitRequirements = fs.String("emit-requirements", "", "also write a requirements.txt-shaped manifest to this path")
		reportPath       = fs.String("report", "", "write a pybundle.error/v1-or-success machine-readable report to this path")
		diff             = fs.Bool("diff", false, "if --out already exists, print a unified diff against it before overwriting it")
		verbose          = fs.Bool("verbose", false, "print per-phase progress")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("build: missing entry.py argument")
	}
	entryArg := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg.EntryPath = entryArg

	// Only apply a flag's value if the user actually passed it — flag
	// defaults must never clobber a value already set by the YAML
	// overlay, matching spec.md §6's defaults-then-file-then-flags
	// layering (the file's value stands unless a flag explicitly
	// overrides it).
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if explicit["target-version"] {
		cfg.TargetVersion = stdlib.Version(*targetVersion)
	}
	if explicit["no-tree-shake"] {
		cfg.KeepDeadCode = *noTreeShake
	}
	if explicit["keep-docstrings"] {
		cfg.EmitDocstrings = *keepDocstrings
	}
	if explicit["strip-type-imports"] {
		cfg.StripTypeOnlyImports = *stripTypeImports
	}
	if explicit["out"] {
		cfg.OutputPath = *out
	}
	if explicit["emit-requirements"] {
		cfg.EmitManifest = true
		cfg.ManifestPath = *emitRequirements
	}
	if explicit["verbose"] {
		cfg.Verbose = *verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	entryPath, err := resolveEntry(cfg.EntryPath)
	if err != nil {
		return err
	}
	root := cfg.SourceRoot
	if root == "" {
		root = filepath.Dir(entryPath)
	}

	if cfg.Verbose {
		fmt.Printf("%s discovering modules under %s\n", cyan("→"), root)
	}
	sources, entryName, err := loadModuleSources(root, entryPath)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		fmt.Printf("%s bundling %s (%d first-party modules)\n", cyan("→"), entryName, len(sources))
	}
	result, err := bundler.Bundle(entryName, sources, cfg)
	if err != nil {
		if *reportPath != "" {
			writeErrorReport(*reportPath, err)
		}
		return err
	}

	if err := emitBundle(cfg.OutputPath, result.Bundle.Source, *diff); err != nil {
		return err
	}

	if cfg.EmitManifest {
		if err := os.WriteFile(cfg.ManifestPath, []byte(result.Manifest.Text()), 0o644); err != nil {
			return fmt.Errorf("build: writing manifest %s: %w", cfg.ManifestPath, err)
		}
		if cfg.Verbose {
			fmt.Printf("%s wrote %s (%d third-party requirements)\n", green("✓"), cfg.ManifestPath, len(result.Manifest.Requirements))
		}
	}

	if *reportPath != "" {
		if err := writeSuccessReport(*reportPath, entryName, len(result.Bundle.Stmts)); err != nil {
			return err
		}
	}

	if cfg.OutputPath != "" {
		fmt.Printf("%s bundled %s -> %s\n", green("✓"), entryName, cfg.OutputPath)
	}
	return nil
}

// emitBundle writes source to path (or stdout if path is ""). If diff is
// requested and path already exists, a unified diff against the existing
// file is printed to stdout instead of overwriting it silently.
func emitBundle(path, source string, diff bool) error {
	if path == "" {
		fmt.Print(source)
		return nil
	}
	if diff {
		if existing, err := os.ReadFile(path); err == nil {
			ud := difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(existing)),
				B:        difflib.SplitLines(source),
				FromFile: path,
				ToFile:   "new bundle",
				Context:  3,
			}
			text, err := difflib.GetUnifiedDiffString(ud)
			if err != nil {
				return err
			}
			if text != "" {
				fmt.Print(text)
			}
		}
	}
	return os.WriteFile(path, []byte(source), 0o644)
}

func writeSuccessReport(path, entry string, stmtCount int) error {
	payload := map[string]interface{}{
		"schema":          schema.ErrorV1,
		"ok":              true,
		"entry":           entry,
		"statement_count": stmtCount,
	}
	data, err := schema.MarshalDeterministic(payload)
	if err != nil {
		return err
	}
	formatted, err := schema.FormatJSON(data)
	if err != nil {
		return err
	}
	return os.WriteFile(path, formatted, 0o644)
}

func writeErrorReport(path string, err error) {
	rep, ok := errors.AsReport(err)
	if !ok {
		rep = errors.NewGeneric("unknown", err)
	}
	text, marshalErr := rep.ToJSON(false)
	if marshalErr != nil {
		return
	}
	_ = os.WriteFile(path, []byte(text), 0o644)
}
