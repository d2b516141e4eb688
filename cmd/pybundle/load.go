package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pybundle/pybundle/internal/bundler"
	"github.com/pybundle/pybundle/internal/discovery"
)

// resolveEntry turns a user-supplied entry argument into a concrete
// source file path. A directory argument is resolved to its package
// entry point: spec.md §8's boundary rule prefers a directory's
// `__init__.py` over a sibling `__main__.py` when both exist.
func resolveEntry(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("entry path %s: %w", arg, err)
	}
	if !info.IsDir() {
		return arg, nil
	}
	initPath := filepath.Join(arg, "__init__.py")
	if _, err := os.Stat(initPath); err == nil {
		return initPath, nil
	}
	mainPath := filepath.Join(arg, "__main__.py")
	if _, err := os.Stat(mainPath); err == nil {
		return mainPath, nil
	}
	return "", fmt.Errorf("entry directory %s has neither __init__.py nor __main__.py", arg)
}

// loadModuleSources discovers every first-party module under root and
// converts discovery.Source into the map internal/bundler.Bundle expects,
// plus the entry module's resolved dotted name.
func loadModuleSources(root, entryPath string) (map[string]bundler.ModuleSource, string, error) {
	sources, err := discovery.Discover(root)
	if err != nil {
		return nil, "", err
	}
	entryName, err := discovery.EntryDottedName(root, entryPath)
	if err != nil {
		return nil, "", err
	}
	out := make(map[string]bundler.ModuleSource, len(sources))
	for _, s := range sources {
		out[s.DottedName] = bundler.ModuleSource{
			Path:      s.Path,
			Text:      s.Text,
			IsPackage: s.IsPackage,
		}
	}
	if _, ok := out[entryName]; !ok {
		return nil, "", fmt.Errorf("entry module %q not found under source root %s", entryName, root)
	}
	return out, entryName, nil
}
