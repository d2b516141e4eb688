package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveEntryPassesThroughAFile(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.py")
	if err := os.WriteFile(entry, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := resolveEntry(entry)
	if err != nil {
		t.Fatalf("resolveEntry: %v", err)
	}
	if got != entry {
		t.Errorf("resolveEntry(%s) = %s, want unchanged", entry, got)
	}
}

func TestResolveEntryPrefersInitOverMain(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "__init__.py"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "__main__.py"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := resolveEntry(dir)
	if err != nil {
		t.Fatalf("resolveEntry: %v", err)
	}
	if filepath.Base(got) != "__init__.py" {
		t.Errorf("resolveEntry(%s) = %s, want __init__.py preferred", dir, got)
	}
}

func TestResolveEntryFallsBackToMain(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "__main__.py"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := resolveEntry(dir)
	if err != nil {
		t.Fatalf("resolveEntry: %v", err)
	}
	if filepath.Base(got) != "__main__.py" {
		t.Errorf("resolveEntry(%s) = %s, want __main__.py", dir, got)
	}
}

func TestResolveEntryRejectsEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := resolveEntry(dir); err == nil {
		t.Error("expected an error for a directory with neither __init__.py nor __main__.py")
	}
}

func TestResolveEntryRejectsMissingPath(t *testing.T) {
	if _, err := resolveEntry(filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Error("expected an error for a nonexistent path")
	}
}

func TestLoadModuleSourcesDiscoversPackage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("from util import add\nprint(add(1, 2))\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "util.py"), []byte("def add(a, b):\n    return a + b\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	sources, entryName, err := loadModuleSources(dir, filepath.Join(dir, "main.py"))
	if err != nil {
		t.Fatalf("loadModuleSources: %v", err)
	}
	if entryName != "main" {
		t.Errorf("entryName = %q, want %q", entryName, "main")
	}
	if _, ok := sources["util"]; !ok {
		t.Errorf("expected util module discovered, got %v", sources)
	}
}

func TestLoadModuleSourcesRejectsEntryOutsideRoot(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	if err := os.WriteFile(filepath.Join(other, "main.py"), []byte("print(1)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := loadModuleSources(dir, filepath.Join(other, "main.py")); err == nil {
		t.Error("expected an error when the entry path is outside the source root")
	}
}
