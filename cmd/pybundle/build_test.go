package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmitBundleWritesToPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.py")
	if err := emitBundle(path, "print(1)\n", false); err != nil {
		t.Fatalf("emitBundle: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "print(1)\n" {
		t.Errorf("written content = %q, want %q", got, "print(1)\n")
	}
}

func TestEmitBundleDiffAgainstExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.py")
	if err := os.WriteFile(path, []byte("print(1)\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, w, _ := os.Pipe()
	stdout := os.Stdout
	os.Stdout = w
	err := emitBundle(path, "print(2)\n", true)
	w.Close()
	os.Stdout = stdout
	if err != nil {
		t.Fatalf("emitBundle: %v", err)
	}

	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	out := string(buf[:n])
	if !strings.Contains(out, "-print(1)") || !strings.Contains(out, "+print(2)") {
		t.Errorf("expected a unified diff in stdout, got:\n%s", out)
	}

	final, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(final) != "print(2)\n" {
		t.Errorf("expected the new bundle written after the diff, got %q", final)
	}
}

func TestWriteSuccessReportProducesValidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	if err := writeSuccessReport(path, "main", 3); err != nil {
		t.Fatalf("writeSuccessReport: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), `"entry": "main"`) {
		t.Errorf("expected entry field in report, got:\n%s", data)
	}
	if !strings.Contains(string(data), `"ok": true`) {
		t.Errorf("expected ok:true in report, got:\n%s", data)
	}
}
