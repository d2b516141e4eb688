// Package pybundletest provides golden-fixture comparison for integration
// tests across the pipeline, the same role the teacher's internal/parser
// package fills with its unexported goldenCompare helper, generalized here
// into a small reusable package. Only this package's own tests call
// Compare; the scenario tests in internal/bundler check their output with
// substring assertions instead.
//
// Every Compare call is also recorded into a package-level internal/test
// report, so a CI run can flush a single pybundle.test/v1 JSON summary of
// every golden comparison across the whole module (see WriteReport) instead
// of scraping `go test` text output.
package pybundletest

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pmezard/go-difflib/difflib"

	pybundletesting "github.com/pybundle/pybundle/internal/test"
)

// update mirrors the teacher's own `-update` flag convention for
// regenerating golden fixtures from the current program output.
var update = flag.Bool("pybundle.update", false, "write golden fixtures instead of comparing against them")

var runner = pybundletesting.NewRunner()

// Path returns the on-disk location of a golden fixture.
func Path(suite, name string) string {
	return filepath.Join("testdata", suite, name+".golden")
}

// Compare checks got against the fixture at testdata/suite/name.golden.
// On mismatch it fails t with both a structural go-cmp diff and a unified
// diff rendered by go-difflib, the latter being easier to read for
// multi-line source text. With -pybundle.update it writes got as the new
// fixture instead of comparing. Every call (pass, fail, or update) is also
// recorded into the package's running test.Report.
func Compare(t *testing.T, suite, name, got string) {
	t.Helper()
	path := Path(suite, name)

	if *update {
		var writeErr error
		runner.RunTest(suite, name, func() error {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				writeErr = err
				return err
			}
			writeErr = os.WriteFile(path, []byte(got), 0o644)
			return writeErr
		})
		if writeErr != nil {
			t.Fatalf("pybundletest: writing %s: %v", path, writeErr)
		}
		t.Logf("updated golden fixture: %s", path)
		return
	}

	var compareErr error
	runner.RunTest(suite, name, func() error {
		want, err := os.ReadFile(path)
		if err != nil {
			compareErr = fmt.Errorf("reading %s: %w (run with -pybundle.update to create it)", path, err)
			return compareErr
		}
		if diff := cmp.Diff(string(want), got); diff != "" {
			ud := difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(want)),
				B:        difflib.SplitLines(got),
				FromFile: name + ".golden",
				ToFile:   "got",
				Context:  3,
			}
			text, _ := difflib.GetUnifiedDiffString(ud)
			compareErr = fmt.Errorf("golden mismatch for %s/%s (-want +got):\n%s\nunified diff:\n%s", suite, name, diff, text)
			return compareErr
		}
		return nil
	})
	if compareErr != nil {
		t.Errorf("%v", compareErr)
	}
}

// WriteReport flushes every Compare call recorded so far as a single
// pybundle.test/v1 JSON document at path — the "CLI / configuration loader"
// external collaborator's CI integration point, not something the bundling
// pipeline itself ever reads.
func WriteReport(path string) error {
	data, err := runner.GetReport().ToJSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
