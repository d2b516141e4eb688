package pybundletest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pybundle/pybundle/internal/pybundletest"
	"github.com/stretchr/testify/require"
)

func TestCompareMatchesIdenticalFixture(t *testing.T) {
	dir := filepath.Join("testdata", "selftest")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "identical.golden")
	require.NoError(t, os.WriteFile(path, []byte("hello\nworld\n"), 0o644))
	t.Cleanup(func() { os.Remove(path) })

	pybundletest.Compare(t, "selftest", "identical", "hello\nworld\n")
}

func TestCompareFlagsMismatch(t *testing.T) {
	dir := filepath.Join("testdata", "selftest")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "mismatch.golden")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))
	t.Cleanup(func() { os.Remove(path) })

	ok := t.Run("inner", func(st *testing.T) {
		pybundletest.Compare(st, "selftest", "mismatch", "goodbye\n")
	})
	require.False(t, ok, "expected a mismatched golden comparison to fail its subtest")
}

func TestWriteReportRecordsComparisons(t *testing.T) {
	dir := filepath.Join("testdata", "selftest")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "report_source.golden")
	require.NoError(t, os.WriteFile(path, []byte("recorded\n"), 0o644))
	t.Cleanup(func() { os.Remove(path) })

	pybundletest.Compare(t, "selftest", "report_source", "recorded\n")

	reportPath := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, pybundletest.WriteReport(reportPath))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"schema": "pybundle.test/v1"`)
	require.Contains(t, string(data), `"suite": "selftest"`)
	require.Contains(t, string(data), `"name": "report_source"`)
}
