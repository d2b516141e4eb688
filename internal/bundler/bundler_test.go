package bundler_test

import (
	"strings"
	"testing"

	"github.com/pybundle/pybundle/internal/bundler"
	"github.com/pybundle/pybundle/internal/config"
)

func cfg() config.BundleConfig {
	c := config.Default()
	return c
}

func mustBundle(t *testing.T, entry string, sources map[string]bundler.ModuleSource) *bundler.BundleResult {
	t.Helper()
	res, err := bundler.Bundle(entry, sources, cfg())
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	return res
}

// Scenario 1: two inlinable modules, one value import.
func TestScenarioValueImportBetweenInlinableModules(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from util import add\nprint(add(1, 2))\n"},
		"util": {Path: "util.py", Text: "def add(a, b):\n    return a + b\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if !strings.Contains(src, "def add(a, b):") {
		t.Errorf("expected add's definition to be inlined, got:\n%s", src)
	}
	if !strings.Contains(src, "print(add(1, 2))") {
		t.Errorf("expected entry's print call preserved, got:\n%s", src)
	}
	if strings.Contains(src, "def __init_") {
		t.Errorf("expected no wrapper init function, got:\n%s", src)
	}
	if strings.Contains(src, "import util") || strings.Contains(src, "from util") {
		t.Errorf("expected the first-party import statement to be dropped, got:\n%s", src)
	}

	defIdx := strings.Index(src, "def add")
	printIdx := strings.Index(src, "print(add")
	if defIdx < 0 || printIdx < 0 || defIdx > printIdx {
		t.Errorf("expected add's definition before its use, got:\n%s", src)
	}
}

// Scenario 2: a package with a submodule imported as a module.
func TestScenarioSubmoduleImportedAsModule(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main":               {Path: "main.py", Text: "from greetings import greeter\ngreeter.say()\n"},
		"greetings":          {Path: "greetings/__init__.py", Text: "", IsPackage: true},
		"greetings.greeter":  {Path: "greetings/greeter.py", Text: "def say():\n    print(\"hi\")\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if !strings.Contains(src, "types.SimpleNamespace()") {
		t.Errorf("expected a namespace object scaffolded, got:\n%s", src)
	}
	if !strings.Contains(src, "def say():") {
		t.Errorf("expected greeter.say's body to survive (inlined into its wrapper), got:\n%s", src)
	}
	if !strings.Contains(src, "greetings_greeter.say()") {
		t.Errorf("expected the entry's bare greeter reference collapsed to the submodule's own namespace, got:\n%s", src)
	}
}

// Scenario 3: a function-level cycle resolved without wrappers.
func TestScenarioFunctionLevelCycleNeedsNoWrapper(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "import a\na.f()\n"},
		"a": {Path: "a.py", Text: "import b\n\ndef f():\n    return b.g()\n"},
		"b": {Path: "b.py", Text: "import a\n\ndef g():\n    return a.f\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if strings.Contains(src, "def __init_") {
		t.Errorf("expected a function-level cycle to need no wrapper, got:\n%s", src)
	}
	if !strings.Contains(src, "def f():") || !strings.Contains(src, "def g():") {
		t.Errorf("expected both f and g inlined, got:\n%s", src)
	}
}

// Scenario 4: an import-time cycle forces wrappers. Each module reads the
// other's namespace attribute directly in a top-level statement (not a
// plain constant assignment, which would instead be the fatal
// ModuleConstants case below).
func TestScenarioImportTimeCycleForcesWrappers(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "import a\nprint(a.X)\n"},
		"a":    {Path: "a.py", Text: "import b\nprint(b.Y)\nX = 1\n"},
		"b":    {Path: "b.py", Text: "import a\nprint(a.X)\nY = 1\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if !strings.Contains(src, "def __init_") {
		t.Errorf("expected an import-time cycle to force wrapper init functions, got:\n%s", src)
	}
	if strings.Count(src, "def __init_") < 2 {
		t.Errorf("expected both cycle members wrapped, got:\n%s", src)
	}
}

// Scenario 5: tree-shaking prunes an unused value.
func TestScenarioTreeShakingPrunesUnusedValue(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from util import add\nprint(add(1, 2))\n"},
		"util": {Path: "util.py", Text: "def add(a, b):\n    return a + b\n\n\ndef sub(a, b):\n    return a - b\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if strings.Contains(src, "def sub") {
		t.Errorf("expected unreferenced sub to be pruned, got:\n%s", src)
	}
	if !strings.Contains(src, "def add") {
		t.Errorf("expected add to survive, got:\n%s", src)
	}
}

// TestScenarioTreeShakingKeepDeadCode verifies the KeepDeadCode escape
// hatch retains what the default configuration prunes.
func TestScenarioTreeShakingKeepDeadCode(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from util import add\nprint(add(1, 2))\n"},
		"util": {Path: "util.py", Text: "def add(a, b):\n    return a + b\n\n\ndef sub(a, b):\n    return a - b\n"},
	}
	c := cfg()
	c.KeepDeadCode = true
	res, err := bundler.Bundle("main", sources, c)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if !strings.Contains(res.Bundle.Source, "def sub") {
		t.Errorf("expected sub to survive with KeepDeadCode set, got:\n%s", res.Bundle.Source)
	}
}

// Scenario 6: a symbol conflict across two inlined modules is resolved
// deterministically.
func TestScenarioSymbolConflictAcrossModulesIsRenamed(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from a import helper as ah\nfrom b import helper as bh\nah()\nbh()\n"},
		"a":    {Path: "a.py", Text: "def helper():\n    return 1\n"},
		"b":    {Path: "b.py", Text: "def helper():\n    return 2\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if strings.Count(src, "def helper(") != 1 {
		t.Errorf("expected exactly one bare helper to keep its name, got:\n%s", src)
	}
	if !strings.Contains(src, "def helper__b():") {
		t.Errorf("expected b's helper renamed with a deterministic suffix, got:\n%s", src)
	}
}

// TestScenarioRenamedSymbolSelfReferenceIsRewritten covers a name that C8
// renamed being referenced elsewhere within its own owning module's body —
// not just at the colliding definition site. If only the definition were
// renamed, b's own call to its own helper would still read the bare (now
// wrong) name after a and b share one flat scope.
func TestScenarioRenamedSymbolSelfReferenceIsRewritten(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from a import helper as ah\nfrom b import twice as bt\nah()\nbt()\n"},
		"a":    {Path: "a.py", Text: "def helper():\n    return 1\n"},
		"b":    {Path: "b.py", Text: "def helper():\n    return 2\n\n\ndef twice():\n    return helper() + helper()\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if !strings.Contains(src, "def helper__b():") {
		t.Errorf("expected b's helper renamed with a deterministic suffix, got:\n%s", src)
	}
	if !strings.Contains(src, "return helper__b() + helper__b()") {
		t.Errorf("expected twice's own references to helper rewritten to the renamed spelling, got:\n%s", src)
	}
	if strings.Contains(src, "return helper() + helper()") {
		t.Errorf("expected no surviving bare self-reference to the renamed name, got:\n%s", src)
	}
}

// Determinism: running the same inputs twice produces byte-identical
// output, and permuting module_sources' insertion order (map iteration is
// already unordered in Go, but we additionally rebuild the map from
// scratch here) doesn't change it.
func TestBundleIsDeterministic(t *testing.T) {
	build := func() string {
		sources := map[string]bundler.ModuleSource{
			"main": {Path: "main.py", Text: "from util import add\nprint(add(1, 2))\n"},
			"util": {Path: "util.py", Text: "def add(a, b):\n    return a + b\n"},
		}
		res := mustBundle(t, "main", sources)
		return res.Bundle.Source
	}
	first := build()
	second := build()
	if first != second {
		t.Errorf("expected byte-identical output across runs:\n%s\n---\n%s", first, second)
	}
}

// Boundary: a single-file program with no first-party imports round-trips
// modulo deterministic stdlib import hoisting.
func TestSingleFileProgramRoundTrips(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "import os\nimport sys\n\nprint(os.getcwd())\nprint(sys.argv)\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if !strings.Contains(src, "import os") || !strings.Contains(src, "import sys") {
		t.Errorf("expected stdlib imports preserved, got:\n%s", src)
	}
	if !strings.Contains(src, "print(os.getcwd())") || !strings.Contains(src, "print(sys.argv)") {
		t.Errorf("expected entry body preserved, got:\n%s", src)
	}
}

// Boundary: an empty __all__ on a reachable module means nothing is
// re-exported via a star import; only explicitly imported names survive.
func TestEmptyDunderAllSuppressesStarExpansion(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from util import *\nfrom util import add\nprint(add(1, 2))\n"},
		"util": {Path: "util.py", Text: "__all__ = []\n\n\ndef add(a, b):\n    return a + b\n\n\ndef sub(a, b):\n    return a - b\n"},
	}
	res := mustBundle(t, "main", sources)
	src := res.Bundle.Source

	if strings.Contains(src, "def sub") {
		t.Errorf("expected sub to stay unreachable under an empty __all__, got:\n%s", src)
	}
	if !strings.Contains(src, "def add") {
		t.Errorf("expected add to survive via its explicit import, got:\n%s", src)
	}
}

func TestUnresolvedRelativeImportFails(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from .. import sibling\n"},
	}
	if _, err := bundler.Bundle("main", sources, cfg()); err == nil {
		t.Error("expected an error for a relative import escaping the source root")
	}
}

// StripTypeOnlyImports drops an import whose bound name is only ever
// referenced inside a type annotation.
func TestStripTypeOnlyImportsDropsAnnotationOnlyImport(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from typing import List\n\n\ndef handle(items: List):\n    print(items)\n"},
	}
	c := cfg()
	c.StripTypeOnlyImports = true
	res, err := bundler.Bundle("main", sources, c)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if strings.Contains(res.Bundle.Source, "import List") || strings.Contains(res.Bundle.Source, "from typing") {
		t.Errorf("expected the annotation-only typing import dropped, got:\n%s", res.Bundle.Source)
	}
	if !strings.Contains(res.Bundle.Source, "def handle(items: List):") {
		t.Errorf("expected the function definition itself preserved, got:\n%s", res.Bundle.Source)
	}
}

// StripTypeOnlyImports leaves an import alone when its name is used beyond
// annotation position.
func TestStripTypeOnlyImportsKeepsImportUsedElsewhere(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from typing import List\n\n\ndef handle(items: List):\n    print(List())\n"},
	}
	c := cfg()
	c.StripTypeOnlyImports = true
	res, err := bundler.Bundle("main", sources, c)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if !strings.Contains(res.Bundle.Source, "from typing import List") {
		t.Errorf("expected the still-used typing import kept, got:\n%s", res.Bundle.Source)
	}
}

// EmitDocstrings false strips module and function docstrings from the
// assembled bundle.
func TestEmitDocstringsFalseStripsDocstrings(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "\"\"\"module doc\"\"\"\n\n\ndef f():\n    \"\"\"fn doc\"\"\"\n    return 1\n\n\nprint(f())\n"},
	}
	c := cfg()
	c.EmitDocstrings = false
	res, err := bundler.Bundle("main", sources, c)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	if strings.Contains(res.Bundle.Source, "module doc") || strings.Contains(res.Bundle.Source, "fn doc") {
		t.Errorf("expected docstrings stripped, got:\n%s", res.Bundle.Source)
	}
	if !strings.Contains(res.Bundle.Source, "def f():") || !strings.Contains(res.Bundle.Source, "print(f())") {
		t.Errorf("expected the rest of the bundle preserved, got:\n%s", res.Bundle.Source)
	}
}

// EmitDocstrings true (the default) keeps docstrings intact.
func TestEmitDocstringsDefaultKeepsDocstrings(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "\"\"\"module doc\"\"\"\n\n\nprint(1)\n"},
	}
	res := mustBundle(t, "main", sources)
	if !strings.Contains(res.Bundle.Source, "module doc") {
		t.Errorf("expected the default to keep docstrings, got:\n%s", res.Bundle.Source)
	}
}

func TestUnresolvableModuleConstantsCycleFails(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "import a\nprint(a.X)\n"},
		"a":    {Path: "a.py", Text: "import b\nX = b.Y\n"},
		"b":    {Path: "b.py", Text: "import a\nY = a.X\n"},
	}
	if _, err := bundler.Bundle("main", sources, cfg()); err == nil {
		t.Error("expected an unresolvable module-constants cycle to fail bundling")
	}
}

// TestUnresolvableValueImportConstantsCycleFails mirrors
// TestUnresolvableModuleConstantsCycleFails but with `from ... import NAME`
// value bindings instead of whole-module imports — the offending reference
// is a bare name, not an attribute chain, so only import-binding-aware
// cycle detection catches it.
func TestUnresolvableValueImportConstantsCycleFails(t *testing.T) {
	sources := map[string]bundler.ModuleSource{
		"main": {Path: "main.py", Text: "from a import X\nprint(X)\n"},
		"a":    {Path: "a.py", Text: "from b import Y\nX = Y\n"},
		"b":    {Path: "b.py", Text: "from a import X\nY = X\n"},
	}
	if _, err := bundler.Bundle("main", sources, cfg()); err == nil {
		t.Error("expected an unresolvable value-import cycle to fail bundling")
	}
}
