package rename

import (
	"testing"

	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/semindex"
)

func inlinedModule(t *testing.T, g *modgraph.Graph, dotted string, body []pyast.Stmt) (*modgraph.Module, *semindex.Index) {
	t.Helper()
	m := g.AddModule(dotted, dotted+".py", modgraph.KindRegular, &pyast.Module{Body: body})
	modgraph.BuildItems(m)
	idx, err := semindex.Build(m)
	if err != nil {
		t.Fatalf("semindex.Build: %v", err)
	}
	return m, idx
}

func TestUniqueNameKeepsBareSpelling(t *testing.T) {
	g := modgraph.New()
	a, idxA := inlinedModule(t, g, "pkg.a", []pyast.Stmt{&pyast.FunctionDef{Name: "only_here"}})
	indexes := map[modgraph.ModuleID]*semindex.Index{a.ID: idxA}
	decisions := []classify.Decision{{Module: a.ID, Role: classify.Inlinable}}

	m, err := Rename(g, indexes, decisions)
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := m.Apply(a.ID, "only_here"); got != "only_here" {
		t.Errorf("Apply = %q, want unchanged", got)
	}
}

// TestCollidingNameWinnerKeepsBareSpelling covers spec.md §4.8 and scenario
// 6: the module earliest in topo order keeps the bare name; the other
// owner is renamed with a deterministic suffix.
func TestCollidingNameWinnerKeepsBareSpelling(t *testing.T) {
	g := modgraph.New()
	a, idxA := inlinedModule(t, g, "pkg.a", []pyast.Stmt{&pyast.FunctionDef{Name: "helper"}})
	b, idxB := inlinedModule(t, g, "pkg.b", []pyast.Stmt{&pyast.FunctionDef{Name: "helper"}})
	indexes := map[modgraph.ModuleID]*semindex.Index{a.ID: idxA, b.ID: idxB}
	decisions := []classify.Decision{
		{Module: a.ID, Role: classify.Inlinable},
		{Module: b.ID, Role: classify.Inlinable},
	}

	m, err := Rename(g, indexes, decisions)
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	// Neither module imports the other, so both are their own trivial SCC;
	// TopoOrder ranks them ModuleID-ascending, making pkg.a (added first)
	// the winner.
	renamedA := m.Apply(a.ID, "helper")
	renamedB := m.Apply(b.ID, "helper")
	if renamedA != "helper" {
		t.Errorf("renamedA = %q, want winner to keep bare spelling \"helper\"", renamedA)
	}
	if renamedB != "helper__pkg_b" {
		t.Errorf("renamedB = %q, want helper__pkg_b", renamedB)
	}
}

func TestWrapperModuleIsNeverRenamed(t *testing.T) {
	g := modgraph.New()
	a, idxA := inlinedModule(t, g, "pkg.a", []pyast.Stmt{&pyast.FunctionDef{Name: "helper"}})
	indexes := map[modgraph.ModuleID]*semindex.Index{a.ID: idxA}
	decisions := []classify.Decision{{Module: a.ID, Role: classify.Wrapper}}

	m, err := Rename(g, indexes, decisions)
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if got := m.Apply(a.ID, "helper"); got != "helper" {
		t.Errorf("Apply = %q, want unchanged for a wrapper module", got)
	}
}
