package treeshake

import (
	"testing"

	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/semindex"
	"github.com/pybundle/pybundle/internal/stdlib"
	"github.com/pybundle/pybundle/internal/sideeffect"
)

func buildIndexes(t *testing.T, g *modgraph.Graph) map[modgraph.ModuleID]*semindex.Index {
	t.Helper()
	out := map[modgraph.ModuleID]*semindex.Index{}
	for _, m := range g.Modules() {
		modgraph.BuildItems(m)
		sideeffect.Mark(m)
		idx, err := semindex.Build(m)
		if err != nil {
			t.Fatalf("semindex.Build(%s): %v", m.DottedName, err)
		}
		out[m.ID] = idx
	}
	return out
}

func TestUnusedValueIsShakenOut(t *testing.T) {
	g := modgraph.New()
	lib := g.AddModule("pkg.lib", "pkg/lib.py", modgraph.KindRegular, &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "used"},
		&pyast.FunctionDef{Name: "unused"},
	}})
	entry := g.AddModule("app", "app.py", modgraph.KindEntry, &pyast.Module{Body: []pyast.Stmt{
		&pyast.ImportFrom{Module: "pkg.lib", Names: []pyast.Alias{{Name: "used"}}},
		&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Name{Id: "used"}}},
	}})

	indexes := buildIndexes(t, g)
	records, errs := imports.New(g, stdlib.Py311).ClassifyAll()
	if len(errs) != 0 {
		t.Fatalf("ClassifyAll errors: %v", errs)
	}

	result := Shake(g, indexes, records, entry.ID)

	kept := map[string]bool{}
	for _, item := range result.KeptItems(lib) {
		for _, d := range item.Defines {
			kept[d] = true
		}
	}
	if !kept["used"] {
		t.Error("expected `used` to survive tree shaking")
	}
	if kept["unused"] {
		t.Error("expected `unused` to be shaken out")
	}
}

func TestModuleImportKeepsEntireTarget(t *testing.T) {
	g := modgraph.New()
	lib := g.AddModule("pkg.lib", "pkg/lib.py", modgraph.KindRegular, &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "a"},
		&pyast.FunctionDef{Name: "b"},
	}})
	entry := g.AddModule("app", "app.py", modgraph.KindEntry, &pyast.Module{Body: []pyast.Stmt{
		&pyast.Import{Names: []pyast.Alias{{Name: "pkg.lib"}}},
		&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Attribute{
			Value: &pyast.Name{Id: "pkg"}, Attr: "lib",
		}}},
	}})

	indexes := buildIndexes(t, g)
	records, errs := imports.New(g, stdlib.Py311).ClassifyAll()
	if len(errs) != 0 {
		t.Fatalf("ClassifyAll errors: %v", errs)
	}

	result := Shake(g, indexes, records, entry.ID)
	kept := result.KeptItems(lib)
	if len(kept) != 2 {
		t.Errorf("expected both of pkg.lib's items to be kept via whole-module import, got %d", len(kept))
	}
}

func TestExcludeItemsRemovesASurvivingItem(t *testing.T) {
	g := modgraph.New()
	lib := g.AddModule("pkg.lib", "pkg/lib.py", modgraph.KindRegular, &pyast.Module{Body: []pyast.Stmt{
		&pyast.FunctionDef{Name: "used"},
	}})
	entry := g.AddModule("app", "app.py", modgraph.KindEntry, &pyast.Module{Body: []pyast.Stmt{
		&pyast.ImportFrom{Module: "pkg.lib", Names: []pyast.Alias{{Name: "used"}}},
		&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Name{Id: "used"}}},
	}})

	indexes := buildIndexes(t, g)
	records, errs := imports.New(g, stdlib.Py311).ClassifyAll()
	if len(errs) != 0 {
		t.Fatalf("ClassifyAll errors: %v", errs)
	}

	result := Shake(g, indexes, records, entry.ID)
	var usedID modgraph.ItemID
	for _, item := range result.KeptItems(lib) {
		for _, d := range item.Defines {
			if d == "used" {
				usedID = item.ID
			}
		}
	}
	if !result.IsReachable(lib.ID, usedID) {
		t.Fatal("expected `used` reachable before exclusion")
	}

	result.ExcludeItems(lib.ID, map[modgraph.ItemID]bool{usedID: true})
	if result.IsReachable(lib.ID, usedID) {
		t.Error("expected `used` excluded after ExcludeItems")
	}
	if len(result.KeptItems(lib)) != 0 {
		t.Errorf("expected no items kept for pkg.lib after exclusion, got %d", len(result.KeptItems(lib)))
	}
}
