package inline

import (
	"testing"

	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/rename"
	"github.com/pybundle/pybundle/internal/sideeffect"
	"github.com/pybundle/pybundle/internal/treeshake"
)

type passthroughTransformer struct{}

func (passthroughTransformer) Transform(mod *modgraph.Module, records []imports.Record, keep func(modgraph.ItemID) bool) []pyast.Stmt {
	var out []pyast.Stmt
	for _, item := range mod.Items {
		if keep != nil && !keep(item.ID) {
			continue
		}
		out = append(out, item.Stmt)
	}
	return out
}

func TestInlineSkipsShakenItemsAndAppliesDefinitionRename(t *testing.T) {
	g := modgraph.New()
	fn := &pyast.FunctionDef{Name: "helper"}
	dead := &pyast.FunctionDef{Name: "unused"}
	m := g.AddModule("pkg.lib", "pkg/lib.py", modgraph.KindRegular, &pyast.Module{Body: []pyast.Stmt{fn, dead}})
	modgraph.BuildItems(m)
	sideeffect.Mark(m)

	result := treeshake.NewResultForTest(map[modgraph.ModuleID]map[modgraph.ItemID]bool{
		m.ID: {m.Items[0].ID: true, m.Items[1].ID: false},
	})

	renames := rename.Map{m.ID: {"helper": "helper__pkg_lib"}}
	out := Inline(m, passthroughTransformer{}, nil, result, renames)

	if len(out) != 1 {
		t.Fatalf("expected dead item to be skipped, got %d statements", len(out))
	}
	got, ok := out[0].(*pyast.FunctionDef)
	if !ok || got.Name != "helper__pkg_lib" {
		t.Errorf("expected definition site renamed to helper__pkg_lib, got %#v", out[0])
	}
}

func TestInlineLeavesUnrenamedDefinitionsAlone(t *testing.T) {
	g := modgraph.New()
	fn := &pyast.FunctionDef{Name: "only_here"}
	m := g.AddModule("pkg.a", "pkg/a.py", modgraph.KindRegular, &pyast.Module{Body: []pyast.Stmt{fn}})
	modgraph.BuildItems(m)
	sideeffect.Mark(m)

	result := treeshake.NewResultForTest(map[modgraph.ModuleID]map[modgraph.ItemID]bool{
		m.ID: {m.Items[0].ID: true},
	})

	out := Inline(m, passthroughTransformer{}, nil, result, rename.Map{})
	got := out[0].(*pyast.FunctionDef)
	if got.Name != "only_here" {
		t.Errorf("expected name unchanged, got %q", got.Name)
	}
}
