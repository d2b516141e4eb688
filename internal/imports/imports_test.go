package imports

import (
	"testing"

	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/stdlib"
)

func buildGraph(t *testing.T, modules map[string][]pyast.Stmt, pkgs map[string]bool) *modgraph.Graph {
	t.Helper()
	g := modgraph.New()
	for name, body := range modules {
		kind := modgraph.KindRegular
		if pkgs[name] {
			kind = modgraph.KindPackage
		}
		m := g.AddModule(name, name+".py", kind, &pyast.Module{Body: body})
		modgraph.BuildItems(m)
	}
	return g
}

func TestClassifyImportStdlib(t *testing.T) {
	g := buildGraph(t, map[string][]pyast.Stmt{
		"main": {&pyast.Import{Names: []pyast.Alias{{Name: "os"}}}},
	}, nil)
	records, errs := New(g, stdlib.Py311).ClassifyAll()
	if len(errs) > 0 {
		t.Fatalf("ClassifyAll: %v", errs[0])
	}
	if len(records) != 1 || records[0].Origin != OriginStdlib {
		t.Fatalf("records = %+v, want one stdlib record", records)
	}
}

func TestClassifyImportThirdParty(t *testing.T) {
	g := buildGraph(t, map[string][]pyast.Stmt{
		"main": {&pyast.Import{Names: []pyast.Alias{{Name: "requests"}}}},
	}, nil)
	records, errs := New(g, stdlib.Py311).ClassifyAll()
	if len(errs) > 0 {
		t.Fatalf("ClassifyAll: %v", errs[0])
	}
	if len(records) != 1 || records[0].Origin != OriginThirdParty {
		t.Fatalf("records = %+v, want one third-party record", records)
	}
}

func TestClassifyImportFromSplitsModuleAndValue(t *testing.T) {
	g := buildGraph(t, map[string][]pyast.Stmt{
		"main":    {&pyast.ImportFrom{Module: "pkg", Names: []pyast.Alias{{Name: "sub"}, {Name: "value"}}}},
		"pkg":     {},
		"pkg.sub": {},
	}, map[string]bool{"pkg": true})
	records, errs := New(g, stdlib.Py311).ClassifyAll()
	if len(errs) > 0 {
		t.Fatalf("ClassifyAll: %v", errs[0])
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v, want 2 (one module, one value)", records)
	}
	var sawModule, sawValue bool
	for _, r := range records {
		switch r.Kind {
		case ModuleImport:
			sawModule = true
			if r.Target != "pkg.sub" {
				t.Errorf("module record Target = %q, want pkg.sub", r.Target)
			}
		case ValueImport:
			sawValue = true
			if r.Target != "pkg" {
				t.Errorf("value record Target = %q, want pkg", r.Target)
			}
		}
	}
	if !sawModule || !sawValue {
		t.Errorf("expected both a module and a value record, got %+v", records)
	}
}

func TestClassifyImportFromModuleValueAmbiguityIsRejected(t *testing.T) {
	g := buildGraph(t, map[string][]pyast.Stmt{
		"main": {&pyast.ImportFrom{Module: "pkg", Names: []pyast.Alias{{Name: "sub"}}}},
		"pkg": {&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{Id: "sub"}},
			Value:   &pyast.Constant{Kind: pyast.ConstInt, Value: "1"},
		}},
		"pkg.sub": {},
	}, map[string]bool{"pkg": true})

	_, errs := New(g, stdlib.Py311).ClassifyAll()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one classification error, got %d: %v", len(errs), errs)
	}
	rep, ok := errors.AsReport(errs[0])
	if !ok {
		t.Fatalf("error is not a *Report: %v", errs[0])
	}
	if rep.Code != errors.IMP003 {
		t.Errorf("Code = %q, want IMP003", rep.Code)
	}
}

func TestClassifyImportFromSubmoduleImportOnItsOwnIsNotAmbiguous(t *testing.T) {
	// pkg's own __init__.py explicitly re-exports its submodule via
	// `from . import sub` — the same name bound twice by import statements
	// pointing at the same submodule is not the IMP003 case, since there's
	// no competing non-import value binding.
	g := buildGraph(t, map[string][]pyast.Stmt{
		"main": {&pyast.ImportFrom{Module: "pkg", Names: []pyast.Alias{{Name: "sub"}}}},
		"pkg": {&pyast.ImportFrom{Dots: 1, Names: []pyast.Alias{{Name: "sub"}}}},
		"pkg.sub": {},
	}, map[string]bool{"pkg": true})

	_, errs := New(g, stdlib.Py311).ClassifyAll()
	if len(errs) > 0 {
		t.Fatalf("ClassifyAll: %v", errs[0])
	}
}

func TestUnresolvedRelativeImportReportsIMP001(t *testing.T) {
	g := buildGraph(t, map[string][]pyast.Stmt{
		"main": {&pyast.ImportFrom{Dots: 3, Module: "missing", Names: []pyast.Alias{{Name: "x"}}}},
	}, nil)
	_, errs := New(g, stdlib.Py311).ClassifyAll()
	if len(errs) != 1 {
		t.Fatalf("expected exactly one classification error, got %d", len(errs))
	}
	rep, ok := errors.AsReport(errs[0])
	if !ok {
		t.Fatalf("error is not a *Report: %v", errs[0])
	}
	if rep.Code != errors.IMP001 {
		t.Errorf("Code = %q, want IMP001", rep.Code)
	}
}

func TestThirdPartyTopLevelsDedupesAndSorts(t *testing.T) {
	records := []Record{
		{Origin: OriginThirdParty, Target: "requests.auth"},
		{Origin: OriginThirdParty, Target: "requests"},
		{Origin: OriginThirdParty, Target: "yaml"},
		{Origin: OriginStdlib, Target: "os"},
	}
	got := ThirdPartyTopLevels(records)
	want := []string{"requests", "yaml"}
	if len(got) != len(want) {
		t.Fatalf("got = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
