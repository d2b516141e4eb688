package sideeffect

import (
	"testing"

	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
)

func moduleWith(body []pyast.Stmt) *modgraph.Module {
	g := modgraph.New()
	m := g.AddModule("pkg.mod", "pkg/mod.py", modgraph.KindRegular, &pyast.Module{Body: body})
	modgraph.BuildItems(m)
	return m
}

func TestPlainDefIsNotSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{&pyast.FunctionDef{Name: "f"}})
	Mark(m)
	if m.Items[0].IsSideEffect {
		t.Error("expected a plain def to be side-effect free")
	}
}

func TestDecoratedDefIsSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.FunctionDef{Name: "f", Decorators: []pyast.Expr{&pyast.Name{Id: "register"}}},
	})
	Mark(m)
	if !m.Items[0].IsSideEffect {
		t.Error("expected a decorated def to be kept conservatively")
	}
}

func TestConstantAssignIsNotSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{Id: "X"}},
			Value:   &pyast.Constant{Kind: pyast.ConstInt, Value: "1"},
		},
	})
	Mark(m)
	if m.Items[0].IsSideEffect {
		t.Error("expected a literal assignment to be side-effect free")
	}
}

func TestCallAssignIsSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{Id: "X"}},
			Value:   &pyast.Call{Func: &pyast.Name{Id: "compute"}},
		},
	})
	Mark(m)
	if !m.Items[0].IsSideEffect {
		t.Error("expected a call-valued assignment to be kept")
	}
}

func TestBareExprCallIsSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Name{Id: "print"}}},
	})
	Mark(m)
	if !m.Items[0].IsSideEffect {
		t.Error("expected a bare call statement to be kept")
	}
}

func TestPlainClassIsNotSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{&pyast.ClassDef{Name: "C"}})
	Mark(m)
	if m.Items[0].IsSideEffect {
		t.Error("expected a plain class def to be side-effect free")
	}
}

func TestClassWithMetaclassCallIsSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.ClassDef{Name: "C", Keywords: []pyast.Expr{
			&pyast.Call{Func: &pyast.Name{Id: "make_meta"}},
		}},
	})
	Mark(m)
	if !m.Items[0].IsSideEffect {
		t.Error("expected a class with an impure metaclass keyword to be kept")
	}
}

func TestClassWithConstantKeywordIsNotSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.ClassDef{Name: "C", Keywords: []pyast.Expr{
			&pyast.Name{Id: "RegularMeta"},
		}},
	})
	Mark(m)
	if m.Items[0].IsSideEffect {
		t.Error("expected a class whose keyword is a plain name reference to be side-effect free")
	}
}

func TestModuleLevelIfIsSideEffecting(t *testing.T) {
	m := moduleWith([]pyast.Stmt{
		&pyast.If{Cond: &pyast.Name{Id: "DEBUG"}, Body: []pyast.Stmt{&pyast.Pass{}}},
	})
	Mark(m)
	if !m.Items[0].IsSideEffect {
		t.Error("expected a module-level if statement to be kept")
	}
}
