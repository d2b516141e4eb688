package semindex

import (
	"testing"

	"github.com/pybundle/pybundle/internal/pyast"
)

func TestAnnotationOnlyNamesReportsPureAnnotationUse(t *testing.T) {
	body := []pyast.Stmt{
		&pyast.FunctionDef{
			Name: "handle",
			Params: []pyast.Param{
				{Name: "req", Annotation: &pyast.Name{Id: "Request"}},
			},
			Body: []pyast.Stmt{
				&pyast.ExprStmt{Value: &pyast.Call{Func: &pyast.Name{Id: "print"}, Args: []pyast.Expr{&pyast.Name{Id: "req"}}}},
			},
		},
	}
	only := AnnotationOnlyNames(body)
	if !only["Request"] {
		t.Errorf("expected Request to be annotation-only, got %v", only)
	}
	if only["req"] {
		t.Errorf("req is used in the body, should not be annotation-only, got %v", only)
	}
}

func TestAnnotationOnlyNamesExcludesNamesAlsoUsedElsewhere(t *testing.T) {
	body := []pyast.Stmt{
		&pyast.AnnAssign{
			Target:     &pyast.Name{Id: "x"},
			Annotation: &pyast.Name{Id: "Config"},
		},
		&pyast.Assign{
			Targets: []pyast.Expr{&pyast.Name{Id: "y"}},
			Value:   &pyast.Call{Func: &pyast.Name{Id: "Config"}},
		},
	}
	only := AnnotationOnlyNames(body)
	if only["Config"] {
		t.Errorf("Config is also called elsewhere, should not be annotation-only, got %v", only)
	}
}

func TestAnnotationOnlyNamesChecksDefaultsAndDecorators(t *testing.T) {
	body := []pyast.Stmt{
		&pyast.FunctionDef{
			Name:       "f",
			Decorators: []pyast.Expr{&pyast.Name{Id: "decorator"}},
			Params: []pyast.Param{
				{Name: "opt", Annotation: &pyast.Name{Id: "Opt"}, Default: &pyast.Name{Id: "default_factory"}},
			},
		},
	}
	only := AnnotationOnlyNames(body)
	if only["decorator"] {
		t.Errorf("decorator is used as a decorator, not annotation-only, got %v", only)
	}
	if only["default_factory"] {
		t.Errorf("default_factory is used as a default value, not annotation-only, got %v", only)
	}
	if !only["Opt"] {
		t.Errorf("expected Opt to be annotation-only, got %v", only)
	}
}

func TestAnnotationOnlyNamesRecursesIntoNestedBodies(t *testing.T) {
	body := []pyast.Stmt{
		&pyast.If{
			Cond: &pyast.Constant{Kind: pyast.ConstInt, Value: "1"},
			Body: []pyast.Stmt{
				&pyast.FunctionDef{
					Name: "inner",
					Params: []pyast.Param{
						{Name: "v", Annotation: &pyast.Name{Id: "Value"}},
					},
				},
			},
		},
	}
	only := AnnotationOnlyNames(body)
	if !only["Value"] {
		t.Errorf("expected Value from nested FunctionDef to be annotation-only, got %v", only)
	}
}
