// Package wrapper implements the Wrapper Emitter (C11): wraps a wrapper
// module's transformed body in a guarded init function implementing the
// `Unseen -> Declared -> Initializing -> Initialized` state machine.
//
// The namespace object itself, and the `initializing`/`initialized` flag
// variables, are declared as bundle-level globals by C12/C13 before any
// init function is defined or called — this package only emits the
// function body that reads and advances that state:
//
//   - if already Initialized, return the namespace immediately;
//   - if already Initializing (a FunctionLevel cycle called back in),
//     return the same, still-partial namespace object — this is the
//     invariant that makes function-level circular imports safe;
//   - otherwise flip to Initializing, run the module body (already
//     import-rewritten by C9 and tree-shaken by C6), recording every
//     top-level definition as a namespace attribute as it executes, then
//     flip to Initialized and return the namespace.
package wrapper

import (
	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
)

// NamespaceVar, InitializingVar, and InitializedVar name the bundle-level
// globals C12/C13 must scaffold for a given wrapper decision before its
// init function is defined. NamespaceVar is the module's classify-assigned
// NamespaceName itself, unprefixed — internal/importxform collapses every
// reference to a wrapper module (bare value imports, attribute chains,
// star-import expansions) straight to that identifier, so the object C12
// declares under it must share the exact same spelling.
func NamespaceVar(d classify.Decision) string    { return d.NamespaceName }
func InitializingVar(d classify.Decision) string { return "__initializing_" + d.NamespaceName }
func InitializedVar(d classify.Decision) string  { return "__initialized_" + d.NamespaceName }

// Emit builds the guarded init function for one wrapper module. body is
// the module's own statements after C9's import rewrite and C6's
// tree-shake have already run over it — this package only adds the guard
// scaffolding and the namespace attribute assignments around it.
func Emit(d classify.Decision, body []pyast.Stmt) *pyast.FunctionDef {
	ns := NamespaceVar(d)
	initializing := InitializingVar(d)
	initialized := InitializedVar(d)

	fnBody := []pyast.Stmt{
		&pyast.Global{Names: []string{initializing, initialized, ns}},
		&pyast.If{
			Cond: &pyast.Name{Id: initialized},
			Body: []pyast.Stmt{&pyast.Return{Value: &pyast.Name{Id: ns}}},
		},
		&pyast.If{
			Cond: &pyast.Name{Id: initializing},
			Body: []pyast.Stmt{&pyast.Return{Value: &pyast.Name{Id: ns}}},
		},
		assignBool(initializing, true),
	}

	for _, s := range body {
		fnBody = append(fnBody, s)
		for _, name := range modgraph.TopLevelDefines(s) {
			fnBody = append(fnBody, namespaceAttrAssign(ns, name))
		}
	}

	fnBody = append(fnBody,
		assignBool(initialized, true),
		assignBool(initializing, false),
		&pyast.Return{Value: &pyast.Name{Id: ns}},
	)

	return &pyast.FunctionDef{Name: d.InitFuncName, Body: fnBody}
}

func assignBool(name string, value bool) *pyast.Assign {
	literal := "False"
	if value {
		literal = "True"
	}
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Name{Id: name}},
		Value:   &pyast.Constant{Kind: pyast.ConstBool, Value: literal},
	}
}

func namespaceAttrAssign(ns, name string) *pyast.Assign {
	return &pyast.Assign{
		Targets: []pyast.Expr{&pyast.Attribute{Value: &pyast.Name{Id: ns}, Attr: name}},
		Value:   &pyast.Name{Id: name},
	}
}
