// Package sideeffect implements the Side-Effect Detector (C4): a
// conservative, static classification of which top-level items cannot be
// proven side-effect-free and must therefore survive tree shaking (C6)
// regardless of whether anything references the names they define.
//
// The detector never tries to prove an item IS side-effecting — it only
// tries to prove an item is NOT. Anything it can't clear is kept. This
// favors correctness (a bundle that behaves identically to the original
// program) over aggressive size reduction.
package sideeffect

import (
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
)

// Mark annotates every item of a module with its IsSideEffect verdict.
// Call after modgraph.BuildItems.
func Mark(m *modgraph.Module) {
	for _, item := range m.Items {
		item.IsSideEffect = classify(item.Stmt)
	}
}

// classify returns true when the statement cannot be proven side-effect
// free.
func classify(s pyast.Stmt) bool {
	switch st := s.(type) {
	case *pyast.Import, *pyast.ImportFrom:
		// Pure declarations as far as C4 is concerned; a first-party
		// import's own module body is analyzed independently, and a
		// stdlib/third-party import's side effects (if any) are the
		// cost of using that dependency at all, not something tree
		// shaking can avoid.
		return false

	case *pyast.FunctionDef:
		// Defining a function has no effect until called; decorators are
		// the one place a def statement can hide a side effect (e.g. a
		// registration decorator), so a decorated def is conservatively
		// kept.
		return hasDecorators(st)

	case *pyast.ClassDef:
		// Decorators are one source of a hidden side effect; a keyword
		// argument in the class header (`class C(metaclass=make_meta())`)
		// is another, since the header's keyword values are evaluated at
		// class-definition time, the same as a decorator call.
		if hasDecorators(st) {
			return true
		}
		for _, k := range st.Keywords {
			if exprHasSideEffect(k) {
				return true
			}
		}
		return false

	case *pyast.Assign:
		return exprHasSideEffect(st.Value)

	case *pyast.AnnAssign:
		if st.Value == nil {
			return false // bare annotation, e.g. `x: int`, binds nothing
		}
		return exprHasSideEffect(st.Value)

	case *pyast.AugAssign:
		// `x += 1` reads the current value of x, which can itself be
		// observable (e.g. via a property) — always kept.
		return true

	case *pyast.ExprStmt:
		return exprHasSideEffect(st.Value)

	case *pyast.Pass:
		return false

	case *pyast.Global, *pyast.Nonlocal:
		return false

	case *pyast.If, *pyast.For, *pyast.While, *pyast.With, *pyast.Try:
		// Tree shaking operates at item granularity; a conditional or
		// loop at module scope can bind names unconditionally needed
		// downstream and/or run with observable effects, so the whole
		// compound statement is kept rather than shaken branch by
		// branch.
		return true

	case *pyast.Return, *pyast.Raise, *pyast.Delete, *pyast.Break, *pyast.Continue:
		// Only legal inside a function/loop body, never as a genuine
		// module-level item in valid input; kept defensively.
		return true

	default:
		return true
	}
}

func hasDecorators(s pyast.Stmt) bool {
	switch st := s.(type) {
	case *pyast.FunctionDef:
		return len(st.Decorators) > 0
	case *pyast.ClassDef:
		return len(st.Decorators) > 0
	default:
		return false
	}
}

// exprHasSideEffect conservatively decides whether evaluating an
// expression can have an effect beyond producing its value. Any call is
// assumed impure unless proven otherwise is out of scope — the bundler
// doesn't do interprocedural purity analysis.
func exprHasSideEffect(e pyast.Expr) bool {
	if e == nil {
		return false
	}
	switch v := e.(type) {
	case *pyast.Constant, *pyast.Name:
		return false
	case *pyast.Call:
		return true
	case *pyast.List:
		return anyHasSideEffect(v.Elts)
	case *pyast.Tuple:
		return anyHasSideEffect(v.Elts)
	case *pyast.Set:
		return anyHasSideEffect(v.Elts)
	case *pyast.Dict:
		for _, k := range v.Keys {
			if exprHasSideEffect(k) {
				return true
			}
		}
		return anyHasSideEffect(v.Values)
	case *pyast.BinOp:
		return exprHasSideEffect(v.Left) || exprHasSideEffect(v.Right)
	case *pyast.BoolOp:
		return anyHasSideEffect(v.Values)
	case *pyast.UnaryOp:
		return exprHasSideEffect(v.Operand)
	case *pyast.Compare:
		if exprHasSideEffect(v.Left) {
			return true
		}
		return anyHasSideEffect(v.Comparators)
	case *pyast.Attribute:
		// Attribute access can trigger a descriptor/property; conservatively
		// kept only if the base expression is itself impure — plain dotted
		// name access (`os.path`) is treated as pure, matching how modules
		// are expected to reference constants from other modules.
		return exprHasSideEffect(v.Value)
	case *pyast.Subscript:
		return exprHasSideEffect(v.Value)
	case *pyast.Starred:
		return exprHasSideEffect(v.Value)
	case *pyast.Lambda:
		return false // a lambda's body doesn't run at definition time
	case *pyast.JoinedStr:
		return anyHasSideEffect(v.Values)
	default:
		return true
	}
}

func anyHasSideEffect(es []pyast.Expr) bool {
	for _, e := range es {
		if exprHasSideEffect(e) {
			return true
		}
	}
	return false
}
