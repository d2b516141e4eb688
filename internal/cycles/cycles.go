// Package cycles implements the Circular-Dependency Analyzer: for
// every multi-module SCC in the module graph it decides how "dangerous"
// the cycle is by classifying where the cross-module references that
// close the cycle actually occur, in order of increasing severity:
//
//   - FunctionLevel — every cross-module reference inside the cycle is
//     inside a function body. By the time any such function is called,
//     every module in the cycle has finished running its top-level code,
//     so the cycle is harmless: normal wrapper-init-on-demand semantics
//     resolve it without special handling.
//   - ClassLevel — a reference occurs directly in a class body (a base
//     class expression, a class attribute default, a decorator). This
//     executes at class-definition time, which is still "module import
//     time" from the other module's perspective, but is resolvable as
//     long as the defining modules are wrapper-initialized in an order
//     that makes the referenced name available first.
//   - ImportTime — a reference occurs in ordinary top-level code (outside
//     any def/class) that isn't itself a constant binding. Resolvable
//     only by wrapper modules with careful init ordering; the wrapper
//     emitter must emit guarded initializer calls rather than relying on
//     static ordering.
//   - ModuleConstants — a top-level constant binding in one module's body
//     depends, directly or through the SCC, on a top-level constant
//     binding in another module of the same SCC. Neither side can be
//     computed first: this is a genuine circular value dependency and is
//     fatal (an unresolvable cycle, reported as CYC001).
package cycles

import (
	"fmt"
	"sort"

	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/schema"
)

// Level is the severity classification of one SCC.
type Level int

const (
	NoCycle Level = iota
	FunctionLevel
	ClassLevel
	ImportTime
	ModuleConstants
)

func (l Level) String() string {
	switch l {
	case NoCycle:
		return "none"
	case FunctionLevel:
		return "function-level"
	case ClassLevel:
		return "class-level"
	case ImportTime:
		return "import-time"
	case ModuleConstants:
		return "module-constants"
	default:
		return "unknown"
	}
}

// Classification is the analyzer's verdict for one SCC.
type Classification struct {
	SCC   modgraph.SCC
	Level Level
}

// moduleBindings maps, per owning module, a locally bound name to the
// first-party module it was imported from — built from C2's records rather
// than re-deriving import semantics here. It's the table referencesCycleModule
// consults to resolve both `import pkg.b` (DirectModule) and
// `from pkg.b import X` (value import) styles uniformly; a name-based
// heuristic over the AST alone can't tell the two apart.
type moduleBindings map[modgraph.ModuleID]map[string]modgraph.ModuleID

func buildModuleBindings(records []imports.Record) moduleBindings {
	out := moduleBindings{}
	for _, r := range records {
		if !r.HasResolved {
			continue
		}
		owner := out[r.Owner]
		if owner == nil {
			owner = map[string]modgraph.ModuleID{}
			out[r.Owner] = owner
		}
		for _, b := range r.Bindings {
			owner[b.LocalName] = r.Resolved
		}
	}
	return out
}

// Analyze classifies every SCC with more than one member. Single-module
// SCCs (the common case) are skipped entirely — a module cannot cyclically
// depend on itself through an import edge. On encountering a
// ModuleConstants cycle it returns CYC001 immediately, since such a cycle
// makes no ordering of the surviving bundle statements correct. records
// must be C2's classification of every import in g, so that cross-module
// references can be resolved through actual import bindings (including
// `from b import X` value imports) rather than matched by name.
func Analyze(g *modgraph.Graph, records []imports.Record) ([]Classification, error) {
	bindings := buildModuleBindings(records)
	var out []Classification
	for _, scc := range g.SCCs() {
		if len(scc.Members) < 2 {
			continue
		}
		level, offender := classifySCC(g, scc, bindings)
		if level == ModuleConstants {
			return nil, fatalCycle(g, scc, offender)
		}
		out = append(out, Classification{SCC: scc, Level: level})
	}
	return out, nil
}

func classifySCC(g *modgraph.Graph, scc modgraph.SCC, bindings moduleBindings) (Level, string) {
	members := map[modgraph.ModuleID]bool{}
	for _, id := range scc.Members {
		members[id] = true
	}

	level := NoCycle
	offender := ""
	bump := func(l Level, desc string) {
		if l > level {
			level = l
			offender = desc
		}
	}

	for _, id := range scc.Members {
		m := g.ModuleByID(id)
		for _, item := range m.Items {
			refLevel := scanItem(item.Stmt, members, g, id, bindings[id], scanTop)
			switch refLevel {
			case refModuleConstant:
				bump(ModuleConstants, fmt.Sprintf("%s: %s", m.DottedName, describe(item.Stmt)))
			case refImportTime:
				bump(ImportTime, fmt.Sprintf("%s: %s", m.DottedName, describe(item.Stmt)))
			case refClassLevel:
				bump(ClassLevel, fmt.Sprintf("%s: %s", m.DottedName, describe(item.Stmt)))
			case refFunctionLevel:
				bump(FunctionLevel, fmt.Sprintf("%s: %s", m.DottedName, describe(item.Stmt)))
			}
		}
	}
	return level, offender
}

type refKind int

const (
	refNone refKind = iota
	refFunctionLevel
	refClassLevel
	refImportTime
	refModuleConstant
)

type scanContext int

const (
	scanTop scanContext = iota
	scanClassBody
	scanFunctionBody
)

// scanItem walks one top-level item and reports the worst reference kind
// it finds to a name from another module in the same SCC. A plain
// top-level Assign/AnnAssign whose value directly names a cross-cycle
// module attribute is the ModuleConstants case; any other top-level
// reference is ImportTime; references nested in a class body are
// ClassLevel; references nested only in function bodies are
// FunctionLevel.
func scanItem(s pyast.Stmt, members map[modgraph.ModuleID]bool, g *modgraph.Graph, self modgraph.ModuleID, bindings map[string]modgraph.ModuleID, ctx scanContext) refKind {
	switch st := s.(type) {
	case *pyast.FunctionDef:
		worst := refNone
		for _, d := range st.Decorators {
			worst = maxRef(worst, scanExpr(d, members, g, self, bindings, ctx))
		}
		for _, body := range st.Body {
			worst = maxRef(worst, scanItem(body, members, g, self, bindings, scanFunctionBody))
		}
		if worst == refNone {
			return refNone
		}
		if ctx == scanFunctionBody || worst == refFunctionLevel {
			return refFunctionLevel
		}
		return downgradeToContext(worst, ctx)

	case *pyast.ClassDef:
		worst := refNone
		for _, b := range st.Bases {
			worst = maxRef(worst, scanExpr(b, members, g, self, bindings, scanClassBody))
		}
		for _, k := range st.Keywords {
			worst = maxRef(worst, scanExpr(k, members, g, self, bindings, scanClassBody))
		}
		for _, body := range st.Body {
			worst = maxRef(worst, scanItem(body, members, g, self, bindings, scanClassBody))
		}
		return worst

	case *pyast.Assign:
		if ctx == scanTop && isCrossModuleConstantRef(st.Value, members, g, self, bindings) {
			return refModuleConstant
		}
		return maxRef(refForContext(ctx), scanExpr(st.Value, members, g, self, bindings, ctx))

	case *pyast.AnnAssign:
		if st.Value == nil {
			return refNone
		}
		if ctx == scanTop && isCrossModuleConstantRef(st.Value, members, g, self, bindings) {
			return refModuleConstant
		}
		return maxRef(refForContext(ctx), scanExpr(st.Value, members, g, self, bindings, ctx))

	default:
		worst := refNone
		pyast.Inspect([]pyast.Stmt{s}, func(n pyast.Node) bool {
			if e, ok := n.(pyast.Expr); ok {
				worst = maxRef(worst, scanExpr(e, members, g, self, bindings, ctx))
			}
			return true
		})
		return worst
	}
}

func refForContext(ctx scanContext) refKind {
	switch ctx {
	case scanFunctionBody:
		return refFunctionLevel
	case scanClassBody:
		return refClassLevel
	default:
		return refNone
	}
}

func downgradeToContext(k refKind, ctx scanContext) refKind {
	if ctx == scanFunctionBody {
		return refFunctionLevel
	}
	return k
}

func maxRef(a, b refKind) refKind {
	if b > a {
		return b
	}
	return a
}

// scanExpr looks for Attribute chains or bare names rooted at a binding
// imported from a cross-cycle module. Anything it finds is reported at the
// severity implied by the current context.
func scanExpr(e pyast.Expr, members map[modgraph.ModuleID]bool, g *modgraph.Graph, self modgraph.ModuleID, bindings map[string]modgraph.ModuleID, ctx scanContext) refKind {
	found := refNone
	var walk func(pyast.Expr)
	walk = func(x pyast.Expr) {
		if x == nil {
			return
		}
		if referencesCycleModule(x, members, g, self, bindings) {
			found = maxRef(found, refForContext(ctx))
			if ctx == scanTop {
				found = maxRef(found, refImportTime)
			}
		}
		switch v := x.(type) {
		case *pyast.Attribute:
			walk(v.Value)
		case *pyast.Call:
			walk(v.Func)
			for _, a := range v.Args {
				walk(a)
			}
		case *pyast.BinOp:
			walk(v.Left)
			walk(v.Right)
		case *pyast.BoolOp:
			for _, val := range v.Values {
				walk(val)
			}
		}
	}
	walk(e)
	return found
}

func isCrossModuleConstantRef(e pyast.Expr, members map[modgraph.ModuleID]bool, g *modgraph.Graph, self modgraph.ModuleID, bindings map[string]modgraph.ModuleID) bool {
	return referencesCycleModule(e, members, g, self, bindings)
}

// referencesCycleModule reports whether expression e is (or is rooted in) a
// reference to a binding imported, directly or by value, from a module
// within the same SCC other than self. bindings is C2's record of every
// name self's module imports, resolved to its source module — this covers
// both `import pkg.b; pkg.b.NAME` (DirectModule/attribute-chain) and
// `from pkg.b import NAME; NAME` (value import, bare name) uniformly,
// since both bind a local name to a Resolved module in exactly the same
// table. Falls back to matching the dotted module name itself (or its last
// path component) for the case where self imports the cycle module under
// no local binding C2 tracked — e.g. a bare `import pkg.b` where only the
// outer package is bound but `pkg.b.NAME` is still written out in full.
func referencesCycleModule(e pyast.Expr, members map[modgraph.ModuleID]bool, g *modgraph.Graph, self modgraph.ModuleID, bindings map[string]modgraph.ModuleID) bool {
	name, ok := e.(*pyast.Name)
	if !ok {
		if attr, ok := e.(*pyast.Attribute); ok {
			return referencesCycleModule(attr.Value, members, g, self, bindings)
		}
		return false
	}
	if target, ok := bindings[name.Id]; ok && target != self && members[target] {
		return true
	}
	for id := range members {
		if id == self {
			continue
		}
		mod := g.ModuleByID(id)
		if mod.DottedName == name.Id || lastComponent(mod.DottedName) == name.Id {
			return true
		}
	}
	return false
}

func lastComponent(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			return dotted[i+1:]
		}
	}
	return dotted
}

func describe(s pyast.Stmt) string {
	switch st := s.(type) {
	case *pyast.FunctionDef:
		return fmt.Sprintf("def %s", st.Name)
	case *pyast.ClassDef:
		return fmt.Sprintf("class %s", st.Name)
	case *pyast.Assign:
		return "top-level assignment"
	default:
		return "top-level statement"
	}
}

func fatalCycle(g *modgraph.Graph, scc modgraph.SCC, offender string) error {
	var names []string
	for _, id := range scc.Members {
		names = append(names, g.ModuleByID(id).DottedName)
	}
	sort.Strings(names)
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.CYC001,
		Phase:   "cycles",
		Message: fmt.Sprintf("unresolvable circular dependency among %v: %s depends on a module-level constant that cannot be computed before its own module finishes initializing", names, offender),
		Data: map[string]any{
			"cycle_members": names,
		},
	})
}
