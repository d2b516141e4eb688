// Package assemble implements the Bundle Assembler (C13): the final pass
// that takes every earlier component's output — hoisted imports, C12's
// namespace scaffold, C11's wrapper init functions, C10's inlined module
// bodies, and the entry module's own transformed body — and orders them
// into the single flat statement sequence that is the finished bundle.
//
// The order is fixed and load-bearing:
//
//  1. Hoisted `__future__` imports, deduplicated, preserved verbatim.
//  2. Hoisted stdlib imports, deduplicated and sorted lexicographically by
//     their rendered source text, preceded by a synthesized `import types`
//     if C12's namespace scaffold needs it.
//  3. Namespace scaffolding: one `types.SimpleNamespace()` assignment (and
//     guard-flag initialization) per required dotted prefix.
//  4. Wrapper init function definitions, in dependency topological order.
//  5. Inlined module bodies, in dependency topological order.
//  6. Namespace parent/child attribute wiring, followed by an eager call
//     to every wrapper's init function — guaranteeing every namespace
//     object a later statement might reach through a collapsed attribute
//     chain (rather than through an explicit init call C9 inserted at an
//     import site) is already populated before anything in step 7 runs.
//  7. The entry module's own body, last and unconditionally.
package assemble

import (
	"fmt"
	"sort"

	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/errors"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/namespace"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/pyprint"
	"github.com/pybundle/pybundle/internal/schema"
)

// Input collects every precomputed piece C13 arranges. The orchestrator
// (internal/bundler) is responsible for running C1-C12 and populating
// this struct; Assemble itself performs no analysis of its own beyond
// ordering and the invariant checks described on Assemble.
type Input struct {
	Graph   *modgraph.Graph
	Entry   modgraph.ModuleID
	TopoOrder []modgraph.ModuleID

	Decisions map[modgraph.ModuleID]classify.Decision

	// HoistedFuture and HoistedStdlib are deduplicated import statements
	// already filtered down to those whose owning item survived tree
	// shaking; CollectHoistedImports computes these from C2's records.
	HoistedFuture []pyast.Stmt
	HoistedStdlib []pyast.Stmt

	Scaffold *namespace.Scaffold

	// WrapperInit holds C11's guarded init function for every module C7
	// classified Wrapper.
	WrapperInit map[modgraph.ModuleID]*pyast.FunctionDef

	// InlinedBody holds C10's flattened statement list for every module
	// C7 classified Inlinable.
	InlinedBody map[modgraph.ModuleID][]pyast.Stmt

	// EntryBody is the entry module's own statements, already run through
	// C9's import rewrite and C6's tree-shake the same way any other
	// module's body is (the entry module itself is never inlined into
	// anyone else's scope, nor wrapped, since nothing imports it).
	EntryBody []pyast.Stmt
}

// Bundle is C13's output: the finished flat statement sequence plus the
// rendered source text, via internal/pyprint, that internal/bundler hands
// back to its caller.
type Bundle struct {
	Stmts  []pyast.Stmt
	Source string
}

// Assemble runs C13 over in, returning the finished bundle or an ASM###
// invariant violation.
func Assemble(in Input) (*Bundle, error) {
	var out []pyast.Stmt

	out = append(out, in.HoistedFuture...)
	out = append(out, hoistedStdlibWithTypes(in)...)
	out = append(out, in.Scaffold.Declarations...)

	for _, id := range in.TopoOrder {
		d, ok := in.Decisions[id]
		if !ok || d.Role != classify.Wrapper || id == in.Entry {
			continue
		}
		fn, ok := in.WrapperInit[id]
		if !ok {
			return nil, missingWrapperInit(in.Graph, id)
		}
		out = append(out, fn)
	}

	for _, id := range in.TopoOrder {
		d, ok := in.Decisions[id]
		if !ok || d.Role != classify.Inlinable || id == in.Entry {
			continue
		}
		out = append(out, in.InlinedBody[id]...)
	}

	out = append(out, in.Scaffold.Wiring...)
	out = append(out, eagerInitCalls(in)...)

	out = append(out, in.EntryBody...)

	if err := checkDuplicateBindings(in, out); err != nil {
		return nil, err
	}

	return &Bundle{Stmts: out, Source: pyprint.Print(out)}, nil
}

// hoistedStdlibWithTypes prepends a synthesized `import types` to the
// hoisted stdlib section when C12's scaffold needs it and no discovered
// source already imports `types` verbatim.
func hoistedStdlibWithTypes(in Input) []pyast.Stmt {
	if !in.Scaffold.RequiresTypesImport {
		return in.HoistedStdlib
	}
	for _, s := range in.HoistedStdlib {
		if imp, ok := s.(*pyast.Import); ok {
			for _, a := range imp.Names {
				if a.Name == "types" {
					return in.HoistedStdlib
				}
			}
		}
	}
	synthetic := &pyast.Import{Names: []pyast.Alias{{Name: "types"}}}
	out := make([]pyast.Stmt, 0, len(in.HoistedStdlib)+1)
	out = append(out, synthetic)
	out = append(out, in.HoistedStdlib...)
	return out
}

// eagerInitCalls invokes every wrapper module's guarded init function once,
// in topological order, after namespace wiring has run. This is belt and
// suspenders against the case where a `ModuleImport`'s attribute chain
// collapsed straight to a namespace variable (C9's tryCollapseChain) with
// no surviving init-call statement of its own to trigger population.
func eagerInitCalls(in Input) []pyast.Stmt {
	var out []pyast.Stmt
	for _, id := range in.TopoOrder {
		d, ok := in.Decisions[id]
		if !ok || d.Role != classify.Wrapper || id == in.Entry {
			continue
		}
		out = append(out, &pyast.ExprStmt{
			Value: &pyast.Call{Func: &pyast.Name{Id: d.InitFuncName}},
		})
	}
	return out
}

// checkDuplicateBindings is C13's ASM002 invariant: after C8's renaming,
// no two surviving top-level bindings in the final flat scope may share a
// name. Wrapper module bodies live in their own function scope and are
// exempt. The names checked are the wrapper init function names and the
// top-level definitions of inlined module bodies; the entry body and the
// namespace scaffold's own variables are not checked.
func checkDuplicateBindings(in Input, flatScope []pyast.Stmt) error {
	seen := map[string]bool{}
	for _, id := range in.TopoOrder {
		d, ok := in.Decisions[id]
		if !ok {
			continue
		}
		if d.Role == classify.Wrapper {
			if dup := reserve(seen, d.InitFuncName); dup {
				return duplicateBinding(in.Graph, id, d.InitFuncName)
			}
			continue
		}
		if id == in.Entry {
			continue
		}
		for _, s := range in.InlinedBody[id] {
			for _, name := range modgraph.TopLevelDefines(s) {
				if dup := reserve(seen, name); dup {
					return duplicateBinding(in.Graph, id, name)
				}
			}
		}
	}
	for varName := range in.Scaffold.VarFor {
		_ = varName // namespace vars are independently collision-free (internal/namespace's own namer), nothing to cross-check here
	}
	return nil
}

func reserve(seen map[string]bool, name string) bool {
	if seen[name] {
		return true
	}
	seen[name] = true
	return false
}

func missingWrapperInit(g *modgraph.Graph, id modgraph.ModuleID) error {
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.ASM001,
		Phase:   "assemble",
		Message: fmt.Sprintf("module %q was classified as a wrapper but no init function was emitted for it", g.ModuleByID(id).DottedName),
	})
}

func duplicateBinding(g *modgraph.Graph, id modgraph.ModuleID, name string) error {
	return errors.WrapReport(&errors.Report{
		Schema:  schema.ErrorV1,
		Code:    errors.ASM002,
		Phase:   "assemble",
		Message: fmt.Sprintf("module %q contributes binding %q, which collides with an earlier binding of the same name already reserved in the final flat scope", g.ModuleByID(id).DottedName, name),
		Data:    map[string]any{"offending_ref": name},
	})
}

// CollectHoistedImports walks every surviving import record (Owner's item
// must still be reachable per keep) and returns the deduplicated future
// and plain-stdlib import statements C13 hoists, each list sorted by its
// own rendered source text for determinism.
func CollectHoistedImports(records []imports.Record, itemOf map[pyast.Stmt]modgraph.ItemID, keep func(modgraph.ModuleID, modgraph.ItemID) bool) (future []pyast.Stmt, stdlib []pyast.Stmt) {
	futureSeen := map[string]pyast.Stmt{}
	stdlibSeen := map[string]pyast.Stmt{}
	for _, rec := range records {
		if rec.Origin != imports.OriginStdlib {
			continue
		}
		if itemID, ok := itemOf[rec.Stmt]; ok && !keep(rec.Owner, itemID) {
			continue
		}
		text := pyprint.Print([]pyast.Stmt{rec.Stmt})
		if isFutureImport(rec) {
			futureSeen[text] = rec.Stmt
		} else {
			stdlibSeen[text] = rec.Stmt
		}
	}
	future = sortedByText(futureSeen)
	stdlib = sortedByText(stdlibSeen)
	return future, stdlib
}

func isFutureImport(rec imports.Record) bool {
	return rec.Target == "__future__"
}

func sortedByText(byText map[string]pyast.Stmt) []pyast.Stmt {
	texts := make([]string, 0, len(byText))
	for t := range byText {
		texts = append(texts, t)
	}
	sort.Strings(texts)
	out := make([]pyast.Stmt, 0, len(texts))
	for _, t := range texts {
		out = append(out, byText[t])
	}
	return out
}
