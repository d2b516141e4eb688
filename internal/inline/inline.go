// Package inline implements the Inliner (C10): for every module C7
// classified Inlinable, it emits that module's surviving body — after
// C6's tree-shake, C8's renames, and C9's import rewrites — as a flat run
// of top-level statements meant to share the bundle's single module
// scope.
//
// C9's import rewrite already substitutes every *usage* of a name C8
// renamed, including a module's own references to its own renamed
// top-level bindings (importxform seeds its rewrite table with the
// module's own rename entries before walking the body). What's left is
// the *definition* site itself — a `def`, a `class`, or a plain assignment
// target at this module's top level — since C9's walk only ever rewrites
// expressions, never the name a statement binds. That definition-site
// rename is this package's job — it is inlining itself that merges
// scopes, so it owns making the merge consistent.
package inline

import (
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/rename"
	"github.com/pybundle/pybundle/internal/treeshake"
)

// Transformer is the subset of importxform's public surface the Inliner
// depends on — kept as an interface so inline doesn't need to import
// importxform's concrete Transformer type for its one method.
type Transformer interface {
	Transform(mod *modgraph.Module, records []imports.Record, keep func(modgraph.ItemID) bool) []pyast.Stmt
}

// Inline produces the flat statement sequence for one Inlinable module.
// Items the tree-shaker marked dead are skipped entirely; surviving
// definitions whose name C8 renamed are rewritten at the definition site
// to match.
func Inline(mod *modgraph.Module, xform Transformer, records []imports.Record, shaken *treeshake.Result, renames rename.Map) []pyast.Stmt {
	keep := func(id modgraph.ItemID) bool { return shaken.IsReachable(mod.ID, id) }
	stmts := xform.Transform(mod, records, keep)
	modRenames := renames[mod.ID]
	if len(modRenames) == 0 {
		return stmts
	}
	for _, s := range stmts {
		renameDefinitionSite(s, modRenames)
	}
	return stmts
}

// renameDefinitionSite rewrites the name a statement binds (not any
// reference within its body) if C8 assigned that name a collision
// suffix. It only ever touches the small set of statement shapes
// modgraph.TopLevelDefines recognizes as module-level bindings.
func renameDefinitionSite(s pyast.Stmt, renames map[string]string) {
	switch st := s.(type) {
	case *pyast.FunctionDef:
		if final, ok := renames[st.Name]; ok {
			st.Name = final
		}
	case *pyast.ClassDef:
		if final, ok := renames[st.Name]; ok {
			st.Name = final
		}
	case *pyast.Assign:
		for _, t := range st.Targets {
			renameTarget(t, renames)
		}
	case *pyast.AnnAssign:
		renameTarget(st.Target, renames)
	case *pyast.AugAssign:
		renameTarget(st.Target, renames)
	case *pyast.If:
		renameBody(st.Body, renames)
		renameBody(st.Orelse, renames)
	case *pyast.For:
		renameBody(st.Body, renames)
		renameBody(st.Orelse, renames)
	case *pyast.While:
		renameBody(st.Body, renames)
		renameBody(st.Orelse, renames)
	case *pyast.With:
		renameBody(st.Body, renames)
	case *pyast.Try:
		renameBody(st.Body, renames)
		for i := range st.Handlers {
			renameBody(st.Handlers[i].Body, renames)
		}
		renameBody(st.Orelse, renames)
		renameBody(st.Finally, renames)
	}
}

func renameBody(body []pyast.Stmt, renames map[string]string) {
	for _, s := range body {
		renameDefinitionSite(s, renames)
	}
}

func renameTarget(e pyast.Expr, renames map[string]string) {
	switch v := e.(type) {
	case *pyast.Name:
		if final, ok := renames[v.Id]; ok {
			v.Id = final
		}
	case *pyast.Tuple:
		for _, el := range v.Elts {
			renameTarget(el, renames)
		}
	case *pyast.List:
		for _, el := range v.Elts {
			renameTarget(el, renames)
		}
	case *pyast.Starred:
		renameTarget(v.Value, renames)
	}
}
