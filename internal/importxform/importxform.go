// Package importxform implements the Import Transformer: given the module
// classifier's inline/wrapper decisions and the symbol renamer's rename
// map, it rewrites every reference to a first-party import binding in
// place, and replaces or drops the import statement itself. Stdlib and
// third-party imports are left untouched — the bundle assembler hoists
// them to the top of the assembled bundle verbatim, since the final file
// still needs them to resolve those names.
//
// Per import kind:
//
//   - `from a.b import NAME` where a.b is Inlinable: every bare reference
//     to NAME is rewritten to its assigned bundle-scope name, and the
//     import statement itself is dropped — NAME's definition is now a
//     plain statement sharing the bundle's flat scope.
//   - `from a.b import NAME` where a.b is a Wrapper: references to NAME
//     become `<namespace>.NAME`, and the import statement becomes a call
//     to a.b's guarded init function, which must run before the first
//     such reference executes.
//   - `import a.b[.c...]` (always a Wrapper target): an attribute chain
//     rooted at the bound top-level name and prefixed by the imported
//     dotted path collapses to `<namespace>` plus whatever attribute
//     suffix remains, and the import statement becomes an init call.
//   - `from a.b import *` (always a Wrapper target): any bare reference
//     in the importing module that matches one of a.b's statically known
//     exports and isn't otherwise locally bound is rewritten to
//     `<namespace>.NAME`; the import statement becomes an init call.
package importxform

import (
	"strings"

	"github.com/pybundle/pybundle/internal/classify"
	"github.com/pybundle/pybundle/internal/imports"
	"github.com/pybundle/pybundle/internal/modgraph"
	"github.com/pybundle/pybundle/internal/pyast"
	"github.com/pybundle/pybundle/internal/rename"
	"github.com/pybundle/pybundle/internal/semindex"
)

// Transformer carries the whole-bundle context the rewrite needs.
type Transformer struct {
	decisions map[modgraph.ModuleID]classify.Decision
	renames   rename.Map
	indexes   map[modgraph.ModuleID]*semindex.Index
}

// New builds a Transformer from the module classifier's decisions, the
// symbol renamer's rename map, and every module's semantic index.
func New(decisions []classify.Decision, renames rename.Map, indexes map[modgraph.ModuleID]*semindex.Index) *Transformer {
	byModule := map[modgraph.ModuleID]classify.Decision{}
	for _, d := range decisions {
		byModule[d.Module] = d
	}
	return &Transformer{decisions: byModule, renames: renames, indexes: indexes}
}

// substitution is one name-rewrite rule this transformer applies within a
// single owning module: a local name either maps straight to a renamed
// bundle-scope identifier, or to `<namespace>.<attr>` (with attr possibly
// empty, meaning the name itself collapses to the namespace identifier).
type substitution struct {
	bareName  string // "" means this entry handles a whole-module attribute chain instead
	dottedPfx []string
	namespace string
	attr      string // used only for bareName rewrites; "" means the name collapses to the namespace identifier
	renamed   bool
}

// Transform rewrites one module's item list in place and returns the
// statements that should actually be emitted — import items the target's
// role dictates must disappear are dropped from the result entirely, and
// wrapper-targeted import items are replaced by an init call. If keep is
// non-nil, items for which it returns false (tree-shaken dead code) are
// skipped entirely, same as a dropped import.
func (tr *Transformer) Transform(mod *modgraph.Module, records []imports.Record, keep func(modgraph.ItemID) bool) []pyast.Stmt {
	localRecords := map[*modgraph.Item][]imports.Record{}
	itemOf := map[pyast.Stmt]*modgraph.Item{}
	for _, item := range mod.Items {
		itemOf[item.Stmt] = item
	}
	for _, rec := range records {
		if rec.Owner != mod.ID {
			continue
		}
		if owner, ok := itemOf[rec.Stmt]; ok {
			localRecords[owner] = append(localRecords[owner], rec)
		}
	}

	bareRewrite, chainPrefixes := tr.buildRewriteTable(mod, records)

	var out []pyast.Stmt
	for _, item := range mod.Items {
		if keep != nil && !keep(item.ID) {
			continue
		}
		recs := localRecords[item]
		if len(recs) == 0 {
			out = append(out, rewriteStmt(item.Stmt, bareRewrite, chainPrefixes))
			continue
		}
		replacement := tr.replaceImportItem(recs)
		if replacement != nil {
			out = append(out, replacement)
		}
	}
	return out
}

// replaceImportItem decides what a (possibly multi-binding) import
// statement becomes. If every first-party target it touches is
// Inlinable, and there are no stdlib/third-party bindings left on the
// same statement, the statement disappears. If any target is a Wrapper,
// one init call per distinct wrapper module replaces it. Stdlib/
// third-party-only statements pass through unchanged.
func (tr *Transformer) replaceImportItem(recs []imports.Record) pyast.Stmt {
	var initCalls []pyast.Stmt
	keepOriginal := false
	seen := map[modgraph.ModuleID]bool{}

	for _, rec := range recs {
		switch rec.Origin {
		case imports.OriginStdlib, imports.OriginThirdParty:
			keepOriginal = true
		case imports.OriginFirstParty:
			if !rec.HasResolved {
				continue
			}
			d := tr.decisions[rec.Resolved]
			if d.Role == classify.Wrapper && !seen[rec.Resolved] {
				seen[rec.Resolved] = true
				initCalls = append(initCalls, &pyast.ExprStmt{
					Value: &pyast.Call{Func: &pyast.Name{Id: d.InitFuncName}},
				})
			}
		}
	}

	if keepOriginal {
		return recs[0].Stmt
	}
	if len(initCalls) == 0 {
		return nil
	}
	if len(initCalls) == 1 {
		return initCalls[0]
	}
	// Multiple distinct wrapper targets on one `import a, b` statement:
	// represented as a single synthetic block so Transform's one-item-in/
	// one-item-out shape still holds; the block is emitted into the
	// bundle as an `if True:` statement.
	return &pyast.If{
		Cond: &pyast.Constant{Kind: pyast.ConstBool, Value: "True"},
		Body: initCalls,
	}
}

// buildRewriteTable computes, for every local name this module reads that
// resolves to a first-party import, the substitution to apply. It also
// seeds bare with this module's own C8 renames: once C10 merges an
// Inlinable module's top-level statements into the bundle's flat scope, a
// name C8 gave a collision suffix must be rewritten everywhere the module
// itself refers back to it, not just at the definition site — the same
// walk that rewrites import usages below already visits every statement
// and expression in the module, so seeding it with self-renames makes that
// rewrite happen for free instead of needing a second AST pass.
func (tr *Transformer) buildRewriteTable(mod *modgraph.Module, records []imports.Record) (map[string]substitution, []substitution) {
	bare := map[string]substitution{}
	var chains []substitution

	byLocalName := map[string]struct {
		rec imports.Record
		b   imports.Binding
	}{}
	for _, rec := range records {
		if rec.Owner != mod.ID || rec.Origin != imports.OriginFirstParty || !rec.HasResolved {
			continue
		}
		for _, b := range rec.Bindings {
			byLocalName[b.LocalName] = struct {
				rec imports.Record
				b   imports.Binding
			}{rec, b}
		}
	}

	for local, rb := range byLocalName {
		d := tr.decisions[rb.rec.Resolved]
		switch rb.rec.Kind {
		case imports.ValueImport:
			if d.Role == classify.Inlinable {
				bare[local] = substitution{bareName: local, renamed: true,
					namespace: tr.renames.Apply(rb.rec.Resolved, rb.b.ImportedName)}
			} else {
				bare[local] = substitution{bareName: local, namespace: d.NamespaceName, attr: rb.b.ImportedName}
			}
		case imports.ModuleImport:
			if rb.b.DirectModule {
				// An aliased `import a.b as x`, or `from a.b import c`
				// where c is itself a submodule: the local name is
				// already bound straight to the target module, so a
				// bare reference collapses directly to its namespace.
				bare[local] = substitution{bareName: local, namespace: d.NamespaceName}
				continue
			}
			// Unaliased `import a.b.c` binds top-level name `a`; the
			// dotted prefix to collapse is the imported module's own
			// dotted path.
			chains = append(chains, substitution{
				dottedPfx: strings.Split(rb.rec.Target, "."),
				namespace: d.NamespaceName,
			})
		case imports.StarImport:
			idx := tr.indexes[rb.rec.Resolved]
			if idx == nil {
				continue
			}
			for _, name := range idx.Exports {
				if _, locallyBound := tr.indexes[mod.ID].Bindings[name]; locallyBound {
					continue // shadowed by this module's own definition
				}
				if _, alreadyMapped := bare[name]; alreadyMapped {
					continue
				}
				bare[name] = substitution{bareName: name, namespace: d.NamespaceName, attr: name}
			}
		}
	}

	// This module's own C8 renames apply last and win any collision: a
	// name this module binds at top level (a def/class/assign) is the live
	// binding for that name regardless of what an earlier import statement
	// also bound it to, matching Python's own last-binding-wins scoping.
	for name, final := range tr.renames[mod.ID] {
		bare[name] = substitution{bareName: name, renamed: true, namespace: final}
	}
	return bare, chains
}

func rewriteStmt(s pyast.Stmt, bare map[string]substitution, chains []substitution) pyast.Stmt {
	if s == nil {
		return nil
	}
	switch st := s.(type) {
	case *pyast.FunctionDef:
		for i, d := range st.Decorators {
			st.Decorators[i] = rewriteExpr(d, bare, chains)
		}
		for i, p := range st.Params {
			if p.Default != nil {
				st.Params[i].Default = rewriteExpr(p.Default, bare, chains)
			}
		}
		rewriteBody(st.Body, bare, chains)
	case *pyast.ClassDef:
		for i, b := range st.Bases {
			st.Bases[i] = rewriteExpr(b, bare, chains)
		}
		for i, k := range st.Keywords {
			st.Keywords[i] = rewriteExpr(k, bare, chains)
		}
		rewriteBody(st.Body, bare, chains)
	case *pyast.Assign:
		for i, t := range st.Targets {
			st.Targets[i] = rewriteExpr(t, bare, chains)
		}
		st.Value = rewriteExpr(st.Value, bare, chains)
	case *pyast.AnnAssign:
		st.Target = rewriteExpr(st.Target, bare, chains)
		if st.Value != nil {
			st.Value = rewriteExpr(st.Value, bare, chains)
		}
	case *pyast.AugAssign:
		st.Target = rewriteExpr(st.Target, bare, chains)
		st.Value = rewriteExpr(st.Value, bare, chains)
	case *pyast.ExprStmt:
		st.Value = rewriteExpr(st.Value, bare, chains)
	case *pyast.Return:
		if st.Value != nil {
			st.Value = rewriteExpr(st.Value, bare, chains)
		}
	case *pyast.Delete:
		for i, t := range st.Targets {
			st.Targets[i] = rewriteExpr(t, bare, chains)
		}
	case *pyast.If:
		st.Cond = rewriteExpr(st.Cond, bare, chains)
		rewriteBody(st.Body, bare, chains)
		rewriteBody(st.Orelse, bare, chains)
	case *pyast.For:
		st.Target = rewriteExpr(st.Target, bare, chains)
		st.Iter = rewriteExpr(st.Iter, bare, chains)
		rewriteBody(st.Body, bare, chains)
		rewriteBody(st.Orelse, bare, chains)
	case *pyast.While:
		st.Cond = rewriteExpr(st.Cond, bare, chains)
		rewriteBody(st.Body, bare, chains)
		rewriteBody(st.Orelse, bare, chains)
	case *pyast.With:
		for i, item := range st.Items {
			st.Items[i].ContextExpr = rewriteExpr(item.ContextExpr, bare, chains)
			if item.OptionalVar != nil {
				st.Items[i].OptionalVar = rewriteExpr(item.OptionalVar, bare, chains)
			}
		}
		rewriteBody(st.Body, bare, chains)
	case *pyast.Try:
		rewriteBody(st.Body, bare, chains)
		for i := range st.Handlers {
			if st.Handlers[i].Type != nil {
				st.Handlers[i].Type = rewriteExpr(st.Handlers[i].Type, bare, chains)
			}
			rewriteBody(st.Handlers[i].Body, bare, chains)
		}
		rewriteBody(st.Orelse, bare, chains)
		rewriteBody(st.Finally, bare, chains)
	}
	return s
}

func rewriteBody(body []pyast.Stmt, bare map[string]substitution, chains []substitution) {
	for i, s := range body {
		body[i] = rewriteStmt(s, bare, chains)
	}
}

func rewriteExpr(e pyast.Expr, bare map[string]substitution, chains []substitution) pyast.Expr {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *pyast.Name:
		if sub, ok := bare[v.Id]; ok {
			return applyBare(sub, v)
		}
		return v
	case *pyast.Attribute:
		if collapsed, ok := tryCollapseChain(v, chains); ok {
			return collapsed
		}
		v.Value = rewriteExpr(v.Value, bare, chains)
		return v
	case *pyast.Call:
		v.Func = rewriteExpr(v.Func, bare, chains)
		for i, a := range v.Args {
			v.Args[i] = rewriteExpr(a, bare, chains)
		}
		for i, k := range v.Keywords {
			v.Keywords[i].Value = rewriteExpr(k.Value, bare, chains)
		}
		return v
	case *pyast.BinOp:
		v.Left = rewriteExpr(v.Left, bare, chains)
		v.Right = rewriteExpr(v.Right, bare, chains)
		return v
	case *pyast.BoolOp:
		for i, val := range v.Values {
			v.Values[i] = rewriteExpr(val, bare, chains)
		}
		return v
	case *pyast.UnaryOp:
		v.Operand = rewriteExpr(v.Operand, bare, chains)
		return v
	case *pyast.Compare:
		v.Left = rewriteExpr(v.Left, bare, chains)
		for i, c := range v.Comparators {
			v.Comparators[i] = rewriteExpr(c, bare, chains)
		}
		return v
	case *pyast.List:
		for i, el := range v.Elts {
			v.Elts[i] = rewriteExpr(el, bare, chains)
		}
		return v
	case *pyast.Tuple:
		for i, el := range v.Elts {
			v.Elts[i] = rewriteExpr(el, bare, chains)
		}
		return v
	case *pyast.Set:
		for i, el := range v.Elts {
			v.Elts[i] = rewriteExpr(el, bare, chains)
		}
		return v
	case *pyast.Dict:
		for i, k := range v.Keys {
			if k != nil {
				v.Keys[i] = rewriteExpr(k, bare, chains)
			}
		}
		for i, val := range v.Values {
			v.Values[i] = rewriteExpr(val, bare, chains)
		}
		return v
	case *pyast.Subscript:
		v.Value = rewriteExpr(v.Value, bare, chains)
		v.Index = rewriteExpr(v.Index, bare, chains)
		return v
	case *pyast.Starred:
		v.Value = rewriteExpr(v.Value, bare, chains)
		return v
	case *pyast.Lambda:
		v.Body = rewriteExpr(v.Body, bare, chains)
		return v
	case *pyast.JoinedStr:
		for i, part := range v.Values {
			v.Values[i] = rewriteExpr(part, bare, chains)
		}
		return v
	default:
		return e
	}
}

func applyBare(sub substitution, orig *pyast.Name) pyast.Expr {
	if sub.renamed {
		return &pyast.Name{Id: sub.namespace, Pos: orig.Pos}
	}
	if sub.attr == "" {
		return &pyast.Name{Id: sub.namespace, Pos: orig.Pos}
	}
	return &pyast.Attribute{
		Value: &pyast.Name{Id: sub.namespace, Pos: orig.Pos},
		Attr:  sub.attr,
		Pos:   orig.Pos,
	}
}

// tryCollapseChain detects an Attribute chain whose root dotted path
// matches a registered whole-module import prefix and, if so, replaces
// the matched portion with the target's namespace identifier, keeping any
// remaining trailing attribute.
func tryCollapseChain(attr *pyast.Attribute, chains []substitution) (pyast.Expr, bool) {
	components, root, ok := flattenChain(attr)
	if !ok {
		return nil, false
	}
	full := append(append([]string{}, components...), root)
	reverse(full)
	for _, sub := range chains {
		if hasPrefix(full, sub.dottedPfx) {
			remaining := full[len(sub.dottedPfx):]
			var result pyast.Expr = &pyast.Name{Id: sub.namespace, Pos: attr.Pos}
			for _, part := range remaining {
				result = &pyast.Attribute{Value: result, Attr: part, Pos: attr.Pos}
			}
			return result, true
		}
	}
	return nil, false
}

// flattenChain walks `a.b.c` into (["c", "b"], "a", true) — components in
// innermost-to-outermost order, root last — or ok=false if the chain
// doesn't bottom out at a plain Name.
func flattenChain(e pyast.Expr) ([]string, string, bool) {
	var parts []string
	cur := e
	for {
		switch v := cur.(type) {
		case *pyast.Attribute:
			parts = append(parts, v.Attr)
			cur = v.Value
		case *pyast.Name:
			return parts, v.Id, true
		default:
			return nil, "", false
		}
	}
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}

func hasPrefix(full, prefix []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i, p := range prefix {
		if full[i] != p {
			return false
		}
	}
	return true
}
