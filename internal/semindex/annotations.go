package semindex

import "github.com/pybundle/pybundle/internal/pyast"

// AnnotationOnlyNames returns every name that appears exclusively inside
// a type-annotation position (a function parameter annotation or a
// variable annotation) somewhere in body, and never in any other
// expression position — candidates for BundleConfig.StripTypeOnlyImports
// to drop the import that bound them. A name used anywhere else (a call,
// a default value, a base class, a plain reference) is never reported
// here even if it also appears in an annotation.
func AnnotationOnlyNames(body []pyast.Stmt) map[string]bool {
	annotated := map[string]bool{}
	used := map[string]bool{}
	collect := func(e pyast.Expr, into map[string]bool) {
		if e == nil {
			return
		}
		for _, n := range pyast.FreeNames([]pyast.Stmt{&pyast.ExprStmt{Value: e}}) {
			into[n] = true
		}
	}
	markUsed := func(s pyast.Stmt) {
		pyast.Inspect([]pyast.Stmt{s}, func(node pyast.Node) bool {
			if nm, ok := node.(*pyast.Name); ok {
				used[nm.Id] = true
			}
			return true
		})
	}

	var walk func([]pyast.Stmt)
	walk = func(stmts []pyast.Stmt) {
		for _, s := range stmts {
			switch n := s.(type) {
			case *pyast.FunctionDef:
				for _, p := range n.Params {
					collect(p.Annotation, annotated)
					collect(p.Default, used)
				}
				for _, d := range n.Decorators {
					collect(d, used)
				}
				walk(n.Body)
			case *pyast.ClassDef:
				for _, b := range n.Bases {
					collect(b, used)
				}
				for _, k := range n.Keywords {
					collect(k, used)
				}
				for _, d := range n.Decorators {
					collect(d, used)
				}
				walk(n.Body)
			case *pyast.AnnAssign:
				collect(n.Annotation, annotated)
				collect(n.Value, used)
			case *pyast.If:
				collect(n.Cond, used)
				walk(n.Body)
				walk(n.Orelse)
			case *pyast.For:
				collect(n.Target, used)
				collect(n.Iter, used)
				walk(n.Body)
				walk(n.Orelse)
			case *pyast.While:
				collect(n.Cond, used)
				walk(n.Body)
				walk(n.Orelse)
			case *pyast.With:
				for _, it := range n.Items {
					collect(it.ContextExpr, used)
					collect(it.OptionalVar, used)
				}
				walk(n.Body)
			case *pyast.Try:
				walk(n.Body)
				for _, h := range n.Handlers {
					collect(h.Type, used)
					walk(h.Body)
				}
				walk(n.Orelse)
				walk(n.Finally)
			default:
				markUsed(s)
			}
		}
	}
	walk(body)

	only := map[string]bool{}
	for name := range annotated {
		if !used[name] {
			only[name] = true
		}
	}
	return only
}
