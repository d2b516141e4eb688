package pyast

// Inspect calls visit for every statement and expression reachable from
// stmts, depth-first, pre-order. Returning false from visit stops descent
// into that node's children (but siblings are still visited). This mirrors
// the teacher's hand-rolled tree-walking style (see elaborate/scc.go's
// findReferences) generalized to a single reusable walker so every later
// component (semindex, sideeffect, treeshake, rename) shares one traversal.
func Inspect(stmts []Stmt, visit func(Node) bool) {
	for _, s := range stmts {
		inspectStmt(s, visit)
	}
}

func inspectStmt(s Stmt, visit func(Node) bool) {
	if s == nil {
		return
	}
	if !visit(s) {
		return
	}
	switch n := s.(type) {
	case *Import:
		// no children
	case *ImportFrom:
		// no children
	case *FunctionDef:
		for _, p := range n.Params {
			if p.Default != nil {
				inspectExpr(p.Default, visit)
			}
			if p.Annotation != nil {
				inspectExpr(p.Annotation, visit)
			}
		}
		for _, d := range n.Decorators {
			inspectExpr(d, visit)
		}
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
	case *ClassDef:
		for _, b := range n.Bases {
			inspectExpr(b, visit)
		}
		for _, k := range n.Keywords {
			inspectExpr(k, visit)
		}
		for _, d := range n.Decorators {
			inspectExpr(d, visit)
		}
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
	case *Assign:
		for _, t := range n.Targets {
			inspectExpr(t, visit)
		}
		inspectExpr(n.Value, visit)
	case *AnnAssign:
		inspectExpr(n.Target, visit)
		inspectExpr(n.Annotation, visit)
		if n.Value != nil {
			inspectExpr(n.Value, visit)
		}
	case *AugAssign:
		inspectExpr(n.Target, visit)
		inspectExpr(n.Value, visit)
	case *ExprStmt:
		inspectExpr(n.Value, visit)
	case *Global, *Nonlocal, *Pass, *Break, *Continue:
		// no children
	case *Return:
		if n.Value != nil {
			inspectExpr(n.Value, visit)
		}
	case *Raise:
		if n.Exc != nil {
			inspectExpr(n.Exc, visit)
		}
		if n.Cause != nil {
			inspectExpr(n.Cause, visit)
		}
	case *Delete:
		for _, t := range n.Targets {
			inspectExpr(t, visit)
		}
	case *If:
		inspectExpr(n.Cond, visit)
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
		for _, b := range n.Orelse {
			inspectStmt(b, visit)
		}
	case *For:
		inspectExpr(n.Target, visit)
		inspectExpr(n.Iter, visit)
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
		for _, b := range n.Orelse {
			inspectStmt(b, visit)
		}
	case *While:
		inspectExpr(n.Cond, visit)
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
		for _, b := range n.Orelse {
			inspectStmt(b, visit)
		}
	case *With:
		for _, it := range n.Items {
			inspectExpr(it.ContextExpr, visit)
			if it.OptionalVar != nil {
				inspectExpr(it.OptionalVar, visit)
			}
		}
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
	case *Try:
		for _, b := range n.Body {
			inspectStmt(b, visit)
		}
		for _, h := range n.Handlers {
			if h.Type != nil {
				inspectExpr(h.Type, visit)
			}
			for _, b := range h.Body {
				inspectStmt(b, visit)
			}
		}
		for _, b := range n.Orelse {
			inspectStmt(b, visit)
		}
		for _, b := range n.Finally {
			inspectStmt(b, visit)
		}
	}
}

func inspectExpr(e Expr, visit func(Node) bool) {
	if e == nil {
		return
	}
	if !visit(e) {
		return
	}
	switch n := e.(type) {
	case *Name, *Constant:
		// leaf
	case *Attribute:
		inspectExpr(n.Value, visit)
	case *Call:
		inspectExpr(n.Func, visit)
		for _, a := range n.Args {
			inspectExpr(a, visit)
		}
		for _, k := range n.Keywords {
			inspectExpr(k.Value, visit)
		}
	case *BinOp:
		inspectExpr(n.Left, visit)
		inspectExpr(n.Right, visit)
	case *BoolOp:
		for _, v := range n.Values {
			inspectExpr(v, visit)
		}
	case *UnaryOp:
		inspectExpr(n.Operand, visit)
	case *Compare:
		inspectExpr(n.Left, visit)
		for _, c := range n.Comparators {
			inspectExpr(c, visit)
		}
	case *List:
		for _, el := range n.Elts {
			inspectExpr(el, visit)
		}
	case *Tuple:
		for _, el := range n.Elts {
			inspectExpr(el, visit)
		}
	case *Set:
		for _, el := range n.Elts {
			inspectExpr(el, visit)
		}
	case *Dict:
		for i, k := range n.Keys {
			if k != nil {
				inspectExpr(k, visit)
			}
			inspectExpr(n.Values[i], visit)
		}
	case *Subscript:
		inspectExpr(n.Value, visit)
		inspectExpr(n.Index, visit)
	case *Starred:
		inspectExpr(n.Value, visit)
	case *Lambda:
		for _, p := range n.Params {
			if p.Default != nil {
				inspectExpr(p.Default, visit)
			}
		}
		inspectExpr(n.Body, visit)
	case *JoinedStr:
		for _, v := range n.Values {
			inspectExpr(v, visit)
		}
	}
}

// FreeNames returns every identifier referenced by a Name node within e,
// in first-seen order with duplicates removed. It does not attempt scope
// resolution (that is internal/semindex's job) — it is a coarse read-set
// used by early analyses (side-effect detection, call-graph construction)
// the way the teacher's elaborate.findReferences is used for SCC analysis.
func FreeNames(stmts []Stmt) []string {
	seen := map[string]bool{}
	var order []string
	Inspect(stmts, func(n Node) bool {
		if name, ok := n.(*Name); ok {
			if !seen[name.Id] {
				seen[name.Id] = true
				order = append(order, name.Id)
			}
		}
		return true
	})
	return order
}
