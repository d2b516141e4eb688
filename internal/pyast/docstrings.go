package pyast

// StripDocstrings returns a copy of body with every leading docstring
// statement removed — the module/function/class's first statement when
// it is a bare string-constant expression statement, recursively into
// every nested FunctionDef/ClassDef body and into the bodies of nested
// if/for/while/with/try statements, whose leading string-constant
// statement is removed the same way. It never touches a string
// constant that isn't the first statement of its enclosing body (that is
// an ordinary expression statement, not a docstring).
//
// Used by BundleConfig.EmitDocstrings == false to drop docstrings from
// the final bundle; pyprint itself always renders whatever body it is
// given, so this runs as a pre-pass over the assembled statement list.
func StripDocstrings(body []Stmt) []Stmt {
	return stripBody(body)
}

func stripBody(body []Stmt) []Stmt {
	if len(body) == 0 {
		return body
	}
	out := make([]Stmt, 0, len(body))
	start := 0
	if isDocstringStmt(body[0]) {
		start = 1
	}
	for i := start; i < len(body); i++ {
		out = append(out, stripStmt(body[i]))
	}
	return out
}

func isDocstringStmt(s Stmt) bool {
	es, ok := s.(*ExprStmt)
	if !ok {
		return false
	}
	c, ok := es.Value.(*Constant)
	return ok && c.Kind == ConstString
}

func stripStmt(s Stmt) Stmt {
	switch n := s.(type) {
	case *FunctionDef:
		cp := *n
		cp.Body = stripBody(n.Body)
		cp.Docstring = ""
		return &cp
	case *ClassDef:
		cp := *n
		cp.Body = stripBody(n.Body)
		cp.Docstring = ""
		return &cp
	case *If:
		cp := *n
		cp.Body = stripBody(n.Body)
		cp.Orelse = stripBody(n.Orelse)
		return &cp
	case *For:
		cp := *n
		cp.Body = stripBody(n.Body)
		cp.Orelse = stripBody(n.Orelse)
		return &cp
	case *While:
		cp := *n
		cp.Body = stripBody(n.Body)
		cp.Orelse = stripBody(n.Orelse)
		return &cp
	case *With:
		cp := *n
		cp.Body = stripBody(n.Body)
		return &cp
	case *Try:
		cp := *n
		cp.Body = stripBody(n.Body)
		cp.Orelse = stripBody(n.Orelse)
		cp.Finally = stripBody(n.Finally)
		handlers := make([]ExceptHandler, len(n.Handlers))
		for i, h := range n.Handlers {
			handlers[i] = h
			handlers[i].Body = stripBody(h.Body)
		}
		cp.Handlers = handlers
		return &cp
	default:
		return s
	}
}
