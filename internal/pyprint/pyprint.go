// Package pyprint renders a pyast statement tree back into Python source
// text. It is deterministic and round-trip-faithful, not a
// general-purpose formatter (no comment preservation, no line wrapping).
package pyprint

import (
	"fmt"
	"strings"

	"github.com/pybundle/pybundle/internal/pyast"
)

const indentUnit = "    "

// Printer accumulates rendered source text for a statement list.
type Printer struct {
	sb    strings.Builder
	depth int
}

// Print renders stmts as a complete module body.
func Print(stmts []pyast.Stmt) string {
	p := &Printer{}
	p.stmts(stmts)
	return p.sb.String()
}

func (p *Printer) writeIndent() {
	p.sb.WriteString(strings.Repeat(indentUnit, p.depth))
}

func (p *Printer) line(format string, args ...interface{}) {
	p.writeIndent()
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *Printer) stmts(body []pyast.Stmt) {
	if len(body) == 0 {
		p.line("pass")
		return
	}
	for _, s := range body {
		p.stmt(s)
	}
}

func (p *Printer) block(body []pyast.Stmt) {
	p.depth++
	p.stmts(body)
	p.depth--
}

func (p *Printer) stmt(s pyast.Stmt) {
	switch n := s.(type) {
	case *pyast.Import:
		var parts []string
		for _, a := range n.Names {
			parts = append(parts, aliasText(a))
		}
		p.line("import %s", strings.Join(parts, ", "))
	case *pyast.ImportFrom:
		var parts []string
		for _, a := range n.Names {
			parts = append(parts, aliasText(a))
		}
		p.line("from %s%s import %s", strings.Repeat(".", n.Dots), n.Module, strings.Join(parts, ", "))
	case *pyast.FunctionDef:
		for _, d := range n.Decorators {
			p.line("@%s", p.expr(d))
		}
		p.line("def %s(%s):", n.Name, paramsText(n.Params))
		p.block(n.Body)
	case *pyast.ClassDef:
		for _, d := range n.Decorators {
			p.line("@%s", p.expr(d))
		}
		var bases []string
		for _, b := range n.Bases {
			bases = append(bases, p.expr(b))
		}
		for _, k := range n.Keywords {
			bases = append(bases, p.expr(k))
		}
		if len(bases) > 0 {
			p.line("class %s(%s):", n.Name, strings.Join(bases, ", "))
		} else {
			p.line("class %s:", n.Name)
		}
		p.block(n.Body)
	case *pyast.Assign:
		var targets []string
		for _, t := range n.Targets {
			targets = append(targets, p.expr(t))
		}
		p.line("%s = %s", strings.Join(targets, " = "), p.expr(n.Value))
	case *pyast.AnnAssign:
		if n.Value != nil {
			p.line("%s: %s = %s", p.expr(n.Target), p.expr(n.Annotation), p.expr(n.Value))
		} else {
			p.line("%s: %s", p.expr(n.Target), p.expr(n.Annotation))
		}
	case *pyast.AugAssign:
		p.line("%s %s %s", p.expr(n.Target), n.Op, p.expr(n.Value))
	case *pyast.ExprStmt:
		p.line("%s", p.expr(n.Value))
	case *pyast.Global:
		p.line("global %s", strings.Join(n.Names, ", "))
	case *pyast.Nonlocal:
		p.line("nonlocal %s", strings.Join(n.Names, ", "))
	case *pyast.Pass:
		p.line("pass")
	case *pyast.Break:
		p.line("break")
	case *pyast.Continue:
		p.line("continue")
	case *pyast.Return:
		if n.Value != nil {
			p.line("return %s", p.expr(n.Value))
		} else {
			p.line("return")
		}
	case *pyast.Raise:
		switch {
		case n.Exc == nil:
			p.line("raise")
		case n.Cause != nil:
			p.line("raise %s from %s", p.expr(n.Exc), p.expr(n.Cause))
		default:
			p.line("raise %s", p.expr(n.Exc))
		}
	case *pyast.Delete:
		var targets []string
		for _, t := range n.Targets {
			targets = append(targets, p.expr(t))
		}
		p.line("del %s", strings.Join(targets, ", "))
	case *pyast.If:
		p.line("if %s:", p.expr(n.Cond))
		p.block(n.Body)
		p.orelse(n.Orelse)
	case *pyast.For:
		p.line("for %s in %s:", p.expr(n.Target), p.expr(n.Iter))
		p.block(n.Body)
		if len(n.Orelse) > 0 {
			p.line("else:")
			p.block(n.Orelse)
		}
	case *pyast.While:
		p.line("while %s:", p.expr(n.Cond))
		p.block(n.Body)
		if len(n.Orelse) > 0 {
			p.line("else:")
			p.block(n.Orelse)
		}
	case *pyast.With:
		var items []string
		for _, it := range n.Items {
			if it.OptionalVar != nil {
				items = append(items, fmt.Sprintf("%s as %s", p.expr(it.ContextExpr), p.expr(it.OptionalVar)))
			} else {
				items = append(items, p.expr(it.ContextExpr))
			}
		}
		p.line("with %s:", strings.Join(items, ", "))
		p.block(n.Body)
	case *pyast.Try:
		p.line("try:")
		p.block(n.Body)
		for _, h := range n.Handlers {
			switch {
			case h.Type == nil:
				p.line("except:")
			case h.Name != "":
				p.line("except %s as %s:", p.expr(h.Type), h.Name)
			default:
				p.line("except %s:", p.expr(h.Type))
			}
			p.block(h.Body)
		}
		if len(n.Orelse) > 0 {
			p.line("else:")
			p.block(n.Orelse)
		}
		if len(n.Finally) > 0 {
			p.line("finally:")
			p.block(n.Finally)
		}
	default:
		p.line("# unprintable statement %T", s)
	}
}

func (p *Printer) orelse(orelse []pyast.Stmt) {
	if len(orelse) == 0 {
		return
	}
	// A single nested If models `elif`; print it that way instead of as a
	// nested `else: if ...:` block.
	if len(orelse) == 1 {
		if nested, ok := orelse[0].(*pyast.If); ok {
			p.writeIndent()
			fmt.Fprintf(&p.sb, "elif %s:\n", p.expr(nested.Cond))
			p.block(nested.Body)
			p.orelse(nested.Orelse)
			return
		}
	}
	p.line("else:")
	p.block(orelse)
}

func aliasText(a pyast.Alias) string {
	if a.AsName != "" {
		return fmt.Sprintf("%s as %s", a.Name, a.AsName)
	}
	return a.Name
}

func paramsText(params []pyast.Param) string {
	var parts []string
	for _, pr := range params {
		s := pr.Name
		if pr.Annotation != nil {
			s += ": " + exprText(pr.Annotation)
		}
		if pr.Default != nil {
			if pr.Annotation != nil {
				s += " = " + exprText(pr.Default)
			} else {
				s += "=" + exprText(pr.Default)
			}
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// exprText renders a single expression without needing a Printer (used
// by paramsText, which has no access to the enclosing depth/builder).
func exprText(e pyast.Expr) string {
	p := &Printer{}
	return p.expr(e)
}

func (p *Printer) expr(e pyast.Expr) string {
	switch n := e.(type) {
	case *pyast.Name:
		return n.Id
	case *pyast.Attribute:
		return p.expr(n.Value) + "." + n.Attr
	case *pyast.Call:
		if n.Func != nil {
			if fn, ok := n.Func.(*pyast.Name); ok && fn.Id == "$ifexp" && len(n.Args) == 3 {
				return fmt.Sprintf("%s if %s else %s", p.expr(n.Args[1]), p.expr(n.Args[0]), p.expr(n.Args[2]))
			}
			if fn, ok := n.Func.(*pyast.Name); ok && fn.Id == "$slice" {
				return p.sliceText(n.Args)
			}
		}
		var parts []string
		for _, a := range n.Args {
			parts = append(parts, p.expr(a))
		}
		for _, k := range n.Keywords {
			if k.Arg == "" {
				parts = append(parts, "**"+p.expr(k.Value))
			} else {
				parts = append(parts, fmt.Sprintf("%s=%s", k.Arg, p.expr(k.Value)))
			}
		}
		return fmt.Sprintf("%s(%s)", p.expr(n.Func), strings.Join(parts, ", "))
	case *pyast.Constant:
		return constantText(n)
	case *pyast.BinOp:
		return fmt.Sprintf("%s %s %s", p.expr(n.Left), n.Op, p.expr(n.Right))
	case *pyast.BoolOp:
		var parts []string
		for _, v := range n.Values {
			parts = append(parts, p.expr(v))
		}
		return strings.Join(parts, " "+n.Op+" ")
	case *pyast.UnaryOp:
		if n.Op == "not" {
			return fmt.Sprintf("not %s", p.expr(n.Operand))
		}
		return fmt.Sprintf("%s%s", n.Op, p.expr(n.Operand))
	case *pyast.Compare:
		var sb strings.Builder
		sb.WriteString(p.expr(n.Left))
		for i, op := range n.Ops {
			fmt.Fprintf(&sb, " %s %s", op, p.expr(n.Comparators[i]))
		}
		return sb.String()
	case *pyast.List:
		return fmt.Sprintf("[%s]", p.exprList(n.Elts))
	case *pyast.Tuple:
		if len(n.Elts) == 1 {
			return fmt.Sprintf("(%s,)", p.expr(n.Elts[0]))
		}
		return fmt.Sprintf("(%s)", p.exprList(n.Elts))
	case *pyast.Set:
		if len(n.Elts) == 0 {
			return "set()"
		}
		return fmt.Sprintf("{%s}", p.exprList(n.Elts))
	case *pyast.Dict:
		var parts []string
		for i, k := range n.Keys {
			if k == nil {
				parts = append(parts, "**"+p.expr(n.Values[i]))
			} else {
				parts = append(parts, fmt.Sprintf("%s: %s", p.expr(k), p.expr(n.Values[i])))
			}
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case *pyast.Subscript:
		return fmt.Sprintf("%s[%s]", p.expr(n.Value), p.expr(n.Index))
	case *pyast.Starred:
		return "*" + p.expr(n.Value)
	case *pyast.Lambda:
		if len(n.Params) == 0 {
			return fmt.Sprintf("lambda: %s", p.expr(n.Body))
		}
		return fmt.Sprintf("lambda %s: %s", paramsText(n.Params), p.expr(n.Body))
	case *pyast.JoinedStr:
		var sb strings.Builder
		for _, v := range n.Values {
			if c, ok := v.(*pyast.Constant); ok && c.Kind == pyast.ConstString {
				sb.WriteString(c.Value)
				continue
			}
			fmt.Fprintf(&sb, "{%s}", p.expr(v))
		}
		return sb.String()
	default:
		return fmt.Sprintf("<?%T>", e)
	}
}

func (p *Printer) sliceText(args []pyast.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if c, ok := a.(*pyast.Constant); ok && c.Kind == pyast.ConstNone {
			parts[i] = ""
			continue
		}
		parts[i] = p.expr(a)
	}
	return strings.Join(parts, ":")
}

func (p *Printer) exprList(elts []pyast.Expr) string {
	var parts []string
	for _, e := range elts {
		parts = append(parts, p.expr(e))
	}
	return strings.Join(parts, ", ")
}

func constantText(c *pyast.Constant) string {
	switch c.Kind {
	case pyast.ConstNone:
		return "None"
	case pyast.ConstBool:
		return c.Value
	case pyast.ConstEllipsis:
		return "..."
	case pyast.ConstString:
		return pyStringLiteral(c.Value)
	default:
		return c.Value
	}
}

// pyStringLiteral renders a string constant's value back into source text.
// The lexer stores string contents verbatim (backslash escapes left
// un-decoded, see lexString), so the printer doesn't need to re-escape
// anything — it only needs a delimiter that can't collide with the
// content. Triple-double-quotes cover every practical case a bundled
// module's literals will contain; literal text is never rewritten, only
// re-delimited, so the original quote style doesn't need preserving.
func pyStringLiteral(s string) string {
	if !strings.Contains(s, `"""`) {
		return `"""` + s + `"""`
	}
	if !strings.Contains(s, "'''") {
		return `'''` + s + `'''`
	}
	return `"""` + strings.ReplaceAll(s, `"""`, `\"\"\"`) + `"""`
}
