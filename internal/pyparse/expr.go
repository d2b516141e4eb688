package pyparse

import (
	"github.com/pybundle/pybundle/internal/pyast"
)

// parseExpr parses a single expression, including conditional expressions
// (`a if b else c`) and lambdas, down through the full binary/unary
// precedence ladder to atoms and their trailers.
func (p *Parser) parseExpr() pyast.Expr {
	if p.at(KW_LAMBDA) {
		return p.parseLambda()
	}
	e := p.parseOr()
	if p.at(KW_IF) {
		p.next()
		cond := p.parseOr()
		p.expect(KW_ELSE)
		orelse := p.parseExpr()
		// Ternary is represented as a Call to a synthetic marker so the
		// rest of the pipeline doesn't need a dedicated node type; callers
		// that care (pyprint) special-case Func.Id == "$ifexp".
		return &pyast.Call{
			Func: &pyast.Name{Id: "$ifexp", Pos: e.Position()},
			Args: []pyast.Expr{cond, e, orelse},
			Pos:  e.Position(),
		}
	}
	return e
}

func (p *Parser) parseLambda() pyast.Expr {
	start := p.cur
	p.expect(KW_LAMBDA)
	var params []pyast.Param
	if !p.at(COLON) {
		params = p.parseParams(COLON)
	}
	p.expect(COLON)
	body := p.parseExpr()
	return &pyast.Lambda{Params: params, Body: body, Pos: p.pos(start)}
}

func (p *Parser) parseOr() pyast.Expr {
	left := p.parseAnd()
	if !p.at(KW_OR) {
		return left
	}
	values := []pyast.Expr{left}
	for p.at(KW_OR) {
		p.next()
		values = append(values, p.parseAnd())
	}
	return &pyast.BoolOp{Op: "or", Values: values, Pos: left.Position()}
}

func (p *Parser) parseAnd() pyast.Expr {
	left := p.parseNot()
	if !p.at(KW_AND) {
		return left
	}
	values := []pyast.Expr{left}
	for p.at(KW_AND) {
		p.next()
		values = append(values, p.parseNot())
	}
	return &pyast.BoolOp{Op: "and", Values: values, Pos: left.Position()}
}

func (p *Parser) parseNot() pyast.Expr {
	if p.at(KW_NOT) {
		t := p.cur
		p.next()
		operand := p.parseNot()
		return &pyast.UnaryOp{Op: "not", Operand: operand, Pos: p.pos(t)}
	}
	return p.parseComparison()
}

var compareOps = map[TokenType]string{
	EQEQ: "==", NOTEQ: "!=", LT: "<", GT: ">", LTE: "<=", GTE: ">=",
}

func (p *Parser) parseComparison() pyast.Expr {
	left := p.parseBitOr()
	var ops []string
	var comparators []pyast.Expr
	for {
		if op, ok := compareOps[p.cur.Type]; ok {
			p.next()
			ops = append(ops, op)
			comparators = append(comparators, p.parseBitOr())
			continue
		}
		if p.at(KW_IN) {
			p.next()
			ops = append(ops, "in")
			comparators = append(comparators, p.parseBitOr())
			continue
		}
		if p.at(KW_NOT) && p.peek.Type == KW_IN {
			p.next()
			p.next()
			ops = append(ops, "not in")
			comparators = append(comparators, p.parseBitOr())
			continue
		}
		if p.at(KW_IS) {
			p.next()
			if p.at(KW_NOT) {
				p.next()
				ops = append(ops, "is not")
			} else {
				ops = append(ops, "is")
			}
			comparators = append(comparators, p.parseBitOr())
			continue
		}
		break
	}
	if len(ops) == 0 {
		return left
	}
	return &pyast.Compare{Left: left, Ops: ops, Comparators: comparators, Pos: left.Position()}
}

// parseBitOr through parseFactor form a flattened precedence ladder; the
// subset of operators the bundler's analyses need (arithmetic, not the
// full bitwise set) is what's wired here — see SPEC_FULL.md §4.14.
func (p *Parser) parseBitOr() pyast.Expr { return p.parseArith() }

func (p *Parser) parseArith() pyast.Expr {
	left := p.parseTerm()
	for p.at(PLUS) || p.at(MINUS) {
		op := "+"
		if p.cur.Type == MINUS {
			op = "-"
		}
		p.next()
		right := p.parseTerm()
		left = &pyast.BinOp{Left: left, Op: op, Right: right, Pos: left.Position()}
	}
	return left
}

func (p *Parser) parseTerm() pyast.Expr {
	left := p.parseFactor()
	for p.at(STAR) || p.at(SLASH) || p.at(DOUBLESLASH) || p.at(PERCENT) || p.at(AT) {
		op := map[TokenType]string{STAR: "*", SLASH: "/", DOUBLESLASH: "//", PERCENT: "%", AT: "@"}[p.cur.Type]
		p.next()
		right := p.parseFactor()
		left = &pyast.BinOp{Left: left, Op: op, Right: right, Pos: left.Position()}
	}
	return left
}

func (p *Parser) parseFactor() pyast.Expr {
	if p.at(PLUS) || p.at(MINUS) {
		t := p.cur
		op := "+"
		if t.Type == MINUS {
			op = "-"
		}
		p.next()
		return &pyast.UnaryOp{Op: op, Operand: p.parseFactor(), Pos: p.pos(t)}
	}
	return p.parsePower()
}

func (p *Parser) parsePower() pyast.Expr {
	left := p.parseAtomTrailer()
	if p.at(DOUBLESTAR) {
		p.next()
		right := p.parseFactor()
		return &pyast.BinOp{Left: left, Op: "**", Right: right, Pos: left.Position()}
	}
	return left
}

// parseAtomTrailer parses an atom followed by any chain of attribute
// accesses, calls, and subscripts.
func (p *Parser) parseAtomTrailer() pyast.Expr {
	e := p.parseAtom()
	for {
		switch p.cur.Type {
		case DOT:
			p.next()
			attr := p.cur.Literal
			p.expect(IDENT)
			e = &pyast.Attribute{Value: e, Attr: attr, Pos: e.Position()}
		case LPAREN:
			p.next()
			var args []pyast.Expr
			var keywords []pyast.Keyword
			for !p.at(RPAREN) && !p.at(EOF) {
				if p.at(STAR) || p.at(DOUBLESTAR) {
					starred := p.cur.Type == STAR
					p.next()
					v := p.parseExpr()
					if starred {
						args = append(args, &pyast.Starred{Value: v, Pos: v.Position()})
					} else {
						keywords = append(keywords, pyast.Keyword{Arg: "", Value: v})
					}
				} else if p.cur.Type == IDENT && p.peek.Type == EQ {
					name := p.cur.Literal
					p.next()
					p.next()
					keywords = append(keywords, pyast.Keyword{Arg: name, Value: p.parseExpr()})
				} else {
					args = append(args, p.parseExpr())
				}
				if p.at(COMMA) {
					p.next()
					continue
				}
				break
			}
			p.expect(RPAREN)
			e = &pyast.Call{Func: e, Args: args, Keywords: keywords, Pos: e.Position()}
		case LBRACKET:
			p.next()
			idx := p.parseSubscriptIndex()
			p.expect(RBRACKET)
			e = &pyast.Subscript{Value: e, Index: idx, Pos: e.Position()}
		default:
			return e
		}
	}
}

func (p *Parser) parseSubscriptIndex() pyast.Expr {
	if p.at(COLON) {
		return p.parseSlice(nil)
	}
	first := p.parseExpr()
	if p.at(COLON) {
		return p.parseSlice(first)
	}
	if p.at(COMMA) {
		elts := []pyast.Expr{first}
		for p.at(COMMA) {
			p.next()
			if p.at(RBRACKET) {
				break
			}
			elts = append(elts, p.parseExpr())
		}
		return &pyast.Tuple{Elts: elts, Pos: first.Position()}
	}
	return first
}

func (p *Parser) parseSlice(lower pyast.Expr) pyast.Expr {
	pos := p.pos(p.cur)
	if lower != nil {
		pos = lower.Position()
	}
	var parts []pyast.Expr
	if lower != nil {
		parts = append(parts, lower)
	} else {
		parts = append(parts, nil)
	}
	p.expect(COLON)
	if !p.at(RBRACKET) && !p.at(COLON) {
		parts = append(parts, p.parseExpr())
	} else {
		parts = append(parts, nil)
	}
	if p.at(COLON) {
		p.next()
		if !p.at(RBRACKET) {
			parts = append(parts, p.parseExpr())
		} else {
			parts = append(parts, nil)
		}
	}
	// Represented as a Call to a synthetic "$slice" marker, the same trick
	// used for conditional expressions; nil parts become Constant(None).
	args := make([]pyast.Expr, len(parts))
	for i, part := range parts {
		if part == nil {
			args[i] = &pyast.Constant{Kind: pyast.ConstNone, Pos: pos}
		} else {
			args[i] = part
		}
	}
	return &pyast.Call{Func: &pyast.Name{Id: "$slice", Pos: pos}, Args: args, Pos: pos}
}

func (p *Parser) parseAtom() pyast.Expr {
	t := p.cur
	switch t.Type {
	case IDENT:
		p.next()
		return &pyast.Name{Id: t.Literal, Pos: p.pos(t), Rng: pyast.Range{Start: p.pos(t), End: p.pos(t)}}
	case KW_NONE:
		p.next()
		return &pyast.Constant{Kind: pyast.ConstNone, Pos: p.pos(t)}
	case KW_TRUE:
		p.next()
		return &pyast.Constant{Kind: pyast.ConstBool, Value: "True", Pos: p.pos(t)}
	case KW_FALSE:
		p.next()
		return &pyast.Constant{Kind: pyast.ConstBool, Value: "False", Pos: p.pos(t)}
	case INT:
		p.next()
		return &pyast.Constant{Kind: pyast.ConstInt, Value: t.Literal, Pos: p.pos(t)}
	case FLOAT:
		p.next()
		return &pyast.Constant{Kind: pyast.ConstFloat, Value: t.Literal, Pos: p.pos(t)}
	case STRING:
		p.next()
		val := t.Literal
		for p.at(STRING) {
			val += p.cur.Literal
			p.next()
		}
		return &pyast.Constant{Kind: pyast.ConstString, Value: val, Pos: p.pos(t)}
	case FSTRING:
		p.next()
		// The lexer does not parse embedded {expr} segments out of an
		// f-string (SPEC_FULL.md §4.14 scope note); the whole literal is
		// kept as a single opaque text part.
		return &pyast.JoinedStr{
			Values: []pyast.Expr{&pyast.Constant{Kind: pyast.ConstString, Value: t.Literal, Pos: p.pos(t)}},
			Pos:    p.pos(t),
		}
	case LPAREN:
		p.next()
		if p.at(RPAREN) {
			p.next()
			return &pyast.Tuple{Pos: p.pos(t)}
		}
		first := p.parseExpr()
		if p.at(COMMA) {
			elts := []pyast.Expr{first}
			for p.at(COMMA) {
				p.next()
				if p.at(RPAREN) {
					break
				}
				elts = append(elts, p.parseExpr())
			}
			p.expect(RPAREN)
			return &pyast.Tuple{Elts: elts, Pos: p.pos(t)}
		}
		p.expect(RPAREN)
		return first
	case LBRACKET:
		p.next()
		var elts []pyast.Expr
		for !p.at(RBRACKET) && !p.at(EOF) {
			if p.at(STAR) {
				p.next()
				v := p.parseExpr()
				elts = append(elts, &pyast.Starred{Value: v, Pos: v.Position()})
			} else {
				elts = append(elts, p.parseExpr())
			}
			if p.at(COMMA) {
				p.next()
				continue
			}
			break
		}
		p.expect(RBRACKET)
		return &pyast.List{Elts: elts, Pos: p.pos(t)}
	case LBRACE:
		return p.parseDictOrSet(t)
	case STAR:
		p.next()
		v := p.parseExpr()
		return &pyast.Starred{Value: v, Pos: p.pos(t)}
	default:
		p.errorf("unexpected token %v in expression", t.Type)
		p.next()
		return &pyast.Constant{Kind: pyast.ConstNone, Pos: p.pos(t)}
	}
}

func (p *Parser) parseDictOrSet(start Token) pyast.Expr {
	p.expect(LBRACE)
	if p.at(RBRACE) {
		p.next()
		return &pyast.Dict{Pos: p.pos(start)}
	}
	if p.at(DOUBLESTAR) {
		p.next()
		v := p.parseOr()
		d := &pyast.Dict{Pos: p.pos(start)}
		d.Keys = append(d.Keys, nil)
		d.Values = append(d.Values, v)
		for p.at(COMMA) {
			p.next()
			if p.at(RBRACE) {
				break
			}
			p.parseDictEntry(d)
		}
		p.expect(RBRACE)
		return d
	}
	first := p.parseExpr()
	if p.at(COLON) {
		p.next()
		val := p.parseExpr()
		d := &pyast.Dict{Pos: p.pos(start)}
		d.Keys = append(d.Keys, first)
		d.Values = append(d.Values, val)
		for p.at(COMMA) {
			p.next()
			if p.at(RBRACE) {
				break
			}
			p.parseDictEntry(d)
		}
		p.expect(RBRACE)
		return d
	}
	elts := []pyast.Expr{first}
	for p.at(COMMA) {
		p.next()
		if p.at(RBRACE) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	p.expect(RBRACE)
	return &pyast.Set{Elts: elts, Pos: p.pos(start)}
}

func (p *Parser) parseDictEntry(d *pyast.Dict) {
	if p.at(DOUBLESTAR) {
		p.next()
		v := p.parseOr()
		d.Keys = append(d.Keys, nil)
		d.Values = append(d.Values, v)
		return
	}
	k := p.parseExpr()
	p.expect(COLON)
	v := p.parseExpr()
	d.Keys = append(d.Keys, k)
	d.Values = append(d.Values, v)
}
