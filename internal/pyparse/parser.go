// Package pyparse implements a lexer and recursive-descent parser for the
// subset of Python syntax the bundling core needs to understand: imports,
// function/class definitions, assignments, expressions, and control flow.
// It is intentionally not a complete CPython grammar — see SPEC_FULL.md
// §4.14 — and stands in for the "Parser" external collaborator named in
// spec.md §6, kept in its own package so internal/bundler never depends on
// lexing details (spec.md §1's scope boundary).
package pyparse

import (
	"fmt"

	"github.com/pybundle/pybundle/internal/pyast"
)

// Parser turns a token stream into a *pyast.Module.
type Parser struct {
	lex  *Lexer
	file string

	cur  Token
	peek Token

	errs []error
}

// New creates a Parser reading from lex. file is recorded on every
// position for diagnostics.
func NewParser(lex *Lexer, file string) *Parser {
	p := &Parser{lex: lex, file: file}
	p.next()
	p.next()
	return p
}

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) pos(t Token) pyast.Pos {
	return pyast.Pos{File: p.file, Line: t.Line, Column: t.Column, Offset: t.Offset}
}

func (p *Parser) rangeFrom(start Token) pyast.Range {
	return pyast.Range{Start: p.pos(start), End: p.pos(p.cur)}
}

func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	p.errs = append(p.errs, fmt.Errorf("%s:%d:%d: %s", p.file, p.cur.Line, p.cur.Column, msg))
}

func (p *Parser) expect(tt TokenType) Token {
	t := p.cur
	if p.cur.Type != tt {
		p.errorf("unexpected token %v, expected %v", p.cur.Type, tt)
	} else {
		p.next()
	}
	return t
}

func (p *Parser) at(tt TokenType) bool { return p.cur.Type == tt }

func (p *Parser) skipNewlines() {
	for p.cur.Type == NEWLINE || p.cur.Type == SEMICOLON {
		p.next()
	}
}

// ParseModule parses the entire token stream as a module body.
func (p *Parser) ParseModule(dottedName string) *pyast.Module {
	mod := &pyast.Module{Path: p.file, DottedName: dottedName, Pos: p.pos(p.cur)}
	p.skipNewlines()
	for !p.at(EOF) {
		s := p.parseStatement()
		if s != nil {
			mod.Body = append(mod.Body, s)
		}
		p.skipNewlines()
	}
	return mod
}

func (p *Parser) parseBlock() []Stmt_ {
	p.expect(COLON)
	if p.at(NEWLINE) {
		p.next()
		p.expect(INDENT)
		var body []Stmt_
		for !p.at(DEDENT) && !p.at(EOF) {
			if s := p.parseStatement(); s != nil {
				body = append(body, s)
			}
			p.skipNewlines()
		}
		p.expect(DEDENT)
		return body
	}
	// Simple statement(s) on the header line: `if x: y; z`
	var body []Stmt_
	for {
		if s := p.parseSimpleStatement(); s != nil {
			body = append(body, s)
		}
		if p.at(SEMICOLON) {
			p.next()
			continue
		}
		break
	}
	if p.at(NEWLINE) {
		p.next()
	}
	return body
}

// Stmt_ is a local alias to keep this file's signatures short; it is the
// same interface as pyast.Stmt.
type Stmt_ = pyast.Stmt

func (p *Parser) parseStatement() pyast.Stmt {
	switch p.cur.Type {
	case KW_DEF:
		return p.parseFunctionDef(nil)
	case KW_CLASS:
		return p.parseClassDef(nil)
	case AT:
		return p.parseDecorated()
	case KW_IF:
		return p.parseIf()
	case KW_FOR:
		return p.parseFor()
	case KW_WHILE:
		return p.parseWhile()
	case KW_TRY:
		return p.parseTry()
	case KW_WITH:
		return p.parseWith()
	default:
		s := p.parseSimpleStatement()
		p.finishSimpleLine()
		return s
	}
}

func (p *Parser) finishSimpleLine() {
	for p.at(SEMICOLON) {
		p.next()
		if p.at(NEWLINE) || p.at(EOF) || p.at(DEDENT) {
			break
		}
		p.parseSimpleStatement()
	}
	if p.at(NEWLINE) {
		p.next()
	}
}

func (p *Parser) parseDecorated() pyast.Stmt {
	var decorators []pyast.Expr
	for p.at(AT) {
		p.next()
		decorators = append(decorators, p.parseExpr())
		if p.at(NEWLINE) {
			p.next()
		}
	}
	switch p.cur.Type {
	case KW_DEF:
		return p.parseFunctionDef(decorators)
	case KW_CLASS:
		return p.parseClassDef(decorators)
	default:
		p.errorf("expected def or class after decorator")
		return &pyast.Pass{Pos: p.pos(p.cur)}
	}
}

func (p *Parser) parseFunctionDef(decorators []pyast.Expr) pyast.Stmt {
	start := p.cur
	p.expect(KW_DEF)
	nameTok := p.cur
	p.expect(IDENT)
	p.expect(LPAREN)
	params := p.parseParams(RPAREN)
	p.expect(RPAREN)
	if p.at(ARROW) {
		p.next()
		p.parseExpr() // return annotation, discarded
	}
	body := p.parseBlock()
	doc := docstringOf(body)
	return &pyast.FunctionDef{
		Name:       nameTok.Literal,
		Params:     params,
		Decorators: decorators,
		Body:       body,
		Docstring:  doc,
		Pos:        p.pos(start),
		NameRng:    pyast.Range{Start: p.pos(nameTok), End: p.pos(nameTok)},
	}
}

func (p *Parser) parseClassDef(decorators []pyast.Expr) pyast.Stmt {
	start := p.cur
	p.expect(KW_CLASS)
	nameTok := p.cur
	p.expect(IDENT)
	var bases []pyast.Expr
	var keywords []pyast.Expr
	if p.at(LPAREN) {
		p.next()
		for !p.at(RPAREN) && !p.at(EOF) {
			if p.cur.Type == IDENT && p.peek.Type == EQ {
				p.next()
				p.next()
				keywords = append(keywords, p.parseExpr())
			} else {
				bases = append(bases, p.parseExpr())
			}
			if p.at(COMMA) {
				p.next()
				continue
			}
			break
		}
		p.expect(RPAREN)
	}
	body := p.parseBlock()
	doc := docstringOf(body)
	return &pyast.ClassDef{
		Name:       nameTok.Literal,
		Bases:      bases,
		Keywords:   keywords,
		Decorators: decorators,
		Body:       body,
		Docstring:  doc,
		Pos:        p.pos(start),
		NameRng:    pyast.Range{Start: p.pos(nameTok), End: p.pos(nameTok)},
	}
}

func docstringOf(body []pyast.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	if es, ok := body[0].(*pyast.ExprStmt); ok {
		if c, ok := es.Value.(*pyast.Constant); ok && c.Kind == pyast.ConstString {
			return c.Value
		}
	}
	return ""
}

func (p *Parser) parseParams(end TokenType) []pyast.Param {
	var params []pyast.Param
	for !p.at(end) && !p.at(EOF) {
		if p.at(STAR) || p.at(DOUBLESTAR) {
			p.next()
		}
		if !p.at(IDENT) {
			break
		}
		name := p.cur.Literal
		p.next()
		param := pyast.Param{Name: name}
		if p.at(COLON) {
			p.next()
			param.Annotation = p.parseExpr()
		}
		if p.at(EQ) {
			p.next()
			param.Default = p.parseExpr()
		}
		params = append(params, param)
		if p.at(COMMA) {
			p.next()
			continue
		}
		break
	}
	return params
}

func (p *Parser) parseIf() pyast.Stmt {
	start := p.cur
	p.expect(KW_IF)
	cond := p.parseExpr()
	body := p.parseBlock()
	var orelse []pyast.Stmt
	if p.at(KW_ELIF) {
		orelse = []pyast.Stmt{p.parseElif()}
	} else if p.at(KW_ELSE) {
		p.next()
		orelse = p.parseBlock()
	}
	return &pyast.If{Cond: cond, Body: body, Orelse: orelse, Pos: p.pos(start)}
}

func (p *Parser) parseElif() pyast.Stmt {
	start := p.cur
	p.expect(KW_ELIF)
	cond := p.parseExpr()
	body := p.parseBlock()
	var orelse []pyast.Stmt
	if p.at(KW_ELIF) {
		orelse = []pyast.Stmt{p.parseElif()}
	} else if p.at(KW_ELSE) {
		p.next()
		orelse = p.parseBlock()
	}
	return &pyast.If{Cond: cond, Body: body, Orelse: orelse, Pos: p.pos(start)}
}

func (p *Parser) parseFor() pyast.Stmt {
	start := p.cur
	p.expect(KW_FOR)
	target := p.parseTargetList()
	p.expect(KW_IN)
	iter := p.parseExprList()
	body := p.parseBlock()
	var orelse []pyast.Stmt
	if p.at(KW_ELSE) {
		p.next()
		orelse = p.parseBlock()
	}
	return &pyast.For{Target: target, Iter: iter, Body: body, Orelse: orelse, Pos: p.pos(start)}
}

func (p *Parser) parseWhile() pyast.Stmt {
	start := p.cur
	p.expect(KW_WHILE)
	cond := p.parseExpr()
	body := p.parseBlock()
	var orelse []pyast.Stmt
	if p.at(KW_ELSE) {
		p.next()
		orelse = p.parseBlock()
	}
	return &pyast.While{Cond: cond, Body: body, Orelse: orelse, Pos: p.pos(start)}
}

func (p *Parser) parseWith() pyast.Stmt {
	start := p.cur
	p.expect(KW_WITH)
	var items []pyast.WithItem
	for {
		ctx := p.parseExpr()
		var optVar pyast.Expr
		if p.at(KW_AS) {
			p.next()
			optVar = p.parseAtomTrailer()
		}
		items = append(items, pyast.WithItem{ContextExpr: ctx, OptionalVar: optVar})
		if p.at(COMMA) {
			p.next()
			continue
		}
		break
	}
	body := p.parseBlock()
	return &pyast.With{Items: items, Body: body, Pos: p.pos(start)}
}

func (p *Parser) parseTry() pyast.Stmt {
	start := p.cur
	p.expect(KW_TRY)
	body := p.parseBlock()
	var handlers []pyast.ExceptHandler
	for p.at(KW_EXCEPT) {
		p.next()
		var typ pyast.Expr
		var name string
		if !p.at(COLON) {
			typ = p.parseExpr()
			if p.at(KW_AS) {
				p.next()
				name = p.cur.Literal
				p.expect(IDENT)
			}
		}
		hbody := p.parseBlock()
		handlers = append(handlers, pyast.ExceptHandler{Type: typ, Name: name, Body: hbody})
	}
	var orelse, finally []pyast.Stmt
	if p.at(KW_ELSE) {
		p.next()
		orelse = p.parseBlock()
	}
	if p.at(KW_FINALLY) {
		p.next()
		finally = p.parseBlock()
	}
	return &pyast.Try{Body: body, Handlers: handlers, Orelse: orelse, Finally: finally, Pos: p.pos(start)}
}

func (p *Parser) parseSimpleStatement() pyast.Stmt {
	switch p.cur.Type {
	case KW_IMPORT:
		return p.parseImport()
	case KW_FROM:
		return p.parseImportFrom()
	case KW_PASS:
		t := p.cur
		p.next()
		return &pyast.Pass{Pos: p.pos(t)}
	case KW_BREAK:
		t := p.cur
		p.next()
		return &pyast.Break{Pos: p.pos(t)}
	case KW_CONTINUE:
		t := p.cur
		p.next()
		return &pyast.Continue{Pos: p.pos(t)}
	case KW_RETURN:
		t := p.cur
		p.next()
		var val pyast.Expr
		if !p.at(NEWLINE) && !p.at(SEMICOLON) && !p.at(EOF) {
			val = p.parseExprList()
		}
		return &pyast.Return{Value: val, Pos: p.pos(t)}
	case KW_RAISE:
		t := p.cur
		p.next()
		var exc, cause pyast.Expr
		if !p.at(NEWLINE) && !p.at(SEMICOLON) && !p.at(EOF) {
			exc = p.parseExpr()
			if p.cur.Type == IDENT && p.cur.Literal == "from" {
				p.next()
				cause = p.parseExpr()
			}
		}
		return &pyast.Raise{Exc: exc, Cause: cause, Pos: p.pos(t)}
	case KW_DEL:
		t := p.cur
		p.next()
		targets := []pyast.Expr{p.parseExpr()}
		for p.at(COMMA) {
			p.next()
			targets = append(targets, p.parseExpr())
		}
		return &pyast.Delete{Targets: targets, Pos: p.pos(t)}
	case KW_GLOBAL:
		t := p.cur
		p.next()
		names := []string{p.cur.Literal}
		p.expect(IDENT)
		for p.at(COMMA) {
			p.next()
			names = append(names, p.cur.Literal)
			p.expect(IDENT)
		}
		return &pyast.Global{Names: names, Pos: p.pos(t)}
	case KW_NONLOCAL:
		t := p.cur
		p.next()
		names := []string{p.cur.Literal}
		p.expect(IDENT)
		for p.at(COMMA) {
			p.next()
			names = append(names, p.cur.Literal)
			p.expect(IDENT)
		}
		return &pyast.Nonlocal{Names: names, Pos: p.pos(t)}
	default:
		return p.parseExprOrAssignStatement()
	}
}

func (p *Parser) parseImport() pyast.Stmt {
	t := p.cur
	p.expect(KW_IMPORT)
	var names []pyast.Alias
	for {
		nameTok := p.cur
		name := p.parseDottedName()
		alias := pyast.Alias{Name: name, Pos: p.pos(nameTok), NameRng: pyast.Range{Start: p.pos(nameTok), End: p.pos(p.cur)}}
		if p.at(KW_AS) {
			p.next()
			alias.AsName = p.cur.Literal
			p.expect(IDENT)
		}
		names = append(names, alias)
		if p.at(COMMA) {
			p.next()
			continue
		}
		break
	}
	return &pyast.Import{Names: names, Pos: p.pos(t), Rng: p.rangeFrom(t)}
}

func (p *Parser) parseDottedName() string {
	name := p.cur.Literal
	p.expect(IDENT)
	for p.at(DOT) {
		p.next()
		name += "." + p.cur.Literal
		p.expect(IDENT)
	}
	return name
}

func (p *Parser) parseImportFrom() pyast.Stmt {
	t := p.cur
	p.expect(KW_FROM)
	dots := 0
	for p.at(DOT) {
		dots++
		p.next()
	}
	module := ""
	if p.at(IDENT) {
		module = p.parseDottedName()
	}
	p.expect(KW_IMPORT)
	var names []pyast.Alias
	if p.at(STAR) {
		names = append(names, pyast.Alias{Name: "*", Pos: p.pos(p.cur)})
		p.next()
	} else {
		paren := false
		if p.at(LPAREN) {
			paren = true
			p.next()
		}
		for {
			nameTok := p.cur
			nm := p.cur.Literal
			p.expect(IDENT)
			alias := pyast.Alias{Name: nm, Pos: p.pos(nameTok), NameRng: pyast.Range{Start: p.pos(nameTok), End: p.pos(p.cur)}}
			if p.at(KW_AS) {
				p.next()
				alias.AsName = p.cur.Literal
				p.expect(IDENT)
			}
			names = append(names, alias)
			if p.at(COMMA) {
				p.next()
				if paren && p.at(RPAREN) {
					break
				}
				continue
			}
			break
		}
		if paren {
			p.expect(RPAREN)
		}
	}
	return &pyast.ImportFrom{Dots: dots, Module: module, Names: names, Pos: p.pos(t), Rng: p.rangeFrom(t)}
}

// parseExprOrAssignStatement handles expression statements plus simple,
// annotated, augmented, and chained assignments.
func (p *Parser) parseExprOrAssignStatement() pyast.Stmt {
	start := p.cur
	first := p.parseExprList()

	switch p.cur.Type {
	case COLON:
		p.next()
		ann := p.parseExpr()
		var val pyast.Expr
		if p.at(EQ) {
			p.next()
			val = p.parseExprList()
		}
		return &pyast.AnnAssign{Target: first, Annotation: ann, Value: val, Pos: p.pos(start)}
	case EQ:
		targets := []pyast.Expr{first}
		var value pyast.Expr
		for p.at(EQ) {
			p.next()
			value = p.parseExprList()
			if p.at(EQ) {
				targets = append(targets, value)
			}
		}
		return &pyast.Assign{Targets: targets, Value: value, Pos: p.pos(start)}
	case PLUSEQ, MINUSEQ, STAREQ, SLASHEQ, PERCENTEQ:
		op := augOpText(p.cur.Type)
		p.next()
		value := p.parseExprList()
		return &pyast.AugAssign{Target: first, Op: op, Value: value, Pos: p.pos(start)}
	default:
		return &pyast.ExprStmt{Value: first, Pos: p.pos(start)}
	}
}

func augOpText(tt TokenType) string {
	switch tt {
	case PLUSEQ:
		return "+="
	case MINUSEQ:
		return "-="
	case STAREQ:
		return "*="
	case SLASHEQ:
		return "/="
	case PERCENTEQ:
		return "%="
	}
	return "?="
}

func (p *Parser) parseTargetList() pyast.Expr {
	first := p.parseAtomTrailer()
	if !p.at(COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(COMMA) {
		p.next()
		if p.at(KW_IN) {
			break
		}
		elts = append(elts, p.parseAtomTrailer())
	}
	return &pyast.Tuple{Elts: elts, Pos: first.Position()}
}

func (p *Parser) parseExprList() pyast.Expr {
	first := p.parseExpr()
	if !p.at(COMMA) {
		return first
	}
	elts := []pyast.Expr{first}
	for p.at(COMMA) {
		p.next()
		if p.at(EQ) || p.at(NEWLINE) || p.at(SEMICOLON) || p.at(EOF) || p.at(COLON) {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	return &pyast.Tuple{Elts: elts, Pos: first.Position()}
}
