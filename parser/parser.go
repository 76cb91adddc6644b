// Package parser implements a reader for Prolog terms, clauses and
// queries, with the standard operator table.
package parser

import (
	"github.com/pkg/errors"

	"github.com/brunokim/prolog-engine/logic"
)

type opType int

const (
	xfx opType = iota
	xfy
	yfx
	fy
	fx
)

type opDef struct {
	prec int
	typ  opType
}

var infixOps = map[string]opDef{
	":-":   {1200, xfx},
	"-->":  {1200, xfx},
	";":    {1100, xfy},
	"->":   {1050, xfy},
	",":    {1000, xfy},
	"=":    {700, xfx},
	"\\=":  {700, xfx},
	"==":   {700, xfx},
	"\\==": {700, xfx},
	"@<":   {700, xfx},
	"@=<":  {700, xfx},
	"@>":   {700, xfx},
	"@>=":  {700, xfx},
	"is":   {700, xfx},
	"=:=":  {700, xfx},
	"=\\=": {700, xfx},
	"<":    {700, xfx},
	"=<":   {700, xfx},
	">":    {700, xfx},
	">=":   {700, xfx},
	"=..":  {700, xfx},
	"+":    {500, yfx},
	"-":    {500, yfx},
	"/\\":  {500, yfx},
	"\\/":  {500, yfx},
	"xor":  {500, yfx},
	"*":    {400, yfx},
	"/":    {400, yfx},
	"//":   {400, yfx},
	"mod":  {400, yfx},
	"rem":  {400, yfx},
	"div":  {400, yfx},
	"rdiv": {400, yfx},
	"<<":   {400, yfx},
	">>":   {400, yfx},
	"**":   {200, xfx},
	"^":    {200, xfy},
}

var prefixOps = map[string]opDef{
	":-":  {1200, fx},
	"?-":  {1200, fx},
	"\\+": {900, fy},
	"-":   {200, fy},
	"+":   {200, fy},
	"\\":  {200, fy},
}

type parser struct {
	lex    *lexer
	tok    token
	peeked *token
}

func newParser(text string) (*parser, error) {
	p := &parser{lex: newLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parser) advance() error {
	if p.peeked != nil {
		p.tok = *p.peeked
		p.peeked = nil
		return nil
	}
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		tok, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &tok
	}
	return *p.peeked, nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	prefix := []interface{}{p.tok.line, p.tok.col}
	return errors.Errorf("%d:%d: "+format, append(prefix, args...)...)
}

func (p *parser) expectPunct(text string) error {
	if p.tok.kind != tokenPunct || p.tok.text != text {
		return p.errorf("expected %q, found %v", text, p.tok)
	}
	return p.advance()
}

// ---- Terms

// parseTerm reads a term whose principal operator has at most maxPrec
// priority.
func (p *parser) parseTerm(maxPrec int) (logic.Term, error) {
	left, leftPrec, err := p.parsePrimary(maxPrec)
	if err != nil {
		return nil, err
	}
	for {
		name, ok := p.infixAhead()
		if !ok {
			return left, nil
		}
		op := infixOps[name]
		if op.prec > maxPrec {
			return left, nil
		}
		leftMax, rightMax := op.prec-1, op.prec-1
		if op.typ == yfx {
			leftMax = op.prec
		}
		if op.typ == xfy {
			rightMax = op.prec
		}
		if leftPrec > leftMax {
			return left, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm(rightMax)
		if err != nil {
			return nil, err
		}
		left = logic.NewComp(name, left, right)
		leftPrec = op.prec
	}
}

func (p *parser) infixAhead() (string, bool) {
	if p.tok.kind != tokenAtom {
		return "", false
	}
	_, ok := infixOps[p.tok.text]
	return p.tok.text, ok
}

func (p *parser) parsePrimary(maxPrec int) (logic.Term, int, error) {
	tok := p.tok
	switch tok.kind {
	case tokenInt:
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		return logic.NewBigInt(tok.ival), 0, nil
	case tokenFloat:
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		return logic.NewFloat(tok.fval), 0, nil
	case tokenStr:
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		return logic.Str{Value: tok.text}, 0, nil
	case tokenVar:
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		return logic.NewVar(tok.text), 0, nil
	case tokenPunct:
		switch tok.text {
		case "(":
			if err := p.advance(); err != nil {
				return nil, 0, err
			}
			term, err := p.parseTerm(1200)
			if err != nil {
				return nil, 0, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, 0, err
			}
			return term, 0, nil
		case "[":
			term, err := p.parseList()
			if err != nil {
				return nil, 0, err
			}
			return term, 0, nil
		case "{":
			term, err := p.parseCurly()
			if err != nil {
				return nil, 0, err
			}
			return term, 0, nil
		}
		return nil, 0, p.errorf("unexpected %v", tok)
	case tokenAtom:
		return p.parseAtomish(tok, maxPrec)
	}
	return nil, 0, p.errorf("unexpected %v", tok)
}

// parseAtomish disambiguates an atom token between a compound functor, a
// prefix operator, a negative number sign, and a plain atom.
func (p *parser) parseAtomish(tok token, maxPrec int) (logic.Term, int, error) {
	next, err := p.peek()
	if err != nil {
		return nil, 0, err
	}
	// 'f(' with no layout in between opens a compound term.
	if next.kind == tokenPunct && next.text == "(" && next.glued {
		return p.parseCompound(tok)
	}
	// A sign right before a number literal makes a signed literal.
	if tok.text == "-" && (next.kind == tokenInt || next.kind == tokenFloat) {
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		if next.kind == tokenInt {
			return logic.NewBigInt(next.ival.Neg(next.ival)), 0, nil
		}
		return logic.NewFloat(-next.fval), 0, nil
	}
	if op, ok := prefixOps[tok.text]; ok && op.prec <= maxPrec && p.startsTerm(next) {
		if err := p.advance(); err != nil {
			return nil, 0, err
		}
		argMax := op.prec
		if op.typ == fx {
			argMax = op.prec - 1
		}
		arg, err := p.parseTerm(argMax)
		if err != nil {
			return nil, 0, err
		}
		return logic.NewComp(tok.text, arg), op.prec, nil
	}
	if err := p.advance(); err != nil {
		return nil, 0, err
	}
	if _, ok := infixOps[tok.text]; ok {
		// An operator as a bare atom keeps its priority, so that
		// 'X = (=)' parses but 'X = = = a' doesn't.
		return logic.Atom{Name: tok.text}, 1201, nil
	}
	return logic.Atom{Name: tok.text}, 0, nil
}

func (p *parser) startsTerm(tok token) bool {
	switch tok.kind {
	case tokenAtom, tokenVar, tokenInt, tokenFloat, tokenStr:
		// An infix operator after a prefix operator reads as an atom
		// operand only under parens; bail out here.
		if tok.kind == tokenAtom {
			_, isInfix := infixOps[tok.text]
			return !isInfix
		}
		return true
	case tokenPunct:
		return tok.text == "(" || tok.text == "[" || tok.text == "{"
	}
	return false
}

func (p *parser) parseCompound(functor token) (logic.Term, int, error) {
	if err := p.advance(); err != nil { // functor
		return nil, 0, err
	}
	if err := p.advance(); err != nil { // '('
		return nil, 0, err
	}
	var args []logic.Term
	for {
		arg, err := p.parseTerm(999)
		if err != nil {
			return nil, 0, err
		}
		args = append(args, arg)
		if p.tok.kind == tokenAtom && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, 0, err
			}
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, 0, err
	}
	return logic.NewComp(functor.text, args...), 0, nil
}

func (p *parser) parseList() (logic.Term, error) {
	if err := p.advance(); err != nil { // '['
		return nil, err
	}
	if p.tok.kind == tokenPunct && p.tok.text == "]" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return logic.EmptyList, nil
	}
	var terms []logic.Term
	for {
		term, err := p.parseTerm(999)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
		if p.tok.kind == tokenAtom && p.tok.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	var tail logic.Term = logic.EmptyList
	if p.tok.kind == tokenPunct && p.tok.text == "|" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		t, err := p.parseTerm(999)
		if err != nil {
			return nil, err
		}
		tail = t
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return logic.NewIncompleteList(terms, tail), nil
}

func (p *parser) parseCurly() (logic.Term, error) {
	if err := p.advance(); err != nil { // '{'
		return nil, err
	}
	if p.tok.kind == tokenPunct && p.tok.text == "}" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return logic.Atom{Name: "{}"}, nil
	}
	term, err := p.parseTerm(1200)
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return logic.NewComp("{}", term), nil
}

// ---- Entry points

// ParseTerm parses a single term, with an optional end dot.
func ParseTerm(text string) (logic.Term, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, errors.Wrap(err, "parsing term")
	}
	term, err := p.parseTerm(1200)
	if err != nil {
		return nil, errors.Wrap(err, "parsing term")
	}
	if p.tok.kind == tokenEnd {
		if err := p.advance(); err != nil {
			return nil, errors.Wrap(err, "parsing term")
		}
	}
	if p.tok.kind != tokenEOF {
		return nil, errors.Wrap(p.errorf("unexpected %v after term", p.tok), "parsing term")
	}
	return term, nil
}

// ParseClauses parses a program: a sequence of clauses, each ending with
// a dot.
func ParseClauses(text string) ([]*logic.Clause, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, errors.Wrap(err, "parsing clauses")
	}
	var clauses []*logic.Clause
	for p.tok.kind != tokenEOF {
		line, col := p.tok.line, p.tok.col
		term, err := p.parseTerm(1200)
		if err != nil {
			return nil, errors.Wrapf(err, "clause #%d", len(clauses)+1)
		}
		if p.tok.kind != tokenEnd {
			return nil, errors.Wrapf(p.errorf("expected '.', found %v", p.tok), "clause #%d", len(clauses)+1)
		}
		if err := p.advance(); err != nil {
			return nil, errors.Wrapf(err, "clause #%d", len(clauses)+1)
		}
		clause, err := clauseFromTerm(term)
		if err != nil {
			return nil, errors.Wrapf(err, "clause #%d (%d:%d)", len(clauses)+1, line, col)
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// ParseQuery parses a comma-separated sequence of goals, with an optional
// end dot.
func ParseQuery(text string) ([]logic.Term, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, errors.Wrap(err, "parsing query")
	}
	term, err := p.parseTerm(1200)
	if err != nil {
		return nil, errors.Wrap(err, "parsing query")
	}
	if p.tok.kind == tokenEnd {
		if err := p.advance(); err != nil {
			return nil, errors.Wrap(err, "parsing query")
		}
	}
	if p.tok.kind != tokenEOF {
		return nil, errors.Wrap(p.errorf("unexpected %v after query", p.tok), "parsing query")
	}
	return flattenComma(term, nil), nil
}

func clauseFromTerm(term logic.Term) (*logic.Clause, error) {
	if comp, ok := term.(*logic.Comp); ok && comp.Functor == ":-" {
		switch len(comp.Args) {
		case 1:
			return nil, errors.Errorf("directives are not supported: %v", comp)
		case 2:
			clause := logic.NewClause(comp.Args[0], flattenComma(comp.Args[1], nil)...)
			if _, err := clause.Normalize(); err != nil {
				return nil, err
			}
			return clause, nil
		}
	}
	clause := logic.NewClause(term)
	if _, err := clause.Normalize(); err != nil {
		return nil, err
	}
	return clause, nil
}

func flattenComma(term logic.Term, goals []logic.Term) []logic.Term {
	if comp, ok := term.(*logic.Comp); ok && comp.Functor == "," && len(comp.Args) == 2 {
		goals = flattenComma(comp.Args[0], goals)
		return flattenComma(comp.Args[1], goals)
	}
	return append(goals, term)
}
