// Package logic implements the syntax tree for logic terms and clauses.
//
// A logic term falls in one of three categories:
//
// * atomic: an immutable value — atom, integer, float, rational or string.
//
// * variable: an unbound, yet-to-be-resolved term.
//
// * complex: a term that contains other terms, recursively.
//
// A logic program is composed of clauses of the form 'head :- term1, term2.',
// that must be read as "head holds if term1 and term2 hold". A clause with no
// terms in the body is called a fact.
package logic

import (
	"fmt"
	"math/big"
	"strings"
)

// ---- Basic types

// Term is a representation of a logic term.
type Term interface {
	fmt.Stringer
	vars(seen map[Var]struct{}, xs []Var) []Var
	hasVar() bool
}

// Atom is an atomic term representing a symbol.
type Atom struct {
	// Name is the identifier for an atom.
	Name string
}

// Int is an atomic term representing an arbitrary-precision integer.
type Int struct {
	Value *big.Int
}

// Float is an atomic term representing a floating-point number.
type Float struct {
	Value float64
}

// Rational is an atomic term representing an exact ratio of integers.
type Rational struct {
	Value *big.Rat
}

// Str is an atomic term representing a text string.
type Str struct {
	Value string
}

// Var is a variable term.
type Var struct {
	// Name is the identifier for a var.
	Name   string
	suffix int
}

// Comp is a complex term, representing an immutable compound term.
type Comp struct {
	// Functor is the primary identifier of a comp.
	Functor string
	// Args is the list of terms within this term.
	Args    []Term
	hasVar_ bool
}

// List is a complex term, representing an ordered sequence of terms.
// It is sugar over '.'/2 cons pairs with an '[]' tail.
type List struct {
	// Terms are the contents of a list.
	Terms []Term
	// Tail is the continuation of a list, usually another list, the
	// empty list, or an unbound var.
	Tail    Term
	hasVar_ bool
}

// Clause is the representation of a logic rule.
// Note that Clause is not a Term, so it can't be used within complex terms.
type Clause struct {
	// Head is the consequent of a clause. May be Atom or Comp.
	Head Term
	// Body is the antecedent of a clause. May be Atom, Var or Comp.
	Body    []Term
	hasVar_ bool
}

// ---- Public vars

var (
	// AnonymousVar represents a variable to be ignored.
	AnonymousVar = NewVar("_")
	// EmptyList is an atom representing an empty list.
	EmptyList = Atom{"[]"}
)

// ---- Atomic constructors

// NewInt creates an integer term from a machine int.
func NewInt(i int64) Int {
	return Int{big.NewInt(i)}
}

// NewBigInt creates an integer term from a big integer.
func NewBigInt(i *big.Int) Int {
	return Int{i}
}

// NewFloat creates a float term.
func NewFloat(f float64) Float {
	return Float{f}
}

// NewRational creates a rational term from a numerator/denominator pair.
func NewRational(num, den int64) Rational {
	return Rational{big.NewRat(num, den)}
}

// ---- Vars

// NewVar creates a new var.
//
// It panics if the name doesn't start with an uppercase letter or an underscore.
func NewVar(name string) Var {
	if !IsVar(name) {
		panic(fmt.Sprintf("NewVar: invalid name: %q", name))
	}
	return Var{name, 0}
}

// WithSuffix creates a new var with the same name and provided suffix. Used to
// generate vars from the same template.
func (x Var) WithSuffix(suffix int) Var {
	if x.Name == "_" {
		return x
	}
	return Var{x.Name, suffix}
}

// ---- Compound terms

// NewComp creates a compound term.
func NewComp(functor string, terms ...Term) *Comp {
	var hasVar bool
	for _, term := range terms {
		if term.hasVar() {
			hasVar = true
			break
		}
	}
	return &Comp{Functor: functor, Args: terms, hasVar_: hasVar}
}

// Indicator is a notation for a comp, usually shown as functor/arity, e.g., f/2.
type Indicator struct {
	// Name is the compound term's functor.
	Name string
	// Arity is the compound term's number of args.
	Arity int
}

// Indicator returns the functor's indicator.
func (c *Comp) Indicator() Indicator {
	return Indicator{c.Functor, len(c.Args)}
}

func (i Indicator) String() string {
	return fmt.Sprintf("%s/%d", i.Name, i.Arity)
}

// ---- Lists

// NewList creates a List with the provided terms and EmptyList as tail.
func NewList(terms ...Term) Term {
	return NewIncompleteList(terms, EmptyList)
}

// NewIncompleteList creates a List with the provided terms and tail.
func NewIncompleteList(terms []Term, tail Term) Term {
	if len(terms) == 0 {
		return tail
	}
	if l, ok := tail.(*List); ok {
		tmp := make([]Term, len(terms)+len(l.Terms))
		copy(tmp, terms)
		copy(tmp[len(terms):], l.Terms)
		terms = tmp
		tail = l.Tail
	}
	var hasVar bool
	for _, term := range terms {
		if term.hasVar() {
			hasVar = true
			break
		}
	}
	if !hasVar {
		hasVar = tail.hasVar()
	}
	return &List{Terms: terms, Tail: tail, hasVar_: hasVar}
}

// Slice returns a new list starting from the n-th term, inclusive.
func (l *List) Slice(n int) Term {
	if n < 0 || n > len(l.Terms) {
		panic(fmt.Sprintf("(*List).Slice: invalid index %d", n))
	}
	if n == len(l.Terms) {
		return l.Tail
	}
	if !l.hasVar_ {
		return &List{Terms: l.Terms[n:], Tail: l.Tail, hasVar_: false}
	}
	return NewIncompleteList(l.Terms[n:], l.Tail)
}

// ---- Clauses

// NewClause returns a clause with the provided head and terms as body.
func NewClause(head Term, body ...Term) *Clause {
	var hasVar bool
	for _, term := range body {
		if term.hasVar() {
			hasVar = true
			break
		}
	}
	if !hasVar {
		hasVar = head.hasVar()
	}
	return &Clause{Head: head, Body: body, hasVar_: hasVar}
}

// ClauseNormalizeError contains data about an invalid clause.
type ClauseNormalizeError struct {
	// "head" or "body"
	TermLocation string
	Clause       *Clause
	Term         Term
}

func (err *ClauseNormalizeError) Error() string {
	if err.TermLocation == "head" {
		return fmt.Sprintf("invalid head term for clause %v: %v (must be atom or comp)", err.Clause, err.Term)
	}
	return fmt.Sprintf("invalid body term for clause %v: %v (must be atom, var or comp)", err.Clause, err.Term)
}

// Normalize transforms the clause to contain only comp terms.
//
// Atoms in the clause's head and body are converted to functors with 0 arity.
// Variables in the clause's body are converted to a 'call(X)' goal.
func (c *Clause) Normalize() (*Clause, error) {
	var head Term
	switch h := c.Head.(type) {
	case Atom:
		head = NewComp(h.Name)
	case *Comp:
		head = h
	default:
		return nil, &ClauseNormalizeError{"head", c, c.Head}
	}
	body := make([]Term, len(c.Body))
	for i, term := range c.Body {
		switch t := term.(type) {
		case Atom:
			body[i] = NewComp(t.Name)
		case Var:
			body[i] = NewComp("call", t)
		case *Comp:
			body[i] = t
		default:
			return nil, &ClauseNormalizeError{"body", c, term}
		}
	}
	return NewClause(head, body...), nil
}

// ---- vars()

// Vars returns a set with all term variables, in insertion order.
func Vars(term Term) []Var {
	if !term.hasVar() {
		return nil
	}
	seen := make(map[Var]struct{})
	return term.vars(seen, nil)
}

func (t Atom) vars(seen map[Var]struct{}, xs []Var) []Var     { return xs }
func (t Int) vars(seen map[Var]struct{}, xs []Var) []Var      { return xs }
func (t Float) vars(seen map[Var]struct{}, xs []Var) []Var    { return xs }
func (t Rational) vars(seen map[Var]struct{}, xs []Var) []Var { return xs }
func (t Str) vars(seen map[Var]struct{}, xs []Var) []Var      { return xs }

func (t Var) vars(seen map[Var]struct{}, xs []Var) []Var {
	if _, ok := seen[t]; ok {
		return xs
	}
	seen[t] = struct{}{}
	return append(xs, t)
}

func (t *Comp) vars(seen map[Var]struct{}, xs []Var) []Var {
	if !t.hasVar_ {
		return xs
	}
	for _, term := range t.Args {
		xs = term.vars(seen, xs)
	}
	return xs
}

func (t *List) vars(seen map[Var]struct{}, xs []Var) []Var {
	if !t.hasVar_ {
		return xs
	}
	for _, term := range t.Terms {
		xs = term.vars(seen, xs)
	}
	xs = t.Tail.vars(seen, xs)
	return xs
}

// Vars returns a set with all variables, in insertion order.
func (c *Clause) Vars() []Var {
	if !c.hasVar_ {
		return nil
	}
	seen := make(map[Var]struct{})
	xs := c.Head.vars(seen, nil)
	for _, term := range c.Body {
		xs = term.vars(seen, xs)
	}
	return xs
}

// ---- hasVar()

func (t Atom) hasVar() bool     { return false }
func (t Int) hasVar() bool      { return false }
func (t Float) hasVar() bool    { return false }
func (t Rational) hasVar() bool { return false }
func (t Str) hasVar() bool      { return false }
func (t Var) hasVar() bool      { return true }
func (t *Comp) hasVar() bool    { return t.hasVar_ }
func (t *List) hasVar() bool    { return t.hasVar_ }
func (c *Clause) hasVar() bool  { return c.hasVar_ }

// ---- Comparisons

// Standard order of terms: Var < Number < Atom < Str < Comp/List.
// Numbers of different kinds compare by value, then by kind.
func termOrder(t Term) int {
	switch t.(type) {
	case Var:
		return 1
	case Int, Float, Rational:
		return 2
	case Atom:
		return 3
	case Str:
		return 4
	case *Comp, *List:
		return 5
	default:
		panic(fmt.Sprintf("logic.termOrder: unhandled type %T", t))
	}
}

type ordering int

const (
	less ordering = iota
	equal
	more
)

func compareStrings(s1, s2 string) ordering {
	if s1 < s2 {
		return less
	}
	if s1 > s2 {
		return more
	}
	return equal
}

func compareInts(a, b int) ordering {
	if a < b {
		return less
	}
	if a > b {
		return more
	}
	return equal
}

func numValue(t Term) *big.Rat {
	switch n := t.(type) {
	case Int:
		return new(big.Rat).SetInt(n.Value)
	case Float:
		r := new(big.Rat)
		r.SetFloat64(n.Value)
		return r
	case Rational:
		return n.Value
	default:
		panic(fmt.Sprintf("logic.numValue: not a number: %T", t))
	}
}

func numKindOrder(t Term) int {
	switch t.(type) {
	case Float:
		return 0
	case Rational:
		return 1
	case Int:
		return 2
	default:
		panic(fmt.Sprintf("logic.numKindOrder: not a number: %T", t))
	}
}

func compare(t1, t2 Term) ordering {
	if o := compareInts(termOrder(t1), termOrder(t2)); o != equal {
		return o
	}
	switch u := t1.(type) {
	case Var:
		v := t2.(Var)
		if o := compareStrings(u.Name, v.Name); o != equal {
			return o
		}
		return compareInts(u.suffix, v.suffix)
	case Int, Float, Rational:
		switch numValue(t1).Cmp(numValue(t2)) {
		case -1:
			return less
		case 1:
			return more
		}
		// Equal values order by kind: Float < Rational < Int.
		return compareInts(numKindOrder(t1), numKindOrder(t2))
	case Atom:
		return compareStrings(u.Name, t2.(Atom).Name)
	case Str:
		return compareStrings(u.Value, t2.(Str).Value)
	case *Comp:
		if l, ok := t2.(*List); ok {
			return compareComps(u, listToComp(l))
		}
		return compareComps(u, t2.(*Comp))
	case *List:
		if c, ok := t2.(*Comp); ok {
			return compareComps(listToComp(u), c)
		}
		return compareComps(listToComp(u), listToComp(t2.(*List)))
	default:
		panic(fmt.Sprintf("logic.compare: unhandled type %T", t1))
	}
}

func compareComps(c1, c2 *Comp) ordering {
	if o := compareInts(len(c1.Args), len(c2.Args)); o != equal {
		return o
	}
	if o := compareStrings(c1.Functor, c2.Functor); o != equal {
		return o
	}
	for i := 0; i < len(c1.Args); i++ {
		if o := compare(c1.Args[i], c2.Args[i]); o != equal {
			return o
		}
	}
	return equal
}

// A list compares as its underlying '.'/2 cons term.
func listToComp(l *List) *Comp {
	return NewComp(".", l.Terms[0], l.Slice(1))
}

// Less returns the order between t1 and t2, following the standard order
// of terms: Vars < Numbers < Atoms < Strs < Comps.
func Less(t1, t2 Term) bool {
	return compare(t1, t2) == less
}

// Eq returns whether t1 and t2 are identical terms.
//
// Note that this only takes into account the structure of terms, not whether
// any binding may make them identical.
func Eq(t1, t2 Term) bool {
	return compare(t1, t2) == equal
}

// ---- String()

func (t Atom) String() string {
	return FormatAtom(t.Name)
}

func (t Int) String() string {
	return t.Value.String()
}

func (t Float) String() string {
	s := fmt.Sprintf("%g", t.Value)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (t Rational) String() string {
	return fmt.Sprintf("%s rdiv %s", t.Value.Num(), t.Value.Denom())
}

func (t Str) String() string {
	return FormatString(t.Value)
}

func (t Var) String() string {
	if t.suffix > 0 {
		return fmt.Sprintf("%s_%d_", t.Name, t.suffix)
	}
	return t.Name
}

func (t *Comp) String() string {
	args := make([]string, len(t.Args))
	for i, arg := range t.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", FormatAtom(t.Functor), strings.Join(args, ", "))
}

func (t *List) String() string {
	terms := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		terms[i] = term.String()
	}
	xs := strings.Join(terms, ", ")
	if t.Tail == Term(EmptyList) {
		return fmt.Sprintf("[%s]", xs)
	}
	return fmt.Sprintf("[%s|%v]", xs, t.Tail)
}

func (c *Clause) String() string {
	head := c.Head.String()
	if len(c.Body) == 0 {
		return head + "."
	}
	body := make([]string, len(c.Body))
	for i, comp := range c.Body {
		body[i] = comp.String()
	}
	return fmt.Sprintf("%s :-\n  %s.", head, strings.Join(body, ",\n  "))
}
