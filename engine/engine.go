// Package engine orchestrates parsing, compilation and query execution
// over the abstract machine.
package engine

import (
	"fmt"
	"io"
	"math/big"

	"github.com/brunokim/prolog-engine/logic"
	"github.com/brunokim/prolog-engine/parser"
	"github.com/brunokim/prolog-engine/wam"
)

// Config tunes a machine built by Build.
type Config struct {
	// HeapSizeHint bounds the number of live heap cells. Zero means no
	// bound.
	HeapSizeHint int
	// StackSizeHint is accepted for interface stability; environment
	// frames grow on demand.
	StackSizeHint int
	// IterLimit bounds the number of instructions per query. Zero means
	// no bound.
	IterLimit int
	// DisableIndexing compiles predicates as plain clause chains.
	DisableIndexing bool
	// Output receives write/1 output. Defaults to stdout.
	Output io.Writer
}

// Machine is a Prolog engine: a compiled program plus query execution
// state.
type Machine struct {
	m       *wam.Machine
	modules map[string][]wam.Functor
	active  *QueryHandle
}

// CompileError reports a parse or compilation failure, tied to the module
// or query where it happened.
type CompileError struct {
	Module string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Module, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// Build creates a machine with the bootstrap library preloaded.
func Build(cfg Config) *Machine {
	return &Machine{
		m: wam.NewMachine(wam.MachineOptions{
			MaxHeapCells:    cfg.HeapSizeHint,
			IterLimit:       cfg.IterLimit,
			DisableIndexing: cfg.DisableIndexing,
			Output:          cfg.Output,
		}),
		modules: make(map[string][]wam.Functor),
	}
}

// ConsultModule parses and compiles source as the named module's program.
// All clauses are parsed and compiled before anything is installed; on
// error, the machine is unchanged. Consulting a name again replaces the
// module's previous predicates.
func (e *Machine) ConsultModule(name, source string) error {
	clauses, err := parser.ParseClauses(source)
	if err != nil {
		return &CompileError{Module: name, Err: err}
	}
	defined, err := e.m.ReplaceClauses(clauses)
	if err != nil {
		return &CompileError{Module: name, Err: err}
	}
	current := make(map[wam.Functor]bool, len(defined))
	for _, f := range defined {
		current[f] = true
	}
	var stale []wam.Functor
	for _, f := range e.modules[name] {
		if !current[f] {
			stale = append(stale, f)
		}
	}
	e.m.RemovePredicates(stale)
	e.modules[name] = defined
	return nil
}

// RunQuery parses and compiles the goal text, preparing a query.
// Solutions are produced by the handle's Next. Starting a new query
// retires any active one.
func (e *Machine) RunQuery(goal string) (*QueryHandle, error) {
	goals, err := parser.ParseQuery(goal)
	if err != nil {
		return nil, &CompileError{Module: "<query>", Err: err}
	}
	query, err := wam.CompileQuery(goals)
	if err != nil {
		return nil, &CompileError{Module: "<query>", Err: err}
	}
	if e.active != nil {
		e.active.exhausted = true
	}
	h := &QueryHandle{m: e.m, query: query}
	e.active = h
	return h, nil
}

// Listing returns the compiled program's instruction listing.
func (e *Machine) Listing() string {
	return e.m.Listing()
}

// ---- Query handle

// QueryHandle produces a query's outcomes one at a time. The machine's
// state persists between calls to Next, so bindings remain valid until
// the next outcome is requested.
type QueryHandle struct {
	m         *wam.Machine
	query     *wam.Clause
	started   bool
	succeeded bool
	exhausted bool
}

// Next runs the query to its next outcome. After the solutions are
// exhausted, it keeps returning Exhausted.
func (h *QueryHandle) Next() Outcome {
	if h.exhausted {
		return Exhausted{}
	}
	var sol wam.Solution
	var err error
	if !h.started {
		h.started = true
		sol, err = h.m.RunCompiledQuery(h.query)
	} else {
		sol, err = h.m.NextSolution()
	}
	if err == nil {
		h.succeeded = true
		if len(sol) == 0 {
			return True{}
		}
		bindings := make(Bindings, len(sol))
		for i, b := range sol {
			bindings[i] = VarBinding{Name: b.Var.Name, Term: TermRef{b.Term}}
		}
		return bindings
	}
	h.exhausted = true
	switch err := err.(type) {
	case *wam.PrologError:
		return Exception{Ball: TermRef{err.Ball}}
	case *wam.HaltError:
		return Halted{Code: err.Code}
	}
	if err == wam.ErrInterrupted {
		return Halted{Code: 130}
	}
	if !h.succeeded {
		h.succeeded = true
		return False{}
	}
	return Exhausted{}
}

// Close retires the query. If it is running on another goroutine, it is
// interrupted at the next instruction boundary.
func (h *QueryHandle) Close() {
	if !h.exhausted {
		h.m.Interrupt()
	}
	h.exhausted = true
}

// ---- Outcomes

// Outcome is the result of one Next call: True, False, Bindings,
// Exception, Halted or Exhausted.
type Outcome interface {
	isOutcome()
}

// True is a solution without bindings.
type True struct{}

// False means the query has no (further) solution.
type False struct{}

// VarBinding associates a query variable's name with its value.
type VarBinding struct {
	Name string
	Term TermRef
}

// Bindings is a solution's variable assignments, in query order.
type Bindings []VarBinding

// Exception carries an uncaught exception's ball.
type Exception struct {
	Ball TermRef
}

// Halted means halt/0..1 was called, or the query was interrupted.
type Halted struct {
	Code int
}

// Exhausted means no further outcomes will be produced.
type Exhausted struct{}

func (True) isOutcome()      {}
func (False) isOutcome()     {}
func (Bindings) isOutcome()  {}
func (Exception) isOutcome() {}
func (Halted) isOutcome()    {}
func (Exhausted) isOutcome() {}

func (b Bindings) String() string {
	s := ""
	for i, binding := range b {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s = %v", binding.Name, binding.Term)
	}
	return s
}

// ---- Term inspection

// TermKind discriminates a TermRef's shape.
type TermKind int

const (
	KindAtom TermKind = iota
	KindInt
	KindFloat
	KindRational
	KindStr
	KindVar
	KindList
	KindCompound
)

// TermRef is a read-only view over a solution term.
type TermRef struct {
	term logic.Term
}

// Term returns the underlying term.
func (r TermRef) Term() logic.Term {
	return r.term
}

func (r TermRef) String() string {
	return r.term.String()
}

// Kind returns the term's kind.
func (r TermRef) Kind() TermKind {
	switch r.term.(type) {
	case logic.Atom:
		return KindAtom
	case logic.Int:
		return KindInt
	case logic.Float:
		return KindFloat
	case logic.Rational:
		return KindRational
	case logic.Str:
		return KindStr
	case logic.Var:
		return KindVar
	case *logic.List:
		return KindList
	case *logic.Comp:
		return KindCompound
	}
	panic(fmt.Sprintf("TermRef.Kind: unhandled type %T", r.term))
}

// Functor returns a compound term's name and arity. Atoms have arity 0.
func (r TermRef) Functor() (string, int) {
	switch t := r.term.(type) {
	case logic.Atom:
		return t.Name, 0
	case *logic.Comp:
		return t.Functor, len(t.Args)
	case *logic.List:
		return ".", 2
	}
	return "", 0
}

// Args returns a compound term's arguments.
func (r TermRef) Args() []TermRef {
	switch t := r.term.(type) {
	case *logic.Comp:
		refs := make([]TermRef, len(t.Args))
		for i, arg := range t.Args {
			refs[i] = TermRef{arg}
		}
		return refs
	case *logic.List:
		return []TermRef{{t.Terms[0]}, {t.Slice(1)}}
	}
	return nil
}

// List returns a list term's elements and tail.
func (r TermRef) List() ([]TermRef, TermRef) {
	l, ok := r.term.(*logic.List)
	if !ok {
		return nil, r
	}
	refs := make([]TermRef, len(l.Terms))
	for i, term := range l.Terms {
		refs[i] = TermRef{term}
	}
	return refs, TermRef{l.Tail}
}

// Atom returns an atom's name.
func (r TermRef) Atom() (string, bool) {
	a, ok := r.term.(logic.Atom)
	if !ok {
		return "", false
	}
	return a.Name, true
}

// Int returns an integer's value.
func (r TermRef) Int() (*big.Int, bool) {
	i, ok := r.term.(logic.Int)
	if !ok {
		return nil, false
	}
	return i.Value, true
}

// Float returns a float's value.
func (r TermRef) Float() (float64, bool) {
	f, ok := r.term.(logic.Float)
	if !ok {
		return 0, false
	}
	return f.Value, true
}

// Rational returns a rational's value.
func (r TermRef) Rational() (*big.Rat, bool) {
	q, ok := r.term.(logic.Rational)
	if !ok {
		return nil, false
	}
	return q.Value, true
}

// Str returns a string term's value.
func (r TermRef) Str() (string, bool) {
	s, ok := r.term.(logic.Str)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// Var returns an unbound variable's name.
func (r TermRef) Var() (string, bool) {
	x, ok := r.term.(logic.Var)
	if !ok {
		return "", false
	}
	return x.String(), true
}
