// Package wam implements an abstract machine for running compiled logic
// programs, after Warren's design: clauses compile to instructions over
// argument registers, a heap of tagged cells, an environment stack and a
// trail of bindings to undo on backtracking.
package wam

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/brunokim/prolog-engine/atoms"
	"github.com/brunokim/prolog-engine/logic"
)

// ---- Statuses and terminal errors

// Status is the machine's execution state.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusException
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusException:
		return "exception"
	case StatusHalted:
		return "halted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ErrNoMoreSolutions signals that the query's alternatives are exhausted.
var ErrNoMoreSolutions = errors.New("no more solutions")

// ErrInterrupted signals that the machine was stopped externally.
var ErrInterrupted = errors.New("interrupted")

// PrologError is an exception that reached the top without a matching
// catch/3.
type PrologError struct {
	Ball logic.Term
}

func (e *PrologError) Error() string {
	return fmt.Sprintf("exception: %v", e.Ball)
}

// HaltError signals that halt was called within the program.
type HaltError struct {
	Code int
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("halt(%d)", e.Code)
}

// thrown is the internal signal carrying an in-flight exception ball.
type thrown struct {
	ball Cell
}

func (t *thrown) Error() string {
	return fmt.Sprintf("throw(%v)", t.ball)
}

// errBacktrack is the shared signal for plain goal failure.
var errBacktrack = errors.New("fail")

// ---- Error terms

func errorTerm(kind logic.Term, context string) logic.Term {
	return logic.NewComp("error", kind, logic.Atom{Name: context})
}

func instantiationError(context string) logic.Term {
	return errorTerm(logic.Atom{Name: "instantiation_error"}, context)
}

func typeError(expected string, culprit logic.Term, context string) logic.Term {
	return errorTerm(logic.NewComp("type_error", logic.Atom{Name: expected}, culprit), context)
}

func domainError(domain string, culprit logic.Term, context string) logic.Term {
	return errorTerm(logic.NewComp("domain_error", logic.Atom{Name: domain}, culprit), context)
}

func existenceError(f Functor, context string) logic.Term {
	ind := logic.NewComp("/", logic.Atom{Name: f.Name.String()}, logic.NewInt(int64(f.Arity)))
	return errorTerm(logic.NewComp("existence_error", logic.Atom{Name: "procedure"}, ind), context)
}

func evaluationError(what, context string) logic.Term {
	return errorTerm(logic.NewComp("evaluation_error", logic.Atom{Name: what}), context)
}

func resourceError(what, context string) logic.Term {
	return errorTerm(logic.NewComp("resource_error", logic.Atom{Name: what}), context)
}

// throwTerm wraps an error term as an in-flight exception.
func (m *Machine) throwTerm(ball logic.Term) error {
	return &thrown{ball: m.buildCell(ball, make(map[logic.Var]Cell))}
}

// ---- Machine

type unificationMode int

const (
	readMode unificationMode = iota
	writeMode
)

// MachineOptions configure resource limits and behavior toggles.
type MachineOptions struct {
	// MaxHeapCells bounds the number of live heap cells. Zero means no
	// bound.
	MaxHeapCells int
	// IterLimit bounds the number of executed instructions per query.
	// Zero means no bound.
	IterLimit int
	// DisableIndexing compiles predicates as plain clause chains.
	DisableIndexing bool
	// Output is the sink for write/1 and friends. Defaults to stdout.
	Output io.Writer
}

// Machine is an abstract machine that runs compiled logic clauses.
type Machine struct {
	code    map[Functor]*Clause
	sources map[Functor][]*logic.Clause

	indexing  bool
	iterLimit int
	out       io.Writer

	heap  *heap
	envs  *envStack
	trail *trail

	// Reg are the argument and temporary registers.
	Reg []Cell
	// CodePtr is the instruction about to execute.
	CodePtr InstrAddr
	// Continuation is the instruction to return to on proceed.
	Continuation InstrAddr
	// Env is the active environment frame.
	Env *Env
	// ChoicePoint is the most recent backtrack target.
	ChoicePoint *ChoicePoint
	// CutChoice is the choice point at the current clause's entry.
	CutChoice *ChoicePoint

	mode     unificationMode
	compound Cell
	argIndex int

	query       *Clause
	status      Status
	iter        int
	haltCode    int
	interrupted atomic.Bool
}

// NewMachine creates a machine with the bootstrap library loaded.
func NewMachine(opts MachineOptions) *Machine {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	m := &Machine{
		code:      make(map[Functor]*Clause),
		sources:   make(map[Functor][]*logic.Clause),
		indexing:  !opts.DisableIndexing,
		iterLimit: opts.IterLimit,
		out:       out,
		heap:      &heap{maxCells: opts.MaxHeapCells},
		envs:      &envStack{},
		trail:     &trail{},
	}
	m.installPreamble()
	return m
}

// subMachine creates a machine sharing this machine's code, with fresh
// run state. Used to run an inner query for findall/3.
func (m *Machine) subMachine() *Machine {
	return &Machine{
		code:      m.code,
		sources:   m.sources,
		indexing:  m.indexing,
		iterLimit: m.iterLimit,
		out:       m.out,
		heap:      &heap{maxCells: m.heap.maxCells},
		envs:      &envStack{},
		trail:     &trail{},
	}
}

// Interrupt stops the machine at the next instruction boundary. Safe to
// call from another goroutine.
func (m *Machine) Interrupt() {
	m.interrupted.Store(true)
}

// Status returns the machine's execution state.
func (m *Machine) Status() Status {
	return m.status
}

// AddClauses compiles and installs program clauses, grouped by functor in
// source order. Nothing is installed if any clause fails to compile.
func (m *Machine) AddClauses(clauses []*logic.Clause) error {
	type group struct {
		functor Functor
		clauses []*logic.Clause
	}
	var order []Functor
	groups := make(map[Functor][]*logic.Clause)
	for i, clause := range clauses {
		norm, err := clause.Normalize()
		if err != nil {
			return errors.Wrapf(err, "clause #%d", i+1)
		}
		f := toFunctor(norm.Head.(*logic.Comp).Indicator())
		if _, ok := groups[f]; !ok {
			order = append(order, f)
		}
		groups[f] = append(groups[f], clause)
	}
	compiled := make(map[Functor]*Clause, len(order))
	merged := make(map[Functor][]*logic.Clause, len(order))
	for _, f := range order {
		cs := append(append([]*logic.Clause{}, m.sources[f]...), groups[f]...)
		code, err := compilePredicate(cs, m.indexing)
		if err != nil {
			return errors.Wrapf(err, "compiling %v", f)
		}
		compiled[f] = code
		merged[f] = cs
	}
	for f, code := range compiled {
		m.code[f] = code
		m.sources[f] = merged[f]
	}
	return nil
}

// ReplaceClauses compiles and installs program clauses, replacing any
// previous definition of each predicate. Nothing is installed if any
// clause fails to compile. Returns the functors defined.
func (m *Machine) ReplaceClauses(clauses []*logic.Clause) ([]Functor, error) {
	var order []Functor
	groups := make(map[Functor][]*logic.Clause)
	for i, clause := range clauses {
		norm, err := clause.Normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "clause #%d", i+1)
		}
		f := toFunctor(norm.Head.(*logic.Comp).Indicator())
		if _, ok := groups[f]; !ok {
			order = append(order, f)
		}
		groups[f] = append(groups[f], clause)
	}
	compiled := make(map[Functor]*Clause, len(order))
	for _, f := range order {
		code, err := compilePredicate(groups[f], m.indexing)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling %v", f)
		}
		compiled[f] = code
	}
	for f, code := range compiled {
		m.code[f] = code
		m.sources[f] = groups[f]
	}
	return order, nil
}

// RemovePredicates deletes predicate definitions.
func (m *Machine) RemovePredicates(fs []Functor) {
	for _, f := range fs {
		delete(m.code, f)
		delete(m.sources, f)
	}
}

// setPredicate replaces a predicate's source clauses, recompiling its code.
// Removing the last clause deletes the predicate.
func (m *Machine) setPredicate(f Functor, clauses []*logic.Clause) error {
	if len(clauses) == 0 {
		delete(m.code, f)
		delete(m.sources, f)
		return nil
	}
	code, err := compilePredicate(clauses, m.indexing)
	if err != nil {
		return err
	}
	m.code[f] = code
	m.sources[f] = clauses
	return nil
}

// ---- Query lifecycle

func (m *Machine) resetState() {
	m.heap.resetTo(heapMark{})
	m.trail.resetTo(0)
	m.envs.resetTo(0)
	m.Reg = nil
	m.CodePtr = InstrAddr{}
	m.Continuation = InstrAddr{}
	m.Env = nil
	m.ChoicePoint = nil
	m.CutChoice = nil
	m.mode = readMode
	m.compound = nil
	m.argIndex = 0
	m.iter = 0
	m.status = StatusIdle
}

// RunQuery compiles the goals and runs them to the first solution.
func (m *Machine) RunQuery(goals ...logic.Term) (Solution, error) {
	query, err := CompileQuery(goals)
	if err != nil {
		return nil, err
	}
	return m.RunCompiledQuery(query)
}

// RunCompiledQuery runs an already compiled query to its first solution.
func (m *Machine) RunCompiledQuery(query *Clause) (Solution, error) {
	m.resetState()
	m.query = query
	m.ensureRegs(query.NumRegisters)
	m.CodePtr = InstrAddr{Clause: query, Pos: 0}
	return m.run()
}

// NextSolution backtracks into the remaining alternatives of the current
// query, running until the next solution.
func (m *Machine) NextSolution() (Solution, error) {
	if m.status != StatusSucceeded {
		return nil, ErrNoMoreSolutions
	}
	if err := m.backtrack(errBacktrack); err != nil {
		m.status = StatusFailed
		return nil, err
	}
	return m.run()
}

func (m *Machine) ensureRegs(n int) {
	for len(m.Reg) < n {
		m.Reg = append(m.Reg, nil)
	}
}

// solution reads the query vars' bindings from the query's environment.
func (m *Machine) solution() Solution {
	env := m.Env
	for env != nil && env.Prev != nil {
		env = env.Prev
	}
	sol := make(Solution, 0, len(m.query.Vars))
	for i, x := range m.query.Vars {
		if env == nil || i >= len(env.PermanentVars) || env.PermanentVars[i] == nil {
			continue
		}
		c := deref(env.PermanentVars[i])
		if ref, ok := c.(*Ref); ok && ref.Cell == nil {
			// Vars still free at the end of the query are not bindings.
			continue
		}
		sol = append(sol, Binding{Var: x, Term: fromCell(c)})
	}
	return sol
}

// ---- Address access

func (m *Machine) get(addr Addr) Cell {
	switch a := addr.(type) {
	case RegAddr:
		return m.Reg[a]
	case StackAddr:
		return m.Env.PermanentVars[a]
	default:
		panic(fmt.Sprintf("get: unhandled address type %T (%v)", addr, addr))
	}
}

func (m *Machine) set(addr Addr, c Cell) {
	switch a := addr.(type) {
	case RegAddr:
		m.ensureRegs(int(a) + 1)
		m.Reg[a] = c
	case StackAddr:
		m.Env.PermanentVars[a] = c
	default:
		panic(fmt.Sprintf("set: unhandled address type %T (%v)", addr, addr))
	}
}

// ---- Binding and trailing

// bind writes a value into an unbound ref, trailing it if an older choice
// point may need to undo it.
func (m *Machine) bind(ref *Ref, c Cell) {
	ref.Cell = c
	if m.ChoicePoint != nil && ref.id <= m.ChoicePoint.HeapMark.lastRefID {
		m.trail.push(ref)
	}
}

// ---- Unification

// unify solves the equation c1 = c2, binding refs as necessary. No occurs
// check is performed; unification of looping structures terminates by
// memoizing visited pairs.
func (m *Machine) unify(c1, c2 Cell) error {
	type cellPair struct{ c1, c2 Cell }
	var seen map[cellPair]struct{}
	stack := []Cell{c1, c2}
	for len(stack) > 0 {
		n := len(stack)
		a, b := deref(stack[n-2]), deref(stack[n-1])
		stack = stack[:n-2]
		if a == b {
			continue
		}
		// Bind the younger ref, so it doesn't outlive the value.
		if ref1, ok := a.(*Ref); ok {
			if ref2, ok := b.(*Ref); ok {
				if ref1.id >= ref2.id {
					m.bind(ref1, ref2)
				} else {
					m.bind(ref2, ref1)
				}
				continue
			}
			m.bind(ref1, b)
			continue
		}
		if ref2, ok := b.(*Ref); ok {
			m.bind(ref2, a)
			continue
		}
		switch t1 := a.(type) {
		case Constant:
			t2, ok := b.(Constant)
			if !ok || !constEq(t1, t2) {
				return errBacktrack
			}
		case *Struct:
			t2, ok := b.(*Struct)
			if !ok || t1.Functor() != t2.Functor() {
				return errBacktrack
			}
			if seen == nil {
				seen = make(map[cellPair]struct{})
			}
			if _, ok := seen[cellPair{a, b}]; ok {
				continue
			}
			seen[cellPair{a, b}] = struct{}{}
			for i := range t1.Args {
				stack = append(stack, t1.Args[i], t2.Args[i])
			}
		case *Pair:
			t2, ok := b.(*Pair)
			if !ok {
				return errBacktrack
			}
			if seen == nil {
				seen = make(map[cellPair]struct{})
			}
			if _, ok := seen[cellPair{a, b}]; ok {
				continue
			}
			seen[cellPair{a, b}] = struct{}{}
			stack = append(stack, t1.Head, t2.Head, t1.Tail, t2.Tail)
		default:
			return errBacktrack
		}
	}
	return nil
}

// ---- Choice points

func (m *Machine) newChoicePoint(alternative InstrAddr) (*ChoicePoint, error) {
	if m.heap.overBudget() {
		return nil, m.throwTerm(resourceError("memory", "choice point"))
	}
	numRegs := 0
	if m.CodePtr.Clause != nil {
		numRegs = m.CodePtr.Clause.NumRegisters
	}
	m.ensureRegs(numRegs)
	args := make([]Cell, numRegs)
	copy(args, m.Reg[:numRegs])
	cp := &ChoicePoint{
		Prev:            m.ChoicePoint,
		NextAlternative: alternative,
		Args:            args,
		Continuation:    m.Continuation,
		Env:             m.Env,
		CutChoice:       m.CutChoice,
		TrailMark:       m.trail.mark(),
		HeapMark:        m.heap.mark(),
		EnvMark:         m.envs.mark(),
	}
	m.ChoicePoint = cp
	return cp, nil
}

// restoreFromChoicePoint rolls the machine state back to the current
// choice point's creation, undoing trailed bindings and releasing heap and
// stack cells allocated since.
func (m *Machine) restoreFromChoicePoint() {
	cp := m.ChoicePoint
	m.trail.resetTo(cp.TrailMark)
	m.heap.resetTo(cp.HeapMark)
	m.envs.resetTo(cp.EnvMark)
	m.ensureRegs(len(cp.Args))
	copy(m.Reg, cp.Args)
	m.Continuation = cp.Continuation
	m.Env = cp.Env
	m.CutChoice = cp.CutChoice
}

// backtrack transfers control to the latest choice point's alternative.
// An in-flight exception searches for its catch barrier instead.
func (m *Machine) backtrack(cause error) error {
	if t, ok := cause.(*thrown); ok {
		return m.throw(t.ball)
	}
	if m.interrupted.Load() {
		return ErrInterrupted
	}
	if m.ChoicePoint == nil {
		return ErrNoMoreSolutions
	}
	m.CodePtr = m.ChoicePoint.NextAlternative
	return nil
}

// cutTo discards choice points created since cp.
func (m *Machine) cutTo(cp *ChoicePoint) {
	if m.ChoicePoint == cp {
		return
	}
	m.ChoicePoint = cp
	m.tidyTrail()
}

// tidyTrail compacts the trail after a cut: entries above the surviving
// choice point's mark that are no longer conditional can be dropped.
func (m *Machine) tidyTrail() {
	mark, refID := 0, 0
	if m.ChoicePoint != nil {
		mark = m.ChoicePoint.TrailMark
		refID = m.ChoicePoint.HeapMark.lastRefID
	}
	if mark > len(m.trail.refs) {
		// The cut target was created deeper in a region already
		// unwound; nothing to tidy.
		return
	}
	kept := m.trail.refs[:mark]
	for _, ref := range m.trail.refs[mark:] {
		if m.ChoicePoint != nil && ref.id <= refID {
			kept = append(kept, ref)
		}
	}
	for i := len(kept); i < len(m.trail.refs); i++ {
		m.trail.refs[i] = nil
	}
	m.trail.refs = kept
}

// ---- Exceptions

// barrierFailClause is the alternative installed by catch/3 barriers: on
// normal backtracking into the barrier, pop it and keep backtracking.
var barrierFailClause = &Clause{
	Functor: Functor{Name: 0, Arity: 0},
	Code:    []Instruction{TrustMe{}, Fail{}},
}

// throw unwinds the machine looking for a catch/3 barrier whose catcher
// unifies with a copy of the ball. State is rolled back to the barrier
// before the recovery goal runs. An unmatched ball surfaces as a
// PrologError.
func (m *Machine) throw(ball Cell) error {
	snapshot := copyOffHeap(ball)
	for cp := m.ChoicePoint; cp != nil; cp = cp.Prev {
		m.ChoicePoint = cp
		m.restoreFromChoicePoint()
		if !cp.isBarrier() {
			continue
		}
		tm := m.trail.mark()
		if err := m.unify(snapshot, cp.Catcher); err == nil {
			m.ChoicePoint = cp.Prev
			err := m.executeGoalCell(cp.Recovery, nil, false)
			if t, ok := err.(*thrown); ok {
				return m.throw(t.ball)
			}
			return err
		}
		m.trail.resetTo(tm)
	}
	m.status = StatusException
	return &PrologError{Ball: fromCell(snapshot)}
}

// ---- Calls

// executeGoalCell transfers control to the goal bound to c, with extra
// params appended to its args. When isCall, the continuation is saved
// first.
func (m *Machine) executeGoalCell(c Cell, extra []Cell, isCall bool) error {
	if m.heap.overBudget() {
		return m.throwTerm(resourceError("memory", "call"))
	}
	c = deref(c)
	var f Functor
	var args []Cell
	switch t := c.(type) {
	case WAtom:
		f = Functor{Name: atoms.Atom(t), Arity: 0}
	case *Struct:
		f = t.Functor()
		args = t.Args
	case *Ref:
		return m.throwTerm(instantiationError("call"))
	default:
		return m.throwTerm(typeError("callable", fromCell(c), "call"))
	}
	if len(extra) > 0 {
		args = append(append([]Cell{}, args...), extra...)
		f.Arity = len(args)
	}
	clause, ok := m.code[f]
	if !ok {
		return m.throwTerm(existenceError(f, "call"))
	}
	m.ensureRegs(clause.NumRegisters)
	copy(m.Reg, args)
	if isCall {
		m.Continuation = m.CodePtr.inc()
	}
	m.CutChoice = m.ChoicePoint
	m.CodePtr = InstrAddr{Clause: clause, Pos: 0}
	return nil
}

func (m *Machine) callFunctor(f Functor, isCall bool) error {
	if m.heap.overBudget() {
		return m.throwTerm(resourceError("memory", "call"))
	}
	clause, ok := m.code[f]
	if !ok {
		return m.throwTerm(existenceError(f, "call"))
	}
	m.ensureRegs(clause.NumRegisters)
	if isCall {
		m.Continuation = m.CodePtr.inc()
	}
	m.CutChoice = m.ChoicePoint
	m.CodePtr = InstrAddr{Clause: clause, Pos: 0}
	return nil
}

// ---- Main loop

// nextCompoundArg returns the slot for the current compound's next arg.
func (m *Machine) nextCompoundArg() *Cell {
	switch c := m.compound.(type) {
	case *Struct:
		slot := &c.Args[m.argIndex]
		m.argIndex++
		return slot
	case *Pair:
		var slot *Cell
		if m.argIndex == 0 {
			slot = &c.Head
		} else {
			slot = &c.Tail
		}
		m.argIndex++
		return slot
	default:
		panic(fmt.Sprintf("nextCompoundArg: not a compound: %T (%v)", m.compound, m.compound))
	}
}

func (m *Machine) readConstant(c Cell, constant Constant) error {
	switch t := deref(c).(type) {
	case *Ref:
		m.bind(t, constant)
		return nil
	case Constant:
		if constEq(t, constant) {
			return nil
		}
	}
	return errBacktrack
}

// run executes instructions until a solution, failure, or a terminal
// condition.
func (m *Machine) run() (Solution, error) {
	m.status = StatusRunning
	for {
		if m.interrupted.Load() {
			m.status = StatusHalted
			return nil, ErrInterrupted
		}
		m.iter++
		if m.iterLimit > 0 && m.iter > m.iterLimit {
			m.status = StatusException
			return nil, &PrologError{Ball: resourceError("iterations", "limit exceeded")}
		}
		instr := m.CodePtr.instr()
		if instr == nil {
			return nil, errors.Errorf("invalid instruction address %v", m.CodePtr)
		}
		if err := m.step(instr); err != nil {
			if err := m.backtrack(err); err != nil {
				switch {
				case errors.Is(err, ErrNoMoreSolutions):
					m.status = StatusFailed
				case errors.Is(err, ErrInterrupted):
					m.status = StatusHalted
				}
				return nil, err
			}
		}
		if m.status == StatusSucceeded {
			return m.solution(), nil
		}
		if m.status == StatusHalted {
			return nil, &HaltError{Code: m.haltCode}
		}
	}
}

func (m *Machine) step(instr Instruction) error {
	switch in := instr.(type) {
	case PutStruct:
		s := m.heap.newStruct(in.Functor)
		m.set(in.ArgAddr, s)
		m.compound, m.argIndex, m.mode = s, 0, writeMode
	case PutPair:
		p := m.heap.newPair()
		m.set(in.ArgAddr, p)
		m.compound, m.argIndex, m.mode = p, 0, writeMode
	case PutVariable:
		ref := m.heap.newRef()
		m.set(in.Addr, ref)
		m.set(in.ArgAddr, ref)
	case PutValue:
		m.set(in.ArgAddr, m.get(in.Addr))
	case PutConstant:
		m.set(in.ArgAddr, in.Constant)
	case GetStruct:
		switch t := deref(m.get(in.ArgAddr)).(type) {
		case *Ref:
			s := m.heap.newStruct(in.Functor)
			m.bind(t, s)
			m.compound, m.argIndex, m.mode = s, 0, writeMode
		case *Struct:
			if t.Functor() != in.Functor {
				return errBacktrack
			}
			m.compound, m.argIndex, m.mode = t, 0, readMode
		default:
			return errBacktrack
		}
	case GetPair:
		switch t := deref(m.get(in.ArgAddr)).(type) {
		case *Ref:
			p := m.heap.newPair()
			m.bind(t, p)
			m.compound, m.argIndex, m.mode = p, 0, writeMode
		case *Pair:
			m.compound, m.argIndex, m.mode = t, 0, readMode
		default:
			return errBacktrack
		}
	case GetVariable:
		m.set(in.Addr, m.get(in.ArgAddr))
	case GetValue:
		if err := m.unify(m.get(in.Addr), m.get(in.ArgAddr)); err != nil {
			return err
		}
	case GetConstant:
		if err := m.readConstant(m.get(in.ArgAddr), in.Constant); err != nil {
			return err
		}
	case UnifyVariable:
		slot := m.nextCompoundArg()
		if m.mode == writeMode {
			ref := m.heap.newRef()
			*slot = ref
			m.set(in.Addr, ref)
		} else {
			m.set(in.Addr, *slot)
		}
	case UnifyValue:
		slot := m.nextCompoundArg()
		if m.mode == writeMode {
			*slot = m.get(in.Addr)
		} else if err := m.unify(m.get(in.Addr), *slot); err != nil {
			return err
		}
	case UnifyConstant:
		slot := m.nextCompoundArg()
		if m.mode == writeMode {
			*slot = in.Constant
		} else if err := m.readConstant(*slot, in.Constant); err != nil {
			return err
		}
	case UnifyVoid:
		for i := 0; i < in.NumVars; i++ {
			slot := m.nextCompoundArg()
			if m.mode == writeMode {
				*slot = m.heap.newRef()
			}
		}
	case Call:
		return m.callFunctor(in.Functor, true)
	case Execute:
		return m.callFunctor(in.Functor, false)
	case CallMeta:
		return m.executeGoalCell(m.get(in.Addr), m.getAll(in.Params), true)
	case ExecuteMeta:
		return m.executeGoalCell(m.get(in.Addr), m.getAll(in.Params), false)
	case Proceed:
		m.CodePtr = m.Continuation
		return nil
	case Halt:
		m.status = StatusSucceeded
		return nil
	case Allocate:
		env := m.envs.push()
		env.Prev = m.Env
		env.Continuation = m.Continuation
		env.CutChoice = m.CutChoice
		env.PermanentVars = make([]Cell, in.NumVars)
		m.Env = env
	case Deallocate:
		env := m.Env
		m.Continuation = env.Continuation
		m.Env = env.Prev
		protected := 0
		if m.ChoicePoint != nil {
			protected = m.ChoicePoint.EnvMark
		}
		m.envs.release(env, protected)
	case TryMeElse:
		if _, err := m.newChoicePoint(in.Alternative); err != nil {
			return err
		}
	case RetryMeElse:
		m.restoreFromChoicePoint()
		m.ChoicePoint.NextAlternative = in.Alternative
	case TrustMe:
		m.restoreFromChoicePoint()
		m.ChoicePoint = m.ChoicePoint.Prev
	case Try:
		if _, err := m.newChoicePoint(m.CodePtr.inc()); err != nil {
			return err
		}
		m.CodePtr = in.Continuation
		return nil
	case Retry:
		m.restoreFromChoicePoint()
		m.ChoicePoint.NextAlternative = m.CodePtr.inc()
		m.CodePtr = in.Continuation
		return nil
	case Trust:
		m.restoreFromChoicePoint()
		m.ChoicePoint = m.ChoicePoint.Prev
		m.CodePtr = in.Continuation
		return nil
	case SwitchOnTerm:
		switch deref(m.Reg[0]).(type) {
		case *Ref:
			m.CodePtr = in.IfVar
		case Constant:
			m.CodePtr = in.IfConstant
		case *Struct:
			m.CodePtr = in.IfStruct
		case *Pair:
			m.CodePtr = in.IfPair
		}
		return nil
	case SwitchOnConstant:
		c := deref(m.Reg[0]).(Constant)
		target, ok := in.Continuation[keyOf(c)]
		if !ok {
			return errBacktrack
		}
		m.CodePtr = target
		return nil
	case SwitchOnStruct:
		s := deref(m.Reg[0]).(*Struct)
		target, ok := in.Continuation[s.Functor()]
		if !ok {
			return errBacktrack
		}
		m.CodePtr = target
		return nil
	case NeckCut:
		m.cutTo(m.CutChoice)
	case Cut:
		m.cutTo(m.Env.CutChoice)
	case GetLevel:
		m.set(in.Addr, cutBarrier{cp: m.ChoicePoint})
	case CutTo:
		barrier, ok := m.get(in.Addr).(cutBarrier)
		if !ok {
			return errors.Errorf("cut_to %v: not a cut barrier: %v", in.Addr, m.get(in.Addr))
		}
		m.cutTo(barrier.cp)
	case Fail:
		return errBacktrack
	case Jump:
		m.CodePtr = in.Continuation
		return nil
	case PushCatch:
		cp, err := m.newChoicePoint(InstrAddr{Clause: barrierFailClause, Pos: 0})
		if err != nil {
			return err
		}
		cp.Catcher = m.Reg[1]
		cp.Recovery = m.Reg[2]
	case Builtin:
		if err := in.Func(m, in.Args); err != nil {
			return err
		}
	default:
		return errors.Errorf("unhandled instruction %v", instr)
	}
	m.CodePtr = m.CodePtr.inc()
	return nil
}

func (m *Machine) getAll(addrs []Addr) []Cell {
	if len(addrs) == 0 {
		return nil
	}
	cells := make([]Cell, len(addrs))
	for i, addr := range addrs {
		cells[i] = m.get(addr)
	}
	return cells
}
