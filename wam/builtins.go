package wam

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/brunokim/prolog-engine/atoms"
	"github.com/brunokim/prolog-engine/dsl"
	"github.com/brunokim/prolog-engine/logic"
)

// ---- Native builtins

type nativeFn func(m *Machine, args []Addr) error

var nativeBuiltinDefs = []struct {
	name  string
	arity int
	fn    nativeFn
}{
	{"=", 2, builtinUnify},
	{"==", 2, comparisonBuiltin(func(o ordering) bool { return o == equal })},
	{`\==`, 2, comparisonBuiltin(func(o ordering) bool { return o != equal })},
	{"@<", 2, comparisonBuiltin(func(o ordering) bool { return o == less })},
	{"@=<", 2, comparisonBuiltin(func(o ordering) bool { return o != more })},
	{"@>", 2, comparisonBuiltin(func(o ordering) bool { return o == more })},
	{"@>=", 2, comparisonBuiltin(func(o ordering) bool { return o != less })},
	{"compare", 3, builtinCompare},
	{"is", 2, builtinIs},
	{"=:=", 2, arithComparisonBuiltin(func(o ordering) bool { return o == equal })},
	{"=\\=", 2, arithComparisonBuiltin(func(o ordering) bool { return o != equal })},
	{"<", 2, arithComparisonBuiltin(func(o ordering) bool { return o == less })},
	{"=<", 2, arithComparisonBuiltin(func(o ordering) bool { return o != more })},
	{">", 2, arithComparisonBuiltin(func(o ordering) bool { return o == more })},
	{">=", 2, arithComparisonBuiltin(func(o ordering) bool { return o != less })},
	{"var", 1, typeCheckBuiltin(func(c Cell) bool { _, ok := c.(*Ref); return ok })},
	{"nonvar", 1, typeCheckBuiltin(func(c Cell) bool { _, ok := c.(*Ref); return !ok })},
	{"atom", 1, typeCheckBuiltin(func(c Cell) bool { _, ok := c.(WAtom); return ok })},
	{"number", 1, typeCheckBuiltin(isNumberCell)},
	{"integer", 1, typeCheckBuiltin(func(c Cell) bool { _, ok := c.(WInt); return ok })},
	{"float", 1, typeCheckBuiltin(func(c Cell) bool { _, ok := c.(WFloat); return ok })},
	{"atomic", 1, typeCheckBuiltin(func(c Cell) bool { _, ok := c.(Constant); return ok })},
	{"compound", 1, typeCheckBuiltin(isCompoundCell)},
	{"callable", 1, typeCheckBuiltin(isCallableCell)},
	{"is_list", 1, typeCheckBuiltin(isListCell)},
	{"ground", 1, typeCheckBuiltin(isGround)},
	{"functor", 3, builtinFunctor},
	{"arg", 3, builtinArg},
	{"=..", 2, builtinUniv},
	{"copy_term", 2, builtinCopyTerm},
	{"atom_codes", 2, builtinAtomCodes},
	{"atom_length", 2, builtinAtomLength},
	{"throw", 1, builtinThrow},
	{"halt", 0, builtinHalt0},
	{"halt", 1, builtinHalt1},
	{"write", 1, builtinWrite},
	{"nl", 0, builtinNl},
	{"assertz", 1, builtinAssertz},
	{"asserta", 1, builtinAsserta},
	{"retract", 1, builtinRetract},
	{"findall", 3, builtinFindall},
}

// nativeBuiltins indexes native functions by indicator, e.g. "is/2".
var nativeBuiltins = make(map[string]nativeFn)

func init() {
	for _, def := range nativeBuiltinDefs {
		nativeBuiltins[fmt.Sprintf("%s/%d", def.name, def.arity)] = def.fn
	}
}

func (m *Machine) argCell(args []Addr, i int) Cell {
	return deref(m.get(args[i]))
}

func builtinUnify(m *Machine, args []Addr) error {
	return m.unify(m.get(args[0]), m.get(args[1]))
}

func comparisonBuiltin(accept func(ordering) bool) nativeFn {
	return func(m *Machine, args []Addr) error {
		if accept(compareCells(m.get(args[0]), m.get(args[1]))) {
			return nil
		}
		return errBacktrack
	}
}

func builtinCompare(m *Machine, args []Addr) error {
	var name string
	switch compareCells(m.get(args[1]), m.get(args[2])) {
	case less:
		name = "<"
	case equal:
		name = "="
	case more:
		name = ">"
	}
	return m.unify(m.get(args[0]), MakeAtom(name))
}

func builtinIs(m *Machine, args []Addr) error {
	val, err := m.evalArith(m.get(args[1]))
	if err != nil {
		return err
	}
	return m.unify(m.get(args[0]), val)
}

func arithComparisonBuiltin(accept func(ordering) bool) nativeFn {
	return func(m *Machine, args []Addr) error {
		o, err := m.compareArith(m.get(args[0]), m.get(args[1]))
		if err != nil {
			return err
		}
		if accept(o) {
			return nil
		}
		return errBacktrack
	}
}

func typeCheckBuiltin(accept func(Cell) bool) nativeFn {
	return func(m *Machine, args []Addr) error {
		if accept(m.argCell(args, 0)) {
			return nil
		}
		return errBacktrack
	}
}

func isNumberCell(c Cell) bool {
	switch c.(type) {
	case WInt, WFloat, WRat:
		return true
	}
	return false
}

func isCompoundCell(c Cell) bool {
	switch c.(type) {
	case *Struct, *Pair:
		return true
	}
	return false
}

func isCallableCell(c Cell) bool {
	switch c.(type) {
	case WAtom, *Struct:
		return true
	}
	return false
}

func isListCell(c Cell) bool {
	pair, ok := c.(*Pair)
	if !ok {
		return c == Cell(emptyList)
	}
	_, tail := unroll(pair)
	return tail == Cell(emptyList)
}

// ---- Term construction and inspection

func builtinFunctor(m *Machine, args []Addr) error {
	switch t := m.argCell(args, 0).(type) {
	case Constant:
		if err := m.unify(m.get(args[1]), t); err != nil {
			return err
		}
		return m.unify(m.get(args[2]), WInt{Value: bigInt(0)})
	case *Struct:
		if err := m.unify(m.get(args[1]), WAtom(t.Name)); err != nil {
			return err
		}
		return m.unify(m.get(args[2]), WInt{Value: bigInt(int64(len(t.Args)))})
	case *Pair:
		if err := m.unify(m.get(args[1]), MakeAtom(".")); err != nil {
			return err
		}
		return m.unify(m.get(args[2]), WInt{Value: bigInt(2)})
	}
	// First arg unbound: build a term from name and arity.
	name := m.argCell(args, 1)
	arity := m.argCell(args, 2)
	n, ok := arity.(WInt)
	if !ok {
		if _, isRef := arity.(*Ref); isRef {
			return m.throwTerm(instantiationError("functor/3"))
		}
		return m.throwTerm(typeError("integer", fromCell(arity), "functor/3"))
	}
	if !n.Value.IsInt64() || n.Value.Int64() < 0 {
		return m.throwTerm(domainError("not_less_than_zero", fromCell(arity), "functor/3"))
	}
	k := int(n.Value.Int64())
	if k == 0 {
		c, ok := name.(Constant)
		if !ok {
			return m.throwTerm(typeError("atomic", fromCell(name), "functor/3"))
		}
		return m.unify(m.get(args[0]), c)
	}
	a, ok := name.(WAtom)
	if !ok {
		if _, isRef := name.(*Ref); isRef {
			return m.throwTerm(instantiationError("functor/3"))
		}
		return m.throwTerm(typeError("atom", fromCell(name), "functor/3"))
	}
	if a == MakeAtom(".") && k == 2 {
		pair := m.heap.newPair()
		pair.Head = m.heap.newRef()
		pair.Tail = m.heap.newRef()
		return m.unify(m.get(args[0]), pair)
	}
	s := m.heap.newStruct(Functor{Name: atoms.Atom(a), Arity: k})
	for i := range s.Args {
		s.Args[i] = m.heap.newRef()
	}
	return m.unify(m.get(args[0]), s)
}

func builtinArg(m *Machine, args []Addr) error {
	n, ok := m.argCell(args, 0).(WInt)
	if !ok {
		return m.throwTerm(typeError("integer", fromCell(m.argCell(args, 0)), "arg/3"))
	}
	var cells []Cell
	switch t := m.argCell(args, 1).(type) {
	case *Struct:
		cells = t.Args
	case *Pair:
		cells = []Cell{t.Head, t.Tail}
	case *Ref:
		return m.throwTerm(instantiationError("arg/3"))
	default:
		return m.throwTerm(typeError("compound", fromCell(m.argCell(args, 1)), "arg/3"))
	}
	if !n.Value.IsInt64() {
		return errBacktrack
	}
	i := n.Value.Int64()
	if i < 1 || i > int64(len(cells)) {
		return errBacktrack
	}
	return m.unify(m.get(args[2]), cells[i-1])
}

func builtinUniv(m *Machine, args []Addr) error {
	switch t := m.argCell(args, 0).(type) {
	case Constant:
		return m.unify(m.get(args[1]), m.makeList([]Cell{t}))
	case *Struct:
		return m.unify(m.get(args[1]), m.makeList(append([]Cell{WAtom(t.Name)}, t.Args...)))
	case *Pair:
		return m.unify(m.get(args[1]), m.makeList([]Cell{MakeAtom("."), t.Head, t.Tail}))
	}
	// First arg unbound: build a term from the list.
	pair, ok := m.argCell(args, 1).(*Pair)
	if !ok {
		if m.argCell(args, 1) == Cell(emptyList) {
			return m.throwTerm(domainError("non_empty_list", logic.EmptyList, "=../2"))
		}
		return m.throwTerm(instantiationError("=../2"))
	}
	elems, tail := unroll(pair)
	if tail != Cell(emptyList) {
		return m.throwTerm(instantiationError("=../2"))
	}
	if len(elems) == 1 {
		c, ok := elems[0].(Constant)
		if !ok {
			return m.throwTerm(typeError("atomic", fromCell(elems[0]), "=../2"))
		}
		return m.unify(m.get(args[0]), c)
	}
	name, ok := elems[0].(WAtom)
	if !ok {
		return m.throwTerm(typeError("atom", fromCell(elems[0]), "=../2"))
	}
	cells := elems[1:]
	if name == MakeAtom(".") && len(cells) == 2 {
		p := m.heap.newPair()
		p.Head, p.Tail = cells[0], cells[1]
		return m.unify(m.get(args[0]), p)
	}
	s := m.heap.newStruct(Functor{Name: atoms.Atom(name), Arity: len(cells)})
	copy(s.Args, cells)
	return m.unify(m.get(args[0]), s)
}

func (m *Machine) makeList(cells []Cell) Cell {
	var tail Cell = emptyList
	for i := len(cells) - 1; i >= 0; i-- {
		pair := m.heap.newPair()
		pair.Head, pair.Tail = cells[i], tail
		tail = pair
	}
	return tail
}

func builtinCopyTerm(m *Machine, args []Addr) error {
	return m.unify(m.get(args[1]), m.copyCell(m.get(args[0])))
}

func builtinAtomCodes(m *Machine, args []Addr) error {
	switch t := m.argCell(args, 0).(type) {
	case WAtom:
		name := atoms.Atom(t).String()
		runes := []rune(name)
		cells := make([]Cell, len(runes))
		for i, r := range runes {
			cells[i] = WInt{Value: bigInt(int64(r))}
		}
		return m.unify(m.get(args[1]), m.makeList(cells))
	case *Ref:
		// Build the atom from its codes.
	default:
		return m.throwTerm(typeError("atom", fromCell(t), "atom_codes/2"))
	}
	var elems []Cell
	switch l := m.argCell(args, 1).(type) {
	case *Pair:
		var tail Cell
		elems, tail = unroll(l)
		if tail != Cell(emptyList) {
			return m.throwTerm(instantiationError("atom_codes/2"))
		}
	default:
		if m.argCell(args, 1) != Cell(emptyList) {
			return m.throwTerm(instantiationError("atom_codes/2"))
		}
	}
	runes := make([]rune, len(elems))
	for i, c := range elems {
		code, ok := c.(WInt)
		if !ok || !code.Value.IsInt64() {
			return m.throwTerm(typeError("integer", fromCell(c), "atom_codes/2"))
		}
		runes[i] = rune(code.Value.Int64())
	}
	return m.unify(m.get(args[0]), MakeAtom(string(runes)))
}

func builtinAtomLength(m *Machine, args []Addr) error {
	a, ok := m.argCell(args, 0).(WAtom)
	if !ok {
		if _, isRef := m.argCell(args, 0).(*Ref); isRef {
			return m.throwTerm(instantiationError("atom_length/2"))
		}
		return m.throwTerm(typeError("atom", fromCell(m.argCell(args, 0)), "atom_length/2"))
	}
	n := len([]rune(atoms.Atom(a).String()))
	return m.unify(m.get(args[1]), WInt{Value: bigInt(int64(n))})
}

// ---- Exceptions, halting, output

func builtinThrow(m *Machine, args []Addr) error {
	ball := m.argCell(args, 0)
	if _, ok := ball.(*Ref); ok {
		return m.throwTerm(instantiationError("throw/1"))
	}
	return &thrown{ball: ball}
}

func builtinHalt0(m *Machine, args []Addr) error {
	m.status = StatusHalted
	m.haltCode = 0
	return nil
}

func builtinHalt1(m *Machine, args []Addr) error {
	code, ok := m.argCell(args, 0).(WInt)
	if !ok || !code.Value.IsInt64() {
		return m.throwTerm(typeError("integer", fromCell(m.argCell(args, 0)), "halt/1"))
	}
	m.status = StatusHalted
	m.haltCode = int(code.Value.Int64())
	return nil
}

func builtinWrite(m *Machine, args []Addr) error {
	fmt.Fprint(m.out, formatCell(m.get(args[0])))
	return nil
}

func builtinNl(m *Machine, args []Addr) error {
	fmt.Fprintln(m.out)
	return nil
}

// ---- Clause database

// termToClause interprets a term as a program clause.
func termToClause(t logic.Term) (*logic.Clause, error) {
	if comp, ok := t.(*logic.Comp); ok && comp.Functor == ":-" && len(comp.Args) == 2 {
		body := flattenConjunction(comp.Args[1], nil)
		return logic.NewClause(comp.Args[0], body...), nil
	}
	return logic.NewClause(t), nil
}

func (m *Machine) dynamicFunctor(clause *logic.Clause, context string) (Functor, *logic.Clause, error) {
	norm, err := clause.Normalize()
	if err != nil {
		return Functor{}, nil, m.throwTerm(typeError("callable", clause.Head, context))
	}
	f := toFunctor(norm.Head.(*logic.Comp).Indicator())
	if _, dynamic := m.sources[f]; !dynamic && m.code[f] != nil {
		ind := logic.NewComp("/", logic.Atom{Name: f.Name.String()}, logic.NewInt(int64(f.Arity)))
		return Functor{}, nil, m.throwTerm(errorTerm(
			logic.NewComp("permission_error",
				logic.Atom{Name: "modify"},
				logic.Atom{Name: "static_procedure"},
				ind),
			context))
	}
	return f, norm, nil
}

func (m *Machine) assert(args []Addr, front bool) error {
	clause, err := termToClause(fromCell(m.get(args[0])))
	if err != nil {
		return m.throwTerm(typeError("callable", fromCell(m.get(args[0])), "assert/1"))
	}
	f, _, err := m.dynamicFunctor(clause, "assert/1")
	if err != nil {
		return err
	}
	clauses := append([]*logic.Clause{}, m.sources[f]...)
	if front {
		clauses = append([]*logic.Clause{clause}, clauses...)
	} else {
		clauses = append(clauses, clause)
	}
	if err := m.setPredicate(f, clauses); err != nil {
		return m.throwTerm(typeError("callable", clause.Head, "assert/1"))
	}
	return nil
}

func builtinAssertz(m *Machine, args []Addr) error {
	return m.assert(args, false)
}

func builtinAsserta(m *Machine, args []Addr) error {
	return m.assert(args, true)
}

// clauseTerm renders a clause as a ':-'/2 term, with 'true' for an empty
// body.
func clauseTerm(clause *logic.Clause) logic.Term {
	var body logic.Term = logic.Atom{Name: "true"}
	if len(clause.Body) > 0 {
		body = clause.Body[len(clause.Body)-1]
		for i := len(clause.Body) - 2; i >= 0; i-- {
			body = logic.NewComp(",", clause.Body[i], body)
		}
	}
	return logic.NewComp(":-", clause.Head, body)
}

func builtinRetract(m *Machine, args []Addr) error {
	pattern, err := termToClause(fromCell(m.get(args[0])))
	if err != nil {
		return m.throwTerm(typeError("callable", fromCell(m.get(args[0])), "retract/1"))
	}
	f, _, err := m.dynamicFunctor(pattern, "retract/1")
	if err != nil {
		return err
	}
	patternCell := m.get(args[0])
	if _, ok := deref(patternCell).(*Pair); ok {
		return m.throwTerm(typeError("callable", fromCell(patternCell), "retract/1"))
	}
	wrapped := patternCell
	if c, ok := deref(patternCell).(*Struct); !ok || c.Functor() != (Functor{Name: atoms.Intern(":-"), Arity: 2}) {
		s := m.heap.newStruct(Functor{Name: atoms.Intern(":-"), Arity: 2})
		s.Args[0] = patternCell
		s.Args[1] = MakeAtom("true")
		wrapped = s
	}
	for i, src := range m.sources[f] {
		mark := m.trail.mark()
		heapMark := m.heap.mark()
		candidate := m.buildCell(clauseTerm(src), make(map[logic.Var]Cell))
		if err := m.unify(wrapped, candidate); err == nil {
			clauses := append([]*logic.Clause{}, m.sources[f][:i]...)
			clauses = append(clauses, m.sources[f][i+1:]...)
			if err := m.setPredicate(f, clauses); err != nil {
				return m.throwTerm(typeError("callable", src.Head, "retract/1"))
			}
			return nil
		}
		m.trail.resetTo(mark)
		m.heap.resetTo(heapMark)
	}
	return errBacktrack
}

// ---- findall/3

// findall runs the goal to exhaustion on an inner machine that shares this
// machine's code, collecting an instance of the template for each solution.
func builtinFindall(m *Machine, args []Addr) error {
	// Snapshot template and goal together so their shared vars align.
	pair := &Struct{Name: atoms.Intern("-"), Args: []Cell{m.get(args[0]), m.get(args[1])}}
	snap := fromCell(pair).(*logic.Comp)
	template, goal := snap.Args[0], snap.Args[1]
	result := logic.NewVar("_Findall")

	sub := m.subMachine()
	var results []logic.Term
	sol, err := sub.RunQuery(goal, logic.NewComp("=", result, template))
	for err == nil {
		if t := sol.Term(result); t != nil {
			results = append(results, t)
		} else {
			results = append(results, logic.AnonymousVar)
		}
		sol, err = sub.NextSolution()
	}
	if !errors.Is(err, ErrNoMoreSolutions) {
		var prologErr *PrologError
		if errors.As(err, &prologErr) {
			return &thrown{ball: m.buildCell(prologErr.Ball, make(map[logic.Var]Cell))}
		}
		return err
	}
	list := m.buildCell(logic.NewList(results...), make(map[logic.Var]Cell))
	return m.unify(m.get(args[2]), list)
}

// ---- Bootstrap library

func bigInt(i int64) *big.Int { return big.NewInt(i) }

// installPreamble loads the native builtins and the bootstrap clauses.
func (m *Machine) installPreamble() {
	// Native builtin predicates, also reachable by meta-call.
	for _, def := range nativeBuiltinDefs {
		f := Functor{Name: atoms.Intern(def.name), Arity: def.arity}
		addrs := make([]Addr, def.arity)
		for i := range addrs {
			addrs[i] = RegAddr(i)
		}
		m.code[f] = &Clause{
			Functor:      f,
			NumRegisters: def.arity,
			Code: []Instruction{
				Builtin{Name: fmt.Sprintf("%s/%d", def.name, def.arity), Args: addrs, Func: def.fn},
				Proceed{},
			},
		}
	}

	// Control primitives.
	m.code[Functor{atoms.Intern("true"), 0}] = &Clause{
		Functor: Functor{atoms.Intern("true"), 0},
		Code:    []Instruction{Proceed{}},
	}
	m.code[Functor{atoms.Intern("fail"), 0}] = &Clause{
		Functor: Functor{atoms.Intern("fail"), 0},
		Code:    []Instruction{Fail{}},
	}
	m.code[Functor{atoms.Intern("false"), 0}] = &Clause{
		Functor: Functor{atoms.Intern("false"), 0},
		Code:    []Instruction{Fail{}},
	}
	// A cut reached by meta-call commits nothing outside itself.
	m.code[Functor{atoms.Intern("!"), 0}] = &Clause{
		Functor: Functor{atoms.Intern("!"), 0},
		Code:    []Instruction{Proceed{}},
	}

	// call/1..call/8 forward to the meta-call machinery.
	for n := 1; n <= 8; n++ {
		f := Functor{Name: atoms.Intern("call"), Arity: n}
		params := make([]Addr, n-1)
		for i := range params {
			params[i] = RegAddr(i + 1)
		}
		m.code[f] = &Clause{
			Functor:      f,
			NumRegisters: n,
			Code:         []Instruction{ExecuteMeta{Addr: RegAddr(0), Params: params}},
		}
	}

	// catch/3 plants an exception barrier and runs the goal.
	catchFunctor := Functor{Name: atoms.Intern("catch"), Arity: 3}
	m.code[catchFunctor] = &Clause{
		Functor:      catchFunctor,
		NumRegisters: 3,
		Code: []Instruction{
			PushCatch{},
			ExecuteMeta{Addr: RegAddr(0)},
		},
	}

	if err := m.installLibrary(); err != nil {
		panic(fmt.Sprintf("installing bootstrap library: %v", err))
	}
}

// installLibrary compiles the Prolog-defined portion of the bootstrap.
func (m *Machine) installLibrary() error {
	var (
		comp   = dsl.Comp
		atom   = dsl.Atom
		v      = dsl.Var
		clause = dsl.Clause
		ilist  = dsl.IList
	)
	library := [][]*logic.Clause{
		// Meta-called control constructs. Compiled bodies lower these
		// inline; these clauses serve goals built at runtime.
		{
			clause(comp(";", v("CT"), v("Else")),
				comp("nonvar", v("CT")),
				comp("=", v("CT"), comp("->", v("C"), v("T"))),
				atom("!"),
				comp("if_then_else_", v("C"), v("T"), v("Else"))),
			clause(comp(";", v("A"), v("_")), comp("call", v("A"))),
			clause(comp(";", v("_"), v("B")), comp("call", v("B"))),
		},
		{
			clause(comp("->", v("C"), v("T")),
				comp("call", v("C")), atom("!"), comp("call", v("T"))),
		},
		{
			clause(comp("if_then_else_", v("C"), v("T"), v("_")),
				comp("call", v("C")), atom("!"), comp("call", v("T"))),
			clause(comp("if_then_else_", v("_"), v("_"), v("E")),
				comp("call", v("E"))),
		},
		{
			clause(comp(`\+`, v("G")), comp("call", v("G")), atom("!"), atom("fail")),
			clause(comp(`\+`, v("_"))),
		},
		{
			clause(comp("not", v("G")), comp("call", v("G")), atom("!"), atom("fail")),
			clause(comp("not", v("_"))),
		},
		{
			clause(comp(`\=`, v("X"), v("Y")),
				comp(`\+`, comp("=", v("X"), v("Y")))),
		},
		// List library.
		{
			clause(comp("member", v("X"), ilist(v("X"), v("_")))),
			clause(comp("member", v("X"), ilist(v("_"), v("T"))),
				comp("member", v("X"), v("T"))),
		},
		{
			clause(comp("append", atom("[]"), v("L"), v("L"))),
			clause(comp("append", ilist(v("H"), v("T")), v("L"), ilist(v("H"), v("R"))),
				comp("append", v("T"), v("L"), v("R"))),
		},
		{
			clause(comp("length", atom("[]"), dsl.Int(0))),
			clause(comp("length", ilist(v("_"), v("T")), v("N")),
				comp("nonvar", v("N")),
				atom("!"),
				comp(">", v("N"), dsl.Int(0)),
				comp("is", v("N1"), comp("-", v("N"), dsl.Int(1))),
				comp("length", v("T"), v("N1"))),
			clause(comp("length", ilist(v("_"), v("T")), v("N")),
				comp("length", v("T"), v("N1")),
				comp("is", v("N"), comp("+", v("N1"), dsl.Int(1)))),
		},
		{
			clause(comp("reverse", v("L"), v("R")),
				comp("reverse_", v("L"), atom("[]"), v("R"))),
		},
		{
			clause(comp("reverse_", atom("[]"), v("Acc"), v("Acc"))),
			clause(comp("reverse_", ilist(v("H"), v("T")), v("Acc"), v("R")),
				comp("reverse_", v("T"), ilist(v("H"), v("Acc")), v("R"))),
		},
		{
			clause(comp("between", v("L"), v("H"), v("X")),
				comp("nonvar", v("X")),
				atom("!"),
				comp(">=", v("X"), v("L")),
				comp("=<", v("X"), v("H"))),
			clause(comp("between", v("L"), v("H"), v("L")),
				comp("=<", v("L"), v("H"))),
			clause(comp("between", v("L"), v("H"), v("X")),
				comp("<", v("L"), v("H")),
				comp("is", v("L1"), comp("+", v("L"), dsl.Int(1))),
				comp("between", v("L1"), v("H"), v("X"))),
		},
	}
	for _, clauses := range library {
		norm := clauses[0]
		head, err := norm.Normalize()
		if err != nil {
			return err
		}
		f := toFunctor(head.Head.(*logic.Comp).Indicator())
		code, err := compilePredicate(clauses, m.indexing)
		if err != nil {
			return errors.Wrapf(err, "library predicate %v", f)
		}
		m.code[f] = code
	}
	return nil
}
