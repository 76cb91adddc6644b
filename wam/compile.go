package wam

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/brunokim/prolog-engine/atoms"
	"github.com/brunokim/prolog-engine/logic"
)

// ---- Clause compilation
//
// A clause compiles to a get sequence matching the head args, followed by
// the lowered body goals. Calls load argument registers and transfer
// control; the last call of a body reuses the caller's frame. Control
// constructs compile inline with branch choice points and labeled jumps.

var queryFunctor = Functor{atoms.Intern("<query>"), 0}

// CompileClause compiles a single normalized clause.
func CompileClause(clause *logic.Clause) (*Clause, error) {
	clause, err := clause.Normalize()
	if err != nil {
		return nil, err
	}
	cc := newClauseCompiler(clause, false)
	return cc.compile()
}

// CompileQuery compiles a sequence of goals into a clause that records the
// goals' free vars and halts the machine on success. Query vars are all
// permanent, since their bindings must be read back after the machine
// stops.
func CompileQuery(goals []logic.Term) (*Clause, error) {
	clause, err := logic.NewClause(logic.Atom{Name: "<query>"}, goals...).Normalize()
	if err != nil {
		return nil, err
	}
	cc := newClauseCompiler(clause, true)
	compiled, err := cc.compile()
	if err != nil {
		return nil, err
	}
	compiled.Vars = cc.analysis.permanents
	return compiled, nil
}

type clauseCompiler struct {
	clause   *logic.Clause
	isQuery  bool
	analysis *clauseChunks

	compiled        *Clause
	code            []Instruction
	permanentAddrs  map[logic.Var]StackAddr
	seenPermanents  map[logic.Var]bool
	numLevelSlots   int
	numLabels       int
	needsEnv        bool
	seenCall        bool
	numRegs         int

	chunkIdx int
	cur      *chunkCompiler
}

func newClauseCompiler(clause *logic.Clause, isQuery bool) *clauseCompiler {
	return &clauseCompiler{
		clause:         clause,
		isQuery:        isQuery,
		analysis:       newClauseChunks(clause, isQuery),
		seenPermanents: make(map[logic.Var]bool),
	}
}

func (cc *clauseCompiler) compile() (*Clause, error) {
	head := cc.clause.Head.(*logic.Comp)
	cc.compiled = &Clause{Functor: toFunctor(head.Indicator())}
	if cc.isQuery {
		cc.compiled.Functor = queryFunctor
	}
	cc.permanentAddrs = make(map[logic.Var]StackAddr, len(cc.analysis.permanents))
	for i, x := range cc.analysis.permanents {
		cc.permanentAddrs[x] = StackAddr(i)
	}
	cc.needsEnv = cc.computeNeedsEnv()
	cc.cur = cc.newChunkCompilerAt(0)
	cc.numRegs = len(head.Args)

	if cc.needsEnv {
		// Patched with the level slot count after compilation.
		cc.emit(Allocate{})
	}
	if !cc.isQuery {
		if err := cc.cur.compileHead(head); err != nil {
			return nil, err
		}
	}
	if err := cc.compileBody(cc.clause.Body, true); err != nil {
		return nil, err
	}
	cc.emitEpilogue()
	if cc.needsEnv {
		cc.code[0] = Allocate{NumVars: len(cc.analysis.permanents) + cc.numLevelSlots}
	}
	if err := cc.resolveLabels(); err != nil {
		return nil, err
	}
	cc.compiled.NumPermanent = len(cc.analysis.permanents) + cc.numLevelSlots
	cc.compiled.NumRegisters = cc.numRegs
	cc.compiled.Code = cc.code
	return cc.compiled, nil
}

// computeNeedsEnv reports whether the clause needs an environment frame:
// when it has permanent vars, a cut after the first call, a control
// construct, or any call in non-tail position.
func (cc *clauseCompiler) computeNeedsEnv() bool {
	if len(cc.analysis.permanents) > 0 || cc.isQuery {
		return true
	}
	sawCall := false
	for i, goal := range cc.clause.Body {
		comp := goal.(*logic.Comp)
		switch goalKindOf(comp) {
		case goalControl:
			return true
		case goalCall:
			if i < len(cc.clause.Body)-1 {
				return true
			}
			sawCall = true
		case goalInline:
			if comp.Functor == "!" && sawCall {
				return true
			}
		}
	}
	return false
}

func (cc *clauseCompiler) emit(instrs ...Instruction) {
	cc.code = append(cc.code, instrs...)
}

func (cc *clauseCompiler) emitEpilogue() {
	if cc.isQuery {
		cc.emit(Halt{})
		return
	}
	// A tail call has already transferred control.
	if n := len(cc.code); n > 0 {
		switch cc.code[n-1].(type) {
		case Execute, ExecuteMeta:
			return
		}
	}
	if cc.needsEnv {
		cc.emit(Deallocate{})
	}
	cc.emit(Proceed{})
}

func (cc *clauseCompiler) newLabel() int {
	cc.numLabels++
	return cc.numLabels
}

// labelRef is an unresolved instruction address, patched by resolveLabels.
func (cc *clauseCompiler) labelRef(id int) InstrAddr {
	return InstrAddr{Clause: nil, Pos: id}
}

func (cc *clauseCompiler) newLevelSlot() StackAddr {
	slot := StackAddr(len(cc.analysis.permanents) + cc.numLevelSlots)
	cc.numLevelSlots++
	return slot
}

func (cc *clauseCompiler) newChunkCompilerAt(idx int) *chunkCompiler {
	var sets *chunkSets
	if idx < len(cc.analysis.chunks) {
		sets = newChunkSets(cc.analysis.chunks[idx], cc.analysis.temps)
	} else {
		sets = &chunkSets{
			use:      make(map[logic.Var]regset),
			noUse:    make(map[logic.Var]regset),
			conflict: make(map[logic.Var]regset),
		}
	}
	return &chunkCompiler{parent: cc, sets: sets, regContent: make(map[RegAddr]logic.Term), tempAddrs: make(map[logic.Var]RegAddr)}
}

// nextChunk resets temp register state at a call boundary.
func (cc *clauseCompiler) nextChunk(topLevel bool) {
	if topLevel {
		cc.chunkIdx++
		cc.cur = cc.newChunkCompilerAt(cc.chunkIdx)
	} else {
		cc.cur = cc.newChunkCompilerAt(len(cc.analysis.chunks))
	}
}

// ---- Body compilation

func goalComp(term logic.Term) (*logic.Comp, error) {
	switch t := term.(type) {
	case logic.Atom:
		return logic.NewComp(t.Name), nil
	case logic.Var:
		return logic.NewComp("call", t), nil
	case *logic.Comp:
		return t, nil
	default:
		return nil, errors.Errorf("goal is not callable: %v", term)
	}
}

// flattenConjunction expands ','/2 terms into a goal list.
func flattenConjunction(term logic.Term, goals []logic.Term) []logic.Term {
	if comp, ok := term.(*logic.Comp); ok && comp.Functor == "," && len(comp.Args) == 2 {
		goals = flattenConjunction(comp.Args[0], goals)
		return flattenConjunction(comp.Args[1], goals)
	}
	return append(goals, term)
}

func (cc *clauseCompiler) compileBody(goals []logic.Term, topLevel bool) error {
	for i, goal := range goals {
		comp, err := goalComp(goal)
		if err != nil {
			return err
		}
		isLast := topLevel && i == len(goals)-1
		switch goalKindOf(comp) {
		case goalInline:
			if err := cc.compileInline(comp); err != nil {
				return err
			}
		case goalCall:
			if err := cc.compileCall(comp, isLast); err != nil {
				return err
			}
			cc.nextChunk(topLevel)
		case goalControl:
			if err := cc.compileControl(comp); err != nil {
				return err
			}
			cc.nextChunk(topLevel)
		}
	}
	return nil
}

func (cc *clauseCompiler) compileInline(goal *logic.Comp) error {
	switch goal.Indicator() {
	case logic.Indicator{Name: "true", Arity: 0}:
		return nil
	case logic.Indicator{Name: "fail", Arity: 0}, logic.Indicator{Name: "false", Arity: 0}:
		cc.emit(Fail{})
		return nil
	case logic.Indicator{Name: "!", Arity: 0}:
		if cc.seenCall || cc.isQuery {
			cc.emit(Cut{})
		} else {
			cc.emit(NeckCut{})
		}
		return nil
	}
	name := goal.Indicator().String()
	fn, ok := nativeBuiltins[name]
	if !ok {
		return errors.Errorf("unknown inline builtin %s", name)
	}
	addrs := make([]Addr, len(goal.Args))
	for i, arg := range goal.Args {
		addr, err := cc.cur.termAddr(arg)
		if err != nil {
			return err
		}
		addrs[i] = addr
	}
	cc.emit(Builtin{Name: name, Args: addrs, Func: fn})
	return nil
}

func (cc *clauseCompiler) compileCall(goal *logic.Comp, isLast bool) error {
	if err := cc.cur.putCallArgs(goal); err != nil {
		return err
	}
	f := toFunctor(goal.Indicator())
	if len(goal.Args) > cc.numRegs {
		cc.numRegs = len(goal.Args)
	}
	lastCall := isLast && !cc.isQuery
	if lastCall {
		if cc.needsEnv {
			cc.emit(Deallocate{})
		}
		cc.emit(Execute{Functor: f})
	} else {
		cc.emit(Call{Functor: f})
	}
	cc.seenCall = true
	return nil
}

// compileControl lowers disjunction, if-then-else and negation inline.
//
// If-then-else and negation save the current choice point in a hidden
// stack slot before creating the branch point, and commit to it once the
// condition succeeds.
func (cc *clauseCompiler) compileControl(goal *logic.Comp) error {
	// Within a branch, a cut must commit through the environment's saved
	// choice point, never the machine's cut register.
	cc.seenCall = true
	switch goal.Indicator() {
	case logic.Indicator{Name: ";", Arity: 2}:
		if cond, ok := goal.Args[0].(*logic.Comp); ok && cond.Functor == "->" && len(cond.Args) == 2 {
			return cc.compileIfThenElse(cond.Args[0], cond.Args[1], goal.Args[1])
		}
		return cc.compileDisjunction(goal.Args[0], goal.Args[1])
	case logic.Indicator{Name: "->", Arity: 2}:
		return cc.compileIfThenElse(goal.Args[0], goal.Args[1], logic.Atom{Name: "fail"})
	case logic.Indicator{Name: `\+`, Arity: 1}, logic.Indicator{Name: "not", Arity: 1}:
		return cc.compileNegation(goal.Args[0])
	}
	return errors.Errorf("unhandled control construct %v", goal.Indicator())
}

func (cc *clauseCompiler) compileDisjunction(left, right logic.Term) error {
	l1, l2, end := cc.newLabel(), cc.newLabel(), cc.newLabel()
	cc.emit(
		Try{Continuation: cc.labelRef(l1)},
		Trust{Continuation: cc.labelRef(l2)},
		Label{ID: l1})
	cc.nextChunk(false)
	if err := cc.compileBody(flattenConjunction(left, nil), false); err != nil {
		return err
	}
	cc.emit(Jump{Continuation: cc.labelRef(end)}, Label{ID: l2})
	cc.nextChunk(false)
	if err := cc.compileBody(flattenConjunction(right, nil), false); err != nil {
		return err
	}
	cc.emit(Label{ID: end})
	cc.nextChunk(false)
	return nil
}

func (cc *clauseCompiler) compileIfThenElse(cond, then, els logic.Term) error {
	level := cc.newLevelSlot()
	l1, l2, end := cc.newLabel(), cc.newLabel(), cc.newLabel()
	cc.emit(
		GetLevel{Addr: level},
		Try{Continuation: cc.labelRef(l1)},
		Trust{Continuation: cc.labelRef(l2)},
		Label{ID: l1})
	cc.nextChunk(false)
	if err := cc.compileBody(flattenConjunction(cond, nil), false); err != nil {
		return err
	}
	cc.emit(CutTo{Addr: level})
	cc.nextChunk(false)
	if err := cc.compileBody(flattenConjunction(then, nil), false); err != nil {
		return err
	}
	cc.emit(Jump{Continuation: cc.labelRef(end)}, Label{ID: l2})
	cc.nextChunk(false)
	if err := cc.compileBody(flattenConjunction(els, nil), false); err != nil {
		return err
	}
	cc.emit(Label{ID: end})
	cc.nextChunk(false)
	return nil
}

func (cc *clauseCompiler) compileNegation(goal logic.Term) error {
	level := cc.newLevelSlot()
	l1, end := cc.newLabel(), cc.newLabel()
	cc.emit(
		GetLevel{Addr: level},
		Try{Continuation: cc.labelRef(l1)},
		Trust{Continuation: cc.labelRef(end)},
		Label{ID: l1})
	cc.nextChunk(false)
	if err := cc.compileBody(flattenConjunction(goal, nil), false); err != nil {
		return err
	}
	cc.emit(
		CutTo{Addr: level},
		Fail{},
		Label{ID: end})
	cc.nextChunk(false)
	return nil
}

// ---- Label resolution

// resolveLabels strips label pseudo-instructions and patches jump targets,
// which were encoded as clause-less instruction addresses.
func (cc *clauseCompiler) resolveLabels() error {
	positions := make(map[int]int)
	var code []Instruction
	for _, instr := range cc.code {
		if label, ok := instr.(Label); ok {
			positions[label.ID] = len(code)
			continue
		}
		code = append(code, instr)
	}
	resolve := func(ia InstrAddr) (InstrAddr, error) {
		if ia.Clause != nil {
			return ia, nil
		}
		pos, ok := positions[ia.Pos]
		if !ok {
			return ia, errors.Errorf("unresolved label %d", ia.Pos)
		}
		return InstrAddr{Clause: cc.compiled, Pos: pos}, nil
	}
	for i, instr := range code {
		var err error
		switch in := instr.(type) {
		case Try:
			in.Continuation, err = resolve(in.Continuation)
			code[i] = in
		case Retry:
			in.Continuation, err = resolve(in.Continuation)
			code[i] = in
		case Trust:
			in.Continuation, err = resolve(in.Continuation)
			code[i] = in
		case Jump:
			in.Continuation, err = resolve(in.Continuation)
			code[i] = in
		}
		if err != nil {
			return err
		}
	}
	cc.code = code
	return nil
}

// ---- Chunk compilation

type delayedComplexTerm struct {
	term     logic.Term
	register RegAddr
}

// chunkCompiler tracks register usage within a single chunk.
type chunkCompiler struct {
	parent *clauseCompiler
	sets   *chunkSets

	tempAddrs  map[logic.Var]RegAddr
	regContent map[RegAddr]logic.Term

	delayed []delayedComplexTerm
}

func (ch *chunkCompiler) emit(instrs ...Instruction) {
	ch.parent.emit(instrs...)
}

func (ch *chunkCompiler) setReg(reg RegAddr, term logic.Term) {
	ch.regContent[reg] = term
	if int(reg)+1 > ch.parent.numRegs {
		ch.parent.numRegs = int(reg) + 1
	}
}

// allocReg picks a register for x: a free register among its preferred
// (use) set if possible, otherwise the lowest free register that's neither
// preferred by others nor conflicting, otherwise a fresh one past all
// conflicts.
func (ch *chunkCompiler) allocReg(x logic.Var) RegAddr {
	use, noUse, conflict := ch.sets.use[x], ch.sets.noUse[x], ch.sets.conflict[x]
	for _, reg := range use {
		if _, busy := ch.regContent[reg]; !busy {
			ch.setReg(reg, x)
			return reg
		}
	}
	for reg := RegAddr(0); ; reg++ {
		if _, busy := ch.regContent[reg]; busy {
			continue
		}
		if noUse.has(reg) || conflict.has(reg) {
			continue
		}
		ch.setReg(reg, x)
		return reg
	}
}

// scratchReg picks a free register at or above min, for intermediate
// structures.
func (ch *chunkCompiler) scratchReg(min RegAddr) RegAddr {
	for reg := min; ; reg++ {
		if _, busy := ch.regContent[reg]; !busy {
			ch.setReg(reg, nil)
			return reg
		}
	}
}

func isAnonymous(x logic.Var) bool {
	return x.Name == "_"
}

// varAddr returns the address assigned to x, allocating a register on
// first occurrence. Returns whether this is the var's first occurrence.
func (ch *chunkCompiler) varAddr(x logic.Var) (Addr, bool) {
	if slot, ok := ch.parent.permanentAddrs[x]; ok {
		first := !ch.parent.seenPermanents[x]
		ch.parent.seenPermanents[x] = true
		return slot, first
	}
	if reg, ok := ch.tempAddrs[x]; ok {
		return reg, false
	}
	reg := ch.allocReg(x)
	ch.tempAddrs[x] = reg
	ch.setReg(reg, x)
	return reg, true
}

// ---- Head matching (get sequence)

func (ch *chunkCompiler) compileHead(head *logic.Comp) error {
	for i, arg := range head.Args {
		reg := RegAddr(i)
		ch.setReg(reg, arg)
		if err := ch.getTerm(arg, reg); err != nil {
			return err
		}
	}
	return ch.flushDelayed()
}

func (ch *chunkCompiler) getTerm(term logic.Term, reg RegAddr) error {
	switch t := term.(type) {
	case logic.Atom, logic.Int, logic.Float, logic.Rational, logic.Str:
		ch.emit(GetConstant{Constant: toConstant(t), ArgAddr: reg})
	case logic.Var:
		if isAnonymous(t) {
			return nil
		}
		if slot, ok := ch.parent.permanentAddrs[t]; ok {
			if !ch.parent.seenPermanents[t] {
				ch.parent.seenPermanents[t] = true
				ch.emit(GetVariable{Addr: slot, ArgAddr: reg})
			} else {
				ch.emit(GetValue{Addr: slot, ArgAddr: reg})
			}
			return nil
		}
		if reg2, ok := ch.tempAddrs[t]; ok {
			ch.emit(GetValue{Addr: reg2, ArgAddr: reg})
			return nil
		}
		// Temp var in head position stays in its argument register.
		ch.tempAddrs[t] = reg
		ch.setReg(reg, t)
	case *logic.Comp:
		ch.emit(GetStruct{Functor: toFunctor(t.Indicator()), ArgAddr: reg})
		return ch.unifyArgs(t.Args)
	case *logic.List:
		ch.emit(GetPair{ArgAddr: reg})
		head, tail := unconsList(t)
		return ch.unifyArgs([]logic.Term{head, tail})
	default:
		return errors.Errorf("getTerm: unhandled term type %T (%v)", term, term)
	}
	return nil
}

// unconsList splits a list term in its first element and the rest.
func unconsList(l *logic.List) (logic.Term, logic.Term) {
	return l.Terms[0], l.Slice(1)
}

func (ch *chunkCompiler) unifyArgs(args []logic.Term) error {
	voids := 0
	flushVoids := func() {
		if voids > 0 {
			ch.emit(UnifyVoid{NumVars: voids})
			voids = 0
		}
	}
	for _, arg := range args {
		switch t := arg.(type) {
		case logic.Atom, logic.Int, logic.Float, logic.Rational, logic.Str:
			flushVoids()
			ch.emit(UnifyConstant{Constant: toConstant(t)})
		case logic.Var:
			if isAnonymous(t) {
				voids++
				continue
			}
			flushVoids()
			addr, first := ch.varAddr(t)
			if first {
				ch.emit(UnifyVariable{Addr: addr})
			} else {
				ch.emit(UnifyValue{Addr: addr})
			}
		case *logic.Comp, *logic.List:
			flushVoids()
			reg := ch.scratchReg(0)
			ch.emit(UnifyVariable{Addr: reg})
			ch.delayed = append(ch.delayed, delayedComplexTerm{arg, reg})
		default:
			return errors.Errorf("unifyArgs: unhandled term type %T (%v)", arg, arg)
		}
	}
	flushVoids()
	return nil
}

// flushDelayed emits get sequences for nested structs, breadth-first.
func (ch *chunkCompiler) flushDelayed() error {
	for len(ch.delayed) > 0 {
		d := ch.delayed[0]
		ch.delayed = ch.delayed[1:]
		switch t := d.term.(type) {
		case *logic.Comp:
			ch.emit(GetStruct{Functor: toFunctor(t.Indicator()), ArgAddr: d.register})
			if err := ch.unifyArgs(t.Args); err != nil {
				return err
			}
		case *logic.List:
			ch.emit(GetPair{ArgAddr: d.register})
			head, tail := unconsList(t)
			if err := ch.unifyArgs([]logic.Term{head, tail}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ---- Call argument loading (put sequence)

func (ch *chunkCompiler) putCallArgs(goal *logic.Comp) error {
	numArgs := len(goal.Args)
	ch.moveClobberedTemps(goal)
	for i, arg := range goal.Args {
		if err := ch.putTerm(arg, RegAddr(i), RegAddr(numArgs)); err != nil {
			return err
		}
	}
	return nil
}

// moveClobberedTemps relocates live temps residing in argument registers
// that the upcoming call will overwrite with a different term.
func (ch *chunkCompiler) moveClobberedTemps(goal *logic.Comp) {
	numArgs := RegAddr(len(goal.Args))
	occurs := make(map[logic.Var]bool)
	for _, x := range logic.Vars(goal) {
		occurs[x] = true
	}
	var clobbered []logic.Var
	for x, reg := range ch.tempAddrs {
		if reg >= numArgs || !occurs[x] {
			continue
		}
		if arg, ok := goal.Args[int(reg)].(logic.Var); ok && arg == x {
			continue
		}
		clobbered = append(clobbered, x)
	}
	sort.Slice(clobbered, func(i, j int) bool {
		return ch.tempAddrs[clobbered[i]] < ch.tempAddrs[clobbered[j]]
	})
	for _, x := range clobbered {
		reg := ch.tempAddrs[x]
		dest := ch.scratchReg(numArgs)
		ch.emit(GetVariable{Addr: dest, ArgAddr: reg})
		delete(ch.regContent, reg)
		ch.tempAddrs[x] = dest
		ch.setReg(dest, x)
	}
}

func (ch *chunkCompiler) putTerm(term logic.Term, reg RegAddr, scratchMin RegAddr) error {
	switch t := term.(type) {
	case logic.Atom, logic.Int, logic.Float, logic.Rational, logic.Str:
		ch.emit(PutConstant{Constant: toConstant(t), ArgAddr: reg})
		ch.setReg(reg, t)
	case logic.Var:
		if isAnonymous(t) {
			ch.emit(PutVariable{Addr: reg, ArgAddr: reg})
			ch.setReg(reg, nil)
			return nil
		}
		addr, first := ch.varAddr(t)
		if first {
			ch.emit(PutVariable{Addr: addr, ArgAddr: reg})
		} else if addr != Addr(reg) {
			ch.emit(PutValue{Addr: addr, ArgAddr: reg})
		}
		ch.setReg(reg, t)
	case *logic.Comp:
		args, err := ch.putNestedArgs(t.Args, scratchMin)
		if err != nil {
			return err
		}
		ch.emit(PutStruct{Functor: toFunctor(t.Indicator()), ArgAddr: reg})
		ch.setReg(reg, t)
		return ch.unifyPutArgs(t.Args, args)
	case *logic.List:
		head, tail := unconsList(t)
		pairArgs := []logic.Term{head, tail}
		args, err := ch.putNestedArgs(pairArgs, scratchMin)
		if err != nil {
			return err
		}
		ch.emit(PutPair{ArgAddr: reg})
		ch.setReg(reg, t)
		return ch.unifyPutArgs(pairArgs, args)
	default:
		return errors.Errorf("putTerm: unhandled term type %T (%v)", term, term)
	}
	return nil
}

// putNestedArgs builds nested compound args bottom-up in scratch registers,
// returning the register for each compound arg (or -1 for simple args).
func (ch *chunkCompiler) putNestedArgs(args []logic.Term, scratchMin RegAddr) ([]RegAddr, error) {
	regs := make([]RegAddr, len(args))
	for i, arg := range args {
		regs[i] = -1
		switch arg.(type) {
		case *logic.Comp, *logic.List:
			reg := ch.scratchReg(scratchMin)
			if err := ch.putTerm(arg, reg, scratchMin); err != nil {
				return nil, err
			}
			regs[i] = reg
		}
	}
	return regs, nil
}

func (ch *chunkCompiler) unifyPutArgs(args []logic.Term, nested []RegAddr) error {
	voids := 0
	flushVoids := func() {
		if voids > 0 {
			ch.emit(UnifyVoid{NumVars: voids})
			voids = 0
		}
	}
	for i, arg := range args {
		if nested[i] >= 0 {
			flushVoids()
			ch.emit(UnifyValue{Addr: nested[i]})
			continue
		}
		switch t := arg.(type) {
		case logic.Atom, logic.Int, logic.Float, logic.Rational, logic.Str:
			flushVoids()
			ch.emit(UnifyConstant{Constant: toConstant(t)})
		case logic.Var:
			if isAnonymous(t) {
				voids++
				continue
			}
			flushVoids()
			addr, first := ch.varAddr(t)
			if first {
				ch.emit(UnifyVariable{Addr: addr})
			} else {
				ch.emit(UnifyValue{Addr: addr})
			}
		default:
			return errors.Errorf("unifyPutArgs: unhandled term type %T (%v)", arg, arg)
		}
	}
	flushVoids()
	return nil
}

// termAddr makes the term addressable for an inline builtin, loading it
// into a register if necessary.
func (ch *chunkCompiler) termAddr(term logic.Term) (Addr, error) {
	switch t := term.(type) {
	case logic.Atom, logic.Int, logic.Float, logic.Rational, logic.Str:
		reg := ch.scratchReg(0)
		ch.emit(PutConstant{Constant: toConstant(t), ArgAddr: reg})
		return reg, nil
	case logic.Var:
		if isAnonymous(t) {
			reg := ch.scratchReg(0)
			ch.emit(PutVariable{Addr: reg, ArgAddr: reg})
			return reg, nil
		}
		addr, first := ch.varAddr(t)
		if first {
			if reg, ok := addr.(RegAddr); ok {
				ch.emit(PutVariable{Addr: reg, ArgAddr: reg})
			} else {
				reg := ch.scratchReg(0)
				ch.emit(PutVariable{Addr: addr, ArgAddr: reg})
			}
		}
		return addr, nil
	case *logic.Comp, *logic.List:
		reg := ch.scratchReg(0)
		if err := ch.putTerm(term, reg, 0); err != nil {
			return nil, err
		}
		return reg, nil
	default:
		return nil, errors.Errorf("termAddr: unhandled term type %T (%v)", term, term)
	}
}

// toConstant converts an atomic term to its constant cell.
func toConstant(term logic.Term) Constant {
	switch t := term.(type) {
	case logic.Atom:
		return MakeAtom(t.Name)
	case logic.Int:
		return WInt{t.Value}
	case logic.Float:
		return WFloat(t.Value)
	case logic.Rational:
		return WRat{t.Value}
	case logic.Str:
		return WString(t.Value)
	default:
		panic(errors.Errorf("toConstant: not an atomic term: %v", term))
	}
}
