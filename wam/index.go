package wam

import (
	"github.com/pkg/errors"

	"github.com/brunokim/prolog-engine/logic"
)

// ---- Predicate compilation
//
// A predicate's clauses are tried in source order. With indexing enabled,
// maximal runs of clauses whose first head arg is bound compile to a
// dispatch block on the first argument's type and value, creating choice
// points only among clauses that may actually match. Runs are separated by
// clauses with a var first arg, which match anything and break the index.

// failClause forces a backtrack; the target of index misses and exhausted
// barriers.
var failClause = &Clause{
	Functor: Functor{Name: 0, Arity: 0},
	Code:    []Instruction{Fail{}},
}

var failAddr = InstrAddr{Clause: failClause, Pos: 0}

// compilePredicate compiles a predicate's clauses into a single entry
// clause. Clauses must share the same functor.
func compilePredicate(clauses []*logic.Clause, indexing bool) (*Clause, error) {
	if len(clauses) == 0 {
		return nil, errors.New("empty predicate")
	}
	normalized := make([]*logic.Clause, len(clauses))
	compiled := make([]*Clause, len(clauses))
	functor := Functor{}
	for i, clause := range clauses {
		norm, err := clause.Normalize()
		if err != nil {
			return nil, err
		}
		normalized[i] = norm
		c, err := CompileClause(norm)
		if err != nil {
			return nil, errors.Wrapf(err, "clause #%d", i+1)
		}
		if i == 0 {
			functor = c.Functor
		} else if c.Functor != functor {
			return nil, errors.Errorf("clause #%d: functor %v differs from %v", i+1, c.Functor, functor)
		}
		compiled[i] = c
	}
	if len(compiled) == 1 {
		return compiled[0], nil
	}
	if !indexing || functor.Arity == 0 {
		return chainUnits(functor, compiled), nil
	}
	units := splitSubsequences(functor, normalized, compiled)
	return chainUnits(functor, units), nil
}

// splitSubsequences breaks the clause list in maximal indexable runs, and
// compiles each run with more than one clause into an index block.
func splitSubsequences(functor Functor, normalized []*logic.Clause, compiled []*Clause) []*Clause {
	var units []*Clause
	var run []int
	flush := func() {
		if len(run) == 0 {
			return
		}
		if len(run) == 1 {
			units = append(units, compiled[run[0]])
		} else {
			units = append(units, buildIndexBlock(functor, normalized, compiled, run))
		}
		run = nil
	}
	for i, norm := range normalized {
		arg := norm.Head.(*logic.Comp).Args[0]
		if _, ok := arg.(logic.Var); ok {
			flush()
			units = append(units, compiled[i])
			continue
		}
		run = append(run, i)
	}
	flush()
	return units
}

// chainUnits links clause units with try_me_else/retry_me_else/trust_me.
// Each unit keeps its own code; the chain is built from two-instruction
// stubs that set up the choice point and jump into the unit.
func chainUnits(functor Functor, units []*Clause) *Clause {
	if len(units) == 1 {
		return units[0]
	}
	numRegs := 0
	for _, unit := range units {
		if unit.NumRegisters > numRegs {
			numRegs = unit.NumRegisters
		}
	}
	stubs := make([]*Clause, len(units))
	for i := range units {
		stubs[i] = &Clause{Functor: functor, NumRegisters: numRegs}
	}
	for i, unit := range units {
		var link Instruction
		switch {
		case i == 0:
			link = TryMeElse{Alternative: InstrAddr{Clause: stubs[1], Pos: 0}}
		case i == len(units)-1:
			link = TrustMe{}
		default:
			link = RetryMeElse{Alternative: InstrAddr{Clause: stubs[i+1], Pos: 0}}
		}
		stubs[i].Code = []Instruction{link, Jump{Continuation: InstrAddr{Clause: unit, Pos: 0}}}
	}
	return stubs[0]
}

// buildIndexBlock compiles a run of clauses with bound first args into a
// switch on the first argument.
func buildIndexBlock(functor Functor, normalized []*logic.Clause, compiled []*Clause, run []int) *Clause {
	block := &Clause{Functor: functor}
	for _, i := range run {
		if compiled[i].NumRegisters > block.NumRegisters {
			block.NumRegisters = compiled[i].NumRegisters
		}
	}

	var constOrder []constKey
	var structOrder []Functor
	constBuckets := make(map[constKey][]InstrAddr)
	structBuckets := make(map[Functor][]InstrAddr)
	var pairTargets []InstrAddr
	var allTargets []InstrAddr

	for _, i := range run {
		target := InstrAddr{Clause: compiled[i], Pos: 0}
		allTargets = append(allTargets, target)
		arg := normalized[i].Head.(*logic.Comp).Args[0]
		switch t := arg.(type) {
		case logic.Atom, logic.Int, logic.Float, logic.Rational, logic.Str:
			key := keyOf(toConstant(t))
			if _, ok := constBuckets[key]; !ok {
				constOrder = append(constOrder, key)
			}
			constBuckets[key] = append(constBuckets[key], target)
		case *logic.Comp:
			fn := toFunctor(t.Indicator())
			if _, ok := structBuckets[fn]; !ok {
				structOrder = append(structOrder, fn)
			}
			structBuckets[fn] = append(structBuckets[fn], target)
		case *logic.List:
			pairTargets = append(pairTargets, target)
		}
	}

	// Position 0 is the type switch; value switches follow, then the
	// try/retry/trust chains.
	code := []Instruction{SwitchOnTerm{}}
	constPos, structPos := -1, -1
	if len(constBuckets) > 0 {
		constPos = len(code)
		code = append(code, SwitchOnConstant{})
	}
	if len(structBuckets) > 0 {
		structPos = len(code)
		code = append(code, SwitchOnStruct{})
	}

	emitChain := func(targets []InstrAddr) InstrAddr {
		if len(targets) == 1 {
			return targets[0]
		}
		start := len(code)
		code = append(code, Try{Continuation: targets[0]})
		for _, target := range targets[1 : len(targets)-1] {
			code = append(code, Retry{Continuation: target})
		}
		code = append(code, Trust{Continuation: targets[len(targets)-1]})
		return InstrAddr{Clause: block, Pos: start}
	}

	varChain := emitChain(allTargets)
	constMap := make(map[constKey]InstrAddr, len(constBuckets))
	for _, key := range constOrder {
		constMap[key] = emitChain(constBuckets[key])
	}
	structMap := make(map[Functor]InstrAddr, len(structBuckets))
	for _, fn := range structOrder {
		structMap[fn] = emitChain(structBuckets[fn])
	}

	sw := SwitchOnTerm{IfVar: varChain, IfConstant: failAddr, IfStruct: failAddr, IfPair: failAddr}
	if constPos >= 0 {
		sw.IfConstant = InstrAddr{Clause: block, Pos: constPos}
		code[constPos] = SwitchOnConstant{Continuation: constMap}
	}
	if structPos >= 0 {
		sw.IfStruct = InstrAddr{Clause: block, Pos: structPos}
		code[structPos] = SwitchOnStruct{Continuation: structMap}
	}
	if len(pairTargets) > 0 {
		sw.IfPair = emitChain(pairTargets)
	}
	code[0] = sw
	block.Code = code
	return block
}
