package wam

import (
	"sort"

	"github.com/brunokim/prolog-engine/logic"
)

// Register allocation follows Debray's algorithm: the clause is split in
// chunks at call boundaries, variables crossing chunks become permanent
// (stack-allocated), and chunk-local temporaries get registers guided by
// use/noUse/conflict sets, trying to place each variable where it's needed
// and away from registers it would clobber.

// ---- Register sets

// regset is a set of register addresses, implemented as a sorted array.
type regset []RegAddr

func (r regset) index(reg RegAddr) (int, bool) {
	i := sort.Search(len(r), func(i int) bool { return r[i] >= reg })
	return i, i < len(r) && r[i] == reg
}

func (r regset) has(reg RegAddr) bool {
	_, ok := r.index(reg)
	return ok
}

func (r regset) add(reg RegAddr) regset {
	i, ok := r.index(reg)
	if ok {
		return r
	}
	r = append(r, -1)
	copy(r[i+1:], r[i:])
	r[i] = reg
	return r
}

func (r regset) remove(reg RegAddr) regset {
	i, ok := r.index(reg)
	if !ok {
		return r
	}
	copy(r[i:], r[i+1:])
	return r[:len(r)-1]
}

func (r regset) union(s regset) regset {
	t := make(regset, len(r), len(r)+len(s))
	copy(t, r)
	for _, x := range s {
		t = t.add(x)
	}
	return t
}

func (r regset) difference(s regset) regset {
	t := make(regset, len(r))
	copy(t, r)
	for _, x := range s {
		t = t.remove(x)
	}
	return t
}

// ---- Goal classification

type goalKind int

const (
	// goalInline goals compile to inline instructions and don't disturb
	// argument registers.
	goalInline goalKind = iota
	// goalCall goals transfer control to another predicate, ending the
	// current chunk.
	goalCall
	// goalControl goals are control constructs lowered inline, which may
	// call predicates from within. They end the current chunk, and their
	// vars are always permanent.
	goalControl
)

var inlineIndicators = map[logic.Indicator]struct{}{
	{Name: "true", Arity: 0}:      {},
	{Name: "fail", Arity: 0}:      {},
	{Name: "false", Arity: 0}:     {},
	{Name: "!", Arity: 0}:         {},
	{Name: "=", Arity: 2}:         {},
	{Name: "==", Arity: 2}:        {},
	{Name: `\==`, Arity: 2}:       {},
	{Name: "@<", Arity: 2}:        {},
	{Name: "@=<", Arity: 2}:       {},
	{Name: "@>", Arity: 2}:        {},
	{Name: "@>=", Arity: 2}:       {},
	{Name: "compare", Arity: 3}:   {},
	{Name: "is", Arity: 2}:        {},
	{Name: "=:=", Arity: 2}:       {},
	{Name: "=\\=", Arity: 2}:      {},
	{Name: "<", Arity: 2}:         {},
	{Name: "=<", Arity: 2}:        {},
	{Name: ">", Arity: 2}:         {},
	{Name: ">=", Arity: 2}:        {},
	{Name: "var", Arity: 1}:       {},
	{Name: "nonvar", Arity: 1}:    {},
	{Name: "atom", Arity: 1}:      {},
	{Name: "number", Arity: 1}:    {},
	{Name: "integer", Arity: 1}:   {},
	{Name: "float", Arity: 1}:     {},
	{Name: "atomic", Arity: 1}:    {},
	{Name: "compound", Arity: 1}:  {},
	{Name: "callable", Arity: 1}:  {},
	{Name: "is_list", Arity: 1}:   {},
	{Name: "functor", Arity: 3}:   {},
	{Name: "arg", Arity: 3}:       {},
	{Name: "=..", Arity: 2}:       {},
	{Name: "copy_term", Arity: 2}: {},
	{Name: "throw", Arity: 1}:     {},
	{Name: "halt", Arity: 0}:      {},
	{Name: "halt", Arity: 1}:      {},
}

var controlIndicators = map[logic.Indicator]struct{}{
	{Name: ";", Arity: 2}:   {},
	{Name: "->", Arity: 2}:  {},
	{Name: `\+`, Arity: 1}:  {},
	{Name: "not", Arity: 1}: {},
}

func goalKindOf(goal *logic.Comp) goalKind {
	ind := goal.Indicator()
	if _, ok := controlIndicators[ind]; ok {
		return goalControl
	}
	if _, ok := inlineIndicators[ind]; ok {
		return goalInline
	}
	return goalCall
}

// ---- Chunks

// chunk is a maximal sequence of inline goals ended by at most one call.
// The first chunk also holds the clause's head.
type chunk struct {
	terms   []logic.Term
	hasHead bool
	// call is the chunk's final goal when it's a plain call, nil for
	// chunks ending in a control construct or in inline goals only.
	call *logic.Comp
}

// splitChunks breaks a normalized clause at its call boundaries.
func splitChunks(clause *logic.Clause) []*chunk {
	cur := &chunk{terms: []logic.Term{clause.Head}, hasHead: true}
	var cs []*chunk
	flush := func() {
		if len(cur.terms) > 0 || cur.hasHead {
			cs = append(cs, cur)
		}
		cur = &chunk{}
	}
	for _, goal := range clause.Body {
		comp := goal.(*logic.Comp)
		switch goalKindOf(comp) {
		case goalInline:
			cur.terms = append(cur.terms, comp)
		case goalCall:
			cur.terms = append(cur.terms, comp)
			cur.call = comp
			flush()
		case goalControl:
			cur.terms = append(cur.terms, comp)
			flush()
		}
	}
	if len(cur.terms) > 0 || cur.hasHead {
		cs = append(cs, cur)
	}
	return cs
}

func (c *chunk) vars() []logic.Var {
	seen := make(map[logic.Var]struct{})
	var xs []logic.Var
	for _, term := range c.terms {
		for _, x := range logic.Vars(term) {
			if _, ok := seen[x]; ok {
				continue
			}
			seen[x] = struct{}{}
			xs = append(xs, x)
		}
	}
	return xs
}

// ---- Clause analysis

type clauseChunks struct {
	chunks     []*chunk
	temps      []logic.Var
	permanents []logic.Var
}

// newClauseChunks computes the clause's chunks and classifies its vars.
// A var is permanent if it occurs in more than one chunk, or within a
// control construct, whose branches may call predicates internally. For
// queries every var is permanent, since their bindings must survive until
// the query halts.
func newClauseChunks(clause *logic.Clause, isQuery bool) *clauseChunks {
	cs := splitChunks(clause)
	count := make(map[logic.Var]int)
	inControl := make(map[logic.Var]struct{})
	for _, c := range cs {
		for _, x := range c.vars() {
			count[x]++
		}
		for _, term := range c.terms {
			comp, ok := term.(*logic.Comp)
			if !ok {
				continue
			}
			if goalKindOf(comp) != goalControl {
				continue
			}
			for _, x := range logic.Vars(comp) {
				inControl[x] = struct{}{}
			}
		}
	}
	var temps, permanents []logic.Var
	for _, x := range clause.Vars() {
		if x.Name == "_" {
			continue
		}
		_, ctrl := inControl[x]
		if isQuery || ctrl || count[x] > 1 {
			permanents = append(permanents, x)
		} else {
			temps = append(temps, x)
		}
	}
	return &clauseChunks{chunks: cs, temps: temps, permanents: permanents}
}

// ---- Per-chunk register sets

type chunkSets struct {
	maxRegs  int
	use      map[logic.Var]regset
	noUse    map[logic.Var]regset
	conflict map[logic.Var]regset
}

// newChunkSets computes, for each temporary var of the chunk:
//
//   - use: argument registers where the var occurs as a top-level arg of
//     the head or of the chunk's call, its preferred homes;
//   - noUse: registers preferred by other vars, avoided to not steal them;
//   - conflict: argument registers of the head and call holding a
//     different term, which the var must not occupy across the argument
//     loading sequence.
func newChunkSets(c *chunk, temps []logic.Var) *chunkSets {
	isTemp := make(map[logic.Var]bool, len(temps))
	for _, x := range temps {
		isTemp[x] = true
	}
	sets := &chunkSets{
		use:      make(map[logic.Var]regset),
		noUse:    make(map[logic.Var]regset),
		conflict: make(map[logic.Var]regset),
	}
	addArgs := func(args []logic.Term) {
		if len(args) > sets.maxRegs {
			sets.maxRegs = len(args)
		}
		for i, arg := range args {
			x, ok := arg.(logic.Var)
			if ok && isTemp[x] {
				sets.use[x] = sets.use[x].add(RegAddr(i))
			}
		}
		for i, arg := range args {
			y, isVar := arg.(logic.Var)
			for _, x := range temps {
				if isVar && y == x {
					continue
				}
				sets.conflict[x] = sets.conflict[x].add(RegAddr(i))
			}
		}
	}
	if c.hasHead {
		if head, ok := c.terms[0].(*logic.Comp); ok {
			addArgs(head.Args)
		}
	}
	if c.call != nil {
		addArgs(c.call.Args)
	}
	for _, x := range temps {
		var others regset
		for _, y := range temps {
			if y == x {
				continue
			}
			others = others.union(sets.use[y])
		}
		sets.noUse[x] = others.difference(sets.use[x])
	}
	return sets
}
