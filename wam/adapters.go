package wam

import (
	"fmt"

	"github.com/brunokim/prolog-engine/atoms"
	"github.com/brunokim/prolog-engine/logic"
)

// ---- Functors

func toFunctor(ind logic.Indicator) Functor {
	return Functor{atoms.Intern(ind.Name), ind.Arity}
}

func (f Functor) toIndicator() logic.Indicator {
	return logic.Indicator{Name: f.Name.String(), Arity: f.Arity}
}

// ---- Cells to terms

// fromCell converts a cell into a logic term. Unbound refs become vars named
// after their heap id. When the cell graph loops back into itself, the loop
// is broken with an '_S<n>' var, so the resulting term is always a tree.
func fromCell(c Cell) logic.Term {
	conv := &cellConverter{
		backRefs: make(map[Cell]logic.Var),
		onPath:   make(map[Cell]bool),
	}
	return conv.convert(c)
}

type cellConverter struct {
	backRefs map[Cell]logic.Var
	onPath   map[Cell]bool
	numLoops int
}

func (conv *cellConverter) convert(c Cell) logic.Term {
	c = deref(c)
	switch t := c.(type) {
	case WAtom:
		return logic.Atom{Name: atoms.Atom(t).String()}
	case WInt:
		return logic.NewBigInt(t.Value)
	case WFloat:
		return logic.NewFloat(float64(t))
	case WRat:
		return logic.Rational{Value: t.Value}
	case WString:
		return logic.Str{Value: string(t)}
	case *Ref:
		return logic.NewVar(fmt.Sprintf("_X%d", t.id))
	case *Struct:
		if x, ok := conv.enter(c); ok {
			return x
		}
		args := make([]logic.Term, len(t.Args))
		for i, arg := range t.Args {
			args[i] = conv.convert(arg)
		}
		conv.leave(c)
		return logic.NewComp(t.Name.String(), args...)
	case *Pair:
		if x, ok := conv.enter(c); ok {
			return x
		}
		head := conv.convert(t.Head)
		tail := conv.convert(t.Tail)
		conv.leave(c)
		return logic.NewIncompleteList([]logic.Term{head}, tail)
	default:
		panic(fmt.Sprintf("fromCell: unhandled type %T (%v)", c, c))
	}
}

func (conv *cellConverter) enter(c Cell) (logic.Var, bool) {
	if conv.onPath[c] {
		x, ok := conv.backRefs[c]
		if !ok {
			conv.numLoops++
			x = logic.NewVar(fmt.Sprintf("_S%d", conv.numLoops))
			conv.backRefs[c] = x
		}
		return x, true
	}
	conv.onPath[c] = true
	return logic.Var{}, false
}

func (conv *cellConverter) leave(c Cell) {
	delete(conv.onPath, c)
}

// ---- Terms to cells

// buildCell builds a heap representation of a term. Vars map to refs via
// varCells, which is populated with fresh refs for unseen vars.
func (m *Machine) buildCell(t logic.Term, varCells map[logic.Var]Cell) Cell {
	switch term := t.(type) {
	case logic.Atom:
		return MakeAtom(term.Name)
	case logic.Int:
		return WInt{term.Value}
	case logic.Float:
		return WFloat(term.Value)
	case logic.Rational:
		return WRat{term.Value}
	case logic.Str:
		return WString(term.Value)
	case logic.Var:
		if c, ok := varCells[term]; ok {
			return c
		}
		ref := m.heap.newRef()
		varCells[term] = ref
		return ref
	case *logic.Comp:
		s := m.heap.newStruct(Functor{atoms.Intern(term.Functor), len(term.Args)})
		for i, arg := range term.Args {
			s.Args[i] = m.buildCell(arg, varCells)
		}
		return s
	case *logic.List:
		var tail Cell = m.buildCell(term.Tail, varCells)
		for i := len(term.Terms) - 1; i >= 0; i-- {
			pair := m.heap.newPair()
			pair.Head = m.buildCell(term.Terms[i], varCells)
			pair.Tail = tail
			tail = pair
		}
		return tail
	default:
		panic(fmt.Sprintf("buildCell: unhandled type %T (%v)", t, t))
	}
}

// ---- Copies

// copyCell makes a fresh copy of a term on the heap, with new unbound refs
// in place of the original's. Shared substructure and loops are preserved.
func (m *Machine) copyCell(c Cell) Cell {
	return m.copyCellWith(c, make(map[Cell]Cell))
}

func (m *Machine) copyCellWith(c Cell, memo map[Cell]Cell) Cell {
	c = deref(c)
	if copied, ok := memo[c]; ok {
		return copied
	}
	switch t := c.(type) {
	case Constant:
		return c
	case *Ref:
		ref := m.heap.newRef()
		memo[c] = ref
		return ref
	case *Struct:
		s := m.heap.newStruct(t.Functor())
		memo[c] = s
		for i, arg := range t.Args {
			s.Args[i] = m.copyCellWith(arg, memo)
		}
		return s
	case *Pair:
		pair := m.heap.newPair()
		memo[c] = pair
		pair.Head = m.copyCellWith(t.Head, memo)
		pair.Tail = m.copyCellWith(t.Tail, memo)
		return pair
	default:
		panic(fmt.Sprintf("copyCell: unhandled type %T (%v)", c, c))
	}
}

// copyOffHeap copies a term into cells that don't belong to any heap arena,
// so the copy survives a heap reset. Used for exception balls, which outlive
// the state rollback to their catch barrier. Off-heap refs keep id 0, which
// makes any binding to them unconditional for trailing purposes.
func copyOffHeap(c Cell) Cell {
	return copyOffHeapWith(c, make(map[Cell]Cell))
}

func copyOffHeapWith(c Cell, memo map[Cell]Cell) Cell {
	c = deref(c)
	if copied, ok := memo[c]; ok {
		return copied
	}
	switch t := c.(type) {
	case Constant:
		return c
	case *Ref:
		ref := &Ref{}
		memo[c] = ref
		return ref
	case *Struct:
		s := &Struct{Name: t.Name, Args: make([]Cell, len(t.Args))}
		memo[c] = s
		for i, arg := range t.Args {
			s.Args[i] = copyOffHeapWith(arg, memo)
		}
		return s
	case *Pair:
		pair := &Pair{}
		memo[c] = pair
		pair.Head = copyOffHeapWith(t.Head, memo)
		pair.Tail = copyOffHeapWith(t.Tail, memo)
		return pair
	default:
		panic(fmt.Sprintf("copyOffHeap: unhandled type %T (%v)", c, c))
	}
}
