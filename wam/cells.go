package wam

import (
	"fmt"
	"math/big"

	"github.com/brunokim/prolog-engine/atoms"
	"github.com/brunokim/prolog-engine/logic"
)

// ---- Heap cells
//
// A term in the machine is a graph of tagged cells. The closed set of cell
// kinds lets unification, comparison and printing switch exhaustively.

// Cell represents a term within the machine's heap.
type Cell interface {
	fmt.Stringer
	isCell()
}

// Constant represents an immutable atomic cell: atom, integer, float,
// rational or string.
type Constant interface {
	Cell
	isConstant()
}

// Ref represents a variable indirection. When it's unbound, the Cell
// field is nil; otherwise, it points to another heap cell.
type Ref struct {
	Cell Cell
	id   int
}

// Struct represents a compound term.
type Struct struct {
	Name atoms.Atom
	Args []Cell
}

// Pair represents a list cons cell.
type Pair struct {
	Head, Tail Cell
}

// WAtom is an interned atom cell.
type WAtom atoms.Atom

// WInt is an arbitrary-precision integer cell.
type WInt struct {
	Value *big.Int
}

// WFloat is a floating-point cell.
type WFloat float64

// WRat is an exact rational cell.
type WRat struct {
	Value *big.Rat
}

// WString is a string cell.
type WString string

// cutBarrier is an internal cell holding a choice point, used by the
// compiled code of if-then-else and negation to commit to a branch.
// It never appears within a user term.
type cutBarrier struct {
	cp *ChoicePoint
}

func (c *Ref) isCell()      {}
func (c *Struct) isCell()   {}
func (c *Pair) isCell()     {}
func (c WAtom) isCell()     {}
func (c WInt) isCell()      {}
func (c WFloat) isCell()    {}
func (c WRat) isCell()      {}
func (c WString) isCell()   {}
func (c cutBarrier) isCell() {}

func (c WAtom) isConstant()   {}
func (c WInt) isConstant()    {}
func (c WFloat) isConstant()  {}
func (c WRat) isConstant()    {}
func (c WString) isConstant() {}

// MakeAtom interns name and returns its atom cell.
func MakeAtom(name string) WAtom {
	return WAtom(atoms.Intern(name))
}

var emptyList = MakeAtom("[]")

// Functor represents a functor's name and arity. The name is interned.
type Functor struct {
	Name  atoms.Atom
	Arity int
}

func (f Functor) String() string {
	return fmt.Sprintf("%s/%d", logic.FormatAtom(f.Name.String()), f.Arity)
}

// Functor returns the f/n notation of a struct.
func (c *Struct) Functor() Functor {
	return Functor{c.Name, len(c.Args)}
}

// ---- Constant identity

// constEq reports whether two constants are identical: same kind, same value.
// Note that 1 and 1.0 are different constants.
func constEq(c1, c2 Constant) bool {
	switch t1 := c1.(type) {
	case WAtom:
		t2, ok := c2.(WAtom)
		return ok && t1 == t2
	case WInt:
		t2, ok := c2.(WInt)
		return ok && t1.Value.Cmp(t2.Value) == 0
	case WFloat:
		t2, ok := c2.(WFloat)
		return ok && t1 == t2
	case WRat:
		t2, ok := c2.(WRat)
		return ok && t1.Value.Cmp(t2.Value) == 0
	case WString:
		t2, ok := c2.(WString)
		return ok && t1 == t2
	default:
		panic(fmt.Sprintf("constEq: unhandled type %T (%v)", c1, c1))
	}
}

// constKey is a canonical map key for a constant, used by indexing.
type constKey string

func keyOf(c Constant) constKey {
	switch t := c.(type) {
	case WAtom:
		return constKey("a:" + atoms.Atom(t).String())
	case WInt:
		return constKey("i:" + t.Value.String())
	case WFloat:
		return constKey(fmt.Sprintf("f:%g", float64(t)))
	case WRat:
		return constKey("r:" + t.Value.String())
	case WString:
		return constKey("s:" + string(t))
	default:
		panic(fmt.Sprintf("keyOf: unhandled type %T (%v)", c, c))
	}
}

// ---- Dereference

// deref walks the reference chain until it finds a non-ref cell, or an
// unbound ref.
func deref(cell Cell) Cell {
	ref, ok := cell.(*Ref)
	for ok && ref.Cell != nil {
		cell = ref.Cell
		ref, ok = cell.(*Ref)
	}
	return cell
}

// ---- Groundness and list traversal

// isGround returns whether cell and its component cells are ground, that is,
// there's no unbound reference within.
func isGround(cell Cell) bool {
	stack := []Cell{cell}
	seen := make(map[Cell]struct{})
	for len(stack) > 0 {
		n := len(stack)
		cell := deref(stack[n-1])
		stack = stack[:n-1]
		// Check for reference loop.
		if _, ok := seen[cell]; ok {
			continue
		}
		seen[cell] = struct{}{}
		switch c := cell.(type) {
		case Constant:
			continue
		case *Ref:
			return false
		case *Struct:
			stack = append(stack, c.Args...)
		case *Pair:
			stack = append(stack, c.Head, c.Tail)
		default:
			panic(fmt.Sprintf("isGround: unhandled type %T (%v)", cell, cell))
		}
	}
	return true
}

// unroll returns all cells that compose a linked-list object, and its tail.
// Traversal stops if the list loops back into itself.
func unroll(p *Pair) ([]Cell, Cell) {
	var elems []Cell
	seen := make(map[*Pair]struct{})
	var tail Cell = p
	for {
		pair, ok := deref(tail).(*Pair)
		if !ok {
			break
		}
		if _, ok := seen[pair]; ok {
			break
		}
		seen[pair] = struct{}{}
		elems = append(elems, deref(pair.Head))
		tail = pair.Tail
	}
	return elems, deref(tail)
}

// ---- Standard order of cells

type ordering int

const (
	equal ordering = iota
	less
	more
)

func compareInts(i1, i2 int) ordering {
	if i1 < i2 {
		return less
	}
	if i1 > i2 {
		return more
	}
	return equal
}

func compareStrings(s1, s2 string) ordering {
	if s1 < s2 {
		return less
	}
	if s1 > s2 {
		return more
	}
	return equal
}

// Standard order: Ref < Number < Atom < String < Compound.
func cellOrder(c Cell) int {
	switch c.(type) {
	case *Ref:
		return 1
	case WInt, WFloat, WRat:
		return 2
	case WAtom:
		return 3
	case WString:
		return 4
	case *Struct, *Pair:
		return 10
	default:
		panic(fmt.Sprintf("cellOrder: unhandled type %T (%v)", c, c))
	}
}

func numCellValue(c Cell) *big.Rat {
	switch n := c.(type) {
	case WInt:
		return new(big.Rat).SetInt(n.Value)
	case WFloat:
		r := new(big.Rat)
		r.SetFloat64(float64(n))
		return r
	case WRat:
		return n.Value
	default:
		panic(fmt.Sprintf("numCellValue: not a number: %T (%v)", c, c))
	}
}

func compareNumCells(c1, c2 Cell) ordering {
	switch numCellValue(c1).Cmp(numCellValue(c2)) {
	case -1:
		return less
	case 1:
		return more
	}
	return equal
}

// numTypeOrder breaks ties between numerically equal cells: Float
// precedes Rational precedes Int of the same value, so 1.0 @< 1 and
// 1 == 1.0 fails.
func numTypeOrder(c Cell) int {
	switch c.(type) {
	case WFloat:
		return 0
	case WRat:
		return 1
	case WInt:
		return 2
	default:
		panic(fmt.Sprintf("numTypeOrder: not a number: %T (%v)", c, c))
	}
}

func pairFunctor(c Cell) (Functor, []Cell) {
	switch t := c.(type) {
	case *Struct:
		return t.Functor(), t.Args
	case *Pair:
		return Functor{atoms.Intern("."), 2}, []Cell{t.Head, t.Tail}
	default:
		panic(fmt.Sprintf("pairFunctor: not a compound: %T (%v)", c, c))
	}
}

// compareCells implements the standard order of terms over cells.
// A visited set guarantees termination on rational (cyclic) trees.
func compareCells(c1, c2 Cell) ordering {
	type cellPair struct{ c1, c2 Cell }
	seen := make(map[cellPair]struct{})
	queue := []Cell{c1, c2}
	for len(queue) > 0 {
		c1, c2 := deref(queue[0]), deref(queue[1])
		queue = queue[2:]
		if c1 == c2 {
			continue
		}
		if _, ok := seen[cellPair{c1, c2}]; ok {
			continue
		}
		seen[cellPair{c1, c2}] = struct{}{}
		if o := compareInts(cellOrder(c1), cellOrder(c2)); o != equal {
			return o
		}
		switch t1 := c1.(type) {
		case *Ref:
			t2 := c2.(*Ref)
			if o := compareInts(t1.id, t2.id); o != equal {
				return o
			}
		case WInt, WFloat, WRat:
			if o := compareNumCells(c1, c2); o != equal {
				return o
			}
			if o := compareInts(numTypeOrder(c1), numTypeOrder(c2)); o != equal {
				return o
			}
		case WAtom:
			t2 := c2.(WAtom)
			if o := compareStrings(atoms.Atom(t1).String(), atoms.Atom(t2).String()); o != equal {
				return o
			}
		case WString:
			t2 := c2.(WString)
			if o := compareStrings(string(t1), string(t2)); o != equal {
				return o
			}
		case *Struct, *Pair:
			f1, args1 := pairFunctor(c1)
			f2, args2 := pairFunctor(c2)
			if o := compareInts(f1.Arity, f2.Arity); o != equal {
				return o
			}
			if o := compareStrings(f1.Name.String(), f2.Name.String()); o != equal {
				return o
			}
			for i := 0; i < f1.Arity; i++ {
				queue = append(queue, args1[i], args2[i])
			}
		default:
			panic(fmt.Sprintf("compareCells: unhandled type %T (%v)", c1, c1))
		}
	}
	return equal
}

// ---- String()

func (c *Ref) String() string {
	if c.Cell == nil {
		return fmt.Sprintf("_X%d", c.id)
	}
	return formatCell(c)
}

func (c *Struct) String() string   { return formatCell(c) }
func (c *Pair) String() string     { return formatCell(c) }
func (c cutBarrier) String() string { return fmt.Sprintf("<cut barrier %p>", c.cp) }

func (c WAtom) String() string {
	return logic.FormatAtom(atoms.Atom(c).String())
}

func (c WInt) String() string {
	return c.Value.String()
}

func (c WFloat) String() string {
	return logic.NewFloat(float64(c)).String()
}

func (c WRat) String() string {
	return fmt.Sprintf("%s rdiv %s", c.Value.Num(), c.Value.Denom())
}

func (c WString) String() string {
	return logic.FormatString(string(c))
}
