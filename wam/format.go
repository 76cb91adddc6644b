package wam

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brunokim/prolog-engine/logic"
)

// formatCell renders a cell as Prolog text. Loops in the cell graph are
// broken with '_S<n>' markers, so formatting always terminates.
func formatCell(c Cell) string {
	return fromCell(c).String()
}

// Solution is an ordered set of bindings for the free vars of a query.
type Solution []Binding

// Binding associates a query var with the term it resolved to.
type Binding struct {
	Var  logic.Var
	Term logic.Term
}

func (s Solution) String() string {
	if len(s) == 0 {
		return "true"
	}
	entries := make([]string, len(s))
	for i, b := range s {
		entries[i] = fmt.Sprintf("%v = %v", b.Var, b.Term)
	}
	return strings.Join(entries, ", ")
}

// Term returns the binding for x, or nil if x is absent.
func (s Solution) Term(x logic.Var) logic.Term {
	for _, b := range s {
		if b.Var == x {
			return b.Term
		}
	}
	return nil
}

// Sorted returns a copy of the solution ordered by var name.
func (s Solution) Sorted() Solution {
	sorted := make(Solution, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Var.String() < sorted[j].Var.String()
	})
	return sorted
}

// Listing renders the compiled code of all predicates, for debugging.
func (m *Machine) Listing() string {
	fns := make([]Functor, 0, len(m.code))
	for fn := range m.code {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].Name.String() != fns[j].Name.String() {
			return fns[i].Name.String() < fns[j].Name.String()
		}
		return fns[i].Arity < fns[j].Arity
	})
	var b strings.Builder
	for _, fn := range fns {
		b.WriteString(m.code[fn].String())
		b.WriteRune('\n')
	}
	return b.String()
}
