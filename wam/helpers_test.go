package wam_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunokim/prolog-engine/dsl"
	"github.com/brunokim/prolog-engine/logic"
	"github.com/brunokim/prolog-engine/test_helpers"
	"github.com/brunokim/prolog-engine/wam"
)

var (
	atom    = dsl.Atom
	int_    = dsl.Int
	float_  = dsl.Float
	var_    = dsl.Var
	comp    = dsl.Comp
	list    = dsl.List
	ilist   = dsl.IList
	clause  = dsl.Clause
	clauses = dsl.Clauses
)

func newMachine(t *testing.T, opts wam.MachineOptions, program []*logic.Clause) *wam.Machine {
	t.Helper()
	m := wam.NewMachine(opts)
	if len(program) > 0 {
		if err := m.AddClauses(program); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

// allSolutions enumerates every solution of the query, requiring it to end
// with exhaustion.
func allSolutions(t *testing.T, m *wam.Machine, goals ...logic.Term) []wam.Solution {
	t.Helper()
	var solutions []wam.Solution
	sol, err := m.RunQuery(goals...)
	for err == nil {
		solutions = append(solutions, sol)
		sol, err = m.NextSolution()
	}
	if err != wam.ErrNoMoreSolutions {
		t.Fatalf("expected no-more-solutions, got %v", err)
	}
	return solutions
}

func checkSolutions(t *testing.T, got []wam.Solution, want []wam.Solution) {
	t.Helper()
	if diff := cmp.Diff(want, got, test_helpers.TermCompare); diff != "" {
		t.Errorf("solutions (-want, +got)\n%s", diff)
	}
}

func binding(name string, term logic.Term) wam.Binding {
	return wam.Binding{Var: dsl.Var(name), Term: term}
}
