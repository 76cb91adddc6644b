package wam_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/brunokim/prolog-engine/logic"
	"github.com/brunokim/prolog-engine/wam"
)

func vowelProgram() []*logic.Clause {
	return clauses(
		clause(comp("vowel", atom("a"))),
		clause(comp("vowel", atom("e"))),
		clause(comp("vowel", atom("i"))),
	)
}

func TestFacts_SolutionOrder(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, vowelProgram())
	got := allSolutions(t, m, comp("vowel", var_("X")))
	want := []wam.Solution{
		{binding("X", atom("a"))},
		{binding("X", atom("e"))},
		{binding("X", atom("i"))},
	}
	checkSolutions(t, got, want)
}

func TestFacts_SolutionOrderWithoutIndexing(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{DisableIndexing: true}, vowelProgram())
	got := allSolutions(t, m, comp("vowel", var_("X")))
	want := []wam.Solution{
		{binding("X", atom("a"))},
		{binding("X", atom("e"))},
		{binding("X", atom("i"))},
	}
	checkSolutions(t, got, want)
}

func TestFacts_FirstArgIndexing(t *testing.T) {
	program := clauses(
		clause(comp("age", atom("alice"), int_(30))),
		clause(comp("age", atom("bob"), int_(25))),
		clause(comp("age", atom("carol"), int_(35))),
	)
	for _, disable := range []bool{false, true} {
		m := newMachine(t, wam.MachineOptions{DisableIndexing: disable}, program)
		got := allSolutions(t, m, comp("age", atom("bob"), var_("A")))
		want := []wam.Solution{{binding("A", int_(25))}}
		checkSolutions(t, got, want)
	}
}

func TestFacts_IndexingMixedFirstArgs(t *testing.T) {
	program := clauses(
		clause(comp("kind", int_(1), atom("int"))),
		clause(comp("kind", atom("a"), atom("atom"))),
		clause(comp("kind", comp("f", var_("_")), atom("struct"))),
		clause(comp("kind", list(var_("_")), atom("list"))),
		clause(comp("kind", var_("_"), atom("anything"))),
	)
	queries := []struct {
		arg  logic.Term
		want []wam.Solution
	}{
		{int_(1), []wam.Solution{
			{binding("K", atom("int"))},
			{binding("K", atom("anything"))},
		}},
		{atom("a"), []wam.Solution{
			{binding("K", atom("atom"))},
			{binding("K", atom("anything"))},
		}},
		{comp("f", atom("x")), []wam.Solution{
			{binding("K", atom("struct"))},
			{binding("K", atom("anything"))},
		}},
		{list(atom("x")), []wam.Solution{
			{binding("K", atom("list"))},
			{binding("K", atom("anything"))},
		}},
		{int_(99), []wam.Solution{
			{binding("K", atom("anything"))},
		}},
	}
	for _, disable := range []bool{false, true} {
		m := newMachine(t, wam.MachineOptions{DisableIndexing: disable}, program)
		for _, q := range queries {
			got := allSolutions(t, m, comp("kind", q.arg, var_("K")))
			checkSolutions(t, got, q.want)
		}
	}
}

func TestRuleChain(t *testing.T) {
	program := clauses(
		clause(comp("parent", atom("ann"), atom("bea"))),
		clause(comp("parent", atom("bea"), atom("cal"))),
		clause(comp("grandparent", var_("X"), var_("Z")),
			comp("parent", var_("X"), var_("Y")),
			comp("parent", var_("Y"), var_("Z"))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)
	got := allSolutions(t, m, comp("grandparent", var_("G"), var_("C")))
	want := []wam.Solution{
		{binding("G", atom("ann")), binding("C", atom("cal"))},
	}
	checkSolutions(t, got, want)
}

func TestCut_CommitsToFirstSolution(t *testing.T) {
	program := clauses(
		clause(comp("first", var_("L"), var_("X")),
			comp("member", var_("X"), var_("L")),
			atom("!")),
	)
	m := newMachine(t, wam.MachineOptions{}, program)
	got := allSolutions(t, m,
		comp("first", list(atom("a"), atom("b"), atom("c")), var_("X")))
	want := []wam.Solution{{binding("X", atom("a"))}}
	checkSolutions(t, got, want)
}

func TestCut_NeckCut(t *testing.T) {
	program := clauses(
		clause(comp("sign", var_("X"), atom("zero")),
			comp("==", var_("X"), int_(0)),
			atom("!")),
		clause(comp("sign", var_("_"), atom("nonzero"))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)

	got := allSolutions(t, m, comp("sign", int_(0), var_("S")))
	checkSolutions(t, got, []wam.Solution{{binding("S", atom("zero"))}})

	got = allSolutions(t, m, comp("sign", int_(7), var_("S")))
	checkSolutions(t, got, []wam.Solution{{binding("S", atom("nonzero"))}})
}

func TestIfThenElse(t *testing.T) {
	program := clauses(
		clause(comp("max", var_("X"), var_("Y"), var_("Z")),
			comp(";",
				comp("->",
					comp(">=", var_("X"), var_("Y")),
					comp("=", var_("Z"), var_("X"))),
				comp("=", var_("Z"), var_("Y")))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)

	got := allSolutions(t, m, comp("max", int_(3), int_(5), var_("M")))
	checkSolutions(t, got, []wam.Solution{{binding("M", int_(5))}})

	got = allSolutions(t, m, comp("max", int_(8), int_(5), var_("M")))
	checkSolutions(t, got, []wam.Solution{{binding("M", int_(8))}})
}

func TestIfThenElse_ConditionCommits(t *testing.T) {
	program := clauses(
		clause(comp("test", int_(1))),
		clause(comp("test", int_(2))),
		clause(comp("pick", var_("X")),
			comp(";",
				comp("->", comp("test", var_("X")), atom("true")),
				comp("=", var_("X"), atom("none")))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)
	got := allSolutions(t, m, comp("pick", var_("X")))
	// The condition's alternatives are cut: only the first test/1
	// solution survives.
	want := []wam.Solution{{binding("X", int_(1))}}
	checkSolutions(t, got, want)
}

func TestNegation(t *testing.T) {
	program := clauses(
		clause(comp("man", atom("socrates"))),
		clause(comp("immortal", var_("X")),
			comp(`\+`, comp("man", var_("X")))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)

	got := allSolutions(t, m, comp("immortal", atom("zeus")))
	checkSolutions(t, got, []wam.Solution{{}})

	if _, err := m.RunQuery(comp("immortal", atom("socrates"))); err != wam.ErrNoMoreSolutions {
		t.Errorf("expected no-more-solutions, got %v", err)
	}
}

func TestDisjunction_BothBranches(t *testing.T) {
	program := clauses(
		clause(comp("color", var_("X")),
			comp(";",
				comp("=", var_("X"), atom("red")),
				comp("=", var_("X"), atom("blue")))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)
	got := allSolutions(t, m, comp("color", var_("C")))
	want := []wam.Solution{
		{binding("C", atom("red"))},
		{binding("C", atom("blue"))},
	}
	checkSolutions(t, got, want)
}

func TestAppend_Enumeration(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)
	got := allSolutions(t, m,
		comp("append", var_("X"), var_("Y"), list(int_(1), int_(2))))
	want := []wam.Solution{
		{binding("X", atom("[]")), binding("Y", list(int_(1), int_(2)))},
		{binding("X", list(int_(1))), binding("Y", list(int_(2)))},
		{binding("X", list(int_(1), int_(2))), binding("Y", atom("[]"))},
	}
	checkSolutions(t, got, want)
}

func TestRollback_Reproducible(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, vowelProgram())
	first := allSolutions(t, m, comp("vowel", var_("X")))
	second := allSolutions(t, m, comp("vowel", var_("X")))
	checkSolutions(t, second, first)
}

func TestSelfUnification_NoBindings(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)
	sol, err := m.RunQuery(comp("=", var_("X"), var_("X")))
	if err != nil {
		t.Fatal(err)
	}
	if len(sol) != 0 {
		t.Errorf("solution = %v, want no bindings", sol)
	}
}

func TestSolution_FreeVarsOmitted(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)
	sol, err := m.RunQuery(comp("=", var_("X"), comp("f", var_("Y"))))
	if err != nil {
		t.Fatal(err)
	}
	// X is bound to f(Y); Y itself stays free and is not reported.
	if sol.Term(var_("Y")) != nil {
		t.Errorf("Y = %v, want absent", sol.Term(var_("Y")))
	}
	x, ok := sol.Term(var_("X")).(*logic.Comp)
	if !ok || x.Functor != "f" {
		t.Errorf("X = %v, want f/1 term", sol.Term(var_("X")))
	}
}

func TestUnification_RepeatedHeadVars(t *testing.T) {
	program := clauses(
		clause(comp("same", var_("X"), var_("X"))),
	)
	m := newMachine(t, wam.MachineOptions{}, program)

	got := allSolutions(t, m, comp("same", atom("a"), atom("a")))
	checkSolutions(t, got, []wam.Solution{{}})

	if _, err := m.RunQuery(comp("same", atom("a"), atom("b"))); err != wam.ErrNoMoreSolutions {
		t.Errorf("expected no-more-solutions, got %v", err)
	}
}

func TestHalt(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)
	_, err := m.RunQuery(comp("halt", int_(3)))
	var haltErr *wam.HaltError
	if !errors.As(err, &haltErr) {
		t.Fatalf("expected HaltError, got %v", err)
	}
	if haltErr.Code != 3 {
		t.Errorf("halt code = %d, want 3", haltErr.Code)
	}
}

func TestIterLimit(t *testing.T) {
	program := clauses(
		clause(atom("loop"), atom("loop")),
	)
	m := newMachine(t, wam.MachineOptions{IterLimit: 100}, program)
	_, err := m.RunQuery(atom("loop"))
	var prologErr *wam.PrologError
	if !errors.As(err, &prologErr) {
		t.Fatalf("expected PrologError, got %v", err)
	}
	ball, ok := prologErr.Ball.(*logic.Comp)
	if !ok || ball.Functor != "error" {
		t.Fatalf("ball = %v, want error/2", prologErr.Ball)
	}
	want := comp("resource_error", atom("iterations"))
	if !logic.Eq(ball.Args[0], want) {
		t.Errorf("error kind = %v, want %v", ball.Args[0], want)
	}
}

func TestHeapBudget(t *testing.T) {
	// A deterministic loop that allocates a struct per iteration and never
	// creates a choice point.
	program := clauses(
		clause(comp("grow", var_("T")), comp("grow", comp("f", var_("T")))),
	)

	m := newMachine(t, wam.MachineOptions{MaxHeapCells: 256}, program)
	_, err := m.RunQuery(comp("grow", atom("start")))
	var prologErr *wam.PrologError
	if !errors.As(err, &prologErr) {
		t.Fatalf("expected PrologError, got %v", err)
	}
	ball := prologErr.Ball.(*logic.Comp)
	want := comp("resource_error", atom("memory"))
	if !logic.Eq(ball.Args[0], want) {
		t.Errorf("error kind = %v, want %v", ball.Args[0], want)
	}
}

func TestHeapBudget_Catchable(t *testing.T) {
	program := clauses(
		clause(comp("grow", var_("T")), comp("grow", comp("f", var_("T")))),
	)
	m := newMachine(t, wam.MachineOptions{MaxHeapCells: 256}, program)
	got := allSolutions(t, m,
		comp("catch",
			comp("grow", atom("start")),
			comp("error", var_("E"), var_("_")),
			atom("true")))
	if len(got) != 1 {
		t.Fatalf("got %d solutions, want 1", len(got))
	}
	want := comp("resource_error", atom("memory"))
	if e := got[0].Term(var_("E")); !logic.Eq(e, want) {
		t.Errorf("E = %v, want %v", e, want)
	}
}

func TestUnknownPredicate_ExistenceError(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)
	_, err := m.RunQuery(comp("no_such_pred", int_(1)))
	var prologErr *wam.PrologError
	if !errors.As(err, &prologErr) {
		t.Fatalf("expected PrologError, got %v", err)
	}
	ball := prologErr.Ball.(*logic.Comp)
	want := comp("existence_error", atom("procedure"),
		comp("/", atom("no_such_pred"), int_(1)))
	if !logic.Eq(ball.Args[0], want) {
		t.Errorf("error kind = %v, want %v", ball.Args[0], want)
	}
}

func TestInterrupt(t *testing.T) {
	program := clauses(
		clause(atom("loop"), atom("loop")),
	)
	m := newMachine(t, wam.MachineOptions{}, program)
	m.Interrupt()
	if _, err := m.RunQuery(atom("loop")); !errors.Is(err, wam.ErrInterrupted) {
		t.Errorf("expected interrupted, got %v", err)
	}
}

func TestNextSolution_AfterExhaustion(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, vowelProgram())
	allSolutions(t, m, comp("vowel", var_("X")))
	if _, err := m.NextSolution(); err != wam.ErrNoMoreSolutions {
		t.Errorf("expected no-more-solutions, got %v", err)
	}
}

func TestMetaCall(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)

	got := allSolutions(t, m,
		comp("=", var_("G"), comp("member", var_("X"), list(atom("a"), atom("b")))),
		comp("call", var_("G")))
	if len(got) != 2 {
		t.Fatalf("got %d solutions, want 2", len(got))
	}

	got = allSolutions(t, m,
		comp("call", comp("member", var_("X")), list(atom("a"))))
	want := []wam.Solution{
		{binding("X", atom("a"))},
	}
	checkSolutions(t, got, want)
}

func TestMetaCall_UnboundGoal(t *testing.T) {
	m := newMachine(t, wam.MachineOptions{}, nil)
	_, err := m.RunQuery(comp("call", var_("G")))
	var prologErr *wam.PrologError
	if !errors.As(err, &prologErr) {
		t.Fatalf("expected PrologError, got %v", err)
	}
	ball := prologErr.Ball.(*logic.Comp)
	if !logic.Eq(ball.Args[0], atom("instantiation_error")) {
		t.Errorf("error kind = %v, want instantiation_error", ball.Args[0])
	}
}
