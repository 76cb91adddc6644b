package logic_test

import (
	"fmt"
	"testing"

	"github.com/brunokim/prolog-engine/dsl"
	"github.com/brunokim/prolog-engine/logic"
)

var (
	atom   = dsl.Atom
	int_   = dsl.Int
	float_ = dsl.Float
	str    = dsl.Str
	var_   = dsl.Var
	svar   = dsl.SVar
	comp   = dsl.Comp
	list   = dsl.List
	ilist  = dsl.IList
	clause = dsl.Clause
)

func TestLess(t *testing.T) {
	order := []logic.Term{
		var_("A"),
		svar("A", 1),
		svar("A", 9),
		var_("Z"),
		float_(1.0),
		int_(1),
		float_(1.5),
		logic.NewRational(3, 2),
		int_(9),
		str("abc"),
		atom("[]"),
		atom("a"),
		atom("a1"),
		atom("z"),
		atom("{}"),
	}
	for i := 0; i < len(order)-1; i++ {
		if !logic.Less(order[i], order[i+1]) {
			t.Errorf("%v >= %v", order[i], order[i+1])
		}
	}
}

func TestLess_Str(t *testing.T) {
	// Atom < Str in this ordering.
	order := []logic.Term{
		int_(100),
		atom("zzz"),
		str("abc"),
		str("abd"),
		comp("f"),
	}
	for i := 0; i < len(order)-1; i++ {
		if !logic.Less(order[i], order[i+1]) {
			t.Errorf("%v >= %v", order[i], order[i+1])
		}
	}
}

func TestLess_Compound(t *testing.T) {
	order := []logic.Term{
		comp("f"),
		comp("g"),
		comp("f", atom("a")),
		comp("f", atom("z")),
		comp("g", atom("a")),
		ilist(atom("a"), var_("Tail")),
		list(atom("a")),
		list(atom("a"), atom("z")),
		comp("f", atom("a"), atom("b")),
	}
	for i := 0; i < len(order)-1; i++ {
		if !logic.Less(order[i], order[i+1]) {
			t.Errorf("%v >= %v", order[i], order[i+1])
		}
	}
}

func TestEq(t *testing.T) {
	tests := []struct {
		x, y logic.Term
	}{
		{svar("A", 1), var_("A").WithSuffix(1)},
		{int_(5), logic.NewInt(5)},
		{list(atom("a"), atom("b")), ilist(atom("a"), list(atom("b")))},
		{comp("f", int_(1)), comp("f", int_(1))},
	}
	for _, test := range tests {
		if !logic.Eq(test.x, test.y) {
			t.Errorf("%v != %v", test.x, test.y)
		}
	}
}

func TestEq_NumbersOfDifferentKinds(t *testing.T) {
	// Numerically equal terms of different kinds are distinct terms.
	if logic.Eq(int_(1), float_(1.0)) {
		t.Errorf("1 and 1.0 compare as identical in the standard order")
	}
	if !logic.Less(float_(1.0), int_(1)) {
		t.Errorf("1.0 does not precede 1 in the standard order")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		term fmt.Stringer
		want string
	}{
		{atom("a"), "a"},
		{atom("hello world"), "'hello world'"},
		{atom("[]"), "[]"},
		{atom("+"), "+"},
		{var_("A"), "A"},
		{svar("A", 1), "A_1_"},
		{int_(42), "42"},
		{float_(1.0), "1.0"},
		{float_(2.5), "2.5"},
		{logic.NewRational(1, 3), "1 rdiv 3"},
		{str("abc"), `"abc"`},
		{comp("f"), "f()"},
		{comp("f", var_("A"), var_("B")), "f(A, B)"},
		{list(var_("A"), var_("B")), "[A, B]"},
		{ilist(var_("A"), var_("B"), var_("Tail")), "[A, B|Tail]"},
		{clause(comp("add", atom("zero"), var_("X"), var_("X"))), "add(zero, X, X)."},
	}
	for _, test := range tests {
		if got := test.term.String(); got != test.want {
			t.Errorf("%#v.String() = %q != %q", test.term, got, test.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	c := clause(atom("p"), var_("X"), comp("q", var_("X")))
	norm, err := c.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	head, ok := norm.Head.(*logic.Comp)
	if !ok || head.Functor != "p" || len(head.Args) != 0 {
		t.Errorf("head = %v, want p()", norm.Head)
	}
	call, ok := norm.Body[0].(*logic.Comp)
	if !ok || call.Functor != "call" || !logic.Eq(call.Args[0], var_("X")) {
		t.Errorf("body[0] = %v, want call(X)", norm.Body[0])
	}
}

func TestNormalize_InvalidHead(t *testing.T) {
	c := clause(int_(1), atom("true"))
	if _, err := c.Normalize(); err == nil {
		t.Error("expected error normalizing clause with integer head")
	}
}

func TestVars(t *testing.T) {
	term := comp("f", var_("X"), comp("g", var_("Y"), var_("X")), var_("Z"))
	want := []logic.Var{var_("X"), var_("Y"), var_("Z")}
	got := logic.Vars(term)
	if len(got) != len(want) {
		t.Fatalf("Vars(%v) = %v, want %v", term, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Vars(%v)[%d] = %v, want %v", term, i, got[i], want[i])
		}
	}
}

func TestClauseVars(t *testing.T) {
	c := clause(comp("p", var_("X"), var_("Y")),
		comp("q", var_("Y"), var_("Z")))
	want := []logic.Var{var_("X"), var_("Y"), var_("Z")}
	got := c.Vars()
	if len(got) != len(want) {
		t.Fatalf("Vars() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Vars()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
