package wam_test

import (
	"testing"

	"github.com/brunokim/prolog-engine/logic"
	"github.com/brunokim/prolog-engine/wam"
)

func TestCompileClause_Fact(t *testing.T) {
	c, err := wam.CompileClause(clause(comp("vowel", atom("a"))))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := c.Functor.String(), "vowel/1"; got != want {
		t.Errorf("functor = %v, want %v", got, want)
	}
	if c.NumPermanent != 0 {
		t.Errorf("NumPermanent = %d, want 0", c.NumPermanent)
	}
	last := c.Code[len(c.Code)-1]
	if _, ok := last.(wam.Proceed); !ok {
		t.Errorf("last instruction = %v, want proceed", last)
	}
}

func TestCompileClause_PermanentVars(t *testing.T) {
	// Z crosses the chunk boundary between the two calls, and Y is used
	// both in the head chunk and the last call.
	c, err := wam.CompileClause(
		clause(comp("p", var_("X"), var_("Y")),
			comp("q", var_("X"), var_("Z")),
			comp("r", var_("Z"), var_("Y"))))
	if err != nil {
		t.Fatal(err)
	}
	if c.NumPermanent != 2 {
		t.Errorf("NumPermanent = %d, want 2", c.NumPermanent)
	}
	alloc, ok := c.Code[0].(wam.Allocate)
	if !ok {
		t.Fatalf("Code[0] = %v, want allocate", c.Code[0])
	}
	if alloc.NumVars != 2 {
		t.Errorf("allocate %d vars, want 2", alloc.NumVars)
	}
	if _, ok := c.Code[len(c.Code)-1].(wam.Execute); !ok {
		t.Errorf("last instruction = %v, want execute", c.Code[len(c.Code)-1])
	}
}

func TestCompileClause_LastCallIsExecute(t *testing.T) {
	c, err := wam.CompileClause(
		clause(comp("p", var_("X")), comp("q", var_("X"))))
	if err != nil {
		t.Fatal(err)
	}
	if c.NumPermanent != 0 {
		t.Errorf("NumPermanent = %d, want 0", c.NumPermanent)
	}
	if _, ok := c.Code[len(c.Code)-1].(wam.Execute); !ok {
		t.Errorf("last instruction = %v, want execute", c.Code[len(c.Code)-1])
	}
}

func TestCompileClause_NeckCut(t *testing.T) {
	c, err := wam.CompileClause(
		clause(comp("p", var_("X")), atom("!"), comp("q", var_("X"))))
	if err != nil {
		t.Fatal(err)
	}
	if !containsInstruction(c, func(instr wam.Instruction) bool {
		_, ok := instr.(wam.NeckCut)
		return ok
	}) {
		t.Errorf("no neck_cut in %v", c.Code)
	}
}

func TestCompileClause_DeepCut(t *testing.T) {
	c, err := wam.CompileClause(
		clause(comp("p", var_("X")),
			comp("q", var_("X")),
			atom("!"),
			comp("r", var_("X"))))
	if err != nil {
		t.Fatal(err)
	}
	if !containsInstruction(c, func(instr wam.Instruction) bool {
		_, ok := instr.(wam.Cut)
		return ok
	}) {
		t.Errorf("no cut in %v", c.Code)
	}
}

func TestCompileClause_IfThenElse(t *testing.T) {
	c, err := wam.CompileClause(
		clause(comp("max", var_("X"), var_("Y"), var_("Z")),
			comp(";",
				comp("->",
					comp(">=", var_("X"), var_("Y")),
					comp("=", var_("Z"), var_("X"))),
				comp("=", var_("Z"), var_("Y")))))
	if err != nil {
		t.Fatal(err)
	}
	wantInstrs := map[string]func(wam.Instruction) bool{
		"get_level": func(i wam.Instruction) bool { _, ok := i.(wam.GetLevel); return ok },
		"cut_to":    func(i wam.Instruction) bool { _, ok := i.(wam.CutTo); return ok },
		"try":       func(i wam.Instruction) bool { _, ok := i.(wam.Try); return ok },
		"trust":     func(i wam.Instruction) bool { _, ok := i.(wam.Trust); return ok },
	}
	for name, pred := range wantInstrs {
		if !containsInstruction(c, pred) {
			t.Errorf("no %s in %v", name, c.Code)
		}
	}
}

func TestCompileClause_AnonymousVarsAreVoid(t *testing.T) {
	c, err := wam.CompileClause(
		clause(comp("ignore", comp("f", var_("_"), var_("_"), atom("a")))))
	if err != nil {
		t.Fatal(err)
	}
	if !containsInstruction(c, func(instr wam.Instruction) bool {
		v, ok := instr.(wam.UnifyVoid)
		return ok && v.NumVars == 2
	}) {
		t.Errorf("no unify_void 2 in %v", c.Code)
	}
}

func TestCompileQuery(t *testing.T) {
	c, err := wam.CompileQuery([]logic.Term{
		comp("append", var_("X"), var_("Y"), list(int_(1), int_(2))),
	})
	if err != nil {
		t.Fatal(err)
	}
	wantVars := []logic.Var{var_("X"), var_("Y")}
	if len(c.Vars) != len(wantVars) {
		t.Fatalf("Vars = %v, want %v", c.Vars, wantVars)
	}
	for i, x := range wantVars {
		if c.Vars[i] != x {
			t.Errorf("Vars[%d] = %v, want %v", i, c.Vars[i], x)
		}
	}
	if c.NumPermanent < len(wantVars) {
		t.Errorf("NumPermanent = %d, want at least %d", c.NumPermanent, len(wantVars))
	}
	if _, ok := c.Code[len(c.Code)-1].(wam.Halt); !ok {
		t.Errorf("last instruction = %v, want halt", c.Code[len(c.Code)-1])
	}
}

func TestCompileClause_InvalidBodyGoal(t *testing.T) {
	_, err := wam.CompileClause(clause(comp("p", var_("X")), int_(42)))
	if err == nil {
		t.Error("expected error for integer body goal")
	}
}

func containsInstruction(c *wam.Clause, pred func(wam.Instruction) bool) bool {
	for _, instr := range c.Code {
		if pred(instr) {
			return true
		}
	}
	return false
}
