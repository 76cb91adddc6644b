package wam

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brunokim/prolog-engine/logic"
)

// ---- Addresses

// Addr represents an address within the machine's registers or environment.
type Addr interface {
	fmt.Stringer
	isAddr()
}

// RegAddr is an address for an argument/temporary register.
type RegAddr int

// StackAddr is an address for a permanent variable slot in the current
// environment.
type StackAddr int

func (a RegAddr) isAddr()   {}
func (a StackAddr) isAddr() {}

func (a RegAddr) String() string   { return fmt.Sprintf("X%d", int(a)) }
func (a StackAddr) String() string { return fmt.Sprintf("Y%d", int(a)) }

// ---- Compiled clauses

// Clause represents a compiled logic clause.
type Clause struct {
	Functor      Functor
	NumRegisters int
	NumPermanent int
	Code         []Instruction

	// Vars names the permanent slots of a compiled query, in textual
	// occurrence order. Empty for regular clauses.
	Vars []logic.Var
}

// InstrAddr represents the address of an instruction within a clause.
type InstrAddr struct {
	Clause *Clause
	Pos    int
}

func (ia InstrAddr) isValid() bool {
	return ia.Clause != nil && ia.Pos >= 0 && ia.Pos < len(ia.Clause.Code)
}

func (ia InstrAddr) instr() Instruction {
	if !ia.isValid() {
		return nil
	}
	return ia.Clause.Code[ia.Pos]
}

func (ia InstrAddr) inc() InstrAddr {
	return InstrAddr{ia.Clause, ia.Pos + 1}
}

func (ia InstrAddr) String() string {
	if ia.Clause == nil {
		return "<nil>[-1]"
	}
	return fmt.Sprintf("%v[%d]", ia.Clause.Functor, ia.Pos)
}

// ---- Instructions

// Instruction represents an abstract machine instruction.
type Instruction interface {
	fmt.Stringer
	isInstruction()
}

type (
	// PutStruct builds a struct cell in an argument register. Its args
	// are set by subsequent unify* instructions in write mode.
	PutStruct struct {
		Functor Functor
		ArgAddr RegAddr
	}

	// PutVariable creates a fresh unbound ref in both addr and an
	// argument register.
	PutVariable struct {
		Addr    Addr
		ArgAddr RegAddr
	}

	// PutValue copies the cell at addr to an argument register.
	PutValue struct {
		Addr    Addr
		ArgAddr RegAddr
	}

	// PutConstant puts a constant in an argument register.
	PutConstant struct {
		Constant Constant
		ArgAddr  RegAddr
	}

	// PutPair builds a pair cell in an argument register.
	PutPair struct {
		ArgAddr RegAddr
	}

	// GetStruct matches a struct in an argument register, setting the
	// read/write mode for subsequent unify* instructions.
	GetStruct struct {
		Functor Functor
		ArgAddr RegAddr
	}

	// GetVariable stores the argument register's cell into addr.
	GetVariable struct {
		Addr    Addr
		ArgAddr RegAddr
	}

	// GetValue unifies the cells in addr and the argument register.
	GetValue struct {
		Addr    Addr
		ArgAddr RegAddr
	}

	// GetConstant matches a constant in an argument register.
	GetConstant struct {
		Constant Constant
		ArgAddr  RegAddr
	}

	// GetPair matches a pair in an argument register, setting the
	// read/write mode for subsequent unify* instructions.
	GetPair struct {
		ArgAddr RegAddr
	}

	// UnifyVariable reads the next arg of the current compound into
	// addr (read mode), or pushes a fresh ref as the next arg (write
	// mode).
	UnifyVariable struct {
		Addr Addr
	}

	// UnifyValue unifies the next arg of the current compound with addr
	// (read mode), or pushes the cell at addr as the next arg (write
	// mode).
	UnifyValue struct {
		Addr Addr
	}

	// UnifyConstant matches a constant as the next arg of the current
	// compound.
	UnifyConstant struct {
		Constant Constant
	}

	// UnifyVoid skips n args of the current compound (read mode), or
	// pushes n fresh refs (write mode).
	UnifyVoid struct {
		NumVars int
	}

	// Call invokes a predicate, saving the continuation.
	Call struct {
		Functor Functor
	}

	// CallMeta invokes the goal bound to addr, appending extra params
	// to its args.
	CallMeta struct {
		Addr   Addr
		Params []Addr
	}

	// Execute invokes a predicate as the last goal, keeping the current
	// continuation.
	Execute struct {
		Functor Functor
	}

	// ExecuteMeta invokes the goal bound to addr as the last goal.
	ExecuteMeta struct {
		Addr   Addr
		Params []Addr
	}

	// Proceed returns to the continuation.
	Proceed struct{}

	// Halt stops the machine. The final instruction of a query.
	Halt struct{}

	// Allocate creates an environment with n permanent slots.
	Allocate struct {
		NumVars int
	}

	// Deallocate restores the previous environment.
	Deallocate struct{}

	// TryMeElse creates a choice point with the given alternative and
	// falls through.
	TryMeElse struct {
		Alternative InstrAddr
	}

	// RetryMeElse updates the current choice point's alternative and
	// falls through.
	RetryMeElse struct {
		Alternative InstrAddr
	}

	// TrustMe discards the current choice point and falls through.
	TrustMe struct{}

	// Try creates a choice point pointing to the next instruction as
	// alternative, and jumps to the continuation.
	Try struct {
		Continuation InstrAddr
	}

	// Retry updates the current choice point's alternative to the next
	// instruction, and jumps to the continuation.
	Retry struct {
		Continuation InstrAddr
	}

	// Trust discards the current choice point and jumps to the
	// continuation.
	Trust struct {
		Continuation InstrAddr
	}

	// SwitchOnTerm dispatches on the type of the first argument.
	SwitchOnTerm struct {
		IfVar, IfConstant, IfStruct, IfPair InstrAddr
	}

	// SwitchOnConstant dispatches on the value of the first argument,
	// which is known to be a constant.
	SwitchOnConstant struct {
		Continuation map[constKey]InstrAddr
	}

	// SwitchOnStruct dispatches on the functor of the first argument,
	// which is known to be a struct.
	SwitchOnStruct struct {
		Continuation map[Functor]InstrAddr
	}

	// NeckCut discards choice points created since the clause was
	// called. Used when a cut is the first goal of a clause.
	NeckCut struct{}

	// Cut discards choice points created since the current environment's
	// saved choice point.
	Cut struct{}

	// GetLevel stores the current choice point in addr, to be restored
	// later by CutTo.
	GetLevel struct {
		Addr Addr
	}

	// CutTo discards choice points created since the one stored in addr.
	CutTo struct {
		Addr Addr
	}

	// Fail forces a backtrack.
	Fail struct{}

	// Jump transfers control unconditionally.
	Jump struct {
		Continuation InstrAddr
	}

	// Label marks a jump target during clause assembly. Labels are
	// resolved and removed before a clause is installed.
	Label struct {
		ID int
	}

	// PushCatch creates an exception barrier choice point guarding the
	// goal in X0, with catcher in X1 and recovery goal in X2.
	PushCatch struct{}

	// Builtin invokes a native predicate.
	Builtin struct {
		Name string
		Args []Addr
		Func func(m *Machine, args []Addr) error
	}
)

func (i PutStruct) isInstruction()        {}
func (i PutVariable) isInstruction()      {}
func (i PutValue) isInstruction()         {}
func (i PutConstant) isInstruction()      {}
func (i PutPair) isInstruction()          {}
func (i GetStruct) isInstruction()        {}
func (i GetVariable) isInstruction()      {}
func (i GetValue) isInstruction()         {}
func (i GetConstant) isInstruction()      {}
func (i GetPair) isInstruction()          {}
func (i UnifyVariable) isInstruction()    {}
func (i UnifyValue) isInstruction()       {}
func (i UnifyConstant) isInstruction()    {}
func (i UnifyVoid) isInstruction()        {}
func (i Call) isInstruction()             {}
func (i CallMeta) isInstruction()         {}
func (i Execute) isInstruction()          {}
func (i ExecuteMeta) isInstruction()      {}
func (i Proceed) isInstruction()          {}
func (i Halt) isInstruction()             {}
func (i Allocate) isInstruction()         {}
func (i Deallocate) isInstruction()       {}
func (i TryMeElse) isInstruction()        {}
func (i RetryMeElse) isInstruction()      {}
func (i TrustMe) isInstruction()          {}
func (i Try) isInstruction()              {}
func (i Retry) isInstruction()            {}
func (i Trust) isInstruction()            {}
func (i SwitchOnTerm) isInstruction()     {}
func (i SwitchOnConstant) isInstruction() {}
func (i SwitchOnStruct) isInstruction()   {}
func (i NeckCut) isInstruction()          {}
func (i Cut) isInstruction()              {}
func (i GetLevel) isInstruction()         {}
func (i CutTo) isInstruction()            {}
func (i Fail) isInstruction()             {}
func (i Jump) isInstruction()             {}
func (i Label) isInstruction()            {}
func (i PushCatch) isInstruction()        {}
func (i Builtin) isInstruction()          {}

// ---- String()

func addrsToString(addrs []Addr) string {
	strs := make([]string, len(addrs))
	for i, addr := range addrs {
		strs[i] = addr.String()
	}
	return strings.Join(strs, ", ")
}

func (i PutStruct) String() string   { return fmt.Sprintf("put_struct %v, %v", i.Functor, i.ArgAddr) }
func (i PutVariable) String() string { return fmt.Sprintf("put_variable %v, %v", i.Addr, i.ArgAddr) }
func (i PutValue) String() string    { return fmt.Sprintf("put_value %v, %v", i.Addr, i.ArgAddr) }
func (i PutConstant) String() string {
	return fmt.Sprintf("put_constant %v, %v", i.Constant, i.ArgAddr)
}
func (i PutPair) String() string     { return fmt.Sprintf("put_pair %v", i.ArgAddr) }
func (i GetStruct) String() string   { return fmt.Sprintf("get_struct %v, %v", i.Functor, i.ArgAddr) }
func (i GetVariable) String() string { return fmt.Sprintf("get_variable %v, %v", i.Addr, i.ArgAddr) }
func (i GetValue) String() string    { return fmt.Sprintf("get_value %v, %v", i.Addr, i.ArgAddr) }
func (i GetConstant) String() string {
	return fmt.Sprintf("get_constant %v, %v", i.Constant, i.ArgAddr)
}
func (i GetPair) String() string       { return fmt.Sprintf("get_pair %v", i.ArgAddr) }
func (i UnifyVariable) String() string { return fmt.Sprintf("unify_variable %v", i.Addr) }
func (i UnifyValue) String() string    { return fmt.Sprintf("unify_value %v", i.Addr) }
func (i UnifyConstant) String() string { return fmt.Sprintf("unify_constant %v", i.Constant) }
func (i UnifyVoid) String() string     { return fmt.Sprintf("unify_void %d", i.NumVars) }
func (i Call) String() string          { return fmt.Sprintf("call %v", i.Functor) }
func (i CallMeta) String() string {
	if len(i.Params) == 0 {
		return fmt.Sprintf("call_meta %v", i.Addr)
	}
	return fmt.Sprintf("call_meta %v, [%s]", i.Addr, addrsToString(i.Params))
}
func (i Execute) String() string { return fmt.Sprintf("execute %v", i.Functor) }
func (i ExecuteMeta) String() string {
	if len(i.Params) == 0 {
		return fmt.Sprintf("execute_meta %v", i.Addr)
	}
	return fmt.Sprintf("execute_meta %v, [%s]", i.Addr, addrsToString(i.Params))
}
func (i Proceed) String() string     { return "proceed" }
func (i Halt) String() string        { return "halt" }
func (i Allocate) String() string    { return fmt.Sprintf("allocate %d", i.NumVars) }
func (i Deallocate) String() string  { return "deallocate" }
func (i TryMeElse) String() string   { return fmt.Sprintf("try_me_else %v", i.Alternative) }
func (i RetryMeElse) String() string { return fmt.Sprintf("retry_me_else %v", i.Alternative) }
func (i TrustMe) String() string     { return "trust_me" }
func (i Try) String() string         { return fmt.Sprintf("try %v", i.Continuation) }
func (i Retry) String() string       { return fmt.Sprintf("retry %v", i.Continuation) }
func (i Trust) String() string       { return fmt.Sprintf("trust %v", i.Continuation) }

func (i SwitchOnTerm) String() string {
	return fmt.Sprintf("switch_on_term var:%v const:%v struct:%v pair:%v",
		i.IfVar, i.IfConstant, i.IfStruct, i.IfPair)
}

func (i SwitchOnConstant) String() string {
	keys := make([]string, 0, len(i.Continuation))
	for key := range i.Continuation {
		keys = append(keys, string(key))
	}
	sort.Strings(keys)
	entries := make([]string, len(keys))
	for j, key := range keys {
		entries[j] = fmt.Sprintf("%s: %v", key, i.Continuation[constKey(key)])
	}
	return fmt.Sprintf("switch_on_constant {%s}", strings.Join(entries, ", "))
}

func (i SwitchOnStruct) String() string {
	fns := make([]Functor, 0, len(i.Continuation))
	for fn := range i.Continuation {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(a, b int) bool {
		if fns[a].Name != fns[b].Name {
			return fns[a].Name.String() < fns[b].Name.String()
		}
		return fns[a].Arity < fns[b].Arity
	})
	entries := make([]string, len(fns))
	for j, fn := range fns {
		entries[j] = fmt.Sprintf("%v: %v", fn, i.Continuation[fn])
	}
	return fmt.Sprintf("switch_on_struct {%s}", strings.Join(entries, ", "))
}

func (i NeckCut) String() string   { return "neck_cut" }
func (i Cut) String() string       { return "cut" }
func (i GetLevel) String() string  { return fmt.Sprintf("get_level %v", i.Addr) }
func (i CutTo) String() string     { return fmt.Sprintf("cut_to %v", i.Addr) }
func (i Fail) String() string      { return "fail" }
func (i Jump) String() string      { return fmt.Sprintf("jump %v", i.Continuation) }
func (i Label) String() string     { return fmt.Sprintf("label %d", i.ID) }
func (i PushCatch) String() string { return "push_catch" }
func (i Builtin) String() string {
	if len(i.Args) == 0 {
		return fmt.Sprintf("builtin %s", i.Name)
	}
	return fmt.Sprintf("builtin %s, [%s]", i.Name, addrsToString(i.Args))
}

// ---- Clause listing

func (c *Clause) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%% %v: %d regs, %d permanent\n", c.Functor, c.NumRegisters, c.NumPermanent)
	for i, instr := range c.Code {
		fmt.Fprintf(&b, "%3d: %v\n", i, instr)
	}
	return b.String()
}
