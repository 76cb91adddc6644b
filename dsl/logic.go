// Package dsl contains helpers to build terms and clauses directly in Go,
// used by the bootstrap library and tests.
package dsl

import (
	"github.com/brunokim/prolog-engine/logic"
)

func Terms(terms ...logic.Term) []logic.Term {
	return terms
}

func Atom(name string) logic.Atom {
	return logic.Atom{Name: name}
}

func Int(i int64) logic.Int {
	return logic.NewInt(i)
}

func Float(f float64) logic.Float {
	return logic.NewFloat(f)
}

func Str(s string) logic.Str {
	return logic.Str{Value: s}
}

func Var(name string) logic.Var {
	return logic.NewVar(name)
}

func SVar(name string, suffix int) logic.Var {
	return logic.NewVar(name).WithSuffix(suffix)
}

func Comp(functor string, args ...logic.Term) *logic.Comp {
	return logic.NewComp(functor, args...)
}

func Indicator(name string, arity int) logic.Indicator {
	return logic.Indicator{Name: name, Arity: arity}
}

func Clause(head logic.Term, body ...logic.Term) *logic.Clause {
	return logic.NewClause(head, body...)
}

func Clauses(cs ...*logic.Clause) []*logic.Clause {
	return cs
}

// List builds a proper list of the provided terms.
func List(terms ...logic.Term) logic.Term {
	return logic.NewList(terms...)
}

// IList builds an incomplete list: the last term is the tail.
func IList(terms ...logic.Term) logic.Term {
	n := len(terms)
	butlast, last := terms[:n-1], terms[n-1]
	return logic.NewIncompleteList(butlast, last)
}
