package engine_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/prolog-engine/engine"
	"github.com/brunokim/prolog-engine/test_helpers"
)

const familyProgram = `
	parent(ned, robb).
	parent(ned, sansa).
	parent(ned, arya).
	parent(catelyn, robb).

	sibling(X, Y) :- parent(P, X), parent(P, Y), X \== Y.
`

func buildWith(t *testing.T, cfg engine.Config, modules map[string]string) *engine.Machine {
	t.Helper()
	m := engine.Build(cfg)
	for name, source := range modules {
		require.NoError(t, m.ConsultModule(name, test_helpers.Dedent(source)))
	}
	return m
}

func TestRunQuery_Bindings(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{"family": familyProgram})

	q, err := m.RunQuery("parent(ned, X)")
	require.NoError(t, err)

	var values []string
	for {
		outcome := q.Next()
		bindings, ok := outcome.(engine.Bindings)
		if !ok {
			assert.IsType(t, engine.Exhausted{}, outcome)
			break
		}
		require.Len(t, bindings, 1)
		assert.Equal(t, "X", bindings[0].Name)
		name, ok := bindings[0].Term.Atom()
		require.True(t, ok)
		values = append(values, name)
	}
	assert.Equal(t, []string{"robb", "sansa", "arya"}, values)
}

func TestRunQuery_True(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{"family": familyProgram})

	q, err := m.RunQuery("parent(ned, arya)")
	require.NoError(t, err)
	assert.Equal(t, engine.True{}, q.Next())
}

func TestRunQuery_False(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{"family": familyProgram})

	q, err := m.RunQuery("parent(arya, _)")
	require.NoError(t, err)
	assert.Equal(t, engine.False{}, q.Next())
	// Sticky after the first failure.
	assert.Equal(t, engine.Exhausted{}, q.Next())
	assert.Equal(t, engine.Exhausted{}, q.Next())
}

func TestRunQuery_Conjunction(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{"family": familyProgram})

	q, err := m.RunQuery("sibling(robb, X), X \\== sansa")
	require.NoError(t, err)

	outcome := q.Next()
	bindings, ok := outcome.(engine.Bindings)
	require.True(t, ok, "outcome = %v", outcome)
	name, _ := bindings[0].Term.Atom()
	assert.Equal(t, "arya", name)
}

func TestRunQuery_Exception(t *testing.T) {
	m := buildWith(t, engine.Config{}, nil)

	q, err := m.RunQuery("X is 1 / 0")
	require.NoError(t, err)

	outcome := q.Next()
	exc, ok := outcome.(engine.Exception)
	require.True(t, ok, "outcome = %v", outcome)
	functor, arity := exc.Ball.Functor()
	assert.Equal(t, "error", functor)
	assert.Equal(t, 2, arity)
	assert.Equal(t, engine.Exhausted{}, q.Next())
}

func TestRunQuery_Halted(t *testing.T) {
	m := buildWith(t, engine.Config{}, nil)

	q, err := m.RunQuery("halt(7)")
	require.NoError(t, err)
	assert.Equal(t, engine.Halted{Code: 7}, q.Next())
	assert.Equal(t, engine.Exhausted{}, q.Next())
}

func TestRunQuery_ParseError(t *testing.T) {
	m := buildWith(t, engine.Config{}, nil)

	_, err := m.RunQuery("foo(")
	require.Error(t, err)
	var compileErr *engine.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "<query>", compileErr.Module)
}

func TestRunQuery_CompileError(t *testing.T) {
	m := buildWith(t, engine.Config{}, nil)

	// Parses fine, but an integer is not a callable goal.
	_, err := m.RunQuery("42")
	require.Error(t, err)
	var compileErr *engine.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "<query>", compileErr.Module)
}

func TestRunQuery_RetiresActiveQuery(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{"family": familyProgram})

	q1, err := m.RunQuery("parent(ned, X)")
	require.NoError(t, err)
	_, ok := q1.Next().(engine.Bindings)
	require.True(t, ok)

	q2, err := m.RunQuery("parent(catelyn, X)")
	require.NoError(t, err)
	assert.Equal(t, engine.Exhausted{}, q1.Next())
	_, ok = q2.Next().(engine.Bindings)
	assert.True(t, ok)
}

func TestConsultModule_ParseErrorLeavesMachineUnchanged(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{"family": familyProgram})

	err := m.ConsultModule("extra", "broken(X :- .")
	require.Error(t, err)
	var compileErr *engine.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, "extra", compileErr.Module)

	q, err := m.RunQuery("parent(ned, robb)")
	require.NoError(t, err)
	assert.Equal(t, engine.True{}, q.Next())
}

func TestConsultModule_ReplacesPredicates(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{
		"colors": "color(red). color(green).",
	})

	require.NoError(t, m.ConsultModule("colors", "color(blue)."))

	q, err := m.RunQuery("color(X)")
	require.NoError(t, err)
	bindings, ok := q.Next().(engine.Bindings)
	require.True(t, ok)
	name, _ := bindings[0].Term.Atom()
	assert.Equal(t, "blue", name)
	assert.Equal(t, engine.Exhausted{}, q.Next())
}

func TestConsultModule_RemovesStalePredicates(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{
		"shapes": "square(s1). circle(c1).",
	})

	// The new version no longer defines circle/1.
	require.NoError(t, m.ConsultModule("shapes", "square(s2)."))

	q, err := m.RunQuery("circle(X)")
	require.NoError(t, err)
	outcome := q.Next()
	exc, ok := outcome.(engine.Exception)
	require.True(t, ok, "outcome = %v", outcome)
	args := exc.Ball.Args()
	functor, _ := args[0].Functor()
	assert.Equal(t, "existence_error", functor)
}

func TestConsultModule_SeparateModulesCoexist(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{
		"a": "fact_a(1).",
		"b": "fact_b(2).",
	})

	q, err := m.RunQuery("fact_a(X), fact_b(Y)")
	require.NoError(t, err)
	bindings, ok := q.Next().(engine.Bindings)
	require.True(t, ok)
	require.Len(t, bindings, 2)
}

func TestConfig_DisableIndexing(t *testing.T) {
	for _, disable := range []bool{false, true} {
		m := buildWith(t, engine.Config{DisableIndexing: disable},
			map[string]string{"family": familyProgram})

		q, err := m.RunQuery("parent(P, robb)")
		require.NoError(t, err)

		var parents []string
		for {
			bindings, ok := q.Next().(engine.Bindings)
			if !ok {
				break
			}
			name, _ := bindings[0].Term.Atom()
			parents = append(parents, name)
		}
		assert.Equal(t, []string{"ned", "catelyn"}, parents,
			"DisableIndexing = %v", disable)
	}
}

func TestConfig_IterLimit(t *testing.T) {
	m := buildWith(t, engine.Config{IterLimit: 100}, map[string]string{
		"loop": "loop :- loop.",
	})

	q, err := m.RunQuery("loop")
	require.NoError(t, err)
	exc, ok := q.Next().(engine.Exception)
	require.True(t, ok)
	args := exc.Ball.Args()
	functor, _ := args[0].Functor()
	assert.Equal(t, "resource_error", functor)
}

func TestConfig_Output(t *testing.T) {
	var buf bytes.Buffer
	m := buildWith(t, engine.Config{Output: &buf}, nil)

	q, err := m.RunQuery("write(hello), nl")
	require.NoError(t, err)
	assert.Equal(t, engine.True{}, q.Next())
	assert.Equal(t, "hello\n", buf.String())
}

func TestTermRef(t *testing.T) {
	m := buildWith(t, engine.Config{}, nil)

	q, err := m.RunQuery("X = point(1, [a, b], 2.5)")
	require.NoError(t, err)
	bindings, ok := q.Next().(engine.Bindings)
	require.True(t, ok)

	ref := bindings[0].Term
	assert.Equal(t, engine.KindCompound, ref.Kind())
	functor, arity := ref.Functor()
	assert.Equal(t, "point", functor)
	assert.Equal(t, 3, arity)

	args := ref.Args()
	require.Len(t, args, 3)

	n, ok := args[0].Int()
	require.True(t, ok)
	assert.EqualValues(t, 1, n.Int64())

	assert.Equal(t, engine.KindList, args[1].Kind())
	elems, tail := args[1].List()
	require.Len(t, elems, 2)
	first, _ := elems[0].Atom()
	assert.Equal(t, "a", first)
	tailAtom, _ := tail.Atom()
	assert.Equal(t, "[]", tailAtom)

	f, ok := args[2].Float()
	require.True(t, ok)
	assert.Equal(t, 2.5, f)

	assert.Equal(t, "point(1, [a, b], 2.5)", ref.String())
}

func TestTermRef_Var(t *testing.T) {
	m := buildWith(t, engine.Config{}, nil)

	q, err := m.RunQuery("X = f(Y)")
	require.NoError(t, err)
	bindings, ok := q.Next().(engine.Bindings)
	require.True(t, ok)

	// Y stays free, so only X is reported.
	require.Len(t, bindings, 1)
	require.Equal(t, "X", bindings[0].Name)
	args := bindings[0].Term.Args()
	require.Len(t, args, 1)
	assert.Equal(t, engine.KindVar, args[0].Kind())
}

func TestListing(t *testing.T) {
	m := buildWith(t, engine.Config{}, map[string]string{
		"family": familyProgram,
	})
	listing := m.Listing()
	assert.Contains(t, listing, "parent/2")
	assert.Contains(t, listing, "sibling/2")
}
