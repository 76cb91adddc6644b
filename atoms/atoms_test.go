package atoms_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/brunokim/prolog-engine/atoms"
)

func TestIntern(t *testing.T) {
	a1 := atoms.Intern("foo")
	a2 := atoms.Intern("foo")
	b := atoms.Intern("bar")
	if a1 != a2 {
		t.Errorf("Intern(foo) = %v != %v", a1, a2)
	}
	if a1 == b {
		t.Errorf("Intern(foo) == Intern(bar) == %v", a1)
	}
	if a1.String() != "foo" {
		t.Errorf("a1.String() = %q != foo", a1.String())
	}
	if b.String() != "bar" {
		t.Errorf("b.String() = %q != bar", b.String())
	}
}

func TestIntern_Concurrent(t *testing.T) {
	const n = 16
	names := make([]string, 100)
	for i := range names {
		names[i] = fmt.Sprintf("atom_%d", i)
	}
	results := make([][]atoms.Atom, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids := make([]atoms.Atom, len(names))
			for j, name := range names {
				ids[j] = atoms.Intern(name)
			}
			results[i] = ids
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		for j := range names {
			if results[i][j] != results[0][j] {
				t.Errorf("goroutine %d: Intern(%q) = %v != %v", i, names[j], results[i][j], results[0][j])
			}
		}
	}
}
