// Package atoms implements a process-wide atom table.
//
// Atoms are interned strings: each distinct text is stored once and
// identified by a small stable integer. Machines compare atoms by id in
// unification and indexing, and only resolve the text for printing.
//
// The table is shared by all machine instances in the process. Interning
// is the only mutation; entries are never changed or removed.
package atoms

import (
	"fmt"
	"sync"
)

// Atom is the interned id of a string. The zero Atom is the empty string.
type Atom uint32

type table struct {
	mu    sync.RWMutex
	ids   map[string]Atom
	names []string
}

var global = &table{
	ids:   map[string]Atom{"": 0},
	names: []string{""},
}

// Intern returns the atom for text, creating it if absent.
// Safe for concurrent use.
func Intern(text string) Atom {
	global.mu.RLock()
	id, ok := global.ids[text]
	global.mu.RUnlock()
	if ok {
		return id
	}
	global.mu.Lock()
	defer global.mu.Unlock()
	// Another writer may have interned text meanwhile.
	if id, ok := global.ids[text]; ok {
		return id
	}
	id = Atom(len(global.names))
	global.ids[text] = id
	global.names = append(global.names, text)
	return id
}

// String resolves the atom's text.
//
// It panics on an id that was never interned: such a value can only be
// produced by corrupting an Atom, which is a programming error.
func (a Atom) String() string {
	global.mu.RLock()
	defer global.mu.RUnlock()
	if int(a) >= len(global.names) {
		panic(fmt.Sprintf("atoms: unknown atom id %d", uint32(a)))
	}
	return global.names[a]
}
