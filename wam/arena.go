package wam

// ---- Block arenas
//
// Heap and stack objects are allocated from growable block lists. A block
// list never moves objects once allocated, so cell pointers stay valid as
// the arena grows. Backtracking resets the allocation watermark without
// freeing blocks, which keeps allocation cheap across retries.

const arenaBlockSize = 1024

type arena[T any] struct {
	blocks [][]T
	len    int
}

func (a *arena[T]) alloc() *T {
	i, j := a.len/arenaBlockSize, a.len%arenaBlockSize
	if i == len(a.blocks) {
		a.blocks = append(a.blocks, make([]T, arenaBlockSize))
	}
	a.len++
	return &a.blocks[i][j]
}

func (a *arena[T]) mark() int {
	return a.len
}

// resetTo zeroes the region between the watermark and the current length,
// so that stale pointers within don't retain dead cells.
func (a *arena[T]) resetTo(mark int) {
	var zero T
	for pos := mark; pos < a.len; pos++ {
		i, j := pos/arenaBlockSize, pos%arenaBlockSize
		a.blocks[i][j] = zero
	}
	a.len = mark
}

// ---- Heap

// heap owns the machine's term cells. Refs, structs and pairs come from
// separate arenas; constant cells are immutable values and live wherever
// they're embedded.
type heap struct {
	refs    arena[Ref]
	structs arena[Struct]
	pairs   arena[Pair]

	lastRefID int

	// maxCells bounds the total number of allocated cells. Zero means
	// no bound.
	maxCells int
}

// heapMark is a watermark over all heap arenas.
type heapMark struct {
	refs, structs, pairs int
	lastRefID            int
}

func (h *heap) newRef() *Ref {
	h.lastRefID++
	ref := h.refs.alloc()
	ref.id = h.lastRefID
	return ref
}

func (h *heap) newStruct(name Functor) *Struct {
	s := h.structs.alloc()
	s.Name = name.Name
	s.Args = make([]Cell, name.Arity)
	return s
}

func (h *heap) newPair() *Pair {
	return h.pairs.alloc()
}

func (h *heap) size() int {
	return h.refs.len + h.structs.len + h.pairs.len
}

func (h *heap) overBudget() bool {
	return h.maxCells > 0 && h.size() > h.maxCells
}

func (h *heap) mark() heapMark {
	return heapMark{h.refs.mark(), h.structs.mark(), h.pairs.mark(), h.lastRefID}
}

func (h *heap) resetTo(m heapMark) {
	h.refs.resetTo(m.refs)
	h.structs.resetTo(m.structs)
	h.pairs.resetTo(m.pairs)
	h.lastRefID = m.lastRefID
}

// ---- Trail

// trail records conditional ref bindings, that is, bindings to refs created
// before the current choice point. Unwinding a segment unbinds its refs in
// reverse allocation order.
type trail struct {
	refs []*Ref
}

func (t *trail) push(ref *Ref) {
	t.refs = append(t.refs, ref)
}

func (t *trail) mark() int {
	return len(t.refs)
}

func (t *trail) resetTo(mark int) {
	for i := len(t.refs) - 1; i >= mark; i-- {
		t.refs[i].Cell = nil
		t.refs[i] = nil
	}
	t.refs = t.refs[:mark]
}

// ---- Environments

// Env represents an activation frame for a clause that needs to preserve
// permanent variables or a continuation across body calls.
type Env struct {
	// Previous environment.
	Prev *Env
	// Continuation instruction to return to.
	Continuation InstrAddr
	// Permanent vars stored in this frame.
	PermanentVars []Cell
	// Saved choice point to cut to.
	CutChoice *ChoicePoint

	// stamp is the stack depth at allocation, used to reclaim the frame
	// on deallocate.
	stamp int
}

// envStack allocates environments from an arena. The top frame is
// reclaimed on deallocate unless a newer choice point protects it, in
// which case it stays live until backtracking resets the watermark, as
// required for retrying alternatives.
type envStack struct {
	envs arena[Env]
}

func (s *envStack) push() *Env {
	e := s.envs.alloc()
	e.stamp = s.envs.len
	return e
}

// release reclaims e's slot if it is the newest frame and no choice point
// protects it, keeping deterministic recursion in constant stack space.
func (s *envStack) release(e *Env, protected int) {
	if e.stamp == s.envs.len && e.stamp > protected {
		s.envs.resetTo(e.stamp - 1)
	}
}

func (s *envStack) mark() int {
	return s.envs.mark()
}

func (s *envStack) resetTo(mark int) {
	s.envs.resetTo(mark)
}

// ---- Choice points

// ChoicePoint represents a snapshot of the machine state, used to retry
// alternative clauses or branches upon backtracking.
type ChoicePoint struct {
	// Link to the previous (older) choice point.
	Prev *ChoicePoint
	// Instruction to retry when backtracking into this choice point.
	NextAlternative InstrAddr

	// Machine registers at creation.
	Args         []Cell
	Continuation InstrAddr
	Env          *Env
	CutChoice    *ChoicePoint

	// Watermarks at creation.
	TrailMark int
	HeapMark  heapMark
	EnvMark   int

	// Exception barrier state, set only by catch/3. Catcher and Recovery
	// are the catch ball pattern and recovery goal; a choice point with a
	// non-nil Catcher acts as a barrier for thrown exceptions.
	Catcher  Cell
	Recovery Cell
}

func (cp *ChoicePoint) isBarrier() bool {
	return cp.Catcher != nil
}
