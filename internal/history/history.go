// Package history keeps bounded undo/redo stacks of surface states.
package history

// DefaultDepth is the number of undo entries kept before the oldest is
// evicted.
const DefaultDepth = 50

// Record is one surface's undo and redo stacks. The top of the undo stack is
// always the current state.
type Record[T any] struct {
	depth int
	undo  []T
	redo  []T
}

// New returns an empty record holding at most depth undo entries.
func New[T any](depth int) *Record[T] {
	if depth < 1 {
		depth = DefaultDepth
	}
	return &Record[T]{depth: depth}
}

// Commit pushes the new current state and invalidates redo.
func (r *Record[T]) Commit(state T) {
	r.undo = append(r.undo, state)
	if over := len(r.undo) - r.depth; over > 0 {
		clear(r.undo[:over])
		r.undo = append(r.undo[:0], r.undo[over:]...)
	}
	r.ClearRedo()
}

// Undo moves the current state onto the redo stack and returns the state
// that is now current. It does nothing when only the baseline remains.
func (r *Record[T]) Undo() (T, bool) {
	var zero T
	if len(r.undo) <= 1 {
		return zero, false
	}
	top := r.undo[len(r.undo)-1]
	r.undo[len(r.undo)-1] = zero
	r.undo = r.undo[:len(r.undo)-1]
	r.redo = append(r.redo, top)
	return r.undo[len(r.undo)-1], true
}

// Redo reapplies the most recently undone state and returns it.
func (r *Record[T]) Redo() (T, bool) {
	var zero T
	if len(r.redo) == 0 {
		return zero, false
	}
	top := r.redo[len(r.redo)-1]
	r.redo[len(r.redo)-1] = zero
	r.redo = r.redo[:len(r.redo)-1]
	r.undo = append(r.undo, top)
	return top, true
}

// Current returns the state on top of the undo stack.
func (r *Record[T]) Current() (T, bool) {
	if len(r.undo) == 0 {
		var zero T
		return zero, false
	}
	return r.undo[len(r.undo)-1], true
}

// ClearRedo drops every redo entry.
func (r *Record[T]) ClearRedo() {
	clear(r.redo)
	r.redo = r.redo[:0]
}

// Reset discards both stacks and makes state the only entry.
func (r *Record[T]) Reset(state T) {
	clear(r.undo)
	r.undo = append(r.undo[:0], state)
	r.ClearRedo()
}

// Depth returns the undo stack size.
func (r *Record[T]) Depth() int { return len(r.undo) }

// RedoDepth returns the redo stack size.
func (r *Record[T]) RedoDepth() int { return len(r.redo) }

// Limit returns the maximum undo depth.
func (r *Record[T]) Limit() int { return r.depth }

// CanUndo reports whether Undo would change state.
func (r *Record[T]) CanUndo() bool { return len(r.undo) > 1 }

// CanRedo reports whether Redo would change state.
func (r *Record[T]) CanRedo() bool { return len(r.redo) > 0 }
