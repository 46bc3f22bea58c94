// Package capsule implements the time-capsule snapshot mechanism the
// out-of-order processor uses to give each task an "immutable-looking"
// view of the shared model data while it actually mutates a single
// underlying buffer in place.
//
// An Instant is a position in a tree of recorded changes; walking from
// one instant to another replays undo thunks back to their common
// ancestor and redo thunks forward to the target, so the visible state
// always matches the instant currently acquired.
package capsule

import (
	"errors"
	"fmt"

	"github.com/vk/dataflow/internal/modeldata"
)

// ErrAlreadyAcquired is returned by Acquire when the capsule's data is
// currently held, with a non-zero acquisition count, by an instant
// other than the one being acquired.
var ErrAlreadyAcquired = errors.New("capsule: already acquired elsewhere")

// ErrNotAcquired is returned by Release when the acquisition count is
// already zero.
var ErrNotAcquired = errors.New("capsule: not acquired")

// ErrAcquiredElsewhere is returned by Release when the instant being
// released is not the one currently held.
var ErrAcquiredElsewhere = errors.New("capsule: acquired by a different instant")

// thunk applies or reverts one recorded delta.
type thunk func(data *modeldata.Data)

// Instant is a single logical position in a capsule's history tree.
// The root instant has no parent and no redo/undo thunks; every other
// instant is reached from its parent by applying redo, and reverted by
// applying undo.
type Instant struct {
	capsule    *Capsule
	parent     *Instant
	redo       thunk
	undo       thunk
	generation int
}

// Capsule holds the state shared by every instant carved from the same
// root: the mutable data buffer, the instant currently reflected in
// that buffer, and how many times it has been acquired.
type Capsule struct {
	data     *modeldata.Data
	current  *Instant
	acquired int
}

// Create adopts data's current state as the root of a new history
// tree and returns the instant representing it, already acquired once.
func Create(data *modeldata.Data) *Instant {
	c := &Capsule{data: data}
	root := &Instant{capsule: c}
	c.current = root
	c.acquired = 1
	return root
}

// Modify returns a new child instant one generation below self. It
// does not touch the underlying data; do becomes the child's redo,
// undo becomes its undo.
func (self *Instant) Modify(do, undo func(data *modeldata.Data)) *Instant {
	return &Instant{
		capsule:    self.capsule,
		parent:     self,
		redo:       thunk(do),
		undo:       thunk(undo),
		generation: self.generation + 1,
	}
}

// Builder adapts an in-progress instant into a modeldata.Recorder: it
// collects every delta observed while a task runs, then Finish turns
// them into a single new child instant.
type Builder struct {
	base   *Instant
	deltas []modeldata.Delta
}

// NewBuilder starts recording deltas that will become one child
// instant of base once Finish is called.
func (self *Instant) NewBuilder() *Builder {
	return &Builder{base: self}
}

// Record implements modeldata.Recorder.
func (b *Builder) Record(d modeldata.Delta) {
	b.deltas = append(b.deltas, d)
}

// Finish turns every delta recorded so far into a single child
// instant of the base instant the builder was created from.
func (b *Builder) Finish() *Instant {
	deltas := b.deltas
	redo := func(data *modeldata.Data) {
		for _, d := range deltas {
			data.Restore(d.Component, d.HadAfter, d.After)
		}
	}
	undo := func(data *modeldata.Data) {
		for i := len(deltas) - 1; i >= 0; i-- {
			d := deltas[i]
			data.Restore(d.Component, d.HadBefore, d.Before)
		}
	}
	return b.base.Modify(redo, undo)
}

// Acquire positions the capsule's data at self, replaying undo/redo
// thunks along the path from the currently acquired instant through
// their last common ancestor, and returns the data for use.
//
// If self is already the acquired instant, this just bumps the
// acquisition count. If a different instant is acquired with a
// non-zero count, this fails with ErrAlreadyAcquired.
func (self *Instant) Acquire() (*modeldata.Data, error) {
	c := self.capsule
	if c.current == self {
		c.acquired++
		return c.data, nil
	}
	if c.acquired != 0 {
		return nil, fmt.Errorf("acquire instant gen %d while gen %d held: %w", self.generation, c.current.generation, ErrAlreadyAcquired)
	}

	ancestor := lastCommonAncestor(c.current, self)

	for i := c.current; i != ancestor; i = i.parent {
		i.undo(c.data)
	}

	var redoPath []*Instant
	for i := self; i != ancestor; i = i.parent {
		redoPath = append(redoPath, i)
	}
	for i := len(redoPath) - 1; i >= 0; i-- {
		redoPath[i].redo(c.data)
	}

	c.current = self
	c.acquired = 1
	return c.data, nil
}

// Release decrements the capsule's acquisition count. self must be
// the instant currently held.
func (self *Instant) Release() error {
	c := self.capsule
	if c.acquired == 0 {
		return ErrNotAcquired
	}
	if c.current != self {
		return ErrAcquiredElsewhere
	}
	c.acquired--
	return nil
}

// Query acquires self, invokes fn with the positioned data, and
// releases self, even if fn panics or returns an error.
func (self *Instant) Query(fn func(data *modeldata.Data) error) error {
	data, err := self.Acquire()
	if err != nil {
		return err
	}
	defer self.Release()
	return fn(data)
}

// lastCommonAncestor finds the deepest instant that is an ancestor of
// both a and b, walking the deeper one up to the shallower's
// generation first, then both in lockstep.
func lastCommonAncestor(a, b *Instant) *Instant {
	for a.generation > b.generation {
		a = a.parent
	}
	for b.generation > a.generation {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// Generation reports how deep self is from the root of its capsule's
// history tree.
func (self *Instant) Generation() int {
	return self.generation
}
