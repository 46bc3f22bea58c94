// Package instruction defines the DAG node the out-of-order processor
// schedules, executes, and retires: a task bound to the time-capsule
// snapshot it should observe and to the edges linking it to its
// dependency predecessors and successors.
package instruction

import (
	"github.com/vk/dataflow/internal/capsule"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/task"
)

// maxIndex is 2^31-1; indices wrap back to 1 past this value. The
// processor is single-threaded, so a plain counter (no atomic) is
// sufficient.
const maxIndex = 1<<31 - 1

// indexCounter hands out the monotonically increasing index used
// solely for hashable instruction identity.
var indexCounter int

// nextIndex returns the next instruction index, wrapping at maxIndex.
func nextIndex() int {
	indexCounter++
	if indexCounter > maxIndex {
		indexCounter = 1
	}
	return indexCounter
}

// Instruction is one node in the out-of-order processor's dependency
// DAG. Dependencies maps each predecessor instruction to the set of
// components that predecessor will supply to this one; Instruction is
// eligible to run once Dependencies is empty.
type Instruction struct {
	Index                int
	Task                 task.Task
	Snapshot             *capsule.Instant
	Dependencies         map[*Instruction]component.Set
	InvertedDependencies map[*Instruction]struct{}

	// OriginalPredecessors is the fixed set of instructions this one
	// depended on at schedule time. Unlike Dependencies, it is never
	// shrunk as predecessors retire, so the processor's rewrite pass
	// can still tell whether some earlier instruction was this one's
	// immediate predecessor in the original DAG.
	OriginalPredecessors map[*Instruction]struct{}

	// Fused marks an instruction whose task was replaced by a rewriter's
	// merge. It is only reported in the processor's log; a fused
	// instruction can still take part in a later fusion.
	Fused bool
}

// New creates an instruction wrapping t, positioned at snapshot, with
// no edges yet.
func New(t task.Task, snapshot *capsule.Instant) *Instruction {
	return &Instruction{
		Index:                nextIndex(),
		Task:                 t,
		Snapshot:             snapshot,
		Dependencies:         make(map[*Instruction]component.Set),
		InvertedDependencies: make(map[*Instruction]struct{}),
		OriginalPredecessors: make(map[*Instruction]struct{}),
	}
}

// DependsOn records that i depends on predecessor for the supplied
// component, linking both sides of the edge. Calling it again for an
// existing predecessor widens the set of components carried on that
// edge.
func (i *Instruction) DependsOn(predecessor *Instruction, c component.ID) {
	set, ok := i.Dependencies[predecessor]
	if !ok {
		set = component.NewSet()
		i.Dependencies[predecessor] = set
	}
	set.Add(c)
	i.OriginalPredecessors[predecessor] = struct{}{}
	predecessor.InvertedDependencies[i] = struct{}{}
}

// WasPredecessorOf reports whether i was, at schedule time, an
// immediate predecessor of successor in the original DAG.
func (i *Instruction) WasPredecessorOf(successor *Instruction) bool {
	_, ok := successor.OriginalPredecessors[i]
	return ok
}

// Eligible reports whether i has no remaining dependencies and may be
// enqueued in the ready queue.
func (i *Instruction) Eligible() bool {
	return len(i.Dependencies) == 0
}

// Retire removes predecessor as a dependency of i, clearing the
// reverse edge too. It returns true if i became eligible as a result.
func (i *Instruction) Retire(predecessor *Instruction) bool {
	delete(i.Dependencies, predecessor)
	delete(predecessor.InvertedDependencies, i)
	return i.Eligible()
}
