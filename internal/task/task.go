// Package task defines the unit of work the scheduler operates over:
// a closure over model data paired with the read-set and write-set it
// is declared to touch.
package task

import (
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/modeldata"
)

// Closure is the function body of a Task. It may call Get, Set, and
// GetOrCreate on data, and is only permitted to read components in
// its owning Task's read-set and write components in its write-set;
// the core does not enforce this at runtime.
type Closure func(data *modeldata.Data) error

// Task is an opaque, clonable unit of work: a closure plus the
// read-set and write-set it declares, and a priority used to order it
// against other ready tasks (higher runs first, default 0).
type Task struct {
	Name     string
	Reads    component.Set
	Writes   component.Set
	Priority int
	run      Closure
}

// New builds a Task from a closure and its declared read/write sets.
func New(name string, reads, writes component.Set, priority int, run Closure) Task {
	if reads == nil {
		reads = component.NewSet()
	}
	if writes == nil {
		writes = component.NewSet()
	}
	return Task{
		Name:     name,
		Reads:    reads,
		Writes:   writes,
		Priority: priority,
		run:      run,
	}
}

// Clone returns a copy of t whose read-set and write-set are
// independent of t's, so a fused task built from two originals can be
// mutated without aliasing either source.
func (t Task) Clone() Task {
	return Task{
		Name:     t.Name,
		Reads:    t.Reads.Clone(),
		Writes:   t.Writes.Clone(),
		Priority: t.Priority,
		run:      t.run,
	}
}

// Execute runs the task's closure against data.
func (t Task) Execute(data *modeldata.Data) error {
	return t.run(data)
}
