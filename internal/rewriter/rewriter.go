// Package rewriter defines the fusion protocol the out-of-order
// processor uses to coalesce adjacent tasks into a single execution.
package rewriter

import "github.com/vk/dataflow/internal/task"

// Rewriter decides whether two adjacent tasks (first is an immediate
// predecessor of second in the DAG) can be fused, and produces the
// fused replacement when they can.
type Rewriter interface {
	// CanMerge reports whether first and second may be fused.
	CanMerge(first, second task.Task) bool

	// Merge returns the fused task. Its read-set must be a superset of
	// first.Reads ∪ (second.Reads − first.Writes) and its write-set
	// must be first.Writes ∪ second.Writes.
	Merge(first, second task.Task) task.Task
}

// SimpleTaskRewriter adapts a predicate and a merge function into a
// Rewriter, for callers that don't need a dedicated type.
type SimpleTaskRewriter struct {
	CanMergeFunc func(first, second task.Task) bool
	MergeFunc    func(first, second task.Task) task.Task
}

// CanMerge implements Rewriter.
func (r SimpleTaskRewriter) CanMerge(first, second task.Task) bool {
	return r.CanMergeFunc(first, second)
}

// Merge implements Rewriter.
func (r SimpleTaskRewriter) Merge(first, second task.Task) task.Task {
	return r.MergeFunc(first, second)
}

// NewSimpleRewriter builds a Rewriter from a merge predicate and a
// merge function, for callers that don't need a dedicated type.
func NewSimpleRewriter(canMerge func(first, second task.Task) bool, merge func(first, second task.Task) task.Task) Rewriter {
	return SimpleTaskRewriter{CanMergeFunc: canMerge, MergeFunc: merge}
}
