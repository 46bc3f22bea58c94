// Package queue implements the priority-partitioned ready queue the
// out-of-order processor draws eligible instructions from.
package queue

import (
	"github.com/vk/dataflow/internal/instruction"
	"github.com/vk/dataflow/internal/priority"
)

// Queue buckets eligible instructions by priority and polls an
// embedded sawtooth generator to decide which bucket to serve from
// next. Within one priority, instructions are served FIFO.
type Queue struct {
	buckets map[int][]*instruction.Instruction
	gen     *priority.Generator
	size    int
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		buckets: make(map[int][]*instruction.Instruction),
		gen:     priority.New(),
	}
}

// Enqueue appends i to its priority's bucket and widens the
// generator's tracked range to include that priority.
func (q *Queue) Enqueue(i *instruction.Instruction) {
	p := i.Task.Priority
	q.buckets[p] = append(q.buckets[p], i)
	q.size++
	q.gen.NotifyExists(p)
}

// Dequeue pops the head of the next non-empty bucket the generator
// selects. It gives up and reports absent after scanning (hi-lo+1)
// priorities with no work found.
func (q *Queue) Dequeue() (*instruction.Instruction, bool) {
	if q.size == 0 {
		return nil, false
	}
	lo, hi := q.gen.Range()
	attempts := hi - lo + 1
	if attempts < 1 {
		attempts = 1
	}
	for n := 0; n < attempts; n++ {
		p := q.gen.Next()
		bucket := q.buckets[p]
		if len(bucket) == 0 {
			continue
		}
		i := bucket[0]
		q.buckets[p] = bucket[1:]
		q.size--
		return i, true
	}
	return nil, false
}

// IsEmpty reports whether every bucket is empty.
func (q *Queue) IsEmpty() bool {
	return q.size == 0
}

// Len reports the total number of instructions currently buffered
// across all priority buckets.
func (q *Queue) Len() int {
	return q.size
}
