// Package processor implements the out-of-order dataflow scheduler: it
// turns a stream of scheduled tasks into a dependency DAG of
// instructions, executes only those whose dependencies have retired,
// and lets registered rewriters fuse adjacent instructions before they
// run.
package processor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vk/dataflow/internal/capsule"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/instruction"
	"github.com/vk/dataflow/internal/modeldata"
	"github.com/vk/dataflow/internal/queue"
	"github.com/vk/dataflow/internal/rewriter"
	"github.com/vk/dataflow/internal/task"
)

// ErrIndependentTransfer names the case of a transfer attempted for a
// successor that does not list the transferring instruction as a
// dependency. No function in this package returns it: retire skips such
// a successor without reporting an error.
var ErrIndependentTransfer = errors.New("processor: transfer target does not depend on source")

// TaskClosureError wraps a failure raised by a task's own closure with
// the identity of the instruction that produced it.
type TaskClosureError struct {
	TaskName string
	Err      error
}

func (e *TaskClosureError) Error() string {
	return fmt.Sprintf("task %q: %v", e.TaskName, e.Err)
}

func (e *TaskClosureError) Unwrap() error {
	return e.Err
}

// Processor is the out-of-order scheduler. The zero value is not
// usable; construct with New.
type Processor struct {
	global       *modeldata.Data
	latestWriter map[component.ID]*instruction.Instruction
	latestReader map[component.ID]*instruction.Instruction
	queue        *queue.Queue
	rewriters    []rewriter.Rewriter
	lastRetired  *instruction.Instruction
	strict       bool
	actualWrites map[*instruction.Instruction]component.Set
}

// New builds a processor whose ambient, pre-schedule model values are
// seeded from modelData. modelData is never mutated directly by
// scheduled tasks; each instruction gets its own isolated view and
// inherits from modelData only the components no predecessor supplies.
func New(modelData *modeldata.Data) *Processor {
	return &Processor{
		global:       modelData,
		latestWriter: make(map[component.ID]*instruction.Instruction),
		latestReader: make(map[component.ID]*instruction.Instruction),
		queue:        queue.New(),
	}
}

// SetStrict toggles strict mode: when true, a task closure error stops
// processing at the failing instruction, which is not retired, and is
// returned from ProcessAllTasks; instructions still in the ready queue
// stay there unexecuted. The default (false) is lenient, successors
// proceed regardless of an earlier closure failure.
func (p *Processor) SetStrict(strict bool) {
	p.strict = strict
}

// RegisterRewriter adds r to the list of rewriters consulted during the
// rewrite pass, in registration order.
func (p *Processor) RegisterRewriter(r rewriter.Rewriter) {
	p.rewriters = append(p.rewriters, r)
}

// IsEmpty reports whether the ready queue has no pending instructions.
func (p *Processor) IsEmpty() bool {
	return p.queue.IsEmpty()
}

// PendingCount reports how many instructions currently sit in the
// ready queue, for the ambient health surface.
func (p *Processor) PendingCount() int {
	return p.queue.Len()
}

// Schedule creates an instruction for t, wires its dependency edges
// against the current latest writer/reader of each component it reads
// or writes, seeds its private view from the ambient model for any
// read component no predecessor supplies, and enqueues it if it is
// immediately eligible.
func (p *Processor) Schedule(t task.Task) {
	data := modeldata.New()
	for c := range t.Reads {
		if p.latestWriter[c] == nil {
			if v, ok := p.global.Get(c); ok {
				data.SetUnchecked(c, v)
			}
		}
	}

	snapshot := capsule.Create(data)
	snapshot.Release()
	i := instruction.New(t, snapshot)

	for c := range t.Writes {
		if reader, ok := p.latestReader[c]; ok {
			if writer := p.latestWriter[c]; writer != reader {
				i.DependsOn(reader, c)
			}
		}
	}
	for c := range t.Reads {
		if writer, ok := p.latestWriter[c]; ok {
			i.DependsOn(writer, c)
		}
	}

	for c := range t.Writes {
		p.latestWriter[c] = i
	}
	for c := range t.Reads {
		p.latestReader[c] = i
	}

	slog.Debug("processor: scheduled task", "task", t.Name, "priority", t.Priority, "deps", len(i.Dependencies))

	if i.Eligible() {
		slog.Debug("processor: instruction eligible", "task", t.Name)
		p.queue.Enqueue(i)
	}
}

// ProcessTask dequeues and executes one ready instruction, attempting
// the rewrite pass first. When the instruction retired leaves exactly
// one successor eligible and that successor fuses with what was just
// executed, processing continues inline with that successor rather
// than returning, so a fully-fusable run collapses into a single call.
func (p *Processor) ProcessTask() (bool, error) {
	i, ok := p.queue.Dequeue()
	if !ok {
		slog.Debug("processor: dequeue found no ready instruction")
		return false, nil
	}
	slog.Debug("processor: dequeued instruction", "task", i.Task.Name)

	var firstErr error
	for {
		p.tryFuse(i)

		if err := p.execute(i); err != nil {
			wrapped := &TaskClosureError{TaskName: i.Task.Name, Err: err}
			if firstErr == nil {
				firstErr = wrapped
			}
			slog.Warn("processor: task closure failed", "task", i.Task.Name, "error", err)
			if p.strict {
				slog.Warn("processor: strict mode stopping after closure failure", "task", i.Task.Name)
				p.lastRetired = i
				return true, firstErr
			}
		}

		next := p.retire(i)
		p.lastRetired = i
		if next == nil {
			break
		}
		slog.Debug("processor: continuing inline with fused successor", "task", next.Task.Name)
		i = next
	}
	return true, firstErr
}

// ProcessAllTasks drains the ready queue, calling ProcessTask until it
// reports no work done. In strict mode it stops at the first closure
// error and returns it; in lenient mode it keeps going and returns the
// first error encountered, if any, once the queue is empty.
func (p *Processor) ProcessAllTasks() error {
	var firstErr error
	for {
		did, err := p.ProcessTask()
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !did {
			return firstErr
		}
		if p.strict && err != nil {
			return firstErr
		}
	}
}

// tryFuse checks whether the most-recently-retired instruction is an
// immediate predecessor of i and, if a registered rewriter accepts the
// pair, replaces i's task with the fused one.
func (p *Processor) tryFuse(i *instruction.Instruction) {
	if p.lastRetired == nil || !p.lastRetired.WasPredecessorOf(i) {
		return
	}
	for _, rw := range p.rewriters {
		if rw.CanMerge(p.lastRetired.Task, i.Task) {
			fused := rw.Merge(p.lastRetired.Task, i.Task)
			slog.Info("processor: fused adjacent instructions", "first", p.lastRetired.Task.Name, "second", i.Task.Name, "fused", fused.Name)
			i.Task = fused
			i.Fused = true
			return
		}
	}
}

// execute acquires i's snapshot, runs its (possibly fused) task
// against the positioned data, and advances the snapshot to reflect
// the task's own effect so later introspection (Query) can replay it.
func (p *Processor) execute(i *instruction.Instruction) error {
	slog.Debug("processor: executing instruction", "task", i.Task.Name, "fused", i.Fused)
	data, err := i.Snapshot.Acquire()
	if err != nil {
		return err
	}
	var written component.Set
	data.ObserveChanges(func(w component.Set) { written = w })
	builder := i.Snapshot.NewBuilder()
	data.SetRecorder(builder)
	data.BeginTask()
	runErr := i.Task.Execute(data)
	data.EndTask()
	data.SetRecorder(nil)
	i.Snapshot.Release()
	i.Snapshot = builder.Finish()
	if p.actualWrites == nil {
		p.actualWrites = make(map[*instruction.Instruction]component.Set)
	}
	p.actualWrites[i] = written
	slog.Debug("processor: instruction executed", "task", i.Task.Name, "written", written.Slice())
	return runErr
}

// retire transfers i's outputs to every successor, commits i's writes
// to the ambient model if i is still their authoritative writer,
// removes i from the writer/reader tables, and returns the single
// successor to continue processing inline with, if exactly one became
// eligible and it fuses with i.
func (p *Processor) retire(i *instruction.Instruction) *instruction.Instruction {
	slog.Debug("processor: retiring instruction", "task", i.Task.Name, "successors", len(i.InvertedDependencies))
	data, err := i.Snapshot.Acquire()
	if err != nil {
		return nil
	}
	defer i.Snapshot.Release()

	successors := make([]*instruction.Instruction, 0, len(i.InvertedDependencies))
	for s := range i.InvertedDependencies {
		successors = append(successors, s)
	}

	var eligible []*instruction.Instruction
	for _, s := range successors {
		comps, ok := s.Dependencies[i]
		if !ok {
			continue
		}
		for c := range comps {
			if v, ok := data.Get(c); ok {
				if sData, sErr := s.Snapshot.Acquire(); sErr == nil {
					sData.SetUnchecked(c, v)
					s.Snapshot.Release()
					slog.Debug("processor: transferred output", "from", i.Task.Name, "to", s.Task.Name, "component", c)
				}
			}
		}
		if s.Retire(i) {
			slog.Debug("processor: successor became eligible", "task", s.Task.Name)
			eligible = append(eligible, s)
		}
	}

	written := p.actualWrites[i]
	delete(p.actualWrites, i)
	for c := range i.Task.Writes {
		if p.latestWriter[c] == i {
			delete(p.latestWriter, c)
			if written.Contains(c) {
				if v, ok := data.Get(c); ok {
					p.global.SetUnchecked(c, v)
				}
			}
		}
	}
	for c := range i.Task.Reads {
		if p.latestReader[c] == i {
			delete(p.latestReader, c)
		}
	}
	p.global.NotifyWritten(written)

	var continuation *instruction.Instruction
	for _, s := range eligible {
		if continuation == nil && len(eligible) == 1 && i.WasPredecessorOf(s) && p.fusable(i.Task, s.Task) {
			continuation = s
			continue
		}
		p.queue.Enqueue(s)
	}
	return continuation
}

// fusable reports whether some registered rewriter accepts the pair,
// without committing to the merge (used to decide whether to continue
// processing inline rather than re-enqueue).
func (p *Processor) fusable(first, second task.Task) bool {
	for _, rw := range p.rewriters {
		if rw.CanMerge(first, second) {
			return true
		}
	}
	return false
}
