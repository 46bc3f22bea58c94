// Package modeldata implements the mutable, in-place store the scheduler's
// tasks read and write. It is deliberately the thinnest layer in the core:
// a keyed map plus the change-tracking hooks the time capsule needs to
// record reversible deltas, and the listener fan-out the processor uses to
// announce which components a task actually wrote.
//
// Why change-tracking lives here rather than in the capsule: the capsule
// knows nothing about component ids or values, only about the delta
// builder it is handed. Data is the only party that knows what a mutation
// actually touched, so it is the natural owner of recording it.
package modeldata

import "github.com/vk/dataflow/internal/component"

// Delta is a single reversible mutation: component c moved from "before"
// to "after". HadBefore/HadAfter report whether the component was present
// on each side; when one is false the matching value is nil.
type Delta struct {
	Component component.ID
	Before    any
	HadBefore bool
	After     any
	HadAfter  bool
}

// Recorder receives deltas as they happen. The time capsule implements
// this to build its do/undo pair for Modify; tests may supply their own.
type Recorder interface {
	Record(d Delta)
}

// ChangeListener is notified, after a task finishes, with the set of
// components that task actually wrote.
type ChangeListener func(written component.Set)

// Data is the shared, mutable model. It is safe to use from a single
// goroutine at a time; the scheduler's cooperative, single-threaded model
// (see the processor package) is what makes that sufficient.
type Data struct {
	values    map[component.ID]any
	recorder  Recorder
	listeners []ChangeListener
	written   component.Set
}

// New creates an empty Data store.
func New() *Data {
	return &Data{
		values: make(map[component.ID]any),
	}
}

// SetRecorder installs the Recorder that tracked mutations are reported
// to. A nil recorder disables tracking (the processor clears it once a
// task's closure has returned).
func (d *Data) SetRecorder(r Recorder) {
	d.recorder = r
}

// Get returns the value stored for id and whether it was present.
func (d *Data) Get(id component.ID) (any, bool) {
	v, ok := d.values[id]
	return v, ok
}

// Set replaces the value stored for id, recording a delta if a recorder
// is installed, and marking id as written for the current task.
func (d *Data) Set(id component.ID, value any) {
	before, hadBefore := d.values[id]
	d.values[id] = value
	d.markWritten(id)
	if d.recorder != nil {
		d.recorder.Record(Delta{
			Component: id,
			Before:    before,
			HadBefore: hadBefore,
			After:     value,
			HadAfter:  true,
		})
	}
}

// GetOrCreate returns the existing value for id, or installs factory()'s
// result and returns that, as a single atomic-from-the-caller's-perspective
// step (the core is single-threaded, so "atomic" here just means the
// installation is visible to the very next Get).
func (d *Data) GetOrCreate(id component.ID, factory func() any) any {
	if v, ok := d.values[id]; ok {
		return v
	}
	v := factory()
	d.Set(id, v)
	return v
}

// SetUnchecked installs a value for id without going through the
// change-tracking path. The out-of-order processor uses it to seed an
// instruction's private view from the ambient model, to transfer a
// predecessor's output into a successor's snapshot, and to commit a
// retired writer's value back to the ambient model.
func (d *Data) SetUnchecked(id component.ID, value any) {
	d.values[id] = value
}

// unsetUnchecked removes id without change-tracking. Used by the capsule
// when undoing a Set that had no prior value.
func (d *Data) unsetUnchecked(id component.ID) {
	delete(d.values, id)
}

// Restore is the low-level primitive the time capsule's undo/redo thunks
// drive directly; it never itself records a further delta.
func (d *Data) Restore(id component.ID, present bool, value any) {
	if present {
		d.values[id] = value
	} else {
		d.unsetUnchecked(id)
	}
}

// ObserveChanges registers a listener invoked after each task completes
// with the set of components that task wrote.
func (d *Data) ObserveChanges(l ChangeListener) {
	d.listeners = append(d.listeners, l)
}

// markWritten accumulates the current task's write set; BeginTask/EndTask
// bracket one task's execution so the accumulated set can be delivered.
func (d *Data) markWritten(id component.ID) {
	if d.written != nil {
		d.written.Add(id)
	}
}

// NotifyWritten announces written to every registered listener directly,
// bypassing BeginTask/EndTask accumulation. The out-of-order processor
// uses this at retirement time, since the write actually happened
// against an instruction's own isolated Data rather than this one.
func (d *Data) NotifyWritten(written component.Set) {
	for _, l := range d.listeners {
		l(written)
	}
}

// BeginTask starts accumulating the set of components written during the
// task about to execute.
func (d *Data) BeginTask() {
	d.written = component.NewSet()
}

// EndTask stops accumulating and notifies every registered listener with
// the components actually written since the matching BeginTask.
func (d *Data) EndTask() {
	written := d.written
	d.written = nil
	if written == nil {
		written = component.NewSet()
	}
	for _, l := range d.listeners {
		l(written)
	}
}
