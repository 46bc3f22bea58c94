package planconfig

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/registry"
	"github.com/vk/dataflow/internal/task"
	"github.com/zclconf/go-cty/cty/gocty"
)

// priorityEvalContext is deliberately empty: a plan's priority expression
// may only use literals and arithmetic, not references to other tasks.
var priorityEvalContext = &hcl.EvalContext{}

// OperationResolver turns one decoded task block into a schedulable
// task.Task, typically by looking its operation up in a registry.
type OperationResolver func(pt parsedTask) (task.Task, error)

// Resolver builds an OperationResolver backed by reg. An operation name
// the registry has no entry for produces *ErrUnknownOperation carrying
// the offending block's source range, rather than failing at schedule
// time.
func Resolver(reg *registry.Registry) OperationResolver {
	return func(pt parsedTask) (task.Task, error) {
		fn, err := reg.Lookup(pt.Attrs.Operation)
		if err != nil {
			return task.Task{}, &ErrUnknownOperation{
				Operation: pt.Attrs.Operation,
				TaskName:  pt.Name,
				Range:     pt.Range,
			}
		}

		priority, err := evalPriority(pt)
		if err != nil {
			return task.Task{}, err
		}

		reads := toComponentSet(pt.Attrs.Reads)
		writes := toComponentSet(pt.Attrs.Writes)
		return task.New(pt.Name, reads, writes, priority, task.Closure(fn)), nil
	}
}

// evalPriority resolves a task's priority expression to an int, defaulting
// to 0 when the attribute was omitted entirely.
func evalPriority(pt parsedTask) (int, error) {
	if pt.Attrs.Priority == nil {
		return 0, nil
	}

	val, diags := pt.Attrs.Priority.Value(priorityEvalContext)
	if diags.HasErrors() {
		return 0, fmt.Errorf("planconfig: evaluating priority for task %q: %w", pt.Name, diags)
	}
	// gohcl fills an omitted optional expression with a null value.
	if val.IsNull() {
		return 0, nil
	}

	var priority int
	if err := gocty.FromCtyValue(val, &priority); err != nil {
		return 0, fmt.Errorf("planconfig: priority for task %q must be a whole number: %w", pt.Name, err)
	}
	return priority, nil
}

func toComponentSet(names []string) component.Set {
	ids := make([]component.ID, len(names))
	for i, n := range names {
		ids[i] = component.ID(n)
	}
	return component.NewSet(ids...)
}
