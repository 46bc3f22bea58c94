// Package counter is a built-in operation module exercising a single
// integer counter stored at component.DataGraph: "counter.reset" and
// "counter.increment", the operations the plan-loader scenarios in
// SPEC_FULL.md are written against.
package counter

import (
	"log/slog"

	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/modeldata"
	"github.com/vk/dataflow/internal/registry"
)

// Module implements registry.Module for this package.
type Module struct{}

// Register installs this package's operations under the registry.
func (Module) Register(r *registry.Registry) {
	r.Register("counter.reset", Reset)
	r.Register("counter.increment", Increment)
}

// Reset sets component.DataGraph to 0, regardless of its prior value.
func Reset(data *modeldata.Data) error {
	slog.Debug("counter: reset")
	data.Set(component.DataGraph, 0)
	return nil
}

// Increment reads component.DataGraph (treating an absent value as 0)
// and writes back its value plus one.
func Increment(data *modeldata.Data) error {
	v, ok := data.Get(component.DataGraph)
	cur := 0
	if ok {
		cur = v.(int)
	}
	slog.Debug("counter: increment", "from", cur)
	data.Set(component.DataGraph, cur+1)
	return nil
}
