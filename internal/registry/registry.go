package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/dataflow/internal/modeldata"
)

// OperationFunc is a named, reusable task body a declarative plan can
// reference by name instead of embedding a Go closure.
type OperationFunc func(data *modeldata.Data) error

// ErrUnknownOperation is returned by Lookup when name was never
// registered.
type ErrUnknownOperation struct {
	Name string
}

func (e *ErrUnknownOperation) Error() string {
	return fmt.Sprintf("registry: unknown operation %q", e.Name)
}

// Registry maps operation names to the Go functions that implement
// them. The zero value is not usable; construct with New.
type Registry struct {
	operations map[string]OperationFunc
}

// Module is implemented by a package of built-in operations so it can
// register all of them in one call, mirroring the teacher's
// Module.Register(*registry.Registry) pattern.
type Module interface {
	Register(r *Registry)
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{operations: make(map[string]OperationFunc)}
}

// Register installs fn under name. Registering the same name twice is
// a programmer error and panics, matching the teacher's registration
// functions.
func (r *Registry) Register(name string, fn OperationFunc) {
	if _, exists := r.operations[name]; exists {
		panic(fmt.Sprintf("registry: operation %q already registered", name))
	}
	slog.Debug("registry: registering operation", "name", name)
	r.operations[name] = fn
}

// Lookup returns the operation registered under name, or
// ErrUnknownOperation if none was.
func (r *Registry) Lookup(name string) (OperationFunc, error) {
	fn, ok := r.operations[name]
	if !ok {
		return nil, &ErrUnknownOperation{Name: name}
	}
	return fn, nil
}
