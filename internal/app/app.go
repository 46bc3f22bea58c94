package app

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/dataflow/internal/modeldata"
	"github.com/vk/dataflow/internal/planconfig"
	"github.com/vk/dataflow/internal/processor"
	"github.com/vk/dataflow/internal/registry"
	"github.com/vk/dataflow/internal/task"
)

// App owns the wiring between a registry of operations, the model
// data the plan operates over, and the out-of-order processor that
// schedules and runs it.
type App struct {
	logger *slog.Logger
	model  *modeldata.Data
	proc   *processor.Processor

	// mu guards proc reads from the health HTTP handler's goroutine
	// while the scheduling loop (single-threaded by design, see
	// SPEC_FULL.md §5) runs on the caller's own goroutine.
	mu sync.RWMutex

	httpServer *healthServer
}

// New wires built-in operations into a fresh registry when reg is nil,
// optionally loads a plan file (cfg.PlanPath) through the plan loader, schedules its
// tasks, and schedules any caller-supplied tasks for programmatic
// embedding alongside or instead of a plan. A bad plan or an unknown
// operation is a fatal wiring error, reported here rather than panicking
// as in the teacher's NewApp, so the CLI boundary can recover it into a
// clean exit code. outW is where the app's logger writes, mirroring the
// teacher's NewApp(outW io.Writer, ...) — callers that don't care where
// logs land (tests, programmatic embedding) may pass io.Discard.
func New(outW io.Writer, cfg Config, reg *registry.Registry, extra ...task.Task) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)

	// The processor, registry, and operation modules log through the
	// package-level slog default rather than a threaded-through logger
	// (the scheduler core's constructor signature is fixed by the
	// external interface, §6, and takes no logger/context parameter), so
	// this is the one place that default is pointed at outW — mirroring
	// the teacher's cmd/cli/main.go, which does the same with a
	// placeholder logger before the real one is built here.
	slog.SetDefault(logger)

	if reg == nil {
		reg = registry.New()
		for _, m := range coreModules {
			m.Register(reg)
		}
	}

	model := modeldata.New()
	proc := processor.New(model)

	a := &App{logger: logger, model: model, proc: proc}

	if cfg.PlanPath != "" {
		tasks, err := planconfig.Load(cfg.PlanPath, planconfig.Resolver(reg))
		if err != nil {
			return nil, fmt.Errorf("app: loading plan %s: %w", cfg.PlanPath, err)
		}
		logger.Debug("plan loaded", "path", cfg.PlanPath, "tasks", len(tasks))
		for _, t := range tasks {
			proc.Schedule(t)
		}
	}

	for _, t := range extra {
		proc.Schedule(t)
	}

	if cfg.HealthcheckPort > 0 {
		a.httpServer = newHealthServer(cfg.HealthcheckPort, a)
	}

	return a, nil
}

// ModelData exposes the app's underlying model store, primarily for
// tests and programmatic callers that want to inspect results after Run.
func (a *App) ModelData() *modeldata.Data {
	return a.model
}
