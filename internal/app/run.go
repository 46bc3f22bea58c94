package app

import (
	"context"
	"fmt"
)

// Run starts the health server if configured, drains every scheduled
// task to completion, and stops the health server before returning.
func (a *App) Run(ctx context.Context) error {
	a.logger.Debug("app run starting")

	if a.httpServer != nil {
		a.httpServer.start(ctx)
		defer a.httpServer.stop(ctx)
	}

	a.mu.Lock()
	err := a.proc.ProcessAllTasks()
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("app: processing tasks: %w", err)
	}
	a.logger.Debug("app run finished")
	return nil
}

// HealthStatus is the snapshot of processor state the health surface
// reports.
type HealthStatus struct {
	Pending int  `json:"pending"`
	Empty   bool `json:"empty"`
}

// Health reports the processor's current ready-queue occupancy. Safe to
// call concurrently with Run.
func (a *App) Health() HealthStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return HealthStatus{
		Pending: a.proc.PendingCount(),
		Empty:   a.proc.IsEmpty(),
	}
}
