package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dataflow/internal/component"
)

const samplePlan = `
task "seed_counter" {
  operation = "counter.reset"
  reads     = []
  writes    = ["DataGraph"]
  priority  = 0
}

task "bump_counter" {
  operation = "counter.increment"
  reads     = ["DataGraph"]
  writes    = ["DataGraph"]
  priority  = 1
}
`

func writePlanFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o644))
	return path
}

func TestAppRunsPlanToCompletion(t *testing.T) {
	cfg := Config{PlanPath: writePlanFile(t), LogLevel: "error", LogFormat: "json"}

	a, err := New(io.Discard, cfg, nil)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))

	v, ok := a.ModelData().Get(component.DataGraph)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	status := a.Health()
	assert.True(t, status.Empty)
	assert.Equal(t, 0, status.Pending)
}

// With the health port disabled, App never binds a listener, but Health
// still reports accurate status for programmatic callers.
func TestHealthWithoutListeningPort(t *testing.T) {
	cfg := Config{PlanPath: writePlanFile(t), LogLevel: "error", LogFormat: "json"}

	a, err := New(io.Discard, cfg, nil)
	require.NoError(t, err)
	require.Nil(t, a.httpServer)

	status := a.Health()
	assert.False(t, status.Empty)
	assert.Equal(t, 1, status.Pending)

	require.NoError(t, a.Run(context.Background()))
	status = a.Health()
	assert.True(t, status.Empty)
}

func TestHealthServerServesJSONStatus(t *testing.T) {
	cfg := Config{PlanPath: writePlanFile(t), LogLevel: "error", LogFormat: "json", HealthcheckPort: 18099}

	a, err := New(io.Discard, cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, a.httpServer)

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18099/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, <-done)
}
