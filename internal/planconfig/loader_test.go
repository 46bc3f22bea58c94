package planconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/modeldata"
	"github.com/vk/dataflow/internal/processor"
	"github.com/vk/dataflow/internal/registry"
	"github.com/vk/dataflow/modules/counter"
)

const validPlan = `
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

func writePlan(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndScheduleProducesDeclarationOrderTasks(t *testing.T) {
	path := writePlan(t, validPlan)

	reg := registry.New()
	counter.Module{}.Register(reg)

	tasks, err := Load(path, Resolver(reg))
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "seed_counter", tasks[0].Name)
	assert.Equal(t, "bump_counter", tasks[1].Name)

	model := modeldata.New()
	p := processor.New(model)
	for _, tsk := range tasks {
		p.Schedule(tsk)
	}
	require.NoError(t, p.ProcessAllTasks())

	v, ok := model.Get(component.DataGraph)
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLoadEvaluatesComputedPriority(t *testing.T) {
	path := writePlan(t, `
task "seed_counter" {
  operation = "counter.reset"
  writes    = ["DataGraph"]
  priority  = 2 + 1
}
`)

	reg := registry.New()
	counter.Module{}.Register(reg)

	tasks, err := Load(path, Resolver(reg))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 3, tasks[0].Priority)
}

func TestLoadFailsOnUnknownOperation(t *testing.T) {
	path := writePlan(t, `
task "mystery" {
  operation = "does.not.exist"
  writes    = ["DataGraph"]
}
`)

	reg := registry.New()
	counter.Module{}.Register(reg)

	_, err := Load(path, Resolver(reg))
	require.Error(t, err)
	var unknown *ErrUnknownOperation
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "does.not.exist", unknown.Operation)
}
