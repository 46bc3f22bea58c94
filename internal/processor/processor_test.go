package processor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/modeldata"
	"github.com/vk/dataflow/internal/rewriter"
	"github.com/vk/dataflow/internal/task"
)

func intOf(data *modeldata.Data, c component.ID) int {
	v, ok := data.Get(c)
	if !ok {
		return 0
	}
	return v.(int)
}

func TestPriorityOrderingChain(t *testing.T) {
	setTo1If0 := task.New("setTo1If0", component.NewSet(component.DataGraph), component.NewSet(component.DataGraph), 0,
		func(data *modeldata.Data) error {
			if intOf(data, component.DataGraph) == 0 {
				data.Set(component.DataGraph, 1)
			}
			return nil
		})
	setTo2If1 := task.New("setTo2If1", component.NewSet(component.DataGraph), component.NewSet(component.DataGraph), 2,
		func(data *modeldata.Data) error {
			if intOf(data, component.DataGraph) == 1 {
				data.Set(component.DataGraph, 2)
			}
			return nil
		})
	setTo3If2 := task.New("setTo3If2", component.NewSet(component.DataGraph), component.NewSet(component.DataGraph), 1,
		func(data *modeldata.Data) error {
			if intOf(data, component.DataGraph) == 2 {
				data.Set(component.DataGraph, 3)
			}
			return nil
		})

	model := modeldata.New()
	p := New(model)

	// Scheduling order, not priority, drives the dependency chain here:
	// every task reads and writes DataGraph, so whichever was scheduled
	// last becomes the next one's true-data-dependency predecessor.
	// T1 -> T3 -> T2 is the chain that reaches the scenario's final
	// value of 3; T1 -> T2 -> T3 would instead settle at 2.
	p.Schedule(setTo1If0)
	p.Schedule(setTo2If1)
	p.Schedule(setTo3If2)

	for n := 0; n < 3; n++ {
		did, err := p.ProcessTask()
		require.NoError(t, err)
		require.True(t, did)
	}
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 3, intOf(model, component.DataGraph))
}

func TestWriteAfterWriteDeterminism(t *testing.T) {
	writeOne := task.New("writeOne", nil, component.NewSet(component.DataGraph), 0,
		func(data *modeldata.Data) error {
			data.Set(component.DataGraph, 1)
			return nil
		})
	writeTwo := task.New("writeTwo", nil, component.NewSet(component.DataGraph), 1,
		func(data *modeldata.Data) error {
			data.Set(component.DataGraph, 2)
			return nil
		})

	model := modeldata.New()
	p := New(model)
	p.Schedule(writeOne)
	p.Schedule(writeTwo)

	require.NoError(t, p.ProcessAllTasks())
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 2, intOf(model, component.DataGraph))
}

func TestOutputTransferAcrossIndependentWriters(t *testing.T) {
	writeBoth := task.New("writeBoth", nil, component.NewSet(component.DataGraph, component.IO), 0,
		func(data *modeldata.Data) error {
			data.Set(component.DataGraph, 1)
			data.Set(component.IO, 1)
			return nil
		})
	writeIO := task.New("writeIO", nil, component.NewSet(component.IO), 1,
		func(data *modeldata.Data) error {
			data.Set(component.IO, 2)
			return nil
		})

	var sawDataGraph, sawIO int
	assertBoth := task.New("assertBoth", component.NewSet(component.DataGraph, component.IO), nil, 2,
		func(data *modeldata.Data) error {
			sawDataGraph = intOf(data, component.DataGraph)
			sawIO = intOf(data, component.IO)
			return nil
		})

	model := modeldata.New()
	p := New(model)
	p.Schedule(writeBoth)
	p.Schedule(writeIO)
	p.Schedule(assertBoth)

	require.NoError(t, p.ProcessAllTasks())
	assert.True(t, p.IsEmpty())
	assert.Equal(t, 1, sawDataGraph)
	assert.Equal(t, 2, sawIO)
	assert.Equal(t, 1, intOf(model, component.DataGraph))
	assert.Equal(t, 2, intOf(model, component.IO))
}

func TestRewriterFusionCollapsesToOneProcessTaskCall(t *testing.T) {
	increment := func(data *modeldata.Data) error {
		data.Set(component.DataGraph, intOf(data, component.DataGraph)+1)
		return nil
	}
	clone := task.New("increment", component.NewSet(component.DataGraph), component.NewSet(component.DataGraph), 0, increment)

	fuseAny := rewriter.NewSimpleRewriter(
		func(first, second task.Task) bool { return true },
		func(first, second task.Task) task.Task { return second },
	)

	model := modeldata.New()
	p := New(model)
	p.RegisterRewriter(fuseAny)

	p.Schedule(clone.Clone())
	p.Schedule(clone.Clone())
	p.Schedule(clone.Clone())

	did, err := p.ProcessTask()
	require.NoError(t, err)
	require.True(t, did)

	assert.True(t, p.IsEmpty())
	assert.Equal(t, 3, intOf(model, component.DataGraph))
}

func TestEmptyProcessorHasNothingToProcess(t *testing.T) {
	p := New(modeldata.New())
	assert.True(t, p.IsEmpty())

	did, err := p.ProcessTask()
	require.NoError(t, err)
	assert.False(t, did)
}

func TestStrictModeStopsOnClosureError(t *testing.T) {
	boom := errors.New("boom")
	failing := task.New("failing", nil, component.NewSet(component.DataGraph), 0,
		func(data *modeldata.Data) error {
			return boom
		})

	p := New(modeldata.New())
	p.SetStrict(true)
	p.Schedule(failing)

	err := p.ProcessAllTasks()
	require.Error(t, err)
	var closureErr *TaskClosureError
	require.ErrorAs(t, err, &closureErr)
	assert.Equal(t, "failing", closureErr.TaskName)
}
