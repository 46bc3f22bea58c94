package instruction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/task"
)

func TestNewIsEligibleWithNoDependencies(t *testing.T) {
	i := New(task.Task{}, nil)
	assert.True(t, i.Eligible())
	assert.Empty(t, i.Dependencies)
}

func TestDependsOnLinksBothSides(t *testing.T) {
	a := New(task.Task{}, nil)
	b := New(task.Task{}, nil)

	b.DependsOn(a, component.DataGraph)

	assert.False(t, b.Eligible())
	require.Contains(t, b.Dependencies, a)
	assert.True(t, b.Dependencies[a].Contains(component.DataGraph))
	assert.Contains(t, a.InvertedDependencies, b)
	assert.True(t, a.WasPredecessorOf(b))
}

func TestRetireClearsEdgeAndReportsEligibility(t *testing.T) {
	a := New(task.Task{}, nil)
	b := New(task.Task{}, nil)
	c := New(task.Task{}, nil)

	b.DependsOn(a, component.DataGraph)
	b.DependsOn(c, component.ValidationReport)

	assert.False(t, b.Retire(a))
	assert.NotContains(t, b.Dependencies, a)
	assert.NotContains(t, a.InvertedDependencies, b)

	assert.True(t, b.Retire(c))
	assert.True(t, b.Eligible())
}

func TestOriginalPredecessorSurvivesRetirement(t *testing.T) {
	a := New(task.Task{}, nil)
	b := New(task.Task{}, nil)

	b.DependsOn(a, component.DataGraph)
	b.Retire(a)

	assert.True(t, a.WasPredecessorOf(b))
}

func TestIndexWrapsAt2_31Minus1(t *testing.T) {
	indexCounter = maxIndex
	i := New(task.Task{}, nil)
	assert.Equal(t, 1, i.Index)
}
