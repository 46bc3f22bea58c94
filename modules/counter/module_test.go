package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dataflow/internal/component"
	"github.com/vk/dataflow/internal/modeldata"
	"github.com/vk/dataflow/internal/registry"
)

func TestResetThenIncrement(t *testing.T) {
	data := modeldata.New()
	require.NoError(t, Reset(data))
	require.NoError(t, Increment(data))

	v, ok := data.Get(component.DataGraph)
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestRegisterInstallsBothOperations(t *testing.T) {
	reg := registry.New()
	Module{}.Register(reg)

	_, err := reg.Lookup("counter.reset")
	require.NoError(t, err)
	_, err = reg.Lookup("counter.increment")
	require.NoError(t, err)
}
