package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRegistry_GetModelsForProvider(t *testing.T) {
	reg := NewModelRegistry()

	models := reg.GetModelsForProvider("anthropic")
	require.NotEmpty(t, models)
	assert.True(t, reg.HasModel("anthropic", models[0].ID))
}

func TestModelRegistry_UnknownProvider(t *testing.T) {
	reg := NewModelRegistry()
	require.Nil(t, reg.GetModelsForProvider("does-not-exist"))
	assert.False(t, reg.HasModel("does-not-exist", "whatever"))
}

func TestModelRegistry_GetAllModels(t *testing.T) {
	reg := NewModelRegistry()
	all := reg.GetAllModels()
	assert.GreaterOrEqual(t, len(all), 3)
}
