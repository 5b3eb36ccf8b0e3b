package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePorts(t *testing.T) {
	def := &ToolDefinition{
		Name: "fetch",
		InputSchema: []SchemaField{
			{Name: "url", Type: "string"},
			{Name: "retries", Type: "number"},
			{Name: "headers", Type: "object"},
		},
		OutputSchema: []SchemaField{
			{Name: "body"},
			{Name: "blob", Type: "bytes"},
		},
	}

	inputs, outputs, err := ResolvePorts(def)
	require.NoError(t, err)
	assert.Equal(t, []Port{
		{Name: "url", Direction: Input, DataType: TypeString},
		{Name: "retries", Direction: Input, DataType: TypeNumber},
		{Name: "headers", Direction: Input, DataType: TypeObject},
	}, inputs)
	assert.Equal(t, []Port{
		{Name: "body", Direction: Output, DataType: TypeString},
		{Name: "blob", Direction: Output, DataType: TypeString},
	}, outputs, "absent and unknown types default to string")
}

func TestResolvePorts_SameNameBothDirections(t *testing.T) {
	inputs, outputs, err := ResolvePorts(&ToolDefinition{
		Name:         "relay",
		InputSchema:  []SchemaField{{Name: "value"}},
		OutputSchema: []SchemaField{{Name: "value"}},
	})
	require.NoError(t, err)
	assert.Len(t, inputs, 1)
	assert.Len(t, outputs, 1)
}

func TestResolvePorts_NoPorts(t *testing.T) {
	inputs, outputs, err := ResolvePorts(&ToolDefinition{Name: "noop"})
	require.NoError(t, err)
	assert.NotNil(t, inputs)
	assert.Empty(t, inputs)
	assert.Empty(t, outputs)
}

func TestResolvePorts_DefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		def  *ToolDefinition
	}{
		{name: "nil definition", def: nil},
		{name: "missing name", def: &ToolDefinition{InputSchema: []SchemaField{{Name: "in"}}}},
		{name: "unnamed port", def: &ToolDefinition{Name: "t", OutputSchema: []SchemaField{{Type: "string"}}}},
		{name: "duplicate input", def: &ToolDefinition{Name: "t", InputSchema: []SchemaField{{Name: "a"}, {Name: "a", Type: "number"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ResolvePorts(tt.def)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDefinition))
			var defErr *DefinitionError
			assert.True(t, errors.As(err, &defErr))
		})
	}
}
