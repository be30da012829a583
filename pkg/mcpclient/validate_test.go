package mcpclient

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"query": {Type: "string"},
			"limit": {Type: "integer"},
			"deep":  {Type: "boolean"},
			"tags":  {Type: "array"},
			"opts":  {Type: "object"},
		},
		Required: []string{"query"},
	}
}

func TestToolSchema(t *testing.T) {
	t.Parallel()

	typed := &jsonschema.Schema{Type: "object"}
	got, err := toolSchema(typed)
	require.NoError(t, err)
	assert.Same(t, typed, got)

	got, err = toolSchema(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Schemas decoded off the wire arrive as plain maps.
	wire := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
		},
		"required": []any{"query"},
	}
	got, err = toolSchema(wire)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "object", got.Type)
	require.NoError(t, validateArguments(got, map[string]any{"query": "x"}))
	assert.Error(t, validateArguments(got, map[string]any{}))

	_, err = toolSchema(func() {})
	require.Error(t, err)
}

func TestValidateArguments(t *testing.T) {
	t.Parallel()

	schema := searchSchema()

	require.NoError(t, validateArguments(schema, map[string]any{"query": "golang"}))
	require.NoError(t, validateArguments(schema, map[string]any{
		"query": "golang",
		"limit": float64(3),
		"deep":  true,
		"tags":  []any{"a"},
		"opts":  map[string]any{"k": "v"},
	}))

	// Properties the schema does not describe pass through.
	require.NoError(t, validateArguments(schema, map[string]any{"query": "x", "extra": 1}))

	// Nil schema disables validation.
	require.NoError(t, validateArguments(nil, nil))
}

func TestValidateArgumentsRejects(t *testing.T) {
	t.Parallel()

	schema := searchSchema()

	assert.Error(t, validateArguments(schema, map[string]any{}))
	assert.Error(t, validateArguments(schema, map[string]any{"query": 42}))
	assert.Error(t, validateArguments(schema, map[string]any{"query": "x", "limit": "three"}))
	assert.Error(t, validateArguments(schema, map[string]any{"query": "x", "limit": 1.5}))
	assert.Error(t, validateArguments(schema, map[string]any{"query": "x", "deep": "yes"}))
}
