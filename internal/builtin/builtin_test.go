package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptionsCoverEveryTool(t *testing.T) {
	d := Descriptions()
	require.Len(t, d, len(Tools()))
	for _, tool := range Tools() {
		assert.NotEmpty(t, d[tool.Name], "tool %s has no usage description", tool.Name)
	}
}

func TestSpecs(t *testing.T) {
	specs, err := Specs()
	require.NoError(t, err)
	require.Len(t, specs, len(Tools()))

	for i, tool := range Tools() {
		assert.Equal(t, tool.Name, specs[i].Name())
		assert.Equal(t, tool.Description, specs[i].ToolSpec.Description)

		schema, ok := specs[i].ToolSpec.InputSchema.JSON.(map[string]any)
		require.True(t, ok, "schema of %s must be a JSON object", tool.Name)
		assert.Equal(t, "object", schema["type"])
		assert.NotContains(t, schema, "$schema")
		assert.NotContains(t, schema, "$ref")
	}
}

func TestReadFileSchema(t *testing.T) {
	tool, ok := Lookup("read_file")
	require.True(t, ok)

	spec, err := tool.Spec()
	require.NoError(t, err)

	schema := spec.ToolSpec.InputSchema.JSON.(map[string]any)
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "path")
	assert.Contains(t, props, "offset")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []any{"path"}, schema["required"])

	path := props["path"].(map[string]any)
	assert.Equal(t, "string", path["type"])
	assert.NotEmpty(t, path["description"])
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("does_not_exist")
	assert.False(t, ok)
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	assert.IsIncreasing(t, names)
	assert.Len(t, names, len(Tools()))
}
