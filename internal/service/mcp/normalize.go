package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mcpjungle/mcpbridge/pkg/types"
)

// emptyObjectSchema is used for tools that advertise no input schema at all.
const emptyObjectSchema = `{"type":"object","properties":{}}`

// DiscoveredTool is one tool descriptor from a tools/list result.
// The input schema is kept as the raw JSON the server sent.
type DiscoveredTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// NormalizeTool converts a tool advertised by an MCP server into the tool spec format used by mcpbridge.
// The name and description are kept as-is and the input schema is carried over as plain JSON,
// keyword for keyword. An empty description is omitted from the spec.
func NormalizeTool(tool DiscoveredTool) (types.ToolSpec, error) {
	raw := tool.InputSchema
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(emptyObjectSchema)
	}

	var schema any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return types.ToolSpec{}, fmt.Errorf("input schema is not valid JSON: %w", err)
	}

	return types.ToolSpec{
		ToolSpec: types.ToolSpecBody{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: types.ToolInputSchema{JSON: schema},
		},
	}, nil
}

// NormalizeTools normalizes every tool, preserving order.
func NormalizeTools(tools []DiscoveredTool) ([]types.ToolSpec, error) {
	specs := make([]types.ToolSpec, 0, len(tools))
	for _, t := range tools {
		s, err := NormalizeTool(t)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		specs = append(specs, s)
	}
	return specs, nil
}
