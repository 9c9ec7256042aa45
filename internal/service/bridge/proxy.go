package bridge

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

// syncProxy makes the proxy MCP server expose exactly the hub's current tools.
func (h *Hub) syncProxy() {
	if h.proxy == nil {
		return
	}

	tools := h.Tools()

	h.proxyMu.Lock()
	defer h.proxyMu.Unlock()

	want := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		want[t.Name()] = struct{}{}
	}

	var stale []string
	for name := range h.proxyTools {
		if _, ok := want[name]; !ok {
			stale = append(stale, name)
		}
	}
	if len(stale) > 0 {
		h.proxy.DeleteTools(stale...)
	}

	for _, t := range tools {
		tool, err := proxyTool(t)
		if err != nil {
			h.logger.Error("failed to expose tool on the MCP proxy", zap.String("tool", t.Name()), zap.Error(err))
			delete(want, t.Name())
			continue
		}
		h.proxy.AddTool(tool, h.proxyToolHandler)
	}
	h.proxyTools = want
}

func proxyTool(t types.ToolSpec) (mcp.Tool, error) {
	schema, err := json.Marshal(t.ToolSpec.InputSchema.JSON)
	if err != nil {
		return mcp.Tool{}, err
	}
	return mcp.NewToolWithRawSchema(t.Name(), t.ToolSpec.Description, schema), nil
}

// proxyToolHandler serves a tools/call request made to the proxy by invoking the tool through the hub.
// Failures are reported to the MCP client as tool errors rather than protocol errors.
func (h *Hub) proxyToolHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := h.InvokeTool(ctx, req.Params.Name, req.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toMCPResult(res), nil
}

// toMCPResult converts a tool call result back into the MCP wire representation.
func toMCPResult(r types.CallResult) *mcp.CallToolResult {
	switch v := r.(type) {
	case types.ParsedContent:
		content := make([]mcp.Content, 0, len(v.Content))
		for _, b := range v.Content {
			switch b.Type {
			case types.ContentTypeText:
				content = append(content, mcp.NewTextContent(b.Text))
			case types.ContentTypeImage:
				content = append(content, mcp.NewImageContent(b.Data, b.MimeType))
			}
		}
		return &mcp.CallToolResult{Content: content, IsError: v.IsError}
	case types.RawFallback:
		return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(v.Serialized)}}
	default:
		return mcp.NewToolResultError("tool returned no result")
	}
}
