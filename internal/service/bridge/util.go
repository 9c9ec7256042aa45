package bridge

import (
	"strings"

	"github.com/mcpjungle/mcpbridge/internal/model"
)

// mergeServerToolNames combines the server name and tool name into a single tool name unique across the hub.
func mergeServerToolNames(s, t string) string {
	return s + model.ServerToolNameSep + t
}

// splitServerToolName splits the unique tool name into server name and tool name.
// eg- In `aws__ec2__create_sg`, `aws` is the MCP server's name and `ec2__create_sg` is the tool.
func splitServerToolName(name string) (string, string, bool) {
	return strings.Cut(name, model.ServerToolNameSep)
}
