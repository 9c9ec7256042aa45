package cmd

import (
	"fmt"
	"strings"

	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List MCP servers and tools",
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "2",
	},
}

var listToolsCmdServerName string

var listToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the enabled tools of all connected MCP servers",
	RunE:  runListTools,
}

var listServersCmd = &cobra.Command{
	Use:   "servers",
	Short: "List the configured MCP servers and their connection status",
	RunE:  runListServers,
}

func init() {
	listToolsCmd.Flags().StringVar(
		&listToolsCmdServerName,
		"server",
		"",
		"only list the tools of this MCP server",
	)

	listCmd.AddCommand(listToolsCmd)
	listCmd.AddCommand(listServersCmd)
	rootCmd.AddCommand(listCmd)
}

func runListTools(cmd *cobra.Command, args []string) error {
	tools, err := apiClient.ListTools()
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}
	tools = filterToolsByServer(tools, listToolsCmdServerName)

	if len(tools) == 0 {
		cmd.Println("There are no tools available")
		return nil
	}
	for i, t := range tools {
		cmd.Printf("%d. %s\n", i+1, t.Name())
		if t.ToolSpec.Description != "" {
			cmd.Println(indent(t.ToolSpec.Description, "   "))
		}
		cmd.Println()
	}
	cmd.Println("Run 'usage <tool name>' to see a tool's input parameters.")
	return nil
}

func runListServers(cmd *cobra.Command, args []string) error {
	servers, err := apiClient.ListServers()
	if err != nil {
		return fmt.Errorf("failed to list MCP servers: %w", err)
	}
	if len(servers) == 0 {
		cmd.Println("There are no MCP servers configured")
		return nil
	}
	for i, s := range servers {
		cmd.Printf("%d. %s\n", i+1, formatServerStatus(s))
	}
	return nil
}

// filterToolsByServer keeps the tools whose canonical name belongs to the given server.
// An empty server name keeps everything.
func filterToolsByServer(tools []types.ToolSpec, server string) []types.ToolSpec {
	if server == "" {
		return tools
	}
	prefix := server + model.ServerToolNameSep
	var out []types.ToolSpec
	for _, t := range tools {
		if strings.HasPrefix(t.Name(), prefix) {
			out = append(out, t)
		}
	}
	return out
}

func formatServerStatus(s *types.McpServer) string {
	var b strings.Builder
	b.WriteString(s.Name)
	fmt.Fprintf(&b, " [%s]", s.Transport)

	target := s.URL
	if target == "" {
		target = strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
	}
	if target != "" {
		fmt.Fprintf(&b, " %s", target)
	}

	if s.Connected {
		fmt.Fprintf(&b, " - connected, %d tools", s.ToolCount)
	} else {
		b.WriteString(" - not connected")
		if s.Message != "" {
			fmt.Fprintf(&b, ": %s", s.Message)
		}
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "\n   %s", s.Description)
	}
	return b.String()
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
