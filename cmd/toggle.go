package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enableToolsCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a tool or all tools of an MCP server",
	Long: "Enables a tool by its canonical name (<server>__<tool>).\n" +
		"If the name of an MCP server is given, all its tools are enabled.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggleTools(cmd, args[0], true)
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "2",
	},
}

var disableToolsCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a tool or all tools of an MCP server",
	Long: "Disables a tool by its canonical name (<server>__<tool>).\n" +
		"If the name of an MCP server is given, all its tools are disabled.\n" +
		"Disabled tools are hidden from the tool list and cannot be invoked.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggleTools(cmd, args[0], false)
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "3",
	},
}

func init() {
	rootCmd.AddCommand(enableToolsCmd)
	rootCmd.AddCommand(disableToolsCmd)
}

func runToggleTools(cmd *cobra.Command, entity string, enable bool) error {
	toggle, verb := apiClient.DisableTools, "disabled"
	if enable {
		toggle, verb = apiClient.EnableTools, "enabled"
	}

	names, err := toggle(entity)
	if err != nil {
		return fmt.Errorf("failed to update '%s': %w", entity, err)
	}
	if len(names) == 0 {
		cmd.Printf("No tools were %s\n", verb)
		return nil
	}
	for _, n := range names {
		cmd.Printf("%s %s\n", verb, n)
	}
	return nil
}
