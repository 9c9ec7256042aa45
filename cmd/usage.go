package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/spf13/cobra"
)

var usageCmd = &cobra.Command{
	Use:   "usage <name>",
	Short: "Get usage information for a tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetToolUsage,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "3",
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func runGetToolUsage(cmd *cobra.Command, args []string) error {
	t, err := apiClient.GetTool(args[0])
	if err != nil {
		return fmt.Errorf("failed to get tool '%s': %w", args[0], err)
	}
	printToolUsage(cmd.OutOrStdout(), t)
	return nil
}

func printToolUsage(w io.Writer, t *types.ToolSpec) {
	fmt.Fprintln(w, t.Name())
	fmt.Fprintln(w, t.ToolSpec.Description)

	properties, required := schemaProperties(t.ToolSpec.InputSchema.JSON)
	if len(properties) == 0 {
		fmt.Fprintln(w, "This tool does not require any input parameters.")
		return
	}

	names := make([]string, 0, len(properties))
	for k := range properties {
		names = append(names, k)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input Parameters:")
	for _, k := range names {
		requiredOrOptional := "optional"
		if slices.Contains(required, k) {
			requiredOrOptional = "required"
		}

		boundary := strings.Repeat("=", len(k)+len(requiredOrOptional)+20)

		fmt.Fprintln(w, boundary)
		fmt.Fprintf(w, "%s (%s)\n", k, requiredOrOptional)

		j, err := json.MarshalIndent(properties[k], "", "  ")
		if err != nil {
			// Simply print the raw object if we fail to marshal it
			fmt.Fprintln(w, properties[k])
		} else {
			fmt.Fprintln(w, string(j))
		}
		fmt.Fprintln(w, boundary)
		fmt.Fprintln(w)
	}
}

// schemaProperties extracts the properties and the required property names of an object schema.
func schemaProperties(schema any) (map[string]any, []string) {
	m, ok := schema.(map[string]any)
	if !ok {
		return nil, nil
	}
	properties, _ := m["properties"].(map[string]any)

	var required []string
	if list, ok := m["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}
	return properties, required
}
