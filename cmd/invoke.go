package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/spf13/cobra"
)

var invokeCmdInput string

var invokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Invoke a tool",
	Long: "Invokes a tool by its canonical name (<server>__<tool>) and prints the result.\n" +
		"The tool's input is supplied as a JSON object, eg: --input '{\"path\": \"/tmp\"}'",
	Args: cobra.ExactArgs(1),
	RunE: runInvokeTool,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "4",
	},
}

func init() {
	invokeCmd.Flags().StringVar(&invokeCmdInput, "input", "{}", "valid JSON payload")
	rootCmd.AddCommand(invokeCmd)
}

func runInvokeTool(cmd *cobra.Command, args []string) error {
	input, err := parseToolInput(invokeCmdInput)
	if err != nil {
		return err
	}

	result, err := apiClient.InvokeTool(args[0], input)
	if err != nil {
		return fmt.Errorf("failed to invoke tool: %w", err)
	}
	printCallResult(cmd.OutOrStdout(), result)
	return nil
}

// parseToolInput decodes the JSON object passed on the command line.
func parseToolInput(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("invalid input: must be a JSON object: %w", err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}

func printCallResult(w io.Writer, result types.CallResult) {
	switch r := result.(type) {
	case types.RawFallback:
		fmt.Fprintln(w, "The tool returned a result that could not be parsed, showing it as is:")
		fmt.Fprintln(w, r.Serialized)
	case types.ParsedContent:
		if r.IsError {
			fmt.Fprintln(w, "The tool returned an error:")
		}
		for _, b := range r.Content {
			switch b.Type {
			case types.ContentTypeText:
				fmt.Fprintln(w, b.Text)
			case types.ContentTypeImage:
				fmt.Fprintf(w, "[image %s, %d bytes of base64 data]\n", b.MimeType, len(b.Data))
			}
		}
		if len(r.Content) == 0 {
			fmt.Fprintln(w, "The tool returned no content")
		}
	}
}
