package cmd

import (
	"errors"
	"fmt"

	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/spf13/cobra"
)

var (
	callsCmdServerName string
	callsCmdLimit      int
)

var callsCmd = &cobra.Command{
	Use:   "calls [request id]",
	Short: "Show the tool call log",
	Long: "Lists the most recent tool calls, newest first.\n" +
		"Pass a request id to show a single call.",
	Args: cobra.MaximumNArgs(1),
	RunE: runCalls,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "4",
	},
}

func init() {
	callsCmd.Flags().StringVar(&callsCmdServerName, "server", "", "only show calls made to this MCP server")
	callsCmd.Flags().IntVar(&callsCmdLimit, "limit", 20, "maximum number of calls to show")
	rootCmd.AddCommand(callsCmd)
}

func runCalls(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		record, err := apiClient.GetCall(args[0])
		if err != nil {
			return fmt.Errorf("failed to get tool call: %w", err)
		}
		cmd.Println(formatCallRecord(record))
		return nil
	}

	if callsCmdLimit < 1 {
		return errors.New("limit must be a positive integer")
	}
	records, err := apiClient.ListCalls(callsCmdServerName, callsCmdLimit)
	if err != nil {
		return fmt.Errorf("failed to list tool calls: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No tool calls have been made yet")
		return nil
	}
	for i := range records {
		cmd.Println(formatCallRecord(&records[i]))
	}
	return nil
}

func formatCallRecord(r *types.ToolCallRecord) string {
	s := fmt.Sprintf("%s  %s  %s__%s  %s  %dms", r.CreatedAt, r.RequestID, r.Server, r.Tool, r.Outcome, r.DurationMs)
	if r.Error != "" {
		s += "\n    " + r.Error
	}
	return s
}
