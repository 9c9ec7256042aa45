package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reconnectCmd = &cobra.Command{
	Use:   "reconnect <server>",
	Short: "Reconnect to an MCP server",
	Long: "Closes the session with an MCP server, connects to it again and rediscovers its tools.\n" +
		"Useful after the server has been restarted or has failed to start.",
	Args: cobra.ExactArgs(1),
	RunE: runReconnect,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "5",
	},
}

func init() {
	rootCmd.AddCommand(reconnectCmd)
}

func runReconnect(cmd *cobra.Command, args []string) error {
	s, err := apiClient.ReconnectServer(args[0])
	if err != nil {
		return fmt.Errorf("failed to reconnect to '%s': %w", args[0], err)
	}
	cmd.Println(formatServerStatus(s))
	return nil
}
