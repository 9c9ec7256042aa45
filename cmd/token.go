package cmd

import (
	"fmt"

	"github.com/mcpjungle/mcpbridge/internal/auth"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate a random API token",
	Long: "Prints a random token suitable for the " + APITokenEnvVar + " environment variable.\n" +
		"Set the same value on the server and on the machines running client commands.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.GenerateAPIToken()
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		cmd.Println(token)
		return nil
	},
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "6",
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
