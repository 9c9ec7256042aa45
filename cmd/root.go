// Package cmd implements the mcpbridge command line interface.
package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcpjungle/mcpbridge/client"
	"github.com/spf13/cobra"
)

// subCommandGroup groups the sub-commands in the help output
type subCommandGroup string

const (
	subCommandGroupBasic    subCommandGroup = "Basic Commands"
	subCommandGroupAdvanced subCommandGroup = "Advanced Commands"
)

const (
	// RegistryURLEnvVar overrides the default URL of the mcpbridge server used by client commands
	RegistryURLEnvVar  = "MCPBRIDGE_REGISTRY"
	RegistryURLDefault = "http://127.0.0.1:8080"

	// APITokenEnvVar holds the static token guarding the API.
	// The server requires it when set, client commands send it.
	APITokenEnvVar = "MCPBRIDGE_API_TOKEN"

	// ConfigEnvVar is the path of the MCP server configuration file
	ConfigEnvVar = "MCPBRIDGE_CONFIG"

	LogLevelEnvVar = "MCPBRIDGE_LOG_LEVEL"
)

var (
	registryServerURL string
	configFilePath    string

	// apiClient is created before any sub-command runs
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "mcpbridge",
	Short: "Connect your agent to MCP servers",
	Long: "mcpbridge connects to MCP servers over stdio and streamable HTTP,\n" +
		"exposes their tools in a provider-neutral shape and invokes them on behalf of your agent.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()

		if !cmd.Flags().Changed("registry") {
			if v := os.Getenv(RegistryURLEnvVar); v != "" {
				registryServerURL = v
			}
		}
		apiClient = client.NewClient(
			registryServerURL,
			os.Getenv(APITokenEnvVar),
			&http.Client{Timeout: 5 * time.Minute},
		)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&registryServerURL,
		"registry",
		RegistryURLDefault,
		fmt.Sprintf("base URL of the mcpbridge server (overrides env var %s)", RegistryURLEnvVar),
	)
	rootCmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config",
		"c",
		"",
		fmt.Sprintf("path to the MCP server configuration file (overrides env var %s)", ConfigEnvVar),
	)

	rootCmd.SetHelpFunc(groupedHelp(rootCmd.HelpFunc()))
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		return err
	}
	return nil
}

// groupedHelp prints the root command's sub-commands grouped and ordered by their annotations.
// Help for any other command is delegated to cobra.
func groupedHelp(defaultHelp func(*cobra.Command, []string)) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			defaultHelp(cmd, args)
			return
		}
		writeGroupedHelp(cmd.OutOrStdout(), cmd)
	}
}

func writeGroupedHelp(out io.Writer, cmd *cobra.Command) {
	fmt.Fprintf(out, "%s\n\nUsage:\n  %s [command]\n", cmd.Long, cmd.Use)

	for _, group := range []subCommandGroup{subCommandGroupBasic, subCommandGroupAdvanced} {
		cmds := commandsInGroup(cmd, group)
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s:\n", group)
		for _, c := range cmds {
			fmt.Fprintf(out, "  %-14s %s\n", c.Name(), c.Short)
		}
	}

	fmt.Fprintf(out, "\nFlags:\n%s", cmd.Flags().FlagUsages())
	fmt.Fprintf(out, "\nUse \"%s [command] --help\" for more information about a command.\n", cmd.Use)
}

func commandsInGroup(parent *cobra.Command, group subCommandGroup) []*cobra.Command {
	var cmds []*cobra.Command
	for _, c := range parent.Commands() {
		if c.Hidden || c.Annotations["group"] != string(group) {
			continue
		}
		cmds = append(cmds, c)
	}
	slices.SortStableFunc(cmds, func(a, b *cobra.Command) int {
		return commandOrder(a) - commandOrder(b)
	})
	return cmds
}

func commandOrder(c *cobra.Command) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.Annotations["order"]))
	if err != nil {
		return 1 << 20
	}
	return n
}
