package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mcpjungle/mcpbridge/internal/logger"
	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/internal/service/bridge"
	"github.com/mcpjungle/mcpbridge/internal/service/mcp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect to the configured MCP servers and print their tools",
	Long: "Loads the configuration file, connects to every MCP server in it and prints the discovered tools.\n" +
		"This does not need a running mcpbridge server. The command fails if any server cannot be connected.",
	Args: cobra.NoArgs,
	RunE: runCheckCmd,
	Annotations: map[string]string{
		"group": string(subCommandGroupAdvanced),
		"order": "5",
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheckCmd(cmd *cobra.Command, args []string) error {
	log, err := logger.New(os.Getenv(LogLevelEnvVar))
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	servers, path, err := loadServerConfigs(afero.NewOsFs(), log)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("no configuration file found, pass one with --config")
	}
	cmd.Printf("Checking %d MCP servers from %s\n\n", len(servers), path)

	opts, err := newMcpConnectOptions(log)
	if err != nil {
		return err
	}
	return runCheck(cmd.Context(), cmd.OutOrStdout(), servers, opts, log)
}

// runCheck connects to the given servers, prints the status and the tools of each one and disconnects.
// It returns an error if any server could not be connected.
func runCheck(ctx context.Context, w io.Writer, servers []*model.McpServer, opts []mcp.Option, log *zap.Logger) error {
	hub, err := bridge.NewHub(&bridge.HubConfig{
		Servers:        servers,
		ConnectOptions: opts,
		Logger:         log,
	})
	if err != nil {
		return err
	}
	hub.Start(ctx)
	defer func() {
		if err := hub.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to close some MCP server connections", zap.Error(err))
		}
	}()

	tools := hub.Tools()
	failed := 0
	for _, s := range hub.Servers() {
		fmt.Fprintln(w, formatServerStatus(s))
		if !s.Connected {
			failed++
			continue
		}
		for _, t := range filterToolsByServer(tools, s.Name) {
			fmt.Fprintf(w, "   - %s\n", t.Name())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d MCP servers could not be connected", failed, len(servers))
	}
	fmt.Fprintf(w, "\nAll %d MCP servers are reachable, %d tools discovered\n", len(servers), len(tools))
	return nil
}
