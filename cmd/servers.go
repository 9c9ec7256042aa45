package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/mcpjungle/mcpbridge/internal/config"
	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// loadServerConfigs finds and loads the MCP server configuration file.
// precedence: --config flag > MCPBRIDGE_CONFIG env var > default search paths.
// Having no config file at all is not an error when no path was given explicitly; mcpbridge then runs without servers.
func loadServerConfigs(fs afero.Fs, logger *zap.Logger) ([]*model.McpServer, string, error) {
	explicit := configFilePath
	if explicit == "" {
		explicit = os.Getenv(ConfigEnvVar)
	}

	path, err := config.Find(fs, explicit)
	if err != nil {
		if explicit == "" && errors.Is(err, config.ErrNotFound) {
			logger.Warn("no MCP server configuration file found, starting without MCP servers", zap.Error(err))
			return nil, "", nil
		}
		return nil, "", err
	}

	f, err := config.Load(fs, path)
	if err != nil {
		return nil, path, err
	}
	servers, err := f.McpServers(logger)
	if err != nil {
		return nil, path, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return servers, path, nil
}
