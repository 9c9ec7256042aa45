// Package config loads the list of MCP servers mcpbridge connects to.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory when no path is given.
const DefaultFileName = "mcpbridge.yaml"

// ErrNotFound is returned by Find when no config file exists.
var ErrNotFound = errors.New("no mcpbridge config file found")

// File is the content of a mcpbridge config file.
// JSON files are accepted too since JSON is a subset of YAML.
type File struct {
	Servers []types.ServerConfigInput `yaml:"servers" json:"servers"`
}

// DefaultSearchPaths returns the config file search order:
// ./mcpbridge.yaml, ~/.config/mcpbridge/mcpbridge.yaml, /etc/mcpbridge/mcpbridge.yaml.
func DefaultSearchPaths() []string {
	paths := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mcpbridge", DefaultFileName))
	}
	return append(paths, filepath.Join("/etc", "mcpbridge", DefaultFileName))
}

// Find locates a config file. If explicit is non-empty, it must exist.
// Otherwise the first existing path of DefaultSearchPaths is returned.
func Find(fs afero.Fs, explicit string) (string, error) {
	if explicit != "" {
		if _, err := fs.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	for _, p := range DefaultSearchPaths() {
		if _, err := fs.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (searched: %v)", ErrNotFound, DefaultSearchPaths())
}

// Load reads and parses a config file.
// Environment variable references like ${GITHUB_TOKEN} are expanded before parsing.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses the content of a config file.
func Parse(data []byte) (*File, error) {
	expanded := os.ExpandEnv(string(data))

	f := &File{}
	if err := yaml.Unmarshal([]byte(expanded), f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return f, nil
}

// McpServers converts the enabled entries of the file into server configs.
// Any invalid entry fails the whole file so that mistakes surface at startup.
func (f *File) McpServers(logger *zap.Logger) ([]*model.McpServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]bool, len(f.Servers))
	servers := make([]*model.McpServer, 0, len(f.Servers))
	for i, in := range f.Servers {
		if seen[in.Name] {
			return nil, fmt.Errorf("server #%d: duplicate server name %q", i+1, in.Name)
		}
		seen[in.Name] = true

		if in.Disabled {
			logger.Info("skipping disabled MCP server", zap.String("mcp_server", in.Name))
			continue
		}
		s, err := ToMcpServer(in)
		if err != nil {
			return nil, fmt.Errorf("server #%d (%s): %w", i+1, in.Name, err)
		}
		servers = append(servers, s)
	}
	return servers, nil
}

// ToMcpServer validates a single config entry and converts it into a server config.
func ToMcpServer(in types.ServerConfigInput) (*model.McpServer, error) {
	transport, err := inferTransport(in)
	if err != nil {
		return nil, err
	}

	switch transport {
	case types.TransportStdio:
		return model.NewStdioServer(in.Name, in.Description, in.Command, in.Args, in.Env)
	default:
		conf := model.StreamableHTTPConfig{
			URL:       in.URL,
			Headers:   in.Headers,
			TimeoutMs: in.TimeoutMs,
		}
		if in.Auth != nil {
			authType, err := types.ValidateAuthType(in.Auth.Type)
			if err != nil {
				return nil, err
			}
			conf.Auth = &model.AuthConfig{
				Type:     authType,
				Token:    in.Auth.Token,
				Username: in.Auth.Username,
				Password: in.Auth.Password,
			}
		}
		return model.NewStreamableHTTPServer(in.Name, in.Description, conf)
	}
}

// inferTransport returns the explicit transport of the entry, or infers it from the command or url.
func inferTransport(in types.ServerConfigInput) (types.McpServerTransport, error) {
	if in.Transport != "" {
		return types.ValidateTransport(in.Transport)
	}
	switch {
	case in.Command != "" && in.URL != "":
		return "", errors.New("both command and url are set, specify the transport explicitly")
	case in.Command != "":
		return types.TransportStdio, nil
	case in.URL != "":
		return types.TransportStreamableHTTP, nil
	default:
		return types.ValidateTransport("")
	}
}
