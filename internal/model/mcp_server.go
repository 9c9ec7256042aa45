package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mcpjungle/mcpbridge/pkg/types"
)

var (
	// ErrMissingURL is returned when a streamable http server is configured without a URL.
	ErrMissingURL = errors.New("url is required for streamable HTTP transport")

	// ErrMissingCommand is returned when a stdio server is configured without a command.
	ErrMissingCommand = errors.New("command is required for stdio transport")
)

// ServerToolNameSep separates the server name from the tool name in a canonical tool name.
// eg- `github__git_commit` is the tool `git_commit` of the server `github`.
const ServerToolNameSep = "__"

// Only allow letters, numbers, hyphens, and underscores
var validServerName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateServerName checks if the server name is valid.
// When a tool is invoked, the text before the first `__` of its canonical name is treated as the server name,
// so a server name must neither contain `__` nor end with an underscore.
func ValidateServerName(name string) error {
	if name == "" {
		return errors.New("invalid server name: must not be empty")
	}
	if !validServerName.MatchString(name) {
		return fmt.Errorf("invalid server name: '%s' must follow the regular expression %s", name, validServerName)
	}
	if strings.Contains(name, ServerToolNameSep) {
		return fmt.Errorf("invalid server name: '%s' must not contain multiple consecutive underscores", name)
	}
	if strings.HasSuffix(name, "_") {
		// `aws_` + `ec2` -> `aws___ec2` would split into `aws` + `_ec2`
		return fmt.Errorf("invalid server name: '%s' must not end with an underscore", name)
	}
	return nil
}

// AuthConfig describes how to authenticate against a streamable http MCP server.
type AuthConfig struct {
	Type types.AuthType

	// Token is used by bearer auth
	Token string

	// Username and Password are used by basic auth
	Username string
	Password string
}

type StreamableHTTPConfig struct {
	// URL must be a valid http/https URL.
	URL string

	// Headers are optional static HTTP headers sent with every request to the MCP server.
	Headers map[string]string

	// TimeoutMs bounds each HTTP request made to the MCP server. Zero disables the timeout.
	TimeoutMs int

	// Auth is optional. When present, the Authorization header derived from it
	// overrides any Authorization entry in Headers.
	Auth *AuthConfig
}

type StdioConfig struct {
	// Command is the command to run the stdio mcp server.
	// It is resolved against the user's PATH before the subprocess is spawned.
	Command string

	// Args contains a list of strings that are passed as arguments to the command
	Args []string

	// Env describes the environment variables to pass to the MCP server.
	// They are overlaid on top of the environment of mcpbridge.
	Env map[string]string
}

// McpServer is a named MCP server connection config.
// Exactly one of Stdio or HTTP is set, matching Transport.
type McpServer struct {
	Name        string
	Description string
	Transport   types.McpServerTransport

	Stdio *StdioConfig
	HTTP  *StreamableHTTPConfig
}

// NewStreamableHTTPServer creates a new MCP server with streamable HTTP transport configuration.
func NewStreamableHTTPServer(name, description string, conf StreamableHTTPConfig) (*McpServer, error) {
	if err := ValidateServerName(name); err != nil {
		return nil, err
	}
	if conf.URL == "" {
		return nil, ErrMissingURL
	}
	if conf.TimeoutMs < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %dms", conf.TimeoutMs)
	}
	if conf.Auth != nil {
		if err := conf.Auth.validate(); err != nil {
			return nil, err
		}
	}
	return &McpServer{
		Name:        name,
		Description: description,
		Transport:   types.TransportStreamableHTTP,
		HTTP:        &conf,
	}, nil
}

// NewStdioServer creates a new MCP server with stdio transport configuration.
func NewStdioServer(name, description, command string, args []string, env map[string]string) (*McpServer, error) {
	if err := ValidateServerName(name); err != nil {
		return nil, err
	}
	if command == "" {
		return nil, ErrMissingCommand
	}
	return &McpServer{
		Name:        name,
		Description: description,
		Transport:   types.TransportStdio,
		Stdio: &StdioConfig{
			Command: command,
			Args:    args,
			Env:     env,
		},
	}, nil
}

// GetStreamableHTTPConfig returns the configuration if this is a streamable HTTP server
func (s *McpServer) GetStreamableHTTPConfig() (*StreamableHTTPConfig, error) {
	if s.Transport != types.TransportStreamableHTTP || s.HTTP == nil {
		return nil, errors.New("server is not a streamable HTTP transport type")
	}
	return s.HTTP, nil
}

// GetStdioConfig returns the configuration if this is a stdio server
func (s *McpServer) GetStdioConfig() (*StdioConfig, error) {
	if s.Transport != types.TransportStdio || s.Stdio == nil {
		return nil, errors.New("server is not a stdio transport type")
	}
	return s.Stdio, nil
}

// Target returns a human-readable description of where the server lives (its URL or command).
// It is only meant for logs and error messages.
func (s *McpServer) Target() string {
	switch s.Transport {
	case types.TransportStreamableHTTP:
		if s.HTTP != nil {
			return s.HTTP.URL
		}
	case types.TransportStdio:
		if s.Stdio != nil {
			return s.Stdio.Command
		}
	}
	return ""
}

// View returns the public view of this server, stripped of any secrets.
func (s *McpServer) View() *types.McpServer {
	v := &types.McpServer{
		Name:        s.Name,
		Transport:   string(s.Transport),
		Description: s.Description,
	}
	switch s.Transport {
	case types.TransportStreamableHTTP:
		if s.HTTP != nil {
			v.URL = s.HTTP.URL
		}
	case types.TransportStdio:
		if s.Stdio != nil {
			v.Command = s.Stdio.Command
			v.Args = s.Stdio.Args
		}
	}
	return v
}

func (a *AuthConfig) validate() error {
	switch a.Type {
	case types.AuthTypeBearer:
		if a.Token == "" {
			return errors.New("bearer auth requires a token")
		}
	case types.AuthTypeBasic:
		if a.Username == "" {
			return errors.New("basic auth requires a username")
		}
	default:
		return fmt.Errorf("unsupported auth type: '%s'", a.Type)
	}
	return nil
}
