package types

import "fmt"

// McpServerTransport represents the transport protocol used to reach an MCP server.
// All transport types supported by mcpbridge are defined in this file with this type.
type McpServerTransport string

const (
	TransportStdio          McpServerTransport = "stdio"
	TransportStreamableHTTP McpServerTransport = "streamable_http"
)

// AuthType is the scheme used to synthesize the Authorization header for a streamable http server.
type AuthType string

const (
	AuthTypeBearer AuthType = "bearer"
	AuthTypeBasic  AuthType = "basic"
)

// ServerAuth describes the optional authentication of a streamable http MCP server.
type ServerAuth struct {
	// Type (mandatory) is either "bearer" or "basic".
	Type string `json:"type" yaml:"type"`

	// Token is used by bearer auth.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Username and Password are used by basic auth.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// ServerConfigInput is the user-facing description of a single MCP server.
// It is the basis for each entry of the mcpbridge server configuration file.
type ServerConfigInput struct {
	// Name (mandatory) is the unique name of the MCP server within mcpbridge
	Name string `json:"name" yaml:"name"`

	// Transport is the transport protocol used by the MCP server.
	// Valid values are "stdio" and "streamable_http".
	// If omitted, it is inferred: "stdio" when a command is set, "streamable_http" when a url is set.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Disabled servers are kept in the config file but never connected to.
	Disabled bool `json:"disabled,omitempty" yaml:"disabled,omitempty"`

	// URL is the URL of the remote mcp server.
	// It is mandatory when transport is streamable_http.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Headers is an optional set of static HTTP headers sent to a streamable_http MCP server.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// TimeoutMs bounds every HTTP request made to a streamable_http MCP server.
	// Zero means no timeout.
	TimeoutMs int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`

	// Auth is the optional authentication of a streamable_http MCP server.
	// The resulting Authorization header overrides any Authorization entry in Headers.
	Auth *ServerAuth `json:"auth,omitempty" yaml:"auth,omitempty"`

	// Command is the command to run the mcp server.
	// It is mandatory when the transport is "stdio".
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	// Args is the list of arguments to pass to the command when the transport is "stdio".
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	// Env is the set of environment variables to pass to the mcp server when the transport is "stdio".
	// They are overlaid on top of the environment of mcpbridge itself.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// McpServer is the public view of a configured MCP server along with its connection status.
// It never exposes headers, auth or env values.
type McpServer struct {
	Name        string `json:"name"`
	Transport   string `json:"transport"`
	Description string `json:"description"`

	URL string `json:"url,omitempty"`

	Command string   `json:"command,omitempty"`
	Args    []string `json:"args,omitempty"`

	Connected bool   `json:"connected"`
	ToolCount int    `json:"tool_count"`
	Message   string `json:"message,omitempty"`
}

// ServerMetadata represents the server metadata response
type ServerMetadata struct {
	Version string `json:"version"`
}

// ValidateTransport validates the input string and returns the corresponding McpServerTransport.
// It returns an error if the input is invalid or empty.
func ValidateTransport(input string) (McpServerTransport, error) {
	errMsgExt := fmt.Sprintf(
		"(acceptable values: '%s', '%s')", TransportStreamableHTTP, TransportStdio,
	)

	switch input {
	case string(TransportStreamableHTTP):
		return TransportStreamableHTTP, nil
	case string(TransportStdio):
		return TransportStdio, nil
	case "":
		return "", fmt.Errorf("transport is required %s", errMsgExt)
	default:
		return "", fmt.Errorf("unsupported transport type: %s %s", input, errMsgExt)
	}
}

// ValidateAuthType validates the input string and returns the corresponding AuthType.
func ValidateAuthType(input string) (AuthType, error) {
	switch input {
	case string(AuthTypeBearer):
		return AuthTypeBearer, nil
	case string(AuthTypeBasic):
		return AuthTypeBasic, nil
	default:
		return "", fmt.Errorf(
			"unsupported auth type: '%s' (acceptable values: '%s', '%s')", input, AuthTypeBearer, AuthTypeBasic,
		)
	}
}
