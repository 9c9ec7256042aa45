// Package mcp implements the MCP (Model Context Protocol) client side of mcpbridge.
//
// A Client represents one connection to one MCP server, either a subprocess speaking
// over stdio or a remote server speaking streamable HTTP. Clients are only ever
// handed out fully connected: the Connect* functions spawn or dial the server,
// perform the initialize handshake and discover the server's tools before returning.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/internal/shellpath"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

const (
	// DefaultInitTimeout is the default amount of time given to an MCP server to answer the initialize request.
	DefaultInitTimeout = 10 * time.Second

	jsonrpcVersion  = "2.0"
	methodToolsList = "tools/list"
	methodToolsCall = "tools/call"

	// maxToolPages bounds tools/list pagination against servers that keep returning a cursor
	maxToolPages = 100
)

// ErrUnsupportedTransport is returned by Connect when the server config names an unknown transport.
var ErrUnsupportedTransport = errors.New("unsupported MCP server transport")

// CommandResolver maps a command name to the executable that should be spawned.
type CommandResolver interface {
	Resolve(command string) string
}

type options struct {
	logger        *zap.Logger
	initTimeout   time.Duration
	resolver      CommandResolver
	clientName    string
	clientVersion string
}

// Option customizes how a Client connects.
type Option func(*options)

// WithLogger sets the logger used by the client. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithInitTimeout bounds the initialize handshake.
func WithInitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.initTimeout = d
		}
	}
}

// WithResolver overrides the resolver used to locate stdio server executables.
func WithResolver(r CommandResolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithClientInfo sets the client implementation info advertised during the handshake.
func WithClientInfo(name, version string) Option {
	return func(o *options) {
		o.clientName = name
		o.clientVersion = version
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:        zap.NewNop(),
		initTimeout:   DefaultInitTimeout,
		resolver:      shellpath.Default,
		clientName:    "mcpbridge",
		clientVersion: "0.1",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Client is a live connection to a single MCP server.
// It owns exactly one transport session and the tool list discovered over it.
type Client struct {
	name   string
	logger *zap.Logger

	conn *client.Client
	kind types.McpServerTransport

	mu    sync.RWMutex
	tools []types.ToolSpec

	cleanupOnce sync.Once
	cleanupErr  error
}

// Connect connects to the given MCP server using the transport named in its config.
func Connect(ctx context.Context, s *model.McpServer, opts ...Option) (*Client, error) {
	switch s.Transport {
	case types.TransportStdio:
		conf, err := s.GetStdioConfig()
		if err != nil {
			return nil, err
		}
		return ConnectStdio(ctx, s.Name, conf.Command, conf.Args, conf.Env, opts...)
	case types.TransportStreamableHTTP:
		conf, err := s.GetStreamableHTTPConfig()
		if err != nil {
			return nil, err
		}
		return ConnectHTTP(ctx, s.Name, conf, opts...)
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrUnsupportedTransport, s.Transport)
	}
}

// ConnectStdio spawns command as an MCP server subprocess and connects to it over its standard streams.
// The command is resolved against the user's shell PATH first.
// env is overlaid on top of the environment of the current process.
func ConnectStdio(
	ctx context.Context, name, command string, args []string, env map[string]string, opts ...Option,
) (*Client, error) {
	if command == "" {
		return nil, model.ErrMissingCommand
	}
	o := newOptions(opts)
	logger := o.logger.With(zap.String("mcp_server", name), zap.String("transport", string(types.TransportStdio)))

	resolved := o.resolver.Resolve(command)
	if resolved == "" {
		resolved = command
	}
	logger.Info("starting stdio MCP server",
		zap.String("command", command),
		zap.String("resolved_command", resolved),
		zap.Strings("args", args),
	)

	conn, err := client.NewStdioMCPClientWithOptions(
		resolved,
		buildStdioEnv(os.Environ(), env),
		args,
		transport.WithCommandLogger(newTransportLogger(logger)),
	)
	if err != nil {
		logger.Error("failed to start stdio MCP server", zap.Error(err))
		return nil, fmt.Errorf("failed to start stdio MCP server %s (command %s): %w", name, resolved, err)
	}
	captureStdioServerStderr(logger, conn)

	c := &Client{
		name:   name,
		logger: logger,
		conn:   conn,
		kind:   types.TransportStdio,
	}
	if err := c.start(ctx, o, resolved); err != nil {
		_ = c.Cleanup(ctx)
		return nil, err
	}
	return c, nil
}

// ConnectHTTP connects to a remote MCP server over streamable HTTP.
// It fails before doing any I/O if the config has no URL.
func ConnectHTTP(ctx context.Context, name string, conf *model.StreamableHTTPConfig, opts ...Option) (*Client, error) {
	if conf == nil || conf.URL == "" {
		return nil, model.ErrMissingURL
	}
	o := newOptions(opts)
	logger := o.logger.With(
		zap.String("mcp_server", name),
		zap.String("transport", string(types.TransportStreamableHTTP)),
		zap.String("url", conf.URL),
	)

	headers := buildHTTPHeaders(conf)
	timeout := time.Duration(conf.TimeoutMs) * time.Millisecond

	conn, err := client.NewStreamableHttpClient(conf.URL, prepareSHTTPClientOptions(headers, timeout, logger)...)
	if err != nil {
		logger.Error("failed to create streamable HTTP client", zap.Error(err))
		return nil, fmt.Errorf("failed to create streamable HTTP client for MCP server %s: %w", name, err)
	}

	c := &Client{
		name:   name,
		logger: logger,
		conn:   conn,
		kind:   types.TransportStreamableHTTP,
	}
	if err := c.start(ctx, o, conf.URL); err != nil {
		_ = c.Cleanup(ctx)
		return nil, err
	}
	return c, nil
}

// Name returns the name of the MCP server this client is connected to.
func (c *Client) Name() string {
	return c.name
}

// Transport returns the kind of transport this client speaks.
func (c *Client) Transport() types.McpServerTransport {
	return c.kind
}

// Tools returns the tools discovered during the last discovery.
// It never triggers discovery itself.
func (c *Client) Tools() []types.ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.ToolSpec, len(c.tools))
	copy(out, c.tools)
	return out
}

// RefreshTools re-runs tool discovery, replacing the previously discovered list in full.
func (c *Client) RefreshTools(ctx context.Context) error {
	return c.loadTools(ctx)
}

// CallTool invokes a tool on the MCP server.
// Transport and protocol failures are returned as errors.
// A successful response is never rejected because of its shape: if it does not match the
// text/image content union, a types.RawFallback holding the serialized response is returned.
func (c *Client) CallTool(ctx context.Context, toolName string, input map[string]any) (types.CallResult, error) {
	if input == nil {
		input = map[string]any{}
	}
	raw, err := c.sendRequest(ctx, methodToolsCall, map[string]any{
		"name":      toolName,
		"arguments": input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call tool %s on MCP server %s: %w", toolName, c.name, err)
	}

	result := ParseCallResult(raw)
	if _, ok := result.(types.RawFallback); ok {
		c.logger.Warn("tool result did not match the expected content shape, returning it serialized",
			zap.String("tool", toolName),
		)
	}
	return result, nil
}

// Cleanup terminates the session and closes the connection.
// For streamable HTTP, closing the transport sends exactly one DELETE carrying the session ID
// and the configured headers; a failure there is logged by the transport and otherwise ignored.
// For stdio, closing stops the subprocess.
// Cleanup is idempotent and safe to call on a client whose connection failed partway.
func (c *Client) Cleanup(_ context.Context) error {
	c.cleanupOnce.Do(func() {
		if c.conn == nil {
			return
		}

		if sid := sessionID(c.conn.GetTransport()); sid != "" {
			c.logger.Debug("terminating MCP session", zap.String("session_id", sid))
		}

		if err := c.conn.Close(); err != nil {
			c.cleanupErr = fmt.Errorf("failed to close connection to MCP server %s: %w", c.name, err)
			c.logger.Debug("error while closing MCP client", zap.Error(err))
		}
		c.logger.Info("closed MCP client")
	})
	return c.cleanupErr
}

// start performs the handshake followed by the initial tool discovery.
func (c *Client) start(ctx context.Context, o *options, target string) error {
	if err := c.initialize(ctx, o, target); err != nil {
		c.logger.Error("MCP handshake failed", zap.Error(err))
		return err
	}
	if err := c.loadTools(ctx); err != nil {
		c.logger.Error("MCP tool discovery failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *Client) initialize(ctx context.Context, o *options, target string) error {
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    o.clientName,
		Version: o.clientVersion,
	}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}

	initCtx, cancel := context.WithTimeout(ctx, o.initTimeout)
	defer cancel()

	res, err := c.conn.Initialize(initCtx, initRequest)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf(
				"initialization request to MCP server %s timed out after %s", c.name, o.initTimeout,
			)
		}
		if errors.Is(err, syscall.ECONNREFUSED) && isLoopbackURL(target) {
			return fmt.Errorf(
				"connection to the MCP server %s was refused. "+
					"If mcpbridge is running inside Docker, use 'host.docker.internal' as your MCP server's hostname",
				target,
			)
		}
		return fmt.Errorf("failed to initialize connection with MCP server %s: %w", c.name, err)
	}

	c.logger.Info("MCP server initialized",
		zap.String("server_name", res.ServerInfo.Name),
		zap.String("server_version", res.ServerInfo.Version),
		zap.String("protocol_version", res.ProtocolVersion),
	)
	return nil
}

// loadTools fetches the server's tools and replaces the cached list with their normalized specs.
func (c *Client) loadTools(ctx context.Context) error {
	tools, err := c.listTools(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch tools from MCP server %s: %w", c.name, err)
	}

	specs, err := NormalizeTools(tools)
	if err != nil {
		return fmt.Errorf("failed to normalize tools of MCP server %s: %w", c.name, err)
	}
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name())
	}

	c.mu.Lock()
	c.tools = specs
	c.mu.Unlock()

	c.logger.Info("discovered MCP tools", zap.Int("count", len(specs)), zap.Strings("tools", names))
	return nil
}

// listTools walks every page of tools/list.
// The request is sent raw so each input schema reaches the normalizer exactly as the server advertised it;
// mcp-go's typed ListTools would decode it into a fixed struct and drop keywords it does not model.
func (c *Client) listTools(ctx context.Context) ([]DiscoveredTool, error) {
	var (
		tools  []DiscoveredTool
		cursor string
	)
	for range maxToolPages {
		var params map[string]any
		if cursor != "" {
			params = map[string]any{"cursor": cursor}
		}
		raw, err := c.sendRequest(ctx, methodToolsList, params)
		if err != nil {
			return nil, err
		}

		var page struct {
			Tools      []DiscoveredTool `json:"tools"`
			NextCursor string           `json:"nextCursor,omitempty"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("invalid tools/list result: %w", err)
		}
		tools = append(tools, page.Tools...)

		if page.NextCursor == "" || page.NextCursor == cursor {
			return tools, nil
		}
		cursor = page.NextCursor
	}
	return nil, fmt.Errorf("tools/list did not finish after %d pages", maxToolPages)
}

// sendRequest sends a raw JSON-RPC request over the transport and returns the result payload.
// A JSON-RPC error response is returned as an error.
func (c *Client) sendRequest(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	req := transport.JSONRPCRequest{
		JSONRPC: jsonrpcVersion,
		ID:      mcp.NewRequestId("mcpbridge-" + uuid.NewString()),
		Method:  method,
	}
	if params != nil {
		req.Params = params
	}

	resp, err := c.conn.GetTransport().SendRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("MCP server %s returned an error for %s: [%d] %s",
			c.name, method, resp.Error.Code, resp.Error.Message)
	}
	return resp.Result, nil
}
