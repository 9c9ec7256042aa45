// Package bridge keeps one live MCP client per configured server and routes tool calls to them.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpjungle/mcpbridge/internal/model"
	mcpsvc "github.com/mcpjungle/mcpbridge/internal/service/mcp"
	"github.com/mcpjungle/mcpbridge/internal/telemetry"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

var (
	ErrServerNotFound    = errors.New("MCP server not found")
	ErrServerUnavailable = errors.New("MCP server is not connected")
	ErrToolNotFound      = errors.New("tool not found")
	ErrToolDisabled      = errors.New("tool is disabled")
	ErrInvalidToolName   = fmt.Errorf("tool name must have the form <server>%s<tool>", model.ServerToolNameSep)
	ErrHubClosed         = errors.New("hub is closed")

	errReconnecting = errors.New("reconnecting")
)

// ToolClient is a connected MCP client as seen by the hub.
type ToolClient interface {
	Tools() []types.ToolSpec
	CallTool(ctx context.Context, name string, input map[string]any) (types.CallResult, error)
	Cleanup(ctx context.Context) error
}

// ConnectFunc connects to an MCP server and returns a client whose tools are already discovered.
type ConnectFunc func(ctx context.Context, s *model.McpServer) (ToolClient, error)

// CallRecorder persists tool call records.
type CallRecorder interface {
	Record(ctx context.Context, call *model.ToolCall) error
}

// HubConfig holds the parameters for creating a Hub.
type HubConfig struct {
	// Servers are the MCP servers to connect to. Their order is preserved everywhere.
	Servers []*model.McpServer

	// Connect defaults to mcp.Connect with ConnectOptions.
	Connect        ConnectFunc
	ConnectOptions []mcpsvc.Option

	// Metrics defaults to a no-op implementation.
	Metrics telemetry.CustomMetrics

	// CallLog is optional. When set, every invocation is recorded.
	CallLog CallRecorder

	// Proxy is optional. When set, the hub's tools are registered on it and kept in sync.
	Proxy *server.MCPServer

	Logger *zap.Logger
}

type serverConn struct {
	server *model.McpServer

	// dialMu serializes connection attempts to the server.
	// It is always taken before Hub.mu, never while holding it.
	dialMu sync.Mutex

	// client is nil while the server is not connected
	client ToolClient
	err    error
}

// Hub owns one MCP client per configured server.
// A server that cannot be connected is kept in a degraded state and never affects the others.
type Hub struct {
	connect ConnectFunc
	metrics telemetry.CustomMetrics
	callLog CallRecorder
	proxy   *server.MCPServer
	logger  *zap.Logger

	mu            sync.RWMutex
	closed        bool
	order         []string
	conns         map[string]*serverConn
	disabledTools map[string]bool

	proxyMu    sync.Mutex
	proxyTools map[string]struct{}
}

// NewHub creates a hub for the given servers. No connection is made until Start.
func NewHub(cfg *HubConfig) (*Hub, error) {
	h := &Hub{
		connect:       cfg.Connect,
		metrics:       cfg.Metrics,
		callLog:       cfg.CallLog,
		proxy:         cfg.Proxy,
		logger:        cfg.Logger,
		conns:         make(map[string]*serverConn, len(cfg.Servers)),
		disabledTools: make(map[string]bool),
		proxyTools:    make(map[string]struct{}),
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.metrics == nil {
		h.metrics = telemetry.NewNoopCustomMetrics()
	}
	if h.connect == nil {
		opts := append([]mcpsvc.Option{mcpsvc.WithLogger(h.logger)}, cfg.ConnectOptions...)
		h.connect = func(ctx context.Context, s *model.McpServer) (ToolClient, error) {
			c, err := mcpsvc.Connect(ctx, s, opts...)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}

	for _, s := range cfg.Servers {
		if err := model.ValidateServerName(s.Name); err != nil {
			return nil, err
		}
		if _, exists := h.conns[s.Name]; exists {
			return nil, fmt.Errorf("MCP server %s is configured more than once", s.Name)
		}
		h.order = append(h.order, s.Name)
		h.conns[s.Name] = &serverConn{server: s, err: errors.New("not connected yet")}
	}
	return h, nil
}

// Start connects to every server concurrently.
// Connection failures are recorded on the server's status and never fail Start.
func (h *Hub) Start(ctx context.Context) {
	h.mu.RLock()
	conns := make([]*serverConn, 0, len(h.order))
	for _, name := range h.order {
		conns = append(conns, h.conns[name])
	}
	h.mu.RUnlock()

	var g errgroup.Group
	for _, conn := range conns {
		g.Go(func() error {
			conn.dialMu.Lock()
			defer conn.dialMu.Unlock()

			client, err := h.dial(ctx, conn.server)
			h.install(ctx, conn, client, err)
			return nil
		})
	}
	_ = g.Wait()

	h.syncProxy()
}

// install makes the outcome of a connection attempt the server's current state.
// Callers hold conn.dialMu. If the hub was closed meanwhile, the new client is cleaned up instead.
func (h *Hub) install(ctx context.Context, conn *serverConn, client ToolClient, err error) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		if client != nil {
			if cerr := client.Cleanup(ctx); cerr != nil {
				h.logger.Warn("error while closing MCP client", zap.String("mcp_server", conn.server.Name), zap.Error(cerr))
			}
		}
		return false
	}
	conn.client = client
	conn.err = err
	h.mu.Unlock()
	return true
}

// dial connects to a single server, logging and measuring the attempt.
func (h *Hub) dial(ctx context.Context, s *model.McpServer) (ToolClient, error) {
	logger := h.logger.With(zap.String("mcp_server", s.Name), zap.String("transport", string(s.Transport)))

	started := time.Now()
	c, err := h.connect(ctx, s)
	h.metrics.RecordServerConnect(ctx, s.Name, string(s.Transport), err == nil)
	if err != nil {
		logger.Error("failed to connect to MCP server, marking it as degraded",
			zap.String("target", s.Target()),
			zap.Error(err),
		)
		return nil, err
	}
	logger.Info("connected to MCP server",
		zap.Int("tools", len(c.Tools())),
		zap.Duration("elapsed", time.Since(started)),
	)
	return c, nil
}

// Servers returns the status of every configured server, in configuration order.
func (h *Hub) Servers() []*types.McpServer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*types.McpServer, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.statusLocked(h.conns[name]))
	}
	return out
}

// Server returns the status of a single server.
func (h *Hub) Server(name string) (*types.McpServer, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conn, ok := h.conns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}
	return h.statusLocked(conn), nil
}

func (h *Hub) statusLocked(conn *serverConn) *types.McpServer {
	v := conn.server.View()
	if conn.client != nil {
		v.Connected = true
		v.ToolCount = len(conn.client.Tools())
	} else if conn.err != nil {
		v.Message = conn.err.Error()
	}
	return v
}

// ServerConfigs returns the configuration of every server, in configuration order.
func (h *Hub) ServerConfigs() []*model.McpServer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*model.McpServer, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.conns[name].server)
	}
	return out
}

// Tools returns the enabled tools of every connected server.
// Tool names are canonical, ie, prefixed with the server name (eg- "github__create_issue").
func (h *Hub) Tools() []types.ToolSpec {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []types.ToolSpec
	for _, name := range h.order {
		conn := h.conns[name]
		if conn.client == nil {
			continue
		}
		for _, t := range conn.client.Tools() {
			canonical := mergeServerToolNames(name, t.Name())
			if h.disabledTools[canonical] {
				continue
			}
			t.ToolSpec.Name = canonical
			out = append(out, t)
		}
	}
	if out == nil {
		out = []types.ToolSpec{}
	}
	return out
}

// Tool returns the spec of a single tool by its canonical name.
func (h *Hub) Tool(name string) (types.ToolSpec, error) {
	serverName, toolName, ok := splitServerToolName(name)
	if !ok {
		return types.ToolSpec{}, ErrInvalidToolName
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	client, err := h.clientLocked(serverName)
	if err != nil {
		return types.ToolSpec{}, err
	}
	for _, t := range client.Tools() {
		if t.Name() == toolName {
			t.ToolSpec.Name = name
			return t, nil
		}
	}
	return types.ToolSpec{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

func (h *Hub) clientLocked(serverName string) (ToolClient, error) {
	conn, ok := h.conns[serverName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, serverName)
	}
	if conn.client == nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrServerUnavailable, serverName, conn.err)
	}
	return conn.client, nil
}

// InvokeTool calls a tool by its canonical name and returns its result.
// Every invocation is measured and, when a call log is configured, recorded.
func (h *Hub) InvokeTool(ctx context.Context, name string, args map[string]any) (types.CallResult, error) {
	serverName, toolName, ok := splitServerToolName(name)
	if !ok {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidToolName, name)
	}

	started := time.Now()
	requestID := uuid.NewString()
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("mcp_server", serverName),
		zap.String("tool", toolName),
	)

	result, err := h.invoke(ctx, serverName, toolName, name, args)

	outcome := outcomeOf(result, err)
	elapsed := time.Since(started)
	h.metrics.RecordToolCall(ctx, serverName, toolName, telemetry.ToolCallOutcome(outcome), elapsed)

	if err != nil {
		logger.Warn("tool call failed", zap.Duration("elapsed", elapsed), zap.Error(err))
	} else {
		logger.Info("tool call finished", zap.Duration("elapsed", elapsed), zap.String("outcome", string(outcome)))
	}
	h.record(ctx, logger, requestID, serverName, toolName, args, outcome, err, elapsed)

	return result, err
}

func (h *Hub) invoke(
	ctx context.Context, serverName, toolName, canonical string, args map[string]any,
) (types.CallResult, error) {
	h.mu.RLock()
	client, err := h.clientLocked(serverName)
	disabled := h.disabledTools[canonical]
	h.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if disabled {
		return nil, fmt.Errorf("%w: %s", ErrToolDisabled, canonical)
	}
	if !hasTool(client, toolName) {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, canonical)
	}

	res, err := client.CallTool(ctx, toolName, args)
	if err != nil {
		return nil, fmt.Errorf("failed to call tool %s on MCP server %s: %w", toolName, serverName, err)
	}
	return res, nil
}

func hasTool(c ToolClient, name string) bool {
	for _, t := range c.Tools() {
		if t.Name() == name {
			return true
		}
	}
	return false
}

func outcomeOf(res types.CallResult, err error) model.ToolCallOutcome {
	if err != nil {
		return model.ToolCallOutcomeError
	}
	if _, ok := res.(types.RawFallback); ok {
		return model.ToolCallOutcomeFallback
	}
	return model.ToolCallOutcomeSuccess
}

func (h *Hub) record(
	ctx context.Context,
	logger *zap.Logger,
	requestID, serverName, toolName string,
	args map[string]any,
	outcome model.ToolCallOutcome,
	callErr error,
	elapsed time.Duration,
) {
	if h.callLog == nil {
		return
	}

	rawArgs, err := json.Marshal(args)
	if err != nil {
		rawArgs = []byte("null")
	}
	call := &model.ToolCall{
		RequestID:  requestID,
		ServerName: serverName,
		ToolName:   toolName,
		Arguments:  datatypes.JSON(rawArgs),
		Outcome:    outcome,
		DurationMs: elapsed.Milliseconds(),
	}
	if callErr != nil {
		call.Error = callErr.Error()
	}

	// the call itself is done, so the record outlives a cancelled request context
	if err := h.callLog.Record(context.WithoutCancel(ctx), call); err != nil {
		logger.Error("failed to record tool call", zap.Error(err))
	}
}

// Reconnect drops the current connection to a server, if any, and connects again.
// The server's tool list is replaced in full.
// Concurrent reconnects of the same server run one after the other.
func (h *Hub) Reconnect(ctx context.Context, name string) (*types.McpServer, error) {
	h.mu.RLock()
	conn, ok := h.conns[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}

	conn.dialMu.Lock()
	defer conn.dialMu.Unlock()

	// the old client is detached before it is closed so no call is routed to it meanwhile
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	old := conn.client
	conn.client = nil
	conn.err = errReconnecting
	h.mu.Unlock()

	if old != nil {
		h.syncProxy()
		if err := old.Cleanup(ctx); err != nil {
			h.logger.Warn("error while closing previous MCP client", zap.String("mcp_server", name), zap.Error(err))
		}
	}

	client, err := h.dial(ctx, conn.server)
	if !h.install(ctx, conn, client, err) {
		return nil, ErrHubClosed
	}

	h.mu.RLock()
	status := h.statusLocked(conn)
	h.mu.RUnlock()

	h.syncProxy()

	if err != nil {
		return status, fmt.Errorf("failed to reconnect to MCP server %s: %w", name, err)
	}
	return status, nil
}

// EnableTools enables one or more tools.
// If the entity is a canonical tool name, only that tool is enabled.
// If the entity is a server name, all tools of that server are enabled.
// It returns the canonical names of the affected tools.
func (h *Hub) EnableTools(entity string) ([]string, error) {
	return h.setToolsEnabled(entity, true)
}

// DisableTools disables one or more tools, see EnableTools.
// Disabled tools are hidden from Tools and refuse invocation.
func (h *Hub) DisableTools(entity string) ([]string, error) {
	return h.setToolsEnabled(entity, false)
}

func (h *Hub) setToolsEnabled(entity string, enabled bool) ([]string, error) {
	h.mu.Lock()
	names, err := h.resolveEntityLocked(entity)
	if err == nil {
		for _, n := range names {
			if enabled {
				delete(h.disabledTools, n)
			} else {
				h.disabledTools[n] = true
			}
		}
	}
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	h.syncProxy()
	return names, nil
}

// resolveEntityLocked expands a tool or server name into canonical tool names.
func (h *Hub) resolveEntityLocked(entity string) ([]string, error) {
	serverName, toolName, isTool := splitServerToolName(entity)

	client, err := h.clientLocked(serverName)
	if err != nil {
		return nil, err
	}

	if isTool {
		if !hasTool(client, toolName) {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, entity)
		}
		return []string{entity}, nil
	}

	tools := client.Tools()
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, mergeServerToolNames(serverName, t.Name()))
	}
	return names, nil
}

// Close cleans up every client. The hub must not be used afterwards.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make(map[string]ToolClient, len(h.conns))
	for name, conn := range h.conns {
		if conn.client != nil {
			clients[name] = conn.client
		}
		conn.client = nil
		conn.err = ErrHubClosed
	}
	h.mu.Unlock()

	var errs []error
	for name, c := range clients {
		if err := c.Cleanup(ctx); err != nil {
			errs = append(errs, fmt.Errorf("MCP server %s: %w", name, err))
		}
	}

	h.syncProxy()
	return errors.Join(errs...)
}
