package toolmeta

import (
	"context"
	"fmt"

	"github.com/mcpjungle/mcpbridge/internal/builtin"
	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/internal/service/mcp"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultDiscoveryConcurrency is the number of MCP servers discovered in parallel.
const DefaultDiscoveryConcurrency = 4

// ToolLister is a connected MCP client as seen by the aggregator.
type ToolLister interface {
	Tools() []types.ToolSpec
	Cleanup(ctx context.Context) error
}

// ConnectFunc connects to an MCP server and returns a client whose tools are already discovered.
type ConnectFunc func(ctx context.Context, s *model.McpServer) (ToolLister, error)

// AggregatorConfig holds the collaborators of an Aggregator. Zero fields get defaults.
type AggregatorConfig struct {
	// Cache holds the built-in descriptions. Defaults to a cache over builtin.Descriptions.
	Cache *DescriptionCache

	// BuiltinSpecs returns the specs of the built-in tools. Defaults to builtin.Specs.
	BuiltinSpecs func() ([]types.ToolSpec, error)

	// Connect defaults to mcp.Connect with ConnectOptions.
	Connect        ConnectFunc
	ConnectOptions []mcp.Option

	Logger      *zap.Logger
	Concurrency int
}

// Aggregator merges built-in and MCP tool descriptions.
type Aggregator struct {
	cache        *DescriptionCache
	builtinSpecs func() ([]types.ToolSpec, error)
	connect      ConnectFunc
	logger       *zap.Logger
	concurrency  int
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	a := &Aggregator{
		cache:        cfg.Cache,
		builtinSpecs: cfg.BuiltinSpecs,
		connect:      cfg.Connect,
		logger:       cfg.Logger,
		concurrency:  cfg.Concurrency,
	}
	if a.cache == nil {
		a.cache = NewDescriptionCache(builtin.Descriptions)
	}
	if a.builtinSpecs == nil {
		a.builtinSpecs = builtin.Specs
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.connect == nil {
		opts := append([]mcp.Option{mcp.WithLogger(a.logger)}, cfg.ConnectOptions...)
		a.connect = func(ctx context.Context, s *model.McpServer) (ToolLister, error) {
			c, err := mcp.Connect(ctx, s, opts...)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	if a.concurrency <= 0 {
		a.concurrency = DefaultDiscoveryConcurrency
	}
	return a
}

// Cache returns the cache holding the built-in descriptions.
func (a *Aggregator) Cache() *DescriptionCache {
	return a.cache
}

// SystemPromptDescriptions returns the descriptions of the built-in tools.
// The mapping is computed once and served from the cache afterwards.
func (a *Aggregator) SystemPromptDescriptions() map[string]string {
	return a.cache.Get()
}

// MCPSystemPromptDescriptions discovers the tools of every given server and returns their descriptions.
// Servers are discovered independently: a server that cannot be reached is logged and skipped.
// When two servers expose a tool with the same name, the server listed later wins.
// The result is never cached since the server list may change between calls.
func (a *Aggregator) MCPSystemPromptDescriptions(ctx context.Context, servers []*model.McpServer) map[string]string {
	out := make(map[string]string)
	for _, specs := range a.discover(ctx, servers) {
		for _, s := range specs {
			out[s.Name()] = MCPToolDescription(s)
		}
	}
	return out
}

// AllSystemPromptDescriptions merges the MCP descriptions with the built-in ones.
// Built-in descriptions win on name collision.
func (a *Aggregator) AllSystemPromptDescriptions(ctx context.Context, servers []*model.McpServer) map[string]string {
	out := a.MCPSystemPromptDescriptions(ctx, servers)
	for name, desc := range a.SystemPromptDescriptions() {
		if _, ok := out[name]; ok {
			a.logger.Debug("built-in tool shadows an MCP tool with the same name", zap.String("tool", name))
		}
		out[name] = desc
	}
	return out
}

// ResetToolMetadataCache drops the cached built-in descriptions.
func (a *Aggregator) ResetToolMetadataCache() {
	a.cache.Invalidate()
}

// ToolSpecs returns the specs of the built-in tools followed by the specs of every discovered MCP tool.
// Name collisions are resolved like in AllSystemPromptDescriptions.
func (a *Aggregator) ToolSpecs(ctx context.Context, servers []*model.McpServer) ([]types.ToolSpec, error) {
	builtins, err := a.builtinSpecs()
	if err != nil {
		return nil, fmt.Errorf("failed to build built-in tool specs: %w", err)
	}

	specs := make([]types.ToolSpec, 0, len(builtins))
	index := make(map[string]int, len(builtins))
	for _, s := range builtins {
		index[s.Name()] = len(specs)
		specs = append(specs, s)
	}
	builtinCount := len(specs)

	for _, serverSpecs := range a.discover(ctx, servers) {
		for _, s := range serverSpecs {
			i, ok := index[s.Name()]
			switch {
			case ok && i < builtinCount:
				continue
			case ok:
				specs[i] = s
			default:
				index[s.Name()] = len(specs)
				specs = append(specs, s)
			}
		}
	}
	return specs, nil
}

// MCPToolDescription renders the system prompt description of an MCP tool.
func MCPToolDescription(s types.ToolSpec) string {
	desc := s.ToolSpec.Description
	if desc == "" {
		desc = "MCP tool: " + s.Name()
	}
	return desc + "\nMCP tool provided by external server.\nRefer to tool documentation for specific usage."
}

// discover connects to every server with bounded concurrency and returns their tools, in server order.
// A nil entry means discovery failed for that server.
func (a *Aggregator) discover(ctx context.Context, servers []*model.McpServer) [][]types.ToolSpec {
	results := make([][]types.ToolSpec, len(servers))

	// goroutines never return errors so that one failing server does not cancel the others
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, s := range servers {
		g.Go(func() error {
			results[i] = a.discoverServer(ctx, s)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Aggregator) discoverServer(ctx context.Context, s *model.McpServer) []types.ToolSpec {
	logger := a.logger.With(zap.String("mcp_server", s.Name))

	c, err := a.connect(ctx, s)
	if err != nil {
		logger.Warn("skipping MCP server, tool discovery failed", zap.Error(err))
		return nil
	}
	defer func() {
		if err := c.Cleanup(ctx); err != nil {
			logger.Debug("error while cleaning up discovery client", zap.Error(err))
		}
	}()

	tools := c.Tools()
	logger.Debug("discovered MCP tools for system prompt", zap.Int("count", len(tools)))
	return tools
}
