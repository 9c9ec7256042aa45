// Package api provides the HTTP API of mcpbridge for the hosting agent.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mcpjungle/mcpbridge/internal/service/bridge"
	"github.com/mcpjungle/mcpbridge/internal/service/calllog"
	"github.com/mcpjungle/mcpbridge/internal/service/toolmeta"
	"github.com/mcpjungle/mcpbridge/internal/telemetry"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/mcpjungle/mcpbridge/pkg/version"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	V0PathPrefix    = "/v0"
	V0ApiPathPrefix = "/api" + V0PathPrefix
)

type ServerOptions struct {
	// Port is the HTTP port to bind the server to
	Port string

	// APIToken, when set, must be sent as a bearer token to access the API and the MCP proxy.
	APIToken string

	// MCPProxyServer is optional. It exposes the tools of all MCP servers on /mcp.
	MCPProxyServer *server.MCPServer

	Hub        *bridge.Hub
	Aggregator *toolmeta.Aggregator

	// CallLog is optional. Without it, the /calls endpoints respond with 404.
	CallLog *calllog.CallLogService

	OtelProviders *telemetry.Providers
	Logger        *zap.Logger
}

// Server represents the mcpbridge HTTP server that handles API and MCP proxy requests
type Server struct {
	port     string
	apiToken string

	router     *gin.Engine
	httpServer *http.Server

	mcpProxyServer *server.MCPServer

	hub        *bridge.Hub
	aggregator *toolmeta.Aggregator
	callLog    *calllog.CallLogService

	otelProviders *telemetry.Providers
	logger        *zap.Logger
}

// NewServer initializes a new Gin server for the mcpbridge API and MCP proxy
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts.Hub == nil {
		return nil, errors.New("a bridge hub is required")
	}
	s := &Server{
		port:           opts.Port,
		apiToken:       opts.APIToken,
		mcpProxyServer: opts.MCPProxyServer,
		hub:            opts.Hub,
		aggregator:     opts.Aggregator,
		callLog:        opts.CallLog,
		otelProviders:  opts.OtelProviders,
		logger:         opts.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.aggregator == nil {
		s.aggregator = toolmeta.NewAggregator(toolmeta.AggregatorConfig{Logger: s.logger})
	}

	// Set up the router after the server is fully initialized
	r, err := s.setupRouter()
	if err != nil {
		return nil, err
	}
	s.router = r
	s.httpServer = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server (blocking call).
// It returns nil once the server has been shut down.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// setupRouter sets up the Gin router with the MCP proxy server and API endpoints.
func (s *Server) setupRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		// instrument gin
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))

		// expose prometheus metrics endpoint
		r.GET("/metrics", gin.WrapH(s.otelProviders.Handler()))
	}

	r.GET(
		"/health",
		func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		},
	)

	r.GET(
		"/metadata",
		func(c *gin.Context) {
			m := &types.ServerMetadata{
				Version: version.GetVersion(),
			}
			c.JSON(http.StatusOK, m)
		},
	)

	// Set up the MCP proxy server on /mcp
	if s.mcpProxyServer != nil {
		streamableHTTPServer := server.NewStreamableHTTPServer(s.mcpProxyServer)
		r.Any(
			"/mcp",
			s.requireAPIToken(),
			gin.WrapH(streamableHTTPServer),
		)
	}

	// Setup /v0 API endpoints
	apiV0 := r.Group(V0ApiPathPrefix, s.requireAPIToken())
	{
		apiV0.GET("/servers", s.listServersHandler())
		apiV0.GET("/servers/:name", s.getServerHandler())
		apiV0.POST("/servers/:name/reconnect", s.reconnectServerHandler())

		apiV0.GET("/tools", s.listToolsHandler())
		apiV0.GET("/tool", s.getToolHandler())
		apiV0.POST("/tools/invoke", s.invokeToolHandler())
		apiV0.POST("/tools/enable", s.enableToolsHandler())
		apiV0.POST("/tools/disable", s.disableToolsHandler())

		apiV0.GET("/descriptions", s.listDescriptionsHandler())
		apiV0.POST("/descriptions/reset", s.resetDescriptionsHandler())

		apiV0.GET("/calls", s.listCallsHandler())
		apiV0.GET("/calls/:request_id", s.getCallHandler())
	}

	return r, nil
}
