package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	bridgeclient "github.com/mcpjungle/mcpbridge/client"
	"github.com/mcpjungle/mcpbridge/internal/api"
	"github.com/mcpjungle/mcpbridge/internal/config"
	"github.com/mcpjungle/mcpbridge/internal/service/bridge"
	"github.com/mcpjungle/mcpbridge/internal/service/calllog"
	mcpsvc "github.com/mcpjungle/mcpbridge/internal/service/mcp"
	"github.com/mcpjungle/mcpbridge/internal/service/toolmeta"
	"github.com/mcpjungle/mcpbridge/internal/telemetry"
	"github.com/mcpjungle/mcpbridge/pkg/testhelpers"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const integrationToken = "integration-token"

// TestBridgeEndToEnd wires config, hub, call log, API server and client together
// against a fake streamable HTTP MCP server.
func TestBridgeEndToEnd(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	upstream := testhelpers.NewFakeMCPServer(t,
		testhelpers.FakeTool{
			Name:        "greet",
			Description: "Greet someone",
			InputSchema: `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`,
			Result:      `{"content":[{"type":"text","text":"hello world"}]}`,
		},
		testhelpers.FakeTool{Name: "echo"},
		testhelpers.FakeTool{Name: "odd", Result: `{"content":[{"type":"audio","data":"AAAA"}]}`},
	)

	t.Setenv("MCPBRIDGE_IT_URL", upstream.MCPURL())
	f, err := config.Parse([]byte(`
servers:
  - name: remote
    url: ${MCPBRIDGE_IT_URL}
    description: fake upstream
  - name: down
    url: http://127.0.0.1:1/mcp
`))
	require.NoError(t, err)
	servers, err := f.McpServers(logger)
	require.NoError(t, err)

	setup := testhelpers.SetupDBTest(t)
	t.Cleanup(setup.Cleanup)
	callLog := calllog.NewCallLogService(setup.DB)

	providers, err := telemetry.Init(ctx, &telemetry.Config{ServiceName: "mcpbridge-it", Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })
	metrics, err := telemetry.NewOtelCustomMetrics(providers.Meter)
	require.NoError(t, err)

	connectOpts := []mcpsvc.Option{mcpsvc.WithInitTimeout(5 * time.Second), mcpsvc.WithLogger(logger)}
	proxy := server.NewMCPServer("mcpbridge", "test", server.WithToolCapabilities(true))
	hub, err := bridge.NewHub(&bridge.HubConfig{
		Servers:        servers,
		ConnectOptions: connectOpts,
		Metrics:        metrics,
		CallLog:        callLog,
		Proxy:          proxy,
		Logger:         logger,
	})
	require.NoError(t, err)
	hub.Start(ctx)
	t.Cleanup(func() { _ = hub.Close(context.Background()) })

	s, err := api.NewServer(&api.ServerOptions{
		APIToken:       integrationToken,
		MCPProxyServer: proxy,
		Hub:            hub,
		Aggregator:     toolmeta.NewAggregator(toolmeta.AggregatorConfig{ConnectOptions: connectOpts, Logger: logger}),
		CallLog:        callLog,
		OtelProviders:  providers,
		Logger:         logger,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	c := bridgeclient.NewClient(ts.URL, integrationToken, &http.Client{Timeout: 30 * time.Second})

	t.Run("servers", func(t *testing.T) {
		list, err := c.ListServers()
		require.NoError(t, err)
		require.Len(t, list, 2)

		assert.Equal(t, "remote", list[0].Name)
		assert.True(t, list[0].Connected)
		assert.Equal(t, 3, list[0].ToolCount)
		assert.Equal(t, "fake upstream", list[0].Description)

		assert.Equal(t, "down", list[1].Name)
		assert.False(t, list[1].Connected)
		assert.NotEmpty(t, list[1].Message)
	})

	t.Run("tools", func(t *testing.T) {
		tools, err := c.ListTools()
		require.NoError(t, err)
		names := make([]string, len(tools))
		for i, tool := range tools {
			names[i] = tool.Name()
		}
		assert.ElementsMatch(t, []string{"remote__greet", "remote__echo", "remote__odd"}, names)

		greet, err := c.GetTool("remote__greet")
		require.NoError(t, err)
		assert.Equal(t, "Greet someone", greet.ToolSpec.Description)
		schema, ok := greet.ToolSpec.InputSchema.JSON.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []any{"name"}, schema["required"])
	})

	t.Run("invoke", func(t *testing.T) {
		res, err := c.InvokeTool("remote__greet", map[string]any{"name": "world"})
		require.NoError(t, err)
		assert.Equal(t, types.ParsedContent{Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: "hello world"}}}, res)

		res, err = c.InvokeTool("remote__echo", map[string]any{"n": 1})
		require.NoError(t, err)
		assert.Equal(t, `{"n":1}`, types.String(res))

		res, err = c.InvokeTool("remote__odd", nil)
		require.NoError(t, err)
		_, isFallback := res.(types.RawFallback)
		assert.True(t, isFallback, "unsupported content should fall back to the raw result")

		_, err = c.InvokeTool("down__anything", nil)
		assert.Error(t, err)
	})

	t.Run("call log", func(t *testing.T) {
		records, err := c.ListCalls("", 10)
		require.NoError(t, err)
		require.Len(t, records, 4)

		remote, err := c.ListCalls("remote", 10)
		require.NoError(t, err)
		assert.Len(t, remote, 3)

		failed, err := c.ListCalls("down", 10)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "error", failed[0].Outcome)

		one, err := c.GetCall(failed[0].RequestID)
		require.NoError(t, err)
		assert.Equal(t, "anything", one.Tool)
	})

	t.Run("disable and enable", func(t *testing.T) {
		names, err := c.DisableTools("remote__echo")
		require.NoError(t, err)
		assert.Equal(t, []string{"remote__echo"}, names)

		_, err = c.InvokeTool("remote__echo", nil)
		assert.Error(t, err)

		_, err = c.EnableTools("remote__echo")
		require.NoError(t, err)
		_, err = c.InvokeTool("remote__echo", nil)
		assert.NoError(t, err)
	})

	t.Run("descriptions", func(t *testing.T) {
		d, err := c.GetDescriptions(bridgeclient.DescriptionSourceMCP)
		require.NoError(t, err)
		// descriptions are keyed by the tool name advertised by the server
		assert.Contains(t, d, "greet")
		assert.Contains(t, d["greet"], "Greet someone")
	})

	t.Run("mcp proxy", func(t *testing.T) {
		pc, err := mcpclient.NewStreamableHttpClient(
			ts.URL+"/mcp",
			transport.WithHTTPHeaders(map[string]string{"Authorization": "Bearer " + integrationToken}),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pc.Close() })

		require.NoError(t, pc.Start(ctx))
		initReq := mcp.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initReq.Params.ClientInfo = mcp.Implementation{Name: "it", Version: "0"}
		_, err = pc.Initialize(ctx, initReq)
		require.NoError(t, err)

		listed, err := pc.ListTools(ctx, mcp.ListToolsRequest{})
		require.NoError(t, err)
		assert.Len(t, listed.Tools, 3)

		callReq := mcp.CallToolRequest{}
		callReq.Params.Name = "remote__greet"
		callReq.Params.Arguments = map[string]any{"name": "world"}
		res, err := pc.CallTool(ctx, callReq)
		require.NoError(t, err)
		require.Len(t, res.Content, 1)
		text, ok := mcp.AsTextContent(res.Content[0])
		require.True(t, ok)
		assert.Equal(t, "hello world", text.Text)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unauthorized", func(t *testing.T) {
		anon := bridgeclient.NewClient(ts.URL, "", nil)
		_, err := anon.ListServers()
		require.Error(t, err)
		assert.Contains(t, err.Error(), fmt.Sprint(http.StatusUnauthorized))
	})
}
