package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/pkg/testhelpers"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTools() []testhelpers.FakeTool {
	return []testhelpers.FakeTool{
		{
			Name:        "greet",
			Description: "Say hello",
			InputSchema: `{"type":"object","properties":{"name":{"type":"string"}},"required":["name"]}`,
			Result:      `{"content":[{"type":"text","text":"hello"}]}`,
		},
		{
			Name:   "weather",
			Result: `{"unexpected": "shape"}`,
		},
		{
			Name:         "broken",
			ErrorCode:    -32000,
			ErrorMessage: "backend unavailable",
		},
		{
			Name:  "slow",
			Delay: 3 * time.Second,
		},
	}
}

func connectFake(t *testing.T, f *testhelpers.FakeMCPServer, conf model.StreamableHTTPConfig) *Client {
	t.Helper()
	conf.URL = f.MCPURL()
	c, err := ConnectHTTP(context.Background(), "fake", &conf, WithInitTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Cleanup(context.Background()) })
	return c
}

func TestConnectHTTPMissingURL(t *testing.T) {
	c, err := ConnectHTTP(context.Background(), "nourl", &model.StreamableHTTPConfig{})
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, model.ErrMissingURL))

	c, err = ConnectHTTP(context.Background(), "nilconf", nil)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, model.ErrMissingURL))
}

func TestConnectHTTPDiscoversTools(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	c := connectFake(t, f, model.StreamableHTTPConfig{})

	assert.Equal(t, "fake", c.Name())
	assert.Equal(t, types.TransportStreamableHTTP, c.Transport())

	tools := c.Tools()
	require.Len(t, tools, 4)
	assert.Equal(t, "greet", tools[0].Name())
	assert.Equal(t, "Say hello", tools[0].ToolSpec.Description)
	assert.Equal(t, "weather", tools[1].Name())
	assert.Empty(t, tools[1].ToolSpec.Description)

	schema, ok := tools[0].ToolSpec.InputSchema.JSON.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"name"}, schema["required"])

	// the returned slice is a copy
	tools[0].ToolSpec.Name = "changed"
	assert.Equal(t, "greet", c.Tools()[0].Name())
}

func TestConnectHTTPSendsAuthAndHeaders(t *testing.T) {
	tests := []struct {
		name     string
		conf     model.StreamableHTTPConfig
		wantAuth string
	}{
		{
			name: "basic auth",
			conf: model.StreamableHTTPConfig{
				Headers: map[string]string{"X-Api-Key": "k1"},
				Auth:    &model.AuthConfig{Type: types.AuthTypeBasic, Username: "user", Password: "pass"},
			},
			wantAuth: "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass")),
		},
		{
			name: "bearer auth overrides explicit header",
			conf: model.StreamableHTTPConfig{
				Headers: map[string]string{"X-Api-Key": "k1", "Authorization": "token explicit"},
				Auth:    &model.AuthConfig{Type: types.AuthTypeBearer, Token: "secret"},
			},
			wantAuth: "Bearer secret",
		},
		{
			name:     "explicit authorization header",
			conf:     model.StreamableHTTPConfig{Headers: map[string]string{"X-Api-Key": "k1", "Authorization": "token explicit"}},
			wantAuth: "token explicit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
			c := connectFake(t, f, tt.conf)

			_, err := c.CallTool(context.Background(), "greet", map[string]any{"name": "x"})
			require.NoError(t, err)

			headers := f.Headers()
			require.NotEmpty(t, headers)
			for _, h := range headers {
				assert.Equal(t, tt.wantAuth, h.Get("Authorization"))
				assert.Equal(t, "k1", h.Get("X-Api-Key"))
			}
		})
	}
}

func TestCallToolParsedContent(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	c := connectFake(t, f, model.StreamableHTTPConfig{})

	res, err := c.CallTool(context.Background(), "greet", map[string]any{"name": "world"})
	require.NoError(t, err)

	pc, ok := res.(types.ParsedContent)
	require.True(t, ok, "expected parsed content, got %T", res)
	assert.Equal(t, []types.ContentBlock{{Type: types.ContentTypeText, Text: "hello"}}, pc.Content)
	assert.False(t, pc.IsError)
	assert.Equal(t, []string{"greet"}, f.Calls())
}

func TestCallToolRawFallback(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	c := connectFake(t, f, model.StreamableHTTPConfig{})

	res, err := c.CallTool(context.Background(), "weather", nil)
	require.NoError(t, err)

	fb, ok := res.(types.RawFallback)
	require.True(t, ok, "expected a raw fallback, got %T", res)
	assert.Equal(t, `{"unexpected":"shape"}`, fb.Serialized)
}

func TestCallToolProtocolError(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	c := connectFake(t, f, model.StreamableHTTPConfig{})

	res, err := c.CallTool(context.Background(), "broken", map[string]any{})
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unavailable")
}

func TestCallToolHonoursTimeout(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	c := connectFake(t, f, model.StreamableHTTPConfig{TimeoutMs: 200})

	started := time.Now()
	_, err := c.CallTool(context.Background(), "slow", map[string]any{})
	assert.Error(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestCleanupTerminatesSessionOnce(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	conf := &model.StreamableHTTPConfig{
		URL:     f.MCPURL(),
		Headers: map[string]string{"X-Api-Key": "k1"},
		Auth:    &model.AuthConfig{Type: types.AuthTypeBearer, Token: "secret"},
	}
	c, err := ConnectHTTP(context.Background(), "fake", conf)
	require.NoError(t, err)

	err = c.Cleanup(context.Background())
	require.NoError(t, err)

	deletes := f.DeleteHeaders()
	require.Len(t, deletes, 1, "the session must be terminated exactly once")
	assert.Equal(t, "fake-session-1", deletes[0].Get("Mcp-Session-Id"))
	assert.Equal(t, "Bearer secret", deletes[0].Get("Authorization"))
	assert.Equal(t, "k1", deletes[0].Get("X-Api-Key"))

	assert.Equal(t, err, c.Cleanup(context.Background()))
	assert.Len(t, f.DeleteHeaders(), 1, "second cleanup must not do anything")
}

func TestConnectHTTPKeepsAdvertisedSchema(t *testing.T) {
	schema := `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"title": "Args",
		"description": "top",
		"properties": {"q": {"$ref": "#/definitions/Q"}},
		"definitions": {"Q": {"type": "string", "minLength": 1}},
		"oneOf": [{"required": ["q"]}, {"properties": {"q": {"const": ""}}}]
	}`
	f := testhelpers.NewFakeMCPServer(t, testhelpers.FakeTool{Name: "lookup", InputSchema: schema})
	c := connectFake(t, f, model.StreamableHTTPConfig{})

	tools := c.Tools()
	require.Len(t, tools, 1)
	got, err := json.Marshal(tools[0].ToolSpec.InputSchema.JSON)
	require.NoError(t, err)
	assert.JSONEq(t, schema, string(got))

	m, ok := tools[0].ToolSpec.InputSchema.JSON.(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, m, "$defs")
	assert.NotContains(t, m, "required")
}

func TestConnectHTTPFollowsToolPages(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	f.SetPageSize(3)
	c := connectFake(t, f, model.StreamableHTTPConfig{})

	tools := c.Tools()
	require.Len(t, tools, 4)
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name()
	}
	assert.Equal(t, []string{"greet", "weather", "broken", "slow"}, names)
}

func TestConnectHTTPUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL + "/mcp"
	srv.Close()

	c, err := ConnectHTTP(context.Background(), "gone", &model.StreamableHTTPConfig{URL: url},
		WithInitTimeout(2*time.Second),
	)
	assert.Nil(t, c)
	assert.Error(t, err)
}

func TestConnectDispatchesOnTransport(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)

	s, err := model.NewStreamableHTTPServer("fake", "", model.StreamableHTTPConfig{URL: f.MCPURL()})
	require.NoError(t, err)
	c, err := Connect(context.Background(), s)
	require.NoError(t, err)
	defer func() { _ = c.Cleanup(context.Background()) }()
	assert.Len(t, c.Tools(), 4)

	_, err = Connect(context.Background(), &model.McpServer{Name: "x", Transport: "sse"})
	assert.True(t, errors.Is(err, ErrUnsupportedTransport))
}

func TestRefreshToolsReplacesList(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t, fakeTools()...)
	c := connectFake(t, f, model.StreamableHTTPConfig{})
	require.Len(t, c.Tools(), 4)

	f.SetTools(testhelpers.FakeTool{Name: "only"})
	require.NoError(t, c.RefreshTools(context.Background()))

	tools := c.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "only", tools[0].Name())
}
