package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/internal/service/calllog"
	"github.com/mcpjungle/mcpbridge/internal/telemetry"
	"github.com/mcpjungle/mcpbridge/pkg/testhelpers"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClient struct {
	tools  []types.ToolSpec
	result func(name string, input map[string]any) (types.CallResult, error)

	mu      sync.Mutex
	calls   []string
	cleaned int
}

func (f *fakeClient) Tools() []types.ToolSpec {
	return append([]types.ToolSpec(nil), f.tools...)
}

func (f *fakeClient) CallTool(_ context.Context, name string, input map[string]any) (types.CallResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.result != nil {
		return f.result(name, input)
	}
	return types.ParsedContent{Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: name}}}, nil
}

func (f *fakeClient) Cleanup(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned++
	return nil
}

func spec(name string) types.ToolSpec {
	return types.ToolSpec{ToolSpec: types.ToolSpecBody{
		Name:        name,
		Description: "the " + name + " tool",
		InputSchema: types.ToolInputSchema{JSON: map[string]any{"type": "object"}},
	}}
}

func stdioServer(t *testing.T, name string) *model.McpServer {
	t.Helper()
	s, err := model.NewStdioServer(name, "", "fake-"+name, nil, nil)
	require.NoError(t, err)
	return s
}

// fakeDialer connects servers present in clients and refuses the others.
type fakeDialer struct {
	mu      sync.Mutex
	clients map[string]*fakeClient
}

func (d *fakeDialer) connect(_ context.Context, s *model.McpServer) (ToolClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.clients[s.Name]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

func (d *fakeDialer) set(name string, c *fakeClient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[name] = c
}

type recordedConnect struct {
	server string
	ok     bool
}

type fakeMetrics struct {
	mu       sync.Mutex
	calls    []telemetry.ToolCallOutcome
	connects []recordedConnect
}

func (m *fakeMetrics) RecordToolCall(_ context.Context, _, _ string, o telemetry.ToolCallOutcome, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, o)
}

func (m *fakeMetrics) RecordServerConnect(_ context.Context, server, _ string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects = append(m.connects, recordedConnect{server, ok})
}

func newStartedHub(t *testing.T, d *fakeDialer, cfg HubConfig, names ...string) *Hub {
	t.Helper()
	for _, n := range names {
		cfg.Servers = append(cfg.Servers, stdioServer(t, n))
	}
	cfg.Connect = d.connect
	h, err := NewHub(&cfg)
	require.NoError(t, err)
	h.Start(context.Background())
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

func TestNewHubRejectsBadServers(t *testing.T) {
	dup := []*model.McpServer{stdioServer(t, "a"), stdioServer(t, "a")}
	_, err := NewHub(&HubConfig{Servers: dup})
	assert.Error(t, err)

	_, err = NewHub(&HubConfig{Servers: []*model.McpServer{{Name: "bad__name", Transport: types.TransportStdio}}})
	assert.Error(t, err)
}

func TestHubStartIsolatesFailures(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{
		"files": {tools: []types.ToolSpec{spec("read"), spec("write")}},
		"web":   {tools: []types.ToolSpec{spec("fetch")}},
	}}
	metrics := &fakeMetrics{}
	h := newStartedHub(t, d, HubConfig{Metrics: metrics}, "files", "broken", "web")

	servers := h.Servers()
	require.Len(t, servers, 3)
	assert.Equal(t, "files", servers[0].Name)
	assert.True(t, servers[0].Connected)
	assert.Equal(t, 2, servers[0].ToolCount)

	assert.Equal(t, "broken", servers[1].Name)
	assert.False(t, servers[1].Connected)
	assert.Contains(t, servers[1].Message, "connection refused")

	assert.True(t, servers[2].Connected)

	names := make([]string, 0)
	for _, tool := range h.Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"files__read", "files__write", "web__fetch"}, names)

	assert.ElementsMatch(t, []recordedConnect{{"files", true}, {"broken", false}, {"web", true}}, metrics.connects)
}

func TestHubToolsEmpty(t *testing.T) {
	h := newStartedHub(t, &fakeDialer{clients: map[string]*fakeClient{}}, HubConfig{}, "down")
	tools := h.Tools()
	assert.NotNil(t, tools)
	assert.Empty(t, tools)
}

func TestHubTool(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{"files": {tools: []types.ToolSpec{spec("read")}}}}
	h := newStartedHub(t, d, HubConfig{}, "files", "down")

	tool, err := h.Tool("files__read")
	require.NoError(t, err)
	assert.Equal(t, "files__read", tool.Name())
	assert.Equal(t, "the read tool", tool.ToolSpec.Description)

	_, err = h.Tool("files__nope")
	assert.True(t, errors.Is(err, ErrToolNotFound))

	_, err = h.Tool("down__read")
	assert.True(t, errors.Is(err, ErrServerUnavailable))

	_, err = h.Tool("ghost__read")
	assert.True(t, errors.Is(err, ErrServerNotFound))

	_, err = h.Tool("nosep")
	assert.True(t, errors.Is(err, ErrInvalidToolName))
}

func TestHubInvokeTool(t *testing.T) {
	files := &fakeClient{
		tools: []types.ToolSpec{spec("read"), spec("odd"), spec("fail")},
		result: func(name string, input map[string]any) (types.CallResult, error) {
			switch name {
			case "odd":
				return types.RawFallback{Serialized: `{"x":1}`}, nil
			case "fail":
				return nil, errors.New("boom")
			}
			return types.ParsedContent{Content: []types.ContentBlock{
				{Type: types.ContentTypeText, Text: input["path"].(string)},
			}}, nil
		},
	}
	d := &fakeDialer{clients: map[string]*fakeClient{"files": files}}
	metrics := &fakeMetrics{}
	h := newStartedHub(t, d, HubConfig{Metrics: metrics}, "files", "down")
	ctx := context.Background()

	res, err := h.InvokeTool(ctx, "files__read", map[string]any{"path": "/tmp/a"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a", types.String(res))

	res, err = h.InvokeTool(ctx, "files__odd", nil)
	require.NoError(t, err)
	assert.Equal(t, types.RawFallback{Serialized: `{"x":1}`}, res)

	_, err = h.InvokeTool(ctx, "files__fail", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = h.InvokeTool(ctx, "files__missing", nil)
	assert.True(t, errors.Is(err, ErrToolNotFound))

	_, err = h.InvokeTool(ctx, "down__read", nil)
	assert.True(t, errors.Is(err, ErrServerUnavailable))

	_, err = h.InvokeTool(ctx, "read", nil)
	assert.True(t, errors.Is(err, ErrInvalidToolName))

	assert.Equal(t, []string{"read", "odd", "fail"}, files.calls, "only known tools reach the server")
	assert.Equal(t, []telemetry.ToolCallOutcome{
		telemetry.ToolCallOutcomeSuccess,
		telemetry.ToolCallOutcomeFallback,
		telemetry.ToolCallOutcomeError,
		telemetry.ToolCallOutcomeError,
		telemetry.ToolCallOutcomeError,
	}, metrics.calls)
}

func TestHubInvokeToolRecordsCalls(t *testing.T) {
	setup := testhelpers.SetupDBTest(t)
	defer setup.Cleanup()
	log := calllog.NewCallLogService(setup.DB)

	d := &fakeDialer{clients: map[string]*fakeClient{"files": {tools: []types.ToolSpec{spec("read")}}}}
	h := newStartedHub(t, d, HubConfig{CallLog: log}, "files", "down")
	ctx := context.Background()

	_, err := h.InvokeTool(ctx, "files__read", map[string]any{"path": "/etc/hosts"})
	require.NoError(t, err)
	_, err = h.InvokeTool(ctx, "down__read", nil)
	require.Error(t, err)

	calls, err := log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, calls, 2)

	byServer := map[string]model.ToolCall{}
	for _, c := range calls {
		byServer[c.ServerName] = c
	}

	ok := byServer["files"]
	assert.Equal(t, "read", ok.ToolName)
	assert.Equal(t, model.ToolCallOutcomeSuccess, ok.Outcome)
	assert.JSONEq(t, `{"path":"/etc/hosts"}`, string(ok.Arguments))
	assert.Empty(t, ok.Error)
	assert.NotEmpty(t, ok.RequestID)

	failed := byServer["down"]
	assert.Equal(t, model.ToolCallOutcomeError, failed.Outcome)
	assert.Contains(t, failed.Error, "not connected")
}

func TestHubInvokeToolLogsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := &fakeDialer{clients: map[string]*fakeClient{"files": {tools: []types.ToolSpec{spec("read")}}}}
	h := newStartedHub(t, d, HubConfig{Logger: zap.New(core)}, "files")

	_, err := h.InvokeTool(context.Background(), "files__read", map[string]any{})
	require.NoError(t, err)

	entries := logs.FilterMessage("tool call finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["request_id"])
	assert.Equal(t, "files", fields["mcp_server"])
	assert.Equal(t, "read", fields["tool"])
	assert.Equal(t, "success", fields["outcome"])
}

func TestHubReconnect(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{}}
	h := newStartedHub(t, d, HubConfig{}, "late")
	ctx := context.Background()

	status, err := h.Reconnect(ctx, "late")
	assert.Error(t, err)
	assert.False(t, status.Connected)

	first := &fakeClient{tools: []types.ToolSpec{spec("a")}}
	d.set("late", first)
	status, err = h.Reconnect(ctx, "late")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.ToolCount)
	assert.Empty(t, status.Message)

	second := &fakeClient{tools: []types.ToolSpec{spec("b"), spec("c")}}
	d.set("late", second)
	_, err = h.Reconnect(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, 1, first.cleaned, "previous client must be cleaned up")

	names := make([]string, 0)
	for _, tool := range h.Tools() {
		names = append(names, tool.Name())
	}
	assert.Equal(t, []string{"late__b", "late__c"}, names)

	_, err = h.Reconnect(ctx, "ghost")
	assert.True(t, errors.Is(err, ErrServerNotFound))
}

func TestHubEnableDisableTools(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{
		"files": {tools: []types.ToolSpec{spec("read"), spec("write")}},
	}}
	h := newStartedHub(t, d, HubConfig{}, "files")
	ctx := context.Background()

	disabled, err := h.DisableTools("files__write")
	require.NoError(t, err)
	assert.Equal(t, []string{"files__write"}, disabled)
	assert.Len(t, h.Tools(), 1)

	_, err = h.InvokeTool(ctx, "files__write", nil)
	assert.True(t, errors.Is(err, ErrToolDisabled))

	_, err = h.Tool("files__write")
	assert.NoError(t, err, "a disabled tool can still be looked up")

	disabled, err = h.DisableTools("files")
	require.NoError(t, err)
	assert.Equal(t, []string{"files__read", "files__write"}, disabled)
	assert.Empty(t, h.Tools())

	enabled, err := h.EnableTools("files")
	require.NoError(t, err)
	assert.Len(t, enabled, 2)
	assert.Len(t, h.Tools(), 2)

	_, err = h.EnableTools("files__nope")
	assert.True(t, errors.Is(err, ErrToolNotFound))
	_, err = h.DisableTools("ghost")
	assert.True(t, errors.Is(err, ErrServerNotFound))
}

func TestHubClose(t *testing.T) {
	c := &fakeClient{tools: []types.ToolSpec{spec("read")}}
	d := &fakeDialer{clients: map[string]*fakeClient{"files": c}}

	h, err := NewHub(&HubConfig{Servers: []*model.McpServer{stdioServer(t, "files")}, Connect: d.connect})
	require.NoError(t, err)
	h.Start(context.Background())

	require.NoError(t, h.Close(context.Background()))
	assert.Equal(t, 1, c.cleaned)
	assert.Empty(t, h.Tools())

	_, err = h.InvokeTool(context.Background(), "files__read", nil)
	assert.True(t, errors.Is(err, ErrServerUnavailable))
}

func TestHubConcurrentInvocations(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{
		"a": {tools: []types.ToolSpec{spec("x")}},
		"b": {tools: []types.ToolSpec{spec("y")}},
	}}
	h := newStartedHub(t, d, HubConfig{}, "a", "b")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "a__x"
			if i%2 == 1 {
				name = "b__y"
			}
			_, err := h.InvokeTool(context.Background(), name, nil)
			if err != nil {
				// b is detached while it reconnects
				assert.ErrorIs(t, err, ErrServerUnavailable)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.Reconnect(context.Background(), "b")
	}()
	wg.Wait()
}

// countingDialer hands out a new client on every connect, optionally waiting on gate first.
type countingDialer struct {
	gate chan struct{}

	mu      sync.Mutex
	created []*fakeClient
}

func (d *countingDialer) connect(ctx context.Context, _ *model.McpServer) (ToolClient, error) {
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c := &fakeClient{tools: []types.ToolSpec{spec("x")}}
	d.mu.Lock()
	d.created = append(d.created, c)
	d.mu.Unlock()
	time.Sleep(10 * time.Millisecond)
	return c, nil
}

func (d *countingDialer) clients() []*fakeClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeClient(nil), d.created...)
}

func TestHubConcurrentReconnect(t *testing.T) {
	d := &countingDialer{}
	h, err := NewHub(&HubConfig{Servers: []*model.McpServer{stdioServer(t, "a")}, Connect: d.connect})
	require.NoError(t, err)
	h.Start(context.Background())

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Reconnect(context.Background(), "a")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	status, err := h.Server("a")
	require.NoError(t, err)
	assert.True(t, status.Connected)

	require.NoError(t, h.Close(context.Background()))

	created := d.clients()
	require.Len(t, created, 3)
	for i, c := range created {
		c.mu.Lock()
		assert.Equal(t, 1, c.cleaned, "client %d must be cleaned up exactly once", i)
		c.mu.Unlock()
	}
}

func TestHubReconnectAfterClose(t *testing.T) {
	d := &countingDialer{gate: make(chan struct{})}
	h, err := NewHub(&HubConfig{Servers: []*model.McpServer{stdioServer(t, "a")}, Connect: d.connect})
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := h.Reconnect(context.Background(), "a")
		done <- err
	}()
	<-started

	require.NoError(t, h.Close(context.Background()))
	close(d.gate)

	assert.ErrorIs(t, <-done, ErrHubClosed)
	for _, c := range d.clients() {
		c.mu.Lock()
		assert.Equal(t, 1, c.cleaned, "a client connected after close must be cleaned up")
		c.mu.Unlock()
	}

	_, err = h.Reconnect(context.Background(), "a")
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHubAgainstFakeHTTPServer(t *testing.T) {
	f := testhelpers.NewFakeMCPServer(t,
		testhelpers.FakeTool{Name: "greet", Result: `{"content":[{"type":"text","text":"hello"}]}`},
	)
	s, err := model.NewStreamableHTTPServer("remote", "", model.StreamableHTTPConfig{URL: f.MCPURL()})
	require.NoError(t, err)

	h, err := NewHub(&HubConfig{Servers: []*model.McpServer{s}})
	require.NoError(t, err)
	h.Start(context.Background())

	tools := h.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "remote__greet", tools[0].Name())

	res, err := h.InvokeTool(context.Background(), "remote__greet", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "hello", types.String(res))
	assert.Equal(t, []string{"greet"}, f.Calls())

	require.NoError(t, h.Close(context.Background()))
	assert.NotEmpty(t, f.DeletedSessions())
}
