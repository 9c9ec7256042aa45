package testhelpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const fakeSessionIDHeader = "Mcp-Session-Id"

// FakeTool is a tool served by FakeMCPServer.
type FakeTool struct {
	Name        string
	Description string

	// InputSchema is the raw JSON schema advertised by tools/list.
	// Defaults to an empty object schema.
	InputSchema string

	// Result is the raw JSON result returned by tools/call.
	// Defaults to a single text block echoing the arguments.
	Result string

	// ErrorCode and ErrorMessage, when set, make tools/call fail with a JSON-RPC error.
	ErrorCode    int
	ErrorMessage string

	// Delay is how long tools/call waits before answering.
	Delay time.Duration
}

// FakeMCPServer is a minimal streamable HTTP MCP server for tests.
// It answers plain JSON (no SSE) and records what it receives.
type FakeMCPServer struct {
	*httptest.Server

	mu            sync.Mutex
	tools         []FakeTool
	pageSize      int
	postHeaders   []http.Header
	deleteHeaders []http.Header
	calls         []string

	sessions atomic.Int64
}

// NewFakeMCPServer starts a fake server serving the given tools.
// The server is closed when the test ends.
func NewFakeMCPServer(t *testing.T, tools ...FakeTool) *FakeMCPServer {
	t.Helper()
	f := &FakeMCPServer{tools: tools}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Close)
	return f
}

// MCPURL returns the URL of the MCP endpoint.
func (f *FakeMCPServer) MCPURL() string {
	return f.URL + "/mcp"
}

// SetTools replaces the served tools.
func (f *FakeMCPServer) SetTools(tools ...FakeTool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools = tools
}

// SetPageSize makes tools/list answer in pages of n tools. Zero disables paging.
func (f *FakeMCPServer) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageSize = n
}

// Headers returns the headers of every POST request received so far.
func (f *FakeMCPServer) Headers() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]http.Header, len(f.postHeaders))
	copy(out, f.postHeaders)
	return out
}

// DeletedSessions returns the session ids of every DELETE request received so far.
func (f *FakeMCPServer) DeletedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleteHeaders))
	for i, h := range f.deleteHeaders {
		out[i] = h.Get(fakeSessionIDHeader)
	}
	return out
}

// DeleteHeaders returns the headers of every DELETE request received so far.
func (f *FakeMCPServer) DeleteHeaders() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]http.Header, len(f.deleteHeaders))
	copy(out, f.deleteHeaders)
	return out
}

// Calls returns the names of the tools called so far.
func (f *FakeMCPServer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (f *FakeMCPServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodDelete:
		f.mu.Lock()
		f.deleteHeaders = append(f.deleteHeaders, r.Header.Clone())
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	f.mu.Lock()
	f.postHeaders = append(f.postHeaders, r.Header.Clone())
	f.mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var msg fakeRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// notifications and responses carry no id and get no answer
	if len(msg.ID) == 0 || string(msg.ID) == "null" {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch msg.Method {
	case "initialize":
		sid := "fake-session-" + strconv.FormatInt(f.sessions.Add(1), 10)
		w.Header().Set(fakeSessionIDHeader, sid)
		writeResult(w, msg.ID, fmt.Sprintf(
			`{"protocolVersion":%q,"capabilities":{"tools":{}},"serverInfo":{"name":"fake","version":"1.0.0"}}`,
			mcp.LATEST_PROTOCOL_VERSION,
		))
	case "ping":
		writeResult(w, msg.ID, `{}`)
	case "tools/list":
		writeResult(w, msg.ID, f.toolsListResult(msg.Params))
	case "tools/call":
		f.handleCall(w, r, msg)
	default:
		writeError(w, msg.ID, -32601, "method not found: "+msg.Method)
	}
}

func (f *FakeMCPServer) toolsListResult(params json.RawMessage) string {
	var p struct {
		Cursor string `json:"cursor"`
	}
	_ = json.Unmarshal(params, &p)

	f.mu.Lock()
	defer f.mu.Unlock()

	// the cursor is the index of the first tool of the page
	start, _ := strconv.Atoi(p.Cursor)
	start = min(max(start, 0), len(f.tools))
	end := len(f.tools)
	if f.pageSize > 0 {
		end = min(start+f.pageSize, end)
	}

	tools := make([]map[string]any, 0, end-start)
	for _, t := range f.tools[start:end] {
		schema := t.InputSchema
		if schema == "" {
			schema = `{"type":"object","properties":{}}`
		}
		entry := map[string]any{
			"name":        t.Name,
			"inputSchema": json.RawMessage(schema),
		}
		if t.Description != "" {
			entry["description"] = t.Description
		}
		tools = append(tools, entry)
	}
	result := map[string]any{"tools": tools}
	if end < len(f.tools) {
		result["nextCursor"] = strconv.Itoa(end)
	}
	b, _ := json.Marshal(result)
	return string(b)
}

func (f *FakeMCPServer) handleCall(w http.ResponseWriter, r *http.Request, msg fakeRPCMessage) {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		writeError(w, msg.ID, -32602, "invalid params")
		return
	}

	f.mu.Lock()
	f.calls = append(f.calls, params.Name)
	var tool *FakeTool
	for i := range f.tools {
		if f.tools[i].Name == params.Name {
			t := f.tools[i]
			tool = &t
			break
		}
	}
	f.mu.Unlock()

	if tool == nil {
		writeError(w, msg.ID, -32602, "unknown tool: "+params.Name)
		return
	}
	if tool.Delay > 0 {
		select {
		case <-time.After(tool.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if tool.ErrorMessage != "" {
		writeError(w, msg.ID, tool.ErrorCode, tool.ErrorMessage)
		return
	}

	result := tool.Result
	if result == "" {
		args, _ := json.Marshal(params.Arguments)
		b, _ := json.Marshal(map[string]any{
			"content": []map[string]any{{"type": "text", "text": string(args)}},
		})
		result = string(b)
	}
	writeResult(w, msg.ID, result)
}

func writeResult(w http.ResponseWriter, id json.RawMessage, result string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, id, result)
}

func writeError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	m, _ := json.Marshal(message)
	_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":%d,"message":%s}}`, id, code, m)
}
