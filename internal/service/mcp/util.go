package mcp

import (
	"bufio"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"go.uber.org/zap"
)

const (
	envPATH = "PATH"

	headerAuthorization = "Authorization"
)

// buildStdioEnv returns the environment for a stdio server subprocess as KEY=VALUE pairs.
// overrides are laid on top of base. PATH is always present: the override if given,
// otherwise the PATH found in base, otherwise an empty string.
func buildStdioEnv(base []string, overrides map[string]string) []string {
	merged := make(map[string]string, len(base)+len(overrides)+1)
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	if _, ok := merged[envPATH]; !ok {
		merged[envPATH] = ""
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// buildHTTPHeaders returns the headers sent with every request to a streamable HTTP server.
// The configured auth is applied after the explicit headers, so the Authorization header it
// produces replaces any Authorization header given explicitly (compared case-insensitively).
func buildHTTPHeaders(conf *model.StreamableHTTPConfig) map[string]string {
	headers := make(map[string]string, len(conf.Headers)+1)
	for k, v := range conf.Headers {
		headers[k] = v
	}

	value, ok := authorizationHeader(conf.Auth)
	if !ok {
		return headers
	}
	for k := range headers {
		if strings.EqualFold(k, headerAuthorization) {
			delete(headers, k)
		}
	}
	headers[headerAuthorization] = value
	return headers
}

// authorizationHeader renders the Authorization header value for the given auth config.
func authorizationHeader(auth *model.AuthConfig) (string, bool) {
	if auth == nil {
		return "", false
	}
	switch auth.Type {
	case types.AuthTypeBearer:
		return "Bearer " + auth.Token, true
	case types.AuthTypeBasic:
		creds := auth.Username + ":" + auth.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds)), true
	default:
		return "", false
	}
}

// prepareSHTTPClientOptions prepares the options for creating a streamable HTTP client.
// headers ride on the HTTP client so they also reach the session termination request.
// A zero timeout leaves requests unbounded.
func prepareSHTTPClientOptions(
	headers map[string]string, timeout time.Duration, logger *zap.Logger,
) []transport.StreamableHTTPCOption {
	return []transport.StreamableHTTPCOption{
		transport.WithHTTPBasicClient(newSHTTPHTTPClient(headers, timeout)),
		transport.WithHTTPLogger(newTransportLogger(logger)),
	}
}

// isLoopbackURL returns true if rawURL resolves to a loopback address.
func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()

	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// captureStdioServerStderr forwards the stderr output of a stdio MCP server to the logger, line by line,
// until the process exits.
func captureStdioServerStderr(logger *zap.Logger, c *client.Client) {
	stdioTransport, ok := c.GetTransport().(*transport.Stdio)
	if !ok {
		return
	}
	go drainStderr(logger, stdioTransport.Stderr())
}

func drainStderr(logger *zap.Logger, r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		logger.Debug("mcp server stderr", zap.String("line", line))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn("error reading mcp server stderr", zap.Error(err))
		return
	}
	logger.Debug("mcp server stderr closed")
}
