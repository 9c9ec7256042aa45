package mcp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/util"
	"go.uber.org/zap"
)

// headerRoundTripper sets the configured headers on every request sent to a streamable HTTP server.
// mcp-go's own header options are not applied to the DELETE it sends when the transport closes,
// so the headers are attached at the HTTP client level instead.
type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

func (rt *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(rt.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range rt.headers {
			req.Header.Set(k, v)
		}
	}
	next := rt.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// newSHTTPHTTPClient returns the HTTP client used for every request of one streamable HTTP session,
// including the session termination sent on close.
// A zero timeout means no timeout.
func newSHTTPHTTPClient(headers map[string]string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &headerRoundTripper{headers: headers, next: http.DefaultTransport},
	}
}

// transportLogger routes mcp-go's transport logging into zap.
type transportLogger struct {
	logger *zap.Logger
}

var _ util.Logger = (*transportLogger)(nil)

func newTransportLogger(l *zap.Logger) *transportLogger {
	return &transportLogger{logger: l.WithOptions(zap.AddCallerSkip(1))}
}

func (l *transportLogger) Infof(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

func (l *transportLogger) Errorf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

// sessionID returns the session ID assigned by the server, if the transport tracks one.
func sessionID(t transport.Interface) string {
	if t == nil {
		return ""
	}
	if s, ok := t.(interface{ GetSessionId() string }); ok {
		return s.GetSessionId()
	}
	return ""
}
