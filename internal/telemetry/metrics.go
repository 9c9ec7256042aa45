package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolCallOutcome classifies a tool call for metrics
type ToolCallOutcome string

const (
	ToolCallOutcomeSuccess  ToolCallOutcome = "success"
	ToolCallOutcomeFallback ToolCallOutcome = "fallback"
	ToolCallOutcomeError    ToolCallOutcome = "error"
)

// CustomMetrics records mcpbridge-specific metrics.
// Use NewNoopCustomMetrics when telemetry is disabled so callers never need to check.
type CustomMetrics interface {
	// RecordToolCall records a single tool invocation and how long it took
	RecordToolCall(ctx context.Context, serverName, toolName string, outcome ToolCallOutcome, elapsed time.Duration)

	// RecordServerConnect records an attempt to connect to an MCP server
	RecordServerConnect(ctx context.Context, serverName, transport string, ok bool)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics that does nothing
func NewNoopCustomMetrics() CustomMetrics {
	return noopCustomMetrics{}
}

func (noopCustomMetrics) RecordToolCall(context.Context, string, string, ToolCallOutcome, time.Duration) {}

func (noopCustomMetrics) RecordServerConnect(context.Context, string, string, bool) {}

type otelCustomMetrics struct {
	toolCalls       metric.Int64Counter
	toolCallLatency metric.Float64Histogram
	serverConnects  metric.Int64Counter
}

// NewOtelCustomMetrics creates the mcpbridge instruments on the given meter
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	toolCalls, err := meter.Int64Counter(
		"mcpbridge.tool.calls",
		metric.WithDescription("Number of tool calls made through mcpbridge"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call counter: %w", err)
	}

	toolCallLatency, err := meter.Float64Histogram(
		"mcpbridge.tool.call.duration",
		metric.WithDescription("Duration of tool calls made through mcpbridge"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call duration histogram: %w", err)
	}

	serverConnects, err := meter.Int64Counter(
		"mcpbridge.server.connects",
		metric.WithDescription("Number of attempts to connect to MCP servers"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create server connect counter: %w", err)
	}

	return &otelCustomMetrics{
		toolCalls:       toolCalls,
		toolCallLatency: toolCallLatency,
		serverConnects:  serverConnects,
	}, nil
}

func (m *otelCustomMetrics) RecordToolCall(
	ctx context.Context, serverName, toolName string, outcome ToolCallOutcome, elapsed time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("mcp_server_name", serverName),
		attribute.String("tool_name", toolName),
		attribute.String("outcome", string(outcome)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolCallLatency.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordServerConnect(ctx context.Context, serverName, transport string, ok bool) {
	m.serverConnects.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mcp_server_name", serverName),
		attribute.String("transport", transport),
		attribute.Bool("success", ok),
	))
}
