// Package telemetry sets up OpenTelemetry metrics for mcpbridge, exported in the Prometheus format.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config holds the telemetry configuration
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized metric provider.
// When telemetry is disabled, Meter is a no-op meter and Shutdown does nothing.
type Providers struct {
	Meter metric.Meter

	config        *Config
	meterProvider *sdkmetric.MeterProvider
	registry      *promclient.Registry
}

// Init initializes OpenTelemetry metrics with a Prometheus exporter.
// Each call uses its own Prometheus registry, served by Providers.Handler.
func Init(ctx context.Context, config *Config) (*Providers, error) {
	if config == nil || !config.Enabled {
		return &Providers{
			Meter:  noop.NewMeterProvider().Meter("mcpbridge"),
			config: &Config{},
		}, nil
	}

	registry := promclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", config.ServiceName))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return &Providers{
		Meter:         mp.Meter(config.ServiceName),
		config:        config,
		meterProvider: mp,
		registry:      registry,
	}, nil
}

// IsEnabled returns true if telemetry was initialized in enabled mode
func (p *Providers) IsEnabled() bool {
	return p != nil && p.config != nil && p.config.Enabled
}

// ServiceName returns the service name metrics are reported under
func (p *Providers) ServiceName() string {
	if p == nil || p.config == nil {
		return ""
	}
	return p.config.ServiceName
}

// Handler returns the HTTP handler serving metrics in the Prometheus text format.
// It returns a handler answering 404 when telemetry is disabled.
func (p *Providers) Handler() http.Handler {
	if !p.IsEnabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
