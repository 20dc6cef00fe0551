// Package telemetry sets up OpenTelemetry metrics for rtreedb binaries. The
// MeterProvider exports through Prometheus; the caller mounts the returned
// handler (or lets this package serve it) to expose /metrics.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// Config holds all the configuration for the telemetry system.
type Config struct {
	// Enabled toggles the entire telemetry system on or off.
	Enabled bool `yaml:"enabled"`
	// ServiceName is the name of the service that will appear in metrics.
	ServiceName string `yaml:"service_name"`
	// PrometheusPort is the port on which to expose the /metrics endpoint.
	// Zero disables the built-in listener; use Handler instead.
	PrometheusPort int `yaml:"prometheus_port"`
}

// Telemetry represents the active telemetry components.
type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter
}

// ShutdownFunc gracefully shuts down the telemetry providers.
type ShutdownFunc func(ctx context.Context) error

// Handler returns the Prometheus scrape handler for embedding in an existing
// HTTP mux.
func Handler() http.Handler {
	return promhttp.Handler()
}

// New initializes the OpenTelemetry SDK with a Prometheus metric exporter.
// When disabled it returns no-op components so callers never branch.
func New(config Config) (*Telemetry, ShutdownFunc, error) {
	if !config.Enabled {
		return &Telemetry{
			MeterProvider: nil,
			Meter:         noop.NewMeterProvider().Meter(""),
		}, func(ctx context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	if config.PrometheusPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", config.PrometheusPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				otel.Handle(fmt.Errorf("prometheus http server failed: %w", err))
			}
		}()
	}

	tel := &Telemetry{
		MeterProvider: meterProvider,
		Meter:         meterProvider.Meter(config.ServiceName),
	}

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		return nil
	}

	return tel, shutdown, nil
}
