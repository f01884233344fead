// Package observability wires structured logging, tracing and metrics for the
// hydro process.
package observability

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/Black-And-White-Club/hydro/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls the observability stack.
type Config struct {
	ServiceName string
	Environment string
	LogLevel    string
	// Tracing uses the globally registered provider when true, noop otherwise.
	Tracing bool
	Output  io.Writer
}

// Provider bundles the observability handles passed into modules.
type Provider struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.PrometheusMetrics

	tracerProvider trace.TracerProvider
}

// Init builds a Provider. It never fails; misconfiguration falls back to sane defaults.
func Init(cfg Config) *Provider {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	logger := slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var tp trace.TracerProvider = noop.NewTracerProvider()
	if cfg.Tracing {
		tp = otel.GetTracerProvider()
	}

	return &Provider{
		Logger:         logger,
		Registry:       reg,
		Metrics:        metrics.NewPrometheusMetrics(reg, "hydro"),
		tracerProvider: tp,
	}
}

// Tracer returns a named tracer from the configured provider.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.tracerProvider.Tracer(name)
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
