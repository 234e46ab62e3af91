package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Black-And-White-Club/pushup-bot/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Provider bundles the logger, metrics registry and tracer handed to modules.
type Provider struct {
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Tracer   trace.Tracer
	HTTP     *HTTPMetrics

	metricsServer *http.Server
}

// Init builds a Provider from cfg. Logs go to stdout as JSON.
func Init(cfg config.ObservabilityConfig, serviceName string) (*Provider, error) {
	return newProvider(cfg, serviceName, os.Stdout)
}

func newProvider(cfg config.ObservabilityConfig, serviceName string, w io.Writer) (*Provider, error) {
	logger := NewLogger(w, cfg.LogLevel).With(
		slog.String("service", serviceName),
		slog.String("environment", cfg.Environment),
	)

	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	httpMetrics, err := NewHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		Logger:   logger,
		Registry: reg,
		Tracer:   otel.Tracer(serviceName),
		HTTP:     httpMetrics,
	}, nil
}

// NewLogger returns a JSON slog logger at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a config level name to a slog level. Unknown names map to
// info.
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

// MetricsHandler exposes the registry in the Prometheus text format.
func (p *Provider) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{Registry: p.Registry})
}

// StartMetricsServer serves /metrics on addr in the background. An empty addr
// disables the listener.
func (p *Provider) StartMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.MetricsHandler())
	p.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		p.Logger.Info("Metrics server listening", slog.String("addr", addr))
		if err := p.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.Logger.Error("Metrics server failed", slog.Any("error", err))
		}
	}()
}

// Shutdown stops the metrics server if one was started.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.metricsServer == nil {
		return nil
	}
	return p.metricsServer.Shutdown(ctx)
}
