package instrumentation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexandreLamarre/padlock/pkg/logger"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

func newMetricsExporter(registry *promclient.Registry) (metric.Reader, error) {
	return prometheus.New(prometheus.WithRegisterer(registry))
}

// MetricsServer owns a meter provider exported in the prometheus format, and optionally
// serves it for scraping alongside the health of the benchmarked lock manager.
type MetricsServer struct {
	lg *slog.Logger

	registry *promclient.Registry
	provider *metric.MeterProvider
	health   *healthChecker
	addr     string
}

func NewMetricsServer(addr string, lg *slog.Logger) (*MetricsServer, error) {
	registry := promclient.NewRegistry()
	promexporter, err := newMetricsExporter(registry)
	if err != nil {
		return nil, err
	}
	provider := metric.NewMeterProvider(metric.WithReader(promexporter))
	return &MetricsServer{
		lg:       lg.With("component", "metrics-server"),
		registry: registry,
		provider: provider,
		health:   &healthChecker{},
		addr:     addr,
	}, nil
}

func (s *MetricsServer) Provider() *metric.MeterProvider {
	return s.provider
}

func (s *MetricsServer) Registry() *promclient.Registry {
	return s.registry
}

func (s *MetricsServer) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ListenAndServe serves /metrics and /healthz until ctx is done. It is a no-op returning when ctx is done if
// the server has no address.
func (s *MetricsServer) ListenAndServe(ctx context.Context) error {
	if s.addr == "" {
		<-ctx.Done()
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	mux.Handle("/healthz", s.HealthHandler())
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errC := lo.Async(func() error {
		s.lg.With("addr", s.addr).Info("starting metrics server...")
		return httpServer.ListenAndServe()
	})
	select {
	case <-ctx.Done():
		ctxca, ca := context.WithTimeout(context.Background(), 5*time.Second)
		defer ca()
		if err := httpServer.Shutdown(ctxca); err != nil {
			s.lg.With(logger.Err(err)).Warn("failed to shutdown metrics server")
		}
		return nil
	case err := <-errC:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.provider.Shutdown(ctx)
}
