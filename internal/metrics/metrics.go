// Package metrics exposes scheduler activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ligustah/tilerip/internal/scheduler"
	"github.com/ligustah/tilerip/pkg/tile"
)

const namespace = "tilerip"

// Collector records tile activity on its own registry.
type Collector struct {
	registry *prometheus.Registry

	submitted *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	finished  *prometheus.CounterVec
	inFlight  prometheus.GaugeFunc
	planned   prometheus.Gauge

	// A worker can finish a tile before the scheduler reports it submitted.
	started atomic.Int64
	ended   atomic.Int64
}

var _ scheduler.Observer = (*Collector)(nil)

// NewCollector creates a Collector with Go runtime and process metrics
// already registered.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		submitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiles",
			Name:      "submitted_total",
			Help:      "Total tiles handed to a fetch worker",
		}, []string{"zoom"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiles",
			Name:      "skipped_total",
			Help:      "Total tiles skipped because they already exist",
		}, []string{"zoom"}),
		finished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tiles",
			Name:      "finished_total",
			Help:      "Total tiles processed by a worker, by outcome",
		}, []string{"zoom", "outcome"}),
		planned: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tiles",
			Name:      "planned",
			Help:      "Tiles covered by the requested bounding box and zoom range",
		}),
	}
	c.inFlight = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tiles",
		Name:      "in_flight",
		Help:      "Tiles submitted but not yet finished",
	}, c.outstanding)
	return c
}

func (c *Collector) outstanding() float64 {
	return float64(max(c.started.Load()-c.ended.Load(), 0))
}

// SetPlanned records the size of the run.
func (c *Collector) SetPlanned(n int64) {
	c.planned.Set(float64(n))
}

func (c *Collector) TileSubmitted(id tile.ID) {
	c.submitted.WithLabelValues(zoomLabel(id)).Inc()
	c.started.Add(1)
}

func (c *Collector) TileSkipped(id tile.ID) {
	c.skipped.WithLabelValues(zoomLabel(id)).Inc()
}

func (c *Collector) TileFinished(id tile.ID, outcome scheduler.Outcome) {
	c.finished.WithLabelValues(zoomLabel(id), outcome.String()).Inc()
	c.ended.Add(1)
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an http.Handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
		return err
	}
	return nil
}

func zoomLabel(id tile.ID) string {
	return strconv.Itoa(id.Z)
}
