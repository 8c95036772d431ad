// Package metrics implements an optional Prometheus sink exposing
// request and classification counters. Grounded on waftester's
// pkg/output/hooks/prometheus.go (CounterVec/GaugeVec construction and
// registration pattern).
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoutscan/scoutscan/internal/sink"
)

// Recorder exposes a /metrics endpoint and implements sink.Sink so it
// can be attached alongside text/json/csv output sinks.
type Recorder struct {
	registry *prometheus.Registry
	results  *prometheus.CounterVec
	inFlight prometheus.Gauge
	server   *http.Server
}

// New creates a Recorder with its own registry (never the global
// default, so multiple scans in one process never collide).
func New() *Recorder {
	reg := prometheus.NewRegistry()

	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scoutscan_results_total",
		Help: "Classified results by type.",
	}, []string{"type"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scoutscan_inflight_requests",
		Help: "Requests currently awaiting a response.",
	})

	reg.MustRegister(results, inFlight)

	return &Recorder{registry: reg, results: results, inFlight: inFlight}
}

// Serve starts the /metrics HTTP endpoint on addr in the background.
// Call Shutdown to stop it.
func (r *Recorder) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- r.server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

// Shutdown stops the metrics HTTP server, if running.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

// IncInFlight/DecInFlight track concurrent request count.
func (r *Recorder) IncInFlight() { r.inFlight.Inc() }
func (r *Recorder) DecInFlight() { r.inFlight.Dec() }

// Deliver implements sink.Sink by incrementing the per-type counter.
// It never returns an error — metrics recording must never affect the
// scan's error taxonomy.
func (r *Recorder) Deliver(rec sink.ResultRecord) error {
	r.results.WithLabelValues(rec.Type).Inc()
	return nil
}

func (r *Recorder) Flush() error { return nil }
