// Package metrics exposes participant activity as Prometheus collectors.
//
// A nil *Collector is valid and records nothing.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/precice-go/errors"
)

const namespace = "precice"

// Collector holds the participant metrics.
type Collector struct {
	calls       *prometheus.CounterVec
	failures    *prometheus.CounterVec
	checkpoints *prometheus.CounterVec
	vertices    *prometheus.GaugeVec
	advances    prometheus.Counter
	stepSize    prometheus.Histogram
}

// New creates the collectors for one participant and registers them.
func New(reg prometheus.Registerer, participant string) (*Collector, error) {
	labels := prometheus.Labels{"participant": participant}
	c := &Collector{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "participant",
			Name:        "calls_total",
			ConstLabels: labels,
			Help:        "Participant operations by name",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "participant",
			Name:        "errors_total",
			ConstLabels: labels,
			Help:        "Failed participant operations by name and error kind",
		}, []string{"op", "kind"}),
		checkpoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "participant",
			Name:        "checkpoints_total",
			ConstLabels: labels,
			Help:        "Checkpoint requests observed, by direction (write or read)",
		}, []string{"direction"}),
		vertices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "participant",
			Name:        "mesh_vertices",
			ConstLabels: labels,
			Help:        "Vertices registered per mesh",
		}, []string{"mesh"}),
		advances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "participant",
			Name:        "advances_total",
			ConstLabels: labels,
			Help:        "Completed advance calls",
		}),
		stepSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "participant",
			Name:        "step_size",
			ConstLabels: labels,
			Help:        "Time step sizes passed to advance",
			Buckets:     prometheus.ExponentialBuckets(1e-6, 10, 8),
		}),
	}

	for _, col := range []prometheus.Collector{c.calls, c.failures, c.checkpoints, c.vertices, c.advances, c.stepSize} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "register metrics")
		}
	}
	return c, nil
}

// Call counts one operation.
func (c *Collector) Call(op string) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(op).Inc()
}

// Failure counts a failed operation under the kind of err.
func (c *Collector) Failure(op string, err error) {
	if c == nil || err == nil {
		return
	}
	kind := string(errors.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	c.failures.WithLabelValues(op, kind).Inc()
}

// Advance records a completed advance.
func (c *Collector) Advance(dt float64) {
	if c == nil {
		return
	}
	c.advances.Inc()
	c.stepSize.Observe(dt)
}

// Checkpoint records a checkpoint request; direction is "write" or "read".
func (c *Collector) Checkpoint(direction string) {
	if c == nil {
		return
	}
	c.checkpoints.WithLabelValues(direction).Inc()
}

// Vertices sets the registered vertex count of a mesh.
func (c *Collector) Vertices(mesh string, n int) {
	if c == nil {
		return
	}
	c.vertices.WithLabelValues(mesh).Set(float64(n))
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe()
	}()

	select {
	case err := <-done:
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "metrics listener on "+addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
