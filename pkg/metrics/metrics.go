// Package metrics exports fork activity as Prometheus metrics.
//
// A Collector is a fork.EventHandler:
//
//	c := metrics.New(nil)
//	p := fork.NewPiped(fork.WithEventHandler(c))
//	http.Handle("/metrics", c.Handler())
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/forkpipe/pkg/fork"
)

const namespace = "forkpipe"

// Collector counts forks, failures, child exits and captured output.
type Collector struct {
	registry *prometheus.Registry

	Forks           *prometheus.CounterVec
	ForkFailures    *prometheus.CounterVec
	ChildExits      *prometheus.CounterVec
	ChildrenRunning prometheus.Gauge
	CapturedBytes   prometheus.Counter
	CaptureDuration prometheus.Histogram
}

var _ fork.EventHandler = (*Collector)(nil)

// New registers the collector's metrics on reg. A nil reg gets a fresh
// registry.
func New(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		Forks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forks_total",
				Help:      "Total number of child processes started",
			},
			[]string{"mode"},
		),
		ForkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fork_failures_total",
				Help:      "Total number of forks that failed before or while capturing",
			},
			[]string{"kind"},
		),
		ChildExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "child_exits_total",
				Help:      "Total number of reaped children by exit code or signal",
			},
			[]string{"code"},
		),
		ChildrenRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "children_running",
				Help:      "Number of children started and not yet reaped",
			},
		),
		CapturedBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "captured_bytes_total",
				Help:      "Total bytes captured from piped children",
			},
		),
		CaptureDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "capture_duration_seconds",
				Help:      "Time spent draining a piped child's output",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry the metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) OnForkStart(e fork.ForkStartEvent) {
	c.Forks.WithLabelValues(string(e.Mode)).Inc()
	c.ChildrenRunning.Inc()
}

func (c *Collector) OnForkError(e fork.ForkErrorEvent) {
	c.ForkFailures.WithLabelValues(e.Kind).Inc()
}

func (c *Collector) OnChildExit(e fork.ChildExitEvent) {
	c.ChildrenRunning.Dec()
	c.ChildExits.WithLabelValues(exitLabel(e.Status)).Inc()
}

func (c *Collector) OnCapture(e fork.CaptureEvent) {
	c.CapturedBytes.Add(float64(e.Bytes))
	c.CaptureDuration.Observe(e.Elapsed.Seconds())
	if e.Err != nil {
		c.ForkFailures.WithLabelValues("pipe_read").Inc()
	}
}

// exitLabel keeps the code label's cardinality bounded by the exit codes
// and signals actually seen.
func exitLabel(s fork.ExitStatus) string {
	if s.Signal != "" {
		return s.Signal
	}
	return strconv.Itoa(s.Code)
}
