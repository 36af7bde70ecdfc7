// Package metrics exports proxy activity as Prometheus metrics.
//
//	collector := metrics.New(metrics.Config{Namespace: "app"})
//	collector.MustRegister(prometheus.DefaultRegisterer)
//
//	hooks := proxy.NewHooks()
//	collector.Attach(hooks)
//	p := proxy.New(proxy.WithHooks(hooks))
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-cache-proxy/proxy"
)

// DefaultNamespace prefixes every metric name unless Config says otherwise.
const DefaultNamespace = "cacheproxy"

// Config controls metric naming.
type Config struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	// Buckets for dispatch_duration_seconds. Defaults to prometheus.DefBuckets.
	Buckets []float64
}

// Collector counts hits, misses and errors per operation and observes how
// long the subject takes on a miss.
type Collector struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	dispatch *prometheus.HistogramVec
}

// New builds a Collector. Nothing is registered until Register is called.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = prometheus.DefBuckets
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, labels)
	}

	return &Collector{
		hits:   counter("hits_total", "Calls answered from the cache.", "operation"),
		misses: counter("misses_total", "Calls dispatched to the subject.", "operation"),
		errors: counter("errors_total", "Calls that failed, by error code.", "operation", "code"),
		dispatch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent in the subject for calls that were stored.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"operation"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.hits.Describe(ch)
	c.misses.Describe(ch)
	c.errors.Describe(ch)
	c.dispatch.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.hits.Collect(ch)
	c.misses.Collect(ch)
	c.errors.Collect(ch)
	c.dispatch.Collect(ch)
}

// Register adds the collector to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	return reg.Register(c)
}

// MustRegister is Register that panics on failure.
func (c *Collector) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(c)
}

// Attach wires the collector into hooks.
func (c *Collector) Attach(hooks *proxy.Hooks) {
	hooks.AddOnHit(func(_ context.Context, op, _ string, _ any, _ int64) {
		c.hits.WithLabelValues(op).Inc()
	})
	hooks.AddOnMiss(func(_ context.Context, op, _ string) {
		c.misses.WithLabelValues(op).Inc()
	})
	hooks.AddOnStore(func(_ context.Context, op, _ string, _ any, elapsed time.Duration) {
		c.dispatch.WithLabelValues(op).Observe(elapsed.Seconds())
	})
	hooks.AddOnError(func(_ context.Context, op string, err error) {
		c.errors.WithLabelValues(op, errorCode(err)).Inc()
	})
}

func errorCode(err error) string {
	var perr *proxy.Error
	if errors.As(err, &perr) {
		return string(perr.Code)
	}
	return "UNKNOWN"
}
