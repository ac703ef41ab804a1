package observability

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// compile-time interface check
var _ MetricFactory = (*PrometheusFactory)(nil)

// PrometheusFactory implements MetricFactory on a Prometheus registerer.
type PrometheusFactory struct {
	reg     prometheus.Registerer
	buckets []float64
}

// NewPrometheusFactory creates a factory registering metrics with reg.
// Pass prometheus.DefaultRegisterer for the process-global registry.
func NewPrometheusFactory(reg prometheus.Registerer, opts ...FactoryOption) *PrometheusFactory {
	f := &PrometheusFactory{
		reg:     reg,
		buckets: prometheus.ExponentialBuckets(1, 4, 16), // 1 to ~1e9
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FactoryOption configures a PrometheusFactory.
type FactoryOption func(*PrometheusFactory)

// WithBuckets overrides the histogram buckets.
func WithBuckets(buckets []float64) FactoryOption {
	return func(f *PrometheusFactory) {
		f.buckets = buckets
	}
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: promName(name),
		Help: name,
	})
	f.reg.MustRegister(c)
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    promName(name),
		Help:    name,
		Buckets: f.buckets,
	})
	f.reg.MustRegister(h)
	return h
}

// promName converts dotted metric names to the underscore form Prometheus
// requires.
func promName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}
