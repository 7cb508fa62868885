package gateway

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpodivin/mpm/internal/health"
	"github.com/jpodivin/mpm/internal/manpage"
	"github.com/jpodivin/mpm/internal/tool"
)

const namespace = "mpm"

// Metrics holds the Prometheus collectors for tool calls and lookup
// processes. It is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls       *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	rateLimited     *prometheus.CounterVec
	processes       *prometheus.CounterVec
	processDuration prometheus.Histogram
	binaryAvailable prometheus.Gauge
}

// Compile-time interface checks.
var (
	_ tool.Recorder    = (*Metrics)(nil)
	_ manpage.Observer = (*Metrics)(nil)
	_ health.Gauge     = (*Metrics)(nil)
)

// NewMetrics creates Metrics on a private registry that also carries the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls by tool and result kind.",
		}, []string{"tool", "kind"}),
		toolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Tool call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_rate_limited_total",
			Help:      "Tool calls rejected by the rate limiter.",
		}, []string{"tool"}),
		processes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_processes_total",
			Help:      "Lookup program invocations by terminal state.",
		}, []string{"state"}),
		processDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_process_duration_seconds",
			Help:      "Wall-clock time of lookup program invocations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		binaryAvailable: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lookup_binary_available",
			Help:      "1 when the last check found the lookup program, 0 otherwise.",
		}),
	}
}

// RecordToolCall implements tool.Recorder.
func (m *Metrics) RecordToolCall(name, kind string, elapsed time.Duration) {
	m.toolCalls.WithLabelValues(name, kind).Inc()
	m.toolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// RecordRateLimited implements tool.Recorder.
func (m *Metrics) RecordRateLimited(name string) {
	m.rateLimited.WithLabelValues(name).Inc()
}

// ObserveProcess implements manpage.Observer.
func (m *Metrics) ObserveProcess(state manpage.State, elapsed time.Duration) {
	m.processes.WithLabelValues(string(state)).Inc()
	m.processDuration.Observe(elapsed.Seconds())
}

// SetBinaryAvailable implements health.Gauge.
func (m *Metrics) SetBinaryAvailable(available bool) {
	if available {
		m.binaryAvailable.Set(1)
		return
	}
	m.binaryAvailable.Set(0)
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
