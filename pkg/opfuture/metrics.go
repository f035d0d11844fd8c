package opfuture

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wires the future's observability surface (spec.md §6) into
// Prometheus, the same way the teacher's own pkg/consensus/prometheus.go
// registers a gauge for its restart counter.
type Metrics struct {
	waitersParked      prometheus.Gauge
	completionsTotal   *prometheus.CounterVec
	longPollTimeouts   prometheus.Counter
	executorRejections prometheus.Counter
}

var (
	metricsOnce    sync.Once
	registeredOnce *Metrics
)

// NewMetrics builds and registers the future's Prometheus collectors.
// Registration is guarded so calling this more than once in the same
// process (e.g. from multiple tests) does not panic on duplicate
// registration, mirroring the teacher's own
// initializeConsensusResetMetric guard.
func NewMetrics(namespace string) *Metrics {
	metricsOnce.Do(func() {
		if namespace == "" {
			namespace = "opfuture"
		}
		m := &Metrics{
			waitersParked: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "waiters_parked",
				Help:      "Number of goroutines currently parked in Await.",
			}),
			completionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completions_total",
				Help:      "Completions by outcome.",
			}, []string{"outcome"}),
			longPollTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "longpoll_timeouts_total",
				Help:      "Timeouts synthesized by long-poll escalation.",
			}),
			executorRejections: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executor_rejections_total",
				Help:      "Continuation submissions rejected by an executor.",
			}),
		}
		prometheus.MustRegister(m.waitersParked, m.completionsTotal, m.longPollTimeouts, m.executorRejections)
		registeredOnce = m
	})
	return registeredOnce
}

func (m *Metrics) recordCompletion(outcome string) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) longPollTimeout() {
	if m == nil {
		return
	}
	m.longPollTimeouts.Inc()
}

func (m *Metrics) executorRejection() {
	if m == nil {
		return
	}
	m.executorRejections.Inc()
}

func (m *Metrics) setWaiters(n float64) {
	if m == nil {
		return
	}
	m.waitersParked.Set(n)
}

// nopMetrics is the default sink for futures constructed without
// WithMetrics: every method is nil-receiver-safe, so this is simply a
// typed nil.
var nopMetrics *Metrics
