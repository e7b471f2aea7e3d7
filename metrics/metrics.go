// Package metrics exposes the driver's Prometheus instrumentation: per-stage
// connection-state gauges, per-reporter free-stream-count gauges, retry
// counters by werror.Kind, and a ring-rebuild duration histogram. Grounded
// on ClusterCockpit-cc-backend and etalazz-vsa's client_golang usage: plain
// *Vec collectors registered once against a caller-supplied Registerer
// rather than package-level globals, so a process embedding this driver
// alongside other instrumented components doesn't collide on metric names.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cqlshard"

// Registry holds every collector this driver publishes. The zero value is
// not usable; build one with New.
type Registry struct {
	FreeStreams   *prometheus.GaugeVec
	StageState    *prometheus.GaugeVec
	Retries       *prometheus.CounterVec
	RingRebuild   prometheus.Histogram
	RingNodeCount prometheus.Gauge
}

// New builds a Registry and registers its collectors against reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid duplicate-registration panics
// across test runs.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		FreeStreams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "free_streams",
			Help:      "Number of free (unassigned) CQL stream ids in a reporter's block.",
		}, []string{"host", "shard", "reporter"}),
		StageState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "state",
			Help:      "Current lifecycle state of a (host, shard) stage (0=initializing,1=maintenance,2=running,3=stopping).",
		}, []string{"host", "shard"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "retries_total",
			Help:      "Count of worker retries, partitioned by werror.Kind.",
		}, []string{"kind"}),
		RingRebuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ring",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of cluster.Cluster.BuildRing calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		RingNodeCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ring",
			Name:      "node_count",
			Help:      "Number of distinct node ids in the most recently published ring.",
		}),
	}
	reg.MustRegister(m.FreeStreams, m.StageState, m.Retries, m.RingRebuild, m.RingNodeCount)
	return m
}

// SetFreeStreams records the current free-stream count for one reporter.
func (m *Registry) SetFreeStreams(host, shard, reporter string, n int) {
	if m == nil {
		return
	}
	m.FreeStreams.WithLabelValues(host, shard, reporter).Set(float64(n))
}

// SetStageState records a stage's lifecycle state as an integer gauge.
func (m *Registry) SetStageState(host, shard string, state int) {
	if m == nil {
		return
	}
	m.StageState.WithLabelValues(host, shard).Set(float64(state))
}

// IncRetry increments the retry counter for the given werror.Kind string.
func (m *Registry) IncRetry(kind string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(kind).Inc()
}

// ObserveRingRebuild records how long a BuildRing call took.
func (m *Registry) ObserveRingRebuild(d time.Duration) {
	if m == nil {
		return
	}
	m.RingRebuild.Observe(d.Seconds())
}

// SetRingNodeCount records the node count of the most recently published ring.
func (m *Registry) SetRingNodeCount(n int) {
	if m == nil {
		return
	}
	m.RingNodeCount.Set(float64(n))
}
