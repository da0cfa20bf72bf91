// Package metrics records pipeline counters for a single run.
// The process is a one-shot batch, so metrics are exported as a node_exporter
// textfile at the end of the run instead of being scraped.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage labels for page fetches.
const (
	StageLocate  = "locate"
	StageCollect = "collect"
	StageFriends = "friends"
)

// Outcome labels for deletes.
const (
	OutcomeDeleted     = "deleted"
	OutcomeAlreadyGone = "already_gone"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
)

// PrometheusMetrics holds the run's collectors. A nil *PrometheusMetrics is valid and records nothing.
type PrometheusMetrics struct {
	registry        *prometheus.Registry
	pagesFetched    *prometheus.CounterVec
	tweetsCollected prometheus.Counter
	deletesTotal    *prometheus.CounterVec
	deleteDuration  prometheus.Histogram
	deleteRetries   prometheus.Counter
	deletesInFlight prometheus.Gauge
	checkpointSize  prometheus.Gauge
	whitelisted     prometheus.Counter
	unfollowsTotal  prometheus.Counter
	lastRunSeconds  prometheus.Gauge
}

// New creates metrics on a private registry.
func New(namespace string) *PrometheusMetrics {
	reg := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: reg,
		pagesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Timeline and friends pages fetched",
			},
			[]string{"stage"},
		),
		tweetsCollected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tweets_collected_total",
				Help:      "Tweets added to the checkpoint",
			},
		),
		deletesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deletes_total",
				Help:      "Delete outcomes by result",
			},
			[]string{"outcome"},
		),
		deleteDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delete_duration_seconds",
				Help:      "Duration of the per-tweet delete protocol including retries",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		deleteRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delete_retries_total",
				Help:      "Repeated delete calls after a failure",
			},
		),
		deletesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "deletes_in_flight",
				Help:      "Delete tasks currently running in the worker pool",
			},
		),
		checkpointSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "checkpoint_size",
				Help:      "Tweets collected but not yet confirmed deleted",
			},
		),
		whitelisted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "whitelisted_total",
				Help:      "Tweets kept by the operator during review",
			},
		),
		unfollowsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unfollows_total",
				Help:      "Inactive friends unfollowed",
			},
		),
		lastRunSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the run finished",
			},
		),
	}

	reg.MustRegister(
		m.pagesFetched,
		m.tweetsCollected,
		m.deletesTotal,
		m.deleteDuration,
		m.deleteRetries,
		m.deletesInFlight,
		m.checkpointSize,
		m.whitelisted,
		m.unfollowsTotal,
		m.lastRunSeconds,
	)

	return m
}

// Registry exposes the underlying gatherer.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *PrometheusMetrics) PageFetched(stage string) {
	if m == nil {
		return
	}
	m.pagesFetched.WithLabelValues(stage).Inc()
}

func (m *PrometheusMetrics) TweetsCollected(n int) {
	if m == nil {
		return
	}
	m.tweetsCollected.Add(float64(n))
}

func (m *PrometheusMetrics) RecordDelete(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.deletesTotal.WithLabelValues(outcome).Inc()
	m.deleteDuration.Observe(duration.Seconds())
}

func (m *PrometheusMetrics) DeleteRetried() {
	if m == nil {
		return
	}
	m.deleteRetries.Inc()
}

// SetInFlight implements the worker pool's gauge hook.
func (m *PrometheusMetrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.deletesInFlight.Set(float64(n))
}

func (m *PrometheusMetrics) SetCheckpointSize(n int) {
	if m == nil {
		return
	}
	m.checkpointSize.Set(float64(n))
}

func (m *PrometheusMetrics) Whitelisted() {
	if m == nil {
		return
	}
	m.whitelisted.Inc()
}

func (m *PrometheusMetrics) Unfollowed() {
	if m == nil {
		return
	}
	m.unfollowsTotal.Inc()
}

// WriteTextfile stamps the finish time and writes every metric to path
// in the Prometheus text format. An empty path is a no-op.
func (m *PrometheusMetrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.lastRunSeconds.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}
