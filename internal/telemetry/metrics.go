// Package telemetry exposes run health as Prometheus metrics. In the
// one-shot CLI the final values are logged; in schedule mode the
// registry is served on /metrics between runs.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/scoutwatch/scout/internal/domain"
)

// Metrics holds the engine's instrumentation. All collectors register
// against a private registry so tests and the scheduler can own their
// own instances.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	alertsTotal     *prometheus.CounterVec
	suppressedTotal prometheus.Counter
	loadFailures    *prometheus.CounterVec
	propertiesGauge prometheus.Gauge
	detectorTime    *prometheus.HistogramVec
}

// New builds and registers the metric set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_runs_total",
			Help: "Completed analysis runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_run_duration_seconds",
			Help:    "Wall-clock duration of a full analysis run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_alerts_total",
			Help: "Consolidated alerts by detector and priority.",
		}, []string{"detector", "priority"}),
		suppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scout_alerts_suppressed_total",
			Help: "Alerts suppressed by the per-property volume cap.",
		}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_dataset_load_failures_total",
			Help: "Dataset loads that failed, by reason.",
		}, []string{"reason"}),
		propertiesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scout_properties_analyzed",
			Help: "Properties successfully analyzed in the last run.",
		}),
		detectorTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scout_detector_duration_seconds",
			Help:    "Per-property detector execution time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"detector"}),
	}
	m.registry.MustRegister(
		m.runsTotal, m.runDuration, m.alertsTotal, m.suppressedTotal,
		m.loadFailures, m.propertiesGauge, m.detectorTime,
	)
	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(outcome string, duration time.Duration) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// ObserveAlert counts one consolidated alert.
func (m *Metrics) ObserveAlert(a domain.Alert) {
	m.alertsTotal.WithLabelValues(string(a.Detector), string(a.Priority)).Inc()
}

// ObserveSuppressed adds cap-suppressed alerts.
func (m *Metrics) ObserveSuppressed(n int) {
	m.suppressedTotal.Add(float64(n))
}

// ObserveLoadFailure counts a failed dataset load.
func (m *Metrics) ObserveLoadFailure(reason string) {
	m.loadFailures.WithLabelValues(reason).Inc()
}

// SetPropertiesAnalyzed records the analyzed-property count.
func (m *Metrics) SetPropertiesAnalyzed(n int) {
	m.propertiesGauge.Set(float64(n))
}

// ObserveDetector records one detector's execution time for a property.
func (m *Metrics) ObserveDetector(kind domain.DetectorKind, d time.Duration) {
	m.detectorTime.WithLabelValues(string(kind)).Observe(d.Seconds())
}
