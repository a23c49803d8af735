package telemetry

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/domain"
)

func gather(t *testing.T, m *Metrics) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		byName[f.GetName()] = f
	}
	return byName
}

func TestObserveAlertLabelsDetectorAndPriority(t *testing.T) {
	m := New()
	m.ObserveAlert(domain.Alert{Detector: domain.DetectorSpam, Priority: domain.PriorityP1})
	m.ObserveAlert(domain.Alert{Detector: domain.DetectorSpam, Priority: domain.PriorityP1})
	m.ObserveAlert(domain.Alert{Detector: domain.DetectorTrend, Priority: domain.PriorityP2})

	families := gather(t, m)
	family := families["scout_alerts_total"]
	require.NotNil(t, family)
	require.Len(t, family.Metric, 2)

	for _, metric := range family.Metric {
		labels := map[string]string{}
		for _, l := range metric.Label {
			labels[l.GetName()] = l.GetValue()
		}
		if labels["detector"] == "spam" {
			assert.Equal(t, "P1", labels["priority"])
			assert.Equal(t, 2.0, metric.Counter.GetValue())
		}
	}
}

func TestObserveRunCountsOutcomes(t *testing.T) {
	m := New()
	m.ObserveRun("success", 40*time.Second)
	m.ObserveRun("success", 42*time.Second)
	m.ObserveRun("timeout", 600*time.Second)

	families := gather(t, m)
	runs := families["scout_runs_total"]
	require.NotNil(t, runs)
	assert.Len(t, runs.Metric, 2)

	hist := families["scout_run_duration_seconds"]
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), hist.Metric[0].Histogram.GetSampleCount())
}

func TestLoadFailuresAndGauge(t *testing.T) {
	m := New()
	m.ObserveLoadFailure("not_found")
	m.ObserveLoadFailure("not_found")
	m.ObserveLoadFailure("malformed")
	m.SetPropertiesAnalyzed(49)
	m.ObserveSuppressed(3)

	families := gather(t, m)
	assert.Len(t, families["scout_dataset_load_failures_total"].Metric, 2)
	assert.Equal(t, 49.0, families["scout_properties_analyzed"].Metric[0].Gauge.GetValue())
	assert.Equal(t, 3.0, families["scout_alerts_suppressed_total"].Metric[0].Counter.GetValue())
}
