package detector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/domain"
)

// trendSeries builds 180 days ending at analysis: the first 150 days at
// baseline, the last 30 at recent.
func trendSeries(baseline, recent float64) []float64 {
	return append(constant(150, baseline), constant(30, recent)...)
}

func TestTrendDownOverallSessions(t *testing.T) {
	analysis := domain.MustDay("2026-08-19")
	ds := domain.NewCleanDataset("314159", domain.MustDay("2026-08-22"))
	// MA_30 = 820; MA_180 = (150*1036 + 30*820)/180 = 1000.
	addSeries(ds, domain.DimensionOverall, "", domain.MetricSessions, analysis,
		trendSeries(1036, 820))

	alerts := NewTrend(config.DefaultThresholds().Trend).Detect(testInput(ds, analysis))
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, domain.DetectorTrend, a.Detector)
	assert.Equal(t, domain.PriorityP2, a.Priority)
	assert.Equal(t, TrendDown, a.Details["trend_direction"])
	assert.InDelta(t, -18.0, a.Delta, 0.01)
	assert.InDelta(t, 820.0, a.ObservedValue, 0.01)
	assert.InDelta(t, 1000.0, a.BaselineValue, 0.01)
	assert.Equal(t, 7, a.BusinessImpact, "round(18 * 0.4)")
	assert.Equal(t, []string{domain.MethodMACrossover}, a.DetectionMethods)
}

func TestTrendUpIsCelebratory(t *testing.T) {
	analysis := domain.MustDay("2026-08-19")
	ds := domain.NewCleanDataset("314159", domain.MustDay("2026-08-22"))
	// MA_30 = 1300 vs MA_180 = (150*1000 + 30*1300)/180 = 1050: +23.8%.
	addSeries(ds, domain.DimensionOverall, "", domain.MetricSessions, analysis,
		trendSeries(1000, 1300))

	alerts := NewTrend(config.DefaultThresholds().Trend).Detect(testInput(ds, analysis))
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.PriorityP3, alerts[0].Priority)
	assert.Equal(t, TrendUp, alerts[0].Details["trend_direction"])
	assert.Positive(t, alerts[0].Delta)
}

func TestTrendBelowThresholdIsQuiet(t *testing.T) {
	analysis := domain.MustDay("2026-08-19")
	ds := domain.NewCleanDataset("314159", domain.MustDay("2026-08-22"))
	// MA_30 = 950 vs MA_180 ~ 991.7: a 4.2% dip, well under 15%.
	addSeries(ds, domain.DimensionOverall, "", domain.MetricSessions, analysis,
		trendSeries(1000, 950))

	alerts := NewTrend(config.DefaultThresholds().Trend).Detect(testInput(ds, analysis))
	assert.Empty(t, alerts)
}

func TestTrendVolumeFloor(t *testing.T) {
	analysis := domain.MustDay("2026-08-19")
	ds := domain.NewCleanDataset("314159", domain.MustDay("2026-08-22"))
	// Mean sessions ~32: under the 50-session floor.
	addSeries(ds, domain.DimensionOverall, "", domain.MetricSessions, analysis,
		trendSeries(35, 20))

	alerts := NewTrend(config.DefaultThresholds().Trend).Detect(testInput(ds, analysis))
	assert.Empty(t, alerts)
}

func TestTrendPerDimensionCapKeepsLargestCrossovers(t *testing.T) {
	analysis := domain.MustDay("2026-08-19")
	ds := domain.NewCleanDataset("314159", domain.MustDay("2026-08-22"))
	// Five countries all trending down, with distinct magnitudes.
	declines := map[string]float64{
		"US": 700, // -28.6%
		"GB": 750, // -24.1%
		"DE": 800, // -19.7%
		"FR": 820, // -18.0%
		"ES": 840, // -16.3%
	}
	for country, recent := range declines {
		addSeries(ds, domain.DimensionGeography, country, domain.MetricSessions, analysis,
			trendSeries(1036, recent))
	}

	alerts := NewTrend(config.DefaultThresholds().Trend).Detect(testInput(ds, analysis))
	require.Len(t, alerts, 3, "per-dimension cap")

	kept := make([]string, 0, 3)
	for _, a := range alerts {
		kept = append(kept, a.DimensionValue)
	}
	assert.ElementsMatch(t, []string{"US", "GB", "DE"}, kept,
		fmt.Sprintf("largest |delta| wins, got %v", kept))
}

func TestTrendSparseSegmentIsNoSignal(t *testing.T) {
	analysis := domain.MustDay("2026-08-19")
	ds := domain.NewCleanDataset("314159", domain.MustDay("2026-08-22"))
	// 25 days of history cannot fake a 180-day baseline.
	addSeries(ds, domain.DimensionOverall, "", domain.MetricSessions, analysis,
		append(constant(24, 1000), 500))

	alerts := NewTrend(config.DefaultThresholds().Trend).Detect(testInput(ds, analysis))
	assert.Empty(t, alerts)
}
