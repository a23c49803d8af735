package detector

import (
	"fmt"
	"math"
	"sort"

	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/stats"
)

// Trend directions carried in alert details.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// Trend spots sustained directional shifts through a short- vs
// long-window moving-average crossover. Downward trends go out P2,
// upward P3.
type Trend struct {
	th config.TrendThresholds
}

// NewTrend creates the trend detector.
func NewTrend(th config.TrendThresholds) *Trend {
	return &Trend{th: th}
}

func (t *Trend) Kind() domain.DetectorKind { return domain.DetectorTrend }

// WindowDays: the long window plus slack for gaps at the edge.
func (t *Trend) WindowDays() int { return t.th.LongWindowDays + 3 }

var trendMetrics = []domain.Metric{
	domain.MetricSessions,
	domain.MetricUsers,
	domain.MetricConversions,
}

// Detect evaluates every dimension, capping output per dimension so a
// property with many shifting slices cannot flood the digest; the
// largest crossovers win.
func (t *Trend) Detect(in Input) []domain.Alert {
	minMeanSessions := t.th.MinMeanSessions
	if in.Property.MinTrendSessions > 0 {
		minMeanSessions = float64(in.Property.MinTrendSessions)
	}

	var alerts []domain.Alert
	for _, dim := range domain.AllDimensions {
		if !in.Property.DimensionEnabled(dim) {
			continue
		}
		var dimAlerts []domain.Alert
		for _, value := range segmentValues(in.Dataset, dim) {
			seg := in.Dataset.Segment(dim, value)
			if seg == nil {
				continue
			}
			meanSessions, _, ok := stats.RollingMean(
				seg.Metric(domain.MetricSessions), in.AnalysisDate, t.th.LongWindowDays, stats.MinQuartileSamples)
			if !ok || meanSessions < minMeanSessions {
				continue
			}
			for _, metric := range trendMetrics {
				if alert, ok := t.checkSeries(in, seg, metric); ok {
					dimAlerts = append(dimAlerts, alert)
				}
			}
		}
		if t.th.MaxPerDimension > 0 && len(dimAlerts) > t.th.MaxPerDimension {
			sort.SliceStable(dimAlerts, func(i, j int) bool {
				return math.Abs(dimAlerts[i].Delta) > math.Abs(dimAlerts[j].Delta)
			})
			dimAlerts = dimAlerts[:t.th.MaxPerDimension]
			// Restore the per-dimension emission order after trimming.
			sort.SliceStable(dimAlerts, func(i, j int) bool {
				if dimAlerts[i].DimensionValue != dimAlerts[j].DimensionValue {
					return dimAlerts[i].DimensionValue < dimAlerts[j].DimensionValue
				}
				return dimAlerts[i].Metric < dimAlerts[j].Metric
			})
		}
		alerts = append(alerts, dimAlerts...)
	}
	return alerts
}

func (t *Trend) checkSeries(in Input, seg *domain.Segment, metric domain.Metric) (domain.Alert, bool) {
	obs := seg.Metric(metric)

	maShort, _, okShort := stats.RollingMean(obs, in.AnalysisDate, t.th.ShortWindowDays, stats.MinRollingSamples)
	maLong, _, okLong := stats.RollingMean(obs, in.AnalysisDate, t.th.LongWindowDays, stats.MinQuartileSamples)
	if !okShort || !okLong || maLong <= 0 {
		return domain.Alert{}, false
	}

	deltaPct := (maShort - maLong) / maLong * 100
	if math.Abs(deltaPct) < t.th.TriggerPct {
		return domain.Alert{}, false
	}

	direction := TrendUp
	priority := domain.PriorityP3
	severity := domain.SeverityInfo
	action := "Capitalize on growth"
	if deltaPct < 0 {
		direction = TrendDown
		priority = domain.PriorityP2
		severity = domain.SeverityWarning
		action = "Address declining traffic"
	}

	label := segmentLabel(seg)
	message := fmt.Sprintf("%s %s trend %s %.1f%%: %d-day avg %.0f vs %d-day baseline %.0f",
		label, metric, direction, math.Abs(deltaPct),
		t.th.ShortWindowDays, maShort, t.th.LongWindowDays, maLong)

	return domain.Alert{
		Detector:         domain.DetectorTrend,
		Priority:         priority,
		PropertyID:       in.Property.PropertyID,
		Domain:           in.Property.Domain,
		Date:             in.AnalysisDate,
		Dimension:        seg.Dimension,
		DimensionValue:   seg.DimensionValue,
		Metric:           metric,
		ObservedValue:    round2(maShort),
		BaselineValue:    round2(maLong),
		Delta:            round2(deltaPct),
		Severity:         severity,
		BusinessImpact:   clampImpact(int(math.Round(math.Abs(deltaPct) * 0.4))),
		DetectionMethods: []string{domain.MethodMACrossover},
		Message:          message,
		ActionRequired:   action,
		Details: map[string]any{
			"trend_direction":      direction,
			"recent_avg":           round2(maShort),
			"baseline_avg":         round2(maLong),
			"change_percentage":    round2(deltaPct),
			"short_window_days":    t.th.ShortWindowDays,
			"long_window_days":     t.th.LongWindowDays,
		},
		GeneratedAt: in.GeneratedAt,
	}, true
}
