package detector

import (
	"fmt"
	"math"

	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/stats"
)

// Record types carried in alert details.
const (
	RecordHigh = "high"
	RecordLow  = "low"
)

// Record identifies 90-day record highs and lows by dimension. Lows
// are worst-on-window and go out P1; highs are celebratory P3.
type Record struct {
	th config.RecordThresholds
}

// NewRecord creates the record detector.
func NewRecord(th config.RecordThresholds) *Record {
	return &Record{th: th}
}

func (r *Record) Kind() domain.DetectorKind { return domain.DetectorRecord }

// WindowDays: yesterday, the 90-day prior window and a 2-day margin.
func (r *Record) WindowDays() int { return r.th.WindowDays + 3 }

var recordDimensions = []domain.Dimension{
	domain.DimensionOverall,
	domain.DimensionDevice,
	domain.DimensionTrafficSource,
	domain.DimensionLandingPage,
}

var recordMetrics = []domain.Metric{
	domain.MetricSessions,
	domain.MetricUsers,
	domain.MetricConversions,
}

// Detect scans every qualifying (dimension, value, metric) slice for a
// new extremum beyond the significance floor.
func (r *Record) Detect(in Input) []domain.Alert {
	minMeanSessions := r.th.MinMeanSessions
	if in.Property.MinRecordSessions > 0 {
		minMeanSessions = float64(in.Property.MinRecordSessions)
	}

	var alerts []domain.Alert
	for _, dim := range recordDimensions {
		if !in.Property.DimensionEnabled(dim) {
			continue
		}
		for _, value := range segmentValues(in.Dataset, dim) {
			seg := in.Dataset.Segment(dim, value)
			if seg == nil {
				continue
			}

			// High-traffic segments only: the 90-day mean of sessions
			// gates the whole segment regardless of metric.
			meanSessions, _, ok := stats.RollingMean(
				seg.Metric(domain.MetricSessions), in.AnalysisDate, r.th.WindowDays, stats.MinQuartileSamples)
			if !ok || meanSessions < minMeanSessions {
				continue
			}

			for _, metric := range recordMetrics {
				if alert, ok := r.checkSeries(in, seg, metric); ok {
					alerts = append(alerts, alert)
				}
			}
		}
	}
	return alerts
}

func (r *Record) checkSeries(in Input, seg *domain.Segment, metric domain.Metric) (domain.Alert, bool) {
	yesterday := in.AnalysisDate
	obs := seg.Metric(metric)

	observed, ok := stats.ValueOn(obs, yesterday)
	if !ok {
		return domain.Alert{}, false
	}

	// The prior window ends two days before yesterday so a settling
	// straggler cannot count against itself.
	priorEnd := yesterday.AddDays(-2)
	priorMax, okMax := stats.MaxInWindow(obs, priorEnd, r.th.WindowDays, stats.MinQuartileSamples)
	priorMin, okMin := stats.MinInWindow(obs, priorEnd, r.th.WindowDays, stats.MinQuartileSamples)
	if !okMax || !okMin {
		return domain.Alert{}, false
	}

	switch {
	case observed > priorMax.Value && priorMax.Value > 0:
		deltaPct := (observed - priorMax.Value) / priorMax.Value * 100
		if deltaPct < r.th.SignificancePct {
			return domain.Alert{}, false
		}
		impact := clampImpact(int(math.Round(deltaPct * 1.5)))
		return r.alert(in, seg, metric, observed, priorMax, deltaPct, RecordHigh, impact), true

	case observed < priorMin.Value && priorMin.Value > 0:
		deltaPct := (observed - priorMin.Value) / priorMin.Value * 100
		if math.Abs(deltaPct) < r.th.SignificancePct {
			return domain.Alert{}, false
		}
		impact := clampImpact(int(math.Round(math.Abs(deltaPct) * 1.5)))
		if impact < r.th.LowImpactFloor {
			impact = r.th.LowImpactFloor
		}
		return r.alert(in, seg, metric, observed, priorMin, deltaPct, RecordLow, impact), true
	}
	return domain.Alert{}, false
}

func (r *Record) alert(in Input, seg *domain.Segment, metric domain.Metric, observed float64, prior stats.Extremum, deltaPct float64, recordType string, impact int) domain.Alert {
	label := segmentLabel(seg)
	priority := domain.PriorityP3
	severity := domain.SeverityInfo
	message := fmt.Sprintf("%s new %d-day high: %.0f %s (previous: %.0f)", label, r.th.WindowDays, observed, metric, prior.Value)
	action := fmt.Sprintf("Document what drove the %s record", label)
	details := map[string]any{
		"record_type":          recordType,
		"previous_record":      prior.Value,
		"previous_record_date": prior.Date.String(),
		"increase":             round2(deltaPct),
	}
	if recordType == RecordLow {
		priority = domain.PriorityP1
		severity = domain.SeverityWarning
		message = fmt.Sprintf("%s new %d-day low: %.0f %s (previous low: %.0f)", label, r.th.WindowDays, observed, metric, prior.Value)
		action = fmt.Sprintf("Investigate the %s decline", label)
		delete(details, "increase")
		details["decline"] = round2(math.Abs(deltaPct))
	}

	return domain.Alert{
		Detector:         domain.DetectorRecord,
		Priority:         priority,
		PropertyID:       in.Property.PropertyID,
		Domain:           in.Property.Domain,
		Date:             in.AnalysisDate,
		Dimension:        seg.Dimension,
		DimensionValue:   seg.DimensionValue,
		Metric:           metric,
		ObservedValue:    observed,
		BaselineValue:    prior.Value,
		Delta:            round2(deltaPct),
		Severity:         severity,
		BusinessImpact:   impact,
		DetectionMethods: []string{domain.MethodThreshold},
		Message:          message,
		ActionRequired:   action,
		Details:          details,
		GeneratedAt:      in.GeneratedAt,
	}
}

func segmentLabel(seg *domain.Segment) string {
	if seg.Dimension == domain.DimensionOverall {
		return "site-wide"
	}
	return seg.DimensionValue
}
