package detector

import (
	"fmt"
	"math"

	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/stats"
)

// Spam flags probable bot bursts: a session spike far outside the 7-day
// baseline, confirmed by a behavioral quality signal (bounce rate or
// session duration). P1.
type Spam struct {
	th config.SpamThresholds
}

// NewSpam creates the P1 detector.
func NewSpam(th config.SpamThresholds) *Spam {
	return &Spam{th: th}
}

func (s *Spam) Kind() domain.DetectorKind { return domain.DetectorSpam }

// WindowDays: yesterday, the 7-day baseline ending the day before, and
// slack for gaps.
func (s *Spam) WindowDays() int { return 10 }

var spamDimensions = []domain.Dimension{
	domain.DimensionOverall,
	domain.DimensionGeography,
	domain.DimensionTrafficSource,
}

// Detect emits at most one alert per (dimension, dimension_value).
func (s *Spam) Detect(in Input) []domain.Alert {
	var alerts []domain.Alert
	for _, dim := range spamDimensions {
		if !in.Property.DimensionEnabled(dim) {
			continue
		}
		for _, value := range segmentValues(in.Dataset, dim) {
			if alert, ok := s.checkSegment(in, dim, value); ok {
				alerts = append(alerts, alert)
			}
		}
	}
	return alerts
}

func (s *Spam) checkSegment(in Input, dim domain.Dimension, value string) (domain.Alert, bool) {
	seg := in.Dataset.Segment(dim, value)
	if seg == nil {
		return domain.Alert{}, false
	}
	yesterday := in.AnalysisDate
	sessions := seg.Metric(domain.MetricSessions)

	ySessions, ok := stats.ValueOn(sessions, yesterday)
	if !ok {
		return domain.Alert{}, false
	}

	// Volume floor: tiny segments spike on noise alone.
	floor := s.th.MinSegmentSessions
	if dim == domain.DimensionOverall {
		floor = s.th.MinOverallSessions
	}
	if ySessions < floor {
		return domain.Alert{}, false
	}

	baseline := stats.Window(sessions, yesterday.AddDays(-1), 7)
	if len(baseline) < stats.MinRollingSamples {
		return domain.Alert{}, false
	}
	values := stats.Values(baseline)
	mean, _ := stats.Mean(values)
	stddev, _ := stats.StdDev(values)

	z, defined := stats.ZScore(ySessions, mean, stddev)
	if !defined || z < s.th.ZThreshold {
		return domain.Alert{}, false
	}

	bounceRate, haveBounce := stats.ValueOn(seg.Metric(domain.MetricBounceRate), yesterday)
	duration, haveDuration := stats.ValueOn(seg.Metric(domain.MetricAvgSessionDuration), yesterday)

	bounceFired := haveBounce && bounceRate > s.th.BounceRateFloor
	durationFired := haveDuration && duration < s.th.MaxSessionDuration
	if !bounceFired && !durationFired {
		return domain.Alert{}, false
	}

	methods := []string{domain.MethodZScore}
	if bounceFired {
		methods = append(methods, domain.MethodBounceRate)
	}
	if durationFired {
		methods = append(methods, domain.MethodSessionDuration)
	}

	bothFailed := bounceFired && durationFired
	severity := domain.SeverityWarning
	if bothFailed && z >= s.th.ZCritical {
		severity = domain.SeverityCritical
	}

	impact := int(math.Round(10 * z))
	if bothFailed {
		impact += 15
	}

	// The message cites only the quality signal that confirmed the
	// spike; a missing bounce series must not read as 0.0%.
	var quality string
	switch {
	case bounceFired && durationFired:
		quality = fmt.Sprintf("%.1f%% bounce rate, %.0fs avg session", bounceRate*100, duration)
	case bounceFired:
		quality = fmt.Sprintf("%.1f%% bounce rate", bounceRate*100)
	default:
		quality = fmt.Sprintf("%.0fs avg session duration", duration)
	}
	var message string
	if dim == domain.DimensionOverall {
		message = fmt.Sprintf("Spam traffic detected: %.0f sessions with %s", ySessions, quality)
	} else {
		message = fmt.Sprintf("Spam from %s: %.0f sessions, %s", value, ySessions, quality)
	}

	details := map[string]any{
		"z_score": round2(z),
	}
	if haveBounce {
		details["bounce_rate"] = round2(bounceRate)
	}
	if haveDuration {
		details["avg_session_duration"] = round2(duration)
	}

	return domain.Alert{
		Detector:         domain.DetectorSpam,
		Priority:         domain.PriorityP1,
		PropertyID:       in.Property.PropertyID,
		Domain:           in.Property.Domain,
		Date:             yesterday,
		Dimension:        dim,
		DimensionValue:   value,
		Metric:           domain.MetricSessions,
		ObservedValue:    ySessions,
		BaselineValue:    round2(mean),
		Delta:            round2(z),
		Severity:         severity,
		BusinessImpact:   clampImpact(impact),
		DetectionMethods: methods,
		Message:          message,
		ActionRequired:   spamAction(dim, value),
		Details:          details,
		GeneratedAt:      in.GeneratedAt,
	}, true
}

func spamAction(dim domain.Dimension, value string) string {
	switch dim {
	case domain.DimensionGeography:
		return fmt.Sprintf("Review %s traffic sources", value)
	case domain.DimensionTrafficSource:
		return fmt.Sprintf("Block or filter %s if spam confirmed", value)
	default:
		return "Review traffic sources for bot activity"
	}
}

// segmentValues lists a dimension's values in deterministic order; the
// overall dimension has the single empty value.
func segmentValues(ds *domain.CleanDataset, dim domain.Dimension) []string {
	if dim == domain.DimensionOverall {
		if ds.Segment(domain.DimensionOverall, "") == nil {
			return nil
		}
		return []string{""}
	}
	return ds.SegmentValues(dim)
}
