package detector

import (
	"fmt"

	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/stats"
)

// Disaster trigger types carried in alert details.
const (
	DisasterNearZeroTraffic  = "near_zero_traffic"
	DisasterTrackingFailure  = "tracking_failure"
	DisasterCatastrophicDrop = "catastrophic_drop"
)

// Disaster catches catastrophic site-wide failures overnight: near-zero
// traffic, conversion tracking gone dark, or a 90%+ drop against the
// 3-day baseline. Overall dimension only, always P0.
type Disaster struct {
	th config.DisasterThresholds
}

// NewDisaster creates the P0 detector.
func NewDisaster(th config.DisasterThresholds) *Disaster {
	return &Disaster{th: th}
}

func (d *Disaster) Kind() domain.DetectorKind { return domain.DetectorDisaster }

// WindowDays: yesterday plus the 3-day prior baseline.
func (d *Disaster) WindowDays() int { return 4 }

// Detect applies the three threshold checks. A disaster alert needs a
// credible baseline: an incomplete prior-3-day window emits nothing.
func (d *Disaster) Detect(in Input) []domain.Alert {
	overall := in.Dataset.Segment(domain.DimensionOverall, "")
	if overall == nil {
		return nil
	}
	yesterday := in.AnalysisDate
	baselineEnd := yesterday.AddDays(-1)

	sessions := overall.Metric(domain.MetricSessions)
	conversions := overall.Metric(domain.MetricConversions)

	ySessions, haveSessions := stats.ValueOn(sessions, yesterday)
	yConversions, haveConversions := stats.ValueOn(conversions, yesterday)

	sessionBaseline := stats.Window(sessions, baselineEnd, 3)
	conversionBaseline := stats.Window(conversions, baselineEnd, 3)

	meanSessions, sessionsCredible := stats.Mean(stats.Values(sessionBaseline))
	sessionsCredible = sessionsCredible && len(sessionBaseline) == 3
	meanConversions, conversionsCredible := stats.Mean(stats.Values(conversionBaseline))
	conversionsCredible = conversionsCredible && len(conversionBaseline) == 3

	var alerts []domain.Alert

	// Check 1: near-zero traffic on a property that normally has some.
	if haveSessions && sessionsCredible &&
		ySessions < d.th.NearZeroSessions && meanSessions >= d.th.BaselineSessions {
		alerts = append(alerts, d.alert(in, domain.MetricSessions, ySessions, meanSessions,
			DisasterNearZeroTraffic, 95,
			fmt.Sprintf("Site down: only %.0f sessions detected", ySessions),
			"ACT NOW - Check tracking code and site availability"))
	}

	// Check 2: conversion tracking failure.
	if haveConversions && conversionsCredible &&
		yConversions == 0 && meanConversions >= d.th.BaselineConversions {
		alerts = append(alerts, d.alert(in, domain.MetricConversions, 0, meanConversions,
			DisasterTrackingFailure, 100,
			"Conversion tracking failure: 0 conversions detected",
			"ACT NOW - Verify conversion event configuration"))
	}

	// Check 3: catastrophic traffic drop.
	if haveSessions && sessionsCredible && meanSessions >= d.th.BaselineSessions {
		dropPct := (meanSessions - ySessions) / meanSessions * 100
		if dropPct >= d.th.DropPct {
			a := d.alert(in, domain.MetricSessions, ySessions, meanSessions,
				DisasterCatastrophicDrop, 85,
				fmt.Sprintf("Catastrophic traffic drop: -%.1f%%", dropPct),
				"ACT NOW - Investigate site outage or tracking issue")
			a.Details["drop_percentage"] = round2(dropPct)
			alerts = append(alerts, a)
		}
	}

	return alerts
}

func (d *Disaster) alert(in Input, metric domain.Metric, observed, baseline float64, disasterType string, impact int, message, action string) domain.Alert {
	delta := 0.0
	if baseline > 0 {
		delta = round2((observed - baseline) / baseline * 100)
	}
	return domain.Alert{
		Detector:         domain.DetectorDisaster,
		Priority:         domain.PriorityP0,
		PropertyID:       in.Property.PropertyID,
		Domain:           in.Property.Domain,
		Date:             in.AnalysisDate,
		Dimension:        domain.DimensionOverall,
		DimensionValue:   "",
		Metric:           metric,
		ObservedValue:    observed,
		BaselineValue:    round2(baseline),
		Delta:            delta,
		Severity:         domain.SeverityCritical,
		BusinessImpact:   clampImpact(impact),
		DetectionMethods: []string{domain.MethodThreshold},
		Message:          message,
		ActionRequired:   action,
		Details: map[string]any{
			"disaster_type": disasterType,
		},
		GeneratedAt: in.GeneratedAt,
	}
}
