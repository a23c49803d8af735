package domain

import "time"

// DetectorKind identifies which detector produced an alert.
type DetectorKind string

const (
	DetectorDisaster DetectorKind = "disaster"
	DetectorSpam     DetectorKind = "spam"
	DetectorRecord   DetectorKind = "record"
	DetectorTrend    DetectorKind = "trend"
)

// AllDetectorKinds lists detectors in priority order.
var AllDetectorKinds = []DetectorKind{
	DetectorDisaster,
	DetectorSpam,
	DetectorRecord,
	DetectorTrend,
}

// Priority is the severity tier of an alert, P0 highest.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Rank maps a priority to its sort position; unknown priorities sort
// last so a malformed alert can never displace a real one.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	case PriorityP3:
		return 3
	}
	return 4
}

// Severity labels used in alert payloads.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Detection method names recorded in Alert.DetectionMethods.
const (
	MethodThreshold       = "threshold"
	MethodZScore          = "z_score"
	MethodBounceRate      = "bounce_rate"
	MethodSessionDuration = "session_duration"
	MethodMACrossover     = "ma_crossover"
)

// Alert is an immutable value object emitted by a detector. Detector
// specific fields live in Details so the digest can treat all alerts
// uniformly.
type Alert struct {
	Detector         DetectorKind   `json:"detector"`
	Priority         Priority       `json:"priority"`
	PropertyID       string         `json:"property_id"`
	Domain           string         `json:"domain,omitempty"`
	Date             Day            `json:"date"`
	Dimension        Dimension      `json:"dimension"`
	DimensionValue   string         `json:"dimension_value"`
	Metric           Metric         `json:"metric"`
	ObservedValue    float64        `json:"observed_value"`
	BaselineValue    float64        `json:"baseline_value"`
	Delta            float64        `json:"delta"`
	Severity         string         `json:"severity"`
	BusinessImpact   int            `json:"business_impact"`
	DetectionMethods []string       `json:"detection_methods"`
	Message          string         `json:"message"`
	ActionRequired   string         `json:"action_required,omitempty"`
	Details          map[string]any `json:"details,omitempty"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Less implements the total order the consolidator imposes:
// priority asc, business_impact desc, then property_id asc, date desc,
// dimension asc, dimension_value asc, and finally metric asc so equal
// keys cannot reorder between runs.
func (a Alert) Less(b Alert) bool {
	if a.Priority.Rank() != b.Priority.Rank() {
		return a.Priority.Rank() < b.Priority.Rank()
	}
	if a.BusinessImpact != b.BusinessImpact {
		return a.BusinessImpact > b.BusinessImpact
	}
	if a.PropertyID != b.PropertyID {
		return a.PropertyID < b.PropertyID
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if a.Dimension != b.Dimension {
		return a.Dimension < b.Dimension
	}
	if a.DimensionValue != b.DimensionValue {
		return a.DimensionValue < b.DimensionValue
	}
	return a.Metric < b.Metric
}

// SegmentKey identifies the slice an alert refers to; the consolidator
// uses it for cross-detector dedup.
type SegmentKey struct {
	PropertyID     string
	Date           Day
	Dimension      Dimension
	DimensionValue string
	Metric         Metric
}

// Key returns the alert's segment key.
func (a Alert) Key() SegmentKey {
	return SegmentKey{
		PropertyID:     a.PropertyID,
		Date:           a.Date,
		Dimension:      a.Dimension,
		DimensionValue: a.DimensionValue,
		Metric:         a.Metric,
	}
}

// AlertReport is the per-detector JSON artifact written each run.
type AlertReport struct {
	Detector           DetectorKind `json:"detector"`
	GeneratedAt        time.Time    `json:"generated_at"`
	ReferenceDate      Day          `json:"reference_date"`
	PropertiesAnalyzed int          `json:"properties_analyzed"`
	TotalAlerts        int          `json:"total_alerts"`
	Alerts             []Alert      `json:"alerts"`
}
