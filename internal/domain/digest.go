package domain

import "time"

// DetectorCounts holds per-detector alert totals for the digest header.
type DetectorCounts struct {
	Disaster int `json:"disaster"`
	Spam     int `json:"spam"`
	Record   int `json:"record"`
	Trend    int `json:"trend"`
}

// Add increments the count for a detector kind.
func (c *DetectorCounts) Add(kind DetectorKind, n int) {
	switch kind {
	case DetectorDisaster:
		c.Disaster += n
	case DetectorSpam:
		c.Spam += n
	case DetectorRecord:
		c.Record += n
	case DetectorTrend:
		c.Trend += n
	}
}

// Total sums all detector counts.
func (c DetectorCounts) Total() int {
	return c.Disaster + c.Spam + c.Record + c.Trend
}

// PriorityCounts holds per-tier alert totals.
type PriorityCounts struct {
	P0 int `json:"p0"`
	P1 int `json:"p1"`
	P2 int `json:"p2"`
	P3 int `json:"p3"`
}

// Add increments the count for a priority tier.
func (c *PriorityCounts) Add(p Priority) {
	switch p {
	case PriorityP0:
		c.P0++
	case PriorityP1:
		c.P1++
	case PriorityP2:
		c.P2++
	case PriorityP3:
		c.P3++
	}
}

// PropertyRollup summarizes one property's day for the digest.
type PropertyRollup struct {
	PropertyID  string         `json:"property_id"`
	ClientName  string         `json:"client_name"`
	Domain      string         `json:"domain,omitempty"`
	TotalAlerts int            `json:"total_alerts"`
	ByDetector  DetectorCounts `json:"by_detector"`
	ByPriority  PriorityCounts `json:"by_priority"`
	Suppressed  int            `json:"suppressed"`
	AllClear    bool           `json:"all_clear"`
}

// Issue reason codes surfaced in the digest issues section.
const (
	IssueLoadFailed       = "load_failed"
	IssueInsufficientData = "insufficient_data"
	IssueDetectorFailed   = "detector_failed"
	IssueTimedOut         = "timed_out"
)

// Issue records a property that could not be fully analyzed.
type Issue struct {
	PropertyID string       `json:"property_id"`
	Detector   DetectorKind `json:"detector,omitempty"`
	Code       string       `json:"code"`
	Detail     string       `json:"detail,omitempty"`
}

// Digest is the consolidated, ordered alert report for one reference
// date. Two runs over identical inputs must marshal to identical bytes.
type Digest struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	ReferenceDate   Day              `json:"reference_date"`
	AnalysisDate    Day              `json:"analysis_date"`
	Counts          DetectorCounts   `json:"counts"`
	TotalAlerts     int              `json:"total_alerts"`
	SuppressedCount int              `json:"suppressed_count"`
	Alerts          []Alert          `json:"alerts"`
	Properties      []PropertyRollup `json:"properties"`
	AllClear        []string         `json:"all_clear"`
	Issues          []Issue          `json:"issues"`
}
