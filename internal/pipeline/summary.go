package pipeline

import (
	"time"

	"github.com/scoutwatch/scout/internal/domain"
)

// PropertyOutcome records how one property fared during the run.
type PropertyOutcome struct {
	PropertyID string `json:"property_id"`
	Status     string `json:"status"` // analyzed | failed | timed_out
	Reason     string `json:"reason,omitempty"`
	AlertCount int    `json:"alert_count"`
}

// RunSummary is the machine-readable record of one run, written next to
// the digest as run_summary.json.
type RunSummary struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	ReferenceDate      domain.Day            `json:"reference_date"`
	AnalysisDate       domain.Day            `json:"analysis_date"`
	SettlingDays       int                   `json:"settling_days"`
	PropertiesTotal    int                   `json:"properties_total"`
	PropertiesAnalyzed int                   `json:"properties_analyzed"`
	PropertiesFailed   int                   `json:"properties_failed"`
	TotalAlerts        int                   `json:"total_alerts"`
	SuppressedAlerts   int                   `json:"suppressed_alerts"`
	ByDetector         domain.DetectorCounts `json:"by_detector"`
	Outcomes           []PropertyOutcome     `json:"outcomes"`
	DurationMS         int64                 `json:"duration_ms"`
	Delivered          bool                  `json:"delivered"`
	ExitCode           int                   `json:"exit_code"`
}
