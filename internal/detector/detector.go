// Package detector holds the four anomaly detectors. Each one is a
// pure function over an immutable CleanDataset: domain conditions never
// raise, they just produce zero alerts.
package detector

import (
	"math"
	"time"

	"github.com/scoutwatch/scout/internal/config"
	"github.com/scoutwatch/scout/internal/domain"
)

// Input carries everything a detector needs for one property run.
// AnalysisDate is the settled "yesterday" every rule anchors on;
// GeneratedAt comes from the run clock so reruns stay byte-identical.
type Input struct {
	Property     domain.PropertyConfig
	Dataset      *domain.CleanDataset
	AnalysisDate domain.Day
	GeneratedAt  time.Time
}

// Detector is one detection algorithm.
type Detector interface {
	// Kind names the detector for artifacts and routing.
	Kind() domain.DetectorKind

	// WindowDays is the history the detector needs, ending at the
	// analysis date. The orchestrator sizes dataset loads from the
	// largest window requested.
	WindowDays() int

	// Detect runs the algorithm. Within one call alerts come out in a
	// deterministic order (dimension, dimension value, metric).
	Detect(in Input) []domain.Alert
}

// All returns the four production detectors in priority order.
func All(th config.Thresholds) []Detector {
	return []Detector{
		NewDisaster(th.Disaster),
		NewSpam(th.Spam),
		NewRecord(th.Record),
		NewTrend(th.Trend),
	}
}

// ByKind filters detectors to the requested kinds, preserving order.
// An empty filter keeps everything.
func ByKind(detectors []Detector, kinds []domain.DetectorKind) []Detector {
	if len(kinds) == 0 {
		return detectors
	}
	want := make(map[domain.DetectorKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	out := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		if want[d.Kind()] {
			out = append(out, d)
		}
	}
	return out
}

// MaxWindowDays returns the largest window among detectors.
func MaxWindowDays(detectors []Detector) int {
	max := 0
	for _, d := range detectors {
		if d.WindowDays() > max {
			max = d.WindowDays()
		}
	}
	return max
}

// clampImpact bounds a business-impact score to [0,100].
func clampImpact(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// round2 rounds to two decimals for alert payload fields.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
