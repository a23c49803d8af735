// Package consolidate merges the per-detector alert streams into the
// day's digest: deterministic ordering, per-property volume caps and
// cross-detector dedup.
package consolidate

import (
	"sort"
	"time"

	"github.com/scoutwatch/scout/internal/domain"
)

// Input is everything consolidation needs for one reference date.
type Input struct {
	ReferenceDate domain.Day
	AnalysisDate  domain.Day
	GeneratedAt   time.Time

	// Properties that were successfully analyzed; failed loads arrive
	// as Issues instead and stay out of the property roll-ups.
	Properties []domain.PropertyConfig

	Alerts []domain.Alert
	Issues []domain.Issue

	// MaxPerProperty caps consolidated alerts per property. P0/P1 are
	// never suppressed by the cap.
	MaxPerProperty int
}

// Build produces the digest. Output ordering is a total order over
// (priority, -impact, property, -date, dimension, dimension_value,
// metric); two runs over identical inputs yield identical digests.
func Build(in Input) domain.Digest {
	alerts := dedupe(in.Alerts)
	kept, suppressedPer := applyCap(alerts, in.MaxPerProperty)

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Less(kept[j]) })

	perProperty := make(map[string][]domain.Alert, len(in.Properties))
	for _, a := range kept {
		perProperty[a.PropertyID] = append(perProperty[a.PropertyID], a)
	}

	digest := domain.Digest{
		GeneratedAt:   in.GeneratedAt,
		ReferenceDate: in.ReferenceDate,
		AnalysisDate:  in.AnalysisDate,
		Alerts:        kept,
		TotalAlerts:   len(kept),
	}

	for _, a := range kept {
		digest.Counts.Add(a.Detector, 1)
	}

	for _, prop := range in.Properties {
		rollup := domain.PropertyRollup{
			PropertyID: prop.PropertyID,
			ClientName: prop.ClientName,
			Domain:     prop.Domain,
			Suppressed: suppressedPer[prop.PropertyID],
		}
		for _, a := range perProperty[prop.PropertyID] {
			rollup.TotalAlerts++
			rollup.ByDetector.Add(a.Detector, 1)
			rollup.ByPriority.Add(a.Priority)
		}
		rollup.AllClear = rollup.TotalAlerts == 0 && rollup.Suppressed == 0
		if rollup.AllClear {
			digest.AllClear = append(digest.AllClear, prop.PropertyID)
		}
		digest.Properties = append(digest.Properties, rollup)
		digest.SuppressedCount += rollup.Suppressed
	}

	sort.Slice(digest.Properties, func(i, j int) bool {
		return digest.Properties[i].PropertyID < digest.Properties[j].PropertyID
	})
	sort.Strings(digest.AllClear)

	digest.Issues = append(digest.Issues, in.Issues...)
	sort.Slice(digest.Issues, func(i, j int) bool {
		a, b := digest.Issues[i], digest.Issues[j]
		if a.PropertyID != b.PropertyID {
			return a.PropertyID < b.PropertyID
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Detector < b.Detector
	})

	return digest
}

// dedupe drops a Trend(down) alert when Record(low) fired on the same
// (property, date, dimension, dimension_value, metric): the record is
// the stronger statement of the same decline.
func dedupe(alerts []domain.Alert) []domain.Alert {
	recordLows := make(map[domain.SegmentKey]bool)
	for _, a := range alerts {
		if a.Detector == domain.DetectorRecord && a.Details["record_type"] == "low" {
			recordLows[a.Key()] = true
		}
	}
	if len(recordLows) == 0 {
		return alerts
	}
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.Detector == domain.DetectorTrend &&
			a.Details["trend_direction"] == "down" && recordLows[a.Key()] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// applyCap enforces the per-property volume cap: every P0/P1 survives,
// remaining slots go to the highest-impact P2/P3.
func applyCap(alerts []domain.Alert, max int) (kept []domain.Alert, suppressed map[string]int) {
	suppressed = make(map[string]int)
	if max <= 0 {
		return alerts, suppressed
	}

	byProperty := make(map[string][]domain.Alert)
	order := make([]string, 0)
	for _, a := range alerts {
		if _, seen := byProperty[a.PropertyID]; !seen {
			order = append(order, a.PropertyID)
		}
		byProperty[a.PropertyID] = append(byProperty[a.PropertyID], a)
	}

	for _, propertyID := range order {
		var mandatory, optional []domain.Alert
		for _, a := range byProperty[propertyID] {
			if a.Priority == domain.PriorityP0 || a.Priority == domain.PriorityP1 {
				mandatory = append(mandatory, a)
			} else {
				optional = append(optional, a)
			}
		}
		kept = append(kept, mandatory...)

		slots := max - len(mandatory)
		if slots < 0 {
			slots = 0
		}
		if len(optional) > slots {
			sort.SliceStable(optional, func(i, j int) bool {
				if optional[i].BusinessImpact != optional[j].BusinessImpact {
					return optional[i].BusinessImpact > optional[j].BusinessImpact
				}
				return optional[i].Less(optional[j])
			})
			suppressed[propertyID] = len(optional) - slots
			optional = optional[:slots]
		}
		kept = append(kept, optional...)
	}
	return kept, suppressed
}
