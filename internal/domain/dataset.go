package domain

import (
	"sort"
)

// Segment holds the per-metric daily series for one
// (dimension, dimension_value) slice of a property.
type Segment struct {
	Dimension      Dimension
	DimensionValue string

	series map[Metric][]Observation
}

// Metric returns the date-ordered observations for a metric. The
// returned slice is owned by the segment; callers must not mutate it.
func (s *Segment) Metric(m Metric) []Observation {
	if s == nil {
		return nil
	}
	return s.series[m]
}

// CleanDataset is the loaded, validated, immutable input for one
// property. Detectors read it concurrently and never write.
type CleanDataset struct {
	PropertyID    string
	ReferenceDate Day

	segments  map[Dimension]map[string]*Segment
	startDate Day
	endDate   Day
}

// NewCleanDataset creates an empty dataset for a property.
func NewCleanDataset(propertyID string, referenceDate Day) *CleanDataset {
	return &CleanDataset{
		PropertyID:    propertyID,
		ReferenceDate: referenceDate,
		segments:      make(map[Dimension]map[string]*Segment),
	}
}

// Add appends a point to its segment series. Callers must Seal the
// dataset before handing it to detectors.
func (d *CleanDataset) Add(p MetricPoint) {
	byValue, ok := d.segments[p.Dimension]
	if !ok {
		byValue = make(map[string]*Segment)
		d.segments[p.Dimension] = byValue
	}
	seg, ok := byValue[p.DimensionValue]
	if !ok {
		seg = &Segment{
			Dimension:      p.Dimension,
			DimensionValue: p.DimensionValue,
			series:         make(map[Metric][]Observation),
		}
		byValue[p.DimensionValue] = seg
	}
	seg.series[p.Metric] = append(seg.series[p.Metric], Observation{Date: p.Date, Value: p.Value})
	if d.startDate.IsZero() || p.Date.Before(d.startDate) {
		d.startDate = p.Date
	}
	if d.endDate.IsZero() || p.Date.After(d.endDate) {
		d.endDate = p.Date
	}
}

// Seal sorts every series by date. The wire format leaves sort order
// unspecified, so the loader always seals after decoding.
func (d *CleanDataset) Seal() {
	for _, byValue := range d.segments {
		for _, seg := range byValue {
			for m := range seg.series {
				obs := seg.series[m]
				sort.Slice(obs, func(i, j int) bool { return obs[i].Date.Before(obs[j].Date) })
			}
		}
	}
}

// Segment returns the slice for (dim, value), or nil when absent.
func (d *CleanDataset) Segment(dim Dimension, value string) *Segment {
	if d == nil {
		return nil
	}
	return d.segments[dim][value]
}

// SegmentValues returns the sorted dimension values present for dim.
func (d *CleanDataset) SegmentValues(dim Dimension) []string {
	byValue := d.segments[dim]
	values := make([]string, 0, len(byValue))
	for v := range byValue {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// StartDate is the earliest date present anywhere in the dataset.
func (d *CleanDataset) StartDate() Day { return d.startDate }

// EndDate is the latest date present anywhere in the dataset. For a
// settled export this equals reference_date minus the settling delay.
func (d *CleanDataset) EndDate() Day { return d.endDate }

// SpanDays is the inclusive day count between StartDate and EndDate,
// zero for an empty dataset.
func (d *CleanDataset) SpanDays() int {
	if d.startDate.IsZero() {
		return 0
	}
	return d.endDate.DaysSince(d.startDate) + 1
}

// Empty reports whether the dataset holds no observations at all.
func (d *CleanDataset) Empty() bool { return len(d.segments) == 0 }
