package domain

import "fmt"

// Dimension is the breakdown axis of a metric series.
type Dimension string

const (
	DimensionOverall       Dimension = "overall"
	DimensionGeography     Dimension = "geography"
	DimensionDevice        Dimension = "device"
	DimensionTrafficSource Dimension = "traffic_source"
	DimensionLandingPage   Dimension = "landing_page"
)

// AllDimensions lists dimensions in their canonical (sort) order.
var AllDimensions = []Dimension{
	DimensionOverall,
	DimensionGeography,
	DimensionDevice,
	DimensionTrafficSource,
	DimensionLandingPage,
}

// Metric names a measure in the clean dataset.
type Metric string

const (
	MetricSessions           Metric = "sessions"
	MetricUsers              Metric = "users"
	MetricPageViews          Metric = "page_views"
	MetricConversions        Metric = "conversions"
	MetricBounceRate         Metric = "bounce_rate"
	MetricAvgSessionDuration Metric = "avg_session_duration"
)

// ParseMetric validates a metric name from the wire format.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricSessions, MetricUsers, MetricPageViews, MetricConversions,
		MetricBounceRate, MetricAvgSessionDuration:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// IsRate reports whether the metric is a bounded fraction rather than a
// count. Bounce rate is a fraction in [0,1] on the wire.
func (m Metric) IsRate() bool { return m == MetricBounceRate }

// MetricPoint is one day of one metric for one
// (property, dimension, dimension_value) tuple.
type MetricPoint struct {
	Date           Day       `json:"date"`
	PropertyID     string    `json:"property_id"`
	Dimension      Dimension `json:"dimension"`
	DimensionValue string    `json:"dimension_value"`
	Metric         Metric    `json:"metric"`
	Value          float64   `json:"value"`
}

// Observation is the (date, value) pair the statistical kernel works
// on. Gaps in a series are simply absent observations.
type Observation struct {
	Date  Day
	Value float64
}
