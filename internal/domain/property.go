package domain

// PropertyConfig describes one monitored property. The conversion-event
// list drives the upstream export; detectors treat the conversions
// metric as given.
type PropertyConfig struct {
	PropertyID       string   `json:"property_id"`
	DatasetID        string   `json:"dataset_id"`
	ClientName       string   `json:"client_name"`
	Domain           string   `json:"domain"`
	ConversionEvents []string `json:"conversion_events"`
	Notes            string   `json:"notes,omitempty"`
	IsConfigured     bool     `json:"is_configured"`

	// DisabledDimensions suppresses detector coverage for listed
	// dimensions on this property.
	DisabledDimensions []Dimension `json:"disabled_dimensions,omitempty"`

	// Volume overrides; zero means use the global threshold.
	MinRecordSessions int `json:"min_record_sessions,omitempty"`
	MinTrendSessions  int `json:"min_trend_sessions,omitempty"`
}

// DimensionEnabled reports whether a dimension should be analyzed for
// this property.
func (p PropertyConfig) DimensionEnabled(dim Dimension) bool {
	for _, d := range p.DisabledDimensions {
		if d == dim {
			return false
		}
	}
	return true
}
