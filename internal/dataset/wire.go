package dataset

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/scoutwatch/scout/internal/domain"
)

// DatasetKey returns the blob key for a property's clean dataset.
func DatasetKey(propertyID string, referenceDate domain.Day) string {
	return fmt.Sprintf("clean_dataset/%s/%s.json", propertyID, referenceDate)
}

// cleanFile mirrors the warehouse export shape. Sort order within each
// series is unspecified; the loader sorts after decoding.
type cleanFile struct {
	PropertyID    string      `json:"property_id"`
	ReferenceDate string      `json:"reference_date"`
	Overall       []wirePoint `json:"overall"`
	Geography     []wirePoint `json:"geography"`
	Device        []wirePoint `json:"device"`
	TrafficSource []wirePoint `json:"traffic_source"`
	LandingPage   []wirePoint `json:"landing_page"`
}

type wirePoint struct {
	Date           string  `json:"date"`
	DimensionValue string  `json:"dimension_value"`
	Metric         string  `json:"metric"`
	Value          float64 `json:"value"`
}

// Decode parses and validates a clean-dataset blob into an immutable
// CleanDataset. Any negative, NaN or out-of-range value rejects the
// whole property for the run.
func Decode(data []byte) (*domain.CleanDataset, error) {
	var file cleanFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("malformed clean dataset: %w", err)
	}
	if file.PropertyID == "" {
		return nil, fmt.Errorf("clean dataset missing property_id")
	}
	referenceDate, err := domain.ParseDay(file.ReferenceDate)
	if err != nil {
		return nil, fmt.Errorf("clean dataset reference_date: %w", err)
	}

	ds := domain.NewCleanDataset(file.PropertyID, referenceDate)
	series := []struct {
		dim    domain.Dimension
		points []wirePoint
	}{
		{domain.DimensionOverall, file.Overall},
		{domain.DimensionGeography, file.Geography},
		{domain.DimensionDevice, file.Device},
		{domain.DimensionTrafficSource, file.TrafficSource},
		{domain.DimensionLandingPage, file.LandingPage},
	}
	for _, s := range series {
		for _, p := range s.points {
			point, err := decodePoint(file.PropertyID, s.dim, p)
			if err != nil {
				return nil, err
			}
			ds.Add(point)
		}
	}
	if ds.Empty() {
		return nil, fmt.Errorf("clean dataset for %s holds no observations", file.PropertyID)
	}
	ds.Seal()
	return ds, nil
}

func decodePoint(propertyID string, dim domain.Dimension, p wirePoint) (domain.MetricPoint, error) {
	date, err := domain.ParseDay(p.Date)
	if err != nil {
		return domain.MetricPoint{}, fmt.Errorf("%s/%s: %w", dim, p.Metric, err)
	}
	metric, err := domain.ParseMetric(p.Metric)
	if err != nil {
		return domain.MetricPoint{}, fmt.Errorf("%s@%s: %w", dim, p.Date, err)
	}
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return domain.MetricPoint{}, fmt.Errorf("%s/%s@%s: value is not finite", dim, metric, p.Date)
	}
	if p.Value < 0 {
		return domain.MetricPoint{}, fmt.Errorf("%s/%s@%s: negative value %v", dim, metric, p.Date, p.Value)
	}
	if metric.IsRate() && p.Value > 1 {
		return domain.MetricPoint{}, fmt.Errorf("%s/%s@%s: rate %v outside [0,1]", dim, metric, p.Date, p.Value)
	}
	if dim != domain.DimensionOverall && p.DimensionValue == "" {
		return domain.MetricPoint{}, fmt.Errorf("%s/%s@%s: empty dimension_value", dim, metric, p.Date)
	}
	value := p.DimensionValue
	if dim == domain.DimensionOverall {
		value = ""
	}
	return domain.MetricPoint{
		Date:           date,
		PropertyID:     propertyID,
		Dimension:      dim,
		DimensionValue: value,
		Metric:         metric,
		Value:          p.Value,
	}, nil
}

// Validate checks a raw clean-dataset blob without building anything.
// Used by the verify subcommand.
func Validate(data []byte) error {
	_, err := Decode(data)
	return err
}
