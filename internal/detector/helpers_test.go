package detector

import (
	"time"

	"github.com/scoutwatch/scout/internal/domain"
)

var (
	testGeneratedAt = time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC)
	testProperty    = domain.PropertyConfig{
		PropertyID:   "314159",
		ClientName:   "Acme",
		Domain:       "acme.example",
		IsConfigured: true,
	}
)

// addSeries appends a contiguous daily series ending at end.
func addSeries(ds *domain.CleanDataset, dim domain.Dimension, value string, metric domain.Metric, end domain.Day, values []float64) {
	start := end.AddDays(-(len(values) - 1))
	for i, v := range values {
		ds.Add(domain.MetricPoint{
			Date:           start.AddDays(i),
			PropertyID:     ds.PropertyID,
			Dimension:      dim,
			DimensionValue: value,
			Metric:         metric,
			Value:          v,
		})
	}
}

// constant returns n copies of v.
func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func testInput(ds *domain.CleanDataset, analysisDate domain.Day) Input {
	ds.Seal()
	return Input{
		Property:     testProperty,
		Dataset:      ds,
		AnalysisDate: analysisDate,
		GeneratedAt:  testGeneratedAt,
	}
}
