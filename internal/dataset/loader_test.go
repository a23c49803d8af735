package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/blob"
	"github.com/scoutwatch/scout/internal/domain"
)

const validDataset = `{
	"property_id": "314159",
	"reference_date": "2026-08-22",
	"overall": [
		{"date": "2026-08-19", "dimension_value": "", "metric": "sessions", "value": 480},
		{"date": "2026-08-18", "dimension_value": "", "metric": "sessions", "value": 510},
		{"date": "2026-08-19", "dimension_value": "", "metric": "bounce_rate", "value": 0.42}
	],
	"geography": [
		{"date": "2026-08-19", "dimension_value": "US", "metric": "sessions", "value": 300}
	]
}`

func newLoader(t *testing.T, key, payload string) *Loader {
	t.Helper()
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	if payload != "" {
		require.NoError(t, store.Put(context.Background(), key, []byte(payload)))
	}
	return NewLoader(store, nil, 0)
}

func TestLoadSortsSeries(t *testing.T) {
	refDate := domain.MustDay("2026-08-22")
	loader := newLoader(t, DatasetKey("314159", refDate), validDataset)

	ds, err := loader.Load(context.Background(), "314159", refDate, 0)
	require.NoError(t, err)

	overall := ds.Segment(domain.DimensionOverall, "")
	require.NotNil(t, overall)
	sessions := overall.Metric(domain.MetricSessions)
	require.Len(t, sessions, 2)
	assert.Equal(t, "2026-08-18", sessions[0].Date.String())
	assert.Equal(t, "2026-08-19", sessions[1].Date.String())
	assert.Equal(t, "2026-08-19", ds.EndDate().String())

	assert.Equal(t, []string{"US"}, ds.SegmentValues(domain.DimensionGeography))
}

func TestLoadMissingDatasetReason(t *testing.T) {
	refDate := domain.MustDay("2026-08-22")
	loader := newLoader(t, "", "")

	_, err := loader.Load(context.Background(), "missing", refDate, 0)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ReasonNotFound, loadErr.Reason)
	assert.Equal(t, "missing", loadErr.PropertyID)
}

func TestLoadShortHistoryIsInsufficientData(t *testing.T) {
	refDate := domain.MustDay("2026-08-22")
	loader := newLoader(t, DatasetKey("314159", refDate), validDataset)

	// The fixture spans 2 days; a detector asking for a 180-day window
	// cannot be answered, and silence would read as all clear.
	_, err := loader.Load(context.Background(), "314159", refDate, 180)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ReasonInsufficientData, loadErr.Reason)
	assert.Equal(t, "314159", loadErr.PropertyID)

	// The same dataset satisfies a window it can cover.
	_, err = loader.Load(context.Background(), "314159", refDate, 2)
	assert.NoError(t, err)
}

func TestLoadNegativeValueRejectsProperty(t *testing.T) {
	refDate := domain.MustDay("2026-08-22")
	payload := `{
		"property_id": "p",
		"reference_date": "2026-08-22",
		"overall": [{"date": "2026-08-19", "dimension_value": "", "metric": "sessions", "value": -4}]
	}`
	loader := newLoader(t, DatasetKey("p", refDate), payload)

	_, err := loader.Load(context.Background(), "p", refDate, 0)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ReasonMalformed, loadErr.Reason)
}

func TestLoadPropertyIDMismatch(t *testing.T) {
	refDate := domain.MustDay("2026-08-22")
	loader := newLoader(t, DatasetKey("other", refDate), validDataset)

	_, err := loader.Load(context.Background(), "other", refDate, 0)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ReasonMalformed, loadErr.Reason)
}

func TestDecodeValidation(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"property_id": "p", "overall": [`},
		{"missing property id", `{"reference_date": "2026-08-22", "overall": [{"date": "2026-08-19", "metric": "sessions", "value": 1}]}`},
		{"bad date", `{"property_id": "p", "reference_date": "2026-08-22", "overall": [{"date": "Aug 19", "metric": "sessions", "value": 1}]}`},
		{"unknown metric", `{"property_id": "p", "reference_date": "2026-08-22", "overall": [{"date": "2026-08-19", "metric": "page_speed", "value": 1}]}`},
		{"rate out of range", `{"property_id": "p", "reference_date": "2026-08-22", "overall": [{"date": "2026-08-19", "metric": "bounce_rate", "value": 42}]}`},
		{"segment without value", `{"property_id": "p", "reference_date": "2026-08-22", "geography": [{"date": "2026-08-19", "dimension_value": "", "metric": "sessions", "value": 1}]}`},
		{"empty dataset", `{"property_id": "p", "reference_date": "2026-08-22"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, Validate([]byte(tc.payload)))
		})
	}

	assert.NoError(t, Validate([]byte(validDataset)))
}
