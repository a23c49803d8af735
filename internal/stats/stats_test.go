package stats

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/domain"
)

func obsFrom(start string, values []float64) []domain.Observation {
	day := domain.MustDay(start)
	out := make([]domain.Observation, 0, len(values))
	for i, v := range values {
		out = append(out, domain.Observation{Date: day.AddDays(i), Value: v})
	}
	return out
}

func TestMean(t *testing.T) {
	mean, ok := Mean([]float64{3, 4, 5})
	require.True(t, ok)
	assert.InDelta(t, 4.0, mean, 1e-9)

	_, ok = Mean(nil)
	assert.False(t, ok)
}

func TestStdDevPopulation(t *testing.T) {
	// Population stddev of {2,4,4,4,5,5,7,9} is exactly 2.
	sd, ok := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.True(t, ok)
	assert.InDelta(t, 2.0, sd, 1e-9)
}

func TestZScoreUndefinedOnZeroDeviation(t *testing.T) {
	_, ok := ZScore(10, 5, 0)
	assert.False(t, ok)

	z, ok := ZScore(10, 5, 2.5)
	require.True(t, ok)
	assert.InDelta(t, 2.0, z, 1e-9)
}

func TestQuartilesLinearInterpolation(t *testing.T) {
	values := make([]float64, 0, 30)
	for i := 1; i <= 30; i++ {
		values = append(values, float64(i))
	}
	q1, q3, ok := Quartiles(values)
	require.True(t, ok)
	// Positions 0.25*(30-1)=7.25 and 0.75*29=21.75 on 1..30.
	assert.InDelta(t, 8.25, q1, 1e-9)
	assert.InDelta(t, 22.75, q3, 1e-9)

	iqr, ok := IQR(values)
	require.True(t, ok)
	assert.InDelta(t, 14.5, iqr, 1e-9)
}

func TestQuartilesMinimumSampleGuard(t *testing.T) {
	values := make([]float64, MinQuartileSamples-1)
	_, _, ok := Quartiles(values)
	assert.False(t, ok, "min_n - 1 points must return the sentinel")

	values = append(values, 1)
	_, _, ok = Quartiles(values)
	assert.True(t, ok, "exactly min_n points must return a numeric result")
}

func TestQuartilesOrderInvariant(t *testing.T) {
	values := make([]float64, 0, 40)
	for i := 0; i < 40; i++ {
		values = append(values, float64(i*i%37))
	}
	q1a, q3a, ok := Quartiles(values)
	require.True(t, ok)

	shuffled := make([]float64, len(values))
	copy(shuffled, values)
	rand.New(rand.NewSource(1)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	q1b, q3b, ok := Quartiles(shuffled)
	require.True(t, ok)
	assert.Equal(t, q1a, q1b)
	assert.Equal(t, q3a, q3b)
}

func TestWindowSkipsGaps(t *testing.T) {
	obs := []domain.Observation{
		{Date: domain.MustDay("2026-03-01"), Value: 10},
		{Date: domain.MustDay("2026-03-02"), Value: 20},
		// 03-03 missing: a gap, not a zero.
		{Date: domain.MustDay("2026-03-04"), Value: 40},
	}
	window := Window(obs, domain.MustDay("2026-03-04"), 3)
	require.Len(t, window, 2)
	assert.Equal(t, 20.0, window[0].Value)
	assert.Equal(t, 40.0, window[1].Value)
}

func TestRollingMeanGuard(t *testing.T) {
	obs := obsFrom("2026-03-01", []float64{1, 2, 3, 4, 5, 6, 7})
	end := domain.MustDay("2026-03-07")

	mean, n, ok := RollingMean(obs, end, 7, MinRollingSamples)
	require.True(t, ok)
	assert.Equal(t, 7, n)
	assert.InDelta(t, 4.0, mean, 1e-9)

	// Same series but one short of the guard.
	_, n, ok = RollingMean(obs[1:], end, 7, MinRollingSamples)
	assert.False(t, ok)
	assert.Equal(t, 6, n)
}

func TestValueOnMissingDay(t *testing.T) {
	obs := obsFrom("2026-03-01", []float64{5, 6})
	_, ok := ValueOn(obs, domain.MustDay("2026-03-03"))
	assert.False(t, ok)

	v, ok := ValueOn(obs, domain.MustDay("2026-03-02"))
	require.True(t, ok)
	assert.Equal(t, 6.0, v)
}

func TestExtremaWithDates(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100 + float64(i%10)
	}
	values[12] = 500
	values[25] = 3
	obs := obsFrom("2026-01-01", values)
	end := domain.MustDay("2026-01-01").AddDays(39)

	max, ok := MaxInWindow(obs, end, 40, MinQuartileSamples)
	require.True(t, ok)
	assert.Equal(t, 500.0, max.Value)
	assert.Equal(t, "2026-01-13", max.Date.String())

	min, ok := MinInWindow(obs, end, 40, MinQuartileSamples)
	require.True(t, ok)
	assert.Equal(t, 3.0, min.Value)
	assert.Equal(t, "2026-01-26", min.Date.String())

	_, ok = MaxInWindow(obs[:20], end, 40, MinQuartileSamples)
	assert.False(t, ok)
}
