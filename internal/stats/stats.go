// Package stats is the shared statistical kernel: pure, deterministic
// functions over (date, value) observations. It performs no I/O and
// never panics on data shape; thin results carry an ok flag instead of
// leaking NaN into detector logic.
package stats

import (
	"math"
	"sort"

	"github.com/scoutwatch/scout/internal/domain"
)

// Minimum-sample guards. Below these counts a primitive reports
// insufficient data and detectors must treat the window as no signal.
const (
	MinRollingSamples  = 7
	MinQuartileSamples = 30
)

// Mean returns the arithmetic mean. ok is false for an empty input.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// StdDev returns the population standard deviation. ok is false for an
// empty input.
func StdDev(values []float64) (float64, bool) {
	mean, ok := Mean(values)
	if !ok {
		return 0, false
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values))), true
}

// Quartiles returns Q1 and Q3 by linear interpolation on the sorted
// values. ok is false when fewer than MinQuartileSamples points are
// supplied.
func Quartiles(values []float64) (q1, q3 float64, ok bool) {
	if len(values) < MinQuartileSamples {
		return 0, 0, false
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantile(sorted, 0.25), quantile(sorted, 0.75), true
}

// IQR returns Q3 - Q1 under the same guard as Quartiles.
func IQR(values []float64) (float64, bool) {
	q1, q3, ok := Quartiles(values)
	if !ok {
		return 0, false
	}
	return q3 - q1, true
}

// quantile interpolates linearly on an already-sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ZScore returns (x - mean) / stddev. The score is undefined when the
// deviation is zero or not finite; ok is false in that case.
func ZScore(x, mean, stddev float64) (float64, bool) {
	if stddev <= 0 || math.IsNaN(stddev) || math.IsInf(stddev, 0) {
		return 0, false
	}
	return (x - mean) / stddev, true
}

// Window returns observations falling in the trailing window of `days`
// calendar days ending at `end`, inclusive. Gaps are skipped, not
// imputed; the result may hold fewer points than days.
func Window(obs []domain.Observation, end domain.Day, days int) []domain.Observation {
	if days <= 0 {
		return nil
	}
	start := end.AddDays(-(days - 1))
	out := make([]domain.Observation, 0, days)
	for _, o := range obs {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ValueOn returns the observation value for an exact day. A missing day
// is a gap, never zero.
func ValueOn(obs []domain.Observation, day domain.Day) (float64, bool) {
	for _, o := range obs {
		if o.Date.Equal(day) {
			return o.Value, true
		}
	}
	return 0, false
}

// RollingMean computes the mean of the trailing `days` window ending at
// `end`. It reports the number of valid points used; ok is false when
// fewer than minN points fall in the window.
func RollingMean(obs []domain.Observation, end domain.Day, days, minN int) (mean float64, n int, ok bool) {
	window := Window(obs, end, days)
	if len(window) < minN {
		return 0, len(window), false
	}
	sum := 0.0
	for _, o := range window {
		sum += o.Value
	}
	return sum / float64(len(window)), len(window), true
}

// Extremum is a historical max or min together with its date.
type Extremum struct {
	Value float64
	Date  domain.Day
}

// MaxInWindow returns the maximum observation in the trailing window,
// guarded by minN valid points.
func MaxInWindow(obs []domain.Observation, end domain.Day, days, minN int) (Extremum, bool) {
	window := Window(obs, end, days)
	if len(window) < minN {
		return Extremum{}, false
	}
	best := window[0]
	for _, o := range window[1:] {
		if o.Value > best.Value {
			best = o
		}
	}
	return Extremum{Value: best.Value, Date: best.Date}, true
}

// MinInWindow returns the minimum observation in the trailing window,
// guarded by minN valid points.
func MinInWindow(obs []domain.Observation, end domain.Day, days, minN int) (Extremum, bool) {
	window := Window(obs, end, days)
	if len(window) < minN {
		return Extremum{}, false
	}
	best := window[0]
	for _, o := range window[1:] {
		if o.Value < best.Value {
			best = o
		}
	}
	return Extremum{Value: best.Value, Date: best.Date}, true
}

// Values extracts the raw values from a window of observations.
func Values(obs []domain.Observation) []float64 {
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = o.Value
	}
	return out
}
