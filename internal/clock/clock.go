// Package clock is the single source of time for the engine. Detectors
// and renderers never read system time directly; they receive dates
// derived from a Clock threaded through the run.
package clock

import (
	"time"

	"github.com/scoutwatch/scout/internal/domain"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock in UTC.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fixed always returns the same instant. Used by tests and by runs
// pinned with REFERENCE_DATE_OVERRIDE.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant }

// ReferenceDate derives the run's reference date from the clock: the
// most recent calendar day, i.e. "today" in UTC.
func ReferenceDate(c Clock) domain.Day {
	return domain.NewDay(c.Now())
}

// AnalysisDate applies the settling rule: the latest day whose export
// is considered complete.
func AnalysisDate(reference domain.Day, settlingDays int) domain.Day {
	return reference.AddDays(-settlingDays)
}
