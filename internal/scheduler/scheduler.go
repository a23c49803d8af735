// Package scheduler triggers one analysis run per day at a fixed UTC
// time, for deployments that prefer a long-lived process over cron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Runner is the work the scheduler triggers; satisfied by a closure
// over pipeline.Orchestrator.Run.
type Runner func(ctx context.Context) error

// Scheduler fires a Runner daily at a configured wall-clock time.
type Scheduler struct {
	at     TimeOfDay
	runner Runner
	log    zerolog.Logger
	now    func() time.Time
}

// TimeOfDay is a UTC wall-clock trigger time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return t, fmt.Errorf("parse schedule time %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return t, fmt.Errorf("schedule time %q out of range", s)
	}
	return t, nil
}

// New builds a scheduler that fires at the given UTC time.
func New(at TimeOfDay, runner Runner, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		at:     at,
		runner: runner,
		log:    log.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// next returns the first trigger instant strictly after now.
func (s *Scheduler) next(now time.Time) time.Time {
	now = now.UTC()
	trigger := time.Date(now.Year(), now.Month(), now.Day(), s.at.Hour, s.at.Minute, 0, 0, time.UTC)
	if !trigger.After(now) {
		trigger = trigger.AddDate(0, 0, 1)
	}
	return trigger
}

// Run blocks until ctx is cancelled, firing the runner once per day.
// A failed run is logged and the loop keeps going; the next day's run
// is the retry.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		trigger := s.next(s.now())
		wait := trigger.Sub(s.now())
		s.log.Info().Time("next_run", trigger).Dur("wait", wait).Msg("scheduled")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.runner(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled run failed")
		}
	}
}
