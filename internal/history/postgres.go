// Package history persists run outcomes and alerts to Postgres so the
// team can query alert frequency across days. The sink is optional;
// runs succeed without it.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/scoutwatch/scout/internal/domain"
)

// Run is one orchestrator run as stored in scout_runs.
type Run struct {
	ReferenceDate      domain.Day
	AnalysisDate       domain.Day
	GeneratedAt        time.Time
	PropertiesAnalyzed int
	PropertiesFailed   int
	TotalAlerts        int
	SuppressedAlerts   int
	Duration           time.Duration
	ExitCode           int
}

// Store writes runs and their alerts in a single transaction.
type Store struct {
	db      *sqlx.DB
	log     zerolog.Logger
	timeout time.Duration
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string, queryTimeout time.Duration, log zerolog.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)
	return NewStore(db, queryTimeout, log), nil
}

// NewStore wraps an existing connection; tests inject sqlmock here.
func NewStore(db *sqlx.DB, queryTimeout time.Duration, log zerolog.Logger) *Store {
	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}
	return &Store{db: db, log: log.With().Str("component", "history").Logger(), timeout: queryTimeout}
}

const insertRun = `
	INSERT INTO scout_runs (
		reference_date, analysis_date, generated_at,
		properties_analyzed, properties_failed,
		total_alerts, suppressed_alerts, duration_ms, exit_code
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`

const insertAlert = `
	INSERT INTO scout_alerts (
		run_id, detector, priority, property_id, date,
		dimension, dimension_value, metric,
		observed_value, baseline_value, delta,
		severity, business_impact, message, details
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// RecordRun stores the run row and every consolidated alert. The whole
// write is transactional; a failure leaves no partial run behind.
func (s *Store) RecordRun(ctx context.Context, run Run, alerts []domain.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRowxContext(ctx, insertRun,
		run.ReferenceDate.String(), run.AnalysisDate.String(), run.GeneratedAt.UTC(),
		run.PropertiesAnalyzed, run.PropertiesFailed,
		run.TotalAlerts, run.SuppressedAlerts, run.Duration.Milliseconds(), run.ExitCode,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}

	for _, a := range alerts {
		details, err := json.Marshal(a.Details)
		if err != nil {
			return fmt.Errorf("history: marshal details: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertAlert,
			runID, string(a.Detector), string(a.Priority), a.PropertyID, a.Date.String(),
			string(a.Dimension), a.DimensionValue, string(a.Metric),
			a.ObservedValue, a.BaselineValue, a.Delta,
			a.Severity, a.BusinessImpact, a.Message, details,
		); err != nil {
			return fmt.Errorf("history: insert alert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	s.log.Info().Int64("run_id", runID).Int("alerts", len(alerts)).Msg("run recorded")
	return nil
}

// AlertCountSince returns how many times a segment alerted in the last
// n days, across detectors. Used by the ops dashboard queries.
func (s *Store) AlertCountSince(ctx context.Context, propertyID string, since domain.Day) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM scout_alerts WHERE property_id = $1 AND date >= $2`,
		propertyID, since.String())
	if err != nil {
		return 0, fmt.Errorf("history: count alerts: %w", err)
	}
	return count, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
