package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "postgres"), time.Second, zerolog.Nop()), mock
}

func sampleRun() Run {
	return Run{
		ReferenceDate:      domain.MustDay("2026-08-22"),
		AnalysisDate:       domain.MustDay("2026-08-19"),
		GeneratedAt:        time.Date(2026, 8, 22, 6, 0, 0, 0, time.UTC),
		PropertiesAnalyzed: 50,
		PropertiesFailed:   1,
		TotalAlerts:        1,
		SuppressedAlerts:   0,
		Duration:           42 * time.Second,
		ExitCode:           0,
	}
}

func sampleAlert() domain.Alert {
	return domain.Alert{
		Detector:       domain.DetectorSpam,
		Priority:       domain.PriorityP1,
		PropertyID:     "314159",
		Date:           domain.MustDay("2026-08-19"),
		Dimension:      domain.DimensionGeography,
		DimensionValue: "RU",
		Metric:         domain.MetricSessions,
		ObservedValue:  2450,
		BaselineValue:  119,
		Delta:          1958.8,
		Severity:       domain.SeverityCritical,
		BusinessImpact: 100,
		Message:        "CRITICAL BOT TRAFFIC",
		Details:        map[string]any{"z_score": 110.9},
	}
}

func TestRecordRunCommitsRunAndAlerts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO scout_runs").
		WithArgs("2026-08-22", "2026-08-19", sqlmock.AnyArg(), 50, 1, 1, 0, int64(42000), 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO scout_alerts").
		WithArgs(int64(7), "spam", "P1", "314159", "2026-08-19",
			"geography", "RU", "sessions",
			2450.0, 119.0, 1958.8,
			"critical", 100, "CRITICAL BOT TRAFFIC", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.RecordRun(context.Background(), sampleRun(), []domain.Alert{sampleAlert()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunRollsBackOnAlertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO scout_runs").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO scout_alerts").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := store.RecordRun(context.Background(), sampleRun(), []domain.Alert{sampleAlert()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert alert")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunPropagatesBeginFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("server down"))

	err := store.RecordRun(context.Background(), sampleRun(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin")
}

func TestAlertCountSince(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("314159", "2026-08-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	n, err := store.AlertCountSince(context.Background(), "314159", domain.MustDay("2026-08-01"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
