package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutwatch/scout/internal/domain"
	"github.com/scoutwatch/scout/internal/pipeline"
	"github.com/scoutwatch/scout/internal/telemetry"
)

func newTestServer() *Server {
	return New(":0", telemetry.New(), zerolog.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLastRunBeforeAnyRun(t *testing.T) {
	s := newTestServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lastrun", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLastRunReturnsSummary(t *testing.T) {
	s := newTestServer()
	s.SetLastRun(&pipeline.RunSummary{
		ReferenceDate: domain.MustDay("2026-08-22"),
		TotalAlerts:   3,
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lastrun", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got pipeline.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.TotalAlerts)
	assert.Equal(t, "2026-08-22", got.ReferenceDate.String())
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	metrics := telemetry.New()
	metrics.SetPropertiesAnalyzed(42)
	s := New(":0", metrics, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scout_properties_analyzed 42")
}
