package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avalia-integrity/internal/common/config"
	stderrors "avalia-integrity/internal/common/errors"
	"avalia-integrity/internal/common/logger"
	"avalia-integrity/internal/models"
)

type fakeDetector struct {
	single *models.Divergence
	report *models.DetectionReport
	err    error
}

func (f *fakeDetector) Run(context.Context, models.DivergenceType) (*models.Divergence, error) {
	return f.single, f.err
}

func (f *fakeDetector) RunAll(context.Context) *models.DetectionReport {
	return f.report
}

type fakeCorrector struct {
	got    *models.CorrectionRequest
	result *models.CorrectionResult
	err    error
}

func (f *fakeCorrector) Apply(_ context.Context, req *models.CorrectionRequest) (*models.CorrectionResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeHistory struct {
	got     models.HistoryFilter
	entries []models.HistoryEntry
}

func (f *fakeHistory) Query(_ context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, error) {
	f.got = filter
	return f.entries, nil
}

func newTestServer(t *testing.T, d Detector, c Corrector, h HistoryReader) *Server {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{Name: "avalia-integrity", Version: "test"},
		Server: config.ServerConfig{Port: 0, DetectionTimeout: 10},
	}
	return New(cfg, logger.NewNoOpLogger(), d, c, h, nil)
}

func doRequest(s *Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeDetector{}, &fakeCorrector{}, &fakeHistory{})
	w := doRequest(s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "avalia-integrity")
}

func TestHealth_DegradedWhenDatabaseDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Name: "avalia-integrity"}}
	s := New(cfg, logger.NewNoOpLogger(), &fakeDetector{}, &fakeCorrector{}, &fakeHistory{}, failingPinger{})

	w := doRequest(s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestDetect_All(t *testing.T) {
	report := &models.DetectionReport{
		Summary: models.DetectionSummary{Total: 3, Critical: 2, Warning: 1},
	}
	s := newTestServer(t, &fakeDetector{report: report}, &fakeCorrector{}, &fakeHistory{})

	w := doRequest(s, http.MethodPost, "/api/v1/integrity/detect", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.DetectionReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Summary.Total)
	assert.Equal(t, 2, got.Summary.Critical)
}

func TestDetect_SingleType(t *testing.T) {
	single := &models.Divergence{Type: models.TypeTurmasVazias, Total: 2}
	s := newTestServer(t, &fakeDetector{single: single}, &fakeCorrector{}, &fakeHistory{})

	w := doRequest(s, http.MethodPost, "/api/v1/integrity/detect?type=turmas_vazias", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "turmas_vazias")
}

func TestDetect_UnknownType(t *testing.T) {
	d := &fakeDetector{err: stderrors.NewUnknownDivergenceTypeError("nope")}
	s := newTestServer(t, d, &fakeCorrector{}, &fakeHistory{})

	w := doRequest(s, http.MethodPost, "/api/v1/integrity/detect?type=nope", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorrections_RequiresUserHeader(t *testing.T) {
	s := newTestServer(t, &fakeDetector{}, &fakeCorrector{}, &fakeHistory{})

	body, _ := json.Marshal(models.CorrectionRequest{Type: models.TypeTurmasVazias, FixAll: true})
	w := doRequest(s, http.MethodPost, "/api/v1/integrity/corrections", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCorrections_AttributesUserFromHeader(t *testing.T) {
	corrector := &fakeCorrector{result: &models.CorrectionResult{Success: true, Corrected: 1}}
	s := newTestServer(t, &fakeDetector{}, corrector, &fakeHistory{})

	body, _ := json.Marshal(map[string]interface{}{
		"type":   "turmas_vazias",
		"ids":    []int64{3},
		"user":   "forged", // payload identity must be ignored
	})
	w := doRequest(s, http.MethodPost, "/api/v1/integrity/corrections", body,
		map[string]string{"X-User": "maria"})

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, corrector.got)
	assert.Equal(t, "maria", corrector.got.User)
	assert.Equal(t, []int64{3}, corrector.got.IDs)
}

func TestCorrections_UnauthorizedFixMapsTo403(t *testing.T) {
	corrector := &fakeCorrector{err: stderrors.NewFixNotAuthorizedError("alunos_duplicados")}
	s := newTestServer(t, &fakeDetector{}, corrector, &fakeHistory{})

	body, _ := json.Marshal(models.CorrectionRequest{Type: models.TypeAlunosDuplicados, IDs: []int64{7}})
	w := doRequest(s, http.MethodPost, "/api/v1/integrity/corrections", body,
		map[string]string{"X-User": "maria"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHistory_ParsesFilters(t *testing.T) {
	hist := &fakeHistory{entries: []models.HistoryEntry{{ID: "abc-1"}}}
	s := newTestServer(t, &fakeDetector{}, &fakeCorrector{}, hist)

	w := doRequest(s, http.MethodGet,
		"/api/v1/integrity/history?type=medias_inconsistentes&entityId=42&limit=10&from=2026-01-01T00:00:00Z",
		nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, models.TypeMediasInconsistentes, hist.got.Type)
	assert.Equal(t, int64(42), hist.got.EntityID)
	assert.Equal(t, 10, hist.got.Limit)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), hist.got.From)
	assert.Contains(t, w.Body.String(), "abc-1")
}

func TestHistory_RejectsBadEntityID(t *testing.T) {
	s := newTestServer(t, &fakeDetector{}, &fakeCorrector{}, &fakeHistory{})
	w := doRequest(s, http.MethodGet, "/api/v1/integrity/history?entityId=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
