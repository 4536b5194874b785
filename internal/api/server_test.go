package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/storage"
)

type stubStats struct {
	stats *models.DiscoveryStats
	err   error
}

func (s *stubStats) Get(ctx context.Context) (*models.DiscoveryStats, error) {
	return s.stats, s.err
}

type stubRuns struct {
	runs map[string]*models.BackfillRun
}

func (s *stubRuns) GetByID(ctx context.Context, runID string) (*models.BackfillRun, error) {
	if run, ok := s.runs[runID]; ok {
		return run, nil
	}
	return nil, storage.ErrRunNotFound
}

func (s *stubRuns) ListRecent(ctx context.Context, limit int) ([]*models.BackfillRun, error) {
	var out []*models.BackfillRun
	for _, run := range s.runs {
		out = append(out, run)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type stubSessions struct {
	resetCalls [][]string
	skipErr    error
	skipped    []string
}

func (s *stubSessions) ResetForRetry(ctx context.Context, ids []string) (int64, error) {
	s.resetCalls = append(s.resetCalls, ids)
	return int64(len(ids)), nil
}

func (s *stubSessions) MarkSkipped(ctx context.Context, id string) error {
	if s.skipErr != nil {
		return s.skipErr
	}
	s.skipped = append(s.skipped, id)
	return nil
}

func newTestServer(stats *stubStats, runs *stubRuns, sessions *stubSessions) *Server {
	if stats == nil {
		stats = &stubStats{stats: &models.DiscoveryStats{}}
	}
	if runs == nil {
		runs = &stubRuns{runs: map[string]*models.BackfillRun{}}
	}
	if sessions == nil {
		sessions = &stubSessions{}
	}
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: "0"}
	return NewServer(cfg, stats, runs, sessions, nil)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(nil, nil, nil), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestStatsEndpoint(t *testing.T) {
	stats := &stubStats{stats: &models.DiscoveryStats{
		ByStatus: map[models.ImportStatus]int{models.StatusPending: 4},
		Total:    4,
	}}
	rec := doRequest(t, newTestServer(stats, nil, nil), http.MethodGet, "/api/v1/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var decoded models.DiscoveryStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, 4, decoded.Total)
	assert.Equal(t, 4, decoded.ByStatus[models.StatusPending])
}

func TestGetRun(t *testing.T) {
	runs := &stubRuns{runs: map[string]*models.BackfillRun{
		"run-1": {
			RunID:            "run-1",
			Status:           models.RunStatusCompleted,
			StartedAt:        time.Date(2026, time.May, 1, 8, 0, 0, 0, time.UTC),
			SessionsImported: 12,
		},
	}}
	server := newTestServer(nil, runs, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/runs/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var run models.BackfillRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, 12, run.SessionsImported)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRunsValidatesLimit(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/runs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/v1/runs?limit=5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetSessions(t *testing.T) {
	sessions := &stubSessions{}
	server := newTestServer(nil, nil, sessions)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/sessions/reset",
		resetRequest{SessionIDs: []string{"a", "b"}})

	require.Equal(t, http.StatusOK, rec.Code)
	var decoded resetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, int64(2), decoded.Reset)
	require.Len(t, sessions.resetCalls, 1)
	assert.Equal(t, []string{"a", "b"}, sessions.resetCalls[0])
}

func TestSkipSessionConflicts(t *testing.T) {
	sessions := &stubSessions{skipErr: storage.ErrIllegalTransition}
	server := newTestServer(nil, nil, sessions)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/sessions/s1/skip", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSkipSession(t *testing.T) {
	sessions := &stubSessions{}
	server := newTestServer(nil, nil, sessions)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/sessions/s1/skip", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s1"}, sessions.skipped)
}
