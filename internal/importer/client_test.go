package importer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/runner"
)

func serveImport(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithHTTP(srv.URL, srv.Client())
}

func sampleSession() *models.DiscoveredSession {
	date := time.Date(2026, time.April, 2, 10, 30, 0, 0, time.UTC)
	return &models.DiscoveredSession{
		SessionID:   "sess-1",
		AccessKey:   "key-1",
		SessionDate: &date,
	}
}

func TestImportSuccess(t *testing.T) {
	client := serveImport(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, importPath, r.URL.Path)

		var req importRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-1", req.SessionID)
		assert.Equal(t, "key-1", req.AccessKey)

		_ = json.NewEncoder(w).Encode(importResponse{
			ShotsImported: 58,
			ClubTags:      []string{"Driver", "7I"},
			SourceHint:    "Sim Round 18 holes",
		})
	})

	result, err := client.Import(context.Background(), sampleSession())
	require.NoError(t, err)
	assert.Equal(t, 58, result.ShotsImported)
	assert.Equal(t, []string{"Driver", "7I"}, result.ClubTags)
	assert.Equal(t, "Sim Round 18 holes", result.SourceHint)
}

func TestImportServerErrorIsRetryable(t *testing.T) {
	client := serveImport(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})

	_, err := client.Import(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Equal(t, runner.OutcomeRetryable, runner.ClassifyError(err))
	assert.Contains(t, err.Error(), "502")
}

func TestImportThrottlingIsRetryable(t *testing.T) {
	client := serveImport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(importResponse{Error: "slow down"})
	})

	_, err := client.Import(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Equal(t, runner.OutcomeRetryable, runner.ClassifyError(err))
	assert.Contains(t, err.Error(), "slow down")
}

func TestImportRejectionIsFatal(t *testing.T) {
	client := serveImport(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(importResponse{Error: "access key expired"})
	})

	_, err := client.Import(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Equal(t, runner.OutcomeFatal, runner.ClassifyError(err))
	assert.Contains(t, err.Error(), "access key expired")
}

func TestImportConnectionErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewClientWithHTTP(srv.URL, srv.Client())
	srv.Close()

	_, err := client.Import(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Equal(t, runner.OutcomeRetryable, runner.ClassifyError(err))
}
