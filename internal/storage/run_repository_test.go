package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRunRepo(t *testing.T) *RunRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := config.LoadConfigOrDefaults().Postgres
	db, err := NewPostgresDB(&cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	return NewRunRepository(db)
}

func TestRunRoundTrip(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := testContext(t)

	from := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	run := &models.BackfillRun{
		RunID:     fmt.Sprintf("run-%d", time.Now().UnixNano()),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC().Truncate(time.Second),
		ErrorLog:  []string{},
		Config: models.RunConfig{
			DateFrom:           &from,
			TagFilter:          []string{"driver"},
			CheckpointInterval: 10,
			MaxRetries:         3,
			RetryDelayBase:     30 * time.Second,
			NormalizeClubs:     true,
			AutoTag:            true,
			Order:              models.OrderOldestFirst,
		},
	}
	require.NoError(t, repo.Create(ctx, run))

	// Simulate progress, a checkpoint, then a pause.
	run.SessionsTotal = 40
	run.SessionsProcessed = 12
	run.SessionsImported = 10
	run.SessionsFailed = 2
	run.ShotsImported = 480
	id := "sess-12"
	run.LastProcessedID = &id
	now := time.Now().UTC().Truncate(time.Second)
	run.LastCheckpointAt = &now
	run.Status = models.RunStatusPaused
	run.AppendError("session sess-7: portal timeout")
	require.NoError(t, repo.Update(ctx, run))

	loaded, err := repo.GetByID(ctx, run.RunID)
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusPaused, loaded.Status)
	assert.Equal(t, 12, loaded.SessionsProcessed)
	assert.Equal(t, 10, loaded.SessionsImported)
	assert.Equal(t, 2, loaded.SessionsFailed)
	assert.Equal(t, int64(480), loaded.ShotsImported)
	require.NotNil(t, loaded.LastProcessedID)
	assert.Equal(t, "sess-12", *loaded.LastProcessedID)
	assert.Equal(t, []string{"session sess-7: portal timeout"}, loaded.ErrorLog)

	// The config snapshot must survive the round trip intact; resume
	// depends on it.
	assert.Equal(t, models.OrderOldestFirst, loaded.Config.Order)
	assert.Equal(t, []string{"driver"}, loaded.Config.TagFilter)
	require.NotNil(t, loaded.Config.DateFrom)
	assert.True(t, from.Equal(*loaded.Config.DateFrom))
	assert.Equal(t, 30*time.Second, loaded.Config.RetryDelayBase)
}

func TestGetRunNotFound(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := testContext(t)

	_, err := repo.GetByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRecentRuns(t *testing.T) {
	repo := setupRunRepo(t)
	ctx := testContext(t)

	base := time.Now().UTC().Truncate(time.Second)
	var ids []string
	for i := 0; i < 3; i++ {
		run := &models.BackfillRun{
			RunID:     fmt.Sprintf("recent-%d-%d", base.UnixNano(), i),
			Status:    models.RunStatusCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			ErrorLog:  []string{},
			Config:    models.RunConfig{CheckpointInterval: 10, Order: models.OrderNewestFirst},
		}
		require.NoError(t, repo.Create(ctx, run))
		ids = append(ids, run.RunID)
	}

	runs, err := repo.ListRecent(ctx, 50)
	require.NoError(t, err)

	// Newest started_at first among the runs this test created.
	var mine []string
	for _, run := range runs {
		for _, id := range ids {
			if run.RunID == id {
				mine = append(mine, run.RunID)
			}
		}
	}
	require.Len(t, mine, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, mine)
}
