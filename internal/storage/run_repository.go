package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

// RunRepository handles backfill run persistence. A run row is owned
// exclusively by the runner that created it; there is no concurrent writer.
type RunRepository struct {
	db *PostgresDB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *PostgresDB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run row.
func (r *RunRepository) Create(ctx context.Context, run *models.BackfillRun) error {
	configJSON, errorLog, err := encodeRunJSON(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO backfill_runs (
			run_id, status, started_at, completed_at,
			sessions_total, sessions_processed, sessions_imported,
			sessions_skipped, sessions_failed, shots_imported,
			last_processed_id, last_checkpoint_at, error_log, config_snapshot
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		run.RunID,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.SessionsTotal,
		run.SessionsProcessed,
		run.SessionsImported,
		run.SessionsSkipped,
		run.SessionsFailed,
		run.ShotsImported,
		run.LastProcessedID,
		run.LastCheckpointAt,
		errorLog,
		configJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create backfill run: %w", err)
	}

	return nil
}

// GetByID loads a run, including its config snapshot, for resume.
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*models.BackfillRun, error) {
	query := `
		SELECT run_id, status, started_at, completed_at,
			   sessions_total, sessions_processed, sessions_imported,
			   sessions_skipped, sessions_failed, shots_imported,
			   last_processed_id, last_checkpoint_at, error_log, config_snapshot
		FROM backfill_runs
		WHERE run_id = $1
	`

	var run models.BackfillRun
	var errorLog, configJSON []byte

	err := r.db.Pool().QueryRow(ctx, query, runID).Scan(
		&run.RunID,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.SessionsTotal,
		&run.SessionsProcessed,
		&run.SessionsImported,
		&run.SessionsSkipped,
		&run.SessionsFailed,
		&run.ShotsImported,
		&run.LastProcessedID,
		&run.LastCheckpointAt,
		&errorLog,
		&configJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get backfill run: %w", err)
	}

	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &run.ErrorLog); err != nil {
			return nil, fmt.Errorf("failed to decode run error log: %w", err)
		}
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &run.Config); err != nil {
			return nil, fmt.Errorf("failed to decode run config snapshot: %w", err)
		}
	}

	return &run, nil
}

// Update persists the full run state. Called after every processed session
// and at checkpoints, so it carries every counter in one atomic write.
func (r *RunRepository) Update(ctx context.Context, run *models.BackfillRun) error {
	configJSON, errorLog, err := encodeRunJSON(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE backfill_runs
		SET status = $2, started_at = $3, completed_at = $4,
			sessions_total = $5, sessions_processed = $6, sessions_imported = $7,
			sessions_skipped = $8, sessions_failed = $9, shots_imported = $10,
			last_processed_id = $11, last_checkpoint_at = $12,
			error_log = $13, config_snapshot = $14
		WHERE run_id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		run.RunID,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.SessionsTotal,
		run.SessionsProcessed,
		run.SessionsImported,
		run.SessionsSkipped,
		run.SessionsFailed,
		run.ShotsImported,
		run.LastProcessedID,
		run.LastCheckpointAt,
		errorLog,
		configJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update backfill run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}

	return nil
}

// ListRecent returns the most recently started runs for the ops API.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*models.BackfillRun, error) {
	query := `SELECT run_id FROM backfill_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list backfill runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating backfill runs: %w", err)
	}

	runs := make([]*models.BackfillRun, 0, len(ids))
	for _, id := range ids {
		run, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, nil
}

func encodeRunJSON(run *models.BackfillRun) (configJSON, errorLog []byte, err error) {
	configJSON, err = json.Marshal(run.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode run config snapshot: %w", err)
	}

	log := run.ErrorLog
	if log == nil {
		log = []string{}
	}
	errorLog, err = json.Marshal(log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode run error log: %w", err)
	}

	return configJSON, errorLog, nil
}
