package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	session_id, access_key, source_name, session_date, date_source, club_tags,
	import_status, attempt_count, last_attempt_at, priority, error_message,
	display_name, session_type, tags_json, shot_count, discovered_at`

// SessionRepository handles discovered session persistence. Every mutation
// is a single atomic statement; persistence errors propagate to the caller.
type SessionRepository struct {
	db *PostgresDB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *PostgresDB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveDiscovered upserts a session by its portal ID and reports whether the
// row is new. An existing row only has its descriptive metadata refreshed
// (name, date, tags, access key); import_status and the post-import fields
// are never touched, so a session already imported can never regress here.
func (r *SessionRepository) SaveDiscovered(ctx context.Context, s *models.DiscoveredSession) (bool, error) {
	if s.SessionID == "" {
		return false, errors.New("session id is required")
	}

	tags, err := json.Marshal(nonNilTags(s.ClubTags))
	if err != nil {
		return false, fmt.Errorf("failed to encode club tags: %w", err)
	}

	dateSource := s.DateSource
	if dateSource == "" {
		dateSource = models.DateSourcePortal
	}

	query := `
		INSERT INTO discovered_sessions (
			session_id, access_key, source_name, session_date, date_source,
			club_tags, import_status, priority
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7)
		ON CONFLICT (session_id) DO UPDATE
		SET access_key   = EXCLUDED.access_key,
			source_name  = EXCLUDED.source_name,
			session_date = COALESCE(EXCLUDED.session_date, discovered_sessions.session_date),
			date_source  = CASE
				WHEN EXCLUDED.session_date IS NOT NULL THEN EXCLUDED.date_source
				ELSE discovered_sessions.date_source
			END,
			club_tags    = EXCLUDED.club_tags
		RETURNING (xmax = 0) AS inserted
	`

	var isNew bool
	err = r.db.Pool().QueryRow(ctx, query,
		s.SessionID,
		s.AccessKey,
		s.SourceName,
		s.SessionDate,
		dateSource,
		tags,
		s.Priority,
	).Scan(&isNew)
	if err != nil {
		return false, fmt.Errorf("failed to save discovered session: %w", err)
	}

	return isNew, nil
}

// GetByID retrieves a session by its portal ID.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.DiscoveredSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM discovered_sessions WHERE session_id = $1`

	row := r.db.Pool().QueryRow(ctx, query, sessionID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return s, nil
}

// PendingQuery filters and orders the pending session fetch.
type PendingQuery struct {
	Limit     int
	DateFrom  *time.Time
	DateTo    *time.Time
	TagFilter []string // OR-matched, case-insensitive, against each session's tag set
	Order     models.SessionOrder
}

// GetPending returns pending sessions ordered by priority descending, then
// session date in the configured direction. Undated sessions sort last.
func (r *SessionRepository) GetPending(ctx context.Context, q PendingQuery) ([]*models.DiscoveredSession, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + sessionColumns + ` FROM discovered_sessions WHERE import_status = 'pending'`)

	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.DateFrom != nil {
		sb.WriteString(" AND session_date >= " + arg(*q.DateFrom))
	}
	if q.DateTo != nil {
		sb.WriteString(" AND session_date <= " + arg(*q.DateTo))
	}
	if len(q.TagFilter) > 0 {
		lowered := make([]string, len(q.TagFilter))
		for i, t := range q.TagFilter {
			lowered[i] = strings.ToLower(t)
		}
		sb.WriteString(` AND EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(club_tags) AS tag
			WHERE LOWER(tag) = ANY(` + arg(lowered) + `)
		)`)
	}

	direction := "DESC"
	if q.Order == models.OrderOldestFirst {
		direction = "ASC"
	}
	sb.WriteString(" ORDER BY priority DESC, session_date " + direction + " NULLS LAST, session_id")

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}

	rows, err := r.db.Pool().Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.DiscoveredSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending sessions: %w", err)
	}

	return sessions, nil
}

// MarkImporting transitions a session to importing and records the attempt.
// Legal from pending, and from importing for in-place retries.
func (r *SessionRepository) MarkImporting(ctx context.Context, sessionID string, attempt int) error {
	query := `
		UPDATE discovered_sessions
		SET import_status = 'importing', attempt_count = $2, last_attempt_at = now()
		WHERE session_id = $1 AND import_status IN ('pending', 'importing')
	`
	return r.exec(ctx, query, sessionID, attempt)
}

// MarkImported finalizes a successful import with the classification output.
func (r *SessionRepository) MarkImported(ctx context.Context, sessionID string, meta models.ImportedMetadata) error {
	query := `
		UPDATE discovered_sessions
		SET import_status = 'imported',
			display_name  = $2,
			session_type  = $3,
			tags_json     = $4,
			shot_count    = $5,
			error_message = NULL
		WHERE session_id = $1 AND import_status = 'importing'
	`
	tagsJSON := meta.TagsJSON
	if tagsJSON == "" {
		tagsJSON = "[]"
	}
	return r.exec(ctx, query, sessionID, meta.DisplayName, meta.SessionType, tagsJSON, meta.ShotCount)
}

// MarkFailed records a failed import attempt.
func (r *SessionRepository) MarkFailed(ctx context.Context, sessionID, errorMessage string) error {
	query := `
		UPDATE discovered_sessions
		SET import_status = 'failed', error_message = $2
		WHERE session_id = $1 AND import_status IN ('pending', 'importing')
	`
	return r.exec(ctx, query, sessionID, errorMessage)
}

// MarkNeedsReview parks a session whose retry budget is exhausted.
func (r *SessionRepository) MarkNeedsReview(ctx context.Context, sessionID, errorMessage string) error {
	query := `
		UPDATE discovered_sessions
		SET import_status = 'needs_review', error_message = $2
		WHERE session_id = $1 AND import_status IN ('pending', 'importing', 'failed')
	`
	return r.exec(ctx, query, sessionID, errorMessage)
}

// MarkSkipped is the administrative pending -> skipped transition used by
// the dashboard, not by the pipeline.
func (r *SessionRepository) MarkSkipped(ctx context.Context, sessionID string) error {
	query := `
		UPDATE discovered_sessions
		SET import_status = 'skipped'
		WHERE session_id = $1 AND import_status = 'pending'
	`
	return r.exec(ctx, query, sessionID)
}

// ResetForRetry returns failed and needs_review sessions to pending, clearing
// their attempt counters and errors. A nil id list resets all of them.
// Returns the number of sessions reset.
func (r *SessionRepository) ResetForRetry(ctx context.Context, sessionIDs []string) (int64, error) {
	query := `
		UPDATE discovered_sessions
		SET import_status = 'pending', attempt_count = 0, error_message = NULL
		WHERE import_status IN ('failed', 'needs_review')
	`
	args := []interface{}{}
	if len(sessionIDs) > 0 {
		query += ` AND session_id = ANY($1)`
		args = append(args, sessionIDs)
	}

	result, err := r.db.Pool().Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset sessions for retry: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetDiscoveryStats aggregates the store for operator dashboards.
func (r *SessionRepository) GetDiscoveryStats(ctx context.Context) (*models.DiscoveryStats, error) {
	stats := &models.DiscoveryStats{ByStatus: make(map[models.ImportStatus]int)}

	rows, err := r.db.Pool().Query(ctx,
		`SELECT import_status, COUNT(*) FROM discovered_sessions GROUP BY import_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.ImportStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	err = r.db.Pool().QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE discovered_at >= now() - interval '7 days'),
			MIN(session_date),
			MAX(session_date)
		FROM discovered_sessions
	`).Scan(&stats.DiscoveredL7D, &stats.OldestDate, &stats.NewestDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query discovery aggregates: %w", err)
	}

	return stats, nil
}

// exec runs a guarded single-row update and maps a zero-row result onto the
// transition error.
func (r *SessionRepository) exec(ctx context.Context, query string, sessionID string, args ...interface{}) error {
	result, err := r.db.Pool().Exec(ctx, query, append([]interface{}{sessionID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", sessionID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", ErrIllegalTransition, sessionID)
	}
	return nil
}

// sessionRow is satisfied by both pgx.Row and pgx.Rows.
type sessionRow interface {
	Scan(dest ...interface{}) error
}

func scanSession(row sessionRow) (*models.DiscoveredSession, error) {
	var s models.DiscoveredSession
	var clubTags []byte
	var tagsJSON *string

	err := row.Scan(
		&s.SessionID,
		&s.AccessKey,
		&s.SourceName,
		&s.SessionDate,
		&s.DateSource,
		&clubTags,
		&s.ImportStatus,
		&s.AttemptCount,
		&s.LastAttemptAt,
		&s.Priority,
		&s.ErrorMessage,
		&s.DisplayName,
		&s.SessionType,
		&tagsJSON,
		&s.ShotCount,
		&s.DiscoveredAt,
	)
	if err != nil {
		return nil, err
	}

	if len(clubTags) > 0 {
		if err := json.Unmarshal(clubTags, &s.ClubTags); err != nil {
			return nil, fmt.Errorf("failed to decode club tags: %w", err)
		}
	}
	s.TagsJSON = tagsJSON

	return &s, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
