// Package runner orchestrates backfill runs: it drains the pending session
// queue through the rate limiter and the importer, classifies what comes
// back, and checkpoints its own state so an interrupted run resumes where
// it stopped.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/classifier"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/logging"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/storage"
)

// ImportResult is what a successful import reports back.
type ImportResult struct {
	ShotsImported int
	// ClubTags are the clubs actually seen in the imported data. When empty
	// the discovery-time tags are used for classification.
	ClubTags []string
	// SourceHint is free text from the import source, e.g. the portal's own
	// session title. Used as a classification override signal.
	SourceHint string
}

// Importer performs the import of one session into the shot store.
type Importer interface {
	Import(ctx context.Context, session *models.DiscoveredSession) (*ImportResult, error)
}

// SessionStore is the slice of the session repository the runner needs.
type SessionStore interface {
	SaveDiscovered(ctx context.Context, s *models.DiscoveredSession) (bool, error)
	GetPending(ctx context.Context, q storage.PendingQuery) ([]*models.DiscoveredSession, error)
	MarkImporting(ctx context.Context, sessionID string, attempt int) error
	MarkImported(ctx context.Context, sessionID string, meta models.ImportedMetadata) error
	MarkFailed(ctx context.Context, sessionID, errorMessage string) error
	MarkNeedsReview(ctx context.Context, sessionID, errorMessage string) error
}

// RunStore persists run state for checkpointing and resume.
type RunStore interface {
	Create(ctx context.Context, run *models.BackfillRun) error
	GetByID(ctx context.Context, runID string) (*models.BackfillRun, error)
	Update(ctx context.Context, run *models.BackfillRun) error
}

// RateLimiter paces portal-facing requests.
type RateLimiter interface {
	Acquire(ctx context.Context, tag string) (time.Duration, error)
	ReportSuccess()
	ReportError() time.Duration
}

// Notifier delivers run lifecycle notifications. Delivery is best effort;
// a notification failure never fails the run.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Options wires a Runner. Sessions, Runs and Importer are required.
type Options struct {
	Sessions   SessionStore
	Runs       RunStore
	Importer   Importer
	Limiter    RateLimiter
	Classifier *classifier.Classifier
	Notifier   Notifier
	Logger     *logging.Logger

	// OnProgress is invoked with a snapshot of the run at every checkpoint.
	OnProgress func(run models.BackfillRun)
}

// Runner executes backfill runs one at a time.
type Runner struct {
	sessions   SessionStore
	runs       RunStore
	importer   Importer
	limiter    RateLimiter
	classifier *classifier.Classifier
	notifier   Notifier
	log        *logging.Logger
	onProgress func(run models.BackfillRun)

	pauseRequested atomic.Bool
}

// New creates a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Sessions == nil {
		return nil, errors.New("runner: session store is required")
	}
	if opts.Runs == nil {
		return nil, errors.New("runner: run store is required")
	}
	if opts.Importer == nil {
		return nil, errors.New("runner: importer is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.NewLogger(logging.LevelInfo, logging.FormatJSON)
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classifier.New(classifier.Options{})
	}
	return &Runner{
		sessions:   opts.Sessions,
		runs:       opts.Runs,
		importer:   opts.Importer,
		limiter:    opts.Limiter,
		classifier: cls,
		notifier:   opts.Notifier,
		log:        log.WithField("component", "runner"),
		onProgress: opts.OnProgress,
	}, nil
}

// RequestPause asks the current run to stop after the session in flight.
// Safe to call from another goroutine, typically a signal handler.
func (r *Runner) RequestPause() {
	r.pauseRequested.Store(true)
}

// Run executes a backfill run to a terminal status. A non-empty runID that
// matches an existing paused run resumes it under its original config
// snapshot; otherwise a new run is created. The returned run reflects the
// final persisted state.
func (r *Runner) Run(ctx context.Context, runID string, cfg models.RunConfig) (*models.BackfillRun, error) {
	r.pauseRequested.Store(false)

	run, err := r.createOrResume(ctx, runID, cfg)
	if err != nil {
		return nil, err
	}
	log := r.log.WithField("run_id", run.RunID)

	pending, err := r.fetchPending(ctx, run)
	if err != nil {
		return r.finishFailed(ctx, run, fmt.Errorf("fetch pending sessions: %w", err))
	}
	run.SessionsTotal = run.SessionsProcessed + len(pending)
	if err := r.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("persist run start: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"pending":   len(pending),
		"processed": run.SessionsProcessed,
		"dry_run":   run.Config.DryRun,
	}).Info("backfill run started")

	hourWindow := time.Now()
	importedInHour := 0

	for _, session := range pending {
		if r.pauseRequested.Load() || ctx.Err() != nil {
			return r.finishPaused(ctx, run)
		}

		if run.Config.MaxSessionsPerHour > 0 && importedInHour >= run.Config.MaxSessionsPerHour {
			wait := time.Until(hourWindow.Add(time.Hour))
			log.WithField("wait", wait.String()).Info("hourly session cap reached")
			if err := sleepCtx(ctx, wait); err != nil {
				return r.finishPaused(ctx, run)
			}
			hourWindow = time.Now()
			importedInHour = 0
		}

		if err := r.wait(ctx, run.Config); err != nil {
			return r.finishPaused(ctx, run)
		}

		result := r.processSession(ctx, run, session)
		run.SessionsProcessed++
		id := session.SessionID
		run.LastProcessedID = &id

		switch result.kind {
		case sessionImported:
			run.SessionsImported++
			run.ShotsImported += int64(result.shots)
			importedInHour++
		case sessionSkipped:
			run.SessionsSkipped++
		case sessionFailed:
			run.SessionsFailed++
		}

		if run.SessionsProcessed%run.Config.CheckpointInterval == 0 {
			r.checkpoint(ctx, run)
		}
	}

	return r.finishCompleted(ctx, run)
}

func (r *Runner) createOrResume(ctx context.Context, runID string, cfg models.RunConfig) (*models.BackfillRun, error) {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 10
	}
	if cfg.Order == "" {
		cfg.Order = models.OrderNewestFirst
	}

	if runID != "" {
		existing, err := r.runs.GetByID(ctx, runID)
		switch {
		case err == nil:
			if existing.Status == models.RunStatusRunning || existing.Status == models.RunStatusPaused {
				// Resume under the persisted config so the run's behavior
				// cannot drift between interruptions.
				existing.Status = models.RunStatusRunning
				existing.CompletedAt = nil
				if err := r.runs.Update(ctx, existing); err != nil {
					return nil, fmt.Errorf("mark run resumed: %w", err)
				}
				return existing, nil
			}
			return nil, fmt.Errorf("run %s already finished with status %s", runID, existing.Status)
		case errors.Is(err, storage.ErrRunNotFound):
			// fall through and create it under the requested ID
		default:
			return nil, fmt.Errorf("load run %s: %w", runID, err)
		}
	}

	if runID == "" {
		runID = uuid.NewString()
	}
	run := &models.BackfillRun{
		RunID:     runID,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		ErrorLog:  []string{},
		Config:    cfg,
	}
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

func (r *Runner) fetchPending(ctx context.Context, run *models.BackfillRun) ([]*models.DiscoveredSession, error) {
	limit := 0
	if run.Config.MaxSessionsPerRun > 0 {
		limit = run.Config.MaxSessionsPerRun - run.SessionsProcessed
		if limit <= 0 {
			return nil, nil
		}
	}
	return r.sessions.GetPending(ctx, storage.PendingQuery{
		Limit:     limit,
		DateFrom:  run.Config.DateFrom,
		DateTo:    run.Config.DateTo,
		TagFilter: run.Config.TagFilter,
		Order:     run.Config.Order,
	})
}

// wait paces the next portal request. FixedDelay bypasses the adaptive
// limiter entirely, which operators use for overnight runs.
func (r *Runner) wait(ctx context.Context, cfg models.RunConfig) error {
	if cfg.FixedDelay > 0 || r.limiter == nil {
		return sleepCtx(ctx, cfg.FixedDelay)
	}
	_, err := r.limiter.Acquire(ctx, "import")
	return err
}

type sessionResultKind int

const (
	sessionImported sessionResultKind = iota
	sessionSkipped
	sessionFailed
)

type sessionResult struct {
	kind  sessionResultKind
	shots int
}

// processSession runs one session through import and classification,
// retrying transient failures in place. A panic in the importer is
// contained here so one pathological session cannot kill the run.
func (r *Runner) processSession(ctx context.Context, run *models.BackfillRun, session *models.DiscoveredSession) (result sessionResult) {
	log := r.log.WithFields(map[string]interface{}{
		"run_id":     run.RunID,
		"session_id": session.SessionID,
	})

	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("panic importing session %s: %v", session.SessionID, p)
			log.Error(msg)
			run.AppendError(msg)
			if !run.Config.DryRun {
				if err := r.sessions.MarkFailed(ctx, session.SessionID, msg); err != nil {
					log.WithError(err).Error("failed to record panic failure")
				}
			}
			result = sessionResult{kind: sessionFailed}
		}
	}()

	if run.Config.DryRun {
		// Report what would happen without touching session state or the
		// portal.
		log.WithField("source_name", session.SourceName).Info("dry run: would import session")
		return sessionResult{kind: sessionImported, shots: 0}
	}

	maxAttempts := run.Config.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := r.sessions.MarkImporting(ctx, session.SessionID, session.AttemptCount+attempt); err != nil {
			if errors.Is(err, storage.ErrIllegalTransition) {
				// Another writer already moved this session on. Common when
				// an operator skips sessions while a run is active.
				log.Info("session no longer pending, skipping")
				return sessionResult{kind: sessionSkipped}
			}
			lastErr = err
			break
		}

		imported, err := r.importer.Import(ctx, session)
		if err == nil {
			if r.limiter != nil {
				r.limiter.ReportSuccess()
			}
			return r.recordImported(ctx, log, run.Config, session, imported)
		}

		lastErr = err
		var penalty time.Duration
		if r.limiter != nil {
			penalty = r.limiter.ReportError()
		}

		if ClassifyError(err) == OutcomeFatal {
			log.WithError(err).Error("import failed permanently")
			break
		}

		log.WithError(err).WithFields(map[string]interface{}{
			"attempt": attempt,
			"penalty": penalty.String(),
		}).Warn("import attempt failed")

		if attempt < maxAttempts {
			delay := run.Config.RetryDelayBase * time.Duration(1<<(attempt-1))
			if err := sleepCtx(ctx, delay); err != nil {
				break
			}
		}
	}

	msg := "import failed"
	if lastErr != nil {
		msg = lastErr.Error()
	}
	run.AppendError(fmt.Sprintf("session %s: %s", session.SessionID, msg))
	if err := r.sessions.MarkNeedsReview(ctx, session.SessionID, msg); err != nil {
		log.WithError(err).Error("failed to park session for review")
	}
	return sessionResult{kind: sessionFailed}
}

func (r *Runner) recordImported(ctx context.Context, log *logging.Logger, cfg models.RunConfig, session *models.DiscoveredSession, imported *ImportResult) sessionResult {
	if imported == nil {
		imported = &ImportResult{}
	}

	tags := imported.ClubTags
	if len(tags) == 0 {
		tags = session.ClubTags
	}
	hint := imported.SourceHint
	if hint == "" {
		hint = session.SourceName
	}

	classification := r.classifier.Classify(tags, imported.ShotsImported, hint,
		session.SessionDate, cfg.NormalizeClubs, cfg.AutoTag)

	meta := models.ImportedMetadata{
		DisplayName: classification.DisplayName,
		SessionType: string(classification.Result.Category),
		TagsJSON:    classification.TagsJSON,
		ShotCount:   imported.ShotsImported,
	}
	if err := r.sessions.MarkImported(ctx, session.SessionID, meta); err != nil {
		log.WithError(err).Error("import succeeded but status write failed")
		return sessionResult{kind: sessionFailed}
	}

	log.WithFields(map[string]interface{}{
		"shots":        imported.ShotsImported,
		"session_type": classification.Result.Category,
		"display_name": classification.DisplayName,
	}).Info("session imported")

	return sessionResult{kind: sessionImported, shots: imported.ShotsImported}
}

func (r *Runner) checkpoint(ctx context.Context, run *models.BackfillRun) {
	now := time.Now().UTC()
	run.LastCheckpointAt = &now
	if err := r.runs.Update(ctx, run); err != nil {
		r.log.WithError(err).WithField("run_id", run.RunID).Error("checkpoint write failed")
	}
	if r.onProgress != nil {
		r.onProgress(*run)
	}
}

func (r *Runner) finishPaused(ctx context.Context, run *models.BackfillRun) (*models.BackfillRun, error) {
	run.Status = models.RunStatusPaused
	r.checkpoint(ctx, run)
	r.log.WithFields(map[string]interface{}{
		"run_id":    run.RunID,
		"processed": run.SessionsProcessed,
	}).Info("backfill run paused")
	return run, nil
}

func (r *Runner) finishCompleted(ctx context.Context, run *models.BackfillRun) (*models.BackfillRun, error) {
	now := time.Now().UTC()
	run.CompletedAt = &now

	// A run where every processed session failed is itself a failure;
	// something systemic is wrong and the operator should look.
	if run.SessionsProcessed > 0 && run.SessionsFailed == run.SessionsProcessed {
		run.Status = models.RunStatusFailed
	} else {
		run.Status = models.RunStatusCompleted
	}
	r.checkpoint(ctx, run)

	summary := fmt.Sprintf("run %s %s: %d processed, %d imported, %d failed, %d skipped, %d shots",
		run.RunID, run.Status, run.SessionsProcessed, run.SessionsImported,
		run.SessionsFailed, run.SessionsSkipped, run.ShotsImported)
	r.log.Info(summary)

	if run.Status == models.RunStatusFailed {
		r.notify(ctx, run.Config.NotifyOnError, "Backfill run failed", summary)
	} else {
		r.notify(ctx, run.Config.NotifyOnComplete, "Backfill run completed", summary)
	}
	return run, nil
}

func (r *Runner) finishFailed(ctx context.Context, run *models.BackfillRun, cause error) (*models.BackfillRun, error) {
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = models.RunStatusFailed
	run.AppendError(cause.Error())
	r.checkpoint(ctx, run)
	r.notify(ctx, run.Config.NotifyOnError, "Backfill run failed", cause.Error())
	return run, cause
}

func (r *Runner) notify(ctx context.Context, enabled bool, subject, body string) {
	if !enabled || r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, subject, body); err != nil {
		r.log.WithError(err).Warn("notification delivery failed")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
