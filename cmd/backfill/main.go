// Package main provides the backfill CLI: a one-shot, resumable import of
// discovered sessions through the rate-limited pipeline.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/classifier"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/importer"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/logging"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/notify"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/ratelimit"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/runner"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/storage"
)

func main() {
	var (
		runID      = flag.String("run-id", "", "Resume the run with this ID, or create it if new")
		dateFrom   = flag.String("date-from", "", "Only sessions on or after this date (YYYY-MM-DD)")
		dateTo     = flag.String("date-to", "", "Only sessions on or before this date (YYYY-MM-DD)")
		tagFilter  = flag.String("tags", "", "Comma-separated club tags; sessions matching any are included")
		maxPerRun  = flag.Int("max-sessions", 0, "Stop after this many sessions (0 = no cap)")
		maxPerHour = flag.Int("max-per-hour", 0, "Hourly session cap (0 = no cap)")
		order      = flag.String("order", "", "Processing order: newest_first or oldest_first")
		fixedDelay = flag.Duration("fixed-delay", 0, "Fixed delay between sessions, bypassing the adaptive limiter")
		dryRun     = flag.Bool("dry-run", false, "Report what would be imported without importing")
		notifyDone = flag.Bool("notify", false, "Send a notification when the run finishes")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.NewLogger(logging.LevelInfo, logging.FormatText).Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("Backfill starting")

	postgres, err := storage.NewPostgresDB(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	limiter, err := ratelimit.New(&ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		MinDelay:          cfg.RateLimit.MinDelay,
		MaxJitter:         cfg.RateLimit.MaxJitter,
		BackoffMultiplier: cfg.RateLimit.BackoffMultiplier,
		MaxBackoff:        cfg.RateLimit.MaxBackoff,
	})
	if err != nil {
		log.Fatalf("Failed to create rate limiter: %v", err)
	}

	runConfig := cfg.RunConfig()
	runConfig.MaxSessionsPerRun = *maxPerRun
	runConfig.MaxSessionsPerHour = *maxPerHour
	runConfig.FixedDelay = *fixedDelay
	runConfig.DryRun = *dryRun
	runConfig.NotifyOnComplete = *notifyDone
	runConfig.NotifyOnError = *notifyDone
	if *order != "" {
		runConfig.Order = models.SessionOrder(*order)
	}
	if *tagFilter != "" {
		runConfig.TagFilter = strings.Split(*tagFilter, ",")
	}
	runConfig.DateFrom = parseDate(log, "date-from", *dateFrom)
	runConfig.DateTo = parseDate(log, "date-to", *dateTo)

	sessionRepo := storage.NewSessionRepository(postgres)
	runRepo := storage.NewRunRepository(postgres)

	b, err := runner.New(runner.Options{
		Sessions:   sessionRepo,
		Runs:       runRepo,
		Importer:   importer.NewClient(&cfg.Importer),
		Limiter:    limiter,
		Classifier: classifier.New(classifier.Options{}),
		Notifier:   buildNotifier(cfg, log),
		Logger:     log,
		OnProgress: func(run models.BackfillRun) {
			log.WithFields(map[string]interface{}{
				"run_id":    run.RunID,
				"processed": run.SessionsProcessed,
				"total":     run.SessionsTotal,
				"imported":  run.SessionsImported,
				"failed":    run.SessionsFailed,
			}).Info("checkpoint")
		},
	})
	if err != nil {
		log.Fatalf("Failed to build runner: %v", err)
	}

	// First signal pauses cooperatively; a second one aborts.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warn("Signal received, pausing after the session in flight")
		b.RequestPause()
		<-sigs
		log.Warn("Second signal received, aborting")
		cancel()
	}()

	run, err := b.Run(ctx, *runID, runConfig)
	if err != nil {
		log.Fatalf("Backfill run failed: %v", err)
	}

	log.WithFields(map[string]interface{}{
		"run_id":   run.RunID,
		"status":   run.Status,
		"imported": run.SessionsImported,
		"failed":   run.SessionsFailed,
		"skipped":  run.SessionsSkipped,
		"shots":    run.ShotsImported,
	}).Info("Backfill finished")

	if run.Status == models.RunStatusFailed {
		os.Exit(1)
	}
}

func parseDate(log *logging.Logger, name, value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		log.Fatalf("Invalid %s %q: %v", name, value, err)
	}
	return &parsed
}

func buildNotifier(cfg *config.Config, log *logging.Logger) runner.Notifier {
	targets := []notify.Notifier{notify.NewLogNotifier(log)}
	if cfg.Notify.SlackEnabled {
		slackNotifier, err := notify.NewSlackNotifier(&cfg.Notify)
		if err != nil {
			log.WithError(err).Warn("Slack notifier disabled")
		} else {
			targets = append(targets, slackNotifier)
		}
	}
	return notify.NewMulti(log, targets...)
}
