// Package main provides the worker daemon: scheduled discovery and backfill
// runs plus the operator HTTP API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/api"
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
		discoverSpec = flag.String("discover-cron", "15 * * * *", "Cron schedule for discovery passes")
		backfillSpec = flag.String("backfill-cron", "0 2 * * *", "Cron schedule for backfill runs")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.NewLogger(logging.LevelInfo, logging.FormatText).Fatalf("Failed to load configuration: %v", err)
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("Worker starting")

	postgres, err := storage.NewPostgresDB(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	redis, err := storage.NewRedisCache(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

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

	sessionRepo := storage.NewSessionRepository(postgres)
	runRepo := storage.NewRunRepository(postgres)
	statsCache := storage.NewStatsCache(redis, sessionRepo, storage.DefaultStatsTTL)

	notifier := buildNotifier(cfg, log)
	pipeline, err := runner.New(runner.Options{
		Sessions:   sessionRepo,
		Runs:       runRepo,
		Importer:   importer.NewClient(&cfg.Importer),
		Limiter:    limiter,
		Classifier: classifier.New(classifier.Options{}),
		Notifier:   notifier,
		Logger:     log,
	})
	if err != nil {
		log.Fatalf("Failed to build runner: %v", err)
	}

	source := importer.NewPortalSource(&cfg.Importer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled jobs never overlap; a slow backfill simply makes the next
	// tick a no-op.
	var busy sync.Mutex

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(*discoverSpec, func() {
		if !busy.TryLock() {
			log.Info("Skipping discovery, a job is already running")
			return
		}
		defer busy.Unlock()
		result, err := pipeline.Discover(ctx, source)
		if err != nil {
			log.WithError(err).Error("Scheduled discovery failed")
			return
		}
		if result.New > 0 {
			if err := statsCache.Invalidate(ctx); err != nil {
				log.WithError(err).Warn("Stats cache invalidation failed")
			}
		}
	}); err != nil {
		log.Fatalf("Invalid discover-cron %q: %v", *discoverSpec, err)
	}

	if _, err := scheduler.AddFunc(*backfillSpec, func() {
		if !busy.TryLock() {
			log.Info("Skipping backfill, a job is already running")
			return
		}
		defer busy.Unlock()

		runConfig := cfg.RunConfig()
		runConfig.NotifyOnComplete = true
		runConfig.NotifyOnError = true
		run, err := pipeline.Run(ctx, "", runConfig)
		if err != nil {
			log.WithError(err).Error("Scheduled backfill failed")
			return
		}
		if run.Status != models.RunStatusCompleted {
			log.WithField("status", run.Status).Warn("Scheduled backfill did not complete")
		}
		if err := statsCache.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("Stats cache invalidation failed")
		}
	}); err != nil {
		log.Fatalf("Invalid backfill-cron %q: %v", *backfillSpec, err)
	}

	server := api.NewServer(&cfg.Server, statsCache, runRepo, sessionRepo, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Ops API failed: %v", err)
		}
	}()

	scheduler.Start()
	log.WithFields(map[string]interface{}{
		"discover_cron": *discoverSpec,
		"backfill_cron": *backfillSpec,
	}).Info("Worker running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("Shutting down")
	pipeline.RequestPause()
	cancel()

	cronCtx := scheduler.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Ops API shutdown error")
	}
	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for scheduled jobs to stop")
	}
	log.Info("Worker stopped")
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
