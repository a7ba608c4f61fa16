package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	pgRepo "feedctl/internal/infra/adapter/persistence/postgres"
	"feedctl/internal/infra/db"
	"feedctl/internal/infra/fetcher"
	workerPkg "feedctl/internal/infra/worker"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"
	"feedctl/internal/template"
	"feedctl/internal/usecase/analysis"
	"feedctl/internal/usecase/autopump"
	"feedctl/internal/usecase/classify"
	"feedctl/internal/usecase/governor"
	"feedctl/internal/usecase/ingest"
	"feedctl/internal/usecase/scheduler"
	rlimit "feedctl/internal/resilience/ratelimit"
	"feedctl/internal/resilience/semaphore"
)

// Package main runs feedctl's background control loop: the feed
// scheduler's polling tick, the run governor's queue drain, the
// auto-analysis pump, and a stuck-run watchdog. Unlike cmd/api, this
// process owns every Start/Stop lifecycle and assumes a single running
// replica, the same single-writer assumption the teacher's own cron
// worker made for its crawl job.
func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("auto_pump_cron_schedule", workerConfig.AutoPumpCronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_watchdog_interval", workerConfig.RunWatchdogInterval),
		slog.Duration("run_watchdog_timeout", workerConfig.RunWatchdogTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	w := wireWorker(database)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startMetricsServer(ctx, logger)

	w.Scheduler.Start(ctx)
	w.Governor.Start(ctx, 5*time.Second)
	w.AutoPump.Start(ctx)
	w.BusinessMetrics.Start(ctx)

	watchdog := newRunWatchdog(w.Runs, *workerConfig, logger)
	watchdog.Start(ctx)

	pumpCron := startAutoPumpStatusCron(logger, workerMetrics, workerConfig, w.Pending)

	healthServer.SetReady(true)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")

	healthServer.SetReady(false)
	pumpCron.Stop()
	cancel()
	watchdog.Stop()
	w.Scheduler.Stop()
	w.Governor.Stop()
	w.AutoPump.Stop()
	w.BusinessMetrics.Stop()
	logger.Info("worker stopped")
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// worker holds every background service wireWorker constructs.
type worker struct {
	Scheduler      *scheduler.Service
	Governor       *governor.Service
	AutoPump       *autopump.Service
	BusinessMetrics *businessMetricsPoller
	Runs           repository.AnalysisRunRepository
	Pending        repository.PendingAutoAnalysisRepository
}

// wireWorker constructs the same repository/service graph cmd/api builds
// for its handlers, minus anything HTTP-specific, and with every
// background loop meant to be started.
func wireWorker(database *sql.DB) *worker {
	feeds := pgRepo.NewFeedRepo(database)
	fetchLogs := pgRepo.NewFetchLogRepo(database)
	feedHealth := pgRepo.NewFeedHealthRepo(database)
	items := pgRepo.NewItemRepo(database)
	templates := pgRepo.NewTemplateRepo(database)
	itemAnalyses := pgRepo.NewItemAnalysisRepo(database)
	runs := pgRepo.NewAnalysisRunRepo(database)
	runItems := pgRepo.NewRunItemRepo(database)
	queuedRuns := pgRepo.NewQueuedRunRepo(database)
	feedLimits := pgRepo.NewFeedLimitsRepo(database)
	pendingAuto := pgRepo.NewPendingAutoAnalysisRepo(database)

	var claudeClassifier *classify.ClaudeClassifier
	if key := os.Getenv("CLAUDE_API_KEY"); key != "" {
		claudeClassifier = classify.NewClaudeClassifier(key)
	}
	var openaiClassifier *classify.OpenAIClassifier
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		openaiClassifier = classify.NewOpenAIClassifier(key)
	}
	router := classify.NewRouter(claudeClassifier, openaiClassifier)

	sem := semaphore.New(10)
	limiter := rlimit.New(rlimit.DefaultConfig("analysis"))

	analysisSvc := analysis.New(items, runs, runItems, itemAnalyses, router, sem, limiter, analysis.DefaultConfig())

	govSvc := governor.New(runs, runItems, queuedRuns, feedLimits, analysisSvc, governor.DefaultConfig())
	analysisSvc.Halt = govSvc
	analysisSvc.Cancel = govSvc

	autoPump := autopump.New(pendingAuto, itemAnalyses, runItems, runs, govSvc, autopump.DefaultConfig())

	engine := template.NewEngine(template.NewUniversalExtractor())
	ingestSvc := ingest.New(items, templates, engine, autoPump, 8)

	feedFetch := fetcher.NewFeedFetcher(fetcher.DefaultConfig())
	pageFetch := fetcher.NewPageFetcher(fetcher.DefaultConfig())
	schedSvc := scheduler.New(feeds, fetchLogs, feedHealth, feedFetch, pageFetch, ingestSvc, fetcher.DefaultConfig(), scheduler.DefaultConfig())

	businessMetrics := newBusinessMetricsPoller(govSvc, analysisSvc, pendingAuto, items, itemAnalyses,
		claudeClassifier, openaiClassifier, feedFetch, pageFetch, slog.Default())

	return &worker{
		Scheduler:       schedSvc,
		Governor:        govSvc,
		AutoPump:        autoPump,
		BusinessMetrics: businessMetrics,
		Runs:            runs,
		Pending:         pendingAuto,
	}
}

// runWatchdog periodically force-fails analysis runs stuck in RUNNING
// past their configured ceiling, the dead-man's-switch role
// RunWatchdogInterval/RunWatchdogTimeout describe in WorkerConfig.
type runWatchdog struct {
	runs   repository.AnalysisRunRepository
	cfg    workerPkg.WorkerConfig
	logger *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func newRunWatchdog(runs repository.AnalysisRunRepository, cfg workerPkg.WorkerConfig, logger *slog.Logger) *runWatchdog {
	return &runWatchdog{runs: runs, cfg: cfg, logger: logger, stop: make(chan struct{})}
}

func (rw *runWatchdog) Start(ctx context.Context) {
	rw.wg.Add(1)
	go func() {
		defer rw.wg.Done()
		ticker := time.NewTicker(rw.cfg.RunWatchdogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-rw.stop:
				return
			case <-ticker.C:
				rw.sweep(ctx)
			}
		}
	}()
}

func (rw *runWatchdog) Stop() {
	close(rw.stop)
	rw.wg.Wait()
}

func (rw *runWatchdog) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-rw.cfg.RunWatchdogTimeout)
	stuck, err := rw.runs.ListRunningOlderThan(ctx, cutoff)
	if err != nil {
		rw.logger.Error("run watchdog: list stuck runs failed", slog.Any("error", err))
		return
	}
	for _, run := range stuck {
		if err := rw.runs.UpdateStatus(ctx, run.ID, entity.RunStatusFailed, time.Now()); err != nil {
			rw.logger.Error("run watchdog: force-fail run failed",
				slog.Int64("run_id", run.ID), slog.Any("error", err))
			continue
		}
		var startedAt time.Time
		if run.StartedAt != nil {
			startedAt = *run.StartedAt
		}
		rw.logger.Warn("run watchdog: force-failed stuck run",
			slog.Int64("run_id", run.ID), slog.Time("started_at", startedAt))
	}
}

// startAutoPumpStatusCron drives a periodic auto-pump status report on
// AutoPumpCronSchedule, the cron-dispatched job WorkerMetrics's
// CronJobRuns/Duration/FeedsProcessed gauges describe. The pump's own
// cut/dispatch/closure loops (internal/usecase/autopump) run continuously
// on their own interval timers regardless of this cron tick; this job
// only samples PENDING batch backlog for observability.
func startAutoPumpStatusCron(logger *slog.Logger, metrics *workerPkg.WorkerMetrics, cfg *workerPkg.WorkerConfig, pending repository.PendingAutoAnalysisRepository) *cron.Cron {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.AutoPumpCronSchedule, func() {
		reportAutoPumpStatus(logger, metrics, pending)
	})
	if err != nil {
		logger.Error("failed to add auto-pump status cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	return c
}

func reportAutoPumpStatus(logger *slog.Logger, metrics *workerPkg.WorkerMetrics, pending repository.PendingAutoAnalysisRepository) {
	start := time.Now()
	metrics.RecordJobRun("started")

	batches, err := pending.ListByStatus(context.Background(), entity.PendingAutoAnalysisPending, 0)
	if err != nil {
		logger.Error("auto-pump status report failed", slog.Any("error", err))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(start).Seconds())
		return
	}

	feedSet := make(map[int64]struct{}, len(batches))
	for _, b := range batches {
		feedSet[b.FeedID] = struct{}{}
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(start).Seconds())
	metrics.RecordFeedsProcessed(len(feedSet))
	metrics.RecordLastSuccess()

	logger.Info("auto-pump status",
		slog.Int("pending_batches", len(batches)),
		slog.Int("feeds_with_backlog", len(feedSet)))
}
