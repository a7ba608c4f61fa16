package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pgRepo "feedctl/internal/infra/adapter/persistence/postgres"
	"feedctl/internal/infra/db"
	"feedctl/internal/infra/fetcher"
	"feedctl/internal/repository"
	"feedctl/pkg/config"
	"feedctl/pkg/ratelimit"

	"feedctl/internal/observability/metrics"
	"feedctl/internal/template"
	"feedctl/internal/usecase/analysis"
	"feedctl/internal/usecase/autopump"
	"feedctl/internal/usecase/classify"
	"feedctl/internal/usecase/governor"
	"feedctl/internal/usecase/ingest"
	"feedctl/internal/usecase/scheduler"
	rlimit "feedctl/internal/resilience/ratelimit"
	"feedctl/internal/resilience/semaphore"

	hhttp "feedctl/internal/handler/http"
	hanalysis "feedctl/internal/handler/http/analysis"
	hdiscovery "feedctl/internal/handler/http/discovery"
	hfeed "feedctl/internal/handler/http/feed"
	hitem "feedctl/internal/handler/http/item"
	"feedctl/internal/handler/http/middleware"
	"feedctl/internal/handler/http/requestid"
	hscheduler "feedctl/internal/handler/http/scheduler"
	"feedctl/pkg/security/csp"
)

// Package main wires feedctl's HTTP control plane: feed/item browsing,
// analysis-run lifecycle, the run governor, the feed scheduler, and the
// discovery surface. No auth stack — the API runs inside a trusted
// network; IP-based rate limiting and CSP still apply at the edge.
func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	app := wireApp(logger, database)

	runServer(logger, app, version)
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

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// app holds every long-lived component wireApp constructs, so runServer can
// start/stop the one background loop this process owns and build the HTTP
// handler from the rest. The feed scheduler's polling tick and the run
// governor's queue-drain tick are single-writer loops that belong to
// cmd/worker alone: this process calls into that same Scheduler/Governor
// machinery only synchronously, from HTTP handlers (FetchNow, RequestRun).
// AutoPump is the exception — its Start loop only drains entries this
// process's own handlers enqueued (a manual FetchNow's newly-ingested
// items), so each process that can enqueue also runs its own drain.
type app struct {
	Handler  http.Handler
	AutoPump *autopump.Service

	IPStore  *ratelimit.InMemoryRateLimitStore
	IPWindow time.Duration
}

// wireApp constructs every repository, service, and HTTP handler, and
// returns the assembled app ready for runServer to start.
func wireApp(logger *slog.Logger, database *sql.DB) *app {
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

	// Classification providers: a missing API key yields a nil entry in
	// the router, which classify.Router.resolve surfaces as a per-call
	// error rather than a startup failure, since a deployment may only
	// have one provider configured.
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

	// ingest.Service hands newly stored items from auto_analyze feeds to
	// the auto-pump's intake queue; it fans out item storage across
	// Parallelism goroutines the same way fetch.Service fanned out
	// content-fetch-then-summarize.
	engine := template.NewEngine(template.NewUniversalExtractor())
	ingestSvc := ingest.New(items, templates, engine, autoPump, 8)

	feedFetch := fetcher.NewFeedFetcher(fetcher.DefaultConfig())
	pageFetch := fetcher.NewPageFetcher(fetcher.DefaultConfig())
	schedSvc := scheduler.New(feeds, fetchLogs, feedHealth, feedFetch, pageFetch, ingestSvc, fetcher.DefaultConfig(), scheduler.DefaultConfig())

	mux := buildMux(database, feeds, items, itemAnalyses, runs, router, schedSvc, govSvc)

	ipStore, ipRateLimiter := buildIPRateLimiter(logger)
	handler := applyMiddleware(logger, mux, ipRateLimiter)

	var ipWindow time.Duration
	if rateLimitConfig, err := config.LoadRateLimitConfig(); err == nil {
		ipWindow = rateLimitConfig.DefaultIPWindow
	}

	return &app{
		Handler:  handler,
		AutoPump: autoPump,
		IPStore:  ipStore,
		IPWindow: ipWindow,
	}
}

// buildMux registers every route: public health/metrics/discovery
// endpoints plus the feed/item/analysis/scheduler control surface. There
// is no auth boundary to split public from private behind — every route
// is reachable the same way.
func buildMux(
	database *sql.DB,
	feeds repository.FeedRepository,
	items repository.ItemRepository,
	itemAnalyses repository.ItemAnalysisRepository,
	runs repository.AnalysisRunRepository,
	router *classify.Router,
	schedSvc *scheduler.Service,
	govSvc *governor.Service,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: getVersion()})
	mux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("/live", &hhttp.LiveHandler{})
	llmHealth := hhttp.NewLLMHealthHandler(router)
	mux.Handle("/health/llm", http.HandlerFunc(llmHealth.Health))
	mux.Handle("/ready/llm", http.HandlerFunc(llmHealth.Ready))
	mux.Handle("/metrics", hhttp.MetricsHandler())

	hfeed.Register(mux, feeds, schedSvc)
	hitem.Register(mux, items, itemAnalyses)
	hanalysis.Register(mux, runs, govSvc.Analysis, govSvc)
	hscheduler.Register(mux, schedSvc)
	hdiscovery.Register(mux)

	return mux
}

// buildIPRateLimiter loads rate-limit configuration and, if enabled,
// returns a ready-to-wrap IPRateLimiter plus its backing store for
// lifecycle management. Auth-independent: no JWT/user-tier limiter is
// built since this process carries no auth stack.
func buildIPRateLimiter(logger *slog.Logger) (*ratelimit.InMemoryRateLimitStore, *middleware.IPRateLimiter) {
	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if !rateLimitConfig.Enabled {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
		return nil, nil
	}

	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (secure mode, proxy headers ignored)")
	}

	ipStore := ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
		MaxKeys: rateLimitConfig.MaxActiveKeys,
	})

	algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
	rlMetrics := ratelimit.NewPrometheusMetrics()
	circuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
		FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
		RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
	})

	ipRateLimiter := middleware.NewIPRateLimiter(
		middleware.IPRateLimiterConfig{
			Limit:   rateLimitConfig.DefaultIPLimit,
			Window:  rateLimitConfig.DefaultIPWindow,
			Enabled: true,
		},
		ipExtractor,
		ipStore,
		algorithm,
		rlMetrics,
		circuitBreaker,
	)

	logger.Info("rate limiting initialized",
		slog.Bool("enabled", true),
		slog.Int("ip_limit", rateLimitConfig.DefaultIPLimit),
		slog.Duration("ip_window", rateLimitConfig.DefaultIPWindow),
		slog.Int("max_keys", rateLimitConfig.MaxActiveKeys),
	)

	return ipStore, ipRateLimiter
}

// applyMiddleware wraps the handler with middleware chain.
// Middleware order: CORS → Request ID → IP Rate Limit → Recovery → Logging → Body Limit → CSP → Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler, ipRateLimiter *middleware.IPRateLimiter) http.Handler {
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}
	corsConfig.Logger = &middleware.SlogAdapter{Logger: logger}

	logger.Info("CORS enabled",
		slog.Int("allowed_origins_count", len(corsConfig.Validator.GetAllowedOrigins())),
		slog.Any("allowed_origins", corsConfig.Validator.GetAllowedOrigins()),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Any("allowed_headers", corsConfig.AllowedHeaders),
		slog.Int("max_age", corsConfig.MaxAge))

	cspConfig, err := config.LoadCSPConfig()
	if err != nil {
		logger.Error("failed to load CSP configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var cspMiddleware func(http.Handler) http.Handler
	if cspConfig.Enabled {
		cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
			Enabled:       true,
			DefaultPolicy: csp.StrictPolicy(),
			ReportOnly:    cspConfig.ReportOnly,
		})
		cspMiddleware = cspMW.Middleware()
		logger.Info("CSP enabled", slog.Bool("report_only", cspConfig.ReportOnly))
	} else {
		cspMiddleware = func(next http.Handler) http.Handler { return next }
		logger.Warn("CSP is disabled")
	}

	middlewareChain := handler
	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = cspMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(1 << 20)(middlewareChain) // 1MB limit
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)

	if ipRateLimiter != nil {
		middlewareChain = ipRateLimiter.Middleware()(middlewareChain)
	}

	middlewareChain = requestid.Middleware(middlewareChain)
	middlewareChain = middleware.CORS(*corsConfig)(middlewareChain)

	return middlewareChain
}

// runServer starts background services and the HTTP server, and handles
// graceful shutdown of both on SIGINT/SIGTERM.
func runServer(logger *slog.Logger, a *app, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.AutoPump.Start(ctx)

	cleanupCfg := hhttp.LoadCleanupConfigFromEnv()
	if a.IPStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, a.IPStore, cleanupCfg.Interval, a.IPWindow, "ip")
		logger.Info("IP rate limit cleanup started",
			slog.Duration("interval", cleanupCfg.Interval),
			slog.Duration("window", a.IPWindow))
	}

	metrics.RecordBuildInfo(version)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting", slog.String("addr", ":8080"), slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()
	a.AutoPump.Stop()
	logger.Debug("auto-pump drain loop stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
