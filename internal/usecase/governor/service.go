// Package governor enforces run-level limits and queueing ahead of the
// analysis orchestrator: daily/hourly/concurrency budgets, per-feed caps,
// cancellation, and the global emergency-halt bit. It implements
// analysis.HaltChecker and analysis.CancelChecker so the orchestrator can
// observe both without importing this package.
package governor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/pkg/clock"
	"feedctl/internal/repository"
	"feedctl/internal/usecase/analysis"
)

// RunStartStatus is the outcome RequestRun reports for one admission
// decision.
type RunStartStatus string

const (
	StatusRunning RunStartStatus = "running"
	StatusQueued  RunStartStatus = "queued"
)

// RequestResult is what RequestRun returns on success (admitted or queued).
type RequestResult struct {
	RunID         int64
	Status        RunStartStatus
	QueuePosition int // 1-based; zero when Status is StatusRunning
}

// Service is the run governor.
type Service struct {
	Runs        repository.AnalysisRunRepository
	RunItems    repository.RunItemRepository
	Queue       repository.QueuedRunRepository
	FeedLimits  repository.FeedLimitsRepository
	Analysis    *analysis.Service
	Clock       clock.Clock
	Config      Config

	mu            sync.Mutex
	halted        bool
	cancelledRuns map[int64]bool
	activeRuns    int

	runCtx    context.Context
	runCancel context.CancelFunc

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(runs repository.AnalysisRunRepository, runItems repository.RunItemRepository, queue repository.QueuedRunRepository,
	feedLimits repository.FeedLimitsRepository, an *analysis.Service, cfg Config) *Service {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		Runs:          runs,
		RunItems:      runItems,
		Queue:         queue,
		FeedLimits:    feedLimits,
		Analysis:      an,
		Clock:         clock.System{},
		Config:        cfg,
		cancelledRuns: make(map[int64]bool),
		stop:          make(chan struct{}),
	}
}

// Halted implements analysis.HaltChecker.
func (g *Service) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

// IsCancelled implements analysis.CancelChecker.
func (g *Service) IsCancelled(runID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelledRuns[runID]
}

// Start begins the background queue-processing loop bound to a long-lived
// context, independent of any single HTTP request's context, so runs it
// admits keep executing after the admitting request returns.
func (g *Service) Start(ctx context.Context, interval time.Duration) {
	g.runCtx, g.runCancel = context.WithCancel(context.Background())
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-g.stop:
				return
			case <-ticker.C:
				g.ProcessQueue(g.runCtx)
			}
		}
	}()
}

// Stop ends the queue-processing loop and cancels any in-flight runs it
// launched.
func (g *Service) Stop() {
	close(g.stop)
	g.wg.Wait()
	if g.runCancel != nil {
		g.runCancel()
	}
}

// RequestRun validates and admits or queues a run request. Rejections
// (system halted, daily cap exhausted) never create a persisted run.
func (g *Service) RequestRun(ctx context.Context, scope entity.Scope, params entity.RunParams, trigger entity.RunTrigger) (RequestResult, error) {
	if g.Halted() {
		return RequestResult{}, ErrSystemHalted
	}

	if _, err := g.Analysis.Preview(ctx, scope, params); err != nil {
		return RequestResult{}, err
	}

	if err := g.checkDailyBudget(ctx, trigger); err != nil {
		return RequestResult{}, err
	}
	if err := g.checkFeedLimits(ctx, scope); err != nil {
		return RequestResult{}, err
	}

	now := g.Clock.Now()
	run := &entity.AnalysisRun{
		Scope:     scope,
		Params:    params,
		Status:    entity.RunStatusPending,
		Trigger:   trigger,
		ModelTag:  params.ModelTag,
		CreatedAt: now,
	}
	if err := g.Runs.Create(ctx, run); err != nil {
		return RequestResult{}, err
	}

	if g.hasConcurrencySlack() && g.hasHourlySlack(ctx) {
		g.launch(run)
		return RequestResult{RunID: run.ID, Status: StatusRunning}, nil
	}

	if err := g.Queue.Enqueue(ctx, &entity.QueuedRun{ID: run.ID, Scope: scope, Params: params, Trigger: trigger, EnqueuedAt: now}); err != nil {
		return RequestResult{}, err
	}
	position, err := g.queueLength(ctx)
	if err != nil {
		slog.Warn("governor: compute queue position failed", slog.Any("error", err))
	}
	return RequestResult{RunID: run.ID, Status: StatusQueued, QueuePosition: position}, nil
}

// Cancel sets the cancellation bit observed by the orchestrator, cancels
// any still-QUEUED run items, and marks the run CANCELLED.
func (g *Service) Cancel(ctx context.Context, runID int64) error {
	run, err := g.Runs.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status.IsTerminal() {
		return entity.ErrConflict
	}

	g.mu.Lock()
	g.cancelledRuns[runID] = true
	g.mu.Unlock()

	if err := g.Runs.SetCancelRequested(ctx, runID); err != nil {
		slog.Warn("governor: set cancel requested failed", slog.Int64("run_id", runID), slog.Any("error", err))
	}
	if _, err := g.RunItems.CancelQueued(ctx, runID); err != nil {
		slog.Warn("governor: cancel queued run items failed", slog.Int64("run_id", runID), slog.Any("error", err))
	}
	return g.Runs.UpdateStatus(ctx, runID, entity.RunStatusCancelled, g.Clock.Now())
}

// EmergencyHalt sets the global halt bit, drains the queue into its
// holding area, and blocks new RequestRun calls. Running runs pause at
// their next per-item check in the orchestrator.
func (g *Service) EmergencyHalt(ctx context.Context) error {
	g.mu.Lock()
	g.halted = true
	g.mu.Unlock()
	return g.Queue.HoldAll(ctx)
}

// EmergencyResume clears the halt bit and releases the holding area back
// into FIFO order.
func (g *Service) EmergencyResume(ctx context.Context) error {
	g.mu.Lock()
	g.halted = false
	g.mu.Unlock()
	return g.Queue.ReleaseAll(ctx)
}

func (g *Service) launch(run *entity.AnalysisRun) {
	g.mu.Lock()
	g.activeRuns++
	g.mu.Unlock()

	ctx := g.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		defer func() {
			g.mu.Lock()
			g.activeRuns--
			g.mu.Unlock()
		}()
		g.Analysis.Execute(ctx, run)
	}()
}

func (g *Service) hasConcurrencySlack() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeRuns < g.Config.MaxConcurrentRuns
}

func (g *Service) hasHourlySlack(ctx context.Context) bool {
	count, err := g.Runs.CountSince(ctx, g.Clock.Now().Add(-time.Hour))
	if err != nil {
		slog.Warn("governor: count runs since failed", slog.Any("error", err))
		return false
	}
	return count < g.Config.MaxRunsPerHour
}

func (g *Service) checkDailyBudget(ctx context.Context, trigger entity.RunTrigger) error {
	since := g.Clock.Now().Add(-24 * time.Hour)
	total, err := g.Runs.CountSince(ctx, since)
	if err != nil {
		return err
	}
	if total >= g.Config.MaxRunsPerDay {
		return ErrLimitExceeded
	}
	if trigger == entity.TriggerAuto {
		autoCount, err := g.Runs.CountByTriggerSince(ctx, entity.TriggerAuto, since)
		if err != nil {
			return err
		}
		if autoCount >= g.Config.MaxAutoRunsPerDay {
			return ErrLimitExceeded
		}
	}
	return nil
}

// checkFeedLimits rejects a run scoped to a single feed when that feed's
// emergency-stop flag is set, its daily analysis count or daily cost has
// hit its cap, or its monthly cost has hit its cap. Breaching a cost cap
// with AutoDisableOnBreach set persists EmergencyStop so subsequent
// requests short-circuit without re-running the aggregate queries.
func (g *Service) checkFeedLimits(ctx context.Context, scope entity.Scope) error {
	if scope.Kind != entity.ScopeFeeds || len(scope.FeedIDs) != 1 {
		return nil
	}
	feedID := scope.FeedIDs[0]
	limits, err := g.FeedLimits.Get(ctx, feedID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return nil
		}
		return err
	}
	if limits.EmergencyStop {
		return ErrLimitExceeded
	}

	now := g.Clock.Now()
	var dailyCount int
	var dailyCost float64
	if limits.DailyAnalyses != nil || limits.DailyCostUSD != nil || limits.AlertThresholdUSD != nil {
		dailyCount, dailyCost, err = g.RunItems.CountAndCostByFeedSince(ctx, feedID, now.Add(-24*time.Hour))
		if err != nil {
			return err
		}
	}
	if limits.DailyAnalyses != nil && dailyCount >= *limits.DailyAnalyses {
		return ErrLimitExceeded
	}
	if limits.DailyCostUSD != nil && dailyCost >= *limits.DailyCostUSD {
		g.breachFeedLimit(ctx, limits)
		return ErrLimitExceeded
	}
	if limits.AlertThresholdUSD != nil && dailyCost >= *limits.AlertThresholdUSD {
		slog.Warn("governor: feed daily cost crossed alert threshold",
			slog.Int64("feed_id", feedID), slog.Float64("daily_cost_usd", dailyCost),
			slog.Float64("alert_threshold_usd", *limits.AlertThresholdUSD))
	}

	if limits.MonthlyCostUSD != nil {
		_, monthlyCost, err := g.RunItems.CountAndCostByFeedSince(ctx, feedID, now.AddDate(0, 0, -30))
		if err != nil {
			return err
		}
		if monthlyCost >= *limits.MonthlyCostUSD {
			g.breachFeedLimit(ctx, limits)
			return ErrLimitExceeded
		}
	}
	return nil
}

// breachFeedLimit persists an emergency stop for the feed when its limits
// opt into auto-disable, so future calls reject at the cheap flag check
// above instead of recomputing the breached aggregate.
func (g *Service) breachFeedLimit(ctx context.Context, limits *entity.FeedLimits) {
	if !limits.AutoDisableOnBreach || limits.EmergencyStop {
		return
	}
	limits.EmergencyStop = true
	if err := g.FeedLimits.Upsert(ctx, limits); err != nil {
		slog.Warn("governor: auto-disable feed on limit breach failed",
			slog.Int64("feed_id", limits.FeedID), slog.Any("error", err))
	}
}

func (g *Service) queueLength(ctx context.Context) (int, error) {
	entries, err := g.Queue.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// QueueDepth reports the number of runs currently waiting in the queue, for
// the queue_depth gauge.
func (g *Service) QueueDepth(ctx context.Context) (int, error) {
	return g.queueLength(ctx)
}

// ActiveRuns reports the number of runs currently executing, for the
// active_items gauge.
func (g *Service) ActiveRuns() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activeRuns
}
