// Package analysis drives a run's items to terminal state: resolving its
// scope into an ordered item list, materializing per-item progress rows,
// and fanning each item through a semaphore-then-rate-limiter pipeline to
// the LLM client, the same two-tier-parallelism shape the teacher's
// internal/usecase/fetch.Service uses for content-fetch-then-summarize,
// generalized from a pair of channel semaphores to the shared adaptive
// limiter and concurrency semaphore packages.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/observability/metrics"
	"feedctl/internal/pkg/clock"
	"feedctl/internal/repository"
	"feedctl/internal/resilience/ratelimit"
	"feedctl/internal/resilience/semaphore"
	"feedctl/internal/usecase/classify"

	"golang.org/x/sync/errgroup"
)

// HaltChecker reports the governor's global emergency-halt bit.
type HaltChecker interface {
	Halted() bool
}

// CancelChecker reports whether a specific run has a pending cancellation.
type CancelChecker interface {
	IsCancelled(runID int64) bool
}

// Service drives runs to terminal state.
type Service struct {
	Items      repository.ItemRepository
	Runs       repository.AnalysisRunRepository
	RunItems   repository.RunItemRepository
	Analyses   repository.ItemAnalysisRepository
	Classifier classify.Classifier
	Sem        *semaphore.Semaphore
	Limiter    *ratelimit.Limiter
	Clock      clock.Clock
	Halt       HaltChecker
	Cancel     CancelChecker
	Config     Config

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(
	items repository.ItemRepository,
	runs repository.AnalysisRunRepository,
	runItems repository.RunItemRepository,
	analyses repository.ItemAnalysisRepository,
	classifier classify.Classifier,
	sem *semaphore.Semaphore,
	limiter *ratelimit.Limiter,
	cfg Config,
) *Service {
	if cfg.RunCeiling <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		Items:      items,
		Runs:       runs,
		RunItems:   runItems,
		Analyses:   analyses,
		Classifier: classifier,
		Sem:        sem,
		Limiter:    limiter,
		Clock:      clock.System{},
		Config:     cfg,
		stop:       make(chan struct{}),
	}
}

func (s *Service) halted() bool {
	return s.Halt != nil && s.Halt.Halted()
}

func (s *Service) cancelled(runID int64) bool {
	return s.Cancel != nil && s.Cancel.IsCancelled(runID)
}

// Execute drives one run from PENDING to a terminal or PAUSED state. It is
// meant to be launched in its own goroutine by whoever admitted the run
// (the governor); it blocks for the run's full duration.
func (s *Service) Execute(ctx context.Context, run *entity.AnalysisRun) {
	now := s.Clock.Now()
	if err := s.Runs.UpdateStatus(ctx, run.ID, entity.RunStatusRunning, now); err != nil {
		slog.Error("analysis: mark run running failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
		return
	}
	run.Status = entity.RunStatusRunning
	run.StartedAt = &now

	limit := run.Params.ItemLimit
	if run.Scope.Kind == entity.ScopeTimeRange {
		limit = 0
	}

	ids, err := s.resolveScope(ctx, run.Scope, limit)
	if err != nil {
		s.failRun(ctx, run, err)
		return
	}

	toAnalyze, _, err := partitionByAnalyzed(ctx, s.Analyses, ids, run.Params.OverrideExisting)
	if err != nil {
		s.failRun(ctx, run, err)
		return
	}
	metrics.RecordBatchSize(len(toAnalyze))

	if _, err := s.RunItems.CreateMissing(ctx, run.ID, toAnalyze); err != nil {
		s.failRun(ctx, run, err)
		return
	}

	counters, err := s.RunItems.CountByRunAndState(ctx, run.ID)
	if err != nil {
		s.failRun(ctx, run, err)
		return
	}
	if err := s.Runs.UpdateCounters(ctx, run.ID, counters, run.ActualCost); err != nil {
		slog.Warn("analysis: update counters failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
	}

	if counters.TotalItems == 0 {
		s.finish(ctx, run, 0, false)
		return
	}

	queued, err := s.RunItems.ListByRunAndStates(ctx, run.ID, entity.RunItemQueued)
	if err != nil {
		s.failRun(ctx, run, err)
		return
	}

	var (
		mu         sync.Mutex
		actualCost float64
		paused     bool
	)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, ri := range queued {
		if s.halted() || s.cancelled(run.ID) {
			break
		}
		ri := ri
		eg.Go(func() error {
			s.processItem(egCtx, run, ri, &mu, &actualCost, &paused)
			return nil
		})
	}
	_ = eg.Wait()

	s.finish(ctx, run, actualCost, paused)
}

func (s *Service) processItem(ctx context.Context, run *entity.AnalysisRun, ri *entity.RunItem, mu *sync.Mutex, actualCost *float64, paused *bool) {
	if !run.Params.OverrideExisting {
		if exists, err := s.Analyses.Exists(ctx, ri.ItemID); err == nil && exists {
			s.transition(ctx, run.ID, ri, entity.RunItemSkipped, "", 0, 0)
			return
		}
	}

	semCtx, semCancel := context.WithTimeout(ctx, s.Config.SemaphoreTimeout)
	err := s.Sem.Acquire(semCtx)
	semCancel()
	if err != nil {
		time.Sleep(s.Config.RequeueDelay)
		return // stays QUEUED, revisited on the next Execute pass
	}
	defer s.Sem.Release()

	limitCtx, limitCancel := context.WithTimeout(ctx, s.Config.LimiterTimeout)
	result, lerr := s.Limiter.Acquire(limitCtx, s.Config.LimiterTimeout)
	limitCancel()
	if lerr != nil || result == ratelimit.AcquireTimeout {
		mu.Lock()
		*paused = true
		mu.Unlock()
		return // stays QUEUED; run pauses for the limiter/breaker to recover
	}

	item, err := s.Items.Get(ctx, ri.ItemID)
	if err != nil {
		s.transition(ctx, run.ID, ri, entity.RunItemFailed, err.Error(), 0, 0)
		return
	}

	s.transition(ctx, run.ID, ri, entity.RunItemProcessing, "", 0, 0)

	start := time.Now()
	out, cerr := s.Classifier.Classify(ctx, item.Title, item.Content, run.Params.ModelTag)
	duration := time.Since(start)
	s.Limiter.RecordResult(cerr == nil)

	if cerr != nil {
		metrics.RecordLLMCall(run.Params.ModelTag, "error", duration)
		if errors.Is(cerr, classify.ErrBreakerOpen) {
			mu.Lock()
			*paused = true
			mu.Unlock()
			s.transition(ctx, run.ID, ri, entity.RunItemQueued, "", 0, 0)
			return
		}
		kind := classify.ErrorProviderError
		var typed *classify.ClassifyError
		if errors.As(cerr, &typed) {
			kind = typed.Kind
		}
		metrics.RecordError("analysis", string(kind))
		s.transition(ctx, run.ID, ri, entity.RunItemFailed, fmt.Sprintf("%s: %v", kind, cerr), 0, 0)
		return
	}
	metrics.RecordLLMCall(run.Params.ModelTag, "success", duration)
	metrics.RecordAnalysis(duration)

	analysis := &entity.ItemAnalysis{ItemID: item.ID, Payload: out.Payload, UpdatedAt: s.Clock.Now()}
	if err := s.Analyses.Upsert(ctx, analysis); err != nil {
		s.transition(ctx, run.ID, ri, entity.RunItemFailed, err.Error(), 0, 0)
		return
	}

	mu.Lock()
	*actualCost += out.Usage.CostUSD
	mu.Unlock()

	tokens := out.Usage.InputTokens + out.Usage.OutputTokens
	s.transition(ctx, run.ID, ri, entity.RunItemCompleted, "", tokens, out.Usage.CostUSD)
}

func (s *Service) transition(ctx context.Context, runID int64, ri *entity.RunItem, state entity.RunItemState, errMsg string, tokens int, cost float64) {
	now := s.Clock.Now()
	updated := *ri
	updated.State = state
	updated.Error = errMsg
	updated.Tokens = tokens
	updated.Cost = cost
	switch state {
	case entity.RunItemProcessing:
		updated.StartedAt = &now
	case entity.RunItemCompleted, entity.RunItemFailed, entity.RunItemSkipped, entity.RunItemCancelled:
		updated.CompletedAt = &now
	}
	if err := s.RunItems.TransitionTo(ctx, runID, ri.ItemID, &updated); err != nil {
		slog.Warn("analysis: transition run item failed",
			slog.Int64("run_id", runID), slog.Int64("item_id", ri.ItemID), slog.Any("error", err))
	}
}

func (s *Service) finish(ctx context.Context, run *entity.AnalysisRun, additionalCost float64, paused bool) {
	counters, err := s.RunItems.CountByRunAndState(ctx, run.ID)
	if err != nil {
		slog.Error("analysis: finish: count run items failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
		return
	}
	newActualCost := run.ActualCost + additionalCost
	if err := s.Runs.UpdateCounters(ctx, run.ID, counters, newActualCost); err != nil {
		slog.Warn("analysis: finish: update counters failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
	}

	if s.cancelled(run.ID) {
		return // governor owns the transition to CANCELLED
	}
	if paused || s.halted() {
		if err := s.Runs.UpdateStatus(ctx, run.ID, entity.RunStatusPaused, s.Clock.Now()); err != nil {
			slog.Warn("analysis: finish: pause run failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
		}
		return
	}
	if counters.Queued > 0 || counters.Processing > 0 {
		return // unfinished work remains; stays RUNNING for the next pass
	}

	status := entity.RunStatusCompleted
	if counters.TotalItems > 0 && counters.Failed == counters.TotalItems {
		status = entity.RunStatusFailed
	}
	if err := s.Runs.UpdateStatus(ctx, run.ID, status, s.Clock.Now()); err != nil {
		slog.Warn("analysis: finish: update run status failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
	}
}

func (s *Service) failRun(ctx context.Context, run *entity.AnalysisRun, cause error) {
	slog.Error("analysis: run failed before execution", slog.Int64("run_id", run.ID), slog.Any("error", cause))
	metrics.RecordError("analysis", "internal_error")
	if err := s.Runs.UpdateStatus(ctx, run.ID, entity.RunStatusFailed, s.Clock.Now()); err != nil {
		slog.Error("analysis: mark run failed failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
	}
}
