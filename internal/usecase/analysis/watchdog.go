package analysis

import (
	"context"
	"log/slog"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/observability/metrics"
)

// SweepInterval governs both the completion-checker safety net and the
// global run watchdog; both are cheap reads so they share one tick.
const SweepInterval = 15 * time.Second

// Start runs the completion sweep and watchdog loop until Stop is called
// or ctx is cancelled, the same ticker-plus-stop-channel shape as the
// feed scheduler's tick loop.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.SweepCompletions(ctx)
				s.RunWatchdog(ctx)
			}
		}
	}()
}

// Stop ends the sweep/watchdog loop and waits for it to exit.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// SweepCompletions marks RUNNING runs COMPLETED (or FAILED) when their
// terminal-item count equals total_items, catching runs whose last
// Execute pass exited without observing the final transition (e.g. the
// process restarted mid-run).
func (s *Service) SweepCompletions(ctx context.Context) {
	runs, err := s.Runs.List(ctx, true, 0)
	if err != nil {
		slog.Warn("analysis: sweep: list active runs failed", slog.Any("error", err))
		return
	}
	for _, run := range runs {
		if run.Status != entity.RunStatusRunning {
			continue
		}
		counters, err := s.RunItems.CountByRunAndState(ctx, run.ID)
		if err != nil {
			slog.Warn("analysis: sweep: count run items failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
			continue
		}
		if counters.TotalItems == 0 || counters.Queued > 0 || counters.Processing > 0 {
			continue
		}
		status := entity.RunStatusCompleted
		if counters.Failed == counters.TotalItems {
			status = entity.RunStatusFailed
		}
		if err := s.Runs.UpdateStatus(ctx, run.ID, status, s.Clock.Now()); err != nil {
			slog.Warn("analysis: sweep: update run status failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
		}
	}
}

// RunWatchdog force-fails any RUNNING run that started longer ago than
// Config.RunCeiling, so a stuck in-flight LLM call or crashed worker
// never leaves a run observably RUNNING forever.
func (s *Service) RunWatchdog(ctx context.Context) {
	cutoff := s.Clock.Now().Add(-s.Config.RunCeiling)
	runs, err := s.Runs.ListRunningOlderThan(ctx, cutoff)
	if err != nil {
		slog.Warn("analysis: watchdog: list stale runs failed", slog.Any("error", err))
		return
	}
	for _, run := range runs {
		slog.Warn("analysis: watchdog force-failing run past ceiling",
			slog.Int64("run_id", run.ID), slog.Duration("ceiling", s.Config.RunCeiling))
		metrics.RecordError("analysis", "watchdog_timeout")
		if err := s.Runs.UpdateStatus(ctx, run.ID, entity.RunStatusFailed, s.Clock.Now()); err != nil {
			slog.Warn("analysis: watchdog: update run status failed", slog.Int64("run_id", run.ID), slog.Any("error", err))
		}
	}
}
