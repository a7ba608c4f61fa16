// Package autopump batches newly ingested items from auto-analyze-enabled
// feeds into PendingAutoAnalysis entries and dispatches them through the
// run governor, the same debounce-channel-into-periodic-flush shape the
// `umputun-newscope` scheduler uses for its preferenceUpdateWorker,
// generalized from a single debounce timer to a per-feed batching buffer
// drained on a fixed cadence instead of on debounce.
package autopump

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/observability/metrics"
	"feedctl/internal/repository"
	"feedctl/internal/usecase/governor"
)

// Service is the auto-analysis pump. It implements repository.IntakeQueue.
type Service struct {
	Pending  repository.PendingAutoAnalysisRepository
	Analyses repository.ItemAnalysisRepository
	RunItems repository.RunItemRepository
	Runs     repository.AnalysisRunRepository
	Governor *governor.Service
	Config   Config

	intake chan repository.IntakeEntry

	mu      sync.Mutex
	buffers map[int64][]int64 // feed id -> buffered item ids awaiting a cut

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(pending repository.PendingAutoAnalysisRepository, analyses repository.ItemAnalysisRepository,
	runItems repository.RunItemRepository, runs repository.AnalysisRunRepository, gov *governor.Service, cfg Config) *Service {
	if cfg.CheckInterval <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		Pending:  pending,
		Analyses: analyses,
		RunItems: runItems,
		Runs:     runs,
		Governor: gov,
		Config:   cfg,
		intake:   make(chan repository.IntakeEntry, cfg.ChannelBufferSize),
		buffers:  make(map[int64][]int64),
		stop:     make(chan struct{}),
	}
}

// Enqueue implements repository.IntakeQueue. It never blocks the ingest
// path: if the channel is full the entry is dropped and logged, the same
// trade-off the rate limiter and semaphore packages make for bounded
// queues under load.
func (s *Service) Enqueue(feedID, itemID int64) {
	select {
	case s.intake <- repository.IntakeEntry{FeedID: feedID, ItemID: itemID}:
	default:
		slog.Warn("autopump: intake channel full, dropping entry",
			slog.Int64("feed_id", feedID), slog.Int64("item_id", itemID))
	}
}

// Start runs the intake drain, batch-cut, dispatch, and closure loops
// until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(4)
	go s.drainIntake(ctx)
	go s.cutLoop(ctx)
	go s.dispatchLoop(ctx)
	go s.closureLoop(ctx)
}

// Stop ends every background loop and waits for them to exit.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// drainIntake moves entries off the channel into the per-feed buffer as
// they arrive; the periodic cutLoop decides when a buffer becomes a batch.
func (s *Service) drainIntake(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case entry := <-s.intake:
			s.mu.Lock()
			s.buffers[entry.FeedID] = append(s.buffers[entry.FeedID], entry.ItemID)
			s.mu.Unlock()
		}
	}
}

// cutLoop periodically turns buffered per-feed item ids into
// PendingAutoAnalysis batches of at most MaxItemsPerRun items.
func (s *Service) cutLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Config.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.cutBatches(ctx)
		}
	}
}

func (s *Service) cutBatches(ctx context.Context) {
	s.mu.Lock()
	pending := s.buffers
	s.buffers = make(map[int64][]int64)
	s.mu.Unlock()

	for feedID, itemIDs := range pending {
		admitted := s.admissible(ctx, itemIDs)
		for len(admitted) > 0 {
			n := s.Config.MaxItemsPerRun
			if n > len(admitted) {
				n = len(admitted)
			}
			chunk := admitted[:n]
			admitted = admitted[n:]

			batch := &entity.PendingAutoAnalysis{
				FeedID:  feedID,
				ItemIDs: chunk,
				Status:  entity.PendingAutoAnalysisPending,
			}
			if err := s.Pending.Create(ctx, batch); err != nil {
				slog.Warn("autopump: create batch failed", slog.Int64("feed_id", feedID), slog.Any("error", err))
				continue
			}
			metrics.RecordBatchSize(len(chunk))
		}
	}
}

// admissible filters out item ids that already have an ItemAnalysis, are
// already queued in a non-terminal batch, or already have an active
// RunItem, per the pump's deduplication rule.
func (s *Service) admissible(ctx context.Context, itemIDs []int64) []int64 {
	out := make([]int64, 0, len(itemIDs))
	for _, id := range itemIDs {
		analyzed, err := s.Analyses.Exists(ctx, id)
		if err != nil {
			slog.Warn("autopump: check existing analysis failed", slog.Int64("item_id", id), slog.Any("error", err))
			continue
		}
		if analyzed {
			continue
		}
		inBatch, err := s.Pending.ItemInNonTerminalBatch(ctx, id)
		if err != nil {
			slog.Warn("autopump: check pending batch membership failed", slog.Int64("item_id", id), slog.Any("error", err))
			continue
		}
		if inBatch {
			continue
		}
		inRunItem, err := s.RunItems.ItemInActiveRunItem(ctx, id)
		if err != nil {
			slog.Warn("autopump: check active run item failed", slog.Int64("item_id", id), slog.Any("error", err))
			continue
		}
		if inRunItem {
			continue
		}
		out = append(out, id)
	}
	return out
}

// dispatchLoop periodically offers every PENDING batch to the governor.
func (s *Service) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Config.DispatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.dispatchPending(ctx)
		}
	}
}

func (s *Service) dispatchPending(ctx context.Context) {
	batches, err := s.Pending.ListByStatus(ctx, entity.PendingAutoAnalysisPending, 0)
	if err != nil {
		slog.Warn("autopump: list pending batches failed", slog.Any("error", err))
		return
	}
	for _, batch := range batches {
		scope := entity.Scope{Kind: entity.ScopeItems, ItemIDs: batch.ItemIDs}
		params := entity.RunParams{ModelTag: s.Config.ModelTag}

		result, err := s.Governor.RequestRun(ctx, scope, params, entity.TriggerAuto)
		if err != nil {
			slog.Warn("autopump: dispatch batch failed", slog.Int64("batch_id", batch.ID), slog.Any("error", err))
			continue
		}
		if err := s.Pending.AttachRun(ctx, batch.ID, result.RunID); err != nil {
			slog.Warn("autopump: attach run to batch failed", slog.Int64("batch_id", batch.ID), slog.Any("error", err))
		}
		if err := s.Pending.SetStatus(ctx, batch.ID, entity.PendingAutoAnalysisProcessing); err != nil {
			slog.Warn("autopump: mark batch processing failed", slog.Int64("batch_id", batch.ID), slog.Any("error", err))
		}
	}
}

// closureLoop periodically checks PROCESSING batches whose run has
// reached a terminal state and closes them out accordingly.
func (s *Service) closureLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.Config.ClosureInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.closeFinished(ctx)
		}
	}
}

func (s *Service) closeFinished(ctx context.Context) {
	batches, err := s.Pending.ListByStatus(ctx, entity.PendingAutoAnalysisProcessing, 0)
	if err != nil {
		slog.Warn("autopump: list processing batches failed", slog.Any("error", err))
		return
	}
	for _, batch := range batches {
		if batch.RunID == nil {
			continue
		}
		run, err := s.Runs.Get(ctx, *batch.RunID)
		if err != nil {
			slog.Warn("autopump: fetch batch run failed", slog.Int64("batch_id", batch.ID), slog.Int64("run_id", *batch.RunID), slog.Any("error", err))
			continue
		}
		if !run.Status.IsTerminal() {
			continue
		}
		status := entity.PendingAutoAnalysisCompleted
		if run.Status == entity.RunStatusFailed || run.Status == entity.RunStatusCancelled {
			status = entity.PendingAutoAnalysisFailed
		}
		if err := s.Pending.SetStatus(ctx, batch.ID, status); err != nil {
			slog.Warn("autopump: close batch failed", slog.Int64("batch_id", batch.ID), slog.Any("error", err))
		}
	}
}
