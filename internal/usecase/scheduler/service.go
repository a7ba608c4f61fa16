// Package scheduler keeps due feeds flowing through the fetcher without a
// thundering herd, without stalling on slow feeds, and without hot-looping
// a failing one. Modeled on the `umputun-newscope` scheduler's
// ticker-driven, errgroup.SetLimit-bounded feed update worker.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/infra/fetcher"
	"feedctl/internal/observability/metrics"
	"feedctl/internal/repository"
	"feedctl/internal/template"
	"feedctl/internal/usecase/ingest"

	"golang.org/x/sync/errgroup"
)

// FeedFetcher retrieves and parses a feed URL into raw items.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]ingest.RawItem, error)
}

// PageFetcher retrieves a single item's page for template extraction.
type PageFetcher interface {
	FetchPage(ctx context.Context, urlStr string) (*template.Document, error)
}

// Ingester stores raw items, deduping and enrolling for auto-analysis.
type Ingester interface {
	Ingest(ctx context.Context, feed *entity.Feed, raws []ingest.RawItem) (ingest.Stats, error)
}

type inFlight struct {
	feedID    int64
	startedAt time.Time
	cancel    context.CancelFunc
}

// Service is the feed scheduler.
type Service struct {
	Feeds      repository.FeedRepository
	FetchLogs  repository.FetchLogRepository
	Health     repository.FeedHealthRepository
	FeedFetch  FeedFetcher
	PageFetch  PageFetcher
	Ingest     Ingester
	FetchCfg   fetcher.FetchConfig
	Config     Config

	mu       sync.Mutex
	inflight map[int64]*inFlight
	paused   bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(feeds repository.FeedRepository, fetchLogs repository.FetchLogRepository, health repository.FeedHealthRepository,
	feedFetch FeedFetcher, pageFetch PageFetcher, ing Ingester, fetchCfg fetcher.FetchConfig, cfg Config) *Service {
	if cfg.TickInterval <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		Feeds:     feeds,
		FetchLogs: fetchLogs,
		Health:    health,
		FeedFetch: feedFetch,
		PageFetch: pageFetch,
		Ingest:    ing,
		FetchCfg:  fetchCfg,
		Config:    cfg,
		inflight:  make(map[int64]*inFlight),
		stop:      make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.Config.TickInterval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop signals the tick loop to exit and waits for it.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// Tick selects due feeds and dispatches each to the fetcher pool, bounded
// by MaxConcurrentFetches. It also reaps any stale in-flight fetch before
// selecting new work.
func (s *Service) Tick(ctx context.Context) {
	s.reapStale(ctx)

	if s.isPaused() {
		return
	}

	feeds, err := s.Feeds.ListDue(ctx, time.Now(), s.Config.DueBatchSize)
	if err != nil {
		slog.Error("scheduler: list due feeds failed", slog.Any("error", err))
		return
	}
	if len(feeds) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Config.MaxConcurrentFetches)

	for _, feed := range feeds {
		feed := feed
		if s.isInFlight(feed.ID) {
			continue
		}
		g.Go(func() error {
			s.fetchOne(gctx, feed)
			return nil
		})
	}
	_ = g.Wait()
}

// FetchNow dispatches a single feed for an immediate, out-of-band fetch,
// bypassing NextFetchAt. It returns entity.ErrConflict if the feed already
// has a fetch in flight, so a manually-triggered fetch never races the
// scheduler's own tick for the same feed.
func (s *Service) FetchNow(ctx context.Context, feedID int64) error {
	if s.isInFlight(feedID) {
		return entity.ErrConflict
	}
	feed, err := s.Feeds.Get(ctx, feedID)
	if err != nil {
		return err
	}
	s.fetchOne(ctx, feed)
	return nil
}

func (s *Service) fetchOne(ctx context.Context, feed *entity.Feed) {
	fetchCtx, cancel := context.WithCancel(ctx)
	started := time.Now()
	s.markInFlight(feed.ID, started, cancel)
	defer func() {
		cancel()
		s.clearInFlight(feed.ID)
	}()

	raws, fetchErr := s.FeedFetch.Fetch(fetchCtx, feed.SourceURL)

	outcome := entity.FetchOutcomeSuccess
	var errMsg string
	itemsFound := len(raws)
	itemsNew := 0

	if fetchErr != nil {
		outcome = classifyOutcome(fetchErr)
		errMsg = fetchErr.Error()
		metrics.RecordError("scheduler", string(outcome))
	} else {
		if s.FetchCfg.Enabled && s.PageFetch != nil {
			s.enrichShortItems(fetchCtx, raws)
		}
		stats, err := s.Ingest.Ingest(fetchCtx, feed, raws)
		if err != nil {
			outcome = entity.FetchOutcomeError
			errMsg = err.Error()
		} else {
			itemsNew = int(stats.Inserted)
		}
	}

	s.recordOutcome(ctx, feed, outcome, itemsFound, itemsNew, errMsg, started)
}

// enrichShortItems fetches the secondary page for any item whose inline
// content is shorter than the configured threshold, attaching the result
// as raws[i].Doc for template extraction. One item's fetch failure does
// not affect the others; it simply ingests with only the inline content.
func (s *Service) enrichShortItems(ctx context.Context, raws []ingest.RawItem) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, 4)

	for i := range raws {
		if len(raws[i].Content) >= s.FetchCfg.Threshold || raws[i].Link == "" {
			continue
		}
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			doc, err := s.PageFetch.FetchPage(ctx, raws[i].Link)
			if err != nil {
				slog.Debug("scheduler: secondary page fetch failed",
					slog.String("link", raws[i].Link), slog.Any("error", err))
				return
			}
			raws[i].Doc = doc
		}()
	}
	wg.Wait()
}

func (s *Service) recordOutcome(ctx context.Context, feed *entity.Feed, outcome entity.FetchOutcome, itemsFound, itemsNew int, errMsg string, started time.Time) {
	completed := time.Now()

	log := &entity.FetchLog{
		FeedID:         feed.ID,
		StartedAt:      started,
		CompletedAt:    completed,
		Outcome:        outcome,
		ItemsFound:     itemsFound,
		ItemsNew:       itemsNew,
		ErrorMessage:   errMsg,
		ResponseTimeMs: completed.Sub(started).Milliseconds(),
	}
	if err := s.FetchLogs.Create(ctx, log); err != nil {
		slog.Warn("scheduler: record fetch log failed", slog.Any("error", err))
	}

	success := outcome == entity.FetchOutcomeSuccess
	consecutiveFailures := feed.ConsecutiveFailures
	if success {
		consecutiveFailures = 0
	} else {
		consecutiveFailures++
	}

	nextFetch := completed.Add(s.Config.nextInterval(feed.BaseIntervalMinutes, consecutiveFailures, success))
	status := feed.Status
	if consecutiveFailures >= entity.FeedFailureThreshold {
		status = entity.FeedStatusError
	} else if status == entity.FeedStatusError {
		status = entity.FeedStatusActive
	}

	if err := s.Feeds.RecordFetchOutcome(ctx, feed.ID, nextFetch, consecutiveFailures, status, completed); err != nil {
		slog.Warn("scheduler: record fetch outcome failed", slog.Int64("feed_id", feed.ID), slog.Any("error", err))
	}

	metrics.RecordFeedFetch(feed.ID, string(outcome), started.Sub(feed.NextFetchAt))
	s.updateHealth(ctx, feed.ID, outcome, log.ResponseTimeMs, completed)
}

func (s *Service) updateHealth(ctx context.Context, feedID int64, outcome entity.FetchOutcome, responseMs int64, at time.Time) {
	health, err := s.Health.Get(ctx, feedID)
	if err != nil || health == nil {
		health = &entity.FeedHealth{FeedID: feedID}
	}
	if outcome == entity.FetchOutcomeSuccess {
		health.LastSuccessAt = &at
		health.ConsecutiveFailures = 0
	} else {
		health.LastFailureAt = &at
		health.ConsecutiveFailures++
	}
	health.AvgResponseTimeMs = (health.AvgResponseTimeMs + float64(responseMs)) / 2
	health.UpdatedAt = at
	if err := s.Health.Upsert(ctx, health); err != nil {
		slog.Warn("scheduler: upsert feed health failed", slog.Int64("feed_id", feedID), slog.Any("error", err))
	}
}

// reapStale abandons any in-flight fetch older than StaleTimeout, counting
// it as TIMEOUT and releasing its slot.
func (s *Service) reapStale(ctx context.Context) {
	now := time.Now()
	var stale []*inFlight

	s.mu.Lock()
	for _, f := range s.inflight {
		if now.Sub(f.startedAt) > s.Config.StaleTimeout {
			stale = append(stale, f)
		}
	}
	s.mu.Unlock()

	for _, f := range stale {
		f.cancel()
		slog.Warn("scheduler: abandoning stale fetch", slog.Int64("feed_id", f.feedID), slog.Duration("age", now.Sub(f.startedAt)))
	}
}

func (s *Service) markInFlight(feedID int64, started time.Time, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[feedID] = &inFlight{feedID: feedID, startedAt: started, cancel: cancel}
}

func (s *Service) clearInFlight(feedID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, feedID)
}

func (s *Service) isInFlight(feedID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[feedID]
	return ok
}

func (s *Service) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Pause stops tick() from dispatching new fetches. If feedID is nil, every
// feed is paused; otherwise only the named feed.
func (s *Service) Pause(ctx context.Context, feedID *int64) error {
	if feedID == nil {
		s.mu.Lock()
		s.paused = true
		s.mu.Unlock()
		return s.Feeds.SetStatusAll(ctx, entity.FeedStatusPaused)
	}
	return s.Feeds.SetStatus(ctx, *feedID, entity.FeedStatusPaused)
}

// Resume reverses Pause.
func (s *Service) Resume(ctx context.Context, feedID *int64) error {
	if feedID == nil {
		s.mu.Lock()
		s.paused = false
		s.mu.Unlock()
		return s.Feeds.SetStatusAll(ctx, entity.FeedStatusActive)
	}
	return s.Feeds.SetStatus(ctx, *feedID, entity.FeedStatusActive)
}

// SetInterval updates the base fetch interval for one feed, or every feed
// when feedID is nil.
func (s *Service) SetInterval(ctx context.Context, feedID *int64, minutes int) error {
	if minutes < 5 || minutes > 1440 {
		return fmt.Errorf("scheduler: interval must be between 5 and 1440 minutes, got %d", minutes)
	}
	if feedID == nil {
		return s.Feeds.SetIntervalAll(ctx, minutes)
	}
	return s.Feeds.SetInterval(ctx, *feedID, minutes)
}

// Heartbeat reports liveness for GET /scheduler/heartbeat.
type Heartbeat struct {
	Timestamp   time.Time
	ActiveCount int
	QueueDepth  int
	Upcoming    []UpcomingFeed
}

type UpcomingFeed struct {
	FeedID      int64
	NextFetchAt time.Time
}

// Heartbeat returns current liveness and the next N upcoming feeds.
func (s *Service) Heartbeat(ctx context.Context, topN int) (Heartbeat, error) {
	s.mu.Lock()
	active := len(s.inflight)
	s.mu.Unlock()

	feeds, err := s.Feeds.List(ctx)
	if err != nil {
		return Heartbeat{}, fmt.Errorf("scheduler: heartbeat: list feeds: %w", err)
	}

	due, err := s.Feeds.ListDue(ctx, time.Now().Add(s.Config.MaxInterval), topN)
	if err != nil {
		return Heartbeat{}, fmt.Errorf("scheduler: heartbeat: list due: %w", err)
	}

	upcoming := make([]UpcomingFeed, 0, len(due))
	for _, f := range due {
		upcoming = append(upcoming, UpcomingFeed{FeedID: f.ID, NextFetchAt: f.NextFetchAt})
	}

	return Heartbeat{
		Timestamp:   time.Now(),
		ActiveCount: active,
		QueueDepth:  len(feeds),
		Upcoming:    upcoming,
	}, nil
}

// classifyOutcome maps a fetch error to a FetchLog outcome.
func classifyOutcome(err error) entity.FetchOutcome {
	var fe *fetcher.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetcher.FetchErrorTimeout:
			return entity.FetchOutcomeTimeout
		case fetcher.FetchErrorEmptyBody:
			return entity.FetchOutcomeEmpty
		}
	}
	return entity.FetchOutcomeError
}
