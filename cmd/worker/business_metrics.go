package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"feedctl/internal/observability/metrics"
	"feedctl/internal/repository"
	"feedctl/internal/usecase/analysis"
	"feedctl/internal/usecase/classify"
	"feedctl/internal/usecase/governor"

	"feedctl/internal/domain/entity"
	"feedctl/internal/infra/fetcher"
)

// businessMetricsInterval matches the analysis package's own sweep/watchdog
// cadence; all three are cheap point-in-time reads.
const businessMetricsInterval = 15 * time.Second

// breakerGauge names one circuit breaker polled into the breaker_state
// gauge; classifiers are optional (nil when their API key is unset).
type breakerGauge struct {
	name  string
	state func() int
}

// businessMetricsPoller periodically samples the governor queue, the
// analysis semaphore/limiter, provider circuit breakers, and the
// auto-analysis backlog into the gauges business_test.go exercises, since
// none of that state is naturally produced by a discrete event the way
// RecordFeedFetch/RecordItemIngested are.
type businessMetricsPoller struct {
	governor     *governor.Service
	analysis     *analysis.Service
	pending      repository.PendingAutoAnalysisRepository
	items        repository.ItemRepository
	itemAnalyses repository.ItemAnalysisRepository
	breakers     []breakerGauge
	logger       *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func newBusinessMetricsPoller(
	gov *governor.Service,
	an *analysis.Service,
	pending repository.PendingAutoAnalysisRepository,
	items repository.ItemRepository,
	itemAnalyses repository.ItemAnalysisRepository,
	claudeClassifier *classify.ClaudeClassifier,
	openaiClassifier *classify.OpenAIClassifier,
	feedFetch *fetcher.FeedFetcher,
	pageFetch *fetcher.PageFetcher,
	logger *slog.Logger,
) *businessMetricsPoller {
	var breakers []breakerGauge
	if claudeClassifier != nil {
		breakers = append(breakers, breakerGauge{name: "claude-api", state: claudeClassifier.BreakerState})
	}
	if openaiClassifier != nil {
		breakers = append(breakers, breakerGauge{name: "openai-api", state: openaiClassifier.BreakerState})
	}
	if feedFetch != nil {
		breakers = append(breakers, breakerGauge{name: "feed-fetch", state: feedFetch.BreakerState})
	}
	if pageFetch != nil {
		breakers = append(breakers, breakerGauge{name: "web-scraper", state: pageFetch.BreakerState})
	}
	return &businessMetricsPoller{
		governor:     gov,
		analysis:     an,
		pending:      pending,
		items:        items,
		itemAnalyses: itemAnalyses,
		breakers:     breakers,
		logger:       logger,
		stop:         make(chan struct{}),
	}
}

func (p *businessMetricsPoller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(businessMetricsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.sample(ctx)
			}
		}
	}()
}

func (p *businessMetricsPoller) Stop() {
	close(p.stop)
	p.wg.Wait()
}

func (p *businessMetricsPoller) sample(ctx context.Context) {
	if depth, err := p.governor.QueueDepth(ctx); err != nil {
		p.logger.Warn("business metrics: queue depth failed", slog.Any("error", err))
	} else {
		metrics.SetQueueDepth(depth)
	}

	semStats := p.analysis.Sem.Stats()
	metrics.SetActiveItems(int(semStats.Active))
	metrics.SetQueueUtilization(semStats.Utilization)
	metrics.SetLimiterRate("analysis", p.analysis.Limiter.Stats().CurrentRate)

	for _, b := range p.breakers {
		metrics.SetBreakerState(b.name, b.state())
	}

	if p.pending != nil {
		if batches, err := p.pending.ListByStatus(ctx, entity.PendingAutoAnalysisPending, 0); err != nil {
			p.logger.Warn("business metrics: pending auto count failed", slog.Any("error", err))
		} else {
			metrics.SetPendingAutoCount(len(batches))
		}
	}

	if p.items != nil && p.itemAnalyses != nil {
		total, err := p.items.Count(ctx, repository.ItemFilters{})
		if err != nil {
			p.logger.Warn("business metrics: item count failed", slog.Any("error", err))
			return
		}
		if total == 0 {
			metrics.SetAnalyzedRatio(0)
			return
		}
		analyzed, err := p.itemAnalyses.Count(ctx)
		if err != nil {
			p.logger.Warn("business metrics: analyzed count failed", slog.Any("error", err))
			return
		}
		metrics.SetAnalyzedRatio(float64(analyzed) / float64(total))
	}
}
