// Package ingest implements feed-item deduplication and storage: turning a
// raw fetched payload into a stored entity.Item, skipping content the store
// has already seen, and handing newly stored items that belong to an
// auto_analyze feed to the auto-analysis intake queue.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/observability/metrics"
	"feedctl/internal/repository"
	"feedctl/internal/template"

	"golang.org/x/sync/errgroup"
)

// RawItem is one entry pulled from a fetched feed, before template
// extraction and hashing have run.
type RawItem struct {
	Title       string
	Link        string
	Content     string
	Author      string
	PublishedAt time.Time
	Doc         *template.Document // nil when the feed carried full content inline (no secondary fetch)
}

// Stats summarizes one feed's ingest pass.
type Stats struct {
	Seen       int64
	Inserted   int64
	Duplicated int64
	Failed     int64
}

// Service ingests raw feed items into the store.
type Service struct {
	Items     repository.ItemRepository
	Templates repository.TemplateRepository
	Engine    *template.Engine
	Intake    repository.IntakeQueue // nil disables auto-enrolment handoff
	Parallelism int
}

func New(items repository.ItemRepository, templates repository.TemplateRepository, engine *template.Engine, intake repository.IntakeQueue, parallelism int) *Service {
	if parallelism <= 0 {
		parallelism = 8
	}
	return &Service{Items: items, Templates: templates, Engine: engine, Intake: intake, Parallelism: parallelism}
}

// Ingest stores raw items for feed, resolving templates and content per
// item independently: one item's extraction or insert failure does not
// abort the batch, mirroring the teacher's per-item isolation in
// processFeedItems.
func (s *Service) Ingest(ctx context.Context, feed *entity.Feed, raws []RawItem) (Stats, error) {
	var stats Stats

	pinned, candidates, err := s.resolveTemplates(ctx, feed)
	if err != nil {
		return stats, fmt.Errorf("ingest: resolve templates: %w", err)
	}

	sem := make(chan struct{}, s.Parallelism)
	eg, egCtx := errgroup.WithContext(ctx)

	for i := range raws {
		raw := raws[i]
		atomic.AddInt64(&stats.Seen, 1)

		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			item, err := s.resolveItem(egCtx, feed, raw, pinned, candidates)
			if err != nil {
				atomic.AddInt64(&stats.Failed, 1)
				metrics.RecordItemFailed()
				slog.Warn("ingest: item resolution failed",
					slog.Int64("feed_id", feed.ID), slog.String("link", raw.Link), slog.Any("error", err))
				return nil
			}

			if err := s.Items.Create(egCtx, item); err != nil {
				if errors.Is(err, entity.ErrDuplicateContentHash) {
					atomic.AddInt64(&stats.Duplicated, 1)
					metrics.RecordItemDuplicated()
					return nil
				}
				if errors.Is(egCtx.Err(), context.Canceled) || errors.Is(egCtx.Err(), context.DeadlineExceeded) {
					return err
				}
				atomic.AddInt64(&stats.Failed, 1)
				metrics.RecordItemFailed()
				slog.Warn("ingest: store item failed",
					slog.Int64("feed_id", feed.ID), slog.String("link", item.Link), slog.Any("error", err))
				return nil
			}

			atomic.AddInt64(&stats.Inserted, 1)
			metrics.RecordItemIngested(feed.ID)

			if feed.AutoAnalyze && s.Intake != nil {
				s.Intake.Enqueue(feed.ID, item.ID)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, fmt.Errorf("ingest: %w", err)
	}
	return stats, nil
}

// resolveTemplates determines which templates an item may extract against:
// a feed pinned to a specific template (feed.TemplateID) always uses that
// one; otherwise every candidate competes via template.Match.
func (s *Service) resolveTemplates(ctx context.Context, feed *entity.Feed) (*entity.Template, []*entity.Template, error) {
	if feed.TemplateID != nil {
		tpl, err := s.Templates.Get(ctx, *feed.TemplateID)
		if err != nil {
			return nil, nil, err
		}
		return tpl, nil, nil
	}
	candidates, err := s.Templates.ListCandidates(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, candidates, nil
}

func (s *Service) resolveItem(ctx context.Context, feed *entity.Feed, raw RawItem, pinned *entity.Template, candidates []*entity.Template) (*entity.Item, error) {
	title, link, content, author := raw.Title, raw.Link, raw.Content, raw.Author

	if raw.Doc != nil {
		tpl := pinned
		if tpl == nil {
			tpl = template.Match(candidates, raw.Doc)
		}
		if tpl == nil {
			return nil, template.ErrNoMatch
		}
		extracted, err := s.Engine.Extract(tpl, raw.Doc)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		if extracted.Title != "" {
			title = extracted.Title
		}
		if extracted.Content != "" {
			content = extracted.Content
		}
		if extracted.Author != "" {
			author = extracted.Author
		}
		if extracted.Link != "" {
			link = extracted.Link
		}
	}

	item := &entity.Item{
		FeedID:      feed.ID,
		Title:       title,
		Link:        link,
		Content:     content,
		Author:      author,
		PublishedAt: raw.PublishedAt,
		ContentHash: ContentHash(title, link, content),
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return item, nil
}
