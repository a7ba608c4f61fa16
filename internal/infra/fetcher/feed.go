package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"feedctl/internal/resilience/circuitbreaker"
	"feedctl/internal/resilience/retry"
	"feedctl/internal/usecase/ingest"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// sizeLimitedTransport caps the response body gofeed reads, since gofeed
// performs its own HTTP fetch internally and bypasses FetchPage's
// io.LimitReader enforcement.
type sizeLimitedTransport struct {
	base    http.RoundTripper
	maxSize int64
}

func (t *sizeLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body != nil {
		resp.Body = newLimitedReadCloser(resp.Body, t.maxSize)
	}
	return resp, nil
}

// FeedFetcher retrieves and parses an RSS/Atom feed URL, wrapped in a
// circuit breaker and bounded retry exactly as the teacher's RSS fetcher
// wraps gofeed.
type FeedFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	denyPrivate    bool
}

func NewFeedFetcher(config FetchConfig) *FeedFetcher {
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &sizeLimitedTransport{
			base:    http.DefaultTransport,
			maxSize: config.MaxBodySize,
		},
	}
	return &FeedFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.FeedFetchConfig(),
		denyPrivate:    config.DenyPrivateIPs,
	}
}

// BreakerState returns the circuit breaker's state as gobreaker's
// 0=closed/1=half-open/2=open encoding, for the breaker_state gauge.
func (f *FeedFetcher) BreakerState() int {
	return int(f.circuitBreaker.State())
}

// Fetch retrieves feedURL and returns its entries as RawItems ready for
// ingest.Service.Ingest.
func (f *FeedFetcher) Fetch(ctx context.Context, feedURL string) ([]ingest.RawItem, error) {
	if err := validateURL(feedURL, f.denyPrivate); err != nil {
		return nil, err
	}

	var items []ingest.RawItem
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		items = cbResult.([]ingest.RawItem)
		return nil
	})
	if retryErr != nil {
		return nil, newFetchError(FetchErrorHTTPStatus, feedURL, retryErr)
	}
	return items, nil
}

func (f *FeedFetcher) doFetch(ctx context.Context, feedURL string) ([]ingest.RawItem, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "FeedctlBot/1.0"
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items := make([]ingest.RawItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		pubAt := time.Now()
		if it.PublishedParsed != nil {
			pubAt = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			pubAt = *it.UpdatedParsed
		}

		content := it.Content
		if content == "" {
			content = it.Description
		}

		author := ""
		if it.Author != nil {
			author = it.Author.Name
		}

		items = append(items, ingest.RawItem{
			Title:       it.Title,
			Link:        it.Link,
			Content:     content,
			Author:      author,
			PublishedAt: pubAt,
		})
	}

	return items, nil
}
