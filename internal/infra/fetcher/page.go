package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"feedctl/internal/resilience/circuitbreaker"
	"feedctl/internal/template"
)

// PageFetcher retrieves a single item's page as raw HTML for template
// extraction. It is the secondary fetch used when a feed's inline content
// is too short (below FetchConfig.Threshold) to analyze directly.
//
// Security: SSRF prevention via validateURL on the initial request and on
// every redirect target, a 25MB default body cap, and a bounded redirect
// count. Reliability: wrapped in a circuit breaker, same as FeedFetcher.
type PageFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         FetchConfig
}

func NewPageFetcher(config FetchConfig) *PageFetcher {
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "page-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	})

	f := &PageFetcher{circuitBreaker: cb, config: config}

	f.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return newFetchError(FetchErrorTooLarge, req.URL.String(), fmt.Errorf("%d redirects exceeds limit", len(via)))
			}
			if err := validateURL(req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return err
			}
			return nil
		},
	}
	return f
}

// BreakerState returns the circuit breaker's state as gobreaker's
// 0=closed/1=half-open/2=open encoding, for the breaker_state gauge.
func (f *PageFetcher) BreakerState() int {
	return int(f.circuitBreaker.State())
}

// FetchPage fetches urlStr and returns it as a template.Document ready for
// selector or readability extraction.
func (f *PageFetcher) FetchPage(ctx context.Context, urlStr string) (*template.Document, error) {
	if err := validateURL(urlStr, f.config.DenyPrivateIPs); err != nil {
		return nil, err
	}

	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		return nil, err
	}
	return result.(*template.Document), nil
}

func (f *PageFetcher) doFetch(ctx context.Context, urlStr string) (*template.Document, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, newFetchError(FetchErrorInvalidURL, urlStr, err)
	}
	req.Header.Set("User-Agent", "FeedctlBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, newFetchError(FetchErrorTimeout, urlStr, err)
		}
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			var inner *FetchError
			if errors.As(urlErr.Err, &inner) {
				return nil, inner
			}
		}
		return nil, newFetchError(FetchErrorDNS, urlStr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(FetchErrorHTTPStatus, urlStr, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	limited := io.LimitReader(resp.Body, f.config.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, newFetchError(FetchErrorTimeout, urlStr, err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return nil, newFetchError(FetchErrorTooLarge, urlStr, fmt.Errorf("response exceeds %d bytes", f.config.MaxBodySize))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, newFetchError(FetchErrorEmptyBody, urlStr, nil)
	}

	finalURL, perr := url.Parse(urlStr)
	if perr != nil {
		finalURL = nil
	}
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL
	}

	return &template.Document{
		HTML:    body,
		URL:     finalURL,
		Content: resp.Header.Get("Content-Type"),
	}, nil
}
