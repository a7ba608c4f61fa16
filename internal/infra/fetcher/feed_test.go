package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Sample Feed</title>
<link>https://example.com</link>
<item>
<title>First Post</title>
<link>https://example.com/first</link>
<description>hello world</description>
</item>
</channel>
</rss>`

func TestFeedFetcher_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	cfg := testConfig()
	f := NewFeedFetcher(cfg)
	items, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "First Post", items[0].Title)
	assert.Equal(t, "https://example.com/first", items[0].Link)
	assert.Equal(t, "hello world", items[0].Content)
}

func TestFeedFetcher_Fetch_InvalidURL(t *testing.T) {
	f := NewFeedFetcher(testConfig())
	_, err := f.Fetch(context.Background(), "://bad")
	require.Error(t, err)
}

func TestFeedFetcher_Fetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFeedFetcher(testConfig())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFeedFetcher_Fetch_MalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not xml at all"))
	}))
	defer srv.Close()

	f := NewFeedFetcher(testConfig())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}
