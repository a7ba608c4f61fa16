package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeed_Validate(t *testing.T) {
	tests := []struct {
		name    string
		feed    Feed
		wantErr bool
	}{
		{
			name: "valid active feed",
			feed: Feed{SourceURL: "https://example.com/rss", BaseIntervalMinutes: 30, Status: FeedStatusActive},
		},
		{
			name:    "empty source url",
			feed:    Feed{BaseIntervalMinutes: 30},
			wantErr: true,
		},
		{
			name:    "interval below floor",
			feed:    Feed{SourceURL: "https://example.com/rss", BaseIntervalMinutes: 1},
			wantErr: true,
		},
		{
			name:    "interval above ceiling",
			feed:    Feed{SourceURL: "https://example.com/rss", BaseIntervalMinutes: 1441},
			wantErr: true,
		},
		{
			name:    "error status without enough failures",
			feed:    Feed{SourceURL: "https://example.com/rss", BaseIntervalMinutes: 30, Status: FeedStatusError, ConsecutiveFailures: 1},
			wantErr: true,
		},
		{
			name: "error status with enough failures",
			feed: Feed{SourceURL: "https://example.com/rss", BaseIntervalMinutes: 30, Status: FeedStatusError, ConsecutiveFailures: FeedFailureThreshold},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.feed.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFeed_IsDue(t *testing.T) {
	now := time.Now()

	f := Feed{Status: FeedStatusActive, NextFetchAt: now.Add(-time.Minute)}
	assert.True(t, f.IsDue(now))

	f.NextFetchAt = now.Add(time.Minute)
	assert.False(t, f.IsDue(now))

	f.NextFetchAt = now.Add(-time.Minute)
	f.Status = FeedStatusPaused
	assert.False(t, f.IsDue(now))
}
