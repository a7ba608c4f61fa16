package entity

import "time"

// Item is an immutable ingested article. Identity for dedup purposes is
// ContentHash, computed over the canonical (title, link, content) tuple.
type Item struct {
	ID          int64
	FeedID      int64
	Title       string
	Link        string
	Content     string
	Author      string
	PublishedAt time.Time
	IngestedAt  time.Time
	ContentHash string // hex-encoded sha256, unique globally
}

// Validate enforces the fields required for an Item to be persisted.
// Extraction-level required-field checks happen in the template engine;
// this only guards against persisting a structurally broken row.
func (i *Item) Validate() error {
	if i.FeedID <= 0 {
		return &ValidationError{Field: "feed_id", Message: "must reference an existing feed"}
	}
	if i.Title == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if i.Link == "" {
		return &ValidationError{Field: "link", Message: "must not be empty"}
	}
	if i.ContentHash == "" {
		return &ValidationError{Field: "content_hash", Message: "must not be empty"}
	}
	return nil
}
