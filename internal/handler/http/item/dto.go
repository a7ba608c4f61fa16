// Package item provides HTTP handlers for browsing ingested items and
// their analysis payloads.
package item

import (
	"time"

	"feedctl/internal/domain/entity"
)

// DTO is the JSON shape for an Item.
type DTO struct {
	ID          int64     `json:"id"`
	FeedID      int64     `json:"feed_id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Content     string    `json:"content"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
	IngestedAt  time.Time `json:"ingested_at"`
}

func toDTO(it *entity.Item) DTO {
	return DTO{
		ID:          it.ID,
		FeedID:      it.FeedID,
		Title:       it.Title,
		Link:        it.Link,
		Content:     it.Content,
		Author:      it.Author,
		PublishedAt: it.PublishedAt,
		IngestedAt:  it.IngestedAt,
	}
}
