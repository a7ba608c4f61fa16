package template

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-shiori/go-readability"
)

// UniversalExtractor is the fallback field extractor used when no per-feed
// template matches a document. It runs Mozilla's Readability content-density
// heuristic over the raw HTML, the same algorithm the teacher's content
// enhancement path used for full-article fetches.
type UniversalExtractor struct{}

func NewUniversalExtractor() *UniversalExtractor {
	return &UniversalExtractor{}
}

func (u *UniversalExtractor) Extract(doc *Document) (ExtractedContent, error) {
	r := io.NopCloser(bytes.NewReader(doc.HTML))
	article, err := readability.FromReader(r, doc.URL)
	if err != nil {
		return ExtractedContent{}, fmt.Errorf("universal: readability: %w", err)
	}

	content := article.TextContent
	if content == "" {
		content = article.Content
	}
	if content == "" {
		return ExtractedContent{}, fmt.Errorf("universal: %w", errEmptyRequiredField)
	}

	link := ""
	if doc.URL != nil {
		link = doc.URL.String()
	}

	return ExtractedContent{
		Title:   article.Title,
		Link:    link,
		Content: content,
		Author:  article.Byline,
	}, nil
}
