package template

import (
	"net/url"
	"testing"

	"feedctl/internal/domain/entity"
	"feedctl/internal/utils/text"
	"feedctl/tests/fixtures"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func TestMatch_DomainEqualsWinsOverUniversal(t *testing.T) {
	universal := &entity.Template{ID: 0, Name: entity.UniversalTemplateName, IsUniversal: true}
	example := &entity.Template{
		ID:   1,
		Name: "example",
		MatchRules: []entity.MatchRule{
			{Kind: entity.MatchRuleDomainEquals, Value: "example.com", Priority: 10},
		},
	}

	doc := &Document{HTML: []byte("<html></html>"), URL: mustURL(t, "https://example.com/post/1")}
	got := Match([]*entity.Template{universal, example}, doc)
	if got != example {
		t.Fatalf("expected domain-matched template to win, got %+v", got)
	}
}

func TestMatch_FallsBackToUniversal(t *testing.T) {
	universal := &entity.Template{ID: 0, Name: entity.UniversalTemplateName, IsUniversal: true}
	other := &entity.Template{
		ID:   1,
		Name: "other",
		MatchRules: []entity.MatchRule{
			{Kind: entity.MatchRuleDomainEquals, Value: "other.com", Priority: 10},
		},
	}

	doc := &Document{HTML: []byte("<html></html>"), URL: mustURL(t, "https://example.com/post/1")}
	got := Match([]*entity.Template{universal, other}, doc)
	if got != universal {
		t.Fatalf("expected fallback to universal template, got %+v", got)
	}
}

func TestMatch_NilURL_NeverMatchesNonUniversal(t *testing.T) {
	universal := &entity.Template{ID: 0, IsUniversal: true}
	example := &entity.Template{
		ID:         1,
		MatchRules: []entity.MatchRule{{Kind: entity.MatchRuleDomainEquals, Value: "example.com", Priority: 10}},
	}
	doc := &Document{HTML: []byte("<html></html>")}
	got := Match([]*entity.Template{universal, example}, doc)
	if got != universal {
		t.Fatalf("expected universal fallback when doc.URL is nil, got %+v", got)
	}
}

func TestEngine_Extract_CSSTemplate(t *testing.T) {
	html := []byte(`<html><body><h1 class="headline">Breaking News</h1><div class="body">Full story text.</div><span class="byline">Jane Doe</span></body></html>`)
	tpl := &entity.Template{
		ID:   1,
		Name: "example",
		Selectors: map[string]entity.FieldSelector{
			"title":   {Kind: entity.SelectorKindCSS, Expr: "h1.headline", Required: true},
			"content": {Kind: entity.SelectorKindCSS, Expr: "div.body", Required: true},
			"author":  {Kind: entity.SelectorKindCSS, Expr: "span.byline"},
		},
		Processing: entity.ProcessingRules{NormalizeWhitespace: true},
	}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	out, err := engine.Extract(tpl, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Title != "Breaking News" {
		t.Errorf("expected title extracted, got %q", out.Title)
	}
	if out.Content != "Full story text." {
		t.Errorf("expected content extracted, got %q", out.Content)
	}
	if out.Author != "Jane Doe" {
		t.Errorf("expected author extracted, got %q", out.Author)
	}
	if out.Link != doc.URL.String() {
		t.Errorf("expected link to default to doc URL, got %q", out.Link)
	}
}

func TestEngine_Extract_MissingRequiredField(t *testing.T) {
	html := []byte(`<html><body><div class="body">no title here</div></body></html>`)
	tpl := &entity.Template{
		ID:   1,
		Name: "example",
		Selectors: map[string]entity.FieldSelector{
			"title":   {Kind: entity.SelectorKindCSS, Expr: "h1.headline", Required: true},
			"content": {Kind: entity.SelectorKindCSS, Expr: "div.body", Required: true},
		},
	}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	_, err := engine.Extract(tpl, doc)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
}

func TestEngine_Extract_MaxLengthTruncates(t *testing.T) {
	html := []byte(`<html><body><div class="body">0123456789</div></body></html>`)
	tpl := &entity.Template{
		ID:   1,
		Name: "example",
		Selectors: map[string]entity.FieldSelector{
			"content": {Kind: entity.SelectorKindCSS, Expr: "div.body", Required: true},
		},
		Processing: entity.ProcessingRules{MaxLength: 5},
	}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	out, err := engine.Extract(tpl, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "01234" {
		t.Errorf("expected truncated content, got %q", out.Content)
	}
}

func TestEngine_Extract_MaxLengthTruncates_RealisticContent(t *testing.T) {
	long := fixtures.GenerateLongContent() // ~10000 runes, well past any feed item's MaxLength
	html := []byte(`<html><body><div class="body">` + long + `</div></body></html>`)
	tpl := &entity.Template{
		ID:   1,
		Name: "example",
		Selectors: map[string]entity.FieldSelector{
			"content": {Kind: entity.SelectorKindCSS, Expr: "div.body", Required: true},
		},
		Processing: entity.ProcessingRules{MaxLength: 2000},
	}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	out, err := engine.Extract(tpl, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := text.CountRunes(out.Content); got != 2000 {
		t.Errorf("expected content truncated to 2000 runes, got %d", got)
	}
}

func TestEngine_Extract_MinLengthDropsShortRealisticContent(t *testing.T) {
	short := fixtures.GenerateShortContent() // ~500 runes
	html := []byte(`<html><body><div class="body">` + short + `</div></body></html>`)
	tpl := &entity.Template{
		ID:   1,
		Name: "example",
		Selectors: map[string]entity.FieldSelector{
			"content": {Kind: entity.SelectorKindCSS, Expr: "div.body", Required: true},
		},
		Processing: entity.ProcessingRules{MinLength: 5000},
	}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	out, err := engine.Extract(tpl, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "" {
		t.Errorf("expected content below MinLength to be dropped, got %d runes", text.CountRunes(out.Content))
	}
}

func TestEngine_Extract_UniversalTemplate(t *testing.T) {
	html := []byte(`<html><head><title>Sample Article</title></head><body><article><p>` +
		`This is a long enough paragraph of article content to satisfy readability's heuristics for a real article body, ` +
		`repeated so the density detector has enough text to work with across multiple sentences and paragraphs.</p>` +
		`<p>A second paragraph continues the story with more detail and context, giving the extractor plenty of signal.</p></article></body></html>`)
	tpl := &entity.Template{ID: 0, IsUniversal: true}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	out, err := engine.Extract(tpl, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content == "" {
		t.Error("expected non-empty extracted content from universal fallback")
	}
}

func TestSelectField_LiteralDefault(t *testing.T) {
	val, err := selectField(entity.FieldSelector{Kind: entity.SelectorKindLiteralDefault, Expr: "unknown"}, &Document{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "unknown" {
		t.Errorf("expected literal value, got %q", val)
	}
}

func TestProcess_RemovePatterns(t *testing.T) {
	out := process("hello [ad] world", entity.ProcessingRules{RemovePatterns: []string{`\[ad\]\s*`}})
	if out != "hello world" {
		t.Errorf("expected pattern removed, got %q", out)
	}
}

func TestProcess_MinLengthDropsShortValues(t *testing.T) {
	out := process("hi", entity.ProcessingRules{MinLength: 10})
	if out != "" {
		t.Errorf("expected empty result for too-short value, got %q", out)
	}
}

func TestProcess_StripHTMLFalseKeepsRawMarkup(t *testing.T) {
	raw := `See <a href="https://example.com/a">the source</a> for more.`
	out := process(raw, entity.ProcessingRules{})
	if out != raw {
		t.Errorf("expected raw html passed through unchanged, got %q", out)
	}
}

func TestProcess_StripHTMLTruePreservesLinksAsText(t *testing.T) {
	raw := `See <a href="https://example.com/a">the source</a> for <b>more</b>.`
	out := process(raw, entity.ProcessingRules{StripHTML: true})
	const want = "See the source (https://example.com/a) for more."
	if out != want {
		t.Errorf("expected stripped text with preserved link, got %q", out)
	}
}

func TestEngine_Extract_CSSTemplate_StripHTMLPreservesLinks(t *testing.T) {
	html := []byte(`<html><body><div class="body">Full story, <a href="https://example.com/src">via source</a>.</div></body></html>`)
	tpl := &entity.Template{
		ID:   1,
		Name: "example",
		Selectors: map[string]entity.FieldSelector{
			"content": {Kind: entity.SelectorKindCSS, Expr: "div.body", Required: true},
		},
		Processing: entity.ProcessingRules{StripHTML: true, NormalizeWhitespace: true},
	}
	doc := &Document{HTML: html, URL: mustURL(t, "https://example.com/post/1")}

	engine := NewEngine(NewUniversalExtractor())
	out, err := engine.Extract(tpl, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	const want = "Full story, via source (https://example.com/src)."
	if out.Content != want {
		t.Errorf("expected %q, got %q", want, out.Content)
	}
}
