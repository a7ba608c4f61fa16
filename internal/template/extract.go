// Package template implements the per-feed extraction templates: matching a
// fetched document to a template, then pulling the logical fields (title,
// link, content, author, published) out of it with the template's selectors.
package template

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"feedctl/internal/domain/entity"
	"feedctl/internal/utils/text"
)

// ExtractedContent is the normalized result of running a Template against a
// fetched document.
type ExtractedContent struct {
	Title       string
	Link        string
	Content     string
	Author      string
	PublishedAt string // left as the raw selected text; callers parse with their own time layouts
}

// Document is the subset of a fetched payload the engine needs: the raw
// bytes (for CSS/XPath parsing) and the final URL (for match rules and
// relative-link resolution).
type Document struct {
	HTML    []byte
	URL     *url.URL
	Content string // optional content-type header, used by MatchRuleContentType
}

// Engine matches templates to documents and extracts fields from them.
type Engine struct {
	universal *UniversalExtractor
}

func NewEngine(universal *UniversalExtractor) *Engine {
	return &Engine{universal: universal}
}

// Match picks the best template for a document: the highest-priority
// template whose match rules all agree, or the universal template if none
// claim it. Templates are expected to include the universal template in
// candidates; if not, Match returns nil when nothing else matches.
func Match(candidates []*entity.Template, doc *Document) *entity.Template {
	sorted := make([]*entity.Template, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() > sorted[j].Priority() })

	for _, tpl := range sorted {
		if tpl.IsUniversal {
			continue
		}
		if matchesAll(tpl.MatchRules, doc) {
			return tpl
		}
	}
	for _, tpl := range sorted {
		if tpl.IsUniversal {
			return tpl
		}
	}
	return nil
}

func matchesAll(rules []entity.MatchRule, doc *Document) bool {
	if doc.URL == nil {
		return false
	}
	for _, r := range rules {
		if !matchesOne(r, doc) {
			return false
		}
	}
	return len(rules) > 0
}

func matchesOne(r entity.MatchRule, doc *Document) bool {
	switch r.Kind {
	case entity.MatchRuleDomainEquals:
		return strings.EqualFold(doc.URL.Hostname(), r.Value)
	case entity.MatchRuleURLRegex:
		re, err := regexp.Compile(r.Value)
		if err != nil {
			return false
		}
		return re.MatchString(doc.URL.String())
	case entity.MatchRuleContentType:
		return strings.Contains(doc.Content, r.Value)
	default:
		return false
	}
}

// Extract runs tpl's field selectors against doc. Missing required fields
// fall back to the universal extractor's readability-based content when one
// is configured; otherwise they're returned as an error naming the field.
func (e *Engine) Extract(tpl *entity.Template, doc *Document) (ExtractedContent, error) {
	if tpl.IsUniversal {
		if e.universal == nil {
			return ExtractedContent{}, fmt.Errorf("extract: universal template matched but no fallback extractor configured")
		}
		return e.universal.Extract(doc)
	}

	out := ExtractedContent{}
	fields := map[string]*string{
		"title":        &out.Title,
		"link":         &out.Link,
		"content":      &out.Content,
		"author":       &out.Author,
		"published_at": &out.PublishedAt,
	}

	for name, dst := range fields {
		sel, ok := tpl.Selectors[name]
		if !ok {
			continue
		}
		val, err := selectField(sel, doc)
		if err != nil {
			if sel.Required {
				return ExtractedContent{}, fmt.Errorf("extract: field %q: %w", name, err)
			}
			continue
		}
		val = process(val, tpl.Processing)
		if val == "" && sel.Required {
			return ExtractedContent{}, fmt.Errorf("extract: field %q: %w", name, errEmptyRequiredField)
		}
		*dst = val
	}

	if out.Link == "" && doc.URL != nil {
		out.Link = doc.URL.String()
	}

	return out, nil
}

func selectField(sel entity.FieldSelector, doc *Document) (string, error) {
	switch sel.Kind {
	case entity.SelectorKindLiteralDefault:
		return sel.Expr, nil
	case entity.SelectorKindCSS:
		return selectCSS(doc.HTML, sel.Expr)
	case entity.SelectorKindXPath:
		return selectXPath(doc.HTML, sel.Expr)
	case entity.SelectorKindAttribute:
		return selectAttribute(doc.HTML, sel.Expr)
	default:
		return "", fmt.Errorf("unknown selector kind %q", sel.Kind)
	}
}

func process(val string, rules entity.ProcessingRules) string {
	if rules.StripHTML {
		val = stripHTMLPreservingLinks(val)
	}
	if rules.NormalizeWhitespace {
		val = normalizeWhitespace(val)
	}
	for _, pat := range rules.RemovePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			continue
		}
		val = re.ReplaceAllString(val, "")
	}
	val = strings.TrimSpace(val)
	if rules.MaxLength > 0 {
		if runes := []rune(val); len(runes) > rules.MaxLength {
			val = string(runes[:rules.MaxLength])
		}
	}
	if rules.MinLength > 0 && text.CountRunes(val) < rules.MinLength {
		return ""
	}
	return val
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
