package template

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// selectCSS returns the trimmed inner HTML of the first element matching
// expr, so process's StripHTML rule can decide whether to flatten it to
// text or pass it through untouched.
func selectCSS(html []byte, expr string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("css: parse document: %w", err)
	}

	sel := doc.Find(expr).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("css: selector %q matched nothing", expr)
	}
	inner, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("css: selector %q: render inner html: %w", expr, err)
	}
	return strings.TrimSpace(inner), nil
}

// selectAttribute treats expr as "<css-selector>@<attr-name>" and returns
// the named attribute of the first matching element.
func selectAttribute(html []byte, expr string) (string, error) {
	selExpr, attr, ok := strings.Cut(expr, "@")
	if !ok {
		return "", fmt.Errorf("attribute: expr %q missing '@attr' suffix", expr)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("attribute: parse document: %w", err)
	}

	sel := doc.Find(selExpr).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("attribute: selector %q matched nothing", selExpr)
	}
	val, exists := sel.Attr(attr)
	if !exists {
		return "", fmt.Errorf("attribute: %q has no %q attribute", selExpr, attr)
	}
	return strings.TrimSpace(val), nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// stripHTMLPreservingLinks flattens an HTML fragment to plain text, keeping
// each inline link's destination visible as "anchor text (href)" instead of
// dropping it along with the rest of the markup.
func stripHTMLPreservingLinks(val string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(val))
	if err != nil {
		return val
	}
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		replacement := text
		if href, ok := a.Attr("href"); ok && href != "" {
			replacement = text + " (" + href + ")"
		}
		a.ReplaceWithHtml(htmlEscaper.Replace(replacement))
	})
	return strings.TrimSpace(doc.Find("body").Text())
}
