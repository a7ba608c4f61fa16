package template

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
)

// selectXPath evaluates an XPath expression against html and returns the
// trimmed inner HTML of the first matching node, so process's StripHTML
// rule can decide whether to flatten it to text or pass it through
// untouched, same as selectCSS.
func selectXPath(html []byte, expr string) (string, error) {
	root, err := htmlquery.Parse(bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("xpath: parse document: %w", err)
	}

	compiled, err := xpath.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("xpath: compile %q: %w", expr, err)
	}

	node := htmlquery.QuerySelector(root, compiled)
	if node == nil {
		return "", fmt.Errorf("xpath: expression %q matched nothing", expr)
	}
	return strings.TrimSpace(htmlquery.OutputHTML(node, false)), nil
}
