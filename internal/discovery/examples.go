package discovery

import "time"

// ExampleTypes lists the known example payload types.
var ExampleTypes = []string{"item", "item-with-analysis", "analysis-run"}

var exampleTimestamp = time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

var exampleItem = map[string]any{
	"id":           1001,
	"feed_id":      42,
	"title":        "Central bank holds rates steady amid inflation data",
	"link":         "https://example.com/news/central-bank-holds-rates",
	"content":      "The central bank left its benchmark rate unchanged on Wednesday...",
	"author":       "Jane Reporter",
	"published_at": exampleTimestamp,
	"ingested_at":  exampleTimestamp.Add(3 * time.Minute),
}

var exampleAnalysisPayload = map[string]any{
	"sentiment": map[string]any{
		"overall": map[string]any{"label": "neutral", "score": 0.05, "confidence": 0.82},
		"market": map[string]any{
			"bullish": 0.3, "bearish": 0.25, "uncertainty": 0.45, "time_horizon": "short",
		},
		"urgency": 0.2,
		"themes":  []string{"monetary policy", "inflation"},
	},
	"impact": map[string]any{"overall": 0.4, "volatility": 0.35},
	"geopolitical": nil,
	"model_tag":    "claude-3-5-haiku",
}

var exampleAnalysisRun = map[string]any{
	"id":     501,
	"scope":  map[string]any{"kind": "LATEST", "latest": 200},
	"params": map[string]any{"model_tag": "claude-3-5-haiku", "item_limit": 200},
	"status": "RUNNING",
	"counters": map[string]any{
		"queued": 40, "processing": 4, "completed": 150, "failed": 2, "skipped": 4, "total_items": 200,
	},
	"estimated_cost_usd": 1.84,
	"actual_cost_usd":    1.39,
	"created_at":         exampleTimestamp,
	"started_at":         exampleTimestamp.Add(2 * time.Second),
	"completed_at":       nil,
	"trigger":            "manual",
	"model_tag":          "claude-3-5-haiku",
}

// ExampleByType returns one representative row for the named example
// type, and whether that type is known.
func ExampleByType(kind string) (any, bool) {
	switch kind {
	case "item":
		return exampleItem, true
	case "item-with-analysis":
		return map[string]any{"item": exampleItem, "analysis": exampleAnalysisPayload}, true
	case "analysis-run":
		return exampleAnalysisRun, true
	default:
		return nil, false
	}
}
