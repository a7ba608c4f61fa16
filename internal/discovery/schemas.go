// Package discovery serves declarative schemas, example payloads, a usage
// guide, and a feature catalog to automation clients, so they can build
// against the HTTP surface without out-of-band documentation. Everything
// here is a plain Go value — no template engine.
package discovery

// Schema is a minimal JSON-Schema-flavored description of one payload
// shape. It is hand-authored rather than reflected off the domain structs
// so field descriptions and score ranges can be spelled out for readers,
// not just types.
type Schema map[string]any

var schemas = map[string]Schema{
	"item": {
		"type": "object",
		"properties": Schema{
			"id":           Schema{"type": "integer"},
			"feed_id":      Schema{"type": "integer"},
			"title":        Schema{"type": "string"},
			"link":         Schema{"type": "string", "format": "uri"},
			"content":      Schema{"type": "string"},
			"author":       Schema{"type": "string"},
			"published_at": Schema{"type": "string", "format": "date-time"},
			"ingested_at":  Schema{"type": "string", "format": "date-time"},
		},
		"required": []string{"id", "feed_id", "title", "link"},
	},
	"item-with-analysis": {
		"type": "object",
		"properties": Schema{
			"item":     Schema{"$ref": "#/schemas/item"},
			"analysis": Schema{"$ref": "#/schemas/analysis-payload"},
		},
	},
	"sentiment": {
		"type":        "object",
		"description": "Sentiment block of the canonical analysis payload.",
		"properties": Schema{
			"overall": Schema{
				"type": "object",
				"properties": Schema{
					"label":      Schema{"type": "string", "enum": []string{"positive", "neutral", "negative"}},
					"score":      Schema{"type": "number", "minimum": -1, "maximum": 1},
					"confidence": Schema{"type": "number", "minimum": 0, "maximum": 1},
				},
			},
			"market": Schema{
				"type": "object",
				"properties": Schema{
					"bullish":     Schema{"type": "number", "minimum": 0, "maximum": 1},
					"bearish":     Schema{"type": "number", "minimum": 0, "maximum": 1},
					"uncertainty": Schema{"type": "number", "minimum": 0, "maximum": 1},
					"time_horizon": Schema{"type": "string", "enum": []string{"short", "medium", "long"}},
				},
			},
			"urgency": Schema{"type": "number", "minimum": 0, "maximum": 1},
			"themes":  Schema{"type": "array", "items": Schema{"type": "string"}, "maxItems": 6},
		},
	},
	"impact": {
		"type": "object",
		"properties": Schema{
			"overall":    Schema{"type": "number", "minimum": 0, "maximum": 1},
			"volatility": Schema{"type": "number", "minimum": 0, "maximum": 1},
		},
	},
	"geopolitical": {
		"type":        "object",
		"description": "Optional; absent when the classifier judged the item not geopolitically relevant.",
		"properties": Schema{
			"stability_score":    Schema{"type": "number", "minimum": -1, "maximum": 1},
			"economic_impact":    Schema{"type": "number", "minimum": -1, "maximum": 1},
			"security_relevance": Schema{"type": "number", "minimum": 0, "maximum": 1},
			"diplomatic_impact": Schema{
				"type": "object",
				"properties": Schema{
					"global":   Schema{"type": "number", "minimum": -1, "maximum": 1},
					"western":  Schema{"type": "number", "minimum": -1, "maximum": 1},
					"regional": Schema{"type": "number", "minimum": -1, "maximum": 1},
				},
			},
			"impact_beneficiaries": Schema{"type": "array", "items": Schema{"type": "string"}, "maxItems": 3},
			"impact_affected":      Schema{"type": "array", "items": Schema{"type": "string"}, "maxItems": 3},
			"regions_affected":     Schema{"type": "array", "items": Schema{"type": "string"}},
			"time_horizon":         Schema{"type": "string", "enum": []string{"immediate", "short_term", "long_term"}},
			"confidence":           Schema{"type": "number", "minimum": 0, "maximum": 1},
			"escalation_potential": Schema{"type": "number", "minimum": 0, "maximum": 1},
			"alliance_activation":  Schema{"type": "array", "items": Schema{"type": "string"}},
			"conflict_type": Schema{"type": "string", "enum": []string{
				"diplomatic", "economic", "hybrid", "interstate_war", "nuclear_threat",
			}},
		},
	},
	"analysis-payload": {
		"type": "object",
		"properties": Schema{
			"sentiment":    Schema{"$ref": "#/schemas/sentiment"},
			"impact":       Schema{"$ref": "#/schemas/impact"},
			"geopolitical": Schema{"$ref": "#/schemas/geopolitical"},
			"model_tag":    Schema{"type": "string"},
		},
		"required": []string{"sentiment", "impact", "model_tag"},
	},
	"analysis-run": {
		"type": "object",
		"properties": Schema{
			"id":     Schema{"type": "integer"},
			"scope":  Schema{"type": "object", "description": "Tagged union: kind in {LATEST,FEEDS,ITEMS,TIMERANGE} plus kind-specific fields."},
			"params": Schema{"type": "object"},
			"status": Schema{"type": "string", "enum": []string{
				"PENDING", "RUNNING", "PAUSED", "COMPLETED", "FAILED", "CANCELLED",
			}},
			"counters":          Schema{"type": "object"},
			"estimated_cost_usd": Schema{"type": "number"},
			"actual_cost_usd":    Schema{"type": "number"},
			"created_at":         Schema{"type": "string", "format": "date-time"},
			"started_at":         Schema{"type": "string", "format": "date-time"},
			"completed_at":       Schema{"type": "string", "format": "date-time"},
			"trigger":            Schema{"type": "string", "enum": []string{"manual", "auto", "api"}},
			"model_tag":          Schema{"type": "string"},
		},
		"required": []string{"id", "scope", "params", "status"},
	},
}

// Names lists the known schema names, stable ordering for listing.
var Names = []string{
	"item", "item-with-analysis", "sentiment", "impact", "geopolitical",
	"analysis-payload", "analysis-run",
}

// Schemas returns every schema keyed by name.
func Schemas() map[string]Schema {
	return schemas
}

// SchemaByName returns one schema, and whether it was found.
func SchemaByName(name string) (Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}
