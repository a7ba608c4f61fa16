package classify

import "fmt"

// systemPrompt instructs the model to return strict JSON matching the
// canonical analysis payload schema and nothing else.
const systemPrompt = `You are a news analysis classifier. Given an article title and summary, respond with a single strict JSON object and no other text, matching exactly this shape:

{
  "sentiment": {
    "overall": {"label": "positive|neutral|negative", "score": -1.0..1.0, "confidence": 0.0..1.0},
    "market": {"bullish": 0..1, "bearish": 0..1, "uncertainty": 0..1, "time_horizon": "short|medium|long"},
    "urgency": 0..1,
    "themes": ["string", ...up to 6]
  },
  "impact": {"overall": 0..1, "volatility": 0..1},
  "geopolitical": {
    "stability_score": -1..1,
    "economic_impact": -1..1,
    "security_relevance": 0..1,
    "diplomatic_impact": {"global": -1..1, "western": -1..1, "regional": -1..1},
    "impact_beneficiaries": ["ISO-3166-1 alpha-2 or bloc token", ...up to 3],
    "impact_affected": ["ISO-3166-1 alpha-2 or bloc token", ...up to 3],
    "regions_affected": ["string", ...],
    "time_horizon": "immediate|short_term|long_term",
    "confidence": 0..1,
    "escalation_potential": 0..1,
    "alliance_activation": ["string", ...],
    "conflict_type": "diplomatic|economic|hybrid|interstate_war|nuclear_threat"
  }
}

Omit the "geopolitical" key entirely if the article has no geopolitical relevance. Do not wrap the JSON in markdown fences.`

func buildUserPrompt(title, summary string) string {
	return fmt.Sprintf("Title: %s\n\nSummary: %s", title, summary)
}
