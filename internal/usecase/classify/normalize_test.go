package classify

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAndNormalize_ValidPayload(t *testing.T) {
	body := `{
		"sentiment": {
			"overall": {"label": "positive", "score": 0.8, "confidence": 0.9},
			"market": {"bullish": 0.6, "bearish": 0.1, "uncertainty": 0.2, "time_horizon": "short"},
			"urgency": 0.3,
			"themes": ["economy", "trade"]
		},
		"impact": {"overall": 0.5, "volatility": 0.2}
	}`

	payload, err := parseAndNormalize(body, "claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Sentiment.Overall.Label != "positive" {
		t.Errorf("expected label positive, got %s", payload.Sentiment.Overall.Label)
	}
	if payload.Geopolitical != nil {
		t.Error("expected no geopolitical block when absent from response")
	}
	if payload.ModelTag != "claude-sonnet-4-5" {
		t.Errorf("expected model tag set, got %s", payload.ModelTag)
	}
}

func TestParseAndNormalize_ClampsOutOfRangeScores(t *testing.T) {
	body := `{
		"sentiment": {"overall": {"label": "positive", "score": 5.0, "confidence": -2.0}, "market": {"bullish": 3.0}},
		"impact": {"overall": -1.0, "volatility": 2.0}
	}`

	payload, err := parseAndNormalize(body, "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Sentiment.Overall.Score != 1.0 {
		t.Errorf("expected score clamped to 1.0, got %f", payload.Sentiment.Overall.Score)
	}
	if payload.Sentiment.Overall.Confidence != 0.0 {
		t.Errorf("expected confidence clamped to 0.0, got %f", payload.Sentiment.Overall.Confidence)
	}
	if payload.Impact.Overall != 0.0 {
		t.Errorf("expected impact overall clamped to 0.0, got %f", payload.Impact.Overall)
	}
	if payload.Impact.Volatility != 1.0 {
		t.Errorf("expected volatility clamped to 1.0, got %f", payload.Impact.Volatility)
	}
}

func TestParseAndNormalize_UnknownEnumFallsBackToDefault(t *testing.T) {
	body := `{
		"sentiment": {"overall": {"label": "ecstatic"}, "market": {"time_horizon": "eternal"}},
		"impact": {}
	}`
	payload, err := parseAndNormalize(body, "claude-sonnet-4-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Sentiment.Overall.Label != "neutral" {
		t.Errorf("expected unknown label to default to neutral, got %s", payload.Sentiment.Overall.Label)
	}
	if payload.Sentiment.Market.TimeHorizon != "medium" {
		t.Errorf("expected unknown horizon to default to medium, got %s", payload.Sentiment.Market.TimeHorizon)
	}
}

func TestParseAndNormalize_TruncatesOversizedArrays(t *testing.T) {
	body := `{
		"sentiment": {"overall": {"label": "neutral"}, "market": {}, "themes": ["a","b","c","d","e","f","g","h"]},
		"impact": {},
		"geopolitical": {
			"stability_score": 0.5,
			"impact_beneficiaries": ["US","EU","CN","JP"],
			"impact_affected": ["RU","IR","KP","SY"]
		}
	}`
	payload, err := parseAndNormalize(body, "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload.Sentiment.Themes) != 6 {
		t.Errorf("expected themes truncated to 6, got %d", len(payload.Sentiment.Themes))
	}
	if payload.Geopolitical == nil {
		t.Fatal("expected geopolitical block present")
	}
	if len(payload.Geopolitical.ImpactBeneficiaries) != 3 {
		t.Errorf("expected beneficiaries truncated to 3, got %d", len(payload.Geopolitical.ImpactBeneficiaries))
	}
	if len(payload.Geopolitical.ImpactAffected) != 3 {
		t.Errorf("expected affected truncated to 3, got %d", len(payload.Geopolitical.ImpactAffected))
	}
}

func TestParseAndNormalize_OmitsAllZeroGeopolitical(t *testing.T) {
	body := `{
		"sentiment": {"overall": {"label": "neutral"}, "market": {}},
		"impact": {},
		"geopolitical": {"stability_score": 0, "economic_impact": 0}
	}`
	payload, err := parseAndNormalize(body, "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Geopolitical != nil {
		t.Error("expected all-zero geopolitical block to be omitted")
	}
}

func TestParseAndNormalize_MalformedJSON_IsInvalidResponseError(t *testing.T) {
	_, err := parseAndNormalize("not json", "claude-sonnet-4-5")
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	var classifyErr *ClassifyError
	if !errors.As(err, &classifyErr) {
		t.Fatalf("expected *ClassifyError, got %T", err)
	}
	if classifyErr.Kind != ErrorInvalidResponse {
		t.Errorf("expected invalid_response kind, got %s", classifyErr.Kind)
	}
}

func TestParseAndNormalize_StripsMarkdownCodeFence(t *testing.T) {
	body := "```json\n{\"sentiment\": {\"overall\": {\"label\": \"neutral\"}, \"market\": {}}, \"impact\": {}}\n```"
	payload, err := parseAndNormalize(body, "gpt-4o")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Sentiment.Overall.Label != "neutral" {
		t.Errorf("expected parse to succeed through code fence, got label %s", payload.Sentiment.Overall.Label)
	}
}

func TestStripCodeFence_PlainJSONUnaffected(t *testing.T) {
	in := `{"a": 1}`
	if got := stripCodeFence(in); got != in {
		t.Errorf("expected plain JSON unchanged, got %q", got)
	}
}

func TestStripCodeFence_TrimsFence(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	got := stripCodeFence(in)
	if strings.Contains(got, "```") {
		t.Errorf("expected fence stripped, got %q", got)
	}
}
