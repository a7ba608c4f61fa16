package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedctl/internal/domain/entity"
)

// rawPayload mirrors the JSON shape requested in the prompt before
// validation and normalization are applied.
type rawPayload struct {
	Sentiment struct {
		Overall struct {
			Label      string  `json:"label"`
			Score      float64 `json:"score"`
			Confidence float64 `json:"confidence"`
		} `json:"overall"`
		Market struct {
			Bullish     float64 `json:"bullish"`
			Bearish     float64 `json:"bearish"`
			Uncertainty float64 `json:"uncertainty"`
			TimeHorizon string  `json:"time_horizon"`
		} `json:"market"`
		Urgency float64  `json:"urgency"`
		Themes  []string `json:"themes"`
	} `json:"sentiment"`
	Impact struct {
		Overall    float64 `json:"overall"`
		Volatility float64 `json:"volatility"`
	} `json:"impact"`
	Geopolitical *rawGeopolitical `json:"geopolitical"`
}

type rawGeopolitical struct {
	StabilityScore    float64 `json:"stability_score"`
	EconomicImpact    float64 `json:"economic_impact"`
	SecurityRelevance float64 `json:"security_relevance"`
	DiplomaticImpact  struct {
		Global   float64 `json:"global"`
		Western  float64 `json:"western"`
		Regional float64 `json:"regional"`
	} `json:"diplomatic_impact"`
	ImpactBeneficiaries []string `json:"impact_beneficiaries"`
	ImpactAffected      []string `json:"impact_affected"`
	RegionsAffected     []string `json:"regions_affected"`
	TimeHorizon         string   `json:"time_horizon"`
	Confidence          float64  `json:"confidence"`
	EscalationPotential float64  `json:"escalation_potential"`
	AllianceActivation  []string `json:"alliance_activation"`
	ConflictType        string   `json:"conflict_type"`
}

// parseAndNormalize parses the model's raw JSON text into a validated,
// clamped, range-checked AnalysisPayload. A malformed JSON body is an
// invalid_response ClassifyError.
func parseAndNormalize(body, modelTag string) (entity.AnalysisPayload, error) {
	body = stripCodeFence(body)

	var raw rawPayload
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return entity.AnalysisPayload{}, newClassifyError(ErrorInvalidResponse, modelTag, fmt.Errorf("parse response: %w", err))
	}

	payload := entity.AnalysisPayload{
		Sentiment: entity.Sentiment{
			Overall: entity.OverallSentiment{
				Label:      normalizeSentimentLabel(raw.Sentiment.Overall.Label),
				Score:      clamp(raw.Sentiment.Overall.Score, -1, 1),
				Confidence: clamp(raw.Sentiment.Overall.Confidence, 0, 1),
			},
			Market: entity.MarketSentiment{
				Bullish:     clamp(raw.Sentiment.Market.Bullish, 0, 1),
				Bearish:     clamp(raw.Sentiment.Market.Bearish, 0, 1),
				Uncertainty: clamp(raw.Sentiment.Market.Uncertainty, 0, 1),
				TimeHorizon: normalizeTimeHorizon(raw.Sentiment.Market.TimeHorizon),
			},
			Urgency: clamp(raw.Sentiment.Urgency, 0, 1),
			Themes:  truncate(raw.Sentiment.Themes, 6),
		},
		Impact: entity.Impact{
			Overall:    clamp(raw.Impact.Overall, 0, 1),
			Volatility: clamp(raw.Impact.Volatility, 0, 1),
		},
		ModelTag: modelTag,
	}

	if geo := normalizeGeopolitical(raw.Geopolitical); geo != nil {
		payload.Geopolitical = geo
	}

	return payload, nil
}

func normalizeGeopolitical(raw *rawGeopolitical) *entity.Geopolitical {
	if raw == nil {
		return nil
	}

	geo := entity.Geopolitical{
		StabilityScore:    clamp(raw.StabilityScore, -1, 1),
		EconomicImpact:    clamp(raw.EconomicImpact, -1, 1),
		SecurityRelevance: clamp(raw.SecurityRelevance, 0, 1),
		DiplomaticImpact: entity.DiplomaticImpact{
			Global:   clamp(raw.DiplomaticImpact.Global, -1, 1),
			Western:  clamp(raw.DiplomaticImpact.Western, -1, 1),
			Regional: clamp(raw.DiplomaticImpact.Regional, -1, 1),
		},
		ImpactBeneficiaries: truncate(raw.ImpactBeneficiaries, 3),
		ImpactAffected:      truncate(raw.ImpactAffected, 3),
		RegionsAffected:     raw.RegionsAffected,
		TimeHorizon:         normalizeGeoTimeHorizon(raw.TimeHorizon),
		Confidence:          clamp(raw.Confidence, 0, 1),
		EscalationPotential: clamp(raw.EscalationPotential, 0, 1),
		AllianceActivation:  raw.AllianceActivation,
		ConflictType:        normalizeConflictType(raw.ConflictType),
	}

	if isEmptyGeopolitical(geo) {
		return nil
	}
	return &geo
}

// isEmptyGeopolitical reports whether every numeric field is zero and
// every slice is empty, meaning the model returned a geopolitical block
// for an item that isn't geopolitically relevant. Such a block is omitted
// rather than persisted as a synthetic all-zero row.
func isEmptyGeopolitical(g entity.Geopolitical) bool {
	return g.StabilityScore == 0 && g.EconomicImpact == 0 && g.SecurityRelevance == 0 &&
		g.DiplomaticImpact.Global == 0 && g.DiplomaticImpact.Western == 0 && g.DiplomaticImpact.Regional == 0 &&
		g.Confidence == 0 && g.EscalationPotential == 0 &&
		len(g.ImpactBeneficiaries) == 0 && len(g.ImpactAffected) == 0 &&
		len(g.RegionsAffected) == 0 && len(g.AllianceActivation) == 0
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func truncate(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func normalizeSentimentLabel(s string) entity.SentimentLabel {
	switch entity.SentimentLabel(strings.ToLower(s)) {
	case entity.SentimentPositive, entity.SentimentNegative:
		return entity.SentimentLabel(strings.ToLower(s))
	default:
		return entity.SentimentNeutral
	}
}

func normalizeTimeHorizon(s string) entity.TimeHorizon {
	switch entity.TimeHorizon(strings.ToLower(s)) {
	case entity.HorizonShort, entity.HorizonLong:
		return entity.TimeHorizon(strings.ToLower(s))
	default:
		return entity.HorizonMedium
	}
}

func normalizeGeoTimeHorizon(s string) entity.GeoTimeHorizon {
	switch entity.GeoTimeHorizon(strings.ToLower(s)) {
	case entity.GeoHorizonImmediate, entity.GeoHorizonLongTerm:
		return entity.GeoTimeHorizon(strings.ToLower(s))
	default:
		return entity.GeoHorizonShortTerm
	}
}

func normalizeConflictType(s string) entity.ConflictType {
	switch entity.ConflictType(strings.ToLower(s)) {
	case entity.ConflictDiplomatic, entity.ConflictEconomic, entity.ConflictInterstateWar, entity.ConflictNuclearThreat:
		return entity.ConflictType(strings.ToLower(s))
	default:
		return entity.ConflictHybrid
	}
}

// stripCodeFence removes a surrounding ```json ... ``` or ``` ... ```
// fence some models add despite instructions not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
