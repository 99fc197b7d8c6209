package tiles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

// Term is one weighted input of a tile formula.
type Term struct {
	Name   string
	Label  string
	Weight float64
}

// Formula is the weighted-sum contract of a tile. Weights are fixed and are
// quoted verbatim in the tile explanation.
type Formula struct {
	Terms []Term
	// Required lists the indices whose presence drives confidence.
	Required []string
	// ScoresWithoutData keeps the tile computing when every required index is
	// empty. Every other tile answers insufficient_data in that case.
	ScoresWithoutData bool
}

// Score returns round(Σ weight·value), clamped to [0,100]. Missing values count as 0.
func (f Formula) Score(values map[string]float64) int {
	var sum float64
	for _, t := range f.Terms {
		sum += t.Weight * values[t.Name]
	}
	return clampScore(int(math.Round(sum)))
}

// Describe renders the formula as it appears in explanations.
func (f Formula) Describe() string {
	parts := make([]string, len(f.Terms))
	for i, t := range f.Terms {
		label := t.Label
		if label == "" {
			label = t.Name
		}
		parts[i] = strconv.FormatFloat(t.Weight, 'f', -1, 64) + "·" + label
	}
	return strings.Join(parts, " + ")
}

// Formulas is the single table of tile weights.
var Formulas = map[hub.TileType]Formula{
	hub.TilePMFScore: {
		Terms:    []Term{{Name: "sentiment", Weight: 0.3}, {Name: "competition", Weight: 0.2}, {Name: "demand", Weight: 0.3}, {Name: "trends", Weight: 0.2}},
		Required: []string{hub.IndexSearch, hub.IndexReviews, hub.IndexSocial, hub.IndexCompetitors, hub.IndexTrends},
	},
	hub.TileMarketSize: {
		Required: []string{hub.IndexSearch, hub.IndexPricing},
		// sizing falls back to zero volume and the default price
		ScoresWithoutData: true,
	},
	hub.TileCompetition: {
		Terms:    []Term{{Name: "competition", Weight: 1}},
		Required: []string{hub.IndexCompetitors},
	},
	hub.TileSentiment: {
		Terms:    []Term{{Name: "sentiment", Weight: 1}},
		Required: []string{hub.IndexReviews, hub.IndexSocial},
	},
	hub.TileMarketTrends: {
		Terms:    []Term{{Name: "trends", Weight: 0.6}, {Name: "news_momentum", Weight: 0.4}},
		Required: []string{hub.IndexTrends, hub.IndexNews},
	},
	hub.TileGoogleTrends: {
		Terms:    []Term{{Name: "trends", Weight: 1}},
		Required: []string{hub.IndexTrends},
	},
	hub.TileWebSearch: {
		Terms:    []Term{{Name: "demand", Weight: 1}},
		Required: []string{hub.IndexSearch},
	},
	hub.TileRedditSentiment: {
		Terms:    []Term{{Name: "volume", Weight: 0.5}, {Name: "platform_sentiment", Weight: 0.5}},
		Required: []string{hub.IndexSocial},
	},
	hub.TileTwitterBuzz: {
		Terms:    []Term{{Name: "volume", Weight: 0.5}, {Name: "platform_sentiment", Weight: 0.5}},
		Required: []string{hub.IndexSocial},
	},
	hub.TileGrowthPotential: {
		Terms:    []Term{{Name: "trends", Weight: 0.4}, {Name: "demand", Weight: 0.3}, {Name: "news_momentum", Weight: 0.3}},
		Required: []string{hub.IndexTrends, hub.IndexSearch, hub.IndexNews},
	},
	hub.TileMarketReadiness: {
		Terms:    []Term{{Name: "sentiment", Weight: 0.4}, {Name: "demand", Weight: 0.4}, {Name: "trends", Weight: 0.2}},
		Required: []string{hub.IndexReviews, hub.IndexSocial, hub.IndexSearch, hub.IndexTrends},
	},
	hub.TileCompetitiveAdvantage: {
		Terms:    []Term{{Name: "competition", Weight: 0.6}, {Name: "pricing_consistency", Weight: 0.4}},
		Required: []string{hub.IndexCompetitors, hub.IndexPricing},
	},
	hub.TileRiskAssessment: {
		Terms: []Term{
			{Name: "competitive_pressure", Label: "(100−competition)", Weight: 0.4},
			{Name: "negative_news", Weight: 0.3},
			{Name: "dissatisfaction", Label: "(100−sentiment)", Weight: 0.3},
		},
		Required: []string{hub.IndexCompetitors, hub.IndexNews, hub.IndexReviews, hub.IndexSocial},
	},
}

// Market sizing constants. They are contractual and disclosed in every
// market_size explanation.
const (
	TAMVolumeMultiplier = 1000
	MonthsPerYear       = 12
	SAMShare            = 0.15
	SOMShare            = 0.05
	DefaultPrice        = 29.99
)

// MarketSizing holds the TAM/SAM/SOM triple.
type MarketSizing struct {
	TAM float64 `json:"tam"`
	SAM float64 `json:"sam"`
	SOM float64 `json:"som"`
}

// SizeMarket applies the fixed sizing multipliers.
func SizeMarket(searchVolume, avgPrice float64) MarketSizing {
	tam := searchVolume * TAMVolumeMultiplier * avgPrice * MonthsPerYear
	sam := SAMShare * tam
	return MarketSizing{TAM: tam, SAM: sam, SOM: SOMShare * sam}
}

// PMFScore is the product-market-fit formula over precomputed sub-scores.
func PMFScore(sentiment, competition, demand, trends float64) int {
	return Formulas[hub.TilePMFScore].Score(map[string]float64{
		"sentiment":   sentiment,
		"competition": competition,
		"demand":      demand,
		"trends":      trends,
	})
}

// Risk level thresholds.
const (
	riskHigh   = 66
	riskMedium = 33
)

// RiskLevel buckets a risk score.
func RiskLevel(score int) string {
	switch {
	case score > riskHigh:
		return "high"
	case score > riskMedium:
		return "medium"
	default:
		return "low"
	}
}

func explain(t hub.TileType, score int, detail string) string {
	f := Formulas[t]
	s := fmt.Sprintf("%s = %s = %d.", t, f.Describe(), score)
	if detail != "" {
		s += " " + detail
	}
	return s
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
