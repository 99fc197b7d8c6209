package hub

// TileType identifies one dashboard analysis dimension. Evidence tile
// references use these keys.
type TileType string

const (
	TilePMFScore             TileType = "pmf_score"
	TileMarketSize           TileType = "market_size"
	TileCompetition          TileType = "competition"
	TileSentiment            TileType = "sentiment"
	TileMarketTrends         TileType = "market_trends"
	TileGoogleTrends         TileType = "google_trends"
	TileWebSearch            TileType = "web_search"
	TileRedditSentiment      TileType = "reddit_sentiment"
	TileTwitterBuzz          TileType = "twitter_buzz"
	TileGrowthPotential      TileType = "growth_potential"
	TileMarketReadiness      TileType = "market_readiness"
	TileCompetitiveAdvantage TileType = "competitive_advantage"
	TileRiskAssessment       TileType = "risk_assessment"
)

// TileTypes returns every known tile type in dashboard order.
func TileTypes() []TileType {
	return []TileType{
		TilePMFScore, TileMarketSize, TileCompetition, TileSentiment,
		TileMarketTrends, TileGoogleTrends, TileWebSearch, TileRedditSentiment,
		TileTwitterBuzz, TileGrowthPotential, TileMarketReadiness,
		TileCompetitiveAdvantage, TileRiskAssessment,
	}
}

// Known reports whether t is one of TileTypes.
func (t TileType) Known() bool {
	for _, k := range TileTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// purposeTiles lists the tiles that evidence promoted from a purpose supports.
var purposeTiles = map[string][]TileType{
	PurposeMarketOverview:     {TileWebSearch, TileMarketSize, TilePMFScore, TileMarketReadiness},
	PurposeCompetitorSearch:   {TileCompetition, TileCompetitiveAdvantage, TileRiskAssessment},
	PurposePricingSearch:      {TileMarketSize, TileCompetitiveAdvantage},
	PurposeCompetitorDeep:     {TileCompetition, TileCompetitiveAdvantage},
	PurposePricingDeep:        {TileMarketSize, TileCompetitiveAdvantage},
	PurposeMarketAnalysis:     {TileMarketSize, TileGrowthPotential, TileWebSearch},
	PurposeNewsRecent:         {TileMarketTrends, TileRiskAssessment},
	PurposeNewsTrends:         {TileMarketTrends, TileGrowthPotential},
	PurposeRedditSentiment:    {TileRedditSentiment, TileSentiment, TilePMFScore},
	PurposeTwitterBuzz:        {TileTwitterBuzz, TileSentiment},
	PurposeMarketSize:         {TileGoogleTrends, TileMarketSize, TileGrowthPotential},
	PurposeCompetitorDeepDive: {TileCompetition, TileCompetitiveAdvantage, TileRiskAssessment},
}

// TilesForPurpose returns the tile keys evidence from purpose is tagged with.
func TilesForPurpose(purpose string) []string {
	tiles := purposeTiles[purpose]
	out := make([]string, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, string(t))
	}
	return out
}
