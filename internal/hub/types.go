package hub

import (
	"context"
	"time"
)

// Source names a data provider a fetch plan item is routed to.
type Source string

const (
	SourceSerper     Source = "serper"
	SourceScraperAPI Source = "scraperapi"
	SourceBrave      Source = "brave"
	SourceTavily     Source = "tavily"
	SourceSerpAPI    Source = "serpapi"
	SourceFirecrawl  Source = "firecrawl"
	SourceReddit     Source = "reddit"
)

// Sources lists every provider the planner knows about, in plan order.
func Sources() []Source {
	return []Source{SourceSerper, SourceScraperAPI, SourceBrave, SourceTavily, SourceSerpAPI, SourceFirecrawl, SourceReddit}
}

// Purpose tags route a fetch result into the indices.
const (
	PurposeMarketOverview     = "market_overview"
	PurposeCompetitorSearch   = "competitor_search"
	PurposePricingSearch      = "pricing_search"
	PurposeCompetitorDeep     = "competitor_deep"
	PurposePricingDeep        = "pricing_deep"
	PurposeMarketAnalysis     = "market_analysis"
	PurposeNewsRecent         = "news_recent"
	PurposeNewsTrends         = "news_trends"
	PurposeRedditSentiment    = "reddit_sentiment"
	PurposeTwitterBuzz        = "twitter_buzz"
	PurposeMarketSize         = "market_size"
	PurposeCompetitorDeepDive = "competitor_deep_dive"
)

// Priorities attached to plan templates. Lower is more important.
const (
	PriorityCore        = 1
	PrioritySecondary   = 2
	PriorityExploratory = 3
)

// InputDescriptor describes the idea being validated. It must not be
// modified after a plan has been built from it.
type InputDescriptor struct {
	Idea             string   `json:"idea"`
	TargetMarkets    []string `json:"target_markets,omitempty"`
	AudienceProfiles []string `json:"audience_profiles,omitempty"`
	Geos             []string `json:"geos,omitempty"`
	TimeHorizon      string   `json:"time_horizon,omitempty"`
	CompetitorHints  []string `json:"competitor_hints,omitempty"`
}

// FetchPlanItem is one planned request to a provider.
type FetchPlanItem struct {
	ID           string   `json:"id"`
	Source       Source   `json:"source"`
	Purpose      string   `json:"purpose"`
	Query        string   `json:"query"`
	DedupeKey    string   `json:"dedupe_key"`
	Dependencies []string `json:"dependencies,omitempty"`
	Priority     int      `json:"priority"`
}

// Tone is the coarse sentiment label carried by news, review and social records.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNeutral  Tone = "neutral"
	ToneNegative Tone = "negative"
)

// SearchRecord is an entry of SEARCH_INDEX.
type SearchRecord struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Snippet        string    `json:"snippet"`
	Source         Source    `json:"source"`
	Purpose        string    `json:"purpose"`
	FetchedAt      time.Time `json:"fetched_at"`
	RelevanceScore float64   `json:"relevance_score"`
	PlanItemID     string    `json:"plan_item_id"`
}

// NewsRecord is an entry of NEWS_INDEX.
type NewsRecord struct {
	Publisher      string    `json:"publisher"`
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	PublishedDate  time.Time `json:"published_date"`
	Tone           Tone      `json:"tone"`
	Snippet        string    `json:"snippet"`
	RelevanceScore float64   `json:"relevance_score"`
	PlanItemID     string    `json:"plan_item_id"`
}

// CompetitorRecord is an entry of COMPETITOR_INDEX.
type CompetitorRecord struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Pricing     string    `json:"pricing,omitempty"`
	Features    []string  `json:"features,omitempty"`
	Claims      []string  `json:"claims,omitempty"`
	Traction    string    `json:"traction,omitempty"`
	MarketShare *float64  `json:"market_share,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	PlanItemID  string    `json:"plan_item_id"`
}

// ReviewRecord is an entry of REVIEWS_INDEX.
type ReviewRecord struct {
	Source     Source  `json:"source"`
	Author     string  `json:"author,omitempty"`
	Content    string  `json:"content"`
	Rating     float64 `json:"rating,omitempty"`
	Sentiment  Tone    `json:"sentiment"`
	URL        string  `json:"url,omitempty"`
	PlanItemID string  `json:"plan_item_id"`
}

// SocialRecord is an entry of SOCIAL_INDEX.
type SocialRecord struct {
	Source     Source    `json:"source"`
	Platform   string    `json:"platform"`
	Content    string    `json:"content"`
	URL        string    `json:"url,omitempty"`
	Author     string    `json:"author,omitempty"`
	Engagement int       `json:"engagement"`
	Sentiment  Tone      `json:"sentiment"`
	Date       time.Time `json:"date"`
	PlanItemID string    `json:"plan_item_id"`
}

// PriceRecord is an entry of PRICE_INDEX.
type PriceRecord struct {
	Source     Source  `json:"source"`
	Product    string  `json:"product,omitempty"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	URL        string  `json:"url,omitempty"`
	PlanItemID string  `json:"plan_item_id"`
}

// TrendPoint is one sample of an interest-over-time series.
type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// TrendsMetrics is the single TRENDS_METRICS series.
type TrendsMetrics struct {
	Keyword          string       `json:"keyword"`
	InterestOverTime []TrendPoint `json:"interest_over_time"`
	RelatedQueries   []string     `json:"related_queries,omitempty"`
	BreakoutTerms    []string     `json:"breakout_terms,omitempty"`
	PlanItemID       string       `json:"plan_item_id"`
}

// Evidence is a citation-grade record derived from fetched data.
type Evidence struct {
	ID             string   `json:"id"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Source         Source   `json:"source"`
	Snippet        string   `json:"snippet"`
	Confidence     float64  `json:"confidence"`
	TileReferences []string `json:"tile_references"`
}

// ProviderSummary is the per-provider PROVIDER_LOG entry emitted after a run.
type ProviderSummary struct {
	Provider      Source    `json:"provider"`
	RequestCount  int       `json:"request_count"`
	DedupeCount   int       `json:"dedupe_count"`
	EstimatedCost float64   `json:"estimated_cost"`
	Timestamp     time.Time `json:"timestamp"`
}

// ProviderFailure records one failed fetch.
type ProviderFailure struct {
	Provider  Source    `json:"provider"`
	Purpose   string    `json:"purpose"`
	Query     string    `json:"query"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ProviderLog is PROVIDER_LOG.
type ProviderLog struct {
	Summaries []ProviderSummary `json:"summaries"`
	Failures  []ProviderFailure `json:"failures"`
}

// OrganicResult is a generic organic search hit as returned by an adapter.
type OrganicResult struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Position int     `json:"position"`
	Score    float64 `json:"score,omitempty"`
}

// NewsArticle is a news hit as returned by an adapter.
type NewsArticle struct {
	Publisher     string    `json:"publisher"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"published_date"`
	Snippet       string    `json:"snippet"`
}

// Payload is the canonical shape every provider adapter maps its wire
// response into. Empty fields mean the provider had nothing of that kind.
type Payload struct {
	Organic     []OrganicResult    `json:"organic,omitempty"`
	News        []NewsArticle      `json:"news,omitempty"`
	Social      []SocialRecord     `json:"social,omitempty"`
	Reviews     []ReviewRecord     `json:"reviews,omitempty"`
	Prices      []PriceRecord      `json:"prices,omitempty"`
	Competitors []CompetitorRecord `json:"competitors,omitempty"`
	Trends      *TrendsMetrics     `json:"trends,omitempty"`
}

// Empty reports whether the payload carries no records at all.
func (p Payload) Empty() bool {
	return len(p.Organic) == 0 && len(p.News) == 0 && len(p.Social) == 0 &&
		len(p.Reviews) == 0 && len(p.Prices) == 0 && len(p.Competitors) == 0 &&
		(p.Trends == nil || len(p.Trends.InterestOverTime) == 0)
}

// Fetcher is implemented by every provider adapter.
type Fetcher interface {
	Fetch(ctx context.Context, query, purpose string) (Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, query, purpose string) (Payload, error)

func (f FetcherFunc) Fetch(ctx context.Context, query, purpose string) (Payload, error) {
	return f(ctx, query, purpose)
}

// ToneClassifier labels free text with a Tone. Implementations must return
// one label per input text.
type ToneClassifier interface {
	Classify(ctx context.Context, texts []string) ([]Tone, error)
}
