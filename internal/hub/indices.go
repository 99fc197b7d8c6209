package hub

import (
	"sort"
	"sync"
)

// Index names used by confidence calculations.
const (
	IndexSearch      = "search"
	IndexNews        = "news"
	IndexCompetitors = "competitors"
	IndexReviews     = "reviews"
	IndexSocial      = "social"
	IndexPricing     = "pricing"
	IndexTrends      = "trends"
	IndexEvidence    = "evidence"
)

// collection is an append-only slice with its own lock, so concurrent fetch
// tasks writing to different indices never contend.
type collection[T any] struct {
	mu    sync.Mutex
	items []T
}

func (c *collection[T]) add(items ...T) {
	if len(items) == 0 {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, items...)
	c.mu.Unlock()
}

func (c *collection[T]) snapshot() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Indices is the run-scoped data hub shared by all fetch tasks of one
// orchestration. It is discarded wholesale on the next run.
type Indices struct {
	search      collection[SearchRecord]
	news        collection[NewsRecord]
	competitors collection[CompetitorRecord]
	reviews     collection[ReviewRecord]
	social      collection[SocialRecord]
	prices      collection[PriceRecord]
	evidence    collection[Evidence]

	trendsMu sync.Mutex
	trends   []rankedTrends

	logMu sync.Mutex
	log   ProviderLog
}

// NewIndices returns empty indices.
func NewIndices() *Indices { return &Indices{} }

func (ix *Indices) AddSearch(r ...SearchRecord)          { ix.search.add(r...) }
func (ix *Indices) AddNews(r ...NewsRecord)              { ix.news.add(r...) }
func (ix *Indices) AddCompetitors(r ...CompetitorRecord) { ix.competitors.add(r...) }
func (ix *Indices) AddReviews(r ...ReviewRecord)         { ix.reviews.add(r...) }
func (ix *Indices) AddSocial(r ...SocialRecord)          { ix.social.add(r...) }
func (ix *Indices) AddPrices(r ...PriceRecord)           { ix.prices.add(r...) }
func (ix *Indices) AddEvidence(e ...Evidence)            { ix.evidence.add(e...) }

type rankedTrends struct {
	rank int
	t    TrendsMetrics
}

// MergeTrends records a series contributed by the plan item at position
// rank. Series are folded in rank order when the indices are read, so the
// outcome never depends on which fetch finished first.
func (ix *Indices) MergeTrends(rank int, t TrendsMetrics) {
	cp := t
	cp.InterestOverTime = append([]TrendPoint(nil), t.InterestOverTime...)
	cp.RelatedQueries = append([]string(nil), t.RelatedQueries...)
	cp.BreakoutTerms = append([]string(nil), t.BreakoutTerms...)
	ix.trendsMu.Lock()
	ix.trends = append(ix.trends, rankedTrends{rank: rank, t: cp})
	ix.trendsMu.Unlock()
}

// foldTrends builds TRENDS_METRICS: the lowest-ranked series with points is
// canonical and every series contributes its related and breakout terms.
func foldTrends(series []rankedTrends) *TrendsMetrics {
	if len(series) == 0 {
		return nil
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].rank < series[j].rank })
	var out *TrendsMetrics
	var related, breakout []string
	for _, s := range series {
		related = appendUnique(related, s.t.RelatedQueries...)
		breakout = appendUnique(breakout, s.t.BreakoutTerms...)
		if out == nil || (len(out.InterestOverTime) == 0 && len(s.t.InterestOverTime) > 0) {
			t := s.t
			t.InterestOverTime = append([]TrendPoint(nil), s.t.InterestOverTime...)
			out = &t
		}
	}
	out.RelatedQueries = related
	out.BreakoutTerms = breakout
	return out
}

// LogFailure appends a per-failure PROVIDER_LOG entry.
func (ix *Indices) LogFailure(f ProviderFailure) {
	ix.logMu.Lock()
	ix.log.Failures = append(ix.log.Failures, f)
	ix.logMu.Unlock()
}

// LogSummary appends a per-provider PROVIDER_LOG summary.
func (ix *Indices) LogSummary(s ProviderSummary) {
	ix.logMu.Lock()
	ix.log.Summaries = append(ix.log.Summaries, s)
	ix.logMu.Unlock()
}

// Snapshot copies the current state of every index.
func (ix *Indices) Snapshot() Snapshot {
	s := Snapshot{
		Search:      ix.search.snapshot(),
		News:        ix.news.snapshot(),
		Competitors: ix.competitors.snapshot(),
		Reviews:     ix.reviews.snapshot(),
		Social:      ix.social.snapshot(),
		Prices:      ix.prices.snapshot(),
		Evidence:    ix.evidence.snapshot(),
	}
	ix.trendsMu.Lock()
	s.Trends = foldTrends(append([]rankedTrends(nil), ix.trends...))
	ix.trendsMu.Unlock()
	ix.logMu.Lock()
	s.ProviderLog = ProviderLog{
		Summaries: append([]ProviderSummary(nil), ix.log.Summaries...),
		Failures:  append([]ProviderFailure(nil), ix.log.Failures...),
	}
	ix.logMu.Unlock()
	return s
}

// Snapshot is an immutable copy of the indices consumed by tile synthesis.
type Snapshot struct {
	Search      []SearchRecord     `json:"search"`
	News        []NewsRecord       `json:"news"`
	Competitors []CompetitorRecord `json:"competitors"`
	Reviews     []ReviewRecord     `json:"reviews"`
	Social      []SocialRecord     `json:"social"`
	Prices      []PriceRecord      `json:"prices"`
	Trends      *TrendsMetrics     `json:"trends,omitempty"`
	Evidence    []Evidence         `json:"evidence"`
	ProviderLog ProviderLog        `json:"provider_log"`
}

// Filled reports whether the named index holds at least one record.
// Unknown names are never filled.
func (s Snapshot) Filled(index string) bool {
	switch index {
	case IndexSearch:
		return len(s.Search) > 0
	case IndexNews:
		return len(s.News) > 0
	case IndexCompetitors:
		return len(s.Competitors) > 0
	case IndexReviews:
		return len(s.Reviews) > 0
	case IndexSocial:
		return len(s.Social) > 0
	case IndexPricing:
		return len(s.Prices) > 0
	case IndexTrends:
		return s.Trends != nil && len(s.Trends.InterestOverTime) > 0
	case IndexEvidence:
		return len(s.Evidence) > 0
	default:
		return false
	}
}

// SocialOn returns the social records of one platform.
func (s Snapshot) SocialOn(platform string) []SocialRecord {
	var out []SocialRecord
	for _, r := range s.Social {
		if r.Platform == platform {
			out = append(out, r)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
