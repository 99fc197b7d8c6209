package tiles

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

const (
	defaultCitations   = 5
	highQualityRecords = 100
	medQualityRecords  = 30
)

// Synthesizer computes tiles from one immutable snapshot of the indices.
// It performs no I/O.
type Synthesizer struct {
	snap hub.Snapshot
}

// New returns a synthesizer over snap.
func New(snap hub.Snapshot) *Synthesizer { return &Synthesizer{snap: snap} }

// Synthesize is a shorthand for New(snap).Synthesize(t).
func Synthesize(t hub.TileType, snap hub.Snapshot) Output {
	return New(snap).Synthesize(t)
}

// CalculateConfidence returns round(100·filled/required) over the named indices.
func (s *Synthesizer) CalculateConfidence(required []string) int {
	if len(required) == 0 {
		return 0
	}
	filled := 0
	for _, ix := range required {
		if s.snap.Filled(ix) {
			filled++
		}
	}
	return int(math.Round(100 * float64(filled) / float64(len(required))))
}

// AssessDataQuality grades the total record count across the primary indices.
func (s *Synthesizer) AssessDataQuality() Quality {
	n := len(s.snap.Search) + len(s.snap.News) + len(s.snap.Competitors) + len(s.snap.Reviews) + len(s.snap.Social)
	switch {
	case n > highQualityRecords:
		return QualityHigh
	case n > medQualityRecords:
		return QualityMedium
	default:
		return QualityLow
	}
}

// TopCitations returns up to count evidence entries tagged with category,
// highest confidence first.
func (s *Synthesizer) TopCitations(category string, count int) []Citation {
	var matched []hub.Evidence
	for _, e := range s.snap.Evidence {
		for _, ref := range e.TileReferences {
			if ref == category {
				matched = append(matched, e)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Confidence > matched[j].Confidence })
	if count >= 0 && len(matched) > count {
		matched = matched[:count]
	}
	out := make([]Citation, len(matched))
	for i, e := range matched {
		out[i] = Citation{ID: e.ID, URL: e.URL, Title: e.Title, Source: e.Source, Snippet: e.Snippet, Confidence: e.Confidence}
	}
	return out
}

// Synthesize computes tile t. Unknown tile types yield an empty output.
func (s *Synthesizer) Synthesize(t hub.TileType) Output {
	f, ok := Formulas[t]
	if !ok {
		return Output{
			Tile:        t,
			Metrics:     map[string]any{},
			Explanation: fmt.Sprintf("Unknown tile type %q.", t),
			Citations:   []Citation{},
			Charts:      []ChartData{},
			JSON:        map[string]any{},
			DataQuality: QualityLow,
		}
	}
	if !f.ScoresWithoutData && s.insufficient(t, f) {
		return sentinel(t)
	}

	var out Output
	switch t {
	case hub.TilePMFScore:
		out = s.pmf()
	case hub.TileMarketSize:
		out = s.marketSize()
	case hub.TileCompetition:
		out = s.competition()
	case hub.TileSentiment:
		out = s.sentiment()
	case hub.TileMarketTrends:
		out = s.marketTrends()
	case hub.TileGoogleTrends:
		out = s.googleTrends()
	case hub.TileWebSearch:
		out = s.webSearch()
	case hub.TileRedditSentiment:
		out = s.platform(t, "reddit", "Reddit")
	case hub.TileTwitterBuzz:
		out = s.platform(t, "twitter", "Twitter/X")
	case hub.TileGrowthPotential:
		out = s.growth()
	case hub.TileMarketReadiness:
		out = s.readiness()
	case hub.TileCompetitiveAdvantage:
		out = s.advantage()
	case hub.TileRiskAssessment:
		out = s.risk()
	}
	out.Tile = t
	out.Confidence = s.CalculateConfidence(f.Required)
	out.DataQuality = s.AssessDataQuality()
	out.Citations = s.TopCitations(string(t), defaultCitations)
	if out.Charts == nil {
		out.Charts = []ChartData{}
	}
	return out
}

func (s *Synthesizer) insufficient(t hub.TileType, f Formula) bool {
	switch t {
	case hub.TileRedditSentiment:
		return len(s.snap.SocialOn("reddit")) == 0
	case hub.TileTwitterBuzz:
		return len(s.snap.SocialOn("twitter")) == 0
	}
	for _, ix := range f.Required {
		if s.snap.Filled(ix) {
			return false
		}
	}
	return true
}

func (s *Synthesizer) pmf() Output {
	v := map[string]float64{
		"sentiment":   SentimentScore(s.snap),
		"competition": CompetitionScore(s.snap),
		"demand":      DemandScore(s.snap),
		"trends":      TrendsScore(s.snap),
	}
	score := Formulas[hub.TilePMFScore].Score(v)
	metrics := scoreMetrics(score, v)
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TilePMFScore, score, "Sentiment and trends default to 50 when no data is available."),
		Charts:      []ChartData{componentChart("PMF components", v, "sentiment", "competition", "demand", "trends")},
		JSON:        metrics,
	}
}

func (s *Synthesizer) marketSize() Output {
	volume := float64(len(s.snap.Search))
	price := AveragePricing(s.snap)
	m := SizeMarket(volume, price)
	metrics := map[string]any{
		"tam":           math.Round(m.TAM),
		"sam":           math.Round(m.SAM),
		"som":           math.Round(m.SOM),
		"search_volume": volume,
		"avg_price":     round2(price),
		"price_points":  len(s.snap.Prices),
		"currency":      "USD",
	}
	return Output{
		Metrics: metrics,
		Explanation: fmt.Sprintf(
			"TAM = searchVolume × %d × avgPrice × %d = %.0f (searchVolume %.0f, avgPrice $%.2f). SAM = %.2f × TAM = %.0f. SOM = %.2f × SAM = %.0f. These multipliers are fixed assumptions; avgPrice defaults to $%.2f without pricing data.",
			TAMVolumeMultiplier, MonthsPerYear, m.TAM, volume, price, SAMShare, m.SAM, SOMShare, m.SOM, DefaultPrice),
		Charts: []ChartData{{Type: "bar", Title: "Market size (USD)", Labels: []string{"TAM", "SAM", "SOM"}, Values: []float64{math.Round(m.TAM), math.Round(m.SAM), math.Round(m.SOM)}}},
		JSON:   metrics,
	}
}

func (s *Synthesizer) competition() Output {
	v := map[string]float64{"competition": CompetitionScore(s.snap)}
	score := Formulas[hub.TileCompetition].Score(v)
	names := make([]string, 0, len(s.snap.Competitors))
	list := make([]map[string]any, 0, len(s.snap.Competitors))
	for _, c := range s.snap.Competitors {
		names = append(names, c.Name)
		list = append(list, map[string]any{"name": c.Name, "url": c.URL, "pricing": c.Pricing, "features": c.Features})
	}
	metrics := map[string]any{"score": score, "competitor_count": len(s.snap.Competitors), "competitors": names}
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileCompetition, score, fmt.Sprintf("competition = max(0, 100 − 10 × %d competitors).", len(s.snap.Competitors))),
		JSON:        map[string]any{"score": score, "competitors": list},
	}
}

func (s *Synthesizer) sentiment() Output {
	var c toneCounts
	for _, r := range s.snap.Reviews {
		c.add(r.Sentiment)
	}
	for _, r := range s.snap.Social {
		c.add(r.Sentiment)
	}
	v := map[string]float64{"sentiment": SentimentScore(s.snap)}
	score := Formulas[hub.TileSentiment].Score(v)
	metrics := map[string]any{"score": score, "positive": c.Positive, "neutral": c.Neutral, "negative": c.Negative, "total": c.total()}
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileSentiment, score, fmt.Sprintf("sentiment = 100 × positive / total over %d reviews and posts; 50 when none.", c.total())),
		Charts:      []ChartData{toneChart("Sentiment breakdown", c)},
		JSON:        metrics,
	}
}

func (s *Synthesizer) marketTrends() Output {
	v := map[string]float64{"trends": TrendsScore(s.snap), "news_momentum": NewsMomentum(s.snap)}
	score := Formulas[hub.TileMarketTrends].Score(v)
	var news toneCounts
	for _, n := range s.snap.News {
		news.add(n.Tone)
	}
	metrics := scoreMetrics(score, v)
	metrics["direction"] = trendDirection(s.snap.Trends)
	metrics["news_count"] = len(s.snap.News)
	metrics["news_tone"] = news
	out := Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileMarketTrends, score, "news_momentum = min(100, 10 × news articles)."),
		JSON:        metrics,
	}
	if c, ok := seriesChart("Interest over time", s.snap.Trends); ok {
		out.Charts = append(out.Charts, c)
	}
	return out
}

func (s *Synthesizer) googleTrends() Output {
	tr := s.snap.Trends
	v := map[string]float64{"trends": TrendsScore(s.snap)}
	score := Formulas[hub.TileGoogleTrends].Score(v)
	var peak, sum float64
	for _, p := range tr.InterestOverTime {
		peak = math.Max(peak, p.Value)
		sum += p.Value
	}
	metrics := map[string]any{
		"score":           score,
		"keyword":         tr.Keyword,
		"current":         tr.InterestOverTime[len(tr.InterestOverTime)-1].Value,
		"average":         round2(sum / float64(len(tr.InterestOverTime))),
		"peak":            peak,
		"direction":       trendDirection(tr),
		"related_queries": tr.RelatedQueries,
		"breakout_terms":  tr.BreakoutTerms,
	}
	c, _ := seriesChart("Search interest", tr)
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileGoogleTrends, score, fmt.Sprintf("trends = mean of the last %d interest points for %q.", trendsWindow, tr.Keyword)),
		Charts:      []ChartData{c},
		JSON:        map[string]any{"keyword": tr.Keyword, "interest_over_time": tr.InterestOverTime, "related_queries": tr.RelatedQueries, "breakout_terms": tr.BreakoutTerms},
	}
}

func (s *Synthesizer) webSearch() Output {
	v := map[string]float64{"demand": DemandScore(s.snap)}
	score := Formulas[hub.TileWebSearch].Score(v)
	results := append([]hub.SearchRecord(nil), s.snap.Search...)
	sort.SliceStable(results, func(i, j int) bool { return results[i].RelevanceScore > results[j].RelevanceScore })
	top := make([]map[string]any, 0, 10)
	for i, r := range results {
		if i == 10 {
			break
		}
		top = append(top, map[string]any{"url": r.URL, "title": r.Title, "snippet": r.Snippet, "relevance": r.RelevanceScore})
	}
	domains := topDomains(results, 5)
	metrics := map[string]any{"score": score, "result_count": len(results), "top_domains": domains}
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileWebSearch, score, fmt.Sprintf("demand = min(100, 2 × %d search results).", len(results))),
		JSON:        map[string]any{"score": score, "results": top},
	}
}

func (s *Synthesizer) platform(t hub.TileType, platform, label string) Output {
	posts := s.snap.SocialOn(platform)
	ps := statsFor(posts)
	v := map[string]float64{"volume": ps.volume(), "platform_sentiment": ps.sentiment()}
	score := Formulas[t].Score(v)
	metrics := scoreMetrics(score, v)
	metrics["posts"] = ps.Posts
	metrics["engagement"] = ps.Engagement
	metrics["positive"] = ps.Tones.Positive
	metrics["neutral"] = ps.Tones.Neutral
	metrics["negative"] = ps.Tones.Negative
	sample := make([]map[string]any, 0, 5)
	for i, p := range posts {
		if i == 5 {
			break
		}
		sample = append(sample, map[string]any{"content": p.Content, "url": p.URL, "sentiment": p.Sentiment, "engagement": p.Engagement})
	}
	return Output{
		Metrics:     metrics,
		Explanation: explain(t, score, fmt.Sprintf("%s volume = min(100, 10 × %d posts).", label, ps.Posts)),
		Charts:      []ChartData{toneChart(label+" sentiment", ps.Tones)},
		JSON:        map[string]any{"score": score, "posts": sample},
	}
}

func (s *Synthesizer) growth() Output {
	v := map[string]float64{"trends": TrendsScore(s.snap), "demand": DemandScore(s.snap), "news_momentum": NewsMomentum(s.snap)}
	score := Formulas[hub.TileGrowthPotential].Score(v)
	metrics := scoreMetrics(score, v)
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileGrowthPotential, score, ""),
		Charts:      []ChartData{componentChart("Growth drivers", v, "trends", "demand", "news_momentum")},
		JSON:        metrics,
	}
}

func (s *Synthesizer) readiness() Output {
	v := map[string]float64{"sentiment": SentimentScore(s.snap), "demand": DemandScore(s.snap), "trends": TrendsScore(s.snap)}
	score := Formulas[hub.TileMarketReadiness].Score(v)
	metrics := scoreMetrics(score, v)
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileMarketReadiness, score, ""),
		Charts:      []ChartData{componentChart("Readiness signals", v, "sentiment", "demand", "trends")},
		JSON:        metrics,
	}
}

func (s *Synthesizer) advantage() Output {
	v := map[string]float64{"competition": CompetitionScore(s.snap), "pricing_consistency": PricingConsistency(s.snap)}
	score := Formulas[hub.TileCompetitiveAdvantage].Score(v)
	metrics := scoreMetrics(score, v)
	metrics["avg_price"] = round2(AveragePricing(s.snap))
	metrics["price_points"] = len(s.snap.Prices)
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileCompetitiveAdvantage, score, "pricing_consistency = 100 × (1 − coefficient of variation of prices); 50 with fewer than two prices."),
		JSON:        metrics,
	}
}

func (s *Synthesizer) risk() Output {
	competition, sentiment := CompetitionScore(s.snap), SentimentScore(s.snap)
	v := map[string]float64{
		"competitive_pressure": 100 - competition,
		"negative_news":        NegativeNewsPct(s.snap),
		"dissatisfaction":      100 - sentiment,
	}
	score := Formulas[hub.TileRiskAssessment].Score(v)
	level := RiskLevel(score)
	metrics := scoreMetrics(score, v)
	metrics["level"] = level
	var factors []string
	if v["competitive_pressure"] > riskHigh {
		factors = append(factors, "crowded market")
	}
	if v["negative_news"] > riskMedium {
		factors = append(factors, "negative press")
	}
	if v["dissatisfaction"] > riskHigh {
		factors = append(factors, "weak user sentiment")
	}
	metrics["factors"] = factors
	return Output{
		Metrics:     metrics,
		Explanation: explain(hub.TileRiskAssessment, score, fmt.Sprintf("Risk is %s (high above %d, medium above %d).", level, riskHigh, riskMedium)),
		Charts:      []ChartData{componentChart("Risk factors", v, "competitive_pressure", "negative_news", "dissatisfaction")},
		JSON:        metrics,
	}
}

func scoreMetrics(score int, v map[string]float64) map[string]any {
	m := make(map[string]any, len(v)+1)
	m["score"] = score
	for k, x := range v {
		m[k] = round2(x)
	}
	return m
}

func componentChart(title string, v map[string]float64, keys ...string) ChartData {
	c := ChartData{Type: "bar", Title: title, Labels: keys, Values: make([]float64, len(keys))}
	for i, k := range keys {
		c.Values[i] = round2(v[k])
	}
	return c
}

func toneChart(title string, c toneCounts) ChartData {
	return ChartData{
		Type:   "pie",
		Title:  title,
		Labels: []string{"positive", "neutral", "negative"},
		Values: []float64{float64(c.Positive), float64(c.Neutral), float64(c.Negative)},
	}
}

func seriesChart(title string, tr *hub.TrendsMetrics) (ChartData, bool) {
	if tr == nil || len(tr.InterestOverTime) == 0 {
		return ChartData{}, false
	}
	c := ChartData{Type: "line", Title: title}
	for _, p := range tr.InterestOverTime {
		c.Labels = append(c.Labels, p.Date)
		c.Values = append(c.Values, p.Value)
	}
	return c, true
}

func trendDirection(tr *hub.TrendsMetrics) string {
	if tr == nil || len(tr.InterestOverTime) < 2 {
		return "flat"
	}
	first := tr.InterestOverTime[0].Value
	last := tr.InterestOverTime[len(tr.InterestOverTime)-1].Value
	switch {
	case last > first*1.1:
		return "rising"
	case last < first*0.9:
		return "falling"
	default:
		return "flat"
	}
}

func topDomains(results []hub.SearchRecord, n int) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range results {
		u, err := url.Parse(r.URL)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		if counts[host] == 0 {
			order = append(order, host)
		}
		counts[host]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
