package tiles

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

func TestCalculateConfidenceSearchOnly(t *testing.T) {
	s := New(hub.Snapshot{})
	if got := s.CalculateConfidence([]string{hub.IndexSearch}); got != 0 {
		t.Fatalf("empty search: confidence = %d, want 0", got)
	}
	s = New(hub.Snapshot{Search: []hub.SearchRecord{{URL: "https://a.example"}}})
	if got := s.CalculateConfidence([]string{hub.IndexSearch}); got != 100 {
		t.Fatalf("one search result: confidence = %d, want 100", got)
	}
	if got := s.CalculateConfidence([]string{hub.IndexSearch, hub.IndexNews, hub.IndexPricing}); got != 33 {
		t.Fatalf("one of three filled: confidence = %d, want 33", got)
	}
}

func TestPMFScoreBoundsAndFormula(t *testing.T) {
	steps := []float64{0, 1, 17.5, 33, 50, 66.6, 99, 100}
	for _, se := range steps {
		for _, c := range steps {
			for _, d := range steps {
				for _, tr := range steps {
					got := PMFScore(se, c, d, tr)
					want := int(math.Round(0.3*se + 0.2*c + 0.3*d + 0.2*tr))
					if got != want || got < 0 || got > 100 {
						t.Fatalf("PMFScore(%v,%v,%v,%v) = %d, want %d", se, c, d, tr, got, want)
					}
				}
			}
		}
	}
}

func TestSizeMarketOrdering(t *testing.T) {
	for _, volume := range []float64{1, 7, 250} {
		for _, price := range []float64{0.99, 29.99, 499} {
			m := SizeMarket(volume, price)
			if !(m.TAM > m.SAM && m.SAM > m.SOM && m.SOM > 0) {
				t.Fatalf("ordering violated for volume=%v price=%v: %+v", volume, price, m)
			}
			if m.TAM != volume*1000*price*12 {
				t.Fatalf("unexpected TAM %v", m.TAM)
			}
		}
	}
}

func TestGoogleTrendsSentinel(t *testing.T) {
	snap := hub.Snapshot{Trends: &hub.TrendsMetrics{Keyword: "walking", InterestOverTime: []hub.TrendPoint{}}}
	out := Synthesize(hub.TileGoogleTrends, snap)
	want := map[string]any{"error": "insufficient_data", "tile": "google_trends"}
	if !reflect.DeepEqual(out.JSON, want) {
		t.Fatalf("json = %#v, want %#v", out.JSON, want)
	}
	if out.Confidence != 0 || out.DataQuality != QualityLow || !out.InsufficientData() {
		t.Fatalf("unexpected sentinel %+v", out)
	}
}

func TestMarketSizeEmptyIndices(t *testing.T) {
	out := Synthesize(hub.TileMarketSize, hub.Snapshot{})
	if out.InsufficientData() {
		t.Fatalf("market_size must not return the sentinel")
	}
	for _, k := range []string{"tam", "sam", "som"} {
		if out.Metrics[k] != 0.0 {
			t.Fatalf("%s = %v, want 0", k, out.Metrics[k])
		}
	}
	if out.Confidence != 0 {
		t.Fatalf("confidence = %d, want 0", out.Confidence)
	}
	for _, s := range []string{"1000", "12", "0.15", "0.05"} {
		if !strings.Contains(out.Explanation, s) {
			t.Fatalf("explanation must disclose %s: %q", s, out.Explanation)
		}
	}
}

func TestEndToEndEmptyProviders(t *testing.T) {
	in := hub.InputDescriptor{Idea: "AI powered dog walking app"}
	plan, err := hub.BuildFetchPlan(in, hub.NormalizeKeywords(in))
	if err != nil {
		t.Fatalf("BuildFetchPlan: %v", err)
	}
	fetchers := map[hub.Source]hub.Fetcher{}
	for _, s := range hub.Sources() {
		fetchers[s] = hub.FetcherFunc(func(context.Context, string, string) (hub.Payload, error) { return hub.Payload{}, nil })
	}
	res, err := hub.NewEngine(fetchers, hub.WithLogger(quietLogger())).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	out := Synthesize(hub.TileMarketSize, res.Indices.Snapshot())
	if out.Metrics["tam"] != 0.0 || out.Metrics["sam"] != 0.0 || out.Metrics["som"] != 0.0 || out.Confidence != 0 {
		t.Fatalf("unexpected market_size output %+v", out)
	}
}

func TestPartialFailureKeepsOtherTiles(t *testing.T) {
	fetchers := map[hub.Source]hub.Fetcher{
		hub.SourceSerper: hub.FetcherFunc(func(context.Context, string, string) (hub.Payload, error) {
			return hub.Payload{}, errors.New("serper down")
		}),
		hub.SourceBrave: hub.FetcherFunc(func(context.Context, string, string) (hub.Payload, error) {
			return hub.Payload{News: []hub.NewsArticle{{Title: "Dog walking startups raise funding", URL: "https://news.example/1"}}}, nil
		}),
		hub.SourceTavily: hub.FetcherFunc(func(context.Context, string, string) (hub.Payload, error) {
			return hub.Payload{Organic: []hub.OrganicResult{{URL: "https://reddit.com/r/dogs/1", Title: "Great app", Score: 0.8}}}, nil
		}),
	}
	in := hub.InputDescriptor{Idea: "AI powered dog walking app"}
	plan, _ := hub.BuildFetchPlan(in, hub.NormalizeKeywords(in))
	res, err := hub.NewEngine(fetchers, hub.WithLogger(quietLogger())).Execute(context.Background(), plan)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	snap := res.Indices.Snapshot()
	if !snap.Filled(hub.IndexNews) || !snap.Filled(hub.IndexSocial) {
		t.Fatalf("brave and tavily indices must be populated")
	}
	for _, tile := range []hub.TileType{hub.TileSentiment, hub.TileMarketTrends, hub.TileRedditSentiment} {
		if out := Synthesize(tile, snap); out.Confidence == 0 {
			t.Fatalf("%s confidence = 0 despite available data", tile)
		}
	}
	if out := Synthesize(hub.TileWebSearch, snap); !out.InsufficientData() {
		t.Fatalf("web_search should report insufficient data without serper")
	}
}

func TestTopCitationsOrdering(t *testing.T) {
	snap := hub.Snapshot{Evidence: []hub.Evidence{
		{ID: "a", Confidence: 0.2, TileReferences: []string{"competition"}},
		{ID: "b", Confidence: 0.9, TileReferences: []string{"competition", "risk_assessment"}},
		{ID: "c", Confidence: 0.5, TileReferences: []string{"sentiment"}},
		{ID: "d", Confidence: 0.6, TileReferences: []string{"competition"}},
	}}
	got := New(snap).TopCitations("competition", 2)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "d" {
		t.Fatalf("unexpected citations %+v", got)
	}
}

func TestAssessDataQuality(t *testing.T) {
	cases := []struct {
		n    int
		want Quality
	}{{0, QualityLow}, {30, QualityLow}, {31, QualityMedium}, {100, QualityMedium}, {101, QualityHigh}}
	for _, tc := range cases {
		snap := hub.Snapshot{Search: make([]hub.SearchRecord, tc.n)}
		if got := New(snap).AssessDataQuality(); got != tc.want {
			t.Fatalf("%d records: quality = %s, want %s", tc.n, got, tc.want)
		}
	}
}

func TestUnknownTileIsEmpty(t *testing.T) {
	out := Synthesize("nope", hub.Snapshot{})
	if len(out.Metrics) != 0 || out.Confidence != 0 || out.InsufficientData() {
		t.Fatalf("unexpected output for unknown tile: %+v", out)
	}
}

func TestExplanationsQuoteWeights(t *testing.T) {
	snap := hub.Snapshot{Search: []hub.SearchRecord{{URL: "https://a.example"}}}
	out := Synthesize(hub.TilePMFScore, snap)
	if !strings.Contains(out.Explanation, "0.3·sentiment + 0.2·competition + 0.3·demand + 0.2·trends") {
		t.Fatalf("pmf explanation missing weights: %q", out.Explanation)
	}
	// priors: sentiment 50, competition 100, trends 50; demand 2 from one result
	if out.Metrics["score"] != 46 {
		t.Fatalf("pmf with priors = %v, want 46", out.Metrics["score"])
	}
	if out.Confidence != 20 {
		t.Fatalf("one of five required indices: confidence = %d, want 20", out.Confidence)
	}
}

func TestEmptySnapshotSentinels(t *testing.T) {
	for _, tile := range hub.TileTypes() {
		tile := tile
		t.Run(string(tile), func(t *testing.T) {
			out := Synthesize(tile, hub.Snapshot{})
			if out.Confidence != 0 || out.DataQuality != QualityLow {
				t.Fatalf("confidence=%d quality=%s, want 0 and low", out.Confidence, out.DataQuality)
			}
			if tile == hub.TileMarketSize {
				if out.InsufficientData() || out.Metrics["tam"] != 0.0 {
					t.Fatalf("market_size should size a zero market, got %+v", out.JSON)
				}
				return
			}
			want := map[string]any{"error": "insufficient_data", "tile": string(tile)}
			if !reflect.DeepEqual(out.JSON, want) {
				t.Fatalf("json = %#v, want %#v", out.JSON, want)
			}
			if _, ok := out.Metrics["score"]; ok {
				t.Fatalf("sentinel must not carry a score: %+v", out.Metrics)
			}
		})
	}
}

func TestReviewsAloneFeedSentimentTiles(t *testing.T) {
	snap := hub.Snapshot{Reviews: []hub.ReviewRecord{{Sentiment: hub.TonePositive}}}
	for _, tile := range []hub.TileType{hub.TileSentiment, hub.TilePMFScore, hub.TileMarketReadiness, hub.TileRiskAssessment} {
		out := Synthesize(tile, snap)
		if out.InsufficientData() || out.Confidence == 0 {
			t.Fatalf("%s ignored the reviews index: %+v", tile, out)
		}
	}
	if out := Synthesize(hub.TileCompetition, snap); !out.InsufficientData() {
		t.Fatalf("competition has no competitor data and should report it")
	}
}

func TestRiskAssessmentLevels(t *testing.T) {
	if RiskLevel(67) != "high" || RiskLevel(66) != "medium" || RiskLevel(34) != "medium" || RiskLevel(33) != "low" {
		t.Fatalf("risk thresholds are off")
	}
	snap := hub.Snapshot{
		Competitors: make([]hub.CompetitorRecord, 10),
		News:        []hub.NewsRecord{{Tone: hub.ToneNegative}, {Tone: hub.ToneNegative}},
		Social:      []hub.SocialRecord{{Sentiment: hub.ToneNegative}},
	}
	out := Synthesize(hub.TileRiskAssessment, snap)
	if out.Metrics["score"] != 100 || out.Metrics["level"] != "high" {
		t.Fatalf("unexpected risk %+v", out.Metrics)
	}
}

func TestPricingConsistency(t *testing.T) {
	one := hub.Snapshot{Prices: []hub.PriceRecord{{Price: 10}}}
	if PricingConsistency(one) != 50 {
		t.Fatalf("single price should use the prior")
	}
	same := hub.Snapshot{Prices: []hub.PriceRecord{{Price: 10}, {Price: 10}}}
	if PricingConsistency(same) != 100 {
		t.Fatalf("identical prices should be fully consistent")
	}
	spread := hub.Snapshot{Prices: []hub.PriceRecord{{Price: 10}, {Price: 30}}}
	if PricingConsistency(spread) != 50 {
		t.Fatalf("cv 0.5 should give 50, got %v", PricingConsistency(spread))
	}
}

func TestTrendsScoreLastThree(t *testing.T) {
	snap := hub.Snapshot{Trends: &hub.TrendsMetrics{InterestOverTime: []hub.TrendPoint{{Value: 0}, {Value: 10}, {Value: 20}, {Value: 30}}}}
	if TrendsScore(snap) != 20 {
		t.Fatalf("TrendsScore = %v, want 20", TrendsScore(snap))
	}
}
