package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ hub.Recorder = (*Metrics)(nil)

func TestRecorderCounters(t *testing.T) {
	m := New()
	m.FetchCompleted(hub.SourceSerper, hub.PurposeMarketOverview, 120*time.Millisecond, nil)
	m.FetchCompleted(hub.SourceSerper, hub.PurposeMarketOverview, time.Second, errors.New("boom"))
	m.DedupeHit(hub.SourceSerpAPI)
	m.ProviderCost(hub.SourceTavily, 0.016)
	m.ProviderCost(hub.SourceReddit, 0)

	if got := testutil.ToFloat64(m.fetches.WithLabelValues("serper", "market_overview", "ok")); got != 1 {
		t.Fatalf("ok fetches = %v", got)
	}
	if got := testutil.ToFloat64(m.fetches.WithLabelValues("serper", "market_overview", "error")); got != 1 {
		t.Fatalf("error fetches = %v", got)
	}
	if got := testutil.ToFloat64(m.dedupeHits.WithLabelValues("serpapi")); got != 1 {
		t.Fatalf("dedupe hits = %v", got)
	}
	if got := testutil.ToFloat64(m.cost.WithLabelValues("tavily")); got != 0.016 {
		t.Fatalf("tavily cost = %v", got)
	}
	if n := testutil.CollectAndCount(m.cost); n != 1 {
		t.Fatalf("zero cost must not create a series, got %d", n)
	}
}

func TestCacheHooksAndHandler(t *testing.T) {
	m := New()
	h := m.CacheHooks()
	h.OnHit("memory")
	h.OnMiss()
	h.OnError("redis", "get")
	m.TileServed(hub.TilePMFScore, TileFromCache)

	if got := testutil.ToFloat64(m.cacheHits.WithLabelValues("memory")); got != 1 {
		t.Fatalf("memory hits = %v", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 1 {
		t.Fatalf("misses = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`ideahub_tile_cache_errors_total{op="get",tier="redis"} 1`,
		`ideahub_tiles_served_total{outcome="cache",tile="pmf_score"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}
