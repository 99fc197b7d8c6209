// Package metrics exposes prometheus collectors for provider fetches, dedup,
// estimated cost, the tile cache and tile synthesis.
package metrics

import (
	"net/http"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/cache"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ideahub"

// Tile outcomes reported by TileServed.
const (
	TileFromCache    = "cache"
	TileFresh        = "fresh"
	TileInsufficient = "insufficient"
)

// Metrics owns its registry so tests and multiple servers never collide on
// the global one.
type Metrics struct {
	registry *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	dedupeHits    *prometheus.CounterVec
	cost          *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   prometheus.Counter
	cacheErrors   *prometheus.CounterVec
	tiles         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "provider_fetches_total",
			Help: "Provider fetches by provider, purpose and outcome.",
		}, []string{"provider", "purpose", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "provider_fetch_duration_seconds",
			Help:    "Provider fetch latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"provider"}),
		dedupeHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "plan_dedupe_hits_total",
			Help: "Plan items served by another item's fetch.",
		}, []string{"provider"}),
		cost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "provider_estimated_cost_usd_total",
			Help: "Estimated provider spend.",
		}, []string{"provider"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tile_cache_hits_total",
			Help: "Tile cache hits by tier.",
		}, []string{"tier"}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tile_cache_misses_total",
			Help: "Tile cache lookups that missed every tier.",
		}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tile_cache_errors_total",
			Help: "Tile cache tier failures by operation.",
		}, []string{"tier", "op"}),
		tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "tiles_served_total",
			Help: "Tiles served by type and outcome.",
		}, []string{"tile", "outcome"}),
	}
	m.registry.MustRegister(
		m.fetches, m.fetchDuration, m.dedupeHits, m.cost,
		m.cacheHits, m.cacheMisses, m.cacheErrors, m.tiles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) FetchCompleted(source hub.Source, purpose string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.fetches.WithLabelValues(string(source), purpose, outcome).Inc()
	m.fetchDuration.WithLabelValues(string(source)).Observe(d.Seconds())
}

func (m *Metrics) DedupeHit(source hub.Source) {
	m.dedupeHits.WithLabelValues(string(source)).Inc()
}

func (m *Metrics) ProviderCost(source hub.Source, cost float64) {
	if cost > 0 {
		m.cost.WithLabelValues(string(source)).Add(cost)
	}
}

// TileServed counts one tile response.
func (m *Metrics) TileServed(tile hub.TileType, outcome string) {
	m.tiles.WithLabelValues(string(tile), outcome).Inc()
}

// CacheHooks adapts the collectors to cache.Tiered events.
func (m *Metrics) CacheHooks() cache.Hooks {
	return cache.Hooks{
		OnHit:   func(tier string) { m.cacheHits.WithLabelValues(tier).Inc() },
		OnMiss:  func() { m.cacheMisses.Inc() },
		OnError: func(tier, op string) { m.cacheErrors.WithLabelValues(tier, op).Inc() },
	}
}
