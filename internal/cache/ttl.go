package cache

import (
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

const (
	ShortTTL  = 15 * time.Minute
	MediumTTL = 30 * time.Minute
	LongTTL   = 60 * time.Minute
)

// TTLPolicy maps tile types to their cache lifetime.
type TTLPolicy struct {
	ttls     map[hub.TileType]time.Duration
	fallback time.Duration
}

// DefaultTTLs keeps sentiment and feed tiles short and structural tiles long.
func DefaultTTLs() map[hub.TileType]time.Duration {
	return map[hub.TileType]time.Duration{
		hub.TileSentiment:            ShortTTL,
		hub.TileRedditSentiment:      ShortTTL,
		hub.TileTwitterBuzz:          ShortTTL,
		hub.TileMarketTrends:         ShortTTL,
		hub.TileGoogleTrends:         MediumTTL,
		hub.TileWebSearch:            MediumTTL,
		hub.TileGrowthPotential:      MediumTTL,
		hub.TileMarketReadiness:      MediumTTL,
		hub.TileRiskAssessment:       MediumTTL,
		hub.TilePMFScore:             LongTTL,
		hub.TileMarketSize:           LongTTL,
		hub.TileCompetition:          LongTTL,
		hub.TileCompetitiveAdvantage: LongTTL,
	}
}

// NewTTLPolicy layers overrides on top of DefaultTTLs.
func NewTTLPolicy(overrides map[hub.TileType]time.Duration) TTLPolicy {
	ttls := DefaultTTLs()
	for t, d := range overrides {
		if d > 0 {
			ttls[t] = d
		}
	}
	return TTLPolicy{ttls: ttls, fallback: MediumTTL}
}

// For returns the TTL of tile t.
func (p TTLPolicy) For(t hub.TileType) time.Duration {
	if d, ok := p.ttls[t]; ok {
		return d
	}
	if p.fallback > 0 {
		return p.fallback
	}
	return MediumTTL
}
