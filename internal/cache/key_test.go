package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

func TestHashFiltersIgnoresOrder(t *testing.T) {
	a, err := HashFilters(map[string]any{"geo": "US", "horizon": "12m", "markets": []string{"b2b"}})
	if err != nil {
		t.Fatalf("HashFilters: %v", err)
	}
	b, err := HashFilters(map[string]any{"markets": []string{"b2b"}, "horizon": "12m", "geo": "US"})
	if err != nil {
		t.Fatalf("HashFilters: %v", err)
	}
	if a != b {
		t.Fatalf("hash depends on key order: %s vs %s", a, b)
	}
	c, _ := HashFilters(map[string]any{"geo": "CA"})
	if a == c {
		t.Fatalf("different filters must hash differently")
	}
	empty, _ := HashFilters(nil)
	explicit, _ := HashFilters(map[string]any{})
	if empty != explicit {
		t.Fatalf("nil and empty filters must hash the same")
	}
}

func TestNewKeyNormalizesIdea(t *testing.T) {
	k1, err := NewKey("", hub.TileSentiment, hub.InputDescriptor{Idea: "  AI  Powered Dog\tWalking "}, nil)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	k2, _ := NewKey(DefaultOwner, hub.TileSentiment, hub.InputDescriptor{Idea: "ai powered dog walking"}, nil)
	if k1 != k2 {
		t.Fatalf("keys differ: %+v vs %+v", k1, k2)
	}
	long := strings.Repeat("é", IdeaPrefixLen+50)
	if got := []rune(IdeaPrefix(long)); len(got) != IdeaPrefixLen {
		t.Fatalf("prefix length = %d, want %d", len(got), IdeaPrefixLen)
	}
}

func TestNewKeyCoversDescriptor(t *testing.T) {
	base := hub.InputDescriptor{Idea: "dog walking app"}
	plain, err := NewKey("u1", hub.TileCompetition, base, nil)
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	variants := []hub.InputDescriptor{
		{Idea: base.Idea, CompetitorHints: []string{"Rover", "Wag"}},
		{Idea: base.Idea, TargetMarkets: []string{"pet owners"}},
		{Idea: base.Idea, AudienceProfiles: []string{"busy professionals"}},
		{Idea: base.Idea, Geos: []string{"US"}},
		{Idea: base.Idea, TimeHorizon: "12m"},
	}
	for _, in := range variants {
		k, err := NewKey("u1", hub.TileCompetition, in, nil)
		if err != nil {
			t.Fatalf("NewKey: %v", err)
		}
		if k == plain {
			t.Fatalf("descriptor %+v shares the key of the bare idea", in)
		}
		if k.Idea != plain.Idea {
			t.Fatalf("idea prefix changed: %q vs %q", k.Idea, plain.Idea)
		}
	}
	other, _ := NewKey("u1", hub.TileCompetition, hub.InputDescriptor{Idea: "cat sitting app"}, nil)
	if other.FiltersHash != plain.FiltersHash {
		t.Fatalf("idea text must not leak into the scope hash")
	}
}

func TestTTLPolicy(t *testing.T) {
	p := NewTTLPolicy(map[hub.TileType]time.Duration{hub.TileSentiment: 5 * time.Minute})
	if p.For(hub.TileSentiment) != 5*time.Minute {
		t.Fatalf("override not applied")
	}
	if p.For(hub.TileMarketSize) != LongTTL || p.For(hub.TileTwitterBuzz) != ShortTTL {
		t.Fatalf("defaults not applied")
	}
	if p.For("unknown") != MediumTTL {
		t.Fatalf("fallback not applied")
	}
}
