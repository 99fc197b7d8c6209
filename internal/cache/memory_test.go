package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
)

func testKey(t *testing.T, tile hub.TileType, idea string) Key {
	t.Helper()
	k, err := NewKey("owner-1", tile, hub.InputDescriptor{Idea: idea}, map[string]any{"geo": "US"})
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func TestMemorySetGetExpire(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewMemory(10)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	k := testKey(t, hub.TileSentiment, "dog walking")

	if _, err := m.Get(ctx, k); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := m.Set(ctx, k, Entry{Data: []byte(`{"a":1}`), CreatedAt: now, ExpiresAt: now.Add(time.Minute)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	e, err := m.Get(ctx, k)
	if err != nil || string(e.Data) != `{"a":1}` {
		t.Fatalf("expected hit, got %v %q", err, e.Data)
	}
	now = now.Add(time.Minute)
	if _, err := m.Get(ctx, k); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry should be dropped")
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	exp := Entry{ExpiresAt: time.Now().Add(time.Hour)}
	a, b, c := testKey(t, hub.TileSentiment, "a"), testKey(t, hub.TileSentiment, "b"), testKey(t, hub.TileSentiment, "c")
	_ = m.Set(ctx, a, exp)
	_ = m.Set(ctx, b, exp)
	_ = m.Set(ctx, c, exp)
	if _, err := m.Get(ctx, a); !errors.Is(err, ErrMiss) {
		t.Fatalf("oldest entry should be evicted")
	}
	if _, err := m.Get(ctx, c); err != nil {
		t.Fatalf("newest entry should remain: %v", err)
	}
	_ = m.Delete(ctx, c)
	if m.Len() != 1 {
		t.Fatalf("expected 1 entry after delete, got %d", m.Len())
	}
}

func TestMemoryReadKeepsEntryWarm(t *testing.T) {
	m := NewMemory(2)
	ctx := context.Background()
	exp := Entry{ExpiresAt: time.Now().Add(time.Hour)}
	a, b, c := testKey(t, hub.TileSentiment, "a"), testKey(t, hub.TileSentiment, "b"), testKey(t, hub.TileSentiment, "c")
	_ = m.Set(ctx, a, exp)
	_ = m.Set(ctx, b, exp)
	if _, err := m.Get(ctx, a); err != nil {
		t.Fatalf("Get: %v", err)
	}
	_ = m.Set(ctx, c, exp)
	if _, err := m.Get(ctx, a); err != nil {
		t.Fatalf("recently read entry was evicted: %v", err)
	}
	if _, err := m.Get(ctx, b); !errors.Is(err, ErrMiss) {
		t.Fatalf("least recently used entry should be evicted")
	}
}

func TestMemoryZeroSizeUsesDefault(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	exp := Entry{ExpiresAt: time.Now().Add(time.Hour)}
	for i := 0; i < 10; i++ {
		_ = m.Set(ctx, testKey(t, hub.TileSentiment, string(rune('a'+i))), exp)
	}
	if m.Len() != 10 {
		t.Fatalf("expected 10 entries, got %d", m.Len())
	}
}
