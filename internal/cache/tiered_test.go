package cache

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/sirupsen/logrus"
)

type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, Key) (Entry, error) { return Entry{}, b.err }
func (b brokenStore) Set(context.Context, Key, Entry) error   { return b.err }
func (b brokenStore) Delete(context.Context, Key) error       { return b.err }

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestTieredBackfillsFasterTiers(t *testing.T) {
	ctx := context.Background()
	fast, slow := NewMemory(0), NewMemory(0)
	var hits []string
	tc := NewTiered(quietLogger(), Hooks{OnHit: func(tier string) { hits = append(hits, tier) }},
		Tier{Name: "memory", Store: fast}, Tier{Name: "slow", Store: slow})
	k := testKey(t, hub.TileMarketSize, "dog walking")
	_ = slow.Set(ctx, k, Entry{Data: []byte("x"), ExpiresAt: time.Now().Add(time.Hour)})

	if _, err := tc.Get(ctx, k); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := fast.Get(ctx, k); err != nil {
		t.Fatalf("fast tier should be backfilled: %v", err)
	}
	if _, err := tc.Get(ctx, k); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(hits) != 2 || hits[0] != "slow" || hits[1] != "memory" {
		t.Fatalf("unexpected hit sequence %v", hits)
	}
}

func TestTieredErrorsReadAsMiss(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	var failures int
	tc := NewTiered(quietLogger(), Hooks{OnError: func(string, string) { failures++ }},
		Tier{Name: "redis", Store: brokenStore{err: boom}}, Tier{Name: "memory", Store: NewMemory(0)})
	k := testKey(t, hub.TileCompetition, "dog walking")

	_, err := tc.Get(ctx, k)
	if !errors.Is(err, ErrMiss) || !errors.Is(err, boom) {
		t.Fatalf("expected joined miss and tier error, got %v", err)
	}
	err = tc.Set(ctx, k, Entry{ExpiresAt: time.Now().Add(time.Minute)})
	if !errors.Is(err, boom) {
		t.Fatalf("expected set error, got %v", err)
	}
	if _, err := tc.Get(ctx, k); err != nil {
		t.Fatalf("healthy tier should still serve: %v", err)
	}
	// get, set, get, then the failed backfill into redis
	if failures != 4 {
		t.Fatalf("expected 4 reported failures, got %d", failures)
	}
}

func TestFlightCollapsesConcurrentCalls(t *testing.T) {
	f := NewFlight()
	var calls int64
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := f.Do(context.Background(), "k", func() (any, error) {
				atomic.AddInt64(&calls, 1)
				once.Do(func() { close(started) })
				<-release
				return "value", nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			results[i] = v
		}(i)
	}
	<-started
	if !f.InFlight("k") {
		t.Fatalf("expected k in flight")
	}
	// give the remaining goroutines time to join the flight
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected a single execution, got %d", calls)
	}
	for i, v := range results {
		if v != "value" {
			t.Fatalf("caller %d got %v", i, v)
		}
	}
	if f.InFlight("k") {
		t.Fatalf("flight should be cleared")
	}
}

func TestFlightCallerContextCancel(t *testing.T) {
	f := NewFlight()
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := f.Do(ctx, "k", func() (any, error) {
		<-release
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
