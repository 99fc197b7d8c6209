package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Tier names one Store inside a Tiered cache.
type Tier struct {
	Name  string
	Store Store
}

// Tiered reads tiers fastest first and backfills faster tiers on a hit.
// Writes go to every tier. Tier errors never escape Get as anything other
// than a miss.
type Tiered struct {
	tiers []Tier
	hooks Hooks
	log   *logrus.Entry
}

// NewTiered composes tiers in lookup order.
func NewTiered(log *logrus.Entry, hooks Hooks, tiers ...Tier) *Tiered {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Tiered{tiers: tiers, hooks: hooks, log: log.WithField("component", "cache")}
}

// Tiers returns the tier names in lookup order.
func (t *Tiered) Tiers() []string {
	names := make([]string, len(t.tiers))
	for i, tier := range t.tiers {
		names[i] = tier.Name
	}
	return names
}

func (t *Tiered) Get(ctx context.Context, key Key) (Entry, error) {
	var errs []error
	for i, tier := range t.tiers {
		e, err := tier.Store.Get(ctx, key)
		if err == nil {
			if t.hooks.OnHit != nil {
				t.hooks.OnHit(tier.Name)
			}
			t.backfill(ctx, key, e, t.tiers[:i])
			return e, nil
		}
		if !errors.Is(err, ErrMiss) {
			t.fail(tier.Name, "get", key, err)
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
		}
	}
	if t.hooks.OnMiss != nil {
		t.hooks.OnMiss()
	}
	return Entry{}, errors.Join(append([]error{ErrMiss}, errs...)...)
}

func (t *Tiered) Set(ctx context.Context, key Key, e Entry) error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Store.Set(ctx, key, e); err != nil {
			t.fail(tier.Name, "set", key, err)
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tiered) Delete(ctx context.Context, key Key) error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Store.Delete(ctx, key); err != nil {
			t.fail(tier.Name, "delete", key, err)
			errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tiered) backfill(ctx context.Context, key Key, e Entry, faster []Tier) {
	for _, tier := range faster {
		if err := tier.Store.Set(ctx, key, e); err != nil {
			t.fail(tier.Name, "backfill", key, err)
		}
	}
}

func (t *Tiered) fail(tier, op string, key Key, err error) {
	if t.hooks.OnError != nil {
		t.hooks.OnError(tier, op)
	}
	t.log.WithError(err).WithFields(logrus.Fields{
		"tier": tier,
		"op":   op,
		"tile": key.Tile,
	}).Warn("cache tier failed")
}
