// Package cache stores synthesized tile outputs keyed by tile type, idea and
// filters. Tiers are composable; every tier implements Store.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Entry is one cached tile payload. Data is the JSON encoding of the tile.
type Entry struct {
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is implemented by every cache tier.
type Store interface {
	Get(ctx context.Context, key Key) (Entry, error)
	Set(ctx context.Context, key Key, e Entry) error
	Delete(ctx context.Context, key Key) error
}

// Hooks receive cache events; nil hooks are skipped.
type Hooks struct {
	OnHit   func(tier string)
	OnMiss  func()
	OnError func(tier, op string)
}
