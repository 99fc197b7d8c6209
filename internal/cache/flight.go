package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Flight collapses concurrent calls for the same key into one execution.
// Later callers wait on the first caller's result.
type Flight struct {
	g        singleflight.Group
	mu       sync.Mutex
	inflight map[string]int
}

// NewFlight returns an empty group.
func NewFlight() *Flight {
	return &Flight{inflight: make(map[string]int)}
}

// Do runs fn once per key among concurrent callers. shared reports whether
// the result was delivered to more than one caller. A caller whose ctx ends
// stops waiting; the execution itself continues for the others.
func (f *Flight) Do(ctx context.Context, key string, fn func() (any, error)) (v any, shared bool, err error) {
	ch := f.g.DoChan(key, func() (any, error) {
		f.mu.Lock()
		f.inflight[key]++
		f.mu.Unlock()
		defer func() {
			f.mu.Lock()
			if f.inflight[key]--; f.inflight[key] <= 0 {
				delete(f.inflight, key)
			}
			f.mu.Unlock()
		}()
		return fn()
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// InFlight reports whether an execution for key is running.
func (f *Flight) InFlight(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight[key] > 0
}

// Forget drops key so the next Do starts a fresh execution.
func (f *Flight) Forget(key string) { f.g.Forget(key) }
