package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoryEntries bounds the memory tier when no size is configured.
const DefaultMemoryEntries = 1024

// Memory is an in-process tier that evicts the least recently used entry
// once it is full. Entries carry their own expiry.
type Memory struct {
	// mu orders expiry removal against Set so a fresh entry is never dropped.
	mu    sync.Mutex
	items *lru.Cache[string, Entry]
	now   func() time.Time
}

// NewMemory returns a memory tier holding at most maxEntries entries.
// maxEntries <= 0 uses DefaultMemoryEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	// lru.New only fails for a non-positive size
	items, _ := lru.New[string, Entry](maxEntries)
	return &Memory{items: items, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, error) {
	k := key.String()
	now := m.now()
	e, ok := m.items.Get(k)
	if !ok {
		return Entry{}, ErrMiss
	}
	if !e.Expired(now) {
		return e, nil
	}
	m.mu.Lock()
	if cur, still := m.items.Peek(k); still && cur.Expired(now) {
		m.items.Remove(k)
	}
	m.mu.Unlock()
	return Entry{}, ErrMiss
}

func (m *Memory) Set(_ context.Context, key Key, e Entry) error {
	m.mu.Lock()
	m.items.Add(key.String(), e)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.items.Remove(key.String())
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int { return m.items.Len() }
