// Package ideastore owns the current idea of each owner. Consumers read it
// through Current and react to changes through Subscribe.
package ideastore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/cache"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/sirupsen/logrus"
)

// ErrNoIdea is returned when an owner has no current idea.
var ErrNoIdea = errors.New("no current idea")

// State is the current idea of one owner.
type State struct {
	Owner     string              `json:"owner"`
	Input     hub.InputDescriptor `json:"input"`
	Pinned    bool                `json:"pinned"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Persistence keeps states across restarts. RedisPersistence implements it.
type Persistence interface {
	LoadAll(ctx context.Context) ([]State, error)
	Save(ctx context.Context, s State) error
}

// Store holds one State per owner.
type Store struct {
	// writeMu serializes writers through notification and persistence, so
	// subscribers and the persisted copy see changes in memory order.
	writeMu sync.Mutex

	mu     sync.RWMutex
	ideas  map[string]State
	subs   map[int]func(State)
	nextID int

	persist Persistence
	log     *logrus.Entry
	now     func() time.Time
}

type Option func(*Store)

// WithPersistence writes every change through p.
func WithPersistence(p Persistence) Option { return func(s *Store) { s.persist = p } }

func WithLogger(l *logrus.Entry) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		ideas: make(map[string]State),
		subs:  make(map[int]func(State)),
		log:   logrus.NewEntry(logrus.StandardLogger()),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "ideastore")
	return s
}

// Load replaces the in-memory states with the persisted ones. It does not
// notify subscribers.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	states, err := s.persist.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load ideas: %w", err)
	}
	s.mu.Lock()
	for _, st := range states {
		s.ideas[st.Owner] = st
	}
	s.mu.Unlock()
	s.log.WithField("ideas", len(states)).Info("ideas loaded")
	return nil
}

// Set makes in the current idea of owner. Changing the idea text clears the
// pin.
func (s *Store) Set(ctx context.Context, owner string, in hub.InputDescriptor) (State, error) {
	if strings.TrimSpace(in.Idea) == "" {
		return State{}, hub.ErrEmptyIdea
	}
	owner = ownerKey(owner)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	prev, had := s.ideas[owner]
	st := State{Owner: owner, Input: in, UpdatedAt: s.now()}
	if had && cache.IdeaPrefix(prev.Input.Idea) == cache.IdeaPrefix(in.Idea) {
		st.Pinned = prev.Pinned
	}
	s.ideas[owner] = st
	s.mu.Unlock()
	return st, s.commit(ctx, st)
}

// Current returns the idea of owner.
func (s *Store) Current(owner string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.ideas[ownerKey(owner)]
	return st, ok
}

// Pin marks the idea of owner for scheduled refresh.
func (s *Store) Pin(ctx context.Context, owner string) (State, error) {
	return s.setPinned(ctx, owner, true)
}

func (s *Store) Unpin(ctx context.Context, owner string) (State, error) {
	return s.setPinned(ctx, owner, false)
}

func (s *Store) setPinned(ctx context.Context, owner string, pinned bool) (State, error) {
	owner = ownerKey(owner)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	st, ok := s.ideas[owner]
	if !ok {
		s.mu.Unlock()
		return State{}, fmt.Errorf("%w for owner %q", ErrNoIdea, owner)
	}
	if st.Pinned == pinned {
		s.mu.Unlock()
		return st, nil
	}
	st.Pinned = pinned
	st.UpdatedAt = s.now()
	s.ideas[owner] = st
	s.mu.Unlock()
	return st, s.commit(ctx, st)
}

// Pinned lists the pinned ideas ordered by owner.
func (s *Store) Pinned() []State {
	s.mu.RLock()
	out := make([]State, 0, len(s.ideas))
	for _, st := range s.ideas {
		if st.Pinned {
			out = append(out, st)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// Subscribe registers fn for every change. The returned func removes it.
// Callbacks run synchronously on the writer's goroutine and must not write
// to the store.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// commit notifies subscribers and persists st. Callers hold writeMu. The
// in-memory state stays updated when persistence fails.
func (s *Store) commit(ctx context.Context, st State) error {
	s.mu.RLock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(st)
	}
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Save(ctx, st); err != nil {
		s.log.WithError(err).WithField("owner", st.Owner).Warn("persisting idea failed")
		return fmt.Errorf("persist idea: %w", err)
	}
	return nil
}

func ownerKey(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return cache.DefaultOwner
	}
	return owner
}
