// Package scheduler refreshes pinned ideas on a cron schedule and purges
// expired persistent cache rows.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/ideahub/internal/dashboard"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/ideastore"
	"github.com/sirupsen/logrus"
)

// Warmer recomputes tiles. dashboard.Service implements it.
type Warmer interface {
	Tiles(ctx context.Context, req dashboard.Request, types []hub.TileType) ([]dashboard.TileResult, error)
}

// PinnedIdeas lists the ideas to refresh. ideastore.Store implements it.
type PinnedIdeas interface {
	Pinned() []ideastore.State
}

// Purger removes expired cache rows. cache.Postgres implements it.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Locker guards a refresh across replicas.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Report summarizes one refresh pass.
type Report struct {
	Refreshed int
	Locked    int
	Failed    int
}

type Scheduler struct {
	expr       *cronexpr.Expression
	warmer     Warmer
	ideas      PinnedIdeas
	locker     Locker
	lockTTL    time.Duration
	purger     Purger
	purgeEvery time.Duration
	log        *logrus.Entry
	now        func() time.Time
}

type Option func(*Scheduler)

// WithLocker makes every refresh take a per-owner lock held for at most ttl.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(s *Scheduler) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithPurger runs p every interval.
func WithPurger(p Purger, interval time.Duration) Option {
	return func(s *Scheduler) {
		s.purger = p
		if interval > 0 {
			s.purgeEvery = interval
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New parses cronSpec, a standard cron expression, and returns a scheduler.
func New(cronSpec string, warmer Warmer, ideas PinnedIdeas, opts ...Option) (*Scheduler, error) {
	expr, err := cronexpr.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", cronSpec, err)
	}
	s := &Scheduler{
		expr:       expr,
		warmer:     warmer,
		ideas:      ideas,
		lockTTL:    10 * time.Minute,
		purgeEvery: time.Hour,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "scheduler")
	return s, nil
}

// Next returns the first refresh time after t.
func (s *Scheduler) Next(t time.Time) time.Time { return s.expr.Next(t) }

// Run blocks until ctx is done, refreshing on schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	var purge <-chan time.Time
	if s.purger != nil {
		t := time.NewTicker(s.purgeEvery)
		defer t.Stop()
		purge = t.C
	}
	for {
		next := s.Next(s.now())
		if next.IsZero() {
			return fmt.Errorf("cron expression has no future activation")
		}
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-purge:
			timer.Stop()
			s.Purge(ctx)
		case <-timer.C:
			rep := s.Tick(ctx)
			s.log.WithFields(logrus.Fields{
				"refreshed": rep.Refreshed,
				"locked":    rep.Locked,
				"failed":    rep.Failed,
			}).Info("pinned ideas refreshed")
		}
	}
}

// Tick refreshes every pinned idea once. Ideas are refreshed one at a time
// so a pass never fans out more than one fetch run.
func (s *Scheduler) Tick(ctx context.Context) Report {
	var rep Report
	for _, st := range s.ideas.Pinned() {
		if ctx.Err() != nil {
			break
		}
		release := func() {}
		if s.locker != nil {
			rel, ok, err := s.locker.Acquire(ctx, "ideahub:refresh:"+st.Owner, s.lockTTL)
			if err != nil {
				s.log.WithError(err).WithField("owner", st.Owner).Warn("refresh lock failed")
				rep.Failed++
				continue
			}
			if !ok {
				rep.Locked++
				continue
			}
			release = rel
		}
		_, err := s.warmer.Tiles(ctx, dashboard.Request{Owner: st.Owner, Input: st.Input, Refresh: true}, nil)
		release()
		if err != nil {
			s.log.WithError(err).WithField("owner", st.Owner).Warn("refreshing pinned idea failed")
			rep.Failed++
			continue
		}
		rep.Refreshed++
	}
	return rep
}

// Purge deletes expired persistent cache rows.
func (s *Scheduler) Purge(ctx context.Context) {
	if s.purger == nil {
		return
	}
	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.log.WithError(err).Warn("purging expired tiles failed")
		return
	}
	s.log.WithField("rows", n).Debug("expired tiles purged")
}
