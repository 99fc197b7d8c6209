// Package dashboard serves tiles for an idea: cache first, otherwise one
// shared fetch run whose snapshot every concurrently requested tile is
// synthesized from.
package dashboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/ideahub/internal/cache"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/metrics"
	"github.com/mohammad-safakhou/ideahub/internal/tiles"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var dashboardTracer trace.Tracer = otel.Tracer("ideahub/internal/dashboard")

const defaultRunTimeout = 2 * time.Minute

// ErrUnknownTile is returned for tile types outside hub.TileTypes.
var ErrUnknownTile = errors.New("unknown tile type")

// Executor runs a fetch plan. *hub.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, plan []hub.FetchPlanItem) (*hub.RunResult, error)
}

// TileRecorder counts served tiles. *metrics.Metrics implements it.
type TileRecorder interface {
	TileServed(tile hub.TileType, outcome string)
}

type noopTiles struct{}

func (noopTiles) TileServed(hub.TileType, string) {}

// Request identifies what to compute tiles for.
type Request struct {
	Owner   string              `json:"owner,omitempty"`
	Input   hub.InputDescriptor `json:"input"`
	Filters map[string]any      `json:"filters,omitempty"`
	// Refresh skips the cache read; results are still written through.
	Refresh bool `json:"refresh,omitempty"`
}

// TileResult is a synthesized or cached tile.
type TileResult struct {
	tiles.Output
	Cached      bool      `json:"cached"`
	GeneratedAt time.Time `json:"generated_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Run is one executed fetch plan for an idea.
type Run struct {
	Keywords  []string            `json:"keywords"`
	Plan      []hub.FetchPlanItem `json:"plan"`
	DedupeMap map[string]string   `json:"dedupe_map"`
	Snapshot  hub.Snapshot        `json:"snapshot"`
	At        time.Time           `json:"at"`
}

// cachedTile is the cache entry payload.
type cachedTile struct {
	Output      tiles.Output `json:"output"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Service is safe for concurrent use.
type Service struct {
	engine     Executor
	store      cache.Store
	flight     *cache.Flight
	ttl        cache.TTLPolicy
	planOpts   []hub.PlanOption
	recorder   TileRecorder
	runTimeout time.Duration
	log        *logrus.Entry
	now        func() time.Time
}

type Option func(*Service)

func WithTTLPolicy(p cache.TTLPolicy) Option { return func(s *Service) { s.ttl = p } }

func WithPlanOptions(opts ...hub.PlanOption) Option {
	return func(s *Service) { s.planOpts = append(s.planOpts, opts...) }
}

func WithTileRecorder(r TileRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithRunTimeout bounds a shared fetch run independently of the caller
// that started it.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

func WithLogger(l *logrus.Entry) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a service. A nil store disables caching.
func New(engine Executor, store cache.Store, opts ...Option) *Service {
	s := &Service{
		engine:     engine,
		store:      store,
		flight:     cache.NewFlight(),
		ttl:        cache.NewTTLPolicy(nil),
		recorder:   noopTiles{},
		runTimeout: defaultRunTimeout,
		log:        logrus.NewEntry(logrus.StandardLogger()),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "dashboard")
	return s
}

// Plan returns the keywords and fetch plan for in without executing it.
func (s *Service) Plan(in hub.InputDescriptor) ([]string, []hub.FetchPlanItem, error) {
	keywords := hub.NormalizeKeywords(in)
	plan, err := hub.BuildFetchPlan(in, keywords, s.planOpts...)
	if err != nil {
		return nil, nil, err
	}
	return keywords, plan, nil
}

// Tile returns one tile for req.
func (s *Service) Tile(ctx context.Context, req Request, t hub.TileType) (TileResult, error) {
	out, err := s.Tiles(ctx, req, []hub.TileType{t})
	if err != nil {
		return TileResult{}, err
	}
	return out[0], nil
}

// Tiles returns the requested tiles in order; an empty list means every
// tile type. Cached tiles are served as-is; the rest share a single run.
func (s *Service) Tiles(ctx context.Context, req Request, types []hub.TileType) ([]TileResult, error) {
	if strings.TrimSpace(req.Input.Idea) == "" {
		return nil, hub.ErrEmptyIdea
	}
	if len(types) == 0 {
		types = hub.TileTypes()
	}
	for _, t := range types {
		if !t.Known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTile, t)
		}
	}
	ctx, span := dashboardTracer.Start(ctx, "dashboard.tiles",
		trace.WithAttributes(attribute.Int("tiles.requested", len(types))))
	defer span.End()

	keys := make([]cache.Key, len(types))
	results := make([]TileResult, len(types))
	var missing []int
	for i, t := range types {
		key, err := cache.NewKey(req.Owner, t, req.Input, req.Filters)
		if err != nil {
			return nil, fmt.Errorf("build cache key: %w", err)
		}
		keys[i] = key
		if !req.Refresh {
			if res, ok := s.lookup(ctx, key); ok {
				results[i] = res
				s.recorder.TileServed(t, metrics.TileFromCache)
				continue
			}
		}
		missing = append(missing, i)
	}
	span.SetAttributes(attribute.Int("tiles.cached", len(types)-len(missing)))
	if len(missing) == 0 {
		return results, nil
	}

	run, err := s.sharedRun(ctx, req, keys[0].FiltersHash)
	if err != nil {
		return nil, err
	}
	syn := tiles.New(run.Snapshot)
	for _, i := range missing {
		t := types[i]
		out := syn.Synthesize(t)
		res := TileResult{Output: out, GeneratedAt: run.At}
		if out.InsufficientData() {
			// sentinels are never cached so the next request retries the providers
			s.recorder.TileServed(t, metrics.TileInsufficient)
		} else {
			res.ExpiresAt = s.writeThrough(ctx, keys[i], out, run.At)
			s.recorder.TileServed(t, metrics.TileFresh)
		}
		results[i] = res
	}
	return results, nil
}

// Run executes (or joins) the fetch run for req and returns it.
func (s *Service) Run(ctx context.Context, req Request) (*Run, error) {
	if strings.TrimSpace(req.Input.Idea) == "" {
		return nil, hub.ErrEmptyIdea
	}
	hash, err := cache.HashScope(req.Input, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("hash filters: %w", err)
	}
	return s.sharedRun(ctx, req, hash)
}

// Invalidate drops every cached tile of req.
func (s *Service) Invalidate(ctx context.Context, req Request) error {
	if s.store == nil {
		return nil
	}
	var errs []error
	for _, t := range hub.TileTypes() {
		key, err := cache.NewKey(req.Owner, t, req.Input, req.Filters)
		if err != nil {
			return err
		}
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, cache.ErrMiss) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InFlight reports whether a run for req is currently executing.
func (s *Service) InFlight(req Request) bool {
	hash, err := cache.HashScope(req.Input, req.Filters)
	if err != nil {
		return false
	}
	return s.flight.InFlight(runKey(req.Input, hash))
}

func (s *Service) sharedRun(ctx context.Context, req Request, scopeHash string) (*Run, error) {
	key := runKey(req.Input, scopeHash)
	v, shared, err := s.flight.Do(ctx, key, func() (any, error) {
		// the run outlives any single waiting caller
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
		defer cancel()
		return s.execute(runCtx, req.Input)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.WithField("idea", cache.IdeaPrefix(req.Input.Idea)).Debug("joined in-flight run")
	}
	return v.(*Run), nil
}

func (s *Service) execute(ctx context.Context, in hub.InputDescriptor) (*Run, error) {
	keywords, plan, err := s.Plan(in)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Execute(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("execute fetch plan: %w", err)
	}
	return &Run{
		Keywords:  keywords,
		Plan:      plan,
		DedupeMap: res.DedupeMap,
		Snapshot:  res.Indices.Snapshot(),
		At:        s.now(),
	}, nil
}

func (s *Service) lookup(ctx context.Context, key cache.Key) (TileResult, bool) {
	if s.store == nil {
		return TileResult{}, false
	}
	e, err := s.store.Get(ctx, key)
	if err != nil {
		return TileResult{}, false
	}
	var ct cachedTile
	if err := json.Unmarshal(e.Data, &ct); err != nil {
		s.log.WithError(err).WithField("tile", key.Tile).Warn("discarding undecodable cache entry")
		return TileResult{}, false
	}
	return TileResult{Output: ct.Output, Cached: true, GeneratedAt: ct.GeneratedAt, ExpiresAt: e.ExpiresAt}, true
}

// writeThrough writes a tile through the cache and returns its expiry. Failures
// are logged and otherwise ignored.
func (s *Service) writeThrough(ctx context.Context, key cache.Key, out tiles.Output, at time.Time) time.Time {
	expires := at.Add(s.ttl.For(key.Tile))
	if s.store == nil {
		return expires
	}
	data, err := json.Marshal(cachedTile{Output: out, GeneratedAt: at})
	if err != nil {
		s.log.WithError(err).WithField("tile", key.Tile).Warn("encode tile for cache")
		return expires
	}
	if err := s.store.Set(ctx, key, cache.Entry{Data: data, CreatedAt: at, ExpiresAt: expires}); err != nil {
		s.log.WithError(err).WithField("tile", key.Tile).Warn("cache write failed")
	}
	return expires
}

// runKey identifies a fetch run: the full normalized idea plus the scope hash.
// Owners share runs since provider data does not depend on who asked.
func runKey(in hub.InputDescriptor, scopeHash string) string {
	in.Idea = strings.ToLower(strings.Join(strings.Fields(in.Idea), " "))
	raw, _ := json.Marshal(struct {
		Input hub.InputDescriptor `json:"input"`
		Scope string              `json:"scope"`
	}{in, scopeHash})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
