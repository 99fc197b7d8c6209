package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var engineTracer trace.Tracer = otel.Tracer("ideahub/internal/hub/engine")

const (
	defaultConcurrency  = 8
	defaultFetchTimeout = 20 * time.Second
)

// Recorder receives execution events. internal/metrics implements it with
// prometheus collectors.
type Recorder interface {
	FetchCompleted(source Source, purpose string, d time.Duration, err error)
	DedupeHit(source Source)
	ProviderCost(source Source, cost float64)
}

type noopRecorder struct{}

func (noopRecorder) FetchCompleted(Source, string, time.Duration, error) {}
func (noopRecorder) DedupeHit(Source)                                    {}
func (noopRecorder) ProviderCost(Source, float64)                        {}

// Engine executes fetch plans against registered provider adapters.
type Engine struct {
	fetchers    map[Source]Fetcher
	costs       map[Source]float64
	timeout     time.Duration
	concurrency int
	classifier  ToneClassifier
	recorder    Recorder
	log         *logrus.Entry
	now         func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithUnitCosts sets the per-request cost estimate for each provider.
func WithUnitCosts(costs map[Source]float64) EngineOption {
	return func(e *Engine) {
		for k, v := range costs {
			e.costs[k] = v
		}
	}
}

// WithFetchTimeout bounds every individual fetch.
func WithFetchTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithConcurrency caps the number of fetches in flight.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClassifier sets the tone classifier used at ingestion.
func WithClassifier(c ToneClassifier) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

func WithLogger(l *logrus.Entry) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// DefaultUnitCosts are the per-request estimates used when none are configured.
func DefaultUnitCosts() map[Source]float64 {
	return map[Source]float64{
		SourceSerper:     0.001,
		SourceScraperAPI: 0.005,
		SourceBrave:      0.003,
		SourceTavily:     0.008,
		SourceSerpAPI:    0.01,
		SourceFirecrawl:  0.01,
		SourceReddit:     0,
	}
}

// NewEngine returns an engine over the given adapters.
func NewEngine(fetchers map[Source]Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		fetchers:    make(map[Source]Fetcher, len(fetchers)),
		costs:       DefaultUnitCosts(),
		timeout:     defaultFetchTimeout,
		concurrency: defaultConcurrency,
		classifier:  LexiconClassifier{},
		recorder:    noopRecorder{},
		log:         logrus.NewEntry(logrus.StandardLogger()).WithField("component", "hub.engine"),
		now:         time.Now,
	}
	for k, f := range fetchers {
		e.fetchers[k] = f
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is the settled state of one executed dedupe key.
type Outcome struct {
	ItemID   string        `json:"item_id"`
	Source   Source        `json:"source"`
	Purpose  string        `json:"purpose"`
	Query    string        `json:"query"`
	Payload  Payload       `json:"payload"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// RunResult is everything one Execute call produced.
type RunResult struct {
	Indices *Indices
	// DedupeMap maps a skipped item id to the id of the item whose fetch it shares.
	DedupeMap map[string]string
	// Outcomes is keyed by the id of the executed item.
	Outcomes map[string]*Outcome
	// Requests counts executed fetches per provider.
	Requests map[Source]int
}

// Outcome resolves any plan item id, executed or deduplicated, to the
// outcome of the fetch that served it.
func (r *RunResult) Outcome(itemID string) (*Outcome, bool) {
	if shared, ok := r.DedupeMap[itemID]; ok {
		itemID = shared
	}
	o, ok := r.Outcomes[itemID]
	return o, ok
}

// Execute runs plan. Items sharing a dedupe key are fetched once. Fetch
// failures never fail the run; they are recorded in the provider log. The
// only error returned is context cancellation of the whole run.
func (e *Engine) Execute(ctx context.Context, plan []FetchPlanItem) (*RunResult, error) {
	ctx, span := engineTracer.Start(ctx, "hub.execute_plan",
		trace.WithAttributes(attribute.Int("plan.items", len(plan))))
	defer span.End()

	res := &RunResult{
		Indices:   NewIndices(),
		DedupeMap: make(map[string]string),
		Outcomes:  make(map[string]*Outcome),
		Requests:  make(map[Source]int),
	}
	processed := make(map[string]string, len(plan))
	var issue []FetchPlanItem
	var order []Source
	for _, item := range plan {
		key := item.DedupeKey
		if key == "" {
			key = DedupeKey(item.Source, item.Purpose, item.Query)
		}
		if owner, seen := processed[key]; seen {
			res.DedupeMap[item.ID] = owner
			e.recorder.DedupeHit(item.Source)
			continue
		}
		processed[key] = item.ID
		if _, counted := res.Requests[item.Source]; !counted {
			order = append(order, item.Source)
		}
		res.Requests[item.Source]++
		issue = append(issue, item)
	}

	ing := &ingester{
		ix:         res.Indices,
		classifier: e.classifier,
		log:        e.log,
		now:        e.now,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, item := range issue {
		i, item := i, item
		g.Go(func() error {
			out := e.fetch(gctx, ing, i, item)
			mu.Lock()
			res.Outcomes[item.ID] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	ts := e.now()
	for _, src := range order {
		n := res.Requests[src]
		cost := e.costs[src] * float64(n)
		res.Indices.LogSummary(ProviderSummary{
			Provider:      src,
			RequestCount:  n,
			DedupeCount:   len(res.DedupeMap),
			EstimatedCost: cost,
			Timestamp:     ts,
		})
		e.recorder.ProviderCost(src, cost)
	}

	failures := len(res.Indices.Snapshot().ProviderLog.Failures)
	span.SetAttributes(
		attribute.Int("plan.executed", len(issue)),
		attribute.Int("plan.deduplicated", len(res.DedupeMap)),
		attribute.Int("plan.failures", failures),
	)
	e.log.WithFields(logrus.Fields{
		"items":        len(plan),
		"executed":     len(issue),
		"deduplicated": len(res.DedupeMap),
		"failures":     failures,
	}).Info("fetch plan executed")

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

// fetch runs one item under its own timeout and ingests or logs the result.
func (e *Engine) fetch(ctx context.Context, ing *ingester, rank int, item FetchPlanItem) *Outcome {
	ctx, span := engineTracer.Start(ctx, "hub.fetch",
		trace.WithAttributes(
			attribute.String("provider", string(item.Source)),
			attribute.String("purpose", item.Purpose),
		))
	defer span.End()

	out := &Outcome{ItemID: item.ID, Source: item.Source, Purpose: item.Purpose, Query: item.Query}
	start := e.now()
	payload, err := e.call(ctx, item)
	out.Duration = e.now().Sub(start)
	e.recorder.FetchCompleted(item.Source, item.Purpose, out.Duration, err)

	if err != nil {
		fe := &FetchError{Source: item.Source, Purpose: item.Purpose, Query: item.Query, Err: err}
		out.Err = fe
		span.RecordError(fe)
		span.SetStatus(codes.Error, fe.Error())
		ing.ix.LogFailure(ProviderFailure{
			Provider:  item.Source,
			Purpose:   item.Purpose,
			Query:     item.Query,
			Error:     err.Error(),
			Timestamp: e.now(),
		})
		e.log.WithError(err).WithFields(logrus.Fields{
			"provider": item.Source,
			"purpose":  item.Purpose,
		}).Warn("provider fetch failed")
		return out
	}
	out.Payload = payload
	ing.ingest(ctx, rank, item, payload)
	return out
}

func (e *Engine) call(ctx context.Context, item FetchPlanItem) (p Payload, err error) {
	f, ok := e.fetchers[item.Source]
	if !ok || f == nil {
		return Payload{}, fmt.Errorf("%w: %s", ErrNoFetcher, item.Source)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	p, err = f.Fetch(ctx, item.Query, item.Purpose)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("fetch timed out after %s: %w", e.timeout, err)
	}
	return p, err
}
