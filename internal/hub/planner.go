package hub

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// planNamespace seeds the deterministic item ids so identical input always
// produces byte-identical plans.
var planNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ideahub/fetch-plan"))

// marketSizeKeywords is how many normalized keywords get a market-size task.
const marketSizeKeywords = 2

type planTemplate struct {
	source   Source
	purpose  string
	priority int
	query    func(idea string) string
}

// planTemplates is the closed set of per-idea templates, in plan order.
var planTemplates = []planTemplate{
	{SourceSerper, PurposeMarketOverview, PriorityCore, func(idea string) string { return idea + " market size industry overview" }},
	{SourceSerper, PurposeCompetitorSearch, PriorityCore, func(idea string) string { return idea + " competitors alternatives" }},
	{SourceSerper, PurposePricingSearch, PrioritySecondary, func(idea string) string { return idea + " pricing plans cost" }},
	{SourceScraperAPI, PurposeCompetitorDeep, PrioritySecondary, func(idea string) string { return "top " + idea + " companies comparison" }},
	{SourceScraperAPI, PurposePricingDeep, PrioritySecondary, func(idea string) string { return idea + " pricing comparison per month" }},
	{SourceScraperAPI, PurposeMarketAnalysis, PriorityExploratory, func(idea string) string { return idea + " market analysis report growth" }},
	{SourceBrave, PurposeNewsRecent, PriorityCore, func(idea string) string { return idea + " news" }},
	{SourceBrave, PurposeNewsTrends, PrioritySecondary, func(idea string) string { return idea + " industry trends" }},
	{SourceTavily, PurposeRedditSentiment, PrioritySecondary, func(idea string) string { return idea + " site:reddit.com" }},
	{SourceTavily, PurposeTwitterBuzz, PriorityExploratory, func(idea string) string { return idea + " site:twitter.com OR site:x.com" }},
}

type planOptions struct {
	directReddit bool
}

// PlanOption adjusts BuildFetchPlan.
type PlanOption func(*planOptions)

// WithDirectReddit adds a reddit search-feed task alongside the tavily one.
func WithDirectReddit() PlanOption {
	return func(o *planOptions) { o.directReddit = true }
}

// BuildFetchPlan expands the template set for input. Items whose dedupe key
// was already produced in this call are skipped; the remaining items keep
// template declaration order.
func BuildFetchPlan(in InputDescriptor, keywords []string, opts ...PlanOption) ([]FetchPlanItem, error) {
	idea := strings.Join(strings.Fields(in.Idea), " ")
	if idea == "" {
		return nil, ErrEmptyIdea
	}
	var o planOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := &planBuilder{seen: make(map[string]struct{})}
	for _, t := range planTemplates {
		b.add(t.source, t.purpose, t.query(idea), t.priority)
	}
	for i, kw := range keywords {
		if i >= marketSizeKeywords {
			break
		}
		b.add(SourceSerpAPI, PurposeMarketSize, kw, PrioritySecondary)
	}
	for _, hint := range in.CompetitorHints {
		hint = strings.TrimSpace(hint)
		if hint == "" {
			continue
		}
		b.add(SourceFirecrawl, PurposeCompetitorDeepDive, fmt.Sprintf("%s product features pricing reviews", hint), PriorityExploratory)
	}
	if o.directReddit {
		b.add(SourceReddit, PurposeRedditSentiment, idea, PrioritySecondary)
	}
	return b.items, nil
}

// DedupeKey is the canonical case-insensitive identity of a request.
func DedupeKey(source Source, purpose, query string) string {
	return strings.ToLower(string(source) + "|" + purpose + "|" + query)
}

type planBuilder struct {
	seen  map[string]struct{}
	items []FetchPlanItem
}

func (b *planBuilder) add(source Source, purpose, query string, priority int) {
	key := DedupeKey(source, purpose, query)
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.items = append(b.items, FetchPlanItem{
		ID:        uuid.NewSHA1(planNamespace, []byte(key)).String(),
		Source:    source,
		Purpose:   purpose,
		Query:     query,
		DedupeKey: key,
		Priority:  priority,
	})
}
