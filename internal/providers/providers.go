// Package providers wires the configured provider adapters into the fetcher
// registry the execution engine runs against.
package providers

import (
	"github.com/mohammad-safakhou/ideahub/config"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/providers/brave"
	"github.com/mohammad-safakhou/ideahub/internal/providers/firecrawl"
	"github.com/mohammad-safakhou/ideahub/internal/providers/httpx"
	"github.com/mohammad-safakhou/ideahub/internal/providers/reddit"
	"github.com/mohammad-safakhou/ideahub/internal/providers/scraperapi"
	"github.com/mohammad-safakhou/ideahub/internal/providers/serpapi"
	"github.com/mohammad-safakhou/ideahub/internal/providers/serper"
	"github.com/mohammad-safakhou/ideahub/internal/providers/tavily"
	"github.com/sirupsen/logrus"
)

// Registry is the result of Build.
type Registry struct {
	Fetchers  map[hub.Source]hub.Fetcher
	UnitCosts map[hub.Source]float64
	// Disabled lists providers left unregistered; their plan items are
	// recorded as failures at run time.
	Disabled []hub.Source
}

type factory struct {
	source   hub.Source
	needsKey bool
	build    func(config.ProviderConfig, *httpx.Client) (hub.Fetcher, error)
}

var factories = []factory{
	{hub.SourceSerper, true, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return serper.New(c, h) }},
	{hub.SourceScraperAPI, true, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return scraperapi.New(c, h) }},
	{hub.SourceBrave, true, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return brave.New(c, h) }},
	{hub.SourceTavily, true, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return tavily.New(c, h) }},
	{hub.SourceSerpAPI, true, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return serpapi.New(c, h) }},
	{hub.SourceFirecrawl, true, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return firecrawl.New(c, h) }},
	{hub.SourceReddit, false, func(c config.ProviderConfig, h *httpx.Client) (hub.Fetcher, error) { return reddit.New(c, h), nil }},
}

// Build constructs every active adapter over one shared retrying client.
// Configured unit costs override hub.DefaultUnitCosts.
func Build(cfg config.ProvidersConfig, log *logrus.Entry) *Registry {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "providers")
	hc := httpx.New(nil, httpx.Options{
		Timeout:    cfg.HTTP.Timeout,
		MaxRetries: cfg.HTTP.MaxRetries,
		BaseDelay:  cfg.HTTP.BaseDelay,
		MaxDelay:   cfg.HTTP.MaxDelay,
		UserAgent:  cfg.HTTP.UserAgent,
	})

	reg := &Registry{
		Fetchers:  make(map[hub.Source]hub.Fetcher),
		UnitCosts: hub.DefaultUnitCosts(),
	}
	for _, f := range factories {
		pc, _ := cfg.ByName(string(f.source))
		if pc.UnitCost > 0 {
			reg.UnitCosts[f.source] = pc.UnitCost
		}
		if !pc.Active(f.needsKey) {
			reg.Disabled = append(reg.Disabled, f.source)
			log.WithField("provider", f.source).Info("provider disabled or missing api key")
			continue
		}
		fetcher, err := f.build(pc, hc)
		if err != nil {
			reg.Disabled = append(reg.Disabled, f.source)
			log.WithError(err).WithField("provider", f.source).Warn("provider not registered")
			continue
		}
		reg.Fetchers[f.source] = fetcher
	}
	return reg
}
