package hub

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/ideahub/internal/textutil"
	"github.com/sirupsen/logrus"
)

var evidenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ideahub/evidence"))

var priceRe = regexp.MustCompile(`(?i)(?:\$|usd\s?)\s?(\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)

const maxPlausiblePrice = 100000

// ExtractPrices returns the dollar amounts mentioned in text.
func ExtractPrices(text string) []float64 {
	var out []float64
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || v <= 0 || v >= maxPlausiblePrice {
			continue
		}
		out = append(out, v)
	}
	return out
}

type route int

const (
	routeSearch route = iota
	routeCompetitor
	routeNews
	routePricing
	routeSocial
	routeTrends
)

// routeFor maps a purpose tag to the index its untyped organic results land in.
func routeFor(purpose string) route {
	switch {
	case strings.Contains(purpose, "competitor"):
		return routeCompetitor
	case strings.Contains(purpose, "news"):
		return routeNews
	case strings.Contains(purpose, "pricing"):
		return routePricing
	case strings.Contains(purpose, "reddit"), strings.Contains(purpose, "twitter"), strings.Contains(purpose, "social"):
		return routeSocial
	case purpose == PurposeMarketSize:
		return routeTrends
	default:
		return routeSearch
	}
}

func platformFor(purpose string) string {
	switch {
	case strings.Contains(purpose, "reddit"):
		return "reddit"
	case strings.Contains(purpose, "twitter"):
		return "twitter"
	default:
		return "web"
	}
}

// ingester writes one fetch result into the indices. Typed payload fields go
// to their own index; organic results are routed by purpose.
type ingester struct {
	ix         *Indices
	classifier ToneClassifier
	log        *logrus.Entry
	now        func() time.Time
}

// ingest routes p into the indices. rank is the item's position in the
// executed plan.
func (g *ingester) ingest(ctx context.Context, rank int, item FetchPlanItem, p Payload) {
	now := g.now()
	tiles := TilesForPurpose(item.Purpose)
	var evidence []Evidence
	promote := func(u, title, snippet string, confidence float64) {
		if u == "" {
			return
		}
		canonical, err := textutil.CanonicalURL(u)
		if err != nil {
			canonical = u
		}
		evidence = append(evidence, Evidence{
			ID:             uuid.NewSHA1(evidenceNamespace, []byte(item.Purpose+"|"+canonical)).String(),
			URL:            u,
			Title:          title,
			Source:         item.Source,
			Snippet:        snippet,
			Confidence:     clamp01(confidence),
			TileReferences: tiles,
		})
	}

	var (
		search      []SearchRecord
		competitors []CompetitorRecord
		prices      []PriceRecord
		news        []NewsRecord
		social      []SocialRecord
		reviews     []ReviewRecord
	)

	kind := routeFor(item.Purpose)
	for _, r := range p.Organic {
		title, snippet := g.clean(r.Title), g.clean(r.Snippet)
		rel := relevance(r)
		switch kind {
		case routeCompetitor:
			c := CompetitorRecord{
				Name:        competitorName(title),
				URL:         r.URL,
				LastUpdated: now,
				PlanItemID:  item.ID,
			}
			if snippet != "" {
				c.Claims = []string{snippet}
			}
			if ps := ExtractPrices(title + " " + snippet); len(ps) > 0 {
				c.Pricing = fmt.Sprintf("$%.2f", ps[0])
			}
			competitors = append(competitors, c)
		case routeNews:
			news = append(news, NewsRecord{
				Publisher:      textutil.Host(r.URL),
				Title:          title,
				URL:            r.URL,
				PublishedDate:  now,
				Snippet:        snippet,
				RelevanceScore: rel,
				PlanItemID:     item.ID,
			})
			promote(r.URL, title, snippet, rel)
			continue
		case routeSocial:
			social = append(social, SocialRecord{
				Source:     item.Source,
				Platform:   platformFor(item.Purpose),
				Content:    strings.TrimSpace(title + " " + snippet),
				URL:        r.URL,
				Date:       now,
				PlanItemID: item.ID,
			})
			promote(r.URL, title, snippet, rel)
			continue
		default:
			search = append(search, SearchRecord{
				URL:            r.URL,
				Title:          title,
				Snippet:        snippet,
				Source:         item.Source,
				Purpose:        item.Purpose,
				FetchedAt:      now,
				RelevanceScore: rel,
				PlanItemID:     item.ID,
			})
		}
		if kind == routePricing || kind == routeCompetitor {
			for _, v := range ExtractPrices(title + " " + snippet) {
				prices = append(prices, PriceRecord{Source: item.Source, Product: competitorName(title), Price: v, Currency: "USD", URL: r.URL, PlanItemID: item.ID})
			}
		}
		promote(r.URL, title, snippet, rel)
	}

	for _, a := range p.News {
		title, snippet := g.clean(a.Title), g.clean(a.Snippet)
		published := a.PublishedDate
		if published.IsZero() {
			published = now
		}
		publisher := strings.TrimSpace(a.Publisher)
		if publisher == "" {
			publisher = textutil.Host(a.URL)
		}
		news = append(news, NewsRecord{
			Publisher:      publisher,
			Title:          title,
			URL:            a.URL,
			PublishedDate:  published,
			Snippet:        snippet,
			RelevanceScore: 0.7,
			PlanItemID:     item.ID,
		})
		promote(a.URL, title, snippet, 0.7)
	}
	for _, s := range p.Social {
		s.Content = g.clean(s.Content)
		s.PlanItemID = item.ID
		if s.Source == "" {
			s.Source = item.Source
		}
		if s.Platform == "" {
			s.Platform = platformFor(item.Purpose)
		}
		if s.Date.IsZero() {
			s.Date = now
		}
		social = append(social, s)
		promote(s.URL, textutil.Truncate(s.Content, 120), s.Content, 0.5)
	}
	for _, r := range p.Reviews {
		r.Content = g.clean(r.Content)
		r.PlanItemID = item.ID
		if r.Source == "" {
			r.Source = item.Source
		}
		reviews = append(reviews, r)
	}
	for _, pr := range p.Prices {
		pr.PlanItemID = item.ID
		if pr.Source == "" {
			pr.Source = item.Source
		}
		if pr.Currency == "" {
			pr.Currency = "USD"
		}
		prices = append(prices, pr)
	}
	for _, c := range p.Competitors {
		c.PlanItemID = item.ID
		if c.LastUpdated.IsZero() {
			c.LastUpdated = now
		}
		competitors = append(competitors, c)
		promote(c.URL, c.Name, strings.Join(c.Claims, " "), 0.7)
	}

	g.classify(ctx, news, social, reviews)

	g.ix.AddSearch(search...)
	g.ix.AddCompetitors(competitors...)
	g.ix.AddPrices(prices...)
	g.ix.AddNews(news...)
	g.ix.AddSocial(social...)
	g.ix.AddReviews(reviews...)
	if p.Trends != nil {
		t := *p.Trends
		t.PlanItemID = item.ID
		if t.Keyword == "" {
			t.Keyword = item.Query
		}
		g.ix.MergeTrends(rank, t)
	}
	g.ix.AddEvidence(evidence...)
}

// classify fills missing tones with one classifier call per payload. Any
// classifier error falls back to the lexicon so ingestion never fails.
func (g *ingester) classify(ctx context.Context, news []NewsRecord, social []SocialRecord, reviews []ReviewRecord) {
	type slot struct {
		set  func(Tone)
		text string
	}
	var slots []slot
	for i := range news {
		if news[i].Tone == "" {
			n := &news[i]
			slots = append(slots, slot{func(t Tone) { n.Tone = t }, n.Title + ". " + n.Snippet})
		}
	}
	for i := range social {
		if social[i].Sentiment == "" {
			s := &social[i]
			slots = append(slots, slot{func(t Tone) { s.Sentiment = t }, s.Content})
		}
	}
	for i := range reviews {
		if reviews[i].Sentiment == "" {
			r := &reviews[i]
			slots = append(slots, slot{func(t Tone) { r.Sentiment = t }, r.Content})
		}
	}
	if len(slots) == 0 {
		return
	}
	texts := make([]string, len(slots))
	for i, s := range slots {
		texts[i] = s.text
	}
	var tones []Tone
	if g.classifier != nil {
		var err error
		tones, err = g.classifier.Classify(ctx, texts)
		if err != nil || len(tones) != len(texts) {
			if g.log != nil {
				g.log.WithError(err).WithField("texts", len(texts)).Warn("tone classifier failed, using lexicon")
			}
			tones = nil
		}
	}
	if tones == nil {
		tones, _ = LexiconClassifier{}.Classify(ctx, texts)
	}
	for i, s := range slots {
		s.set(normalizeTone(tones[i]))
	}
}

func (g *ingester) clean(s string) string { return textutil.PlainText(s) }

func normalizeTone(t Tone) Tone {
	switch Tone(strings.ToLower(strings.TrimSpace(string(t)))) {
	case TonePositive:
		return TonePositive
	case ToneNegative:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// relevance prefers a provider score, then the result position.
func relevance(r OrganicResult) float64 {
	if r.Score > 0 {
		return clamp01(r.Score)
	}
	if r.Position > 0 {
		v := 1 - 0.1*float64(r.Position-1)
		if v < 0.1 {
			v = 0.1
		}
		return v
	}
	return 0.5
}

func competitorName(title string) string {
	for _, sep := range []string{" - ", " | ", ": ", " \u2014 "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
