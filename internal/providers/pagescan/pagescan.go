// Package pagescan turns a scraped product page into competitor and price
// facts. HTML goes through readability for the body text and goquery for
// metadata, list items and price blocks; markdown from crawl APIs is
// scanned line by line.
package pagescan

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/mohammad-safakhou/ideahub/internal/hub"
	"github.com/mohammad-safakhou/ideahub/internal/textutil"
)

const (
	maxFeatures      = 8
	minFeatureLen    = 4
	maxFeatureLen    = 140
	maxPricesPerPage = 10
)

var (
	titleSeparators = []string{" | ", " - ", " – ", ": "}
	emphasis        = strings.NewReplacer("**", "", "__", "", "`", "")
)

// Page is what one scraped page contributes to the indices.
type Page struct {
	URL         string
	Name        string
	Description string
	Text        string
	Features    []string
	Prices      []float64
}

// FromHTML parses a raw HTML document fetched from pageURL.
func FromHTML(raw []byte, pageURL string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	pg := &Page{URL: pageURL}
	pg.Name = strings.TrimSpace(doc.Find(`meta[property="og:site_name"]`).AttrOr("content", ""))
	if pg.Name == "" {
		pg.Name = siteName(doc.Find("title").First().Text())
	}
	pg.Description = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	if pg.Description == "" {
		pg.Description = strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}

	if article, err := readability.FromReader(bytes.NewReader(raw), u); err == nil {
		pg.Text = textutil.PlainText(article.TextContent)
		if pg.Name == "" {
			pg.Name = strings.TrimSpace(article.SiteName)
		}
	}
	if pg.Text == "" {
		pg.Text = textutil.PlainText(doc.Find("body").Text())
	}
	if pg.Name == "" {
		pg.Name = textutil.Host(pageURL)
	}

	var features []string
	doc.Find("li").Not("nav li, header li, footer li").Each(func(_ int, s *goquery.Selection) {
		features = append(features, s.Text())
	})
	pg.Features = pickFeatures(features)

	priceText := doc.Find(`[class*="price"], [id*="price"], [class*="pricing"]`).Text()
	if strings.TrimSpace(priceText) == "" {
		priceText = pg.Text
	}
	pg.Prices = limitPrices(hub.ExtractPrices(priceText))
	return pg, nil
}

// FromMarkdown builds a page from crawler markdown output.
func FromMarkdown(md, pageURL, title, description string) *Page {
	pg := &Page{
		URL:         pageURL,
		Name:        siteName(title),
		Description: strings.TrimSpace(description),
		Text:        strings.TrimSpace(md),
	}
	if pg.Name == "" {
		pg.Name = textutil.Host(pageURL)
	}
	var bullets []string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		for _, marker := range []string{"- ", "* ", "+ "} {
			if strings.HasPrefix(line, marker) {
				bullets = append(bullets, strings.TrimPrefix(line, marker))
				break
			}
		}
	}
	pg.Features = pickFeatures(bullets)
	pg.Prices = limitPrices(hub.ExtractPrices(md))
	return pg
}

// Competitor renders the page as a competitor record.
func (p Page) Competitor() hub.CompetitorRecord {
	c := hub.CompetitorRecord{Name: p.Name, URL: p.URL, Features: p.Features}
	if p.Description != "" {
		c.Claims = []string{p.Description}
	}
	if len(p.Prices) > 0 {
		c.Pricing = fmt.Sprintf("$%.2f", p.Prices[0])
	}
	return c
}

// PriceRecords renders every price found on the page.
func (p Page) PriceRecords() []hub.PriceRecord {
	out := make([]hub.PriceRecord, 0, len(p.Prices))
	for _, v := range p.Prices {
		out = append(out, hub.PriceRecord{Product: p.Name, Price: v, Currency: "USD", URL: p.URL})
	}
	return out
}

func siteName(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range titleSeparators {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

func pickFeatures(candidates []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range candidates {
		c = strings.Join(strings.Fields(emphasis.Replace(textutil.PlainText(c))), " ")
		if len(c) < minFeatureLen || len(c) > maxFeatureLen {
			continue
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
		if len(out) == maxFeatures {
			break
		}
	}
	return out
}

func limitPrices(ps []float64) []float64 {
	if len(ps) > maxPricesPerPage {
		return ps[:maxPricesPerPage]
	}
	return ps
}
