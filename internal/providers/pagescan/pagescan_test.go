package pagescan

import (
	"testing"
)

const productPage = `<!doctype html>
<html><head>
<title>Rover | Dog Walking &amp; Pet Sitting</title>
<meta name="description" content="Trusted dog walkers in your neighborhood.">
</head>
<body>
<nav><ul><li>Home</li><li>Login</li></ul></nav>
<main>
<h1>Book a walk today</h1>
<p>Rover connects pet parents with background-checked walkers across the country. Walks are GPS tracked and insured.</p>
<ul>
<li>GPS-tracked walks</li>
<li>Background-checked walkers</li>
<li>GPS-tracked walks</li>
<li>ok</li>
</ul>
<div class="pricing-table"><span class="price">$20</span> per walk, <span class="price">$35.50</span> for overnight</div>
</main>
<footer><ul><li>Privacy policy</li></ul></footer>
</body></html>`

func TestFromHTML(t *testing.T) {
	pg, err := FromHTML([]byte(productPage), "https://www.rover.com/dog-walking")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if pg.Name != "Rover" {
		t.Fatalf("expected name from title, got %q", pg.Name)
	}
	if pg.Description != "Trusted dog walkers in your neighborhood." {
		t.Fatalf("unexpected description %q", pg.Description)
	}
	if len(pg.Features) != 2 || pg.Features[0] != "GPS-tracked walks" || pg.Features[1] != "Background-checked walkers" {
		t.Fatalf("expected deduplicated body features only, got %v", pg.Features)
	}
	if len(pg.Prices) < 2 || pg.Prices[0] != 20 {
		t.Fatalf("expected prices from the pricing block, got %v", pg.Prices)
	}
	if pg.Text == "" {
		t.Fatalf("expected extracted body text")
	}

	c := pg.Competitor()
	if c.Pricing != "$20.00" || len(c.Claims) != 1 || c.URL != "https://www.rover.com/dog-walking" {
		t.Fatalf("unexpected competitor %+v", c)
	}
	if prs := pg.PriceRecords(); len(prs) != len(pg.Prices) || prs[0].Product != "Rover" || prs[0].Currency != "USD" {
		t.Fatalf("unexpected price records %+v", prs)
	}
}

func TestFromHTMLFallsBackToHost(t *testing.T) {
	pg, err := FromHTML([]byte(`<html><body><p>Nothing here</p></body></html>`), "https://www.wag.com/")
	if err != nil {
		t.Fatalf("FromHTML: %v", err)
	}
	if pg.Name != "wag.com" {
		t.Fatalf("expected host fallback, got %q", pg.Name)
	}
	if len(pg.Prices) != 0 {
		t.Fatalf("expected no prices, got %v", pg.Prices)
	}
}

func TestFromMarkdown(t *testing.T) {
	md := "# Wag Premium\n\n- **Unlimited** walks\n* Vet chat included\n+ ok\nPlans start at $9.99/month, family plan $19.99.\n"
	pg := FromMarkdown(md, "https://wagwalking.com/premium", "Wag! - Premium", "")
	if pg.Name != "Wag!" {
		t.Fatalf("unexpected name %q", pg.Name)
	}
	if len(pg.Features) != 2 || pg.Features[1] != "Vet chat included" {
		t.Fatalf("unexpected features %v", pg.Features)
	}
	if len(pg.Prices) != 2 || pg.Prices[0] != 9.99 || pg.Prices[1] != 19.99 {
		t.Fatalf("unexpected prices %v", pg.Prices)
	}
	if c := pg.Competitor(); c.Claims != nil {
		t.Fatalf("empty description must not become a claim: %+v", c)
	}
}
