package crawler

import (
	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricecrawler/internal/normalize"
	"sjsage522/pricecrawler/internal/urls"
)

// CatalogParser parses shops that sell their own products, such as
// kleineskraftwerk and priwatt. Detail pages show an optional struck-through
// original price next to the current one.
type CatalogParser struct {
	cfg SiteConfig
}

// NewCatalogParser creates a parser for a catalog site
func NewCatalogParser(cfg SiteConfig) *CatalogParser {
	return &CatalogParser{cfg: cfg}
}

// ParseListing returns the products of a collection page. Links are joined
// against the page they were found on.
func (p *CatalogParser) ParseListing(markup, sourceURL string) []ProductRecord {
	doc := createDocument(markup)
	if doc == nil {
		return nil
	}

	base := sourceURL
	if base == "" {
		base = p.cfg.Origin
	}

	var records []ProductRecord
	seen := make(map[string]struct{})

	firstMatch(doc.Selection, p.cfg.Selectors.Product).Each(func(_ int, block *goquery.Selection) {
		titleSel := pick(block, p.cfg.Selectors.Title)
		if titleSel.Length() == 0 {
			return
		}
		title := visibleText(titleSel)
		if titleTooShort(title, p.cfg.MinTitleLength) {
			return
		}

		href, _ := pick(block, p.cfg.Selectors.Link).Attr("href")
		link := urls.ToAbsolute(href, base)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		records = append(records, ProductRecord{
			Title:     title,
			DetailURL: link,
			SourceURL: sourceURL,
		})
	})

	return records
}

// ParseDetail sets the original and discounted price of rec. A page showing
// only one price yields equal prices and a "0.00%" rate; a page without any
// price leaves rec unchanged.
func (p *CatalogParser) ParseDetail(markup string, rec ProductRecord) ProductRecord {
	doc := createDocument(markup)
	if doc == nil {
		return rec
	}

	original, discounted := p.extractPrices(doc.Selection)
	if original == "" {
		original = discounted
	}
	if discounted == "" {
		discounted = original
	}
	if original == "" {
		return rec
	}

	rec.Price = DiscountedPrice{
		Original:   original,
		Discounted: discounted,
		Rate:       normalize.DiscountRate(original, discounted),
	}
	return rec
}

// extractPrices walks the price chains: the struck-through price, the
// current price, then the plain amount elements of the price block.
func (p *CatalogParser) extractPrices(doc *goquery.Selection) (string, string) {
	sel := p.cfg.Selectors

	block := doc
	if len(sel.PriceBlock) > 0 {
		block = firstMatch(doc, sel.PriceBlock).First()
		if block.Length() == 0 {
			block = doc
		}
	}

	original := normalize.Price(applyHandlers(block, chainHandlers(sel.OriginalPrice)))
	discounted := normalize.Price(applyHandlers(block, chainHandlers(sel.DiscountPrice)))
	if len(sel.Amount) == 0 {
		return original, discounted
	}

	amounts := firstMatch(block, sel.Amount)
	if discounted == "" {
		discounted = normalize.Price(visibleText(amounts.First()))
	}
	if original == "" {
		var found []string
		amounts.Each(func(_ int, s *goquery.Selection) {
			if v := normalize.Price(visibleText(s)); v != "" {
				found = append(found, v)
			}
		})
		switch {
		case len(found) >= 2:
			original = found[0]
			if discounted == "" {
				discounted = found[1]
			}
		case len(found) == 1:
			original = found[0]
			if discounted == "" {
				discounted = found[0]
			}
		}
	}
	return original, discounted
}
