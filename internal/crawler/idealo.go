package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricecrawler/internal/normalize"
	"sjsage522/pricecrawler/internal/urls"
)

// ComparisonParser parses price comparison portals such as idealo, where a
// product page lists offers of many shops behind redirect links.
type ComparisonParser struct {
	cfg      SiteConfig
	resolver *urls.Resolver
}

// NewComparisonParser creates a parser for a comparison site
func NewComparisonParser(cfg SiteConfig) *ComparisonParser {
	return &ComparisonParser{
		cfg: cfg,
		resolver: &urls.Resolver{
			Origin:        cfg.Origin,
			DomainMarker:  cfg.DomainMarker,
			OwnSuffixes:   cfg.OwnSuffixes,
			RedirectPaths: cfg.RedirectPaths,
			TargetParams:  cfg.TargetParams,
		},
	}
}

// ParseListing returns one record per product anchor of a search page
func (p *ComparisonParser) ParseListing(markup, sourceURL string) []ProductRecord {
	doc := createDocument(markup)
	if doc == nil {
		return nil
	}

	var records []ProductRecord
	seen := make(map[string]struct{})

	firstMatch(doc.Selection, p.cfg.Selectors.Product).Each(func(_ int, block *goquery.Selection) {
		title := visibleText(pick(block, p.cfg.Selectors.Title))
		if titleTooShort(title, p.cfg.MinTitleLength) {
			return
		}

		href, _ := pick(block, p.cfg.Selectors.Link).Attr("href")
		link := p.resolver.ToAbsolute(href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		records = append(records, ProductRecord{
			Title:        title,
			DetailURL:    link,
			SourceURL:    sourceURL,
			ListingPrice: p.listingPrice(block),
		})
	})

	return records
}

// listingPrice looks for an "ab 199,00 €" hint in the block, then in its
// parent
func (p *ComparisonParser) listingPrice(block *goquery.Selection) string {
	if hint := normalize.ListingPriceHint(visibleText(block)); hint != "" {
		return hint
	}
	if parent := block.Parent(); parent.Length() > 0 {
		return normalize.ListingPriceHint(visibleText(parent))
	}
	return ""
}

// ParseDetail fills price, offer URL and merchant from a product page
func (p *ComparisonParser) ParseDetail(markup string, rec ProductRecord) ProductRecord {
	doc := createDocument(markup)
	if doc == nil {
		return rec
	}
	sel := p.cfg.Selectors

	priceText := applyHandlers(doc.Selection, chainHandlers(sel.Price))
	if priceText == "" {
		priceText = rec.ListingPrice
	}
	if priceText != "" {
		rec.Price = PlainPrice{
			Amount: normalize.Price(priceText),
			Text:   normalize.StripDiscountPrefix(priceText),
		}
	}

	container := firstMatch(doc.Selection, sel.OfferContainer).First()
	if container.Length() == 0 {
		container = doc.Selection
	}
	offer := firstMatch(container, sel.OfferItem).First()
	if offer.Length() == 0 {
		offer = container
	}
	cta := firstMatch(offer, sel.CTA).First()

	rec.ExternalOfferURL = p.offerURL(offer, cta)
	rec.Merchant = applyHandlers(offer, []ElementHandler{
		func(*goquery.Selection) string {
			shop, _ := cta.Attr("data-shop-name")
			return normalize.Merchant(shop)
		},
		func(s *goquery.Selection) string {
			alt, _ := firstMatch(s, sel.MerchantLogo).First().Attr("alt")
			return normalize.MerchantFromAlt(alt)
		},
		func(*goquery.Selection) string {
			return p.merchantFromOfferURL(rec.ExternalOfferURL)
		},
	})
	rec.ListingPrice = ""

	return rec
}

// offerURL resolves the call-to-action link of the offer, falling back to
// the first link with an href
func (p *ComparisonParser) offerURL(offer, cta *goquery.Selection) string {
	if href, ok := cta.Attr("href"); ok && strings.TrimSpace(href) != "" {
		return p.resolver.Resolve(href)
	}

	var link string
	offer.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.TrimSpace(href) == "" {
			return true
		}
		link = p.resolver.Resolve(href)
		return false
	})
	return link
}

// merchantFromOfferURL derives the merchant from the host behind the offer
// link. Hosts of the portal itself never name a merchant.
func (p *ComparisonParser) merchantFromOfferURL(offerURL string) string {
	if offerURL == "" {
		return ""
	}
	host := urls.ExtractHost(p.resolver.ResolveRedirect(offerURL))
	if host == "" || p.resolver.IsOwnHost(host) {
		return ""
	}
	return normalize.Merchant(host)
}
