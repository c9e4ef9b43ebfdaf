package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"

	"sjsage522/pricecrawler/config"
	"sjsage522/pricecrawler/pkg/errors"
)

const (
	idealoSearchURL = "https://www.idealo.de/preisvergleich/MainSearchProductCategory.html"

	// scrollAndWait scrolls to the bottom so lazy offers render, then waits
	scrollAndWait = `() => {
  window.scrollTo(0, document.body.scrollHeight);
  return new Promise(r => setTimeout(r, 4000));
}`

	defaultMinTitleLength = 6
)

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Accept-Language": "de-DE,de;q=0.9,en-US;q=0.8,en;q=0.7",
}

// siteBuilders holds the built-in sources in menu order
var siteBuilders = []struct {
	name  string
	build func(cfg *config.Config) SiteConfig
}{
	{"idealo", idealoSite},
	{"kleineskraftwerk", kleineskraftwerkSite},
	{"priwatt", priwattSite},
}

// SourceNames returns the names of all built-in sources in menu order
func SourceNames() []string {
	names := make([]string, 0, len(siteBuilders))
	for _, b := range siteBuilders {
		names = append(names, b.name)
	}
	return names
}

// Describe returns the one-line description of a source, or "" if unknown
func Describe(name string) string {
	for _, b := range siteBuilders {
		if b.name == name {
			return b.build(&config.Config{}).Description
		}
	}
	return ""
}

// BuildSite returns the configuration of the named source with the
// overrides of cfg applied. An unknown source, an unknown selector field
// or a selector that does not compile is a configuration error.
func BuildSite(name string, cfg *config.Config) (SiteConfig, error) {
	for _, b := range siteBuilders {
		if b.name != name {
			continue
		}
		site := b.build(cfg)
		if err := applyOverrides(&site, cfg.Sources[name]); err != nil {
			return SiteConfig{}, err
		}
		if err := site.Validate(); err != nil {
			return SiteConfig{}, err
		}
		return site, nil
	}
	return SiteConfig{}, errors.NewConfiguration(name, "unknown source", nil)
}

// NewParser returns the parser matching the kind of site
func NewParser(site SiteConfig) Parser {
	if site.Kind == KindComparison {
		return NewComparisonParser(site)
	}
	return NewCatalogParser(site)
}

// Validate checks that the site has listing URLs and that every selector
// compiles
func (s SiteConfig) Validate() error {
	if len(s.ListingURLs) == 0 {
		return errors.NewConfiguration(s.Name, "no listing URLs", nil)
	}
	for _, u := range s.ListingURLs {
		parsed, err := url.Parse(u)
		if err != nil || !parsed.IsAbs() {
			return errors.NewConfiguration(s.Name, fmt.Sprintf("invalid listing URL %q", u), err)
		}
	}
	for field, chain := range s.Selectors.fields() {
		for _, sel := range *chain {
			if _, err := cascadia.Compile(sel); err != nil {
				return errors.NewConfiguration(s.Name, fmt.Sprintf("selector %s: %q", field, sel), err)
			}
		}
	}
	if len(s.Selectors.Product) == 0 {
		return errors.NewConfiguration(s.Name, "no product selector", nil)
	}
	return nil
}

// fields maps configuration names to the selector chains
func (s *Selectors) fields() map[string]*Chain {
	return map[string]*Chain{
		"product":         &s.Product,
		"title":           &s.Title,
		"link":            &s.Link,
		"price":           &s.Price,
		"price_block":     &s.PriceBlock,
		"original_price":  &s.OriginalPrice,
		"discount_price":  &s.DiscountPrice,
		"amount":          &s.Amount,
		"offer_container": &s.OfferContainer,
		"offer_item":      &s.OfferItem,
		"cta":             &s.CTA,
		"merchant_logo":   &s.MerchantLogo,
	}
}

func applyOverrides(site *SiteConfig, o config.SourceOverride) error {
	if len(o.ListingURLs) > 0 {
		site.ListingURLs = append([]string(nil), o.ListingURLs...)
	}
	fields := site.Selectors.fields()
	for name, chain := range o.Selectors {
		target, ok := fields[strings.ToLower(name)]
		if !ok {
			return errors.NewConfiguration(site.Name, fmt.Sprintf("unknown selector field %q", name), nil)
		}
		*target = append(Chain(nil), chain...)
	}
	return nil
}

func blockTime(cfg *config.Config) time.Duration {
	if cfg.Cache.BlockTime > 0 {
		return cfg.Cache.BlockTime
	}
	return 10 * time.Minute
}

func retryDelay(cfg *config.Config) time.Duration {
	if cfg.Crawl.RetryDelay > 0 {
		return cfg.Crawl.RetryDelay
	}
	return 2 * time.Second
}

func idealoSite(cfg *config.Config) SiteConfig {
	query := cfg.Idealo.Query
	if query == "" {
		query = "anker solix"
	}
	return SiteConfig{
		Name:          "idealo",
		Description:   "idealo.de - Price comparison portal",
		Kind:          KindComparison,
		Origin:        "https://www.idealo.de",
		DomainMarker:  "idealo.",
		OwnSuffixes:   []string{"idealo.de", "idealo.co.uk"},
		RedirectPaths: []string{"/relocator/relocate", "/Redirect"},
		TargetParams:  []string{"targetUrl", "url", "redirectUrl"},
		ListingURLs: []string{
			idealoSearchURL + "?q=" + strings.ReplaceAll(url.QueryEscape(query), "+", "%20") + "&page=1",
		},
		Headers:        browserHeaders,
		Timeout:        90 * time.Second,
		WaitUntil:      "networkidle",
		Script:         scrollAndWait,
		RetryDelay:     retryDelay(cfg),
		MinTitleLength: defaultMinTitleLength,
		CacheKey:       "idealo_rate_limited",
		BlockTime:      blockTime(cfg),
		Selectors: Selectors{
			Product: Chain{`a[href*="/preisvergleich/OffersOfProduct/"]`},
			Price: Chain{
				"div.productOffers-listItemOfferPrice",
				"div.productOffers-listItemPrice",
				"a.productOffers-listItemOfferPrice",
				"span.price",
			},
			OfferContainer: Chain{
				"#offerList",
				"div[data-test='productOffers']",
				"section[data-test='offers']",
				"div.productOffers",
				"div[id*='productOffers']",
			},
			OfferItem: Chain{
				"li.productOffers-listItem",
				"div.productOffers-listItem",
			},
			CTA: Chain{
				"a.productOffers-listItemOfferCtaLeadout.button.button--leadout[data-shop-name]",
				"a.button--leadout[data-shop-name]",
				"a[data-shop-name]",
				"a.button--leadout",
			},
			MerchantLogo: Chain{
				"img.productOffers-listItemOfferShopV2LogoImage[alt]",
				"img[alt][class*='Logo'], img[alt][class*='Shop']",
			},
		},
	}
}

func kleineskraftwerkSite(cfg *config.Config) SiteConfig {
	return SiteConfig{
		Name:        "kleineskraftwerk",
		Description: "kleineskraftwerk.de - Small power station products",
		Kind:        KindCatalog,
		Origin:      "https://kleineskraftwerk.de",
		ListingURLs: []string{
			"https://kleineskraftwerk.de/collections/balkonkraftwerk-flachdach",
			"https://kleineskraftwerk.de/collections/balkonkraftwerk-ziegeldach",
			"https://kleineskraftwerk.de/collections/balkonkraftwerk-gitterbalkon",
			"https://kleineskraftwerk.de/collections/balkonkraftwerk-wandmontage-wandhalterung",
			"https://kleineskraftwerk.de/collections/balkonkraftwerk-ohne-halterung",
			"https://kleineskraftwerk.de/collections/balkonkraftwerk-garten",
		},
		Headers:        browserHeaders,
		Timeout:        60 * time.Second,
		WaitUntil:      "networkidle",
		RetryDelay:     retryDelay(cfg),
		MinTitleLength: defaultMinTitleLength,
		CacheKey:       "kleineskraftwerk_rate_limited",
		BlockTime:      blockTime(cfg),
		Selectors: Selectors{
			Product: Chain{"div.text-wrapper"},
			Title:   Chain{".product-title a"},
			Link:    Chain{".product-title a"},
			PriceBlock: Chain{
				"div.product-price-wrapper span.price",
				"span.price",
			},
			OriginalPrice: Chain{"del span.amount"},
			DiscountPrice: Chain{"ins span.amount"},
			Amount:        Chain{"span.amount"},
		},
	}
}

func priwattSite(cfg *config.Config) SiteConfig {
	return SiteConfig{
		Name:        "priwatt",
		Description: "priwatt.de - Balcony power plant products",
		Kind:        KindCatalog,
		Origin:      "https://priwatt.de",
		ListingURLs: []string{
			"https://priwatt.de/balkonkraftwerk-speicher/foxess-avocado-orbit/",
			"https://priwatt.de/balkonkraftwerk-speicher/anker/",
			"https://priwatt.de/balkonkraftwerk-speicher/ecoflow/",
			"https://priwatt.de/balkonkraftwerk-speicher/",
		},
		Headers:        browserHeaders,
		Timeout:        60 * time.Second,
		WaitUntil:      "networkidle",
		RetryDelay:     retryDelay(cfg),
		MinTitleLength: defaultMinTitleLength,
		CacheKey:       "priwatt_rate_limited",
		BlockTime:      blockTime(cfg),
		Selectors: Selectors{
			Product: Chain{"a.block[href]"},
			Title:   Chain{"h4.font-bold"},
			OriginalPrice: Chain{
				"div.mt-xs.flex.items-baseline h6.line-through",
				"h6.line-through",
			},
			DiscountPrice: Chain{"span[data-test='toc-product-price']"},
		},
	}
}
