package crawler

import (
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Kind tells how a source prices its products and which columns it emits
type Kind int

const (
	// KindComparison is a price comparison portal listing many sellers per product
	KindComparison Kind = iota
	// KindCatalog is a shop selling its own products
	KindCatalog
)

func (k Kind) String() string {
	if k == KindComparison {
		return "comparison"
	}
	return "catalog"
}

// PriceInfo is either a PlainPrice or a DiscountedPrice. A nil PriceInfo means
// no price could be determined.
type PriceInfo interface {
	isPriceInfo()
}

// PlainPrice is the single current price of a comparison site offer
type PlainPrice struct {
	// Amount is the canonical decimal, e.g. "1299.00"
	Amount string
	// Text is the scraped price text with "ab"/"from" markers removed
	Text string
}

// DiscountedPrice is a catalog price with an optional markdown. Original and
// Discounted are equal when the page shows a single price.
type DiscountedPrice struct {
	Original   string
	Discounted string
	Rate       string
}

func (PlainPrice) isPriceInfo()      {}
func (DiscountedPrice) isPriceInfo() {}

// ProductRecord is one product found on a source
type ProductRecord struct {
	Title            string
	DetailURL        string
	SourceURL        string
	Price            PriceInfo
	Merchant         string
	ExternalOfferURL string

	// ListingPrice is the price text shown on the listing page. It is only
	// used as a fallback while the detail page is parsed.
	ListingPrice string
}

// Parser extracts records from the markup of one source. Both methods are
// pure and never fail: missing markup yields empty values.
type Parser interface {
	// ParseListing returns the products of a listing page, deduplicated by
	// DetailURL
	ParseListing(html, sourceURL string) []ProductRecord

	// ParseDetail returns rec completed with the fields of its detail page
	ParseDetail(html string, rec ProductRecord) ProductRecord
}

// ElementHandler extracts a single value from a selection
type ElementHandler func(*goquery.Selection) string

// Chain is an ordered list of CSS selectors. The first selector matching
// anything wins.
type Chain []string

// Selectors holds the selector chains of a source. Which fields are used
// depends on the parser.
type Selectors struct {
	// listing page
	Product Chain
	Title   Chain
	Link    Chain

	// detail page
	Price          Chain
	PriceBlock     Chain
	OriginalPrice  Chain
	DiscountPrice  Chain
	Amount         Chain
	OfferContainer Chain
	OfferItem      Chain
	CTA            Chain
	MerchantLogo   Chain
}

// SiteConfig is the immutable configuration of one source
type SiteConfig struct {
	Name        string
	Description string
	Kind        Kind

	Origin        string
	DomainMarker  string
	OwnSuffixes   []string
	RedirectPaths []string
	TargetParams  []string

	ListingURLs []string
	Headers     map[string]string
	Timeout     time.Duration
	WaitUntil   string
	Script      string

	RetryDelay     time.Duration
	MinTitleLength int

	CacheKey  string
	BlockTime time.Duration

	Selectors Selectors
}
