package crawler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"sjsage522/pricecrawler/internal/fetcher"
	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/pkg/errors"
	"sjsage522/pricecrawler/services/cache"
)

// ListingOutcome is the result of one listing page
type ListingOutcome struct {
	URL     string
	Records []ProductRecord
	Err     error
}

// DetailOutcome is the result of enriching one record. Err is set when the
// detail page could not be fetched; Record then holds the listing fields only.
type DetailOutcome struct {
	Record ProductRecord
	Err    error
}

// Result is everything one crawl of a source produced, in listing order
type Result struct {
	Source   SiteConfig
	Listings []ListingOutcome
	Details  []DetailOutcome
}

// Crawler runs the two-stage crawl of one source: listing pages first, then
// one detail page per discovered record
type Crawler struct {
	site    SiteConfig
	parser  Parser
	fetcher fetcher.Fetcher
	cache   cache.CacheService
	log     *logger.Logger

	// sleep waits between listing attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a crawler. cacheSvc may be nil, which disables the cool-down.
func New(site SiteConfig, parser Parser, f fetcher.Fetcher, cacheSvc cache.CacheService) *Crawler {
	return &Crawler{
		site:    site,
		parser:  parser,
		fetcher: f,
		cache:   cacheSvc,
		log:     logger.ForCrawler(site.Name),
		sleep:   sleepContext,
	}
}

// Crawl fetches and parses every listing page, then enriches each record from
// its detail page. Per-page failures are kept in the result; Crawl only
// returns an error when the source is cooling down, every listing page
// failed, or ctx was cancelled.
func (c *Crawler) Crawl(ctx context.Context) (*Result, error) {
	if c.isCoolingDown() {
		return nil, errors.NewRateLimit(c.site.Name, c.site.BlockTime)
	}

	listings := c.fetchListings(ctx)
	if ctx.Err() != nil {
		return nil, errors.NewInterrupted(c.site.Name, ctx.Err())
	}

	failed := 0
	var records []ProductRecord
	for _, l := range listings {
		if l.Err != nil {
			failed++
			continue
		}
		records = append(records, l.Records...)
	}
	if failed > 0 && failed == len(listings) {
		c.coolDown()
		return nil, errors.NewNetwork(c.site.Name, "all listing pages failed", listings[0].Err)
	}

	c.log.Info().
		Int("listings", len(listings)).
		Int("records", len(records)).
		Msg("Listing stage finished")

	details := c.fetchDetails(ctx, records)
	if ctx.Err() != nil {
		return nil, errors.NewInterrupted(c.site.Name, ctx.Err())
	}

	return &Result{
		Source:   c.site,
		Listings: listings,
		Details:  details,
	}, nil
}

// fetchListings fetches all listing pages concurrently. The outcome order
// matches the configured listing order.
func (c *Crawler) fetchListings(ctx context.Context) []ListingOutcome {
	outcomes := make([]ListingOutcome, len(c.site.ListingURLs))

	var wg sync.WaitGroup
	for i, u := range c.site.ListingURLs {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			outcomes[i] = c.fetchListing(ctx, u)
		}(i, u)
	}
	wg.Wait()

	return outcomes
}

// fetchListing makes at most two attempts. A second attempt follows a fetch
// error or a page without products, which usually means the page had not
// finished rendering.
func (c *Crawler) fetchListing(ctx context.Context, listingURL string) ListingOutcome {
	out := ListingOutcome{URL: listingURL}

	for attempt := 1; attempt <= 2; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.site.RetryDelay); err != nil {
				out.Err = errors.FromContext(ctx, c.site.Name, "listing retry", err)
				return out
			}
		}

		page, err := c.fetcher.Fetch(ctx, c.request(listingURL))
		if err != nil {
			out.Err = err
			c.log.Warn().
				Err(err).
				Str("stage", "listing").
				Str("url", listingURL).
				Int("attempt", attempt).
				Msg("Listing fetch failed")
			if errors.IsInterrupted(err) {
				return out
			}
			continue
		}

		out.Err = nil
		out.Records = c.parser.ParseListing(page.HTML, listingURL)
		if len(out.Records) > 0 {
			return out
		}
		c.log.Debug().
			Str("stage", "listing").
			Str("url", listingURL).
			Int("attempt", attempt).
			Msg("Listing page has no products")
	}

	return out
}

// fetchDetails enriches every record from its detail page. Each goroutine
// owns one slot of the outcome slice, so no locking is needed; the fetcher
// bounds how many requests are in flight.
func (c *Crawler) fetchDetails(ctx context.Context, records []ProductRecord) []DetailOutcome {
	outcomes := make([]DetailOutcome, len(records))

	var wg sync.WaitGroup
	for i, rec := range records {
		if rec.DetailURL == "" {
			rec.ListingPrice = ""
			outcomes[i] = DetailOutcome{Record: rec}
			continue
		}

		wg.Add(1)
		go func(i int, rec ProductRecord) {
			defer wg.Done()
			outcomes[i] = c.fetchDetail(ctx, rec)
		}(i, rec)
	}
	wg.Wait()

	return outcomes
}

func (c *Crawler) fetchDetail(ctx context.Context, rec ProductRecord) DetailOutcome {
	page, err := c.fetcher.Fetch(ctx, c.request(rec.DetailURL))
	if err != nil {
		if !errors.IsInterrupted(err) {
			c.log.Warn().
				Err(err).
				Str("stage", "detail").
				Str("url", rec.DetailURL).
				Msg("Detail fetch failed, keeping listing fields")
		}
		rec.ListingPrice = ""
		return DetailOutcome{Record: rec, Err: err}
	}

	return DetailOutcome{Record: c.parser.ParseDetail(page.HTML, rec)}
}

func (c *Crawler) request(u string) fetcher.Request {
	return fetcher.Request{
		URL:       u,
		Headers:   c.site.Headers,
		Timeout:   c.site.Timeout,
		WaitUntil: c.site.WaitUntil,
		Script:    c.site.Script,
	}
}

// isCoolingDown reports whether the source was blocked by a previous run
func (c *Crawler) isCoolingDown() bool {
	if c.cache == nil || c.site.CacheKey == "" {
		return false
	}
	_, err := c.cache.Get(c.site.CacheKey)
	if err == nil {
		c.log.Warn().Str("key", c.site.CacheKey).Msg("Source is cooling down, skipping")
		return true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.log.Debug().Err(err).Msg("Cool-down lookup failed")
	}
	return false
}

// coolDown blocks the source for BlockTime
func (c *Crawler) coolDown() {
	if c.cache == nil || c.site.CacheKey == "" || c.site.BlockTime <= 0 {
		return
	}
	value := []byte(strconv.Itoa(int(c.site.BlockTime.Seconds())))
	if err := c.cache.Set(c.site.CacheKey, value, c.site.BlockTime); err != nil {
		c.log.Error().Err(err).Msg("Failed to store cool-down marker")
		return
	}
	c.log.Warn().Dur("block_time", c.site.BlockTime).Msg("Source blocked after failed listing stage")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
