package crawler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricecrawler/config"
	"sjsage522/pricecrawler/pkg/errors"
)

func TestSourceNames(t *testing.T) {
	assert.Equal(t, []string{"idealo", "kleineskraftwerk", "priwatt"}, SourceNames())
	assert.Contains(t, Describe("priwatt"), "priwatt.de")
	assert.Equal(t, "", Describe("nope"))
}

func TestBuildSiteDefaults(t *testing.T) {
	for _, name := range SourceNames() {
		t.Run(name, func(t *testing.T) {
			site, err := BuildSite(name, &config.Config{})
			require.NoError(t, err)

			assert.Equal(t, name, site.Name)
			assert.Equal(t, name+"_rate_limited", site.CacheKey)
			assert.Equal(t, 10*time.Minute, site.BlockTime)
			assert.Equal(t, 2*time.Second, site.RetryDelay)
			assert.Equal(t, "networkidle", site.WaitUntil)
			assert.NotEmpty(t, site.ListingURLs)
			assert.NotEmpty(t, site.Headers["User-Agent"])
		})
	}
}

func TestBuildSiteIdealo(t *testing.T) {
	cfg := &config.Config{}
	cfg.Idealo.Query = "ecoflow stream"
	cfg.Crawl.RetryDelay = 5 * time.Second

	site, err := BuildSite("idealo", cfg)
	require.NoError(t, err)

	assert.Equal(t, KindComparison, site.Kind)
	assert.Equal(t, []string{
		"https://www.idealo.de/preisvergleich/MainSearchProductCategory.html?q=ecoflow%20stream&page=1",
	}, site.ListingURLs)
	assert.Equal(t, 90*time.Second, site.Timeout)
	assert.Equal(t, 5*time.Second, site.RetryDelay)
	assert.NotEmpty(t, site.Script)
	assert.IsType(t, &ComparisonParser{}, NewParser(site))
}

func TestBuildSiteCatalog(t *testing.T) {
	site, err := BuildSite("kleineskraftwerk", &config.Config{})
	require.NoError(t, err)

	assert.Equal(t, KindCatalog, site.Kind)
	assert.Len(t, site.ListingURLs, 6)
	assert.Equal(t, 60*time.Second, site.Timeout)
	assert.Empty(t, site.Script)
	assert.IsType(t, &CatalogParser{}, NewParser(site))
}

func TestBuildSiteOverrides(t *testing.T) {
	cfg := &config.Config{
		Sources: map[string]config.SourceOverride{
			"priwatt": {
				ListingURLs: []string{"https://priwatt.de/neu/"},
				Selectors: map[string][]string{
					"discount_price": {"span.sale-price", "span.price"},
				},
			},
		},
	}

	site, err := BuildSite("priwatt", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://priwatt.de/neu/"}, site.ListingURLs)
	assert.Equal(t, Chain{"span.sale-price", "span.price"}, site.Selectors.DiscountPrice)
	assert.Equal(t, Chain{"a.block[href]"}, site.Selectors.Product)

	// overrides never leak into the defaults of other builds
	fresh, err := BuildSite("priwatt", &config.Config{})
	require.NoError(t, err)
	assert.Equal(t, Chain{"span[data-test='toc-product-price']"}, fresh.Selectors.DiscountPrice)
}

func TestBuildSiteErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		override config.SourceOverride
		contains string
	}{
		{
			name:     "unknown source",
			source:   "amazon",
			contains: "unknown source",
		},
		{
			name:     "unknown selector field",
			source:   "idealo",
			override: config.SourceOverride{Selectors: map[string][]string{"thumbnail": {"img"}}},
			contains: "unknown selector field",
		},
		{
			name:     "selector does not compile",
			source:   "kleineskraftwerk",
			override: config.SourceOverride{Selectors: map[string][]string{"title": {"h3[[a"}}},
			contains: "selector title",
		},
		{
			name:     "relative listing URL",
			source:   "priwatt",
			override: config.SourceOverride{ListingURLs: []string{"/balkonkraftwerk-speicher/"}},
			contains: "invalid listing URL",
		},
		{
			name:     "empty product selector",
			source:   "priwatt",
			override: config.SourceOverride{Selectors: map[string][]string{"product": {}}},
			contains: "no product selector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Sources: map[string]config.SourceOverride{tt.source: tt.override}}
			_, err := BuildSite(tt.source, cfg)
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeConfiguration, errors.TypeOf(err))
			assert.True(t, strings.Contains(err.Error(), tt.contains), err.Error())
		})
	}
}
