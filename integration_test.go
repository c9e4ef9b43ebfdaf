package main

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricecrawler/config"
	"sjsage522/pricecrawler/services/worker"
)

// A catalog listing in the markup of a balcony power plant shop
const testListingHTML = `
<!DOCTYPE html>
<html>
<body>
    <div class="grid">
        <a class="block" href="/p/1">
            <h4 class="font-bold">Anker SOLIX Solarbank 2 Pro</h4>
        </a>
        <a class="block" href="/p/2">
            <h4 class="font-bold">EcoFlow STREAM Ultra</h4>
        </a>
        <a class="block" href="/p/1">
            <h4 class="font-bold">Anker SOLIX Solarbank 2 Pro (Bundle)</h4>
        </a>
    </div>
</body>
</html>
`

const testDetailHTML = `
<!DOCTYPE html>
<html>
<body>
    <div class="mt-xs flex items-baseline">
        <h6 class="line-through">1.299,00 €</h6>
    </div>
    <span data-test="toc-product-price">999,00 €</span>
</body>
</html>
`

func newTestShop(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/list":
			w.Write([]byte(testListingHTML))
		case "/p/1":
			w.Write([]byte(testDetailHTML))
		default:
			http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
		}
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func testConfig(t *testing.T, listingURL string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Output.Dir = filepath.Join(t.TempDir(), "data")
	cfg.Fetch.Backend = "http"
	cfg.Fetch.Concurrency = 2
	cfg.Crawl.RetryDelay = time.Millisecond
	cfg.Cache.BlockTime = time.Minute
	cfg.Sources = map[string]config.SourceOverride{
		"priwatt": {ListingURLs: []string{listingURL}},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestEndToEnd(t *testing.T) {
	server, _ := newTestShop(t)
	cfg := testConfig(t, server.URL+"/list")

	ctx := context.Background()
	services, err := initializeServices(ctx, cfg)
	require.NoError(t, err)
	defer services.Cleanup()

	w := worker.NewWorker(worker.Options{OutputDir: cfg.Output.Dir})
	summary := w.Run(ctx, buildJobs(cfg, []string{"priwatt", "amazon"}, services))

	require.Len(t, summary.Results, 2)
	assert.Equal(t, worker.StatusSuccess, summary.Results[0].Status)
	assert.Equal(t, 2, summary.Results[0].Records)
	assert.Equal(t, 1, summary.Results[0].Failures)
	assert.Equal(t, worker.StatusFailed, summary.Results[1].Status)
	assert.Equal(t, worker.ExitFailed, summary.ExitCode())

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "priwatt.csv"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "\ufeff"))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"sourceUrl", "title", "detailUrl", "originalPrice", "discountPrice", "discountRate"}, rows[0])
	assert.Equal(t, []string{
		server.URL + "/list", "Anker SOLIX Solarbank 2 Pro", server.URL + "/p/1", "1299.00", "999.00", "23.09%",
	}, rows[1])
	assert.Equal(t, []string{
		server.URL + "/list", "EcoFlow STREAM Ultra", server.URL + "/p/2", "", "", "",
	}, rows[2])
}

func TestEndToEndCoolDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL+"/list")
	ctx := context.Background()
	services, err := initializeServices(ctx, cfg)
	require.NoError(t, err)
	defer services.Cleanup()

	w := worker.NewWorker(worker.Options{OutputDir: cfg.Output.Dir})
	first := w.Run(ctx, buildJobs(cfg, []string{"priwatt"}, services))
	assert.Equal(t, worker.ExitFailed, first.ExitCode())

	_, err = services.Cache.Get("priwatt_rate_limited")
	assert.NoError(t, err, "a failed listing stage blocks the source")

	second := w.Run(ctx, buildJobs(cfg, []string{"priwatt"}, services))
	assert.Equal(t, worker.ExitFailed, second.ExitCode())
	assert.Contains(t, second.Results[0].Err.Error(), "rate limited")
}

func TestEndToEndInterrupted(t *testing.T) {
	server, requests := newTestShop(t)
	cfg := testConfig(t, server.URL+"/list")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	services, err := initializeServices(context.Background(), cfg)
	require.NoError(t, err)
	defer services.Cleanup()

	w := worker.NewWorker(worker.Options{OutputDir: cfg.Output.Dir})
	summary := w.Run(ctx, buildJobs(cfg, []string{"priwatt", "kleineskraftwerk"}, services))

	assert.Equal(t, worker.ExitInterrupted, summary.ExitCode())
	assert.Equal(t, worker.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, int32(0), atomic.LoadInt32(requests))
}

func TestMenuEntries(t *testing.T) {
	entries := menuEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "idealo", entries[0].Name)
	assert.Equal(t, "idealo.de - Price comparison portal", entries[0].Description)
}
