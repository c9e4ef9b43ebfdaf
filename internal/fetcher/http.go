package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"

	"golang.org/x/net/html/charset"

	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/pkg/errors"
)

const httpBackend = "http"

// HTTPFetcher issues plain GET requests. It runs no JavaScript, so wait
// policies and scripts are ignored.
type HTTPFetcher struct {
	client *http.Client
	log    *logger.Logger
}

// NewHTTPFetcher creates a plain HTTP fetcher
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{},
		log:    logger.ForFetcher(httpBackend),
	}
}

// Fetch sends a GET request with browser-like headers and returns the body
// converted to UTF-8
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	fetchCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, errors.NewConfiguration(httpBackend, "create request", err)
	}

	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Pragma", "no-cache")
	httpReq.Header.Set("Upgrade-Insecure-Requests", "1")
	httpReq.Header.Set("Sec-Fetch-Mode", "navigate")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, errors.FromContext(ctx, httpBackend, "fetch "+req.URL, err)
	}
	defer resp.Body.Close()

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, errors.NewNetwork(httpBackend, "fetch "+req.URL,
			fmt.Errorf("rate limited; retry after %s", resp.Header.Get("Retry-After")))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewNetwork(httpBackend, "fetch "+req.URL,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.FromContext(ctx, httpBackend, "read "+req.URL, err)
	}

	markup, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, errors.NewParsing(httpBackend, "decode "+req.URL, err)
	}

	f.log.Debug().Str("url", req.URL).Int("bytes", len(bodyBytes)).Msg("Fetched page")
	return checkPage(httpBackend, req, markup)
}

// toUTF8 converts body to UTF-8 using the Content-Type header and meta tags
func toUTF8(body []byte, contentType string) (string, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return string(body), nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(body))); err != nil {
		return "", fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.String(), nil
}
