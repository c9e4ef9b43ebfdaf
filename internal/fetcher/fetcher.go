// Package fetcher retrieves rendered page markup. Backends differ in how
// they render JavaScript; all of them honour the request timeout and the
// caller's context.
package fetcher

import (
	"context"
	"strings"
	"time"

	"sjsage522/pricecrawler/pkg/errors"
)

// Request describes one page fetch
type Request struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
	// WaitUntil is "load", "domcontentloaded" or "networkidle"
	WaitUntil string
	// Script is a JavaScript function run after the page loaded. Promises
	// it returns are awaited.
	Script string
}

// Page is the markup returned for a request
type Page struct {
	URL  string
	HTML string
}

// Fetcher fetches a page. Implementations return an error for timeouts,
// network failures, non-success statuses and empty bodies, but never for
// malformed HTML.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Page, error)
}

// Func adapts a function to the Fetcher interface
type Func func(ctx context.Context, req Request) (*Page, error)

// Fetch calls f
func (f Func) Fetch(ctx context.Context, req Request) (*Page, error) {
	return f(ctx, req)
}

const defaultTimeout = 60 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// checkPage turns blank markup into an empty response error
func checkPage(backend string, req Request, markup string) (*Page, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, errors.NewNetwork(backend, "fetch "+req.URL, errors.ErrEmptyResponse)
	}
	return &Page{URL: req.URL, HTML: markup}, nil
}
