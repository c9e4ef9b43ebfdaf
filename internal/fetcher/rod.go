package fetcher

import (
	"context"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/pkg/errors"
)

const rodBackend = "rod"

// stableWindow is how long the DOM must stay unchanged for "networkidle"
const stableWindow = time.Second

// RodFetcher renders pages in a local headless Chromium
type RodFetcher struct {
	browser *rod.Browser
	log     *logger.Logger
}

// NewRodFetcher launches a headless browser. bin selects the browser binary;
// empty lets rod find or download one.
func NewRodFetcher(bin string) (*RodFetcher, error) {
	l := launcher.New().Headless(true)
	if bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.NewConfiguration(rodBackend, "launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, errors.NewConfiguration(rodBackend, "connect browser", err)
	}

	return &RodFetcher{
		browser: browser,
		log:     logger.ForFetcher(rodBackend),
	}, nil
}

// Fetch opens req.URL in a new tab and returns the rendered markup
func (f *RodFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tab, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.FromContext(ctx, rodBackend, "open tab", err)
	}
	defer tab.Close()

	page := tab.Context(ctx).Timeout(timeout)

	if len(req.Headers) > 0 {
		pairs := make([]string, 0, len(req.Headers)*2)
		for k, v := range req.Headers {
			pairs = append(pairs, k, v)
		}
		cleanup, err := page.SetExtraHeaders(pairs)
		if err != nil {
			return nil, errors.FromContext(ctx, rodBackend, "set headers", err)
		}
		defer cleanup()
	}

	f.log.Debug().Str("url", req.URL).Msg("Navigating")

	if err := page.Navigate(req.URL); err != nil {
		return nil, errors.FromContext(ctx, rodBackend, "fetch "+req.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, errors.FromContext(ctx, rodBackend, "load "+req.URL, err)
	}
	if req.WaitUntil == "networkidle" {
		if err := page.WaitStable(stableWindow); err != nil {
			return nil, errors.FromContext(ctx, rodBackend, "settle "+req.URL, err)
		}
	}
	if req.Script != "" {
		if _, err := page.Eval(req.Script); err != nil {
			return nil, errors.FromContext(ctx, rodBackend, "script "+req.URL, err)
		}
	}

	markup, err := page.HTML()
	if err != nil {
		return nil, errors.FromContext(ctx, rodBackend, "read "+req.URL, err)
	}
	return checkPage(rodBackend, req, markup)
}

// Close shuts the browser down
func (f *RodFetcher) Close() error {
	return f.browser.Close()
}
