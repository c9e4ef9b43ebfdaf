package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/pkg/errors"
)

const renderBackend = "render"

// scriptSettle is how long the render service waits after injecting a script
const scriptSettle = 4 * time.Second

// RenderFetcher fetches pages through a browserless style render service
// exposing a /content endpoint
type RenderFetcher struct {
	addr   string
	client *http.Client
	log    *logger.Logger
}

// NewRenderFetcher creates a fetcher for the render service at addr
func NewRenderFetcher(addr string) *RenderFetcher {
	return &RenderFetcher{
		addr:   strings.TrimRight(addr, "/"),
		client: &http.Client{},
		log:    logger.ForFetcher(renderBackend),
	}
}

type gotoOptions struct {
	WaitUntil string `json:"waitUntil"`
	Timeout   int64  `json:"timeout"`
}

type scriptTag struct {
	Content string `json:"content"`
}

type contentRequest struct {
	URL                 string            `json:"url"`
	GotoOptions         gotoOptions       `json:"gotoOptions"`
	SetExtraHTTPHeaders map[string]string `json:"setExtraHTTPHeaders,omitempty"`
	AddScriptTag        []scriptTag       `json:"addScriptTag,omitempty"`
	WaitForTimeout      int64             `json:"waitForTimeout,omitempty"`
}

// Fetch renders req.URL and returns the resulting markup
func (f *RenderFetcher) Fetch(ctx context.Context, req Request) (*Page, error) {
	fetchCtx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	payload := contentRequest{
		URL: req.URL,
		GotoOptions: gotoOptions{
			WaitUntil: puppeteerWait(req.WaitUntil),
			Timeout:   timeout.Milliseconds(),
		},
		SetExtraHTTPHeaders: req.Headers,
	}
	if req.Script != "" {
		payload.AddScriptTag = []scriptTag{{Content: "(" + req.Script + ")();"}}
		payload.WaitForTimeout = scriptSettle.Milliseconds()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewConfiguration(renderBackend, "marshal payload", err)
	}

	httpReq, err := http.NewRequestWithContext(fetchCtx, http.MethodPost, f.addr+"/content", bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewConfiguration(renderBackend, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "PriceCrawler/1.0")

	f.log.Debug().Str("url", req.URL).Msg("Rendering page")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, errors.FromContext(ctx, renderBackend, "fetch "+req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.FromContext(ctx, renderBackend, "read "+req.URL, err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > 0 && len(body) < 500 {
			f.log.Debug().Str("url", req.URL).Str("body", string(body)).Msg("Error response body")
		}
		return nil, errors.NewNetwork(renderBackend, "fetch "+req.URL,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	f.log.Debug().Str("url", req.URL).Int("bytes", len(body)).Msg("Rendered page")
	return checkPage(renderBackend, req, string(body))
}

// puppeteerWait maps a wait policy onto the render service's lifecycle events
func puppeteerWait(policy string) string {
	switch policy {
	case "networkidle", "networkidle0":
		return "networkidle0"
	case "networkidle2", "domcontentloaded":
		return policy
	default:
		return "load"
	}
}
