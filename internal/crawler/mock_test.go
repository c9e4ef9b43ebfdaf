package crawler

import (
	"context"
	"sync"
	"time"

	"sjsage522/pricecrawler/internal/fetcher"
	"sjsage522/pricecrawler/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
	ttl   map[string]time.Duration
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
		ttl:   make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = value
	m.ttl[key] = expiration
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// mockResponse is one canned answer of MockFetcher. Responses are consumed
// in order; the last one repeats.
type mockResponse struct {
	html string
	err  error
}

// MockFetcher serves canned pages keyed by URL
type MockFetcher struct {
	mu        sync.Mutex
	responses map[string][]mockResponse
	calls     map[string]int
	requests  []fetcher.Request
}

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		responses: make(map[string][]mockResponse),
		calls:     make(map[string]int),
	}
}

func (m *MockFetcher) Page(url, html string) *MockFetcher {
	m.responses[url] = append(m.responses[url], mockResponse{html: html})
	return m
}

func (m *MockFetcher) Fail(url string, err error) *MockFetcher {
	m.responses[url] = append(m.responses[url], mockResponse{err: err})
	return m
}

func (m *MockFetcher) Fetch(ctx context.Context, req fetcher.Request) (*fetcher.Page, error) {
	m.mu.Lock()
	n := m.calls[req.URL]
	m.calls[req.URL] = n + 1
	m.requests = append(m.requests, req)
	queue := m.responses[req.URL]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(queue) == 0 {
		return nil, &mockError{message: "no page for " + req.URL}
	}
	if n >= len(queue) {
		n = len(queue) - 1
	}
	resp := queue[n]
	if resp.err != nil {
		return nil, resp.err
	}
	return &fetcher.Page{URL: req.URL, HTML: resp.html}, nil
}

func (m *MockFetcher) Calls(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func (m *MockFetcher) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}
