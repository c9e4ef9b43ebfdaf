package fetcher

import (
	"context"

	"golang.org/x/time/rate"

	"sjsage522/pricecrawler/pkg/errors"
)

// Limited bounds the number of concurrent fetches of the wrapped fetcher and
// optionally paces them
type Limited struct {
	next    Fetcher
	slots   chan struct{}
	limiter *rate.Limiter
}

// NewLimited allows at most concurrency fetches in flight. rps > 0 also caps
// the request rate.
func NewLimited(next Fetcher, concurrency int, rps float64) *Limited {
	if concurrency <= 0 {
		concurrency = 1
	}
	l := &Limited{
		next:  next,
		slots: make(chan struct{}, concurrency),
	}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return l
}

// Fetch waits for a free slot, then delegates
func (l *Limited) Fetch(ctx context.Context, req Request) (*Page, error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.FromContext(ctx, "limiter", "wait for slot", ctx.Err())
	}
	defer func() { <-l.slots }()

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, errors.FromContext(ctx, "limiter", "wait for rate limit", err)
		}
	}
	return l.next.Fetch(ctx, req)
}
