package main

import (
	"context"

	"sjsage522/pricecrawler/config"
	"sjsage522/pricecrawler/internal/crawler"
	"sjsage522/pricecrawler/internal/fetcher"
	"sjsage522/pricecrawler/logger"
	"sjsage522/pricecrawler/services/cache"
	"sjsage522/pricecrawler/services/publisher"
	"sjsage522/pricecrawler/services/store"
	"sjsage522/pricecrawler/services/worker"
)

// Services holds all the initialized services
type Services struct {
	Fetcher   fetcher.Fetcher
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     store.Store

	closers []func()
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// initializeServices initializes all required services. Redis and Postgres
// are optional; when they are configured but unreachable the run continues
// without them.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize fetch backend
	f, err := newFetcher(cfg, services)
	if err != nil {
		services.Cleanup()
		return nil, err
	}
	services.Fetcher = fetcher.NewLimited(f, cfg.Fetch.Concurrency, cfg.Fetch.RPS)

	// Initialize cache service
	services.Cache = cache.New(cfg.Memcache.Addr)
	if mc, ok := services.Cache.(*cache.MemcacheService); ok {
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.Memcache.Addr).Msg("Memcache unreachable, using in-process cache")
			services.Cache = cache.NewMemoryCache()
		} else {
			logger.Info("Connected to Memcache at %s", cfg.Memcache.Addr)
		}
	}

	// Initialize publisher
	if cfg.Redis.Addr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.Redis.Addr,
			cfg.Redis.DB,
			cfg.Redis.Stream,
			cfg.Redis.StreamCount,
			cfg.Redis.StreamMaxLength,
		)
		if err := redisPublisher.Ping(ctx); err != nil {
			logger.ForSink("redis").Warn().Err(err).Msg("Redis unreachable, publishing disabled")
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			services.closers = append(services.closers, func() { redisPublisher.Close() })
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Stream)
		}
	}

	// Initialize archive
	if cfg.Postgres.DSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN, cfg.Postgres.Schema)
		if err == nil {
			err = pg.EnsureSchema(ctx)
			if err != nil {
				pg.Close()
			}
		}
		if err != nil {
			logger.ForSink("postgres").Warn().Err(err).Msg("Postgres unavailable, archiving disabled")
		} else {
			services.Store = pg
			services.closers = append(services.closers, pg.Close)
			logger.Info("Archiving to Postgres schema %s", cfg.Postgres.Schema)
		}
	}

	return services, nil
}

// newFetcher creates the configured fetch backend
func newFetcher(cfg *config.Config, services *Services) (fetcher.Fetcher, error) {
	switch cfg.Fetch.Backend {
	case "rod":
		rf, err := fetcher.NewRodFetcher(cfg.Fetch.BrowserBin)
		if err != nil {
			return nil, err
		}
		services.closers = append(services.closers, func() { rf.Close() })
		logger.Info("Using local headless browser")
		return rf, nil
	case "http":
		logger.Info("Using plain HTTP fetch, pages are not rendered")
		return fetcher.NewHTTPFetcher(), nil
	default:
		logger.Info("Using render service at %s", cfg.Fetch.RenderAddr)
		return fetcher.NewRenderFetcher(cfg.Fetch.RenderAddr), nil
	}
}

// buildJobs creates one job per named source. A source that cannot be
// configured becomes a failed job so its siblings still run.
func buildJobs(cfg *config.Config, names []string, services *Services) []worker.Job {
	jobs := make([]worker.Job, 0, len(names))
	for _, name := range names {
		site, err := crawler.BuildSite(name, cfg)
		if err != nil {
			jobs = append(jobs, worker.Job{Name: name, Err: err})
			continue
		}
		jobs = append(jobs, worker.Job{
			Name:   name,
			Runner: crawler.New(site, crawler.NewParser(site), services.Fetcher, services.Cache),
		})
	}
	return jobs
}
