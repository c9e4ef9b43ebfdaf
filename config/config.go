package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Output      OutputConfig   `mapstructure:"output"`
	Fetch       FetchConfig    `mapstructure:"fetch"`
	Crawl       CrawlConfig    `mapstructure:"crawl"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Memcache    MemcacheConfig `mapstructure:"memcache"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	Idealo      IdealoConfig   `mapstructure:"idealo"`

	// Sources overrides listing URLs and selectors per source name
	Sources map[string]SourceOverride `mapstructure:"sources"`
}

// OutputConfig holds CSV output configuration
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// FetchConfig selects and tunes the page fetch backend
type FetchConfig struct {
	// Backend is one of "render", "rod" or "http"
	Backend     string  `mapstructure:"backend"`
	RenderAddr  string  `mapstructure:"render_addr"`
	BrowserBin  string  `mapstructure:"browser_bin"`
	Concurrency int     `mapstructure:"concurrency"`
	RPS         float64 `mapstructure:"rps"`
}

// CrawlConfig holds crawl behaviour shared by all sources
type CrawlConfig struct {
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// CacheConfig holds source cool-down configuration
type CacheConfig struct {
	BlockTime time.Duration `mapstructure:"block_time"`
}

// MemcacheConfig holds memcache configuration. An empty address selects the
// in-process cache.
type MemcacheConfig struct {
	Addr string `mapstructure:"addr"`
}

// RedisConfig holds the record stream configuration. An empty address
// disables publishing.
type RedisConfig struct {
	Addr            string `mapstructure:"addr"`
	DB              int    `mapstructure:"db"`
	Stream          string `mapstructure:"stream"`
	StreamCount     int    `mapstructure:"stream_count"`
	StreamMaxLength int    `mapstructure:"stream_max_length"`
}

// PostgresConfig holds the run archive configuration. An empty DSN disables
// archiving.
type PostgresConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

// IdealoConfig holds the comparison site search
type IdealoConfig struct {
	Query string `mapstructure:"query"`
}

// SourceOverride replaces built-in listing URLs or selector chains
type SourceOverride struct {
	ListingURLs []string            `mapstructure:"listing_urls"`
	Selectors   map[string][]string `mapstructure:"selectors"`
}

// LoadConfig loads the configuration from an optional pricecrawler.yaml,
// PRICECRAWLER_* environment variables and defaults
func LoadConfig() (*Config, error) {
	return load(viper.New(), ".", "./config")
}

func load(v *viper.Viper, paths ...string) (*Config, error) {
	v.SetConfigName("pricecrawler")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("PRICECRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("output.dir", "data")

	v.SetDefault("fetch.backend", "render")
	v.SetDefault("fetch.render_addr", "http://localhost:3000")
	v.SetDefault("fetch.browser_bin", "")
	v.SetDefault("fetch.concurrency", 2)
	v.SetDefault("fetch.rps", 0)

	v.SetDefault("crawl.retry_delay", "2s")
	v.SetDefault("cache.block_time", "10m")

	v.SetDefault("memcache.addr", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "prices")
	v.SetDefault("redis.stream_count", 1)
	v.SetDefault("redis.stream_max_length", 1000)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.schema", "public")

	v.SetDefault("idealo.query", "anker solix")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Fetch.Backend {
	case "render":
		if c.Fetch.RenderAddr == "" {
			return fmt.Errorf("render backend needs fetch.render_addr (set PRICECRAWLER_FETCH_RENDER_ADDR)")
		}
	case "rod", "http":
	default:
		return fmt.Errorf("fetch backend must be 'render', 'rod' or 'http', got: %s", c.Fetch.Backend)
	}

	if c.Fetch.Concurrency <= 0 {
		return fmt.Errorf("fetch concurrency must be positive, got: %d", c.Fetch.Concurrency)
	}
	if c.Fetch.RPS < 0 {
		return fmt.Errorf("fetch rps must not be negative, got: %v", c.Fetch.RPS)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Crawl.RetryDelay < 0 {
		return fmt.Errorf("crawl retry delay must not be negative")
	}
	if c.Redis.Addr != "" && c.Redis.StreamCount <= 0 {
		return fmt.Errorf("redis stream count must be positive, got: %d", c.Redis.StreamCount)
	}
	if c.Postgres.DSN != "" && c.Postgres.Schema == "" {
		return fmt.Errorf("postgres schema is required when a DSN is set")
	}
	return nil
}
