package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/spf13/viper"
)

// Config holds all configuration for the ideahub service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json or text
}

func (g GeneralConfig) Normalize() GeneralConfig {
	g.LogLevel = strings.ToLower(strings.TrimSpace(g.LogLevel))
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	g.LogFormat = strings.ToLower(strings.TrimSpace(g.LogFormat))
	if g.LogFormat == "" {
		g.LogFormat = "json"
	}
	return g
}

func (g GeneralConfig) Validate() error {
	switch g.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("general.log_format must be json or text, got %q", g.LogFormat)
	}
	return nil
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (s ServerConfig) Normalize() ServerConfig {
	if strings.TrimSpace(s.Address) == "" {
		s.Address = ":8080"
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 90 * time.Second
	}
	return s
}

// EngineConfig tunes fetch plan execution.
type EngineConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	DirectReddit bool          `mapstructure:"direct_reddit"`
}

func (e EngineConfig) Normalize() EngineConfig {
	if e.Concurrency <= 0 {
		e.Concurrency = 8
	}
	if e.FetchTimeout <= 0 {
		e.FetchTimeout = 20 * time.Second
	}
	return e
}

// HTTPConfig is the retrying client shared by all provider adapters.
type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// ProviderConfig is the per-provider section. An adapter is registered only
// when it is enabled and, where the provider needs one, has an API key.
type ProviderConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	APIKey     string  `mapstructure:"api_key"`
	BaseURL    string  `mapstructure:"base_url"`
	MaxResults int     `mapstructure:"max_results"`
	UnitCost   float64 `mapstructure:"unit_cost"`
	// ScrapePages is how many result pages the scraping providers fetch in full.
	ScrapePages int `mapstructure:"scrape_pages"`
}

// Active reports whether the adapter should be wired.
func (p ProviderConfig) Active(needsKey bool) bool {
	if !p.Enabled {
		return false
	}
	return !needsKey || strings.TrimSpace(p.APIKey) != ""
}

// ProvidersConfig groups the provider sections.
type ProvidersConfig struct {
	HTTP       HTTPConfig     `mapstructure:"http"`
	Serper     ProviderConfig `mapstructure:"serper"`
	ScraperAPI ProviderConfig `mapstructure:"scraperapi"`
	Brave      ProviderConfig `mapstructure:"brave"`
	Tavily     ProviderConfig `mapstructure:"tavily"`
	SerpAPI    ProviderConfig `mapstructure:"serpapi"`
	Firecrawl  ProviderConfig `mapstructure:"firecrawl"`
	Reddit     ProviderConfig `mapstructure:"reddit"`
}

// ByName returns the section for a provider name.
func (p ProvidersConfig) ByName(name string) (ProviderConfig, bool) {
	switch name {
	case "serper":
		return p.Serper, true
	case "scraperapi":
		return p.ScraperAPI, true
	case "brave":
		return p.Brave, true
	case "tavily":
		return p.Tavily, true
	case "serpapi":
		return p.SerpAPI, true
	case "firecrawl":
		return p.Firecrawl, true
	case "reddit":
		return p.Reddit, true
	}
	return ProviderConfig{}, false
}

func (p ProvidersConfig) Validate() error {
	if p.HTTP.MaxRetries < 0 {
		return fmt.Errorf("providers.http.max_retries cannot be negative")
	}
	for _, name := range []string{"serper", "scraperapi", "brave", "tavily", "serpapi", "firecrawl", "reddit"} {
		pc, _ := p.ByName(name)
		if pc.UnitCost < 0 {
			return fmt.Errorf("providers.%s.unit_cost cannot be negative", name)
		}
		if pc.MaxResults < 0 {
			return fmt.Errorf("providers.%s.max_results cannot be negative", name)
		}
	}
	return nil
}

// CacheConfig controls the tile cache tiers.
type CacheConfig struct {
	MemoryMaxEntries int                      `mapstructure:"memory_max_entries"`
	RedisEnabled     bool                     `mapstructure:"redis_enabled"`
	RedisPrefix      string                   `mapstructure:"redis_prefix"`
	PostgresEnabled  bool                     `mapstructure:"postgres_enabled"`
	PurgeInterval    time.Duration            `mapstructure:"purge_interval"`
	TTLs             map[string]time.Duration `mapstructure:"ttls"` // tile type -> ttl
}

func (c CacheConfig) Normalize() CacheConfig {
	if c.MemoryMaxEntries <= 0 {
		c.MemoryMaxEntries = 1024
	}
	if strings.TrimSpace(c.RedisPrefix) == "" {
		c.RedisPrefix = "ideahub:tile:"
	}
	if c.PurgeInterval <= 0 {
		c.PurgeInterval = time.Hour
	}
	return c
}

func (c CacheConfig) Validate() error {
	for tile, ttl := range c.TTLs {
		if ttl <= 0 {
			return fmt.Errorf("cache.ttls.%s must be positive", tile)
		}
	}
	return nil
}

// StorageConfig contains storage backend configurations
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Addr is host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN returns URL when set, otherwise a lib/pq connection URL built from the parts.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, ssl)
}

// SentimentConfig configures the AI tone classifier. When disabled the
// lexicon classifier is used.
type SentimentConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Model     string        `mapstructure:"model"`
	Timeout   time.Duration `mapstructure:"timeout"`
	BatchSize int           `mapstructure:"batch_size"`
}

func (s SentimentConfig) Normalize() SentimentConfig {
	if strings.TrimSpace(s.Model) == "" {
		s.Model = "gpt-4o-mini"
	}
	if s.Timeout <= 0 {
		s.Timeout = 15 * time.Second
	}
	if s.BatchSize <= 0 {
		s.BatchSize = 25
	}
	return s
}

func (s SentimentConfig) Validate() error {
	if s.Enabled && strings.TrimSpace(s.APIKey) == "" {
		return fmt.Errorf("sentiment.api_key required when sentiment is enabled")
	}
	return nil
}

// SchedulerConfig drives the pinned-idea refresh loop.
type SchedulerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Cron    string        `mapstructure:"cron"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

func (s SchedulerConfig) Normalize() SchedulerConfig {
	if strings.TrimSpace(s.Cron) == "" {
		s.Cron = "0 */6 * * *"
	}
	if s.LockTTL <= 0 {
		s.LockTTL = 10 * time.Minute
	}
	return s
}

func (s SchedulerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}
	if _, err := cronexpr.Parse(s.Cron); err != nil {
		return fmt.Errorf("scheduler.cron: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.log_format", "json")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("engine.concurrency", 8)
	v.SetDefault("engine.fetch_timeout", "20s")
	v.SetDefault("engine.direct_reddit", false)
	v.SetDefault("providers.http.timeout", "15s")
	v.SetDefault("providers.http.max_retries", 2)
	v.SetDefault("providers.http.base_delay", "200ms")
	v.SetDefault("providers.http.max_delay", "5s")
	for _, name := range []string{"serper", "scraperapi", "brave", "tavily", "serpapi", "firecrawl", "reddit"} {
		// registering the keys lets IDEAHUB_PROVIDERS_<NAME>_API_KEY override them
		v.SetDefault("providers."+name+".enabled", true)
		v.SetDefault("providers."+name+".api_key", "")
		v.SetDefault("providers."+name+".base_url", "")
	}
	v.SetDefault("providers.scraperapi.scrape_pages", 3)
	v.SetDefault("providers.firecrawl.scrape_pages", 3)
	v.SetDefault("cache.memory_max_entries", 1024)
	v.SetDefault("cache.redis_enabled", false)
	v.SetDefault("cache.postgres_enabled", false)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("sentiment.enabled", false)
	v.SetDefault("sentiment.api_key", "")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "0 */6 * * *")
}

// Load reads config from path (or the default search paths when empty)
// with IDEAHUB_* environment overrides. A missing config file is not an
// error; defaults and the environment are enough to run.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("IDEAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.General = cfg.General.Normalize()
	cfg.Server = cfg.Server.Normalize()
	cfg.Engine = cfg.Engine.Normalize()
	cfg.Cache = cfg.Cache.Normalize()
	cfg.Sentiment = cfg.Sentiment.Normalize()
	cfg.Scheduler = cfg.Scheduler.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section, including storage sections of enabled tiers.
func (c *Config) Validate() error {
	if err := c.General.Validate(); err != nil {
		return err
	}
	if err := c.Providers.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if c.Cache.RedisEnabled || c.Scheduler.Enabled {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	if c.Cache.PostgresEnabled {
		if err := c.Storage.Postgres.Validate(); err != nil {
			return err
		}
	}
	if err := c.Sentiment.Validate(); err != nil {
		return err
	}
	return c.Scheduler.Validate()
}
