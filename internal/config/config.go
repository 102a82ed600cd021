// Package config handles configuration loading for stocksense.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/seenimoa/stocksense/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. STOCKSENSE_SEARCH_GOOGLE_KEY.
const EnvPrefix = "STOCKSENSE"

// Config represents the complete application configuration.
type Config struct {
	News      pipeline.Config `mapstructure:"news"      yaml:"news"`
	Sentiment pipeline.Config `mapstructure:"sentiment" yaml:"sentiment"`
	Stocks    pipeline.Config `mapstructure:"stocks"    yaml:"stocks"`
	Search    SearchConfig    `mapstructure:"search"    yaml:"search"`
	Finance   FinanceConfig   `mapstructure:"finance"   yaml:"finance"`
	HTTP      HTTPConfig      `mapstructure:"http"      yaml:"http"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// SearchConfig selects and configures the web search provider.
type SearchConfig struct {
	Provider string        `mapstructure:"provider" yaml:"provider" validate:"oneof=google searxng"`
	Google   GoogleConfig  `mapstructure:"google"   yaml:"google"`
	SearXNG  SearXNGConfig `mapstructure:"searxng"  yaml:"searxng"`
}

// GoogleConfig holds Custom Search credentials.
type GoogleConfig struct {
	Key string `mapstructure:"key" yaml:"key"`
	CX  string `mapstructure:"cx"  yaml:"cx"`
	URL string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
}

// SearXNGConfig points at a SearXNG instance.
type SearXNGConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
}

// FinanceConfig holds market data provider settings.
type FinanceConfig struct {
	YahooURL    string `mapstructure:"yahoo_url"    yaml:"yahoo_url"    validate:"omitempty,url"`
	FinnhubKey  string `mapstructure:"finnhub_key"  yaml:"finnhub_key"`
	FinnhubURL  string `mapstructure:"finnhub_url"  yaml:"finnhub_url"  validate:"omitempty,url"`
	CompanyNews string `mapstructure:"company_news" yaml:"company_news" validate:"oneof=finnhub search rss none"` // source of per-symbol news
}

// HTTPConfig tunes the shared outbound HTTP client.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"    validate:"gte=0"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
	Burst     int           `mapstructure:"burst"      yaml:"burst"      validate:"gte=0"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         validate:"min=1,max=65535"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"   yaml:"file"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stocksense/config.yaml (home directory)
//  3. /etc/stocksense/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKSENSE_<SECTION>_<KEY>, e.g., STOCKSENSE_FINANCE_FINNHUB_KEY
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stocksense"))
	v.AddConfigPath("/etc/stocksense")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Search.Provider == "searxng" && c.Search.SearXNG.BaseURL == "" {
		return fmt.Errorf("invalid config: search.searxng.base_url is required for the searxng provider")
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Domain pipelines
	v.SetDefault("news.source", "default")
	v.SetDefault("news.exclude", "fastft")
	v.SetDefault("news.timeout", 60*time.Second)
	v.SetDefault("news.concurrency", pipeline.DefaultConcurrency)
	v.SetDefault("sentiment.source", "default")
	v.SetDefault("sentiment.timeout", 20*time.Second)
	v.SetDefault("stocks.source", "default")
	v.SetDefault("stocks.timeout", 90*time.Second)
	v.SetDefault("stocks.concurrency", pipeline.DefaultConcurrency)

	// Search defaults
	v.SetDefault("search.provider", "google")

	// Finance defaults
	v.SetDefault("finance.company_news", "finnhub")

	// HTTP defaults
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.rate_limit", 5.0)
	v.SetDefault("http.burst", 5)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// Nested keys without a default are not bound by AutomaticEnv on Unmarshal.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(EnvPrefix + "_SEARCH_GOOGLE_KEY"); key != "" {
		cfg.Search.Google.Key = key
	}
	if cx := os.Getenv(EnvPrefix + "_SEARCH_GOOGLE_CX"); cx != "" {
		cfg.Search.Google.CX = cx
	}
	if url := os.Getenv(EnvPrefix + "_SEARCH_SEARXNG_BASE_URL"); url != "" {
		cfg.Search.SearXNG.BaseURL = url
	}
	if key := os.Getenv(EnvPrefix + "_FINANCE_FINNHUB_KEY"); key != "" {
		cfg.Finance.FinnhubKey = key
	}
	if key := os.Getenv(EnvPrefix + "_NEWS_API_KEY"); key != "" {
		cfg.News.APIKey = key
	}
	if key := os.Getenv(EnvPrefix + "_SENTIMENT_API_KEY"); key != "" {
		cfg.Sentiment.APIKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
