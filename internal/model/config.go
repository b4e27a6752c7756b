package model

import (
	"strings"
	"time"
)

// DefaultSources is the built-in trusted-source list (finance regulators, exchanges, wire services)
var DefaultSources = []string{
	"https://www.bnm.gov.my/rss",
	"https://www.sc.com.my/resources/media-releases",
	"https://www.bursamalaysia.com/market_information/announcements/company_announcement",
	"https://www.imf.org/en/News",
	"https://www.worldbank.org/en/news",
	"https://www.reuters.com/world/asia-pacific/",
	"https://www.reuters.com/fact-check/",
}

// MaxSources bounds the trusted-source list
const MaxSources = 8

// Config is the complete process configuration, built once at start-up
type Config struct {
	Sources      []string          `yaml:"sources" mapstructure:"sources" validate:"required,min=1,max=8,dive,http_url"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Ranking      RankingConfig     `yaml:"ranking" mapstructure:"ranking"`
	Analytics    AnalyticsConfig   `yaml:"analytics" mapstructure:"analytics"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Search       SearchConfig      `yaml:"search" mapstructure:"search"`
	Server       ServerConfig      `yaml:"server" mapstructure:"server"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Robots       RobotsConfig      `yaml:"robots" mapstructure:"robots"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
	Telemetry    TelemetryConfig   `yaml:"telemetry" mapstructure:"telemetry"`
}

// HTTPConfig controls outbound fetching of sources and snippets
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=0"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy" validate:"omitempty,url"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy" validate:"omitempty,url"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RankingConfig controls extraction caps, relevance filtering and snippet size
type RankingConfig struct {
	TopK          int     `yaml:"top_k" mapstructure:"top_k" validate:"min=1,max=20"`
	MinScore      float64 `yaml:"min_score" mapstructure:"min_score" validate:"min=0,max=1"`
	SnippetChars  int     `yaml:"snippet_chars" mapstructure:"snippet_chars" validate:"min=100,max=10000"`
	FeedItemLimit int     `yaml:"feed_item_limit" mapstructure:"feed_item_limit" validate:"min=1,max=200"`
	MinAnchorText int     `yaml:"min_anchor_text" mapstructure:"min_anchor_text" validate:"min=1"`
	MaxAnchorText int     `yaml:"max_anchor_text" mapstructure:"max_anchor_text" validate:"gtfield=MinAnchorText"`
	PageTextChars int     `yaml:"page_text_chars" mapstructure:"page_text_chars" validate:"min=280"`
}

// AnalyticsConfig addresses the language/key-phrase service.
// An empty Endpoint selects the local heuristic analyzer.
type AnalyticsConfig struct {
	Endpoint        string        `yaml:"endpoint,omitempty" mapstructure:"endpoint" validate:"omitempty,http_url"`
	APIKey          string        `yaml:"-" mapstructure:"api_key"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	DefaultLanguage string        `yaml:"default_language" mapstructure:"default_language" validate:"required"`
}

// LLMConfig addresses the inference service
type LLMConfig struct {
	Provider    string        `yaml:"provider,omitempty" mapstructure:"provider"` // Optional; derived from Model when empty
	Model       string        `yaml:"model" mapstructure:"model" validate:"required"`
	BaseURL     string        `yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`
	Region      string        `yaml:"region,omitempty" mapstructure:"region"`
	APIKey      string        `yaml:"-" mapstructure:"api_key"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"min=1"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature" validate:"min=0,max=2"`
}

// StoreConfig selects the durable store
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn" mapstructure:"dsn" validate:"required"`
	Table  string `yaml:"table" mapstructure:"table" validate:"required,max=63"`
}

// SearchConfig addresses the optional full-text index; empty RedisAddr disables it
type SearchConfig struct {
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	Password  string        `yaml:"-" mapstructure:"password"`
	DB        int           `yaml:"db" mapstructure:"db" validate:"min=0"`
	Prefix    string        `yaml:"prefix" mapstructure:"prefix" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig controls the HTTP endpoint
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gt=0"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// RateLimitConfig throttles outbound requests per domain; zero disables throttling
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"min=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"min=0"`
}

// RobotsConfig enables robots.txt checks before fetching
type RobotsConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ConcurrencyConfig bounds in-request fan-out and batch workers
type ConcurrencyConfig struct {
	SourceFetches  int `yaml:"source_fetches" mapstructure:"source_fetches" validate:"min=1"`
	SnippetFetches int `yaml:"snippet_fetches" mapstructure:"snippet_fetches" validate:"min=1"`
	BatchWorkers   int `yaml:"batch_workers" mapstructure:"batch_workers" validate:"min=1"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// TelemetryConfig enables OTLP trace export when Endpoint is set
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint,omitempty" mapstructure:"endpoint" validate:"omitempty,url"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Sources: append([]string(nil), DefaultSources...),
		HTTP: HTTPConfig{
			Timeout:      15 * time.Second,
			UserAgent:    "Mozilla/5.0 (compatible; claimcheck/0.1; +https://github.com/ppiankov/claimcheck)",
			MaxBodyBytes: 2_000_000,
		},
		Ranking: RankingConfig{
			TopK:          5,
			MinScore:      0.2,
			SnippetChars:  1200,
			FeedItemLimit: 50,
			MinAnchorText: 10,
			MaxAnchorText: 180,
			PageTextChars: 8000,
		},
		Analytics: AnalyticsConfig{
			Timeout:         10 * time.Second,
			DefaultLanguage: "en",
		},
		LLM: LLMConfig{
			Model:       "mistral.mistral-large-2402-v1:0",
			Region:      "us-east-1",
			Timeout:     60 * time.Second,
			MaxTokens:   400,
			Temperature: 0.2,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "claimcheck.db",
			Table:  "claims",
		},
		Search: SearchConfig{
			Prefix:  "claimcheck",
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 0,
			BurstSize:         5,
		},
		Robots: RobotsConfig{
			Enabled:  false,
			CacheTTL: time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			SourceFetches:  MaxSources,
			SnippetFetches: 5,
			BatchWorkers:   4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "claimcheck",
		},
	}
}

// Credentials holds secrets read from the environment only
type Credentials struct {
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	AnthropicKey  string `env:"ANTHROPIC_API_KEY"`
	BedrockKey    string `env:"AWS_BEARER_TOKEN_BEDROCK"`
	OllamaBaseURL string `env:"OLLAMA_BASE_URL"`
	AnalyticsKey  string `env:"CLAIMCHECK_ANALYTICS_API_KEY"`
	RedisPassword string `env:"CLAIMCHECK_REDIS_PASSWORD"`
	AWSRegion     string `env:"AWS_REGION"`
}

// ApplyCredentials copies secrets into the sections that use them.
// provider is the resolved provider kind name (see llm.ResolveKind).
func (c *Config) ApplyCredentials(creds Credentials, provider string) {
	if creds.AWSRegion != "" && (c.LLM.Region == "" || c.LLM.Region == DefaultConfig().LLM.Region) {
		c.LLM.Region = creds.AWSRegion
	}
	if c.Analytics.APIKey == "" {
		c.Analytics.APIKey = creds.AnalyticsKey
	}
	if c.Search.Password == "" {
		c.Search.Password = creds.RedisPassword
	}
	if c.LLM.APIKey != "" {
		return
	}
	switch strings.ToLower(provider) {
	case "openai":
		c.LLM.APIKey = creds.OpenAIKey
	case "anthropic":
		c.LLM.APIKey = creds.AnthropicKey
	case "ollama":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = creds.OllamaBaseURL
		}
	default:
		c.LLM.APIKey = creds.BedrockKey
	}
}
