package validate

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestRequest(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		url     string
		id      string
		wantErr bool
		contain string
	}{
		{name: "text only", text: "Central bank raised rates"},
		{name: "url only", url: "https://www.bnm.gov.my/rss"},
		{name: "both", text: "claim", url: "http://example.com/a"},
		{name: "caller id", text: "claim", id: "req-42"},
		{name: "nothing", wantErr: true, contain: "provide 'text' or 'url'"},
		{name: "whitespace only", text: "  \n\t", wantErr: true, contain: "provide 'text' or 'url'"},
		{name: "relative url", url: "/news/today", wantErr: true, contain: "url: must be an absolute http(s) URL"},
		{name: "ftp url", url: "ftp://example.com/file", wantErr: true, contain: "url"},
		{name: "id with slash", text: "claim", id: "a/b", wantErr: true, contain: "id:"},
		{name: "id too long", text: "claim", id: strings.Repeat("x", MaxIDLength+1), wantErr: true, contain: "id: must be at most 128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Request(tt.text, tt.url, tt.id)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !model.IsInputError(err) {
				t.Errorf("Expected InputError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.contain) {
				t.Errorf("Expected error containing %q, got %q", tt.contain, err.Error())
			}
		})
	}
}

func TestRequest_MissingInputSentinel(t *testing.T) {
	err := Request("", "", "")
	if !errors.Is(err, model.ErrMissingInput) {
		t.Errorf("Expected ErrMissingInput, got %v", err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	if err := Config(model.DefaultConfig()); err != nil {
		t.Fatalf("Expected defaults to validate, got %v", err)
	}
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Config)
		contain string
	}{
		{"no sources", func(c *model.Config) { c.Sources = nil }, "sources"},
		{"too many sources", func(c *model.Config) {
			for len(c.Sources) <= model.MaxSources {
				c.Sources = append(c.Sources, "https://example.com/feed")
			}
		}, "sources: must be at most 8"},
		{"relative source", func(c *model.Config) { c.Sources = []string{"/rss"} }, "must be an absolute http(s) URL"},
		{"empty model", func(c *model.Config) { c.LLM.Model = "" }, "llm.model: is required"},
		{"bad driver", func(c *model.Config) { c.Store.Driver = "mysql" }, "store.driver: must be one of sqlite postgres"},
		{"zero top k", func(c *model.Config) { c.Ranking.TopK = 0 }, "ranking.top_k"},
		{"min score above one", func(c *model.Config) { c.Ranking.MinScore = 1.5 }, "ranking.min_score"},
		{"bad redis addr", func(c *model.Config) { c.Search.RedisAddr = "redis" }, "search.redis_addr: must be host:port"},
		{"bad log level", func(c *model.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"anchor bounds", func(c *model.Config) { c.Ranking.MaxAnchorText = 5 }, "ranking.max_anchor_text"},
		{"burst without throttle room", func(c *model.Config) {
			c.RateLimiting.RequestsPerSecond = 2
			c.RateLimiting.BurstSize = 0
		}, "burst_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			tt.mutate(cfg)
			err := Config(cfg)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.contain) {
				t.Errorf("Expected error containing %q, got %q", tt.contain, err.Error())
			}
		})
	}
}

func TestConfig_OptionalFields(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Search.RedisAddr = "localhost:6379"
	cfg.Analytics.Endpoint = "http://localhost:9000"
	cfg.Telemetry.Endpoint = "http://localhost:4318"
	cfg.HTTP.Timeout = 3 * time.Second

	if err := Config(cfg); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestConfig_Nil(t *testing.T) {
	if err := Config(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}
