package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Provider defines the generate-text capability of an inference service
type Provider interface {
	// Name returns the provider kind name
	Name() string

	// Generate sends one prompt and returns the model's free-text output
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one inference call
type GenerateRequest struct {
	// Prompt is the fully rendered instruction text
	Prompt string

	// System is an optional system message; providers without one ignore it
	System string

	// MaxTokens limits the response length (0 = provider config)
	MaxTokens int

	// Temperature overrides the configured sampling temperature when > 0
	Temperature float64
}

// GenerateResponse contains the model's raw output
type GenerateResponse struct {
	// Text is the free-text output before any JSON extraction
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption when the provider reports it
	TokensUsed int
}

// Config holds inference provider configuration
type Config struct {
	// Kind is resolved once from the provider name or model identifier
	Kind ProviderKind

	// Model identifier (provider-specific)
	Model string

	// APIKey for hosted providers (bearer token for the invoke family)
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Region derives the invoke endpoint when BaseURL is empty
	Region string

	// Timeout for API requests
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for response generation
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// ConfigFromModel converts the process configuration into provider configuration.
// It fails when the provider kind cannot be resolved.
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) (Config, error) {
	kind, err := ResolveKind(llmCfg.Provider, llmCfg.Model)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Kind:        kind,
		Model:       strings.TrimSpace(llmCfg.Model),
		APIKey:      llmCfg.APIKey,
		BaseURL:     strings.TrimSuffix(llmCfg.BaseURL, "/"),
		Region:      llmCfg.Region,
		Timeout:     llmCfg.Timeout,
		MaxTokens:   llmCfg.MaxTokens,
		Temperature: llmCfg.Temperature,
		HTTPProxy:   httpCfg.HTTPProxy,
		HTTPSProxy:  httpCfg.HTTPSProxy,
		NoProxy:     httpCfg.NoProxy,
	}, nil
}

func (c Config) timeout(fallback time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return fallback
}

func (c Config) maxTokens(req GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 400
}

func (c Config) temperature(req GenerateRequest) float64 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	return c.Temperature
}

// apiError formats a non-2xx provider response
func apiError(status int, detail string) error {
	detail = strings.TrimSpace(detail)
	if len(detail) > 300 {
		detail = detail[:300] + "..."
	}
	return fmt.Errorf("API error (%d): %s", status, detail)
}
