package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ppiankov/claimcheck/internal/util"
)

// invokeSchema is the request builder and response parser pair for one invoke-family kind
type invokeSchema struct {
	build func(prompt string, maxTokens int, temperature float64) any
	parse func(body []byte) string
}

var invokeSchemas = map[ProviderKind]invokeSchema{
	KindMistral: {
		build: func(prompt string, maxTokens int, temperature float64) any {
			return mistralRequest{Prompt: prompt, MaxTokens: maxTokens, Temperature: temperature}
		},
		parse: ExtractText,
	},
	KindLlama: {
		build: func(prompt string, maxTokens int, temperature float64) any {
			return llamaRequest{Prompt: prompt, MaxGenLen: maxTokens, Temperature: temperature}
		},
		parse: ExtractText,
	},
	KindTitan: {
		build: func(prompt string, maxTokens int, temperature float64) any {
			return titanRequest{
				InputText: prompt,
				TextGenerationConfig: titanGenerationConfig{
					MaxTokenCount: maxTokens,
					Temperature:   temperature,
				},
			}
		},
		parse: ExtractText,
	},
}

type mistralRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type llamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature"`
}

type titanRequest struct {
	InputText            string                `json:"inputText"`
	TextGenerationConfig titanGenerationConfig `json:"textGenerationConfig"`
}

type titanGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
}

// responseShapes are the known text locations in invoke responses, in priority order
var responseShapes = []string{
	"outputs.0.text",
	"generation",
	"outputText",
	"results.0.outputText",
	"output_text",
	"completion",
}

// ExtractText returns the model's free-text output from a raw invoke response.
// When no known shape matches, the raw body is the output.
func ExtractText(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range responseShapes {
			if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
				return strings.TrimSpace(r.Str)
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// InvokeProvider implements the Provider interface for invoke-style model endpoints
// (POST {base}/model/{modelId}/invoke)
type InvokeProvider struct {
	baseURL    string
	httpClient *http.Client
	schema     invokeSchema
	config     Config
}

// NewInvokeProvider creates a provider for one of the invoke-family kinds
func NewInvokeProvider(config Config) (*InvokeProvider, error) {
	schema, ok := invokeSchemas[config.Kind]
	if !ok {
		return nil, fmt.Errorf("provider kind %q does not use the invoke API", config.Kind)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("invoke model identifier is required")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		if config.Region == "" {
			return nil, fmt.Errorf("invoke endpoint needs llm.base_url or llm.region")
		}
		baseURL = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", config.Region)
	}

	return &InvokeProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.timeout(60 * time.Second),
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
			},
		},
		schema: schema,
		config: config,
	}, nil
}

// Name returns the provider kind name
func (p *InvokeProvider) Name() string {
	return string(p.config.Kind)
}

// IsAvailable reports whether a credential is configured.
// The invoke API has no cheap read-only call, so no request is made.
func (p *InvokeProvider) IsAvailable(ctx context.Context) bool {
	return p.config.APIKey != "" || p.config.BaseURL != ""
}

// Generate renders the kind-specific request body and extracts the output text
func (p *InvokeProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	prompt := req.Prompt
	if req.System != "" {
		prompt = req.System + "\n\n" + prompt
	}

	body, err := json.Marshal(p.schema.build(prompt, p.config.maxTokens(req), p.config.temperature(req)))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/model/%s/invoke", p.baseURL, url.PathEscape(p.config.Model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if msg := gjson.GetBytes(respBody, "message"); msg.Exists() {
			return nil, apiError(httpResp.StatusCode, msg.String())
		}
		return nil, apiError(httpResp.StatusCode, string(respBody))
	}

	return &GenerateResponse{
		Text:  p.schema.parse(respBody),
		Model: p.config.Model,
	}, nil
}
