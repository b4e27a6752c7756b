package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/claimcheck/internal/model"
)

// MaxInputBytes bounds the text sent to the remote service
const MaxInputBytes = 4500

// Client calls a remote language/key-phrase service exposing
// /detect-dominant-language and /detect-key-phrases
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// ClientOption configures the remote client
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a remote analytics client
func NewClient(endpoint, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the analyzer name
func (c *Client) Name() string {
	return "remote"
}

type detectLanguageResponse struct {
	Languages []struct {
		LanguageCode string  `json:"LanguageCode"`
		Score        float64 `json:"Score"`
	} `json:"Languages"`
}

type detectKeyPhrasesResponse struct {
	KeyPhrases []struct {
		Text  string  `json:"Text"`
		Score float64 `json:"Score"`
	} `json:"KeyPhrases"`
}

// Analyze detects the dominant language (unless hinted) and extracts key phrases.
// Failures are returned as *model.AnalyticsError.
func (c *Client) Analyze(ctx context.Context, text, languageHint string) (*Result, error) {
	input := truncateBytes(text, MaxInputBytes)

	lang := CanonicalLanguage(languageHint, "")
	if lang == "" {
		var resp detectLanguageResponse
		if err := c.post(ctx, "/detect-dominant-language", map[string]string{"Text": input}, &resp); err != nil {
			return nil, &model.AnalyticsError{Op: "detect-language", Err: err}
		}
		if len(resp.Languages) > 0 {
			lang = CanonicalLanguage(resp.Languages[0].LanguageCode, "")
		}
		if lang == "" {
			lang = "en"
		}
	}

	var resp detectKeyPhrasesResponse
	if err := c.post(ctx, "/detect-key-phrases", map[string]string{"Text": input, "LanguageCode": lang}, &resp); err != nil {
		return nil, &model.AnalyticsError{Op: "detect-key-phrases", Err: err}
	}

	phrases := make([]string, 0, MaxKeyPhrases)
	for _, kp := range resp.KeyPhrases {
		if len(phrases) == MaxKeyPhrases {
			break
		}
		if p := strings.TrimSpace(kp.Text); p != "" {
			phrases = append(phrases, p)
		}
	}

	return &Result{Language: lang, KeyPhrases: phrases}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// truncateBytes cuts s to at most n bytes without splitting a rune
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
