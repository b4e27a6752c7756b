package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
	"golang.org/x/net/html/charset"
)

// ErrRobotsDisallowed is returned when robots.txt forbids the fetch
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Fetcher retrieves raw documents over HTTP. Every call is a single attempt.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
}

// FetcherOption configures optional politeness hooks
type FetcherOption func(*Fetcher)

// WithLimiter throttles requests per host
func WithLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithRobots checks robots.txt before each fetch
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// NewFetcher creates a new Fetcher from the HTTP configuration
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: NewHTTPClient(cfg),
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 2_000_000
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewHTTPClient builds the shared outbound client: timeout, proxy and a redirect cap
func NewHTTPClient(cfg model.HTTPConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		},
	}
}

// FetchResult contains the decoded body and metadata
type FetchResult struct {
	Body        string
	Structured  bool // feed-like XML rather than HTML
	ContentType string
	StatusCode  int
	FinalURL    string
	Elapsed     time.Duration
}

// Fetch retrieves rawURL. Failures are returned as *model.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	start := time.Now()

	if f.robots != nil {
		allowed, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, &model.FetchError{URL: rawURL, Err: err}
		}
		if !allowed {
			return nil, &model.FetchError{URL: rawURL, Err: ErrRobotsDisallowed}
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, &model.FetchError{URL: rawURL, Err: fmt.Errorf("rate limit: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &model.FetchError{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ms;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &model.FetchError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &model.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	// Read body with size limit
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, &model.FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	contentType := resp.Header.Get("Content-Type")
	body := decodeBody(raw, contentType)

	return &FetchResult{
		Body:        body,
		Structured:  isStructured(contentType, body),
		ContentType: contentType,
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		Elapsed:     time.Since(start),
	}, nil
}

// decodeBody converts the body to UTF-8. A declared charset or BOM wins;
// otherwise valid UTF-8 is kept as is.
func decodeBody(raw []byte, contentType string) string {
	enc, _, certain := charset.DetermineEncoding(raw, contentType)
	if !certain && utf8.Valid(raw) {
		return string(raw)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(bytes.TrimPrefix(decoded, []byte("\ufeff")))
}

// isStructured reports feed-like content: an XML content type (not XHTML)
// or a literal XML prolog at the start of the body
func isStructured(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") && !strings.Contains(ct, "xhtml") {
		return true
	}

	trimmed := strings.TrimLeft(strings.TrimPrefix(body, "\ufeff"), " \t\r\n")
	return strings.HasPrefix(trimmed, "<?xml")
}
