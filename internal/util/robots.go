package util

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/temoto/robotstxt"
)

const maxRobotsBytes = 512 * 1024

// RobotsChecker checks robots.txt compliance before a source is fetched.
// Parsed rules are cached per host for the configured TTL.
type RobotsChecker struct {
	cache      cache.Cache
	ttl        time.Duration
	httpClient *http.Client
	userAgent  string
	agentName  string
}

// NewRobotsChecker creates a new robots.txt checker backed by c
func NewRobotsChecker(c cache.Cache, ttl time.Duration, client *http.Client, userAgent string) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		cache:      c,
		ttl:        ttl,
		httpClient: client,
		userAgent:  userAgent,
		agentName:  NormalizeUserAgent(userAgent),
	}
}

// CanFetch checks if the URL can be fetched according to robots.txt.
// An unreachable robots.txt allows the fetch.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.robotsData(ctx, parsed)
	if err != nil {
		return true, nil
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}

	return data.TestAgent(path, r.agentName), nil
}

// robotsData returns parsed rules for the URL's host, from cache when possible
func (r *RobotsChecker) robotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, target.Host)
	key := cache.Key("robots", robotsURL)

	if r.cache != nil {
		if raw, ok := r.cache.Get(key); ok {
			status, body := decodeEntry(raw)
			return robotstxt.FromStatusAndBytes(status, body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	// Server errors are transient; don't remember them
	if r.cache != nil && resp.StatusCode < http.StatusInternalServerError {
		_ = r.cache.Set(key, encodeEntry(resp.StatusCode, body), r.ttl)
	}

	return data, nil
}

func encodeEntry(status int, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte('\n')
	buf.Write(body)
	return buf.Bytes()
}

func decodeEntry(raw []byte) (int, []byte) {
	head, body, found := bytes.Cut(raw, []byte{'\n'})
	if !found {
		return http.StatusOK, raw
	}
	status, err := strconv.Atoi(string(head))
	if err != nil {
		return http.StatusOK, raw
	}
	return status, body
}

// NormalizeUserAgent extracts the product token used for robots.txt group matching,
// preferring the token inside a "compatible;" comment.
func NormalizeUserAgent(ua string) string {
	if i := strings.Index(ua, "compatible;"); i >= 0 {
		rest := strings.TrimSpace(ua[i+len("compatible;"):])
		if parts := strings.FieldsFunc(rest, func(r rune) bool { return r == ';' || r == ')' || r == ' ' }); len(parts) > 0 {
			return strings.Split(parts[0], "/")[0]
		}
	}

	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
