package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
)

func TestRobotsChecker_CanFetch(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker(cache.NewMemoryCache(time.Hour, time.Hour), time.Hour, server.Client(), "Mozilla/5.0 (compatible; claimcheck/0.1)")
	ctx := context.Background()

	allowed, err := checker.CanFetch(ctx, server.URL+"/news/rss")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("expected /news/rss to be allowed")
	}

	allowed, err = checker.CanFetch(ctx, server.URL+"/private/page")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if allowed {
		t.Error("expected /private/page to be disallowed")
	}

	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", got)
	}
}

func TestRobotsChecker_AgentGroup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: claimcheck\nDisallow: /\n\nUser-agent: *\nAllow: /\n"))
	}))
	defer server.Close()

	checker := NewRobotsChecker(nil, 0, server.Client(), "Mozilla/5.0 (compatible; claimcheck/0.1)")
	allowed, err := checker.CanFetch(context.Background(), server.URL+"/anything")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if allowed {
		t.Error("expected claimcheck group to disallow everything")
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	checker := NewRobotsChecker(cache.NewMemoryCache(time.Hour, time.Hour), time.Hour, server.Client(), "claimcheck")
	allowed, err := checker.CanFetch(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("expected missing robots.txt to allow")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	checker := NewRobotsChecker(nil, 0, &http.Client{Timeout: 100 * time.Millisecond}, "claimcheck")
	allowed, err := checker.CanFetch(context.Background(), "http://127.0.0.1:1/page")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("expected unreachable robots.txt to allow")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"Mozilla/5.0 (compatible; claimcheck/0.1; +https://example.com)": "claimcheck",
		"claimcheck/1.0": "claimcheck",
		"curl/8.0 extra":  "curl",
		"":                "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "internal.example")

	req := &http.Request{URL: mustParse(t, "https://www.imf.org/en/News")}
	got, err := proxy(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if got == nil || got.Host != "secure-proxy.local:3128" {
		t.Errorf("expected https proxy, got %v", got)
	}

	req = &http.Request{URL: mustParse(t, "http://www.bnm.gov.my/rss")}
	got, err = proxy(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("expected http proxy, got %v", got)
	}

	req = &http.Request{URL: mustParse(t, "https://internal.example/page")}
	got, err = proxy(req)
	if err != nil {
		t.Fatalf("proxy failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected no proxy for excluded host, got %v", got)
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
