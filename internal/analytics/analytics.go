// Package analytics compresses free text into a compact claim signature:
// a dominant language and up to eight key phrases.
package analytics

import (
	"context"
	"strings"

	"github.com/ppiankov/claimcheck/internal/extract"
	"golang.org/x/text/language"
)

const (
	// MaxKeyPhrases caps the phrases kept per text
	MaxKeyPhrases = 8

	// SignatureFallbackChars is the raw-text budget when no phrases are available
	SignatureFallbackChars = 280
)

// Result is the outcome of analyzing one text
type Result struct {
	Language   string
	KeyPhrases []string
}

// Analyzer detects language and extracts key phrases.
// languageHint, when non-empty, skips language detection.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, text, languageHint string) (*Result, error)
}

// Signature builds the compact claim text: the joined key phrases,
// or the first SignatureFallbackChars characters of the raw text
func Signature(phrases []string, raw string) string {
	if len(phrases) > 0 {
		return strings.Join(phrases, ", ")
	}
	return extract.Truncate(extract.CollapseWhitespace(raw), SignatureFallbackChars)
}

// CanonicalLanguage reduces a BCP 47 tag to its base language ("en-US" -> "en").
// Unparseable or empty codes yield fallback.
func CanonicalLanguage(code, fallback string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return fallback
	}
	tag, err := language.Parse(code)
	if err != nil {
		return fallback
	}
	base, conf := tag.Base()
	if conf == language.No {
		return fallback
	}
	return base.String()
}

// New returns the remote client when an endpoint is configured,
// otherwise the local heuristic analyzer
func New(endpoint, apiKey string, opts ...ClientOption) Analyzer {
	if endpoint == "" {
		return NewHeuristic()
	}
	return NewClient(endpoint, apiKey, opts...)
}
