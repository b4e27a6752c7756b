package extract

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ppiankov/claimcheck/internal/model"
)

// LinkGrammar is the fallback grammar: it scans anchors in document order
type LinkGrammar struct {
	minText int
	maxText int
}

// NewLinkGrammar creates a link grammar keeping anchors whose visible text
// length (in characters) falls within [minText, maxText]
func NewLinkGrammar(minText, maxText int) *LinkGrammar {
	if minText <= 0 {
		minText = 10
	}
	if maxText < minText {
		maxText = 180
	}
	return &LinkGrammar{minText: minText, maxText: maxText}
}

// Name returns the grammar name
func (g *LinkGrammar) Name() string {
	return "links"
}

// Detect always returns true (fallback grammar)
func (g *LinkGrammar) Detect(body string, structured bool) bool {
	return true
}

// Extract returns anchors as candidate items, deduplicated by resolved URL
func (g *LinkGrammar) Extract(sourceURL string, body string) ([]model.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	var items []model.CandidateItem
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := CollapseWhitespace(s.Text())
		n := utf8.RuneCountInString(text)
		if n < g.minText || n > g.maxText {
			return
		}

		href, _ := s.Attr("href")
		resolved := resolveURL(baseURL, strings.TrimSpace(href))
		if resolved == "" {
			return
		}

		items = append(items, model.CandidateItem{
			Title:      text,
			URL:        resolved,
			SourceSite: baseURL.Host,
		})
	})

	return dedupeItems(items), nil
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}

	// Skip anchors
	if strings.HasPrefix(href, "#") {
		return ""
	}

	// Skip javascript: and mailto: links
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)

	// Only keep http/https URLs
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}

	resolved.Fragment = ""
	return resolved.String()
}

// dedupeItems removes duplicate URLs, keeping the first occurrence
func dedupeItems(items []model.CandidateItem) []model.CandidateItem {
	seen := make(map[string]bool)
	var unique []model.CandidateItem

	for _, item := range items {
		if !seen[item.URL] {
			seen[item.URL] = true
			unique = append(unique, item)
		}
	}

	return unique
}
