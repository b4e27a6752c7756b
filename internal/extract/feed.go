package extract

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	itemBlockPattern  = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	entryBlockPattern = regexp.MustCompile(`(?is)<entry\b[^>]*>(.*?)</entry>`)
	titlePattern      = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title>`)
	linkTextPattern   = regexp.MustCompile(`(?is)<link\b[^>]*>(.*?)</link>`)
	linkHrefPattern   = regexp.MustCompile(`(?is)<link\b([^>]*)/?>`)
	hrefAttrPattern   = regexp.MustCompile(`(?is)\bhref\s*=\s*["']([^"']+)["']`)
	relAttrPattern    = regexp.MustCompile(`(?is)\brel\s*=\s*["']([^"']+)["']`)
	guidPattern       = regexp.MustCompile(`(?is)<guid\b[^>]*>(.*?)</guid>`)
	cdataPattern      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	descriptionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<description\b[^>]*>(.*?)</description>`),
		regexp.MustCompile(`(?is)<summary\b[^>]*>(.*?)</summary>`),
		regexp.MustCompile(`(?is)<content:encoded\b[^>]*>(.*?)</content:encoded>`),
		regexp.MustCompile(`(?is)<content\b[^>]*>(.*?)</content>`),
	}
)

// FeedGrammar extracts items from RSS <item> and Atom <entry> blocks
type FeedGrammar struct {
	limit int
}

// NewFeedGrammar creates a feed grammar capped at limit items
func NewFeedGrammar(limit int) *FeedGrammar {
	if limit <= 0 {
		limit = 50
	}
	return &FeedGrammar{limit: limit}
}

// Name returns the grammar name
func (g *FeedGrammar) Name() string {
	return "feed"
}

// Detect reports whether the body carries feed item delimiters
func (g *FeedGrammar) Detect(body string, structured bool) bool {
	if structured {
		return true
	}
	return itemBlockPattern.MatchString(body) || entryBlockPattern.MatchString(body)
}

// Extract returns feed items in document order.
// Items without a title or a link are skipped.
func (g *FeedGrammar) Extract(sourceURL string, body string) ([]model.CandidateItem, error) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	blocks := itemBlockPattern.FindAllStringSubmatch(body, -1)
	if len(blocks) == 0 {
		blocks = entryBlockPattern.FindAllStringSubmatch(body, -1)
	}

	var items []model.CandidateItem
	for _, block := range blocks {
		if len(items) >= g.limit {
			break
		}

		inner := block[1]
		title := feedText(firstSubmatch(titlePattern, inner))
		link := resolveURL(base, feedLink(inner))
		if title == "" || link == "" {
			continue
		}

		items = append(items, model.CandidateItem{
			Title:      title,
			URL:        link,
			Snippet:    feedText(feedDescription(inner)),
			SourceSite: base.Host,
		})
	}

	return items, nil
}

// feedLink returns the item link: RSS <link>text</link>, Atom <link href>, then a URL-shaped <guid>
func feedLink(block string) string {
	if text := strings.TrimSpace(unwrapCDATA(firstSubmatch(linkTextPattern, block))); text != "" {
		return html.UnescapeString(text)
	}

	var fallback string
	for _, match := range linkHrefPattern.FindAllStringSubmatch(block, -1) {
		href := firstSubmatch(hrefAttrPattern, match[1])
		if href == "" {
			continue
		}
		rel := strings.ToLower(firstSubmatch(relAttrPattern, match[1]))
		if rel == "" || rel == "alternate" {
			return html.UnescapeString(href)
		}
		if fallback == "" {
			fallback = href
		}
	}
	if fallback != "" {
		return html.UnescapeString(fallback)
	}

	guid := strings.TrimSpace(unwrapCDATA(firstSubmatch(guidPattern, block)))
	if strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
		return html.UnescapeString(guid)
	}
	return ""
}

func feedDescription(block string) string {
	for _, pattern := range descriptionPatterns {
		if desc := firstSubmatch(pattern, block); strings.TrimSpace(desc) != "" {
			return desc
		}
	}
	return ""
}

// feedText unwraps CDATA and normalizes entity-escaped or literal markup to plain text
func feedText(raw string) string {
	text := unwrapCDATA(raw)
	if strings.Contains(text, "&lt;") {
		text = html.UnescapeString(text)
	}
	return StripMarkup(text)
}

func unwrapCDATA(s string) string {
	return cdataPattern.ReplaceAllString(s, "$1")
}

func firstSubmatch(pattern *regexp.Regexp, s string) string {
	match := pattern.FindStringSubmatch(s)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
