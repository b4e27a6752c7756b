package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// PageText extracts the visible text of an HTML page, truncated to limit characters.
// Navigation chrome is skipped along with scripts and styles.
func PageText(htmlContent string, limit int) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return Truncate(StripMarkup(htmlContent), limit)
	}
	return Truncate(CollapseWhitespace(norm.NFKC.String(extractVisibleText(doc))), limit)
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "nav", "footer", "template", "svg":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
