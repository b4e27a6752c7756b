package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// StripMarkup converts an HTML or XML fragment into plain text.
// CDATA sections are unwrapped, script and style contents are dropped,
// tags become word breaks and whitespace runs collapse to single spaces.
func StripMarkup(markup string) string {
	markup = unwrapCDATA(markup)
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	var buf strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return CollapseWhitespace(norm.NFKC.String(buf.String()))
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedElement(string(name)) {
				skip++
			}
			buf.WriteByte(' ')
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isSkippedElement(string(name)) && skip > 0 {
				skip--
			}
			buf.WriteByte(' ')
		case html.SelfClosingTagToken:
			buf.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				buf.Write(tokenizer.Text())
			}
		}
	}
}

func isSkippedElement(name string) bool {
	switch name {
	case "script", "style", "noscript":
		return true
	}
	return false
}

// CollapseWhitespace replaces every whitespace run with one space and trims
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most limit runes, trimming trailing whitespace
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return strings.TrimSpace(s[:i])
		}
		count++
	}
	return s
}
