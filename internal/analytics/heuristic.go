package analytics

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxPhraseWords caps the length of a heuristic key phrase
const maxPhraseWords = 6

var stopWords = map[string]map[string]bool{
	"en": setOf("a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "at", "by", "for", "with",
		"from", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that",
		"these", "those", "has", "have", "had", "will", "would", "can", "could", "should", "may",
		"might", "not", "no", "so", "than", "then", "there", "their", "they", "he", "she", "we", "you",
		"i", "his", "her", "our", "your", "which", "who", "whom", "what", "when", "where", "why", "how",
		"about", "after", "before", "into", "over", "under", "again", "also", "said", "says", "just"),
	"ms": setOf("yang", "dan", "di", "ke", "dari", "untuk", "dengan", "ini", "itu", "adalah", "akan",
		"telah", "sudah", "tidak", "bagi", "pada", "oleh", "atau", "juga", "dalam", "kepada", "kerana",
		"ia", "mereka", "kami", "kita", "saya", "anda", "lebih", "sebagai", "secara", "bahawa"),
}

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Heuristic is an offline analyzer: script-based language guess plus
// stop-word delimited phrase chunking
type Heuristic struct{}

// NewHeuristic creates the local analyzer
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Name returns the analyzer name
func (h *Heuristic) Name() string {
	return "heuristic"
}

// Analyze never fails
func (h *Heuristic) Analyze(_ context.Context, text, languageHint string) (*Result, error) {
	lang := CanonicalLanguage(languageHint, "")
	if lang == "" {
		lang = GuessLanguage(text)
	}
	return &Result{Language: lang, KeyPhrases: KeyPhrases(text, lang)}, nil
}

// GuessLanguage infers a base language code from the dominant script,
// distinguishing English from Malay by stop-word counts
func GuessLanguage(text string) string {
	counts := map[string]int{}
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			counts["zh"]++
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			counts["ja"] += 2 // kana is decisive next to shared Han characters
		case unicode.Is(unicode.Hangul, r):
			counts["ko"]++
		case unicode.Is(unicode.Arabic, r):
			counts["ar"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["ru"]++
		case unicode.Is(unicode.Thai, r):
			counts["th"]++
		case unicode.Is(unicode.Devanagari, r):
			counts["hi"]++
		case unicode.Is(unicode.Tamil, r):
			counts["ta"]++
		case unicode.Is(unicode.Latin, r):
			counts["latin"]++
		}
	}

	best, bestCount := "latin", 0
	for _, script := range []string{"latin", "zh", "ja", "ko", "ar", "ru", "th", "hi", "ta"} {
		if counts[script] > bestCount {
			best, bestCount = script, counts[script]
		}
	}
	if best != "latin" {
		return best
	}

	en, ms := 0, 0
	for _, w := range words(text) {
		if stopWords["en"][w] {
			en++
		}
		if stopWords["ms"][w] {
			ms++
		}
	}
	if ms > en {
		return "ms"
	}
	return "en"
}

// KeyPhrases splits text into candidate phrases at punctuation and stop words,
// keeping at most MaxKeyPhrases distinct phrases in order of appearance
func KeyPhrases(text, lang string) []string {
	stops := stopWords[lang]

	var phrases []string
	seen := make(map[string]bool)
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		if hasContentWord(current) {
			phrase := strings.Join(current, " ")
			key := strings.ToLower(phrase)
			if !seen[key] {
				seen[key] = true
				phrases = append(phrases, phrase)
			}
		}
		current = current[:0]
	}

	for _, segment := range strings.FieldsFunc(text, isPhraseBreak) {
		for _, tok := range strings.Fields(segment) {
			tok = strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' })
			if tok == "" {
				continue
			}
			if stops[strings.ToLower(tok)] {
				flush()
				continue
			}
			current = append(current, tok)
			if len(current) == maxPhraseWords {
				flush()
			}
		}
		flush()
		if len(phrases) >= MaxKeyPhrases {
			break
		}
	}

	if len(phrases) > MaxKeyPhrases {
		phrases = phrases[:MaxKeyPhrases]
	}
	return phrases
}

func isPhraseBreak(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '[', ']', '"', '\n', '\t', '|', '—', '–':
		return true
	}
	return false
}

// hasContentWord requires at least one token of three or more characters
func hasContentWord(tokens []string) bool {
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= 3 {
			return true
		}
	}
	return false
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
