package score

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/claimcheck/internal/model"
)

// MinTokenLength excludes short tokens (articles, prepositions, units) from overlap
const MinTokenLength = 3

// Tokenize splits text into lowercase letter/digit runs of at least MinTokenLength characters
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTokenLength {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Score returns the fraction of distinct claim tokens present in the candidate text.
// The measure is asymmetric: long candidates are not penalized for extra vocabulary.
func Score(candidateText, claimText string) float64 {
	return overlap(tokenSet(candidateText), tokenSet(claimText))
}

// Rank scores candidates on title+snippet, drops those below minScore,
// sorts descending (stable on ties) and keeps at most k
func Rank(candidates []model.CandidateItem, claimText string, k int, minScore float64) []model.ScoredCandidate {
	if k <= 0 {
		return nil
	}

	claimTokens := tokenSet(claimText)
	scored := make([]model.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		relevance := overlap(tokenSet(c.Title+" "+c.Snippet), claimTokens)
		if relevance < minScore {
			continue
		}
		scored = append(scored, model.ScoredCandidate{CandidateItem: c, Relevance: relevance})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

func overlap(candidate, claim map[string]bool) float64 {
	if len(claim) == 0 {
		return 0
	}
	matched := 0
	for tok := range claim {
		if candidate[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(claim))
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}
