package score

import (
	"reflect"
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("The OPR rose to 3.00% in May, says BNM!")
	want := []string{"the", "opr", "rose", "may", "says", "bnm"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}

	if got := Tokenize("Kadar faedah naik 25 mata asas"); !reflect.DeepEqual(got, []string{"kadar", "faedah", "naik", "mata", "asas"}) {
		t.Errorf("unexpected tokens: %v", got)
	}

	if got := Tokenize(""); len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestScore(t *testing.T) {
	claim := "Central bank raised interest rates"

	tests := []struct {
		name      string
		candidate string
		want      float64
	}{
		{"identical", claim, 1},
		{"superset", "The central bank raised interest rates again on Thursday", 1},
		{"partial", "Interest rates unchanged", 0.4},
		{"disjoint", "Weather forecast for the weekend", 0},
		{"case insensitive", "CENTRAL BANK RAISED INTEREST RATES", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.candidate, claim); got != tt.want {
				t.Errorf("Score(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestScore_EmptyClaim(t *testing.T) {
	if got := Score("anything at all", "a an"); got != 0 {
		t.Errorf("expected 0 for a claim without tokens, got %v", got)
	}
}

func TestScore_ExactTitleIsMaximum(t *testing.T) {
	claim := "Bursa Malaysia suspends trading in shares"
	exact := Score(claim, claim)
	for _, other := range []string{
		"Bursa Malaysia",
		"Trading in shares resumes",
		"Bursa Malaysia suspends trading in shares of three companies",
	} {
		if s := Score(other, claim); s > exact {
			t.Errorf("Score(%q) = %v exceeds exact-match score %v", other, s, exact)
		}
	}
}

func TestRank(t *testing.T) {
	claim := "central bank raised interest rates"
	candidates := []model.CandidateItem{
		{Title: "Weather today", URL: "https://x/0"},
		{Title: "Interest rates", Snippet: "central bank statement", URL: "https://x/1"},
		{Title: "Bank holiday", URL: "https://x/2"},
		{Title: "Central bank raised interest rates", URL: "https://x/3"},
		{Title: "Interest rates outlook", Snippet: "by the central bank", URL: "https://x/4"},
		{Title: "Rates", URL: "https://x/5"},
	}

	ranked := Rank(candidates, claim, 3, 0.2)

	if len(ranked) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(ranked))
	}

	// x/3 scores 1.0; x/1 and x/4 tie at 0.8 and keep discovery order
	wantURLs := []string{"https://x/3", "https://x/1", "https://x/4"}
	for i, want := range wantURLs {
		if ranked[i].URL != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].URL)
		}
	}

	for i := 1; i < len(ranked); i++ {
		if ranked[i].Relevance > ranked[i-1].Relevance {
			t.Errorf("results not sorted: %v > %v", ranked[i].Relevance, ranked[i-1].Relevance)
		}
	}
}

func TestRank_MinScoreFilter(t *testing.T) {
	candidates := []model.CandidateItem{
		{Title: "Completely unrelated announcement", URL: "https://x/0"},
		{Title: "Bank", URL: "https://x/1"},
	}

	ranked := Rank(candidates, "central bank raised interest rates", 5, 0.2)
	if len(ranked) != 1 || ranked[0].URL != "https://x/1" {
		t.Errorf("Expected only x/1 at relevance 0.2, got %+v", ranked)
	}
}

func TestRank_StableOnTies(t *testing.T) {
	var candidates []model.CandidateItem
	for _, u := range []string{"a", "b", "c", "d", "e", "f"} {
		candidates = append(candidates, model.CandidateItem{Title: "policy rate decision", URL: "https://x/" + u})
	}

	ranked := Rank(candidates, "policy rate decision", 4, 0)
	if len(ranked) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(ranked))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if ranked[i].URL != "https://x/"+want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].URL)
		}
	}
}

func TestRank_NonPositiveK(t *testing.T) {
	candidates := []model.CandidateItem{{Title: "central bank", URL: "https://x/0"}}
	if got := Rank(candidates, "central bank", 0, 0); len(got) != 0 {
		t.Errorf("Expected no results for k=0, got %d", len(got))
	}
}
