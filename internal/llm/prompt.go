package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// SystemPrompt frames the classifier role for providers that take a system message
const SystemPrompt = "You are a finance fact-checker. You answer with a single JSON object and nothing else."

// BuildPrompt renders the claim and numbered evidence into one instruction.
// Output is deterministic for the same inputs; documents are numbered from 1.
func BuildPrompt(claim string, evidence []model.EvidenceCandidate) string {
	var docs strings.Builder
	for i, e := range evidence {
		if i > 0 {
			docs.WriteString("\n")
		}
		docs.WriteString(fmt.Sprintf("[Doc %d] Title: %s\n", i+1, oneLine(e.Title)))
		docs.WriteString(fmt.Sprintf("URL: %s\n", e.URL))
		docs.WriteString(fmt.Sprintf("Snippet: %s\n", oneLine(e.Snippet)))
	}
	if len(evidence) == 0 {
		docs.WriteString("(no documents)\n")
	}

	return fmt.Sprintf(`You are a finance fact-checker. Decide if the CLAIM is supported by the EVIDENCE docs.

CLAIM:
%s

EVIDENCE:
%s
Output a single JSON object with fields:
{"verdict":"Supported|Refuted|Unclear","confidence":0-100,"used":[doc_numbers],"explanation":"short reason"}

Only output JSON.`, strings.TrimSpace(claim), docs.String())
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
