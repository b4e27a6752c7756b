package model

// CandidateItem is one piece of content discovered on a trusted source
type CandidateItem struct {
	Title      string `json:"title"`
	URL        string `json:"url"`                // Absolute URL, resolved against SourceSite
	Snippet    string `json:"snippet,omitempty"`  // Plain text, possibly empty until assembled
	SourceSite string `json:"source_site"`        // Trusted source the item was found on
}

// ScoredCandidate is a candidate annotated with its relevance to the claim
type ScoredCandidate struct {
	CandidateItem
	Relevance float64 `json:"relevance"` // Fraction of claim tokens present, in [0,1]
}

// EvidenceCandidate is a ranked candidate whose snippet has been assembled
type EvidenceCandidate struct {
	ScoredCandidate
}

// EvidenceRef is the persisted view of an evidence candidate
type EvidenceRef struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Snippet    string  `json:"snippet,omitempty"`
	SourceSite string  `json:"source_site,omitempty"`
	Relevance  float64 `json:"relevance,omitempty"`
}

// Ref converts an evidence candidate into its persisted form
func (e EvidenceCandidate) Ref() EvidenceRef {
	return EvidenceRef{
		Title:      e.Title,
		URL:        e.URL,
		Snippet:    e.Snippet,
		SourceSite: e.SourceSite,
		Relevance:  e.Relevance,
	}
}
