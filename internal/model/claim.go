package model

// Claim is the normalized assertion being checked for one request
type Claim struct {
	Text      string      `json:"text"`                 // Compact claim signature used for ranking and prompting
	Raw       string      `json:"raw,omitempty"`        // Free text the signature was derived from
	SourceURL string      `json:"source_url,omitempty"` // Page the claim was scraped from, if any
	Language  string      `json:"language"`             // Dominant language code (e.g., "en")
	Phrases   []string    `json:"phrases,omitempty"`    // Key phrases returned by text analytics
	Origin    ClaimOrigin `json:"origin"`
}

// ClaimOrigin records how the claim text was obtained
type ClaimOrigin string

const (
	ClaimOriginText     ClaimOrigin = "text"     // Supplied directly by the caller
	ClaimOriginPage     ClaimOrigin = "page"     // Scraped from the supplied URL
	ClaimOriginFallback ClaimOrigin = "url_only" // URL could not be fetched; claim names the URL
)
