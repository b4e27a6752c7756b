package model

import (
	"strings"
	"time"
)

// Verdict is the three-way outcome assigned to a claim
type Verdict string

const (
	VerdictSupported Verdict = "Supported"
	VerdictRefuted   Verdict = "Refuted"
	VerdictUnclear   Verdict = "Unclear"
)

// DefaultConfidence is used whenever the model gives no usable confidence
const DefaultConfidence = 0.5

// ParseVerdict maps free-form model output onto a Verdict.
// Matching is by case-insensitive prefix: support* and refut*; anything else is Unclear.
func ParseVerdict(s string) Verdict {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(lower, "support"):
		return VerdictSupported
	case strings.HasPrefix(lower, "refut"):
		return VerdictRefuted
	default:
		return VerdictUnclear
	}
}

// VerdictRecord is the append-only result of one verification request
type VerdictRecord struct {
	ID          string        `json:"id" db:"id"`
	Claim       string        `json:"claim" db:"claim"`
	Verdict     Verdict       `json:"verdict" db:"verdict"`
	Confidence  float64       `json:"confidence" db:"confidence"`   // Canonical [0,1] scale
	Evidence    []EvidenceRef `json:"evidence" db:"-"`
	Used        []int         `json:"used,omitempty" db:"-"`        // 1-based indices into Evidence
	Language    string        `json:"language" db:"language"`
	URL         string        `json:"url,omitempty" db:"url"`       // User-supplied URL, if any
	Explanation string        `json:"explanation,omitempty" db:"explanation"`
	Model       string        `json:"model,omitempty" db:"model"`   // Model identifier that produced the verdict
	Provider    string        `json:"provider,omitempty" db:"provider"`
	CreatedAt   time.Time     `json:"created_at" db:"-"`
}

// SourceLabel describes who produced the verdict, as shown in listings
func (r VerdictRecord) SourceLabel() string {
	if r.Provider == "" {
		return "Verified by claimcheck"
	}
	return "Verified by " + r.Provider
}
