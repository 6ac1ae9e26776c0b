// Package brief turns fetched source documents into a structured research
// brief via an LLM completion API, with defensive output parsing.
package brief

// KeyPoint is one claim attributed to a source, with a verbatim excerpt.
type KeyPoint struct {
	Point         string `json:"point"`
	SourceURL     string `json:"source_url"`
	SourceSnippet string `json:"source_snippet"`
}

// ConflictingClaim records a claim that the sources disagree on.
type ConflictingClaim struct {
	Claim   string   `json:"claim"`
	Sources []string `json:"sources"`
}

// Result is the validated research brief. After Validate all four fields
// are always present with the right container types.
type Result struct {
	Summary               string             `json:"summary"`
	KeyPoints             []KeyPoint         `json:"key_points"`
	ConflictingClaims     []ConflictingClaim `json:"conflicting_claims"`
	VerificationChecklist []string           `json:"verification_checklist"`
}
