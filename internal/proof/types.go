// Package proof implements the deterministic proof engine: a registry of
// pure rules that turn simulation evidence (metrics, artifacts, LLM tags)
// into proved/unproved verdicts on a candidate's claims.
package proof

import "github.com/proofrunner/core/internal/metrics"

// Status is the verdict a rule reaches for a claim.
type Status string

const (
	Proved   Status = "proved"
	Unproved Status = "unproved"
)

// ContextManifest carries the run's calibration knobs — how strict the
// proof engine should be for this candidate/role combination.
type ContextManifest struct {
	Pace       string            `json:"pace"`        // "high" | "medium" | "low"
	QualityBar string            `json:"quality_bar"`  // "high" | "medium" | "low"
	Extensions map[string]string `json:"extensions,omitempty"` // forward-compatible, rule-specific overrides
}

// Claim is one assertion the candidate (or their writeup) is making about
// their own work, which a Rule will attempt to prove or leave unproved.
type Claim struct {
	ClaimID   string            `json:"claim_id"`
	ClaimType string            `json:"claim_type"`
	Dimension string            `json:"dimension,omitempty"`
	Subject   map[string]string `json:"subject,omitempty"`
}

// EvidenceKind identifies where a piece of evidence came from.
type EvidenceKind string

const (
	EvidenceMetric   EvidenceKind = "metric"
	EvidenceArtifact EvidenceKind = "artifact"
	EvidenceLLMTag   EvidenceKind = "llm_tag"
)

// EvidenceRef cites the specific evidence a rule used to reach its verdict.
type EvidenceRef struct {
	Type  EvidenceKind `json:"type"`
	ID    string       `json:"id"`
	Field string       `json:"field"`
	Value interface{}  `json:"value"`
}

// Result is a rule's verdict for one claim.
type Result struct {
	ClaimID   string        `json:"claim_id"`
	RuleID    string        `json:"rule_id"`
	Status    Status        `json:"status"`
	Evidence  []EvidenceRef `json:"evidence"`
	Rationale string        `json:"rationale"`
}

// ArtifactMeta describes an artifact available to a rule without exposing
// its local filesystem path.
type ArtifactMeta struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// LLMTag is one tag the LLM tagger attached to the candidate's writeup.
type LLMTag struct {
	Tag           string `json:"tag"`
	EvidenceQuote string `json:"evidence_quote"`
}

// Rule is a pure function, registered as a value, that attempts to prove
// one or more claim types for one or more scoring dimensions. Evaluate must
// not perform I/O, consult the clock, or use randomness — its output is a
// deterministic function of its inputs.
type Rule interface {
	RuleID() string
	ClaimTypes() []string
	Dimensions() []string
	Evaluate(claim Claim, metrics metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) Result
}

func proved(claim Claim, ruleID string, evidence []EvidenceRef, rationale string) Result {
	return Result{ClaimID: claim.ClaimID, RuleID: ruleID, Status: Proved, Evidence: evidence, Rationale: rationale}
}

func unproved(claim Claim, ruleID string, evidence []EvidenceRef, rationale string) Result {
	return Result{ClaimID: claim.ClaimID, RuleID: ruleID, Status: Unproved, Evidence: evidence, Rationale: rationale}
}
