package proof

import "github.com/proofrunner/core/internal/metrics"

// VerdictRecorder observes one rule verdict as it's produced. A Registry
// carries one as an optional hook (see SetRecorder) so callers can feed
// verdicts into metrics without the proof package importing an
// instrumentation library itself.
type VerdictRecorder interface {
	RecordVerdict(ruleID, status string)
}

// Registry holds the rule catalog as an ordered list of values, walked
// linearly to find the first rule whose ClaimTypes includes the claim's
// type — not a map, so registration order is preserved and the dispatch is
// observable and reproducible, matching the "rules are values" redesign.
type Registry struct {
	rules    []Rule
	recorder VerdictRecorder
}

// NewRegistry builds a Registry from rules in registration order.
func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: rules}
}

// SetRecorder attaches a VerdictRecorder that Evaluate reports every verdict
// to. Passing nil detaches it. Recording is incidental to dispatch — a rule
// evaluator itself never sees the recorder, keeping Rule.Evaluate pure.
func (r *Registry) SetRecorder(recorder VerdictRecorder) {
	r.recorder = recorder
}

// Register appends a rule to the end of the catalog.
func (r *Registry) Register(rule Rule) {
	r.rules = append(r.rules, rule)
}

// find returns the first registered rule that claims to handle claimType.
func (r *Registry) find(claimType string) Rule {
	for _, rule := range r.rules {
		for _, ct := range rule.ClaimTypes() {
			if ct == claimType {
				return rule
			}
		}
	}
	return nil
}

// Evaluate runs every claim through the registry, producing one Result per
// claim. A claim type with no matching rule comes back Unproved with an
// empty rule ID and an explanatory rationale, rather than being dropped.
func (r *Registry) Evaluate(claims []Claim, bag metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) []Result {
	results := make([]Result, 0, len(claims))
	for _, claim := range claims {
		rule := r.find(claim.ClaimType)
		var result Result
		if rule == nil {
			result = unproved(claim, "", nil,
				"no rule available for claim type \""+claim.ClaimType+"\"")
		} else {
			result = rule.Evaluate(claim, bag, artifacts, llmTags, com)
		}
		results = append(results, result)
		if r.recorder != nil {
			r.recorder.RecordVerdict(result.RuleID, string(result.Status))
		}
	}
	return results
}
