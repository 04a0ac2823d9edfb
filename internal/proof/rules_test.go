package proof

import (
	"testing"

	"github.com/proofrunner/core/internal/metrics"
)

func claim(claimType string) Claim {
	return Claim{ClaimID: "claim_1", ClaimType: claimType}
}

func TestAddedRegressionTestRule(t *testing.T) {
	rule := AddedRegressionTestRule{}

	cases := []struct {
		name   string
		bag    metrics.Bag
		status Status
	}{
		{"tests failed", metrics.Bag{"tests_passed": metrics.BoolValue(false)}, Unproved},
		{
			"test_added metric true",
			metrics.Bag{"tests_passed": metrics.BoolValue(true), "test_added": metrics.BoolValue(true)},
			Proved,
		},
		{
			"test files changed with added tests",
			metrics.Bag{
				"tests_passed":       metrics.BoolValue(true),
				"test_files_changed": metrics.Int64Value(1),
				"tests_added_count":  metrics.Int64Value(2),
			},
			Proved,
		},
		{
			"test files changed but no new tests",
			metrics.Bag{
				"tests_passed":       metrics.BoolValue(true),
				"test_files_changed": metrics.Int64Value(1),
			},
			Unproved,
		},
		{
			"no evidence at all",
			metrics.Bag{"tests_passed": metrics.BoolValue(true)},
			Unproved,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := rule.Evaluate(claim("added_regression_test"), tc.bag, nil, nil, ContextManifest{})
			if result.Status != tc.status {
				t.Errorf("status = %s, want %s (rationale: %s)", result.Status, tc.status, result.Rationale)
			}
		})
	}
}

func TestDebuggingEffectiveRule(t *testing.T) {
	rule := DebuggingEffectiveRule{}

	t.Run("tests failed", func(t *testing.T) {
		result := rule.Evaluate(claim("debugging_effective"), metrics.Bag{"tests_passed": metrics.BoolValue(false)}, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})

	t.Run("root cause tag present proves regardless of time", func(t *testing.T) {
		bag := metrics.Bag{
			"tests_passed":          metrics.BoolValue(true),
			"time_to_green_seconds": metrics.Int64Value(9000), // well over every threshold
		}
		tags := []LLMTag{{Tag: "root_cause_identified", EvidenceQuote: "because X caused Y"}}
		result := rule.Evaluate(claim("debugging_effective"), bag, nil, tags, ContextManifest{Pace: "high"})
		if result.Status != Proved {
			t.Errorf("expected proved despite exceeded time threshold (no-op branch), got %s: %s", result.Status, result.Rationale)
		}

		var sawExceeded bool
		for _, ev := range result.Evidence {
			if ev.ID == "time_to_green_seconds" && ev.Field == "exceeded_threshold" {
				sawExceeded = true
				if ev.Value != true {
					t.Errorf("exceeded_threshold evidence value = %v, want true", ev.Value)
				}
			}
		}
		if !sawExceeded {
			t.Errorf("expected an exceeded_threshold evidence ref when time_to_green_seconds exceeds the pace threshold, got %+v", result.Evidence)
		}
	})

	t.Run("time within threshold records no exceeded_threshold evidence", func(t *testing.T) {
		bag := metrics.Bag{
			"tests_passed":          metrics.BoolValue(true),
			"time_to_green_seconds": metrics.Int64Value(1000),
			"failed_tests_before":   metrics.Int64Value(1),
		}
		result := rule.Evaluate(claim("debugging_effective"), bag, nil, nil, ContextManifest{Pace: "high"})
		for _, ev := range result.Evidence {
			if ev.Field == "exceeded_threshold" {
				t.Errorf("did not expect exceeded_threshold evidence when within threshold, got %+v", result.Evidence)
			}
		}
	})

	t.Run("failed_tests_before without root cause still proves", func(t *testing.T) {
		bag := metrics.Bag{"tests_passed": metrics.BoolValue(true), "failed_tests_before": metrics.Int64Value(3)}
		result := rule.Evaluate(claim("debugging_effective"), bag, nil, nil, ContextManifest{})
		if result.Status != Proved {
			t.Errorf("expected proved, got %s", result.Status)
		}
	})

	t.Run("no supporting evidence leaves unproved", func(t *testing.T) {
		bag := metrics.Bag{"tests_passed": metrics.BoolValue(true)}
		result := rule.Evaluate(claim("debugging_effective"), bag, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})
}

func TestTestingDisciplineRule(t *testing.T) {
	rule := TestingDisciplineRule{}

	t.Run("skipped tests always unproved", func(t *testing.T) {
		bag := metrics.Bag{"tests_added_count": metrics.Int64Value(3), "skipped_tests_added": metrics.Int64Value(1)}
		result := rule.Evaluate(claim("testing_discipline"), bag, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})

	t.Run("coverage below quality bar threshold unproved", func(t *testing.T) {
		bag := metrics.Bag{"tests_added_count": metrics.Int64Value(1), "coverage_delta": metrics.Int64Value(-15)}
		result := rule.Evaluate(claim("testing_discipline"), bag, nil, nil, ContextManifest{QualityBar: "low"}) // min -10
		if result.Status != Unproved {
			t.Errorf("expected unproved (coverage below -10 threshold), got %s", result.Status)
		}
	})

	t.Run("coverage within quality bar proves with added tests", func(t *testing.T) {
		bag := metrics.Bag{"tests_added_count": metrics.Int64Value(1), "coverage_delta": metrics.Int64Value(-3)}
		result := rule.Evaluate(claim("testing_discipline"), bag, nil, nil, ContextManifest{QualityBar: "medium"}) // min -5
		if result.Status != Proved {
			t.Errorf("expected proved, got %s", result.Status)
		}
	})

	t.Run("no new tests unproved even if tests pass", func(t *testing.T) {
		bag := metrics.Bag{"tests_passed": metrics.BoolValue(true)}
		result := rule.Evaluate(claim("testing_discipline"), bag, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})
}

func TestTimeEfficientRule(t *testing.T) {
	rule := TimeEfficientRule{}

	cases := []struct {
		name    string
		seconds int64
		pace    string
		status  Status
	}{
		{"within high pace threshold", 2000, "high", Proved},
		{"exceeds high pace threshold", 2500, "high", Unproved},
		{"within medium pace threshold (default)", 2999, "", Proved},
		{"within low pace threshold", 3599, "low", Proved},
		{"exceeds low pace threshold", 3601, "low", Unproved},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bag := metrics.Bag{"time_to_green_seconds": metrics.Int64Value(tc.seconds)}
			result := rule.Evaluate(claim("time_efficient"), bag, nil, nil, ContextManifest{Pace: tc.pace})
			if result.Status != tc.status {
				t.Errorf("status = %s, want %s (rationale: %s)", result.Status, tc.status, result.Rationale)
			}
		})
	}

	t.Run("missing time metric unproved", func(t *testing.T) {
		result := rule.Evaluate(claim("time_efficient"), metrics.Bag{}, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})
}

func TestHandlesEdgeCasesRule(t *testing.T) {
	rule := HandlesEdgeCasesRule{}

	t.Run("tests did not pass", func(t *testing.T) {
		result := rule.Evaluate(claim("handles_edge_cases"), metrics.Bag{"tests_passed": metrics.BoolValue(false)}, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})

	t.Run("some tests still failing", func(t *testing.T) {
		bag := metrics.Bag{"tests_passed": metrics.BoolValue(true), "failed_tests_count": metrics.Int64Value(2)}
		result := rule.Evaluate(claim("handles_edge_cases"), bag, nil, nil, ContextManifest{})
		if result.Status != Unproved {
			t.Errorf("expected unproved, got %s", result.Status)
		}
	})

	t.Run("all tests pass", func(t *testing.T) {
		bag := metrics.Bag{"tests_passed": metrics.BoolValue(true), "failed_tests_count": metrics.Int64Value(0), "total_tests": metrics.Int64Value(12)}
		result := rule.Evaluate(claim("handles_edge_cases"), bag, nil, nil, ContextManifest{})
		if result.Status != Proved {
			t.Errorf("expected proved, got %s", result.Status)
		}
	})
}

func TestRegistryDispatchesFirstMatchInOrder(t *testing.T) {
	registry := DefaultRegistry()

	claims := []Claim{
		claim("time_efficient"),
		claim("unknown_claim_type"),
	}
	bag := metrics.Bag{"time_to_green_seconds": metrics.Int64Value(1000)}

	results := registry.Evaluate(claims, bag, nil, nil, ContextManifest{Pace: "medium"})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].RuleID != "time_efficient_v1" {
		t.Errorf("expected time_efficient_v1, got %s", results[0].RuleID)
	}
	if results[1].RuleID != "" || results[1].Status != Unproved {
		t.Errorf("expected unproved no-rule result for unknown claim type, got %+v", results[1])
	}
}

func TestRuleEvaluateIsDeterministic(t *testing.T) {
	rule := TimeEfficientRule{}
	bag := metrics.Bag{"time_to_green_seconds": metrics.Int64Value(1500)}
	c := claim("time_efficient")
	com := ContextManifest{Pace: "medium"}

	first := rule.Evaluate(c, bag, nil, nil, com)
	second := rule.Evaluate(c, bag, nil, nil, com)

	if first.Status != second.Status || first.Rationale != second.Rationale {
		t.Errorf("rule evaluation is not deterministic: %+v vs %+v", first, second)
	}
}
