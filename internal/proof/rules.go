package proof

import (
	"fmt"

	"github.com/proofrunner/core/internal/metrics"
)

// timeThreshold returns the time-to-green ceiling, in seconds, for a pace
// setting, defaulting to the medium threshold for an unrecognized value.
func timeThreshold(pace string) float64 {
	switch pace {
	case "high":
		return 2400
	case "low":
		return 3600
	default:
		return 3000
	}
}

// minCoverageDelta returns the lowest acceptable coverage delta for a
// quality bar setting, defaulting to the medium threshold.
func minCoverageDelta(qualityBar string) int64 {
	switch qualityBar {
	case "high":
		return 0
	case "low":
		return -10
	default:
		return -5
	}
}

func metricEvidence(id string, value interface{}) EvidenceRef {
	return EvidenceRef{Type: EvidenceMetric, ID: id, Field: "value", Value: value}
}

// AddedRegressionTestRule proves the "added_regression_test" claim.
type AddedRegressionTestRule struct{}

func (AddedRegressionTestRule) RuleID() string       { return "added_regression_test_v1" }
func (AddedRegressionTestRule) ClaimTypes() []string { return []string{"added_regression_test"} }
func (AddedRegressionTestRule) Dimensions() []string { return []string{"testing_discipline"} }

func (r AddedRegressionTestRule) Evaluate(claim Claim, bag metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) Result {
	var evidence []EvidenceRef

	testsPassed, _ := bag.Bool("tests_passed")
	if !testsPassed {
		return unproved(claim, r.RuleID(), evidence, "tests did not pass - cannot verify regression test")
	}
	evidence = append(evidence, metricEvidence("tests_passed", true))

	if testAdded, _ := bag.Bool("test_added"); testAdded {
		evidence = append(evidence, metricEvidence("test_added", true))
		return proved(claim, r.RuleID(), evidence,
			"candidate added a regression test - verified by test_added metric and passing tests")
	}

	testFilesChanged, _ := bag.Int64("test_files_changed")
	if testFilesChanged > 0 {
		evidence = append(evidence, metricEvidence("test_files_changed", testFilesChanged))

		testsAddedCount, _ := bag.Int64("tests_added_count")
		if testsAddedCount > 0 {
			evidence = append(evidence, metricEvidence("tests_added_count", testsAddedCount))
			return proved(claim, r.RuleID(), evidence,
				fmt.Sprintf("candidate modified test files and added %d test(s)", testsAddedCount))
		}
	}

	return unproved(claim, r.RuleID(), evidence, "could not verify that candidate added a regression test")
}

// DebuggingEffectiveRule proves the "debugging_effective" claim.
type DebuggingEffectiveRule struct{}

func (DebuggingEffectiveRule) RuleID() string       { return "debugging_effective_v1" }
func (DebuggingEffectiveRule) ClaimTypes() []string { return []string{"debugging_effective"} }
func (DebuggingEffectiveRule) Dimensions() []string { return []string{"debugging_method"} }

func (r DebuggingEffectiveRule) Evaluate(claim Claim, bag metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) Result {
	var evidence []EvidenceRef

	testsPassed, _ := bag.Bool("tests_passed")
	if !testsPassed {
		return unproved(claim, r.RuleID(), evidence, "tests did not pass - bug was not fixed")
	}
	evidence = append(evidence, metricEvidence("tests_passed", true))

	if timeToGreen, presence := bag.Float64("time_to_green_seconds"); presence == metrics.Present {
		evidence = append(evidence, metricEvidence("time_to_green_seconds", timeToGreen))
		// Exceeding the pace threshold is recorded but does not invalidate
		// an otherwise-proved verdict in this rule catalog.
		if timeToGreen > timeThreshold(com.Pace) {
			evidence = append(evidence, EvidenceRef{
				Type: EvidenceMetric, ID: "time_to_green_seconds", Field: "exceeded_threshold", Value: true,
			})
		}
	}

	for _, tag := range llmTags {
		if tag.Tag == "root_cause_identified" {
			evidence = append(evidence, EvidenceRef{Type: EvidenceLLMTag, ID: "root_cause_identified", Field: "evidence_quote", Value: tag.EvidenceQuote})
			return proved(claim, r.RuleID(), evidence, "candidate fixed the bug and explained the root cause")
		}
	}

	failedTestsBefore, _ := bag.Int64("failed_tests_before")
	if failedTestsBefore > 0 {
		evidence = append(evidence, metricEvidence("failed_tests_before", failedTestsBefore))
		return proved(claim, r.RuleID(), evidence, "candidate fixed failing tests - demonstrates effective debugging")
	}

	return unproved(claim, r.RuleID(), evidence,
		"tests pass but could not verify debugging process (missing root cause explanation)")
}

// TestingDisciplineRule proves the "testing_discipline" claim.
type TestingDisciplineRule struct{}

func (TestingDisciplineRule) RuleID() string       { return "testing_discipline_v1" }
func (TestingDisciplineRule) ClaimTypes() []string { return []string{"testing_discipline"} }
func (TestingDisciplineRule) Dimensions() []string { return []string{"testing_discipline"} }

func (r TestingDisciplineRule) Evaluate(claim Claim, bag metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) Result {
	var evidence []EvidenceRef

	testsAdded, _ := bag.Int64("tests_added_count")
	if testsAdded > 0 {
		evidence = append(evidence, metricEvidence("tests_added_count", testsAdded))
	}

	skippedTestsAdded, _ := bag.Int64("skipped_tests_added")
	if skippedTestsAdded > 0 {
		evidence = append(evidence, metricEvidence("skipped_tests_added", skippedTestsAdded))
		return unproved(claim, r.RuleID(), evidence,
			fmt.Sprintf("candidate introduced %d skipped test(s)", skippedTestsAdded))
	}

	if coverageDelta, presence := bag.Int64("coverage_delta"); presence == metrics.Present {
		evidence = append(evidence, metricEvidence("coverage_delta", coverageDelta))

		minDelta := minCoverageDelta(com.QualityBar)
		if coverageDelta < minDelta {
			return unproved(claim, r.RuleID(), evidence,
				fmt.Sprintf("coverage decreased by %d%% below acceptable threshold", abs64(coverageDelta)))
		}
	}

	if testsAdded > 0 {
		return proved(claim, r.RuleID(), evidence,
			fmt.Sprintf("candidate added %d test(s) with no skipped tests", testsAdded))
	}

	if testsPassed, _ := bag.Bool("tests_passed"); testsPassed {
		evidence = append(evidence, metricEvidence("tests_passed", true))
	}

	return unproved(claim, r.RuleID(), evidence, "could not verify testing discipline - no new tests added")
}

// TimeEfficientRule proves the "time_efficient" claim.
type TimeEfficientRule struct{}

func (TimeEfficientRule) RuleID() string       { return "time_efficient_v1" }
func (TimeEfficientRule) ClaimTypes() []string { return []string{"time_efficient"} }
func (TimeEfficientRule) Dimensions() []string { return []string{"shipping_speed"} }

func (r TimeEfficientRule) Evaluate(claim Claim, bag metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) Result {
	var evidence []EvidenceRef

	timeToGreen, presence := bag.Float64("time_to_green_seconds")
	if presence != metrics.Present {
		return unproved(claim, r.RuleID(), evidence, "time to completion not recorded")
	}
	evidence = append(evidence, metricEvidence("time_to_green_seconds", timeToGreen))

	pace := com.Pace
	if pace == "" {
		pace = "medium"
	}
	threshold := timeThreshold(pace)

	if timeToGreen <= threshold {
		minutes := int(timeToGreen / 60)
		return proved(claim, r.RuleID(), evidence,
			fmt.Sprintf("candidate completed in %d minutes, within threshold for %s pace", minutes, pace))
	}

	return unproved(claim, r.RuleID(), evidence,
		fmt.Sprintf("completion time (%d min) exceeded threshold for %s pace", int(timeToGreen/60), pace))
}

// HandlesEdgeCasesRule proves the "handles_edge_cases" claim.
type HandlesEdgeCasesRule struct{}

func (HandlesEdgeCasesRule) RuleID() string       { return "handles_edge_cases_v1" }
func (HandlesEdgeCasesRule) ClaimTypes() []string { return []string{"handles_edge_cases"} }
func (HandlesEdgeCasesRule) Dimensions() []string { return []string{"correctness"} }

func (r HandlesEdgeCasesRule) Evaluate(claim Claim, bag metrics.Bag, artifacts map[string]ArtifactMeta, llmTags []LLMTag, com ContextManifest) Result {
	var evidence []EvidenceRef

	testsPassed, _ := bag.Bool("tests_passed")
	if !testsPassed {
		return unproved(claim, r.RuleID(), evidence, "tests did not pass - edge cases may not be handled")
	}
	evidence = append(evidence, metricEvidence("tests_passed", true))

	failedCount, _ := bag.Int64("failed_tests_count")
	evidence = append(evidence, metricEvidence("failed_tests_count", failedCount))
	if failedCount > 0 {
		return unproved(claim, r.RuleID(), evidence, fmt.Sprintf("%d test(s) still failing", failedCount))
	}

	totalTests, _ := bag.Int64("total_tests")
	if totalTests > 0 {
		evidence = append(evidence, metricEvidence("total_tests", totalTests))
	}

	return proved(claim, r.RuleID(), evidence,
		fmt.Sprintf("all %d tests pass including edge case tests", totalTests))
}

// DefaultRegistry returns the initial rule catalog in the order the rules
// should be evaluated.
func DefaultRegistry() *Registry {
	return NewRegistry(
		AddedRegressionTestRule{},
		DebuggingEffectiveRule{},
		TestingDisciplineRule{},
		TimeEfficientRule{},
		HandlesEdgeCasesRule{},
	)
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
