package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestParseMetricsMergeGraderWins(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics.json")
	graderPath := filepath.Join(dir, "grader_output.json")

	writeJSON(t, metricsPath, `{"tests_passed": true, "coverage_delta": -5}`)
	writeJSON(t, graderPath, `{"metrics": {"coverage_delta": 0, "tests_added_count": 2}}`)

	bag := ParseMetrics(map[string]string{
		"metrics.json":        metricsPath,
		"grader_output.json":  graderPath,
	}, zap.NewNop().Sugar())

	if v, _ := bag.Bool("tests_passed"); v != true {
		t.Error("expected tests_passed=true from metrics.json")
	}
	if v, _ := bag.Int64("coverage_delta"); v != 0 {
		t.Errorf("expected grader_output.json's coverage_delta=0 to win, got %d", v)
	}
	if v, _ := bag.Int64("tests_added_count"); v != 2 {
		t.Errorf("expected tests_added_count=2 from grader output, got %d", v)
	}
}

func TestParseMetricsMissingFiles(t *testing.T) {
	bag := ParseMetrics(map[string]string{}, zap.NewNop().Sugar())
	if len(bag) != 0 {
		t.Errorf("expected empty bag, got %v", bag)
	}
}

func TestParseMetricsMalformedJSONSkipped(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics.json")
	writeJSON(t, metricsPath, `not json`)

	bag := ParseMetrics(map[string]string{"metrics.json": metricsPath}, zap.NewNop().Sugar())
	if len(bag) != 0 {
		t.Errorf("expected empty bag for malformed metrics.json, got %v", bag)
	}
}

func writeJSON(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
