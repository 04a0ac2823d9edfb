package artifact

import (
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/proofrunner/core/internal/metrics"
)

// ParseMetrics reads metrics.json (if present) and shallow-merges
// grader_output.json's "metrics" subtree on top, so a grader that writes
// both gets the last word on any overlapping key. Unreadable or malformed
// files are logged and skipped rather than aborting the run; artifacts
// absent from the map are skipped silently.
func ParseMetrics(artifacts map[string]string, log *zap.SugaredLogger) metrics.Bag {
	base := metrics.Bag{}

	if path, ok := artifacts["metrics.json"]; ok {
		if data, err := os.ReadFile(path); err != nil {
			log.Errorw("failed to read metrics.json", "error", err)
		} else if parsed, err := metrics.ParseJSON(data); err != nil {
			log.Errorw("failed to parse metrics.json", "error", err)
		} else {
			base = parsed
		}
	}

	if path, ok := artifacts["grader_output.json"]; ok {
		if data, err := os.ReadFile(path); err != nil {
			log.Errorw("failed to read grader_output.json", "error", err)
		} else {
			var graderOutput struct {
				Metrics map[string]interface{} `json:"metrics"`
			}
			if err := json.Unmarshal(data, &graderOutput); err != nil {
				log.Errorw("failed to parse grader_output.json", "error", err)
			} else if graderOutput.Metrics != nil {
				base = metrics.Merge(base, metrics.FromMap(graderOutput.Metrics))
			}
		}
	}

	return base
}
