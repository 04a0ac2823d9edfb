// Package sandbox implements the isolated per-run execution of a
// candidate's submission against a simulation's grader, inside a
// resource-limited, network-disabled Docker container.
package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const logTruncateLimit = 5000

// artifactFiles is the closed set of filenames the grader is allowed to
// produce under output/; anything else written there is ignored.
var artifactFiles = []string{
	"metrics.json",
	"testlog.txt",
	"coverage.xml",
	"diff.patch",
	"grader_output.json",
}

// Result is the outcome of one sandboxed execution.
type Result struct {
	Success   bool
	ExitCode  int
	Stdout    string
	Stderr    string
	Duration  time.Duration
	Artifacts map[string]string // artifact name -> local path
	Err       error
}

// Manager executes simulation jobs inside sandboxes.
type Manager struct {
	simsPath string
	config   ContainerConfig
	log      *zap.SugaredLogger
}

// NewManager constructs a sandbox Manager.
func NewManager(simsPath string, cfg ContainerConfig, log *zap.SugaredLogger) *Manager {
	return &Manager{simsPath: simsPath, config: cfg, log: log}
}

// Execute runs a candidate's submission against a simulation's grader in an
// isolated container and returns the outcome. Execute never panics and
// never returns an error directly — all failure modes are reported through
// Result.Success/Result.Err so the caller (the job runner) can always
// proceed to notify the control plane.
func (m *Manager) Execute(ctx context.Context, simulationID, candidateCode, candidateWriteup, runID string) Result {
	start := time.Now()

	if err := checkImagePresent(ctx, m.config); err != nil {
		return Result{
			Success:   false,
			ExitCode:  -1,
			Artifacts: map[string]string{},
			Duration:  time.Since(start),
			Err:       fmt.Errorf("%w: %s", err, m.config.Image),
		}
	}

	w, err := newWorkspace(m.simsPath, simulationID, candidateCode, candidateWriteup, runID)
	if err != nil {
		return Result{
			Success:   false,
			ExitCode:  -1,
			Artifacts: map[string]string{},
			Duration:  time.Since(start),
			Err:       err,
		}
	}
	defer w.Close()

	m.log.Infow("starting sandbox execution",
		"run_id", runID, "simulation_id", simulationID, "workspace", w.Root())

	simPath := filepath.Join(m.simsPath, simulationID)
	run, err := runContainer(ctx, m.config, containerName(runID), w, simPath, runID)
	if err != nil {
		if err == ErrTimeout {
			m.log.Warnw("container timed out", "run_id", runID)
			return Result{
				Success:   false,
				ExitCode:  -1,
				Artifacts: map[string]string{},
				Duration:  time.Since(start),
				Err:       ErrTimeout,
			}
		}
		m.log.Errorw("sandbox execution failed", "run_id", runID, "error", err)
		return Result{
			Success:   false,
			ExitCode:  -1,
			Artifacts: map[string]string{},
			Duration:  time.Since(start),
			Err:       err,
		}
	}

	artifacts := collectArtifacts(w.Output())
	duration := time.Since(start)
	success := run.exitCode == 0

	m.log.Infow("sandbox execution complete",
		"run_id", runID, "success", success, "exit_code", run.exitCode,
		"duration_seconds", duration.Seconds(), "artifact_count", len(artifacts))

	return Result{
		Success:   success,
		ExitCode:  run.exitCode,
		Stdout:    truncate(string(run.stdout), logTruncateLimit),
		Stderr:    truncate(string(run.stderr), logTruncateLimit),
		Duration:  duration,
		Artifacts: artifacts,
	}
}

// BuildImage builds the sandbox Docker image from the Dockerfile shipped
// alongside the grader sources. This is a local-dev/CI convenience, not on
// the job-processing hot path.
func (m *Manager) BuildImage(ctx context.Context, dockerfileDir string) error {
	args := []string{"build", "--rm", "-t", m.config.Image, dockerfileDir}
	cmd := exec.CommandContext(ctx, m.config.DockerPath, args...)
	return cmd.Run()
}

func containerName(runID string) string {
	return "proofrunner-run-" + runID
}

func collectArtifacts(outputDir string) map[string]string {
	artifacts := make(map[string]string)
	if _, err := os.Stat(outputDir); err != nil {
		return artifacts
	}
	for _, name := range artifactFiles {
		path := filepath.Join(outputDir, name)
		if _, err := os.Stat(path); err == nil {
			artifacts[name] = path
		}
	}
	return artifacts
}

// truncate keeps at most limit characters (runes) of s.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
