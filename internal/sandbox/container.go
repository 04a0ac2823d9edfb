package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout is returned when the container does not finish within the
// configured wall-clock timeout.
var ErrTimeout = errors.New("sandbox: execution timed out")

// ErrImageNotFound is returned when the sandbox image cannot be located
// before a container is launched.
var ErrImageNotFound = errors.New("sandbox: image not found")

// ContainerConfig describes how the grader container is launched.
type ContainerConfig struct {
	DockerPath      string
	Image           string
	Timeout         time.Duration
	MemoryLimit     string
	CPULimit        float64
	NetworkDisabled bool
	PidsLimit       int
}

// containerRun holds the result of one `docker run` invocation.
type containerRun struct {
	exitCode int
	stdout   []byte
	stderr   []byte
}

// checkImagePresent mirrors the original's docker.errors.ImageNotFound
// short-circuit: it inspects the image before launching the workload
// container so a missing image produces a structured error instead of a
// generic non-zero exit.
func checkImagePresent(ctx context.Context, cfg ContainerConfig) error {
	cmd := exec.CommandContext(ctx, cfg.DockerPath, "image", "inspect", cfg.Image)
	if err := cmd.Run(); err != nil {
		return ErrImageNotFound
	}
	return nil
}

// runContainer launches the grader container with workspace and simulation
// bind mounts and waits for it to finish or for the timeout to expire.
//
// The flag set here — no swap, --cpus, --pids-limit, --network none,
// --cap-drop ALL, --security-opt no-new-privileges — is the standard
// container-isolation primitive set, not hardening beyond it. No --user
// flag is passed, so the grader runs as the image's default user;
// --read-only is intentionally omitted because the grader writes into
// /workspace/output.
func runContainer(ctx context.Context, cfg ContainerConfig, name string, w *Workspace, simPath string, runID string) (containerRun, error) {
	args := buildDockerArgs(cfg, name, w, simPath, runID)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, cfg.DockerPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		killContainer(ctx, cfg, name)
		removeContainer(ctx, cfg, name)
		return containerRun{}, ErrTimeout
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			removeContainer(ctx, cfg, name)
			return containerRun{}, fmt.Errorf("run container: %w", err)
		}
	}

	run := containerRun{exitCode: exitCode, stdout: stdout.Bytes(), stderr: stderr.Bytes()}
	removeContainer(ctx, cfg, name)
	return run, nil
}

func killContainer(ctx context.Context, cfg ContainerConfig, name string) {
	killCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(killCtx, cfg.DockerPath, "kill", name).Run()
}

// removeContainer deletes the stopped container. The container is launched
// without --rm so logs and artifacts can be captured from a definitely-
// stopped container before it disappears; this is the explicit removal step
// that replaces auto-reap, run on every exit path (normal, non-zero, and
// killed-on-timeout).
func removeContainer(ctx context.Context, cfg ContainerConfig, name string) {
	rmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = exec.CommandContext(rmCtx, cfg.DockerPath, "rm", "-f", name).Run()
}

func buildDockerArgs(cfg ContainerConfig, name string, w *Workspace, simPath string, runID string) []string {
	args := []string{
		"run",
		"--name", name,
		"-v", fmt.Sprintf("%s:/workspace:rw", w.Root()),
		"-v", fmt.Sprintf("%s:/sim:ro", simPath),
		"-w", "/workspace",
		"--memory", cfg.MemoryLimit,
		"--memory-swap", cfg.MemoryLimit,
		"--cpus", fmt.Sprintf("%.2f", cfg.CPULimit),
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges",
	}

	if cfg.PidsLimit > 0 {
		args = append(args, "--pids-limit", fmt.Sprintf("%d", cfg.PidsLimit))
	}
	if cfg.NetworkDisabled {
		args = append(args, "--network", "none")
	}

	args = append(args, cfg.Image, "python", "-m", "grader", "--run-id", runID)
	return args
}
