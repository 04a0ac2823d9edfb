package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the isolated per-run directory mounted into the grader
// container. Its layout mirrors the simulation contract: a copy of the
// simulation template under sim/, the candidate's submission under
// submission/, and grader-written artifacts under output/.
type Workspace struct {
	root string
}

// Submission returns the directory the candidate's code and writeup live in.
func (w *Workspace) Submission() string { return filepath.Join(w.root, "submission") }

// Sim returns the directory holding this run's copy of the simulation
// template. The container's read-only /sim mount is taken from the
// simulation repository itself, not from this copy.
func (w *Workspace) Sim() string { return filepath.Join(w.root, "sim") }

// Output returns the directory the grader writes artifacts into.
func (w *Workspace) Output() string { return filepath.Join(w.root, "output") }

// Root returns the workspace's root directory.
func (w *Workspace) Root() string { return w.root }

// newWorkspace creates the on-disk layout for a run: a fresh temp directory,
// a copy of the simulation template, the candidate's code and writeup, and
// an empty output directory.
func newWorkspace(simsPath, simulationID, candidateCode, candidateWriteup, runID string) (*Workspace, error) {
	root, err := os.MkdirTemp("", fmt.Sprintf("proofrunner-%s-", runID))
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	w := &Workspace{root: root}

	simPath := filepath.Join(simsPath, simulationID)
	if _, err := os.Stat(simPath); err == nil {
		if err := copyTree(simPath, w.Sim()); err != nil {
			os.RemoveAll(root)
			return nil, fmt.Errorf("copy simulation template: %w", err)
		}
	}

	if err := os.MkdirAll(w.Submission(), 0o755); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("create submission dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Submission(), "code.py"), []byte(candidateCode), 0o644); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("write candidate code: %w", err)
	}
	if err := os.WriteFile(filepath.Join(w.Submission(), "writeup.md"), []byte(candidateWriteup), 0o644); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("write candidate writeup: %w", err)
	}

	if err := os.MkdirAll(w.Output(), 0o755); err != nil {
		os.RemoveAll(root)
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return w, nil
}

// Close removes the workspace from disk. It is safe to call on a nil
// workspace or to call more than once.
func (w *Workspace) Close() {
	if w == nil || w.root == "" {
		return
	}
	os.RemoveAll(w.root)
}

// copyTree recursively copies src into dst, creating dst if needed.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}
