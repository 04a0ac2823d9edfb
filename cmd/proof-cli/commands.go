package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/proofrunner/core/internal/metrics"
	"github.com/proofrunner/core/internal/obsmetrics"
	"github.com/proofrunner/core/internal/proof"
	"github.com/proofrunner/core/internal/sandbox"
)

// evidenceFile is the on-disk shape the evaluate command reads: a list of
// claims plus the metrics bag and context manifest to evaluate them
// against.
type evidenceFile struct {
	Claims  []proof.Claim `json:"claims"`
	Metrics map[string]interface{} `json:"metrics"`
	COM     proof.ContextManifest  `json:"com"`
}

func newEvaluateCmd() *cobra.Command {
	var evidencePath string
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate claims against a local evidence JSON file using the default rule catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(evidencePath)
			if err != nil {
				return fmt.Errorf("read evidence file: %w", err)
			}

			var ev evidenceFile
			if err := json.Unmarshal(data, &ev); err != nil {
				return fmt.Errorf("parse evidence file: %w", err)
			}

			bag := metrics.FromMap(ev.Metrics)
			registry := proof.DefaultRegistry()

			registryMetrics := obsmetrics.New()
			promRegistry := prometheus.NewRegistry()
			registryMetrics.MustRegister(promRegistry)
			registry.SetRecorder(registryMetrics)

			results := registry.Evaluate(ev.Claims, bag, nil, nil, ev.COM)

			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if showMetrics {
				if err := registryMetrics.Dump(promRegistry, cmd.ErrOrStderr()); err != nil {
					return fmt.Errorf("dump rule verdict metrics: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&evidencePath, "evidence", "e", "", "path to an evidence JSON file")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print rule verdict counts in Prometheus text format after evaluating")
	cmd.MarkFlagRequired("evidence")

	return cmd
}

func newImageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage the sandbox grader image",
	}
	cmd.AddCommand(newImageBuildCmd())
	return cmd
}

func newImageBuildCmd() *cobra.Command {
	var image, dockerfileDir, dockerPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the sandbox grader image from a local Dockerfile directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := zap.NewNop().Sugar()
			manager := sandbox.NewManager("", sandbox.ContainerConfig{
				DockerPath: dockerPath,
				Image:      image,
			}, log)

			if err := manager.BuildImage(context.Background(), dockerfileDir); err != nil {
				return fmt.Errorf("build sandbox image: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", image)
			return nil
		},
	}

	cmd.Flags().StringVar(&image, "tag", "proofrunner-sandbox:latest", "image tag to build")
	cmd.Flags().StringVar(&dockerfileDir, "dir", ".", "directory containing the sandbox Dockerfile")
	cmd.Flags().StringVar(&dockerPath, "docker-path", "docker", "path to the docker binary")

	return cmd
}
