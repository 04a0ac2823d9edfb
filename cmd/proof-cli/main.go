// Command proof-cli is an operator tool for exercising the rule catalog
// against a local evidence bag and for building the sandbox image, without
// needing a running queue or control plane.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "proof-cli",
		Short: "proofrunner operator CLI",
		Long:  `Command-line tools for evaluating claims and managing the sandbox image locally.`,
	}

	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newImageCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
