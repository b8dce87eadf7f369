// Package main provides the annatto CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/korpling/annatto/pkg/config"
	"github.com/korpling/annatto/pkg/status"
	"github.com/korpling/annatto/pkg/workflow"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(config.LoadFromEnv(nil).Logging.Level)

	rootCmd := &cobra.Command{
		Use:   "annatto",
		Short: "Annatto - conversion pipeline for linguistic annotation corpora",
		Long: `Annatto converts between formats of linguistic annotation corpora.

A declarative workflow file describes an ordered pipeline of import,
graph-operation and export steps. All source formats are read into a single
annotation graph, optionally transformed, and written out to one or more
target formats.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("annatto v%s (%s)\n", version, commit)
		},
	})

	runCmd := &cobra.Command{
		Use:   "run [workflow file]",
		Short: "Run a conversion workflow",
		Args:  cobra.ExactArgs(1),
		RunE:  runWorkflow,
	}
	rootCmd.AddCommand(runCmd)

	validateCmd := &cobra.Command{
		Use:   "validate [workflow file]",
		Short: "Parse and type-check a workflow file without executing it",
		Args:  cobra.ExactArgs(1),
		RunE:  validateWorkflow,
	}
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	workflowFile := args[0]

	ch := make(chan status.Message, 128)
	done := make(chan error, 1)
	go func() {
		defer close(ch)
		done <- workflow.ExecuteWorkflowFile(context.Background(), workflowFile, ch)
	}()

	bar := newProgressBar(os.Stderr)
	var failures []error
	for msg := range ch {
		switch m := msg.(type) {
		case status.StepsCreated:
			bar.setSteps(m.Steps)
		case status.Info:
			bar.println(m.Message)
		case status.Warning:
			bar.println("Warning: " + m.Message)
		case status.Progress:
			bar.progress(m)
		case status.StepDone:
			bar.stepDone(m.ID)
		case status.Failed:
			failures = append(failures, m.Err)
		}
	}
	err := <-done

	if err != nil {
		bar.finish("Conversion failed")
		for _, failure := range failures {
			fmt.Fprintf(os.Stderr, "Error: %v\n", failure)
		}
		return err
	}
	bar.finish("Conversion successful")
	return nil
}

func validateWorkflow(cmd *cobra.Command, args []string) error {
	w, err := workflow.ValidateWorkflowFile(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Workflow is valid: %d import, %d graph operation and %d export step(s)\n",
		len(w.ImportSteps), len(w.GraphOpSteps), len(w.ExportSteps))
	return nil
}
