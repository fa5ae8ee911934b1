package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/preflight"
)

// newDoctorCmd creates the doctor command.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run docdex",
		Long: `Doctor verifies the data directory, free disk space, and the
embedding and answer-generation backends. Warnings mean docdex runs
degraded (static embeddings, no 'ask'); failures must be fixed.`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	checker := preflight.NewChecker(rt.cfg.Storage.DataDir, rt.embedder, rt.llmClient())
	results := checker.RunAll(ctx)

	out := output.New(cmd.OutOrStdout())
	for _, r := range results {
		switch r.Status {
		case preflight.StatusPass:
			out.Successf("%s: %s", r.Name, r.Message)
		case preflight.StatusWarn:
			out.Warnf("%s: %s", r.Name, r.Message)
		default:
			out.Errorf("%s: %s", r.Name, r.Message)
		}
	}

	if preflight.HasCriticalFailures(results) {
		return fmt.Errorf("environment is not ready")
	}
	return nil
}
