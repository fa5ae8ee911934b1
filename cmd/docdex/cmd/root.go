// Package cmd provides the CLI commands for docdex.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/logging"
	"github.com/docdex/docdex/internal/profiling"
	"github.com/docdex/docdex/pkg/version"
)

// Persistent flags shared by all commands.
var (
	flagUser        string
	flagDataDir     string
	flagDebug       bool
	flagCPUProfile  string
	flagHeapProfile string

	loggingCleanup func()
	stopCPUProfile func()
)

// NewRootCmd creates the root command for the docdex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docdex",
		Short: "Local document QA with hybrid search",
		Long: `Docdex indexes your documents locally and answers questions about
them using hybrid search (BM25 + semantic embeddings) and a local
Ollama model.

Each user keeps an isolated collection; nothing leaves your machine.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docdex version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "default",
		"Collection owner; each user has an isolated collection")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "",
		"Override the data directory")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false,
		"Enable debug logging")
	cmd.PersistentFlags().StringVar(&flagCPUProfile, "cpu-profile", "",
		"Write a CPU profile to the given path")
	_ = cmd.PersistentFlags().MarkHidden("cpu-profile")
	cmd.PersistentFlags().StringVar(&flagHeapProfile, "heap-profile", "",
		"Write a heap profile to the given path on exit")
	_ = cmd.PersistentFlags().MarkHidden("heap-profile")

	cmd.PersistentPreRunE = setupRun
	cmd.PersistentPostRun = func(_ *cobra.Command, _ []string) {
		if stopCPUProfile != nil {
			stopCPUProfile()
			stopCPUProfile = nil
		}
		if flagHeapProfile != "" {
			if err := profiling.WriteHeap(flagHeapProfile); err != nil {
				slog.Warn("failed to write heap profile", slog.String("error", err.Error()))
			}
		}
	}

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newCollectionsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupRun configures logging and optional profiling before any
// command body runs.
func setupRun(_ *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if flagDebug {
		logCfg.Level = "debug"
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if flagCPUProfile != "" {
		stop, err := profiling.StartCPU(flagCPUProfile)
		if err != nil {
			return err
		}
		stopCPUProfile = stop
	}
	return nil
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if loggingCleanup != nil {
		loggingCleanup()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
