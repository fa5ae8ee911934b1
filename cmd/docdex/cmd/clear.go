package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newClearCmd creates the clear command.
func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all documents from the user's collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false,
		"Skip the confirmation prompt")

	return cmd
}

func runClear(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	coll, err := rt.collection(ctx)
	if err != nil {
		return err
	}

	stats, err := coll.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.DocumentCount == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Collection is already empty.")
		return nil
	}

	if !force {
		fmt.Fprintf(cmd.OutOrStdout(),
			"This removes %d document(s) (%d chunks) for user %q. Continue? [y/N] ",
			stats.DocumentCount, stats.ChunkCount, flagUser)
		reader := bufio.NewReader(cmd.InOrStdin())
		line, _ := reader.ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := coll.Clear(ctx); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ cleared %d document(s)\n", stats.DocumentCount)
	return nil
}
