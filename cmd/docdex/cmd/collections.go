package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCollectionsCmd creates the collections command.
func newCollectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List all collections in the data directory",
		Args:  cobra.NoArgs,
		RunE:  runCollections,
	}
}

func runCollections(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	names, err := rt.manager.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No collections yet.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}
