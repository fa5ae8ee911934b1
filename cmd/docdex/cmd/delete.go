package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDeleteCmd creates the delete command.
func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <filename>...",
		Short: "Remove documents from the user's collection",
		Long: `Delete removes every chunk of the named documents from the
collection. The filename is the base name reported by 'docdex list',
not a path.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	var missing int
	for _, filename := range args {
		deleted, err := coll.DeleteDocument(ctx, filename)
		if err != nil {
			return err
		}
		if deleted {
			fmt.Fprintf(out, "✓ deleted %s\n", filename)
		} else {
			missing++
			fmt.Fprintf(out, "– %s not found\n", filename)
		}
	}

	if missing == len(args) {
		return fmt.Errorf("no matching documents")
	}
	return nil
}
