package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for the user's collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text",
		"Output format: text or json")

	return cmd
}

func runStats(cmd *cobra.Command, format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", format)
	}

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

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Collection:      %s\n", stats.Name)
	fmt.Fprintf(out, "Documents:       %d\n", stats.DocumentCount)
	fmt.Fprintf(out, "Chunks:          %d\n", stats.ChunkCount)
	fmt.Fprintf(out, "Embedding model: %s\n", stats.EmbeddingModel)
	fmt.Fprintf(out, "Dimensions:      %d\n", stats.Dimensions)
	return nil
}
