package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newListCmd creates the list command.
func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents in the user's collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text",
		"Output format: text or json")

	return cmd
}

func runList(cmd *cobra.Command, format string) error {
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

	docs, err := coll.ListDocuments(ctx)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents. Run 'docdex ingest <file>' to add some.")
		return nil
	}

	fmt.Fprintf(out, "%d document(s):\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(out, "  %s  (%d chunks, %s, %s)\n",
			d.Filename, d.ChunkCount, formatSize(d.FileSize),
			d.UploadDate.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// formatSize renders a byte count for humans.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
