package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/output"
	"github.com/docdex/docdex/internal/scan"
)

// newIngestCmd creates the ingest command.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file-or-directory>...",
		Short: "Index documents into the user's collection",
		Long: `Ingest extracts text from each file, chunks it, embeds the chunks,
and stores them in the user's collection. Directories are scanned
recursively; a .docdexignore file at the directory root can exclude
paths with glob patterns. Re-ingesting a file replaces its previous
chunks.

Supported formats: .txt, .md, .text`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no ingestable documents found")
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	coll, err := rt.collection(ctx)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	var failed int
	for _, path := range paths {
		result, err := coll.AddDocument(ctx, path)
		if err != nil {
			failed++
			out.Errorf("%s: %v", path, err)
			continue
		}
		verb := "indexed"
		if result.Replaced {
			verb = "re-indexed"
		}
		out.Successf("%s %s (%d chunks)", verb, result.Filename, result.ChunkCount)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to ingest", failed, len(paths))
	}
	return nil
}

// expandPaths resolves arguments into document paths, scanning
// directory arguments recursively.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		scanner, err := scan.New(arg)
		if err != nil {
			return nil, err
		}
		docs, err := scanner.Documents()
		if err != nil {
			return nil, err
		}
		paths = append(paths, docs...)
	}
	return paths, nil
}
