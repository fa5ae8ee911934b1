package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/search"
)

// searchOptions holds the search command flags.
type searchOptions struct {
	mode   string
	limit  int
	alpha  float64
	format string
}

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the user's collection",
		Long: `Search retrieves the most relevant chunks for a query.

Modes:
  hybrid    fuse semantic similarity and BM25 keyword scores (default)
  semantic  rank purely by embedding similarity
  keyword   rank purely by BM25; requires indexed documents`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid",
		"Search mode: hybrid, semantic, or keyword")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0,
		"Maximum number of results (0 uses the configured default)")
	cmd.Flags().Float64VarP(&opts.alpha, "alpha", "a", -1,
		"Semantic weight for hybrid fusion, 0.0-1.0 (negative uses the configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text",
		"Output format: text or json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts *searchOptions) error {
	mode, err := parseMode(opts.mode)
	if err != nil {
		return err
	}
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", opts.format)
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

	searchOpts := search.Options{Mode: mode, Limit: opts.limit}
	if opts.alpha >= 0 {
		if opts.alpha > 1 {
			return fmt.Errorf("alpha must be between 0 and 1, got %g", opts.alpha)
		}
		searchOpts.Alpha = &opts.alpha
	}

	results := coll.Search(ctx, query, searchOpts)

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	printResults(cmd, query, results)
	return nil
}

// printResults renders results for humans.
func printResults(cmd *cobra.Command, query string, results []*search.Result) {
	out := cmd.OutOrStdout()

	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", query)
		return
	}

	fmt.Fprintf(out, "%d result(s) for %q:\n\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (chunk %d, score %.4f)\n", i+1, r.Filename, r.ChunkIndex, r.Score)
		if r.Page > 0 {
			fmt.Fprintf(out, "   page %d\n", r.Page)
		}
		if len(r.MatchedTerms) > 0 {
			fmt.Fprintf(out, "   matched: %s\n", strings.Join(r.MatchedTerms, ", "))
		}
		fmt.Fprintf(out, "   %s\n\n", preview(r.Content, 160))
	}
}

// preview returns content truncated to max characters on a single line.
func preview(content string, max int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) > max {
		content = content[:max] + "..."
	}
	return content
}
