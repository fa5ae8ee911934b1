package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/answer"
)

// askOptions holds the ask command flags.
type askOptions struct {
	mode        string
	limit       int
	alpha       float64
	temperature float64
	format      string
}

// newAskCmd creates the ask command.
func newAskCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the user's documents",
		Long: `Ask retrieves the most relevant chunks for the question and has a
local Ollama model compose an answer grounded in them. The model is
instructed to answer only from the retrieved documents.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "hybrid",
		"Retrieval mode: hybrid, semantic, or keyword")
	cmd.Flags().IntVarP(&opts.limit, "limit", "l", 0,
		"Maximum number of chunks to retrieve (0 uses the configured default)")
	cmd.Flags().Float64VarP(&opts.alpha, "alpha", "a", -1,
		"Semantic weight for hybrid fusion, 0.0-1.0 (negative uses the configured default)")
	cmd.Flags().Float64VarP(&opts.temperature, "temperature", "t", -1,
		"Sampling temperature (negative uses the configured default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text",
		"Output format: text or json")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts *askOptions) error {
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

	engine, err := answer.NewEngine(rt.llmClient(), slog.Default())
	if err != nil {
		return err
	}

	askOpts := answer.Options{Mode: mode, Limit: opts.limit}
	if opts.alpha >= 0 {
		if opts.alpha > 1 {
			return fmt.Errorf("alpha must be between 0 and 1, got %g", opts.alpha)
		}
		askOpts.Alpha = &opts.alpha
	}
	if opts.temperature >= 0 {
		askOpts.Temperature = &opts.temperature
	}

	result, err := engine.Ask(ctx, coll, question, askOpts)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printAnswer(cmd, result)
	return nil
}

// printAnswer renders an answer with its sources.
func printAnswer(cmd *cobra.Command, a *answer.Answer) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, a.Answer)

	if len(a.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, s := range a.Sources {
			fmt.Fprintf(out, "  - %s (chunk %d, score %.4f)\n", s.Filename, s.ChunkIndex, s.Score)
		}
	}

	fmt.Fprintf(out, "\n(%.2fs)\n", a.QueryTime.Seconds())
}
