// Package answer turns retrieved chunks into a grounded answer via an
// LLM. The model is instructed to answer only from the supplied
// context and to say so when the context does not cover the question.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docdex/docdex/internal/search"
)

// promptTemplate frames retrieved chunks as the model's only source.
const promptTemplate = `You are a helpful AI assistant. Answer ONLY based on provided documents.

RULES:
1. If info not in documents: say 'I could not find this information in the available documents'
2. Always cite sources: [Source: {filename}, chunk {chunk_id}]
3. Answer in the question's language
4. Be concise but complete
5. If unclear, ask for clarification

CONTEXT:
%s

QUESTION: %s

ANSWER:`

// NoDocumentsAnswer is returned when retrieval finds nothing.
const NoDocumentsAnswer = "No relevant documents found. Please upload documents first."

// maxSources is how many retrieved chunks are reported back as sources.
const maxSources = 3

// sourcePreviewLen is the source content preview length in characters.
const sourcePreviewLen = 200

// Generator produces a completion for a prompt. A non-nil temperature
// overrides the generator's default for that request.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature *float64) (string, error)
}

// Searcher retrieves chunks for a question.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.Options) []*search.Result
}

// Source is a retrieved chunk cited in the answer.
type Source struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	// Content is a preview truncated to 200 characters.
	Content string `json:"content"`
}

// Answer is the result of one question.
type Answer struct {
	Answer    string        `json:"answer"`
	Sources   []Source      `json:"sources"`
	QueryTime time.Duration `json:"query_time"`
}

// Options tune one question.
type Options struct {
	// Mode, Limit, and Alpha are passed through to retrieval.
	Mode  search.Mode
	Limit int
	Alpha *float64
	// Temperature overrides the generator default when non-nil.
	Temperature *float64
}

// Engine answers questions over a searchable collection.
type Engine struct {
	generator Generator
	logger    *slog.Logger
}

// NewEngine creates an answer engine.
func NewEngine(generator Generator, logger *slog.Logger) (*Engine, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{generator: generator, logger: logger}, nil
}

// Ask retrieves chunks for the question and generates a grounded
// answer. An empty retrieval short-circuits without calling the model.
func (e *Engine) Ask(ctx context.Context, searcher Searcher, question string, opts Options) (*Answer, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return &Answer{
			Answer:    NoDocumentsAnswer,
			Sources:   []Source{},
			QueryTime: time.Since(start),
		}, nil
	}

	results := searcher.Search(ctx, question, search.Options{
		Mode:  opts.Mode,
		Limit: opts.Limit,
		Alpha: opts.Alpha,
	})
	if len(results) == 0 {
		e.logger.Info("no chunks retrieved for question")
		return &Answer{
			Answer:    NoDocumentsAnswer,
			Sources:   []Source{},
			QueryTime: time.Since(start),
		}, nil
	}

	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Content
	}
	prompt := fmt.Sprintf(promptTemplate, strings.Join(contents, "\n\n"), question)

	text, err := e.generator.Generate(ctx, prompt, opts.Temperature)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Answer:    strings.TrimSpace(text),
		Sources:   buildSources(results),
		QueryTime: time.Since(start),
	}, nil
}

// buildSources reports the top retrieved chunks with truncated previews.
func buildSources(results []*search.Result) []Source {
	n := len(results)
	if n > maxSources {
		n = maxSources
	}

	sources := make([]Source, n)
	for i := 0; i < n; i++ {
		r := results[i]
		content := r.Content
		if runes := []rune(content); len(runes) > sourcePreviewLen {
			content = string(runes[:sourcePreviewLen]) + "..."
		}
		sources[i] = Source{
			Filename:   r.Filename,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Score,
			Content:    content,
		}
	}
	return sources
}
