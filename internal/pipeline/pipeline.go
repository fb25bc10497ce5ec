// Package pipeline runs the retrieval-augmented generation flow: a
// query is answered by retrieving the best-scored chunks from the
// vector index and prompting the model with them as context.
//
// The flow is modeled as a small state machine. Each run produces a
// State that records the stage reached, the documents gathered, and
// the final response, so callers and tests can inspect exactly what
// the pipeline did.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kurabase/kura/internal/index"
)

// DefaultTopK is how many chunks are retrieved per query unless
// configured otherwise.
const DefaultTopK = 4

// Sentinel errors for pipeline stages.
var (
	// ErrRetrieval indicates the vector search failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration indicates the model call failed.
	ErrGeneration = errors.New("generation failed")

	// ErrEmptyQuery indicates a blank query.
	ErrEmptyQuery = errors.New("query is empty")
)

// promptTemplate is the instruction wrapped around the retrieved
// context and the user's question.
const promptTemplate = `You are a helpful assistant. Use the following context to answer the question. If you don't know the answer, just say that you don't know.

Context:
%s

Question:
%s`

// Stage identifies how far a pipeline run has progressed.
type Stage string

const (
	StageStart      Stage = "start"
	StageRetrieving Stage = "retrieving"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
)

// State carries a single run through the pipeline. Documents only ever
// accumulate; no stage replaces what an earlier stage gathered.
type State struct {
	Stage     Stage          `json:"stage"`
	Query     string         `json:"query"`
	Context   string         `json:"context,omitempty"`
	Documents []index.Result `json:"documents"`
	Response  string         `json:"response"`
}

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]index.Result, error)
}

// Generator produces a model response for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Pipeline wires a retriever and a generator into the RAG flow.
// It is stateless between runs and safe for concurrent use.
type Pipeline struct {
	retriever Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// New creates a Pipeline. A non-positive topK falls back to
// DefaultTopK; pass a nil logger to use slog.Default.
func New(retriever Retriever, generator Generator, topK int, logger *slog.Logger) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Run answers query through retrieval and generation. contextHint is
// optional caller-supplied context included ahead of the retrieved
// chunks in the prompt.
//
// The returned State always reflects how far the run got, including on
// error. An empty index is not an error: generation proceeds with
// whatever context was found, possibly none.
func (p *Pipeline) Run(ctx context.Context, query, contextHint string) (*State, error) {
	state := &State{
		Stage:     StageStart,
		Query:     query,
		Context:   contextHint,
		Documents: []index.Result{},
	}
	if strings.TrimSpace(query) == "" {
		return state, ErrEmptyQuery
	}

	state.Stage = StageRetrieving
	p.logger.Info("retrieving documents", "query", query, "top_k", p.topK)
	docs, err := p.retriever.Search(ctx, query, p.topK)
	if err != nil {
		return state, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	state.Documents = append(state.Documents, docs...)
	p.logger.Info("retrieved documents", "count", len(docs))

	state.Stage = StageGenerating
	p.logger.Info("generating response")
	prompt := buildPrompt(state.Context, state.Documents, query)
	response, err := p.generator.Generate(ctx, prompt)
	if err != nil {
		return state, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	state.Response = response

	state.Stage = StageDone
	return state, nil
}

// buildPrompt assembles the final prompt from the caller hint, the
// retrieved chunks, and the question.
func buildPrompt(hint string, docs []index.Result, query string) string {
	blocks := make([]string, 0, len(docs)+1)
	if hint != "" {
		blocks = append(blocks, hint)
	}
	for _, d := range docs {
		blocks = append(blocks, d.Text)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(blocks, "\n\n"), query)
}
