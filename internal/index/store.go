// Package index stores text chunks with vector embeddings and serves
// feedback-weighted similarity search over PostgreSQL + pgvector.
//
// The backing table is created lazily on the first write because the
// embedding dimension is only known once the first vector arrives.
// Until then the index is uninitialized: searches return no results and
// score updates are no-ops, never errors.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
)

const (
	// searchTimeout bounds vector search queries so a slow database or
	// embedder cannot block callers indefinitely.
	searchTimeout = 10 * time.Second

	// candidateFactor controls how many raw-similarity candidates are
	// fetched per requested result. Score modifiers reorder candidates
	// after the vector search, so the database must return more rows
	// than topK for down-weighted chunks to fall out of the window.
	candidateFactor = 4
)

// Querier defines the database operations the Store needs. Interfaces
// are defined by the consumer, so tests can substitute a mock without a
// running database.
type Querier interface {
	// EnsureSchema creates the chunks table for the given embedding
	// dimension if it does not exist yet.
	EnsureSchema(ctx context.Context, dimensions int) error

	// SchemaExists reports whether the chunks table has been created.
	SchemaExists(ctx context.Context) (bool, error)

	// UpsertChunk inserts a chunk or replaces it when the ID exists.
	UpsertChunk(ctx context.Context, row Row) error

	// SearchNearest returns up to limit chunks ordered by raw cosine
	// similarity to the embedding, most similar first.
	SearchNearest(ctx context.Context, embedding []float32, limit int) ([]Candidate, error)

	// SetModifier replaces one chunk's score modifier.
	SetModifier(ctx context.Context, chunkID string, modifier float64) (int64, error)

	// AddToModifier adds delta to one chunk's score modifier.
	AddToModifier(ctx context.Context, chunkID string, delta float64) (int64, error)

	// SetModifierByArticle replaces the score modifier of every chunk
	// belonging to the article.
	SetModifierByArticle(ctx context.Context, articleID string, modifier float64) (int64, error)

	// DeleteByArticle removes every chunk belonging to the article.
	DeleteByArticle(ctx context.Context, articleID string) (int64, error)

	// CountChunks returns the number of indexed chunks.
	CountChunks(ctx context.Context) (int64, error)
}

// Row is a chunk as persisted, with its embedding.
type Row struct {
	ID            string
	Text          string
	Embedding     []float32
	Source        string
	ArticleID     string
	ArticleTitle  string
	IngestedAt    time.Time
	ScoreModifier float64
}

// Candidate is a search hit before feedback weighting.
type Candidate struct {
	ID            string
	Text          string
	Source        string
	ArticleID     string
	ArticleTitle  string
	IngestedAt    time.Time
	ScoreModifier float64
	Similarity    float64
}

// Store manages the vector index. It is safe for concurrent use.
type Store struct {
	querier  Querier
	embedder ai.Embedder
	logger   *slog.Logger

	mu    sync.Mutex
	ready bool
}

// New creates a Store. The backing table is not touched until the first
// write; pass a nil logger to use slog.Default.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		querier:  querier,
		embedder: embedder,
		logger:   logger,
	}
}

// AddChunks embeds and persists the given chunks. The first successful
// call creates the backing table sized to the embedding dimension.
// Chunks are upserted by ID, so re-adding the same chunk replaces it
// instead of duplicating it.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if c.ID == "" || c.Text == "" {
			return fmt.Errorf("%w: chunk must have an ID and text", ErrInvalidChunk)
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := s.embedAll(ctx, texts)
	if err != nil {
		return err
	}

	if err := s.ensureReady(ctx, len(embeddings[0])); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}

	for i, c := range chunks {
		modifier := c.Metadata.ScoreModifier
		if modifier == 0 {
			modifier = 1.0
		}
		row := Row{
			ID:            c.ID,
			Text:          c.Text,
			Embedding:     embeddings[i],
			Source:        c.Metadata.Source,
			ArticleID:     c.Metadata.ArticleID,
			ArticleTitle:  c.Metadata.ArticleTitle,
			IngestedAt:    c.Metadata.IngestedAt,
			ScoreModifier: modifier,
		}
		if err := s.querier.UpsertChunk(ctx, row); err != nil {
			return fmt.Errorf("failed to upsert chunk %q: %w", c.ID, err)
		}
	}

	s.logger.Debug("added chunks", "count", len(chunks))
	return nil
}

// Search embeds the query and returns up to topK chunks ordered by
// feedback-weighted score, highest first. Searching an uninitialized
// index returns an empty slice, not an error.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}

	ok, err := s.initialized(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Debug("search on uninitialized index", "query_length", len(query))
		return []Result{}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.querier.SearchNearest(queryCtx, embedding, topK*candidateFactor)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{
			Chunk: Chunk{
				ID:   c.ID,
				Text: c.Text,
				Metadata: Metadata{
					Source:        c.Source,
					ArticleID:     c.ArticleID,
					ArticleTitle:  c.ArticleTitle,
					IngestedAt:    c.IngestedAt,
					ScoreModifier: c.ScoreModifier,
				},
			},
			Similarity: c.Similarity,
			Score:      c.Similarity * c.ScoreModifier,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// UpdateScore replaces one chunk's score modifier. A no-op on an
// uninitialized index or an unknown chunk ID.
func (s *Store) UpdateScore(ctx context.Context, chunkID string, modifier float64) error {
	ok, err := s.initialized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	n, err := s.querier.SetModifier(ctx, chunkID, modifier)
	if err != nil {
		return fmt.Errorf("failed to update score for chunk %q: %w", chunkID, err)
	}
	if n == 0 {
		s.logger.Debug("score update matched no chunk", "chunk_id", chunkID)
	}
	return nil
}

// AdjustScore adds delta to one chunk's score modifier. The result is
// not clamped. A no-op on an uninitialized index or an unknown chunk ID.
func (s *Store) AdjustScore(ctx context.Context, chunkID string, delta float64) error {
	ok, err := s.initialized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	n, err := s.querier.AddToModifier(ctx, chunkID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust score for chunk %q: %w", chunkID, err)
	}
	if n == 0 {
		s.logger.Debug("score adjustment matched no chunk", "chunk_id", chunkID)
	}
	return nil
}

// UpdateScoresByArticleID replaces the score modifier of every chunk
// belonging to the article and returns how many chunks changed.
func (s *Store) UpdateScoresByArticleID(ctx context.Context, articleID string, modifier float64) (int64, error) {
	ok, err := s.initialized(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	n, err := s.querier.SetModifierByArticle(ctx, articleID, modifier)
	if err != nil {
		return 0, fmt.Errorf("failed to update scores for article %q: %w", articleID, err)
	}
	s.logger.Debug("updated article chunk scores", "article_id", articleID, "modifier", modifier, "chunks", n)
	return n, nil
}

// DeleteByArticleID removes every chunk belonging to the article and
// returns how many were deleted.
func (s *Store) DeleteByArticleID(ctx context.Context, articleID string) (int64, error) {
	ok, err := s.initialized(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	n, err := s.querier.DeleteByArticle(ctx, articleID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for article %q: %w", articleID, err)
	}
	s.logger.Debug("deleted article chunks", "article_id", articleID, "chunks", n)
	return n, nil
}

// Count returns the number of indexed chunks, zero for an uninitialized
// index.
func (s *Store) Count(ctx context.Context) (int64, error) {
	ok, err := s.initialized(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	n, err := s.querier.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return n, nil
}

// ensureReady creates the backing table if needed and marks the index
// initialized.
func (s *Store) ensureReady(ctx context.Context, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.querier.EnsureSchema(ctx, dimensions); err != nil {
		return err
	}
	s.ready = true
	s.logger.Info("vector index initialized", "dimensions", dimensions)
	return nil
}

// initialized reports whether the backing table exists. The positive
// answer is cached; tables are never dropped at runtime.
func (s *Store) initialized(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return true, nil
	}
	s.mu.Unlock()

	ok, err := s.querier.SchemaExists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check index state: %w", err)
	}
	if ok {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
	}
	return ok, nil
}

// embed generates an embedding for a single text.
func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.embedAll(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// embedAll generates embeddings for all texts in one provider call.
func (s *Store) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	docs := make([]*ai.Document, len(texts))
	for i, t := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(t)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", ErrEmbedding, i)
		}
		out[i] = e.Embedding
	}
	return out, nil
}
