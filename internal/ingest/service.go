// Package ingest turns raw text into indexed, embedded chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kurabase/kura/internal/chunker"
	"github.com/kurabase/kura/internal/index"
)

// ErrInvalidInput indicates empty or whitespace-only content or a
// missing source label.
var ErrInvalidInput = errors.New("invalid ingest input")

// Indexer is the part of the vector index the Service needs.
type Indexer interface {
	AddChunks(ctx context.Context, chunks []index.Chunk) error
}

// Service splits documents into chunks and hands them to the vector
// index for embedding and storage.
type Service struct {
	splitter *chunker.Splitter
	indexer  Indexer
	logger   *slog.Logger
}

// New creates a Service. Pass a nil logger to use slog.Default.
func New(splitter *chunker.Splitter, indexer Indexer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		splitter: splitter,
		indexer:  indexer,
		logger:   logger,
	}
}

// Ingest splits content into chunks, embeds them, and adds them to the
// index. Source labels where the text came from and is required, since
// chunks ingested outside an article have no other provenance.
func (s *Service) Ingest(ctx context.Context, content, source string) ([]index.Chunk, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: source is empty", ErrInvalidInput)
	}
	return s.IngestArticle(ctx, content, source, "", "", time.Now().UTC())
}

// IngestArticle ingests content on behalf of an article, stamping every
// chunk with the article's identity so feedback can find them later.
// New chunks start at the neutral score modifier 1.0.
func (s *Service) IngestArticle(ctx context.Context, content, source, articleID, title string, ingestedAt time.Time) ([]index.Chunk, error) {
	pieces, err := s.splitter.Split(content)
	if err != nil {
		if errors.Is(err, chunker.ErrEmptyInput) {
			return nil, fmt.Errorf("%w: content is empty", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to split content: %w", err)
	}

	chunks := make([]index.Chunk, len(pieces))
	for i, text := range pieces {
		chunks[i] = index.Chunk{
			ID:   uuid.NewString(),
			Text: text,
			Metadata: index.Metadata{
				Source:        source,
				ArticleID:     articleID,
				ArticleTitle:  title,
				IngestedAt:    ingestedAt,
				ScoreModifier: 1.0,
			},
		}
	}

	if err := s.indexer.AddChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	s.logger.Info("ingested document",
		"source", source, "article_id", articleID, "chunks", len(chunks))
	return chunks, nil
}
