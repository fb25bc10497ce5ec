package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kurabase/kura/internal/index"
)

// Repository defines the persistence operations the Service needs.
// Interfaces are defined by the consumer, so tests can substitute an
// in-memory implementation.
type Repository interface {
	Create(ctx context.Context, a *Article) error
	Get(ctx context.Context, id string) (*Article, error)
	List(ctx context.Context, page, limit int) ([]Article, int64, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
	ListFeedback(ctx context.Context, articleID string) ([]Feedback, error)
}

// Ingester splits and indexes article content.
type Ingester interface {
	IngestArticle(ctx context.Context, content, source, articleID, title string, ingestedAt time.Time) ([]index.Chunk, error)
}

// ChunkIndex covers the vector index operations scoped to an article.
type ChunkIndex interface {
	DeleteByArticleID(ctx context.Context, articleID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Stats summarizes the knowledge base.
type Stats struct {
	Articles int64 `json:"articles"`
	Chunks   int64 `json:"chunks"`
}

// Service orchestrates article lifecycle across the repository and the
// vector index.
type Service struct {
	repo     Repository
	ingester Ingester
	chunks   ChunkIndex
	logger   *slog.Logger
}

// NewService creates a Service. Pass a nil logger to use slog.Default.
func NewService(repo Repository, ingester Ingester, chunks ChunkIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		ingester: ingester,
		chunks:   chunks,
		logger:   logger,
	}
}

// CreateArticle stores a new article and indexes its content. The
// article starts at the neutral rating 1.0 with no feedback.
func (s *Service) CreateArticle(ctx context.Context, title, content, source string, tags []string) (*Article, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	a := &Article{
		ID:        uuid.NewString(),
		Title:     title,
		Source:    source,
		Tags:      tags,
		Content:   content,
		Rating:    1.0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	chunks, err := s.ingester.IngestArticle(ctx, content, source, a.ID, title, now)
	if err != nil {
		return nil, fmt.Errorf("failed to index article content: %w", err)
	}
	a.ChunkCount = len(chunks)

	if err := s.repo.Create(ctx, a); err != nil {
		// The chunks are already indexed; drop them so a failed create
		// leaves no orphans behind.
		if _, cleanupErr := s.chunks.DeleteByArticleID(ctx, a.ID); cleanupErr != nil {
			s.logger.Warn("failed to clean up chunks after create failure",
				"article_id", a.ID, "error", cleanupErr)
		}
		return nil, err
	}

	s.logger.Info("created article", "id", a.ID, "title", title, "chunks", a.ChunkCount)
	return a, nil
}

// GetArticle retrieves an article by ID.
func (s *Service) GetArticle(ctx context.Context, id string) (*Article, error) {
	return s.repo.Get(ctx, id)
}

// ListArticles returns one page of articles and the total count. Pages
// are 1-indexed.
func (s *Service) ListArticles(ctx context.Context, page, limit int) ([]Article, int64, error) {
	return s.repo.List(ctx, page, limit)
}

// DeleteArticle removes an article together with all of its indexed
// chunks. Returns ErrNotFound when the article does not exist.
func (s *Service) DeleteArticle(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	n, err := s.chunks.DeleteByArticleID(ctx, id)
	if err != nil {
		// The article row is gone; report the partial cleanup rather
		// than failing the delete.
		s.logger.Error("article deleted but chunk cleanup failed", "article_id", id, "error", err)
		return nil
	}

	s.logger.Info("deleted article", "id", id, "chunks_removed", n)
	return nil
}

// ListFeedback returns an article's feedback history.
func (s *Service) ListFeedback(ctx context.Context, articleID string) ([]Feedback, error) {
	return s.repo.ListFeedback(ctx, articleID)
}

// GetFeedbackStats reports an article's feedback summary. Returns
// ErrNotFound when the article does not exist.
func (s *Service) GetFeedbackStats(ctx context.Context, articleID string) (*FeedbackStats, error) {
	a, err := s.repo.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return &FeedbackStats{
		Rating:                 a.Rating,
		PositiveCount:          a.PositiveCount,
		NegativeCount:          a.NegativeCount,
		TotalFeedbackCount:     a.PositiveCount + a.NegativeCount,
		RetrievalScoreModifier: a.Rating,
	}, nil
}

// GetStats reports article and chunk totals.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	articles, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	chunks, err := s.chunks.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}
	return &Stats{Articles: articles, Chunks: chunks}, nil
}
