package article

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists articles and their feedback in PostgreSQL.
// It is safe for concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store backed by pool. Pass a nil logger to use
// slog.Default.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

const articleColumns = `id, title, source, tags, content, chunk_count,
	positive_count, negative_count, rating, created_at, updated_at`

// Create inserts a new article.
func (s *Store) Create(ctx context.Context, a *Article) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO articles (id, title, source, tags, content, chunk_count,
			positive_count, negative_count, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Title, a.Source, a.Tags, a.Content, a.ChunkCount,
		a.PositiveCount, a.NegativeCount, a.Rating, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	s.logger.Debug("created article", "id", a.ID, "title", a.Title, "chunks", a.ChunkCount)
	return nil
}

// Get retrieves an article by ID. Returns ErrNotFound when it does not
// exist.
func (s *Store) Get(ctx context.Context, id string) (*Article, error) {
	if uuid.Validate(id) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get article %s: %w", id, err)
	}
	return a, nil
}

// List returns one page of articles ordered by creation time, newest
// first, along with the total article count. Pages are 1-indexed.
func (s *Store) List(ctx context.Context, page, limit int) ([]Article, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+articleColumns+` FROM articles
		 ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]Article, 0, limit)
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return articles, total, nil
}

// Count returns the total number of articles.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM articles`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return total, nil
}

// Delete removes an article and, via the schema's cascade, its feedback
// history. Returns ErrNotFound when the article does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.logger.Debug("deleted article", "id", id)
	return nil
}

// ApplyFeedback records one reader reaction and recomputes the
// article's rating atomically. The article row is locked for the
// duration of the transaction so concurrent feedback cannot lose
// updates. Returns the article with its updated counters and rating.
func (s *Store) ApplyFeedback(ctx context.Context, articleID string, positive bool, comment string) (*Article, error) {
	if uuid.Validate(articleID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, articleID)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin feedback transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("feedback transaction rollback failed", "error", rbErr)
		}
	}()

	row := tx.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1 FOR UPDATE`, articleID)
	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, articleID)
		}
		return nil, fmt.Errorf("failed to lock article %s: %w", articleID, err)
	}

	if positive {
		a.PositiveCount++
	} else {
		a.NegativeCount++
	}
	a.Rating = Rate(a.PositiveCount, a.NegativeCount)
	a.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO article_feedback (id, article_id, positive, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), articleID, positive, comment, a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record feedback: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE articles
		SET positive_count = $1, negative_count = $2, rating = $3, updated_at = $4
		WHERE id = $5`,
		a.PositiveCount, a.NegativeCount, a.Rating, a.UpdatedAt, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to update article rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit feedback: %w", err)
	}

	s.logger.Debug("applied article feedback",
		"article_id", articleID, "positive", positive, "rating", a.Rating)
	return a, nil
}

// ListFeedback returns an article's feedback history, newest first.
// Returns ErrNotFound when the article does not exist.
func (s *Store) ListFeedback(ctx context.Context, articleID string) ([]Feedback, error) {
	if uuid.Validate(articleID) != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, articleID)
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`, articleID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check article %s: %w", articleID, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, articleID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, article_id, positive, comment, created_at
		FROM article_feedback
		WHERE article_id = $1
		ORDER BY created_at DESC`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback for %s: %w", articleID, err)
	}
	defer rows.Close()

	feedback := make([]Feedback, 0)
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.ArticleID, &f.Positive, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback: %w", err)
	}
	return feedback, nil
}

// scanArticle reads one article from a row.
func scanArticle(row pgx.Row) (*Article, error) {
	var a Article
	err := row.Scan(&a.ID, &a.Title, &a.Source, &a.Tags, &a.Content, &a.ChunkCount,
		&a.PositiveCount, &a.NegativeCount, &a.Rating, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
