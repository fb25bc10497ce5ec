package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGQuerier implements Querier on a pgx connection pool. The chunks
// table lives outside the migration set because its vector column is
// sized to the embedding dimension, which is only known at runtime.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier backed by pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

func (q *PGQuerier) EnsureSchema(ctx context.Context, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", dimensions)
	}

	if _, err := q.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	// The dimension is an integer interpolated into DDL; placeholders are
	// not allowed in type definitions.
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			article_id TEXT NOT NULL DEFAULT '',
			article_title TEXT NOT NULL DEFAULT '',
			ingested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			score_modifier DOUBLE PRECISION NOT NULL DEFAULT 1.0
		)`, dimensions)
	if _, err := q.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}

	if _, err := q.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_chunks_article_id ON chunks (article_id)`); err != nil {
		return fmt.Errorf("failed to create chunks index: %w", err)
	}
	return nil
}

func (q *PGQuerier) SchemaExists(ctx context.Context) (bool, error) {
	var exists bool
	err := q.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'chunks')`,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check chunks table: %w", err)
	}
	return exists, nil
}

func (q *PGQuerier) UpsertChunk(ctx context.Context, row Row) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO chunks (id, text, embedding, source, article_id, article_title, ingested_at, score_modifier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding,
			source = EXCLUDED.source,
			article_id = EXCLUDED.article_id,
			article_title = EXCLUDED.article_title,
			ingested_at = EXCLUDED.ingested_at,
			score_modifier = EXCLUDED.score_modifier`,
		row.ID, row.Text, pgvector.NewVector(row.Embedding),
		row.Source, row.ArticleID, row.ArticleTitle, row.IngestedAt, row.ScoreModifier)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

func (q *PGQuerier) SearchNearest(ctx context.Context, embedding []float32, limit int) ([]Candidate, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, text, source, article_id, article_title, ingested_at, score_modifier,
		       1 - (embedding <=> $1) AS similarity
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Text, &c.Source, &c.ArticleID, &c.ArticleTitle,
			&c.IngestedAt, &c.ScoreModifier, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return candidates, nil
}

func (q *PGQuerier) SetModifier(ctx context.Context, chunkID string, modifier float64) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE chunks SET score_modifier = $1 WHERE id = $2`, modifier, chunkID)
	if err != nil {
		return 0, fmt.Errorf("set score modifier: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *PGQuerier) AddToModifier(ctx context.Context, chunkID string, delta float64) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE chunks SET score_modifier = score_modifier + $1 WHERE id = $2`, delta, chunkID)
	if err != nil {
		return 0, fmt.Errorf("adjust score modifier: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *PGQuerier) SetModifierByArticle(ctx context.Context, articleID string, modifier float64) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`UPDATE chunks SET score_modifier = $1 WHERE article_id = $2`, modifier, articleID)
	if err != nil {
		return 0, fmt.Errorf("set article score modifiers: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *PGQuerier) DeleteByArticle(ctx context.Context, articleID string) (int64, error) {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM chunks WHERE article_id = $1`, articleID)
	if err != nil {
		return 0, fmt.Errorf("delete article chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (q *PGQuerier) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}
