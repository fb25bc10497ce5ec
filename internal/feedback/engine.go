package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kurabase/kura/internal/article"
)

// InteractionRepo covers interaction persistence.
type InteractionRepo interface {
	Create(ctx context.Context, in *Interaction) error
	Get(ctx context.Context, id string) (*Interaction, error)
	AppendVote(ctx context.Context, id string, v Vote) error
}

// ArticleRater applies feedback to an article and returns it with the
// recomputed rating.
type ArticleRater interface {
	ApplyFeedback(ctx context.Context, articleID string, positive bool, comment string) (*article.Article, error)
}

// ChunkScorer covers the index score operations the engine drives.
type ChunkScorer interface {
	UpdateScoresByArticleID(ctx context.Context, articleID string, modifier float64) (int64, error)
	AdjustScore(ctx context.Context, chunkID string, delta float64) error
}

// Engine routes feedback signals to the article store, the interaction
// log, and the vector index.
type Engine struct {
	interactions InteractionRepo
	articles     ArticleRater
	chunks       ChunkScorer
	logger       *slog.Logger
}

// NewEngine creates an Engine. Pass a nil logger to use slog.Default.
func NewEngine(interactions InteractionRepo, articles ArticleRater, chunks ChunkScorer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		interactions: interactions,
		articles:     articles,
		chunks:       chunks,
		logger:       logger,
	}
}

// RecordInteraction logs one answered query along with the chunks that
// sourced the answer, and returns the stored interaction so callers can
// hand its ID back to the client for later feedback. userContext is the
// optional hint the caller supplied with the query and may be empty.
func (e *Engine) RecordInteraction(ctx context.Context, query, response, userContext string, sources []Source) (*Interaction, error) {
	in := &Interaction{
		ID:          uuid.NewString(),
		Query:       query,
		Response:    response,
		UserContext: userContext,
		Sources:     sources,
		Feedback:    []Vote{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.interactions.Create(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// GetInteraction retrieves a recorded interaction.
func (e *Engine) GetInteraction(ctx context.Context, id string) (*Interaction, error) {
	return e.interactions.Get(ctx, id)
}

// SubmitArticleFeedback records one reader reaction to an article,
// recomputes its rating, and propagates the new rating to all of the
// article's chunks as their score modifier.
//
// The rating update is atomic; chunk propagation follows it and is
// retried implicitly by the next feedback on the same article, so a
// propagation failure does not roll back the vote.
func (e *Engine) SubmitArticleFeedback(ctx context.Context, articleID string, positive bool, comment string) (*article.Article, error) {
	a, err := e.articles.ApplyFeedback(ctx, articleID, positive, comment)
	if err != nil {
		return nil, err
	}

	n, err := e.chunks.UpdateScoresByArticleID(ctx, articleID, a.Rating)
	if err != nil {
		e.logger.Error("rating not propagated to chunks",
			"article_id", articleID, "rating", a.Rating, "error", err)
		return a, nil
	}

	e.logger.Info("article feedback applied",
		"article_id", articleID, "positive", positive, "rating", a.Rating, "chunks", n)
	return a, nil
}

// SubmitInteractionFeedback records one reader reaction to a specific
// answer and nudges the score of every chunk that sourced it: up by
// ScoreDelta for positive feedback, down for negative. Returns
// ErrNotFound when the interaction does not exist.
func (e *Engine) SubmitInteractionFeedback(ctx context.Context, interactionID string, positive bool, comment string) error {
	in, err := e.interactions.Get(ctx, interactionID)
	if err != nil {
		return err
	}

	vote := Vote{Positive: positive, Comment: comment, CreatedAt: time.Now().UTC()}
	if err := e.interactions.AppendVote(ctx, interactionID, vote); err != nil {
		return err
	}

	delta := ScoreDelta
	if !positive {
		delta = -ScoreDelta
	}
	for _, src := range in.Sources {
		if err := e.chunks.AdjustScore(ctx, src.ChunkID, delta); err != nil {
			return fmt.Errorf("failed to adjust chunk %s: %w", src.ChunkID, err)
		}
	}

	e.logger.Info("interaction feedback applied",
		"interaction_id", interactionID, "positive", positive, "chunks", len(in.Sources))
	return nil
}
