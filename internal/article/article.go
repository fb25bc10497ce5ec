// Package article manages knowledge base articles and the reader
// feedback that drives their retrieval weight.
//
// Every article carries a rating derived from its accumulated positive
// and negative feedback. The rating doubles as the score modifier
// applied to all of the article's chunks in the vector index, so
// well-reviewed articles surface more readily and poorly-reviewed ones
// sink.
package article

import (
	"errors"
	"math"
	"time"
)

// Sentinel errors for article operations.
var (
	// ErrNotFound indicates the requested article does not exist.
	ErrNotFound = errors.New("article not found")

	// ErrInvalidInput indicates a missing title or empty content.
	ErrInvalidInput = errors.New("invalid article input")
)

// Article is a stored knowledge base entry.
type Article struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Source        string    `json:"source"`
	Tags          []string  `json:"tags"`
	Content       string    `json:"content"`
	ChunkCount    int       `json:"chunkCount"`
	PositiveCount int       `json:"positiveCount"`
	NegativeCount int       `json:"negativeCount"`
	Rating        float64   `json:"rating"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FeedbackStats summarizes an article's accumulated feedback. The
// retrieval score modifier equals the rating, since that is the value
// propagated to the article's chunks in the vector index.
type FeedbackStats struct {
	Rating                 float64 `json:"rating"`
	PositiveCount          int     `json:"positiveCount"`
	NegativeCount          int     `json:"negativeCount"`
	TotalFeedbackCount     int     `json:"totalFeedbackCount"`
	RetrievalScoreModifier float64 `json:"retrievalScoreModifier"`
}

// Feedback is one recorded reader reaction to an article.
type Feedback struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	Positive  bool      `json:"positive"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rate computes an article's rating from its feedback counters.
//
// Negative votes weigh half as much as positive ones, the ratio is
// shifted so zero feedback lands at the neutral 1.0, and the result is
// clamped to [0, 2]. A new article with no feedback rates exactly 1.0.
func Rate(positive, negative int) float64 {
	total := positive + negative
	if total == 0 {
		return 1.0
	}
	rating := (float64(positive)-float64(negative)*0.5)/float64(total) + 1.0
	return math.Min(2.0, math.Max(0.0, rating))
}
