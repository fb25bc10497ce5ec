package index

import (
	"errors"
	"time"
)

// Sentinel errors for index operations.
var (
	// ErrEmbedding indicates the embedding provider failed or returned an
	// empty vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrInvalidChunk indicates a chunk with no ID or no text.
	ErrInvalidChunk = errors.New("invalid chunk")
)

// Metadata describes where a chunk came from and how it should be
// weighted during retrieval.
type Metadata struct {
	// Source identifies the origin of the text (file path, URL, or a
	// caller-supplied label).
	Source string `json:"source"`

	// ArticleID links the chunk to its parent article, empty for chunks
	// ingested outside the article store.
	ArticleID string `json:"articleId,omitempty"`

	// ArticleTitle is the parent article's title at ingestion time.
	ArticleTitle string `json:"articleTitle,omitempty"`

	// IngestedAt records when the chunk entered the index.
	IngestedAt time.Time `json:"ingestedAt"`

	// ScoreModifier is the retrieval weight applied to this chunk's raw
	// similarity. New chunks start at 1.0 (neutral); feedback moves it.
	ScoreModifier float64 `json:"scoreModifier"`
}

// Chunk is one indexed unit of text.
type Chunk struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Result is a chunk returned from a search, with its raw similarity and
// the final feedback-weighted score used for ranking.
type Result struct {
	Chunk

	// Similarity is the raw cosine similarity between the query and the
	// chunk, before feedback weighting.
	Similarity float64 `json:"similarity"`

	// Score is Similarity multiplied by the chunk's ScoreModifier.
	// Results are ordered by Score, descending.
	Score float64 `json:"score"`
}
