// Package feedback closes the retrieval loop: reader reactions to
// articles and to individual answers are folded back into the vector
// index so future searches favor content that has proven useful.
//
// Two signals exist and stay separate. Article feedback recomputes the
// article's rating and propagates it to every chunk of that article as
// an absolute score modifier. Interaction feedback nudges only the
// chunks that sourced one specific answer, additively and without
// clamping.
package feedback

import (
	"errors"
	"time"
)

// ErrNotFound indicates the requested interaction does not exist.
var ErrNotFound = errors.New("interaction not found")

// ScoreDelta is how much one interaction vote moves each source
// chunk's score modifier, up for positive and down for negative.
const ScoreDelta = 0.1

// Source is a snapshot of one chunk that contributed to an answer.
type Source struct {
	ChunkID      string `json:"chunkId"`
	ArticleID    string `json:"articleId,omitempty"`
	ArticleTitle string `json:"articleTitle,omitempty"`
	Source       string `json:"source,omitempty"`
}

// Vote is one reader reaction to an interaction.
type Vote struct {
	Positive  bool      `json:"positive"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Interaction records one answered query: what was asked, what came
// back, which chunks informed it, and any feedback received since.
// UserContext carries the optional hint the caller supplied with the
// query.
type Interaction struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	UserContext string    `json:"userContext,omitempty"`
	Sources     []Source  `json:"sources"`
	Feedback    []Vote    `json:"feedback"`
	CreatedAt   time.Time `json:"createdAt"`
}
