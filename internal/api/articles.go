package api

import (
	"log/slog"
	"net/http"

	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/feedback"
)

// articleHandler holds dependencies for the article API endpoints.
type articleHandler struct {
	service *article.Service
	engine  *feedback.Engine
	logger  *slog.Logger
}

// createArticleRequest is the request body for POST /api/v1/articles.
type createArticleRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Source  string   `json:"source,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// createArticle handles POST /api/v1/articles. The article is chunked
// and indexed before the row is stored, so a successful response means
// the content is already retrievable.
func (h *articleHandler) createArticle(w http.ResponseWriter, r *http.Request) {
	var req createArticleRequest
	if !decodeJSON(w, r, &req, maxIngestBytes) {
		return
	}

	a, err := h.service.CreateArticle(r.Context(), req.Title, req.Content, req.Source, req.Tags)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("article created", "id", a.ID, "title", a.Title, "chunks", a.ChunkCount)
	writeJSON(w, http.StatusCreated, a)
}

// listArticles handles GET /api/v1/articles?page=1&limit=20.
func (h *articleHandler) listArticles(w http.ResponseWriter, r *http.Request) {
	page := max(parseIntParam(r, "page", 1), 1)
	limit := min(max(parseIntParam(r, "limit", 20), 1), 100)

	articles, total, err := h.service.ListArticles(r.Context(), page, limit)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": articles,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// getArticle handles GET /api/v1/articles/{id}.
func (h *articleHandler) getArticle(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.GetArticle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// deleteArticle handles DELETE /api/v1/articles/{id}. Removes the row
// and all of the article's chunks from the index.
func (h *articleHandler) deleteArticle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteArticle(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// articleFeedbackRequest is the request body for
// POST /api/v1/articles/{id}/feedback.
type articleFeedbackRequest struct {
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

// articleFeedbackResponse reports the article's rating after the vote.
type articleFeedbackResponse struct {
	ID            string  `json:"id"`
	Rating        float64 `json:"rating"`
	PositiveCount int     `json:"positiveCount"`
	NegativeCount int     `json:"negativeCount"`
}

// submitArticleFeedback handles POST /api/v1/articles/{id}/feedback.
// Recomputes the article rating and propagates it to the article's
// chunks as their new score modifier.
func (h *articleHandler) submitArticleFeedback(w http.ResponseWriter, r *http.Request) {
	var req articleFeedbackRequest
	if !decodeJSON(w, r, &req, maxQueryBytes) {
		return
	}

	positive, ok := parseRating(req.Type)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_type", `type must be "positive" or "negative"`)
		return
	}

	a, err := h.engine.SubmitArticleFeedback(r.Context(), r.PathValue("id"), positive, req.Comment)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, articleFeedbackResponse{
		ID:            a.ID,
		Rating:        a.Rating,
		PositiveCount: a.PositiveCount,
		NegativeCount: a.NegativeCount,
	})
}

// articleFeedbackStats is the response body for
// GET /api/v1/articles/{id}/feedback: the summary plus the vote
// history, newest first.
type articleFeedbackStats struct {
	article.FeedbackStats
	Items []article.Feedback `json:"items"`
}

// listArticleFeedback handles GET /api/v1/articles/{id}/feedback.
func (h *articleHandler) listArticleFeedback(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	stats, err := h.service.GetFeedbackStats(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	entries, err := h.service.ListFeedback(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, articleFeedbackStats{
		FeedbackStats: *stats,
		Items:         entries,
	})
}

// getStats handles GET /api/v1/stats.
func (h *articleHandler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
