package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kurabase/kura/internal/feedback"
	"github.com/kurabase/kura/internal/index"
	"github.com/kurabase/kura/internal/pipeline"
)

// maxQueryBytes limits query and feedback payloads to 1MB.
const maxQueryBytes = 1 << 20

// queryHandler holds dependencies for the question-answering endpoint.
type queryHandler struct {
	pipeline *pipeline.Pipeline
	engine   *feedback.Engine
	logger   *slog.Logger
}

// queryRequest is the request body for POST /api/v1/query.
type queryRequest struct {
	Query   string `json:"query"`
	Context string `json:"context,omitempty"`
}

// queryResponse is the response body for POST /api/v1/query.
// InteractionID identifies the recorded interaction so later feedback
// can reference it; empty if recording failed.
type queryResponse struct {
	Response        string         `json:"response"`
	InteractionID   string         `json:"interactionId,omitempty"`
	SourceDocuments []index.Result `json:"sourceDocuments"`
}

// answerQuery handles POST /api/v1/query. Runs retrieval and generation,
// then records the interaction so its sources can receive feedback.
func (h *queryHandler) answerQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decodeJSON(w, r, &req, maxQueryBytes) {
		return
	}

	state, err := h.pipeline.Run(r.Context(), req.Query, req.Context)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	resp := queryResponse{
		Response:        state.Response,
		SourceDocuments: state.Documents,
	}

	// An answer without a recorded interaction is still an answer; the
	// client just cannot rate it.
	interaction, err := h.engine.RecordInteraction(r.Context(), state.Query, state.Response, state.Context, sourcesFromDocuments(state.Documents))
	if err != nil {
		h.logger.Error("recording interaction", "error", err)
	} else {
		resp.InteractionID = interaction.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

// sourcesFromDocuments snapshots retrieved chunks for the interaction log.
func sourcesFromDocuments(docs []index.Result) []feedback.Source {
	sources := make([]feedback.Source, len(docs))
	for i, d := range docs {
		sources[i] = feedback.Source{
			ChunkID:      d.ID,
			ArticleID:    d.Metadata.ArticleID,
			ArticleTitle: d.Metadata.ArticleTitle,
			Source:       d.Metadata.Source,
		}
	}
	return sources
}

// interactionFeedbackRequest is the request body for POST /api/v1/feedback.
// Rating is "positive" or "negative"; Correction optionally carries what
// the answer should have been.
type interactionFeedbackRequest struct {
	InteractionID string `json:"interactionId"`
	Rating        string `json:"rating"`
	Correction    string `json:"correction,omitempty"`
}

// submitInteractionFeedback handles POST /api/v1/feedback. Records the
// vote on the interaction and nudges every source chunk's score.
func (h *queryHandler) submitInteractionFeedback(w http.ResponseWriter, r *http.Request) {
	var req interactionFeedbackRequest
	if !decodeJSON(w, r, &req, maxQueryBytes) {
		return
	}

	if req.InteractionID == "" {
		writeError(w, http.StatusBadRequest, "missing_interaction_id", "interactionId is required")
		return
	}
	positive, ok := parseRating(req.Rating)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_rating", `rating must be "positive" or "negative"`)
		return
	}

	if err := h.engine.SubmitInteractionFeedback(r.Context(), req.InteractionID, positive, req.Correction); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// getInteraction handles GET /api/v1/interactions/{id}.
func (h *queryHandler) getInteraction(w http.ResponseWriter, r *http.Request) {
	interaction, err := h.engine.GetInteraction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}

// parseRating maps the wire rating to a polarity.
func parseRating(rating string) (positive, ok bool) {
	switch strings.ToLower(rating) {
	case "positive":
		return true, true
	case "negative":
		return false, true
	default:
		return false, false
	}
}
