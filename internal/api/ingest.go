package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kurabase/kura/internal/ingest"
)

// maxIngestBytes limits raw ingest payloads to 10MB.
const maxIngestBytes = 10 << 20

// ingestHandler holds dependencies for the raw ingestion endpoint.
type ingestHandler struct {
	service *ingest.Service
	logger  *slog.Logger
}

// ingestRequest is the request body for POST /api/v1/ingest.
type ingestRequest struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// ingestDocument handles POST /api/v1/ingest. It splits the document,
// embeds every chunk, and stores them in the vector index. Returns 202
// because indexing is complete but the article store is not involved.
func (h *ingestHandler) ingestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeJSON(w, r, &req, maxIngestBytes) {
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "content is required")
		return
	}

	chunks, err := h.service.Ingest(r.Context(), req.Content, req.Source)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("document ingested", "source", req.Source, "chunks", len(chunks))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "ingested",
		"chunks": len(chunks),
	})
}
