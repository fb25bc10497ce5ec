package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/feedback"
	"github.com/kurabase/kura/internal/index"
	"github.com/kurabase/kura/internal/ingest"
	"github.com/kurabase/kura/internal/pipeline"
)

// writeDomainError maps service-layer sentinel errors to HTTP responses.
// Unknown errors become opaque 500s so internals never leak to clients.
func writeDomainError(w http.ResponseWriter, err error, logger *slog.Logger) {
	switch {
	case errors.Is(err, article.ErrNotFound), errors.Is(err, feedback.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, article.ErrInvalidInput),
		errors.Is(err, ingest.ErrInvalidInput),
		errors.Is(err, index.ErrInvalidChunk),
		errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())

	case errors.Is(err, index.ErrEmbedding),
		errors.Is(err, pipeline.ErrRetrieval),
		errors.Is(err, pipeline.ErrGeneration):
		logger.Error("upstream dependency failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream_error", "upstream dependency failed")

	default:
		logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
