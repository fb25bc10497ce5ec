package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/feedback"
	"github.com/kurabase/kura/internal/ingest"
	"github.com/kurabase/kura/internal/pipeline"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Pipeline    *pipeline.Pipeline // Required
	Ingest      *ingest.Service    // Required
	Articles    *article.Service   // Required
	Feedback    *feedback.Engine   // Required
	Pool        *pgxpool.Pool      // Optional: nil disables DB ping in /ready
	CORSOrigins []string           // Allowed origins for CORS
	TrustProxy  bool               // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst   int                // Rate limiter burst size per IP (0 = defaultRateBurst)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg.Ingest == nil {
		return nil, errors.New("ingest service is required")
	}
	if cfg.Articles == nil {
		return nil, errors.New("article service is required")
	}
	if cfg.Feedback == nil {
		return nil, errors.New("feedback engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ih := &ingestHandler{service: cfg.Ingest, logger: logger}
	qh := &queryHandler{pipeline: cfg.Pipeline, engine: cfg.Feedback, logger: logger}
	ah := &articleHandler{service: cfg.Articles, engine: cfg.Feedback, logger: logger}

	mux := http.NewServeMux()

	// Ingestion and retrieval
	mux.HandleFunc("POST /api/v1/ingest", ih.ingestDocument)
	mux.HandleFunc("POST /api/v1/query", qh.answerQuery)

	// Articles
	mux.HandleFunc("POST /api/v1/articles", ah.createArticle)
	mux.HandleFunc("GET /api/v1/articles", ah.listArticles)
	mux.HandleFunc("GET /api/v1/articles/{id}", ah.getArticle)
	mux.HandleFunc("DELETE /api/v1/articles/{id}", ah.deleteArticle)
	mux.HandleFunc("POST /api/v1/articles/{id}/feedback", ah.submitArticleFeedback)
	mux.HandleFunc("GET /api/v1/articles/{id}/feedback", ah.listArticleFeedback)

	// Interactions
	mux.HandleFunc("POST /api/v1/feedback", qh.submitInteractionFeedback)
	mux.HandleFunc("GET /api/v1/interactions/{id}", qh.getInteraction)

	// Stats
	mux.HandleFunc("GET /api/v1/stats", ah.getStats)

	// Rate limiter: per-IP token bucket
	rl := newRateLimiter(defaultRateRefill, cfg.RateBurst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	stack := handler
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		stack.ServeHTTP(w, r)
	})

	// Use a top-level mux to separate health probes from middleware stack
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
