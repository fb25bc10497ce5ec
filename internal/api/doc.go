// Package api provides the JSON REST API server for Kura.
//
// # Architecture
//
// The API server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux, ensuring they remain fast and unauthenticated.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health — returns {"status":"ok"}
//   - GET /ready  — pings the database pool
//
// Ingestion and retrieval:
//   - POST /api/v1/ingest — chunk, embed, and index a raw document
//   - POST /api/v1/query  — answer a question from the indexed corpus
//
// Articles:
//   - POST   /api/v1/articles               — create and index an article
//   - GET    /api/v1/articles               — paginated listing
//   - GET    /api/v1/articles/{id}          — get article by ID
//   - DELETE /api/v1/articles/{id}          — delete article and its chunks
//   - POST   /api/v1/articles/{id}/feedback — rate an article
//   - GET    /api/v1/articles/{id}/feedback — feedback stats and history
//
// Interactions:
//   - POST /api/v1/feedback          — rate an answered query
//   - GET  /api/v1/interactions/{id} — inspect a recorded interaction
//
// Stats:
//   - GET /api/v1/stats — corpus statistics (articles, chunks)
//
// # Feedback Model
//
// Article feedback recomputes the article rating and propagates it to
// the article's chunks as their retrieval score modifier. Interaction
// feedback nudges only the chunks that sourced that specific answer.
// The two signals are kept separate.
//
// # Error Handling
//
// Error responses use an envelope format:
//
//	{"error": {"code": "...", "message": "..."}}
//
// Service-layer sentinel errors map to statuses: invalid input → 400,
// missing resources → 404, provider failures → 502, anything else → 500.
//
// # Security
//
// The middleware stack enforces:
//   - Per-IP rate limiting (token bucket, 60 req/min burst)
//   - CORS with explicit origin allowlist
//   - Security headers (CSP, X-Frame-Options, nosniff)
package api
