package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/chunker"
	"github.com/kurabase/kura/internal/feedback"
	"github.com/kurabase/kura/internal/index"
	"github.com/kurabase/kura/internal/ingest"
	"github.com/kurabase/kura/internal/pipeline"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// memIndex is an in-memory stand-in for the vector index. It serves as
// the ingestion target, the article-scoped chunk index, the feedback
// score sink, and the pipeline retriever.
type memIndex struct {
	mu        sync.Mutex
	chunks    []index.Chunk
	modifiers map[string]float64
}

func newMemIndex() *memIndex {
	return &memIndex{modifiers: make(map[string]float64)}
}

func (m *memIndex) AddChunks(_ context.Context, chunks []index.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks = append(m.chunks, c)
		m.modifiers[c.ID] = c.Metadata.ScoreModifier
	}
	return nil
}

func (m *memIndex) DeleteByArticleID(_ context.Context, articleID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []index.Chunk
	var removed int64
	for _, c := range m.chunks {
		if c.Metadata.ArticleID == articleID {
			delete(m.modifiers, c.ID)
			removed++
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return removed, nil
}

func (m *memIndex) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.chunks)), nil
}

func (m *memIndex) UpdateScoresByArticleID(_ context.Context, articleID string, modifier float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for _, c := range m.chunks {
		if c.Metadata.ArticleID == articleID {
			m.modifiers[c.ID] = modifier
			updated++
		}
	}
	return updated, nil
}

func (m *memIndex) AdjustScore(_ context.Context, chunkID string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modifiers[chunkID]; ok {
		m.modifiers[chunkID] += delta
	}
	return nil
}

func (m *memIndex) modifier(chunkID string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modifiers[chunkID]
}

// Search returns every chunk at a fixed similarity so ranking is driven
// purely by score modifiers.
func (m *memIndex) Search(_ context.Context, _ string, topK int) ([]index.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]index.Result, 0, len(m.chunks))
	for _, c := range m.chunks {
		sim := 0.9
		results = append(results, index.Result{
			Chunk:      c,
			Similarity: sim,
			Score:      sim * m.modifiers[c.ID],
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// memRepo is an in-memory article repository that also acts as the
// feedback engine's rater.
type memRepo struct {
	mu       sync.Mutex
	articles map[string]article.Article
	votes    map[string][]article.Feedback
	order    []string
}

func newMemRepo() *memRepo {
	return &memRepo{
		articles: make(map[string]article.Article),
		votes:    make(map[string][]article.Feedback),
	}
}

func (r *memRepo) Create(_ context.Context, a *article.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles[a.ID] = *a
	r.order = append(r.order, a.ID)
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*article.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return nil, article.ErrNotFound
	}
	return &a, nil
}

func (r *memRepo) List(_ context.Context, page, limit int) ([]article.Article, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := (page - 1) * limit
	var out []article.Article
	for i := start; i < len(r.order) && i < start+limit; i++ {
		out = append(out, r.articles[r.order[i]])
	}
	return out, int64(len(r.order)), nil
}

func (r *memRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.articles)), nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[id]; !ok {
		return article.ErrNotFound
	}
	delete(r.articles, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memRepo) ListFeedback(_ context.Context, articleID string) ([]article.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[articleID]; !ok {
		return nil, article.ErrNotFound
	}
	return r.votes[articleID], nil
}

func (r *memRepo) ApplyFeedback(_ context.Context, articleID string, positive bool, comment string) (*article.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[articleID]
	if !ok {
		return nil, article.ErrNotFound
	}
	if positive {
		a.PositiveCount++
	} else {
		a.NegativeCount++
	}
	a.Rating = article.Rate(a.PositiveCount, a.NegativeCount)
	a.UpdatedAt = time.Now().UTC()
	r.articles[articleID] = a
	r.votes[articleID] = append(r.votes[articleID], article.Feedback{
		ArticleID: articleID,
		Positive:  positive,
		Comment:   comment,
		CreatedAt: a.UpdatedAt,
	})
	return &a, nil
}

// memInteractions is an in-memory interaction log.
type memInteractions struct {
	mu           sync.Mutex
	interactions map[string]feedback.Interaction
}

func newMemInteractions() *memInteractions {
	return &memInteractions{interactions: make(map[string]feedback.Interaction)}
}

func (r *memInteractions) Create(_ context.Context, in *feedback.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interactions[in.ID] = *in
	return nil
}

func (r *memInteractions) Get(_ context.Context, id string) (*feedback.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.interactions[id]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	return &in, nil
}

func (r *memInteractions) AppendVote(_ context.Context, id string, v feedback.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.interactions[id]
	if !ok {
		return feedback.ErrNotFound
	}
	in.Feedback = append(in.Feedback, v)
	r.interactions[id] = in
	return nil
}

// staticGenerator answers every prompt the same way.
type staticGenerator struct {
	response string
}

func (g *staticGenerator) Generate(context.Context, string) (string, error) {
	return g.response, nil
}

// testServer bundles the server with the fakes behind it so tests can
// assert side effects directly.
type testServer struct {
	srv *Server
	idx *memIndex
}

func newTestServer(t *testing.T, mutate func(*ServerConfig)) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	splitter, err := chunker.New(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	if err != nil {
		t.Fatalf("chunker.New() error: %v", err)
	}

	idx := newMemIndex()
	repo := newMemRepo()
	interactions := newMemInteractions()

	ingestSvc := ingest.New(splitter, idx, logger)
	articleSvc := article.NewService(repo, ingestSvc, idx, logger)
	engine := feedback.NewEngine(interactions, repo, idx, logger)
	pipe := pipeline.New(idx, &staticGenerator{response: "Paris is the capital of France."}, 4, logger)

	cfg := ServerConfig{
		Logger:      logger,
		Pipeline:    pipe,
		Ingest:      ingestSvc,
		Articles:    articleSvc,
		Feedback:    engine,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return &testServer{srv: srv, idx: idx}
}

// do issues a request against the server and decodes the JSON response
// into out (when non-nil).
func (ts *testServer) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshaling response %q: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func TestNewServer(t *testing.T) {
	ts := newTestServer(t, nil)
	if ts.srv.Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}

func TestNewServerMissingDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	if err == nil {
		t.Fatal("NewServer(empty config) expected error, got nil")
	}
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /health body = %q, want status ok", rec.Body.String())
	}

	// Nil pool degrades /ready to a liveness answer.
	rec = ts.do(t, http.MethodGet, "/ready", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /ready status = %d, want 200", rec.Code)
	}
}

func TestIngestEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	var resp struct {
		Status string `json:"status"`
		Chunks int    `json:"chunks"`
	}
	rec := ts.do(t, http.MethodPost, "/api/v1/ingest", map[string]string{
		"content": "Go is a statically typed language. It compiles quickly.",
		"source":  "notes.txt",
	}, &resp)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /api/v1/ingest status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if resp.Status != "ingested" || resp.Chunks < 1 {
		t.Errorf("ingest response = %+v, want status ingested with chunks >= 1", resp)
	}
}

func TestIngestEndpointRejectsEmptyContent(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/ingest", map[string]string{"content": "   "}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /api/v1/ingest status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/ingest", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /api/v1/ingest (no body) status = %d, want 400", rec.Code)
	}
}

func TestIngestEndpointRejectsMissingSource(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, source := range []string{"", "   "} {
		rec := ts.do(t, http.MethodPost, "/api/v1/ingest", map[string]string{
			"content": "Go is a statically typed language.",
			"source":  source,
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("POST /api/v1/ingest (source=%q) status = %d, want 400: %s",
				source, rec.Code, rec.Body.String())
		}
	}
	if n, _ := ts.idx.Count(context.Background()); n != 0 {
		t.Errorf("index holds %d chunks after rejected ingest, want 0", n)
	}
}

func createTestArticle(t *testing.T, ts *testServer, title string) article.Article {
	t.Helper()
	var a article.Article
	rec := ts.do(t, http.MethodPost, "/api/v1/articles", map[string]any{
		"title":   title,
		"content": "The capital of France is Paris. It sits on the Seine.",
		"source":  "geography.md",
		"tags":    []string{"geography", "europe"},
	}, &a)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/articles status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	return a
}

func TestArticleLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	a := createTestArticle(t, ts, "France")
	if a.ID == "" {
		t.Fatal("created article has empty ID")
	}
	if a.Rating != 1.0 {
		t.Errorf("new article rating = %v, want 1.0", a.Rating)
	}
	if a.ChunkCount < 1 {
		t.Errorf("new article chunkCount = %d, want >= 1", a.ChunkCount)
	}
	if len(a.Tags) != 2 || a.Tags[0] != "geography" {
		t.Errorf("tags = %v, want [geography europe]", a.Tags)
	}

	var got article.Article
	rec := ts.do(t, http.MethodGet, "/api/v1/articles/"+a.ID, nil, &got)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET article status = %d, want 200", rec.Code)
	}
	if got.Title != "France" {
		t.Errorf("article title = %q, want France", got.Title)
	}

	var list struct {
		Items []article.Article `json:"items"`
		Total int64             `json:"total"`
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/articles?page=1&limit=10", nil, &list)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET articles status = %d, want 200", rec.Code)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Errorf("list = %d items, total %d, want 1/1", len(list.Items), list.Total)
	}

	rec = ts.do(t, http.MethodDelete, "/api/v1/articles/"+a.ID, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE article status = %d, want 204", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/articles/"+a.ID, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET deleted article status = %d, want 404", rec.Code)
	}

	if n, _ := ts.idx.Count(context.Background()); n != 0 {
		t.Errorf("index still holds %d chunks after article delete, want 0", n)
	}
}

func TestArticleNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/articles/no-such-id", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET unknown article status = %d, want 404", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/api/v1/articles/no-such-id", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("DELETE unknown article status = %d, want 404", rec.Code)
	}
}

func TestArticleFeedback(t *testing.T) {
	ts := newTestServer(t, nil)
	a := createTestArticle(t, ts, "France")

	var last articleFeedbackResponse
	for _, vote := range []string{"positive", "positive", "positive", "negative"} {
		rec := ts.do(t, http.MethodPost, "/api/v1/articles/"+a.ID+"/feedback",
			map[string]string{"type": vote}, &last)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST feedback status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
	}

	if last.PositiveCount != 3 || last.NegativeCount != 1 {
		t.Errorf("counts = %d/%d, want 3/1", last.PositiveCount, last.NegativeCount)
	}
	if last.Rating != 1.625 {
		t.Errorf("rating = %v, want 1.625", last.Rating)
	}

	// Rating propagates to every chunk of the article.
	for id, mod := range ts.idx.modifiers {
		if mod != 1.625 {
			t.Errorf("chunk %s modifier = %v, want 1.625", id, mod)
		}
	}

	var stats articleFeedbackStats
	rec := ts.do(t, http.MethodGet, "/api/v1/articles/"+a.ID+"/feedback", nil, &stats)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET feedback status = %d, want 200", rec.Code)
	}
	if stats.PositiveCount != 3 || stats.NegativeCount != 1 {
		t.Errorf("stats counts = %d/%d, want 3/1", stats.PositiveCount, stats.NegativeCount)
	}
	if stats.TotalFeedbackCount != 4 {
		t.Errorf("stats total = %d, want 4", stats.TotalFeedbackCount)
	}
	if stats.Rating != 1.625 || stats.RetrievalScoreModifier != 1.625 {
		t.Errorf("stats rating/modifier = %v/%v, want 1.625/1.625",
			stats.Rating, stats.RetrievalScoreModifier)
	}
	if len(stats.Items) != 4 {
		t.Errorf("feedback history has %d entries, want 4", len(stats.Items))
	}
}

func TestArticleFeedbackRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t, nil)
	a := createTestArticle(t, ts, "France")

	rec := ts.do(t, http.MethodPost, "/api/v1/articles/"+a.ID+"/feedback",
		map[string]string{"type": "meh"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST feedback status = %d, want 400", rec.Code)
	}
}

func TestQueryRecordsInteraction(t *testing.T) {
	ts := newTestServer(t, nil)
	createTestArticle(t, ts, "France")

	var resp queryResponse
	rec := ts.do(t, http.MethodPost, "/api/v1/query", map[string]string{
		"query":   "What is the capital of France?",
		"context": "asking for a travel guide",
	}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/query status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if resp.Response != "Paris is the capital of France." {
		t.Errorf("response = %q", resp.Response)
	}
	if resp.InteractionID == "" {
		t.Error("interactionId is empty, want recorded interaction")
	}
	if len(resp.SourceDocuments) == 0 || len(resp.SourceDocuments) > 4 {
		t.Errorf("sourceDocuments = %d, want 1..4", len(resp.SourceDocuments))
	}

	var in feedback.Interaction
	rec = ts.do(t, http.MethodGet, "/api/v1/interactions/"+resp.InteractionID, nil, &in)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET interaction status = %d, want 200", rec.Code)
	}
	if in.Query != "What is the capital of France?" {
		t.Errorf("interaction query = %q", in.Query)
	}
	if in.UserContext != "asking for a travel guide" {
		t.Errorf("interaction userContext = %q, want the query hint", in.UserContext)
	}
	if len(in.Sources) != len(resp.SourceDocuments) {
		t.Errorf("interaction sources = %d, want %d", len(in.Sources), len(resp.SourceDocuments))
	}
}

func TestQueryEmptyIndexStillAnswers(t *testing.T) {
	ts := newTestServer(t, nil)

	var resp queryResponse
	rec := ts.do(t, http.MethodPost, "/api/v1/query",
		map[string]string{"query": "Anything indexed yet?"}, &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/query status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if len(resp.SourceDocuments) != 0 {
		t.Errorf("sourceDocuments = %d, want 0 on empty index", len(resp.SourceDocuments))
	}
	if resp.Response == "" {
		t.Error("response is empty, want generated answer")
	}
}

func TestQueryRejectsBlankQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/query", map[string]string{"query": "  "}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /api/v1/query status = %d, want 400", rec.Code)
	}
}

func TestInteractionFeedbackNudgesSources(t *testing.T) {
	ts := newTestServer(t, nil)
	createTestArticle(t, ts, "France")

	var resp queryResponse
	ts.do(t, http.MethodPost, "/api/v1/query",
		map[string]string{"query": "What is the capital of France?"}, &resp)
	if resp.InteractionID == "" {
		t.Fatal("interactionId is empty")
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/feedback", map[string]string{
		"interactionId": resp.InteractionID,
		"rating":        "negative",
		"correction":    "The answer missed the Seine.",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/v1/feedback status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	for _, doc := range resp.SourceDocuments {
		if got := ts.idx.modifier(doc.ID); got != 0.9 {
			t.Errorf("chunk %s modifier = %v, want 0.9 after negative nudge", doc.ID, got)
		}
	}

	var in feedback.Interaction
	ts.do(t, http.MethodGet, "/api/v1/interactions/"+resp.InteractionID, nil, &in)
	if len(in.Feedback) != 1 || in.Feedback[0].Positive {
		t.Errorf("interaction feedback = %+v, want one negative vote", in.Feedback)
	}
}

func TestInteractionFeedbackValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/feedback",
		map[string]string{"rating": "positive"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing interactionId status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/feedback",
		map[string]string{"interactionId": "in-1", "rating": "great"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid rating status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/feedback",
		map[string]string{"interactionId": "no-such", "rating": "positive"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown interaction status = %d, want 404", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	createTestArticle(t, ts, "One")
	createTestArticle(t, ts, "Two")

	var stats article.Stats
	rec := ts.do(t, http.MethodGet, "/api/v1/stats", nil, &stats)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/stats status = %d, want 200", rec.Code)
	}
	if stats.Articles != 2 {
		t.Errorf("stats.Articles = %d, want 2", stats.Articles)
	}
	if stats.Chunks < 2 {
		t.Errorf("stats.Chunks = %d, want >= 2", stats.Chunks)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	ts := newTestServer(t, func(cfg *ServerConfig) {
		cfg.RateBurst = 1
	})

	rec := ts.do(t, http.MethodGet, "/api/v1/stats", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/stats", nil, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After header")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/query", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want unset for unknown origin", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/stats", nil, nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/nothing-here", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d, want 404", rec.Code)
	}
}

func TestPaginationDefaults(t *testing.T) {
	ts := newTestServer(t, nil)
	for i := range 3 {
		createTestArticle(t, ts, fmt.Sprintf("Article %d", i))
	}

	var list struct {
		Items []article.Article `json:"items"`
		Total int64             `json:"total"`
		Page  int               `json:"page"`
		Limit int               `json:"limit"`
	}
	rec := ts.do(t, http.MethodGet, "/api/v1/articles?page=0&limit=9999", nil, &list)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET articles status = %d, want 200", rec.Code)
	}
	if list.Page != 1 {
		t.Errorf("page clamped to %d, want 1", list.Page)
	}
	if list.Limit != 100 {
		t.Errorf("limit clamped to %d, want 100", list.Limit)
	}
	if list.Total != 3 {
		t.Errorf("total = %d, want 3", list.Total)
	}
}
