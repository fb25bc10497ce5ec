package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kurabase/kura/internal/testutil"
)

// Malformed interaction ids map to not-found before any query runs, so
// clients see 404 instead of a driver encoding error. No pool needed.
func TestStoreRejectsMalformedID(t *testing.T) {
	store := NewStore(nil, testutil.DiscardLogger())
	ctx := context.Background()

	if _, err := store.Get(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(not-a-uuid) error = %v, want ErrNotFound", err)
	}
	if err := store.AppendVote(ctx, "not-a-uuid", Vote{Positive: true}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendVote(not-a-uuid) error = %v, want ErrNotFound", err)
	}
}

func TestStoreInteractionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewStore(tdb.Pool, testutil.DiscardLogger())
	ctx := context.Background()

	in := &Interaction{
		ID:          uuid.NewString(),
		Query:       "how does ranking work?",
		Response:    "scores are similarity times modifier",
		UserContext: "reader is new to vector search",
		Sources: []Source{
			{ChunkID: "c1", ArticleID: "a1", ArticleTitle: "Ranking", Source: "docs"},
			{ChunkID: "c2"},
		},
		Feedback:  []Vote{},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, in.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Query != in.Query || got.Response != in.Response {
		t.Errorf("Get returned %+v", got)
	}
	if got.UserContext != in.UserContext {
		t.Errorf("user context = %q, want %q", got.UserContext, in.UserContext)
	}
	if len(got.Sources) != 2 || got.Sources[0].ChunkID != "c1" || got.Sources[0].ArticleTitle != "Ranking" {
		t.Errorf("sources round-trip mismatch: %+v", got.Sources)
	}
	if len(got.Feedback) != 0 {
		t.Errorf("new interaction has %d votes, want 0", len(got.Feedback))
	}

	if _, err := store.Get(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}

	votes := []Vote{
		{Positive: true, Comment: "great", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
		{Positive: false, CreatedAt: time.Now().UTC().Truncate(time.Millisecond)},
	}
	for _, v := range votes {
		if err := store.AppendVote(ctx, in.ID, v); err != nil {
			t.Fatalf("AppendVote: %v", err)
		}
	}
	if err := store.AppendVote(ctx, uuid.NewString(), votes[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendVote(unknown) error = %v, want ErrNotFound", err)
	}

	got, err = store.Get(ctx, in.ID)
	if err != nil {
		t.Fatalf("Get after votes: %v", err)
	}
	if len(got.Feedback) != 2 {
		t.Fatalf("stored %d votes, want 2", len(got.Feedback))
	}
	if !got.Feedback[0].Positive || got.Feedback[0].Comment != "great" {
		t.Errorf("first vote = %+v", got.Feedback[0])
	}
	if got.Feedback[1].Positive {
		t.Errorf("second vote = %+v, want negative", got.Feedback[1])
	}
}
