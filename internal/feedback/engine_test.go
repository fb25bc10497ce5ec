package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/kurabase/kura/internal/article"
	"github.com/kurabase/kura/internal/testutil"
)

type fakeInteractionRepo struct {
	interactions map[string]*Interaction
	createErr    error
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{interactions: make(map[string]*Interaction)}
}

func (f *fakeInteractionRepo) Create(_ context.Context, in *Interaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *in
	f.interactions[in.ID] = &cp
	return nil
}

func (f *fakeInteractionRepo) Get(_ context.Context, id string) (*Interaction, error) {
	in, ok := f.interactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (f *fakeInteractionRepo) AppendVote(_ context.Context, id string, v Vote) error {
	in, ok := f.interactions[id]
	if !ok {
		return ErrNotFound
	}
	in.Feedback = append(in.Feedback, v)
	return nil
}

type fakeRater struct {
	article *article.Article
	err     error
}

func (f *fakeRater) ApplyFeedback(_ context.Context, _ string, positive bool, _ string) (*article.Article, error) {
	if f.err != nil {
		return nil, f.err
	}
	a := *f.article
	if positive {
		a.PositiveCount++
	} else {
		a.NegativeCount++
	}
	a.Rating = article.Rate(a.PositiveCount, a.NegativeCount)
	f.article = &a
	return &a, nil
}

type fakeScorer struct {
	articleModifiers map[string]float64
	chunkDeltas      map[string]float64
	updateErr        error
}

func newFakeScorer() *fakeScorer {
	return &fakeScorer{
		articleModifiers: make(map[string]float64),
		chunkDeltas:      make(map[string]float64),
	}
}

func (f *fakeScorer) UpdateScoresByArticleID(_ context.Context, articleID string, modifier float64) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	f.articleModifiers[articleID] = modifier
	return 2, nil
}

func (f *fakeScorer) AdjustScore(_ context.Context, chunkID string, delta float64) error {
	f.chunkDeltas[chunkID] += delta
	return nil
}

func newEngine(repo InteractionRepo, rater ArticleRater, scorer ChunkScorer) *Engine {
	return NewEngine(repo, rater, scorer, testutil.DiscardLogger())
}

func TestRecordInteraction(t *testing.T) {
	repo := newFakeInteractionRepo()
	e := newEngine(repo, &fakeRater{}, newFakeScorer())

	sources := []Source{{ChunkID: "c1", ArticleID: "a1"}, {ChunkID: "c2"}}
	in, err := e.RecordInteraction(context.Background(), "why?", "because.", "a hint", sources)
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	if in.ID == "" {
		t.Error("interaction ID is empty")
	}
	if len(in.Feedback) != 0 {
		t.Errorf("new interaction has %d votes, want 0", len(in.Feedback))
	}

	stored, err := e.GetInteraction(context.Background(), in.ID)
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if stored.Query != "why?" || stored.Response != "because." {
		t.Errorf("stored interaction = %+v", stored)
	}
	if stored.UserContext != "a hint" {
		t.Errorf("user context = %q, want %q", stored.UserContext, "a hint")
	}
	if len(stored.Sources) != 2 {
		t.Errorf("stored %d sources, want 2", len(stored.Sources))
	}
}

func TestSubmitArticleFeedbackPropagatesRating(t *testing.T) {
	rater := &fakeRater{article: &article.Article{ID: "a1", Rating: 1.0}}
	scorer := newFakeScorer()
	e := newEngine(newFakeInteractionRepo(), rater, scorer)
	ctx := context.Background()

	// Three up, one down: the rating, and therefore the propagated
	// modifier, must land at 1.625.
	for range 3 {
		if _, err := e.SubmitArticleFeedback(ctx, "a1", true, ""); err != nil {
			t.Fatalf("SubmitArticleFeedback: %v", err)
		}
	}
	a, err := e.SubmitArticleFeedback(ctx, "a1", false, "meh")
	if err != nil {
		t.Fatalf("SubmitArticleFeedback: %v", err)
	}

	if a.Rating != 1.625 {
		t.Errorf("rating = %v, want 1.625", a.Rating)
	}
	if got := scorer.articleModifiers["a1"]; got != 1.625 {
		t.Errorf("propagated modifier = %v, want 1.625", got)
	}
}

func TestSubmitArticleFeedbackSurvivesPropagationFailure(t *testing.T) {
	rater := &fakeRater{article: &article.Article{ID: "a1", Rating: 1.0}}
	scorer := newFakeScorer()
	scorer.updateErr = errors.New("index offline")
	e := newEngine(newFakeInteractionRepo(), rater, scorer)

	a, err := e.SubmitArticleFeedback(context.Background(), "a1", true, "")
	if err != nil {
		t.Fatalf("SubmitArticleFeedback: %v", err)
	}
	if a.PositiveCount != 1 {
		t.Errorf("vote lost: positive count = %d, want 1", a.PositiveCount)
	}
}

func TestSubmitArticleFeedbackUnknownArticle(t *testing.T) {
	rater := &fakeRater{err: article.ErrNotFound}
	e := newEngine(newFakeInteractionRepo(), rater, newFakeScorer())

	if _, err := e.SubmitArticleFeedback(context.Background(), "missing", true, ""); !errors.Is(err, article.ErrNotFound) {
		t.Errorf("SubmitArticleFeedback error = %v, want article.ErrNotFound", err)
	}
}

func TestSubmitInteractionFeedback(t *testing.T) {
	repo := newFakeInteractionRepo()
	scorer := newFakeScorer()
	e := newEngine(repo, &fakeRater{}, scorer)
	ctx := context.Background()

	in, err := e.RecordInteraction(ctx, "q", "r", "", []Source{
		{ChunkID: "c1"}, {ChunkID: "c2"},
	})
	if err != nil {
		t.Fatalf("RecordInteraction: %v", err)
	}

	if err := e.SubmitInteractionFeedback(ctx, in.ID, true, "helpful"); err != nil {
		t.Fatalf("SubmitInteractionFeedback: %v", err)
	}
	for _, id := range []string{"c1", "c2"} {
		if got := scorer.chunkDeltas[id]; got != ScoreDelta {
			t.Errorf("chunk %s delta = %v, want %v", id, got, ScoreDelta)
		}
	}

	if err := e.SubmitInteractionFeedback(ctx, in.ID, false, ""); err != nil {
		t.Fatalf("SubmitInteractionFeedback: %v", err)
	}
	for _, id := range []string{"c1", "c2"} {
		if got := scorer.chunkDeltas[id]; got != 0 {
			t.Errorf("chunk %s delta after up and down vote = %v, want 0", id, got)
		}
	}

	stored, err := e.GetInteraction(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetInteraction: %v", err)
	}
	if len(stored.Feedback) != 2 {
		t.Errorf("stored %d votes, want 2", len(stored.Feedback))
	}
	if !stored.Feedback[0].Positive || stored.Feedback[1].Positive {
		t.Errorf("vote polarity stored wrong: %+v", stored.Feedback)
	}
}

func TestSubmitInteractionFeedbackUnknownInteraction(t *testing.T) {
	e := newEngine(newFakeInteractionRepo(), &fakeRater{}, newFakeScorer())

	err := e.SubmitInteractionFeedback(context.Background(), "missing", true, "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SubmitInteractionFeedback error = %v, want ErrNotFound", err)
	}
}
