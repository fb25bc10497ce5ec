package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/kurabase/kura/internal/testutil"
)

func TestGeneratorReturnsModelText(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := testutil.NewMockModel("fallback answer")
	mock.AddResponse("goroutines", "Goroutines are lightweight threads.")
	mock.Register(g)

	gen := NewGenerator(g, "mock/test-model")

	got, err := gen.Generate(ctx, "Tell me about goroutines.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Goroutines are lightweight threads." {
		t.Errorf("Generate = %q", got)
	}

	got, err = gen.Generate(ctx, "Something unrelated.")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "fallback answer" {
		t.Errorf("Generate = %q, want fallback", got)
	}

	calls := mock.Calls()
	if len(calls) != 2 {
		t.Fatalf("model saw %d calls, want 2", len(calls))
	}
	if !strings.Contains(calls[0], "goroutines") {
		t.Errorf("first prompt = %q", calls[0])
	}
}

func TestSetupRejectsUnknownProvider(t *testing.T) {
	_, _, err := Setup(context.Background(), Config{Provider: "cohere"})
	if err == nil {
		t.Fatal("Setup succeeded for unknown provider, want error")
	}
	if !strings.Contains(err.Error(), "cohere") {
		t.Errorf("error %q does not name the provider", err)
	}
}
