// Package provider initializes the configured AI backend through
// Genkit and exposes a uniform generator for the pipeline.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
)

// Supported provider names.
const (
	Gemini = "gemini"
	Ollama = "ollama"
	OpenAI = "openai"
)

// Config selects and parameterizes the AI backend.
type Config struct {
	// Provider is one of gemini (default), ollama, or openai.
	Provider string

	// ModelName is the provider-qualified chat model, e.g.
	// "googleai/gemini-2.5-flash".
	ModelName string

	// EmbedderModel is the embedding model name, e.g.
	// "text-embedding-004".
	EmbedderModel string

	// OllamaHost is the Ollama server address, only used with the
	// ollama provider.
	OllamaHost string
}

// Setup initializes Genkit with the configured provider plugin and
// resolves its embedder. Supports gemini (default), ollama, and openai.
//
// API credentials come from the providers' usual environment variables
// (GEMINI_API_KEY, OPENAI_API_KEY).
func Setup(ctx context.Context, cfg Config) (*genkit.Genkit, ai.Embedder, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = Gemini
	}

	var (
		g        *genkit.Genkit
		embedder ai.Embedder
	)

	switch provider {
	case Ollama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder = ollama.Embedder(g, cfg.OllamaHost)
		slog.Info("initialized ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case OpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with openai provider")
		}
		embedder = genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
		slog.Info("initialized openai provider", "model", cfg.ModelName)

	case Gemini:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with gemini provider")
		}
		embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		slog.Info("initialized gemini provider", "model", cfg.ModelName)

	default:
		return nil, nil, fmt.Errorf("unknown provider %q (expected gemini, ollama, or openai)", provider)
	}

	if embedder == nil {
		return nil, nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, provider)
	}
	return g, embedder, nil
}
