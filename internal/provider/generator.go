package provider

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Generator produces completions through Genkit. It satisfies the
// pipeline's generator dependency.
type Generator struct {
	g         *genkit.Genkit
	modelName string
}

// NewGenerator creates a Generator. modelName may be empty to use the
// plugin's default model.
func NewGenerator(g *genkit.Genkit, modelName string) *Generator {
	return &Generator{g: g, modelName: modelName}
}

// Generate runs one completion for the prompt and returns the model's
// text response.
func (gen *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []ai.GenerateOption{ai.WithPrompt(prompt)}
	if gen.modelName != "" {
		opts = append(opts, ai.WithModelName(gen.modelName))
	}

	response, err := genkit.Generate(ctx, gen.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return response.Text(), nil
}
