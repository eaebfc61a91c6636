package embeddings

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/storyforge/internal/config"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// New returns the embedder selected by cfg.EmbeddingProvider. Remote
// embedders fall back to the local one when their credentials are missing,
// so recall keeps working offline.
func New(cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingLocal, "":
		return NewLocalEmbedder(DefaultLocalDimensions), nil
	case config.EmbeddingOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return NewLocalEmbedder(DefaultLocalDimensions), nil
		}
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, ModelTextEmbedding3Small, ""), nil
	case config.EmbeddingGoogle:
		if cfg.GoogleAPIKey == "" {
			return NewLocalEmbedder(DefaultLocalDimensions), nil
		}
		return NewGoogleEmbedder(cfg.GoogleAPIKey, ModelGeminiEmbedding001), nil
	case config.EmbeddingOllama:
		return NewOllamaEmbedder("nomic-embed-text", 768, cfg.OllamaHost), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}
