package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/advisor/internal/types"
	"golang.org/x/time/rate"
)

var _ types.Embedder = (*Embedder)(nil)

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	RateLimit float64
}

// Embedder turns text into vectors through a langchaingo embedding client.
type Embedder struct {
	Config   EmbedderConfig
	embedder embeddings.Embedder
	limiter  *rate.Limiter
}

// NewEmbedderWithConfig creates an Embedder for the configured provider.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = embedderDefaults(config)

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch config.Provider {
	case "ollama":
		client, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	case "openai":
		opts := []openai.Option{openai.WithEmbeddingModel(config.Model), openai.WithToken(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return NewEmbedderWithClient(config, client)
}

// NewEmbedderWithClient wraps an existing embedding client.
func NewEmbedderWithClient(config EmbedderConfig, client embeddings.EmbedderClient) (*Embedder, error) {
	config = embedderDefaults(config)

	emb, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		Config:   config,
		embedder: emb,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

func embedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest" // Default Ollama model
	}
	if config.BaseURL == "" && config.Provider == "ollama" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	return config
}

// EmbedQuery returns the embedding of a single query text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("failed to create query embedding: empty vector")
	}
	return vector, nil
}

// EmbedDocuments returns one embedding per text, in order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	return vectors, nil
}
