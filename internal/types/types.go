package types

import (
	"context"

	"github.com/xhad/advisor/internal/models"
)

// VectorIndex is the document store the engine retrieves from.
type VectorIndex interface {
	// Query returns up to limit nearest documents, closest first.
	Query(ctx context.Context, embedding []float32, limit int, where models.NativeFilter) ([]models.Hit, error)
	// Scan returns every document matching where, in no particular order.
	Scan(ctx context.Context, where models.NativeFilter) ([]models.Document, error)
}

// Embedder maps text to a fixed-length vector. Identical input yields identical output.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkFunc receives streamed completion text. Returning an error stops generation.
type ChunkFunc func(ctx context.Context, chunk string) error

// CompletionModel is the language-model service.
// With a nil onChunk the call blocks until the full completion is available.
type CompletionModel interface {
	Generate(ctx context.Context, messages []models.Message, onChunk ChunkFunc) (string, error)
}
