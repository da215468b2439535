// Package cache keeps query embeddings in a shared store so repeated queries
// skip the embedding model.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/metrics"
	"go.uber.org/zap"
)

var _ types.Embedder = (*Embedder)(nil)

// EmbedderConfig controls cache entry lifetime and key namespace.
type EmbedderConfig struct {
	TTL       time.Duration // zero keeps entries until evicted
	Namespace string        // usually the embedding model name
}

// Embedder serves EmbedQuery from the store and falls back to the wrapped
// embedder on a miss. Store failures degrade to a miss.
type Embedder struct {
	inner  types.Embedder
	store  Store
	config EmbedderConfig
	log    *zap.Logger
	m      *metrics.Metrics
}

// NewEmbedder wraps inner with a cache kept in store.
func NewEmbedder(inner types.Embedder, store Store, config EmbedderConfig, log *zap.Logger, m *metrics.Metrics) *Embedder {
	return &Embedder{
		inner:  inner,
		store:  store,
		config: config,
		log:    logger.OrNop(log),
		m:      m,
	}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := e.Key(text)

	data, ok, err := e.store.Get(ctx, key)
	switch {
	case err != nil:
		e.log.Warn("embedding cache read failed", zap.Error(err))
	case ok:
		var vector []float32
		if err := json.Unmarshal(data, &vector); err == nil && len(vector) > 0 {
			e.m.CacheHit("embedding")
			return vector, nil
		}
		e.log.Warn("discarding corrupt embedding cache entry", zap.String("key", key))
	}
	e.m.CacheMiss("embedding")

	vector, err := e.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(vector)
	if err == nil {
		err = e.store.Set(ctx, key, data, e.config.TTL)
	}
	if err != nil {
		e.log.Warn("embedding cache write failed", zap.Error(err))
	}
	return vector, nil
}

// Key is the store key for text.
func (e *Embedder) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + e.config.Namespace + ":" + hex.EncodeToString(sum[:])
}
