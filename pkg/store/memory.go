package store

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
)

var _ types.VectorIndex = (*Memory)(nil)

// Memory is an in-process index using brute-force cosine distance.
// It backs tests and small local corpora.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	docs    []models.Document
	vectors [][]float32
	byID    map[string]int
}

// NewMemory creates an empty index for vectors of length dim.
func NewMemory(dim int) *Memory {
	return &Memory{dim: dim, byID: make(map[string]int)}
}

// Upsert inserts or replaces documents by id.
func (m *Memory) Upsert(_ context.Context, docs []models.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	for _, v := range vectors {
		if len(v) != m.dim {
			return errors.New("vector dimension mismatch")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, doc := range docs {
		if j, ok := m.byID[doc.ID]; ok {
			m.docs[j] = doc
			m.vectors[j] = vectors[i]
			continue
		}
		m.byID[doc.ID] = len(m.docs)
		m.docs = append(m.docs, doc)
		m.vectors = append(m.vectors, vectors[i])
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, embedding []float32, limit int, where models.NativeFilter) ([]models.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]models.Hit, 0, len(m.docs))
	for i, doc := range m.docs {
		if !matches(doc, where) {
			continue
		}
		hits = append(hits, models.Hit{Document: doc, Distance: cosineDistance(embedding, m.vectors[i])})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *Memory) Scan(ctx context.Context, where models.NativeFilter) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Document
	for _, doc := range m.docs {
		if matches(doc, where) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Len reports how many documents are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func matches(doc models.Document, where models.NativeFilter) bool {
	if where.Supervisor != "" && doc.Supervisor != where.Supervisor {
		return false
	}
	if where.ProductionType != "" && doc.ProductionType != where.ProductionType {
		return false
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
