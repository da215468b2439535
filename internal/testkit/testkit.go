// Package testkit holds deterministic collaborators shared by package tests.
package testkit

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/store"
	"github.com/xhad/advisor/pkg/textutil"
)

// Dim is the vector size produced by HashEmbedder.
const Dim = 256

// HashEmbedder is a bag-of-words embedder: every normalised token bumps one
// hashed dimension. Texts sharing words end up close in cosine distance.
type HashEmbedder struct {
	mu    sync.Mutex
	Calls int
	Err   error
}

func (h *HashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	h.mu.Lock()
	h.Calls++
	err := h.Err
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return Vector(text), nil
}

// Vector returns the hashed bag-of-words vector of text.
func Vector(text string) []float32 {
	v := make([]float32, Dim)
	for _, tok := range textutil.Tokens(text, 2) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		v[f.Sum32()%Dim]++
	}
	return v
}

// EmbeddingText is what a document is indexed on.
func EmbeddingText(d models.Document) string {
	return strings.Join([]string{d.Title, d.Content, strings.Join(d.Categories, " ")}, " ")
}

// NewCorpus indexes docs into an in-memory store.
func NewCorpus(t testing.TB, docs ...models.Document) *store.Memory {
	t.Helper()

	m := store.NewMemory(Dim)
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		vectors[i] = Vector(EmbeddingText(d))
	}
	if err := m.Upsert(context.Background(), docs, vectors); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}
	return m
}

// Doc is a compact document constructor for tables.
func Doc(id, supervisor, title string, date time.Time, opts ...func(*models.Document)) models.Document {
	d := models.Document{
		ID:             id,
		Supervisor:     supervisor,
		Title:          title,
		Content:        title,
		ProductionType: "Artículo",
		Date:           date,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func WithImpact(f float64) func(*models.Document) {
	return func(d *models.Document) { d.Impact = &f }
}

func WithQuartile(q string) func(*models.Document) {
	return func(d *models.Document) { d.Quartile = q }
}

func WithCategories(c ...string) func(*models.Document) {
	return func(d *models.Document) { d.Categories = c }
}

func WithType(t string) func(*models.Document) {
	return func(d *models.Document) { d.ProductionType = t }
}

func WithContent(c string) func(*models.Document) {
	return func(d *models.Document) { d.Content = c }
}

// Year returns January 1st of y, UTC.
func Year(y int) time.Time {
	return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
}

// FailingIndex fails every call with Err.
type FailingIndex struct {
	Err error
}

func (f FailingIndex) Query(context.Context, []float32, int, models.NativeFilter) ([]models.Hit, error) {
	return nil, f.Err
}

func (f FailingIndex) Scan(context.Context, models.NativeFilter) ([]models.Document, error) {
	return nil, f.Err
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
