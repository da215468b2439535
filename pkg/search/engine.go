package search

import (
	"context"
	"fmt"
	"time"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/metrics"
	"github.com/xhad/advisor/pkg/textutil"
	"go.uber.org/zap"
)

// Engine runs semantic searches against the vector index.
type Engine struct {
	index    types.VectorIndex
	embedder types.Embedder
	planner  Planner
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewEngine creates a search Engine over index.
func NewEngine(index types.VectorIndex, embedder types.Embedder, planner Planner, log *zap.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		index:    index,
		embedder: embedder,
		planner:  planner,
		log:      logger.OrNop(log).Named("search"),
		metrics:  m,
	}
}

// Search embeds the query, retrieves candidates and applies post-filters.
func (e *Engine) Search(ctx context.Context, query string, limit int, filters models.FilterSet) (*models.SearchResult, error) {
	started := time.Now()

	req, err := e.planner.Plan(query, filters, limit)
	if err != nil {
		return nil, err
	}

	hits, err := e.retrieve(ctx, req.Text, req.Fetch, req.Native)
	if err != nil {
		e.metrics.ObserveSearch("search", started, 0, err)
		return nil, err
	}

	results := Process(hits, req.Filters, req.Limit)
	e.metrics.ObserveSearch("search", started, len(results), nil)
	e.log.Debug("search served",
		zap.String("query", req.Query),
		zap.Int("limit", req.Limit),
		zap.Int("fetch", req.Fetch),
		zap.Int("retrieved", len(hits)),
		zap.Int("kept", len(results)),
	)

	return &models.SearchResult{
		Query:   req.Query,
		Total:   len(results),
		Results: results,
		Filters: req.Filters,
	}, nil
}

// Retrieve returns the raw nearest hits for free text, without post-processing.
func (e *Engine) Retrieve(ctx context.Context, text string, fetch int) ([]models.Hit, error) {
	started := time.Now()
	normalized := textutil.Normalize(text)
	if normalized == "" {
		return nil, fmt.Errorf("%w: query text is empty", models.ErrInvalidQuery)
	}

	hits, err := e.retrieve(ctx, normalized, fetch, models.NativeFilter{})
	e.metrics.ObserveSearch("retrieve", started, len(hits), err)
	return hits, err
}

func (e *Engine) retrieve(ctx context.Context, text string, fetch int, where models.NativeFilter) ([]models.Hit, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.log.Warn("embedding failed", zap.Error(err))
		return nil, models.WrapBackend("embed query", err)
	}

	hits, err := e.index.Query(ctx, vector, fetch, where)
	if err != nil {
		e.log.Warn("index query failed", zap.Error(err))
		return nil, models.WrapBackend("query index", err)
	}
	return hits, nil
}
