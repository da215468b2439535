package search

import (
	"fmt"
	"strings"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/textutil"
)

// PlannerConfig bounds how much a search may ask of the index.
type PlannerConfig struct {
	MaxLimit  int // largest limit a caller may ask for
	OverFetch int // multiple of limit fetched when post-filters are active
	MaxFetch  int // hard cap on documents requested from the index
}

// Planner turns a query and filter set into a retrieval request.
type Planner struct {
	config PlannerConfig
}

// Request is a planned retrieval.
type Request struct {
	Query      string // as given by the caller
	Text       string // normalised text sent to the embedder
	Limit      int
	Fetch      int
	Filters    models.FilterSet
	Native     models.NativeFilter
	PostFilter func(models.Document) bool // nil when no post-filter is active
}

// NewPlanner creates a Planner, filling unset limits with defaults.
func NewPlanner(config PlannerConfig) Planner {
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	if config.OverFetch <= 0 {
		config.OverFetch = 3
	}
	if config.MaxFetch < config.MaxLimit {
		config.MaxFetch = config.MaxLimit * config.OverFetch
	}
	return Planner{config: config}
}

// Plan validates the input and decides how many documents to pull from the
// index. When post-filters are present it over-fetches, bounded by MaxFetch;
// a shortfall after filtering is accepted.
func (p Planner) Plan(query string, filters models.FilterSet, limit int) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query text is empty", models.ErrInvalidQuery)
	}
	if limit <= 0 {
		return Request{}, fmt.Errorf("%w: limit must be positive, got %d", models.ErrInvalidQuery, limit)
	}
	if limit > p.config.MaxLimit {
		limit = p.config.MaxLimit
	}

	text := textutil.Normalize(query)
	if text == "" {
		text = query
	}

	req := Request{
		Query:   query,
		Text:    text,
		Limit:   limit,
		Fetch:   limit,
		Filters: filters,
		Native:  filters.Native(),
	}

	if filters.HasPostFilters() {
		req.Fetch = limit * p.config.OverFetch
		if req.Fetch > p.config.MaxFetch {
			req.Fetch = p.config.MaxFetch
		}
		if req.Fetch < limit {
			req.Fetch = limit
		}
		req.PostFilter = func(doc models.Document) bool {
			return Matches(doc, filters)
		}
	}

	return req, nil
}
