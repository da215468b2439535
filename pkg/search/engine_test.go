package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/testkit"
	"github.com/xhad/advisor/pkg/metrics"
	"github.com/xhad/advisor/pkg/search"
)

func newEngine(t *testing.T, docs ...models.Document) (*search.Engine, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	return search.NewEngine(testkit.NewCorpus(t, docs...), &testkit.HashEmbedder{},
		search.NewPlanner(search.PlannerConfig{}), nil, m), m
}

func corpus() []models.Document {
	now := time.Now().UTC()
	return []models.Document{
		testkit.Doc("ana-1", "Ana Ruiz", "Robot navigation with reinforcement learning", now,
			testkit.WithImpact(2.5), testkit.WithQuartile("Q1"), testkit.WithCategories("Robotics")),
		testkit.Doc("ana-2", "Ana Ruiz", "Robot grasping with deep learning", now,
			testkit.WithImpact(2.5), testkit.WithQuartile("Q1"), testkit.WithCategories("Robotics")),
		testkit.Doc("luis-1", "Luis Gil", "Query optimisation in relational databases", testkit.Year(2019),
			testkit.WithType("Congreso"), testkit.WithCategories("Databases")),
	}
}

func TestSearchImpactThreshold(t *testing.T) {
	e, _ := newEngine(t, corpus()...)
	ctx := context.Background()

	filters, err := models.ParseFilters(map[string]any{"min_if_sjr": 2.0})
	require.NoError(t, err)
	res, err := e.Search(ctx, "robot learning", 10, filters)
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	for _, r := range res.Results {
		assert.Equal(t, "Ana Ruiz", r.Supervisor)
		assert.GreaterOrEqual(t, *r.Impact, 2.0)
	}

	filters, err = models.ParseFilters(map[string]any{"min_if_sjr": 3.0})
	require.NoError(t, err)
	res, err = e.Search(ctx, "robot learning", 10, filters)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Results)
}

func TestSearchResultInvariants(t *testing.T) {
	e, m := newEngine(t, corpus()...)

	res, err := e.Search(context.Background(), "robot", 2, models.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, "robot", res.Query)
	assert.Equal(t, len(res.Results), res.Total)
	assert.LessOrEqual(t, res.Total, 2)

	ids := map[string]bool{}
	for i, r := range res.Results {
		assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
		ids[r.ID] = true
		assert.GreaterOrEqual(t, r.Relevance, 0.0)
		assert.LessOrEqual(t, r.Relevance, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, r.Relevance, res.Results[i-1].Relevance)
		}
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues("search", "ok")))
}

func TestSearchNativeFilters(t *testing.T) {
	e, _ := newEngine(t, corpus()...)

	res, err := e.Search(context.Background(), "robot", 10, models.FilterSet{ProductionType: "Congreso"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "luis-1", res.Results[0].ID)
}

func TestSearchInvalidQuery(t *testing.T) {
	e, _ := newEngine(t, corpus()...)

	_, err := e.Search(context.Background(), "  ", 10, models.FilterSet{})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)

	_, err = e.Search(context.Background(), "robot", 0, models.FilterSet{})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}

func TestSearchBackendUnavailable(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := search.NewEngine(testkit.FailingIndex{Err: errors.New("connection refused")}, &testkit.HashEmbedder{},
		search.NewPlanner(search.PlannerConfig{}), nil, m)

	_, err := e.Search(context.Background(), "robot", 10, models.FilterSet{})
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchTotal.WithLabelValues("search", "error")))

	e = search.NewEngine(testkit.NewCorpus(t), &testkit.HashEmbedder{Err: errors.New("ollama down")},
		search.NewPlanner(search.PlannerConfig{}), nil, nil)
	_, err = e.Search(context.Background(), "robot", 10, models.FilterSet{})
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
}

func TestRetrieve(t *testing.T) {
	e, _ := newEngine(t, corpus()...)

	hits, err := e.Retrieve(context.Background(), "Robot grasping", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "ana-2", hits[0].Document.ID)

	_, err = e.Retrieve(context.Background(), "?!", 5)
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}
