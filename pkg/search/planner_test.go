package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/search"
)

func TestPlanRejectsInvalidInput(t *testing.T) {
	p := search.NewPlanner(search.PlannerConfig{})

	tests := []struct {
		name  string
		query string
		limit int
	}{
		{"empty query", "", 10},
		{"blank query", "   \t", 10},
		{"zero limit", "robots", 0},
		{"negative limit", "robots", -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Plan(tt.query, models.FilterSet{}, tt.limit)
			assert.ErrorIs(t, err, models.ErrInvalidQuery)
		})
	}
}

func TestPlanFetchSizing(t *testing.T) {
	p := search.NewPlanner(search.PlannerConfig{MaxLimit: 50, OverFetch: 3, MaxFetch: 120})
	impact := 2.0

	req, err := p.Plan("Redes Neuronales", models.FilterSet{}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, req.Limit)
	assert.Equal(t, 10, req.Fetch)
	assert.Nil(t, req.PostFilter)
	assert.Equal(t, "redes neuronales", req.Text)
	assert.Equal(t, "Redes Neuronales", req.Query)

	req, err = p.Plan("robots", models.FilterSet{MinImpact: &impact}, 10)
	require.NoError(t, err)
	assert.Equal(t, 30, req.Fetch)
	assert.NotNil(t, req.PostFilter)

	// Over-fetch is capped.
	req, err = p.Plan("robots", models.FilterSet{Quartile: "Q1"}, 50)
	require.NoError(t, err)
	assert.Equal(t, 120, req.Fetch)

	// Limits above the maximum are clamped.
	req, err = p.Plan("robots", models.FilterSet{}, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, req.Limit)
}

func TestPlanSplitsNativeFilters(t *testing.T) {
	p := search.NewPlanner(search.PlannerConfig{})
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	req, err := p.Plan("vision", models.FilterSet{
		Supervisor:     "Ana Ruiz",
		ProductionType: "Artículo",
		MinDate:        &from,
	}, 5)
	require.NoError(t, err)

	assert.Equal(t, models.NativeFilter{Supervisor: "Ana Ruiz", ProductionType: "Artículo"}, req.Native)
	require.NotNil(t, req.PostFilter)
	assert.False(t, req.PostFilter(models.Document{Date: from.AddDate(-1, 0, 0)}))
	assert.True(t, req.PostFilter(models.Document{Date: from}))
}
