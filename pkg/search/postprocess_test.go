package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/testkit"
	"github.com/xhad/advisor/pkg/search"
)

func ptr[T any](v T) *T { return &v }

func TestMatches(t *testing.T) {
	doc := testkit.Doc("a", "Ana Ruiz", "Robots", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		testkit.WithImpact(2.5), testkit.WithQuartile("q1"))
	undated := testkit.Doc("u", "Ana Ruiz", "Undated", time.Time{})

	tests := []struct {
		name string
		doc  models.Document
		fs   models.FilterSet
		want bool
	}{
		{"no filters", doc, models.FilterSet{}, true},
		{"impact at threshold", doc, models.FilterSet{MinImpact: ptr(2.5)}, true},
		{"impact below threshold", doc, models.FilterSet{MinImpact: ptr(3.0)}, false},
		{"missing impact fails impact filter", undated, models.FilterSet{MinImpact: ptr(0.0)}, false},
		{"quartile normalised", doc, models.FilterSet{Quartile: "Q1"}, true},
		{"quartile mismatch", doc, models.FilterSet{Quartile: "Q2"}, false},
		{"min date inclusive", doc, models.FilterSet{MinDate: ptr(time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC))}, true},
		{"after max date", doc, models.FilterSet{MaxDate: ptr(time.Date(2023, 6, 14, 0, 0, 0, 0, time.UTC))}, false},
		{"undated passes date range", undated, models.FilterSet{
			MinDate: ptr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
			MaxDate: ptr(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)),
		}, true},
		{"all constraints must hold", doc, models.FilterSet{Quartile: "Q1", MinImpact: ptr(5.0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, search.Matches(tt.doc, tt.fs))
		})
	}
}

func TestProcessDeduplicatesAndKeepsOrder(t *testing.T) {
	year := testkit.Year(2024)
	hits := []models.Hit{
		{Document: testkit.Doc("a", "Ana Ruiz", "A", year, testkit.WithImpact(1)), Distance: 0.1},
		{Document: testkit.Doc("b", "Ana Ruiz", "B", year, testkit.WithImpact(4)), Distance: 0.2},
		{Document: testkit.Doc("a", "Ana Ruiz", "A again", year, testkit.WithImpact(9)), Distance: 0.25},
		{Document: testkit.Doc("c", "Luis Gil", "C", year, testkit.WithImpact(3)), Distance: 1.4},
	}

	got := search.Process(hits, models.FilterSet{}, 10)
	assert.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "A", got[0].Title)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
	assert.Equal(t, 0.9, got[0].Relevance)
	assert.Equal(t, 0.0, got[2].Relevance)

	got = search.Process(hits, models.FilterSet{MinImpact: ptr(2.0)}, 10)
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	got = search.Process(hits, models.FilterSet{}, 1)
	assert.Len(t, got, 1)
}
