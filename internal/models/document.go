package models

import "time"

// Document is one indexed publication or work item attributed to a supervisor.
type Document struct {
	ID             string
	Supervisor     string
	Title          string
	Content        string
	ProductionType string
	Kind           string
	Date           time.Time // zero when the source carried no usable date
	Quartile       string
	Impact         *float64
	Categories     []string
	Source         string
}

// HasDate reports whether the document carries a publication date.
func (d Document) HasDate() bool {
	return !d.Date.IsZero()
}

// Hit is a raw similarity match returned by a vector index.
type Hit struct {
	Document Document
	Distance float64
}

// Relevance converts the cosine distance of a hit into a similarity in [0,1].
func (h Hit) Relevance() float64 {
	r := 1 - h.Distance
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// ScoredDocument is a document shaped for a search response.
type ScoredDocument struct {
	Document
	Relevance float64
	Distance  float64
}

// SearchResult is built per call and never persisted.
type SearchResult struct {
	Query   string
	Total   int
	Results []ScoredDocument
	Filters FilterSet
}
