package models

import (
	"strings"
	"time"
)

// SupervisorProfile is an aggregated view over every document one supervisor owns.
// It is recomputed from the document store on each request.
type SupervisorProfile struct {
	Name        string
	TotalWorks  int
	ActiveYears []int // newest first
	Categories  []string
	Sources     []string
	TypeCounts  map[string]int
	RecentWorks []Document
	Latest      time.Time
	Teaching    int
	Projects    int
	Research    int
}

// SupervisorSummary is one row of the supervisor listing.
type SupervisorSummary struct {
	Name       string
	TotalWorks int
	TypeCounts map[string]int
	Categories []string
}

// CountEntry is a label with its document count.
type CountEntry struct {
	Label string
	Count int
}

// CorpusStats is the cached, corpus-wide aggregate.
type CorpusStats struct {
	TotalDocuments   int
	TotalSupervisors int
	Supervisors      []string
	YearCounts       map[int]int
	Years            []int // newest first
	CategoryCounts   map[string]int
	TopCategories    []CountEntry
	TypeCounts       map[string]int
	ComputedAt       time.Time
}

// StudentProfile is owned by an external store and only read here.
type StudentProfile struct {
	Name           string `yaml:"name"`
	Degree         string `yaml:"degree"`
	Year           int    `yaml:"year"`
	Interests      string `yaml:"interests"`
	Skills         string `yaml:"skills"`
	PreferredAreas string `yaml:"preferred_areas"`
}

// HasSignal reports whether the profile carries any text to rank on.
func (p StudentProfile) HasSignal() bool {
	return strings.TrimSpace(p.Interests) != "" ||
		strings.TrimSpace(p.Skills) != "" ||
		strings.TrimSpace(p.PreferredAreas) != ""
}

// Recommendation is a supervisor ranked against a student profile.
type Recommendation struct {
	Profile         SupervisorProfile
	Score           float64
	Relevance       float64
	CategoryOverlap float64
	Quality         float64
	Matched         int
}

// AvailabilityLabel is a coarse recency-based activity estimate.
type AvailabilityLabel string

const (
	AvailabilityHigh   AvailabilityLabel = "High"
	AvailabilityMedium AvailabilityLabel = "Medium"
	AvailabilityLow    AvailabilityLabel = "Low"
)

// Availability is one row of the availability ranking.
type Availability struct {
	Supervisor string
	Label      AvailabilityLabel
	Recent     int
	Total      int
	Categories []string
}
