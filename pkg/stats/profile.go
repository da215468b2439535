package stats

import (
	"sort"
	"strings"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/textutil"
)

// BuildProfile aggregates docs into a supervisor profile. recent caps
// RecentWorks; zero leaves it empty.
func BuildProfile(name string, docs []models.Document, recent int) models.SupervisorProfile {
	sorted := make([]models.Document, len(docs))
	copy(sorted, docs)
	SortNewestFirst(sorted)

	p := models.SupervisorProfile{
		Name:       name,
		TotalWorks: len(sorted),
		TypeCounts: make(map[string]int),
	}

	years := make(map[int]bool)
	categories := make(map[string]bool)
	sources := make(map[string]bool)

	for _, doc := range sorted {
		if doc.HasDate() {
			if !years[doc.Date.Year()] {
				years[doc.Date.Year()] = true
				p.ActiveYears = append(p.ActiveYears, doc.Date.Year())
			}
			if p.Latest.IsZero() {
				p.Latest = doc.Date
			}
		}
		for _, c := range distinct(doc.Categories) {
			if !categories[c] {
				categories[c] = true
				p.Categories = append(p.Categories, c)
			}
		}
		if s := strings.TrimSpace(doc.Source); s != "" && !sources[s] {
			sources[s] = true
			p.Sources = append(p.Sources, s)
		}
		if t := strings.TrimSpace(doc.ProductionType); t != "" {
			p.TypeCounts[t]++
		}

		switch classify(doc.ProductionType) {
		case teaching:
			p.Teaching++
		case project:
			p.Projects++
		default:
			p.Research++
		}
	}

	sort.Strings(p.Categories)
	sort.Strings(p.Sources)

	if recent > 0 {
		n := min(recent, len(sorted))
		p.RecentWorks = sorted[:n:n]
	}
	return p
}

// SortNewestFirst orders documents by date descending with undated documents
// last. Ties fall back to id so the order is stable across scans.
func SortNewestFirst(docs []models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.HasDate() != b.HasDate() {
			return a.HasDate()
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID < b.ID
	})
}

type workKind int

const (
	research workKind = iota
	teaching
	project
)

func classify(productionType string) workKind {
	t := textutil.Normalize(productionType)
	switch {
	case strings.Contains(t, "docencia"), strings.Contains(t, "teaching"), strings.Contains(t, "curso"):
		return teaching
	case strings.Contains(t, "proyecto"), strings.Contains(t, "project"):
		return project
	default:
		return research
	}
}
