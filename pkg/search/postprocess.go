package search

import (
	"math"

	"github.com/xhad/advisor/internal/models"
)

// Matches reports whether doc satisfies every post-filter in fs.
// Native filters are not checked here; the index enforces them.
func Matches(doc models.Document, fs models.FilterSet) bool {
	if fs.Quartile != "" {
		q, ok := models.NormalizeQuartile(doc.Quartile)
		if !ok || q != fs.Quartile {
			return false
		}
	}

	if fs.MinImpact != nil {
		if doc.Impact == nil || *doc.Impact < *fs.MinImpact {
			return false
		}
	}

	// Undated documents pass date bounds.
	if fs.MinDate != nil && doc.HasDate() && doc.Date.Before(*fs.MinDate) {
		return false
	}
	if fs.MaxDate != nil && doc.HasDate() && doc.Date.After(*fs.MaxDate) {
		return false
	}

	return true
}

// Process filters, de-duplicates and truncates raw hits. Index order is kept;
// the first occurrence of an id wins.
func Process(hits []models.Hit, fs models.FilterSet, limit int) []models.ScoredDocument {
	post := fs.HasPostFilters()
	seen := make(map[string]bool, len(hits))
	out := make([]models.ScoredDocument, 0, min(len(hits), limit))

	for _, hit := range hits {
		if len(out) >= limit {
			break
		}
		if seen[hit.Document.ID] {
			continue
		}
		seen[hit.Document.ID] = true
		if post && !Matches(hit.Document, fs) {
			continue
		}

		out = append(out, models.ScoredDocument{
			Document:  hit.Document,
			Relevance: round3(hit.Relevance()),
			Distance:  round3(hit.Distance),
		})
	}

	return out
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
