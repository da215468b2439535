package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/stats"
	"github.com/xhad/advisor/pkg/textutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Retriever returns raw nearest hits for free text.
type Retriever interface {
	Retrieve(ctx context.Context, text string, fetch int) ([]models.Hit, error)
}

// Corpus gives access to every document of a supervisor.
type Corpus interface {
	SupervisorDocuments(ctx context.Context, name string, limit int) ([]models.Document, error)
}

// ScorerConfig holds the score weights and retrieval sizes.
type ScorerConfig struct {
	RelevanceWeight float64
	CategoryWeight  float64
	QualityWeight   float64
	Candidates      int     // hits retrieved for the synthesised query
	ImpactCeiling   float64 // impact value that scores 1.0
	Workers         int     // concurrent supervisor loads
	RecentWorks     int
}

// Scorer ranks supervisors against a student profile.
type Scorer struct {
	config    ScorerConfig
	retriever Retriever
	corpus    Corpus
	log       *zap.Logger
}

var quartileScore = map[string]float64{
	"Q1": 1.0,
	"Q2": 0.75,
	"Q3": 0.5,
	"Q4": 0.25,
}

// NewScorer creates a Scorer. Weights default to .5/.3/.2 and must be
// non-negative and sum to 1.
func NewScorer(config ScorerConfig, retriever Retriever, corpus Corpus, log *zap.Logger) (*Scorer, error) {
	if config.RelevanceWeight == 0 && config.CategoryWeight == 0 && config.QualityWeight == 0 {
		config.RelevanceWeight, config.CategoryWeight, config.QualityWeight = 0.5, 0.3, 0.2
	}
	if config.Candidates <= 0 {
		config.Candidates = 100
	}
	if config.ImpactCeiling <= 0 {
		config.ImpactCeiling = 10
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.RecentWorks <= 0 {
		config.RecentWorks = 10
	}

	for _, w := range []float64{config.RelevanceWeight, config.CategoryWeight, config.QualityWeight} {
		if w < 0 {
			return nil, fmt.Errorf("recommendation weights cannot be negative")
		}
	}
	sum := config.RelevanceWeight + config.CategoryWeight + config.QualityWeight
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("recommendation weights must sum to 1, got %.4f", sum)
	}

	return &Scorer{
		config:    config,
		retriever: retriever,
		corpus:    corpus,
		log:       logger.OrNop(log).Named("recommend"),
	}, nil
}

// Query synthesises the retrieval text from a student profile.
func Query(p models.StudentProfile) string {
	var parts []string
	for _, s := range []string{p.Interests, p.Skills, p.PreferredAreas} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

type candidate struct {
	name      string
	relevance float64
	matched   int
}

// Recommend returns up to limit supervisors ordered by compatibility score,
// then total works descending, then name. Supervisors without a matched
// document are left out.
func (s *Scorer) Recommend(ctx context.Context, student models.StudentProfile, limit int) ([]models.Recommendation, error) {
	query := Query(student)
	if !student.HasSignal() || textutil.Normalize(query) == "" {
		return nil, models.ErrNoSignal
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", models.ErrInvalidQuery, limit)
	}

	hits, err := s.retriever.Retrieve(ctx, query, s.config.Candidates)
	if err != nil {
		return nil, err
	}
	candidates := group(hits)
	if len(candidates) == 0 {
		return nil, nil
	}

	areas := textutil.SplitList(student.PreferredAreas)
	recs := make([]models.Recommendation, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i, c := range candidates {
		g.Go(func() error {
			docs, err := s.corpus.SupervisorDocuments(gctx, c.name, 0)
			if err != nil {
				return fmt.Errorf("load supervisor %q: %w", c.name, err)
			}
			recs[i] = s.score(c, stats.BuildProfile(c.name, docs, s.config.RecentWorks), docs, areas)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Profile.TotalWorks != b.Profile.TotalWorks {
			return a.Profile.TotalWorks > b.Profile.TotalWorks
		}
		return a.Profile.Name < b.Profile.Name
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}

	s.log.Debug("recommendations ranked",
		zap.Int("hits", len(hits)),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(recs)),
	)
	return recs, nil
}

func (s *Scorer) score(c candidate, profile models.SupervisorProfile, docs []models.Document, areas []string) models.Recommendation {
	overlap := CategoryOverlap(areas, profile.Categories)
	quality := Quality(docs, s.config.ImpactCeiling)

	score := s.config.RelevanceWeight*c.relevance +
		s.config.CategoryWeight*overlap +
		s.config.QualityWeight*quality

	return models.Recommendation{
		Profile:         profile,
		Score:           round4(score),
		Relevance:       round4(c.relevance),
		CategoryOverlap: round4(overlap),
		Quality:         round4(quality),
		Matched:         c.matched,
	}
}

// group averages hit relevance per supervisor. Hits with no similarity do not
// count as matches. Candidates keep the order of their first hit.
func group(hits []models.Hit) []candidate {
	var out []candidate
	index := make(map[string]int)
	seen := make(map[string]bool)
	sums := make(map[string]float64)

	for _, h := range hits {
		name := strings.TrimSpace(h.Document.Supervisor)
		if name == "" || seen[h.Document.ID] || h.Relevance() <= 0 {
			continue
		}
		seen[h.Document.ID] = true

		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, candidate{name: name})
		}
		out[i].matched++
		sums[name] += h.Relevance()
	}

	for i := range out {
		out[i].relevance = sums[out[i].name] / float64(out[i].matched)
	}
	return out
}

// CategoryOverlap is the fraction of normalised areas found among the
// categories, by exact match or word-bounded containment either way.
func CategoryOverlap(areas, categories []string) float64 {
	if len(areas) == 0 {
		return 0
	}

	normalized := make([]string, 0, len(categories))
	for _, c := range categories {
		if n := textutil.Normalize(c); n != "" {
			normalized = append(normalized, n)
		}
	}

	found := 0
	for _, area := range areas {
		for _, c := range normalized {
			if c == area || textutil.ContainsPhrase(c, area) || textutil.ContainsPhrase(area, c) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(areas))
}

// Quality averages per-document quality over the documents that carry a
// quartile or an impact value. It is 0 when none do.
func Quality(docs []models.Document, impactCeiling float64) float64 {
	var total float64
	rated := 0

	for _, doc := range docs {
		var sum float64
		n := 0
		if q, ok := models.NormalizeQuartile(doc.Quartile); ok {
			sum += quartileScore[q]
			n++
		}
		if doc.Impact != nil && impactCeiling > 0 {
			sum += math.Min(math.Max(*doc.Impact, 0)/impactCeiling, 1)
			n++
		}
		if n == 0 {
			continue
		}
		total += sum / float64(n)
		rated++
	}

	if rated == 0 {
		return 0
	}
	return total / float64(rated)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
