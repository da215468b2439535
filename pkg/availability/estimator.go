package availability

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/logger"
	"go.uber.org/zap"
)

// EstimatorConfig sets the recency window and label thresholds.
type EstimatorConfig struct {
	WindowYears     int // recent means dated within this many calendar years
	HighThreshold   int
	MediumThreshold int
	Now             func() time.Time
}

// Estimator labels supervisors by how much they published recently.
type Estimator struct {
	config EstimatorConfig
	index  types.VectorIndex
	log    *zap.Logger
}

// NewEstimator creates an Estimator with defaults for unset fields.
func NewEstimator(index types.VectorIndex, config EstimatorConfig, log *zap.Logger) *Estimator {
	if config.WindowYears <= 0 {
		config.WindowYears = 3
	}
	if config.HighThreshold <= 0 {
		config.HighThreshold = 5
	}
	if config.MediumThreshold <= 0 {
		config.MediumThreshold = 2
	}
	if config.MediumThreshold > config.HighThreshold {
		config.MediumThreshold = config.HighThreshold
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Estimator{
		config: config,
		index:  index,
		log:    logger.OrNop(log).Named("availability"),
	}
}

// Label maps a recent-work count onto High, Medium or Low.
func (e *Estimator) Label(recent int) models.AvailabilityLabel {
	switch {
	case recent >= e.config.HighThreshold:
		return models.AvailabilityHigh
	case recent >= e.config.MediumThreshold:
		return models.AvailabilityMedium
	default:
		return models.AvailabilityLow
	}
}

// Rank scans the corpus and returns every supervisor that owns at least one
// document, by recent count descending then name.
func (e *Estimator) Rank(ctx context.Context) ([]models.Availability, error) {
	docs, err := e.index.Scan(ctx, models.NativeFilter{})
	if err != nil {
		return nil, models.WrapBackend("scan corpus", err)
	}

	since := e.config.Now().Year() - e.config.WindowYears
	rows := make(map[string]*models.Availability)
	cats := make(map[string]map[string]bool)

	for _, doc := range docs {
		name := strings.TrimSpace(doc.Supervisor)
		if name == "" {
			continue
		}

		row, ok := rows[name]
		if !ok {
			row = &models.Availability{Supervisor: name}
			rows[name] = row
			cats[name] = make(map[string]bool)
		}
		row.Total++
		if doc.HasDate() && doc.Date.Year() >= since {
			row.Recent++
		}
		for _, c := range doc.Categories {
			if c = strings.TrimSpace(c); c != "" && !cats[name][c] {
				cats[name][c] = true
				row.Categories = append(row.Categories, c)
			}
		}
	}

	out := make([]models.Availability, 0, len(rows))
	for _, row := range rows {
		row.Label = e.Label(row.Recent)
		sort.Strings(row.Categories)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Recent != out[j].Recent {
			return out[i].Recent > out[j].Recent
		}
		return out[i].Supervisor < out[j].Supervisor
	})

	e.log.Debug("availability ranked", zap.Int("supervisors", len(out)), zap.Int("since_year", since))
	return out, nil
}
