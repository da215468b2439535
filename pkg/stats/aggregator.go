package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/metrics"
	"github.com/xhad/advisor/pkg/textutil"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheName = "stats"

// AggregatorConfig controls snapshot freshness and profile size.
type AggregatorConfig struct {
	TTL           time.Duration
	StrictRefresh bool // recompute synchronously instead of serving a stale snapshot
	RecentWorks   int
	TopCategories int
	Now           func() time.Time
}

// Aggregator owns the corpus statistics cache. The snapshot is replaced as a
// whole, so readers see either the old or the new value and never a mix.
type Aggregator struct {
	config  AggregatorConfig
	index   types.VectorIndex
	log     *zap.Logger
	metrics *metrics.Metrics

	current    atomic.Pointer[snapshot]
	refreshing atomic.Bool
	group      singleflight.Group
}

type snapshot struct {
	stats       *models.CorpusStats
	roster      map[string][]string // normalised name -> stored spellings
	summaries   []models.SupervisorSummary
	typeEntries []models.CountEntry
	at          time.Time
}

// NewAggregator creates an Aggregator over index. Nothing is read until the first call.
func NewAggregator(index types.VectorIndex, config AggregatorConfig, log *zap.Logger, m *metrics.Metrics) *Aggregator {
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.RecentWorks <= 0 {
		config.RecentWorks = 10
	}
	if config.TopCategories <= 0 {
		config.TopCategories = 10
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Aggregator{
		config:  config,
		index:   index,
		log:     logger.OrNop(log).Named("stats"),
		metrics: m,
	}
}

// Stats returns the cached corpus statistics. Two calls within the TTL return
// the same snapshot. The returned value is shared and must not be modified.
func (a *Aggregator) Stats(ctx context.Context) (*models.CorpusStats, error) {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.stats, nil
}

// Roster returns every supervisor name in the corpus, sorted.
func (a *Aggregator) Roster(ctx context.Context) ([]string, error) {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.stats.Supervisors, nil
}

// Supervisors lists every supervisor with totals, by total descending then name.
func (a *Aggregator) Supervisors(ctx context.Context) ([]models.SupervisorSummary, error) {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.summaries, nil
}

// ProductionTypes lists production types by document count descending.
func (a *Aggregator) ProductionTypes(ctx context.Context) ([]models.CountEntry, error) {
	snap, err := a.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.typeEntries, nil
}

func (a *Aggregator) snapshot(ctx context.Context) (*snapshot, error) {
	cur := a.current.Load()
	if cur != nil && a.fresh(cur) {
		a.metrics.CacheHit(cacheName)
		return cur, nil
	}
	a.metrics.CacheMiss(cacheName)

	if cur == nil || a.config.StrictRefresh {
		return a.refresh(ctx)
	}

	// Serve stale while one background refresh runs.
	if a.refreshing.CompareAndSwap(false, true) {
		go func() {
			defer a.refreshing.Store(false)
			_, _ = a.refresh(context.WithoutCancel(ctx))
		}()
	}
	a.log.Debug("serving stale stats", zap.Time("computed_at", cur.at))
	return cur, nil
}

func (a *Aggregator) fresh(s *snapshot) bool {
	return a.config.Now().Sub(s.at) < a.config.TTL
}

func (a *Aggregator) refresh(ctx context.Context) (*snapshot, error) {
	v, err, _ := a.group.Do(cacheName, func() (any, error) {
		// A concurrent caller may have published while this one queued.
		if cur := a.current.Load(); cur != nil && a.fresh(cur) {
			return cur, nil
		}

		started := time.Now()
		snap, err := a.compute(ctx)
		a.metrics.CacheRefresh(cacheName, err)
		if err != nil {
			a.log.Error("stats refresh failed", zap.Error(err))
			return nil, err
		}

		a.current.Store(snap)
		a.log.Info("stats refreshed",
			zap.Int("documents", snap.stats.TotalDocuments),
			zap.Int("supervisors", snap.stats.TotalSupervisors),
			zap.Duration("duration", time.Since(started)),
		)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

func (a *Aggregator) compute(ctx context.Context) (*snapshot, error) {
	docs, err := a.index.Scan(ctx, models.NativeFilter{})
	if err != nil {
		return nil, models.WrapBackend("scan corpus", err)
	}

	st := &models.CorpusStats{
		TotalDocuments: len(docs),
		YearCounts:     make(map[int]int),
		CategoryCounts: make(map[string]int),
		TypeCounts:     make(map[string]int),
		ComputedAt:     a.config.Now(),
	}
	roster := make(map[string][]string)
	bySupervisor := make(map[string][]models.Document)

	for _, doc := range docs {
		name := strings.TrimSpace(doc.Supervisor)
		if name == "" {
			continue
		}
		if _, ok := bySupervisor[name]; !ok {
			key := textutil.Normalize(name)
			roster[key] = append(roster[key], name)
		}
		bySupervisor[name] = append(bySupervisor[name], doc)

		if doc.HasDate() {
			st.YearCounts[doc.Date.Year()]++
		}
		for _, c := range distinct(doc.Categories) {
			st.CategoryCounts[c]++
		}
		if t := strings.TrimSpace(doc.ProductionType); t != "" {
			st.TypeCounts[t]++
		}
	}

	for name := range bySupervisor {
		st.Supervisors = append(st.Supervisors, name)
	}
	sort.Strings(st.Supervisors)
	st.TotalSupervisors = len(st.Supervisors)

	for y := range st.YearCounts {
		st.Years = append(st.Years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(st.Years)))

	st.TopCategories = rank(st.CategoryCounts)
	if len(st.TopCategories) > a.config.TopCategories {
		st.TopCategories = st.TopCategories[:a.config.TopCategories]
	}

	summaries := make([]models.SupervisorSummary, 0, len(bySupervisor))
	for _, name := range st.Supervisors {
		p := BuildProfile(name, bySupervisor[name], 0)
		summaries = append(summaries, models.SupervisorSummary{
			Name:       name,
			TotalWorks: p.TotalWorks,
			TypeCounts: p.TypeCounts,
			Categories: p.Categories,
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalWorks > summaries[j].TotalWorks
	})

	return &snapshot{
		stats:       st,
		roster:      roster,
		summaries:   summaries,
		typeEntries: rank(st.TypeCounts),
		at:          st.ComputedAt,
	}, nil
}

// Profile aggregates every document of one supervisor. The name is matched
// ignoring case and accents; profiles are never cached.
func (a *Aggregator) Profile(ctx context.Context, name string) (*models.SupervisorProfile, error) {
	display, docs, err := a.documentsOf(ctx, name)
	if err != nil {
		return nil, err
	}
	p := BuildProfile(display, docs, a.config.RecentWorks)
	return &p, nil
}

// SupervisorDocuments returns a supervisor's documents newest first, undated
// last. A limit <= 0 returns all of them.
func (a *Aggregator) SupervisorDocuments(ctx context.Context, name string, limit int) ([]models.Document, error) {
	_, docs, err := a.documentsOf(ctx, name)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(docs)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (a *Aggregator) documentsOf(ctx context.Context, name string) (string, []models.Document, error) {
	name = strings.TrimSpace(name)
	key := textutil.Normalize(name)
	if key == "" {
		return "", nil, fmt.Errorf("%w: supervisor name is empty", models.ErrInvalidQuery)
	}

	snap, err := a.snapshot(ctx)
	if err != nil {
		return "", nil, err
	}

	names := snap.roster[key]
	if len(names) == 0 {
		// Not in the snapshot yet: match the folded name against a fresh scan.
		return a.scanByName(ctx, name)
	}

	var docs []models.Document
	for _, n := range names {
		found, err := a.index.Scan(ctx, models.NativeFilter{Supervisor: n})
		if err != nil {
			return "", nil, models.WrapBackend("scan supervisor", err)
		}
		docs = append(docs, found...)
	}
	if len(docs) == 0 {
		return "", nil, fmt.Errorf("%w: supervisor %q", models.ErrNotFound, name)
	}

	return names[0], docs, nil
}

// scanByName collects every document whose supervisor normalises to name.
// The display name is the spelling carried by most documents.
func (a *Aggregator) scanByName(ctx context.Context, name string) (string, []models.Document, error) {
	all, err := a.index.Scan(ctx, models.NativeFilter{})
	if err != nil {
		return "", nil, models.WrapBackend("scan corpus", err)
	}

	var docs []models.Document
	spellings := make(map[string]int)
	for _, doc := range all {
		stored := strings.TrimSpace(doc.Supervisor)
		if textutil.SameName(stored, name) {
			docs = append(docs, doc)
			spellings[stored]++
		}
	}
	if len(docs) == 0 {
		return "", nil, fmt.Errorf("%w: supervisor %q", models.ErrNotFound, name)
	}

	return rank(spellings)[0].Label, docs, nil
}

func rank(counts map[string]int) []models.CountEntry {
	out := make([]models.CountEntry, 0, len(counts))
	for label, n := range counts {
		out = append(out, models.CountEntry{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func distinct(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
