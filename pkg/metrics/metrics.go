package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's collectors. A nil *Metrics records nothing.
type Metrics struct {
	SearchDuration    *prometheus.HistogramVec
	SearchTotal       *prometheus.CounterVec
	SearchResults     prometheus.Histogram
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	CacheRefreshes    *prometheus.CounterVec
	ChatTurns         *prometheus.CounterVec
	ContextInjections prometheus.Counter
}

// New creates the collectors and registers them on reg when reg is not nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "advisor_search_duration_seconds",
				Help:    "Retrieval duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		SearchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_search_total",
				Help: "Total number of retrieval calls",
			},
			[]string{"operation", "status"},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "advisor_search_results_count",
				Help:    "Number of documents returned per search",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_cache_hits_total",
				Help: "Total cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_cache_misses_total",
				Help: "Total cache misses, stale serves included",
			},
			[]string{"cache_type"},
		),
		CacheRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_cache_refreshes_total",
				Help: "Total cache recomputations",
			},
			[]string{"cache_type", "status"},
		),
		ChatTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "advisor_chat_turns_total",
				Help: "Total chat turns by mode and outcome",
			},
			[]string{"mode", "status"},
		),
		ContextInjections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "advisor_chat_context_injections_total",
				Help: "Chat turns grounded on a detected supervisor",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.SearchDuration,
			m.SearchTotal,
			m.SearchResults,
			m.CacheHits,
			m.CacheMisses,
			m.CacheRefreshes,
			m.ChatTurns,
			m.ContextInjections,
		)
	}

	return m
}

func (m *Metrics) ObserveSearch(operation string, started time.Time, results int, err error) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	m.SearchTotal.WithLabelValues(operation, status(err)).Inc()
	if err == nil && operation == "search" {
		m.SearchResults.Observe(float64(results))
	}
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheRefresh(cache string, err error) {
	if m == nil {
		return
	}
	m.CacheRefreshes.WithLabelValues(cache, status(err)).Inc()
}

func (m *Metrics) ChatTurn(mode, outcome string) {
	if m == nil {
		return
	}
	m.ChatTurns.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) ContextInjected() {
	if m == nil {
		return
	}
	m.ContextInjections.Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
