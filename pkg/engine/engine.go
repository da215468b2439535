package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/availability"
	"github.com/xhad/advisor/pkg/cache"
	"github.com/xhad/advisor/pkg/chat"
	"github.com/xhad/advisor/pkg/config"
	"github.com/xhad/advisor/pkg/llm"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/metrics"
	"github.com/xhad/advisor/pkg/recommend"
	"github.com/xhad/advisor/pkg/search"
	"github.com/xhad/advisor/pkg/stats"
	"github.com/xhad/advisor/pkg/store"
	"go.uber.org/zap"
)

// Deps are the external collaborators an Engine runs against.
type Deps struct {
	Index    types.VectorIndex
	Embedder types.Embedder
	Model    types.CompletionModel
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time // defaults to time.Now
}

// Engine exposes the advisor operations over plain data.
type Engine struct {
	search       *search.Engine
	stats        *stats.Aggregator
	recommend    *recommend.Scorer
	availability *availability.Estimator
	chat         *chat.Orchestrator
	log          *zap.Logger
	closers      []func()
}

// New wires every component from cfg around the given collaborators.
func New(cfg *config.Config, deps Deps) (*Engine, error) {
	if deps.Index == nil || deps.Embedder == nil || deps.Model == nil {
		return nil, fmt.Errorf("index, embedder and model are required")
	}
	log := logger.OrNop(deps.Logger)

	searchEngine := search.NewEngine(deps.Index, deps.Embedder, search.NewPlanner(search.PlannerConfig{
		MaxLimit:  cfg.Search.MaxLimit,
		OverFetch: cfg.Search.OverFetch,
		MaxFetch:  cfg.Search.MaxFetch,
	}), log, deps.Metrics)

	aggregator := stats.NewAggregator(deps.Index, stats.AggregatorConfig{
		TTL:           cfg.Stats.TTL,
		StrictRefresh: cfg.Stats.StrictRefresh,
		RecentWorks:   cfg.Stats.RecentWorks,
		Now:           deps.Now,
	}, log, deps.Metrics)

	scorer, err := recommend.NewScorer(recommend.ScorerConfig{
		RelevanceWeight: cfg.Recommend.RelevanceWeight,
		CategoryWeight:  cfg.Recommend.CategoryWeight,
		QualityWeight:   cfg.Recommend.QualityWeight,
		Candidates:      cfg.Recommend.Candidates,
		ImpactCeiling:   cfg.Recommend.ImpactCeiling,
		Workers:         cfg.Recommend.Workers,
		RecentWorks:     cfg.Stats.RecentWorks,
	}, searchEngine, aggregator, log)
	if err != nil {
		return nil, err
	}

	estimator := availability.NewEstimator(deps.Index, availability.EstimatorConfig{
		WindowYears:     cfg.Availability.WindowYears,
		HighThreshold:   cfg.Availability.HighThreshold,
		MediumThreshold: cfg.Availability.MediumThreshold,
		Now:             deps.Now,
	}, log)

	orchestrator := chat.NewOrchestrator(chat.OrchestratorConfig{
		ContextDocuments: cfg.Chat.ContextDocuments,
		SnippetLength:    cfg.Chat.SnippetLength,
		HistoryTurns:     cfg.Chat.HistoryTurns,
	}, aggregator, searchEngine, deps.Model, log, deps.Metrics)

	return &Engine{
		search:       searchEngine,
		stats:        aggregator,
		recommend:    scorer,
		availability: estimator,
		chat:         orchestrator,
		log:          log,
	}, nil
}

// Open connects to Postgres and the configured model provider and builds an Engine.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics) (*Engine, error) {
	log = logger.OrNop(log)
	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	vs, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
	})
	if err != nil {
		return nil, err
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.EmbeddingModel,
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		RateLimit: cfg.LLM.RateLimit,
	})
	if err != nil {
		vs.Close()
		return nil, err
	}

	var queryEmbedder types.Embedder = embedder
	var closers []func()
	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// The cache is optional; run without it.
			log.Warn("embedding cache disabled", zap.Error(err))
		} else {
			queryEmbedder = cache.NewEmbedder(embedder, rdb, cache.EmbedderConfig{
				TTL:       cfg.Cache.EmbeddingTTL,
				Namespace: cfg.LLM.EmbeddingModel,
			}, log, m)
			closers = append(closers, func() { rdb.Close() })
		}
	}

	closers = append(closers, vs.Close)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	model, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		RateLimit:   cfg.LLM.RateLimit,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	e, err := New(cfg, Deps{Index: vs, Embedder: queryEmbedder, Model: model, Logger: log, Metrics: m})
	if err != nil {
		closeAll()
		return nil, err
	}
	e.closers = closers
	return e, nil
}

// Close releases the store and cache connections.
func (e *Engine) Close() {
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
}

func (e *Engine) Search(ctx context.Context, query string, limit int, filters models.FilterSet) (*models.SearchResult, error) {
	return e.search.Search(ctx, query, limit, filters)
}

// Export runs a search and writes its results as CSV.
func (e *Engine) Export(ctx context.Context, w io.Writer, query string, limit int, filters models.FilterSet) (*models.SearchResult, error) {
	res, err := e.search.Search(ctx, query, limit, filters)
	if err != nil {
		return nil, err
	}
	if err := search.ExportCSV(w, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) Profile(ctx context.Context, name string) (*models.SupervisorProfile, error) {
	return e.stats.Profile(ctx, name)
}

func (e *Engine) Stats(ctx context.Context) (*models.CorpusStats, error) {
	return e.stats.Stats(ctx)
}

func (e *Engine) Supervisors(ctx context.Context) ([]models.SupervisorSummary, error) {
	return e.stats.Supervisors(ctx)
}

func (e *Engine) ProductionTypes(ctx context.Context) ([]models.CountEntry, error) {
	return e.stats.ProductionTypes(ctx)
}

func (e *Engine) SupervisorDocuments(ctx context.Context, name string, limit int) ([]models.Document, error) {
	return e.stats.SupervisorDocuments(ctx, name, limit)
}

func (e *Engine) Recommend(ctx context.Context, student models.StudentProfile, limit int) ([]models.Recommendation, error) {
	return e.recommend.Recommend(ctx, student, limit)
}

func (e *Engine) RankAvailability(ctx context.Context) ([]models.Availability, error) {
	return e.availability.Rank(ctx)
}

// ChatTurn answers one message and blocks until the full reply is available.
func (e *Engine) ChatTurn(ctx context.Context, message string, transcript []models.ChatTurn, student *models.StudentProfile, priorFeedback *bool) (models.Completion, error) {
	return e.chat.Chat(ctx, message, transcript, student, priorFeedback)
}

// ChatStream answers one message as a cancellable chunk sequence.
func (e *Engine) ChatStream(ctx context.Context, message string, transcript []models.ChatTurn, student *models.StudentProfile, priorFeedback *bool) (*chat.Stream, error) {
	return e.chat.ChatStream(ctx, message, transcript, student, priorFeedback)
}

func (e *Engine) AnalyzeSupervisor(ctx context.Context, name string) (*models.SupervisorAnalysis, error) {
	return e.chat.AnalyzeSupervisor(ctx, name)
}

func (e *Engine) GenerateIdeas(ctx context.Context, student models.StudentProfile) (*models.ProjectIdeas, error) {
	return e.chat.GenerateIdeas(ctx, student)
}
