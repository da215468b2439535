package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/logger"
	"github.com/xhad/advisor/pkg/metrics"
	"go.uber.org/zap"
)

// Corpus is the read side of the statistics aggregator the orchestrator needs.
type Corpus interface {
	Roster(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*models.CorpusStats, error)
	Profile(ctx context.Context, name string) (*models.SupervisorProfile, error)
	SupervisorDocuments(ctx context.Context, name string, limit int) ([]models.Document, error)
}

// Searcher ranks documents by similarity to free text.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, filters models.FilterSet) (*models.SearchResult, error)
}

// OrchestratorConfig sizes the grounding context and the history sent to the model.
type OrchestratorConfig struct {
	ContextDocuments int // documents injected for a detected supervisor
	SnippetLength    int // runes of body text per injected document
	HistoryTurns     int // most recent transcript turns sent to the model
}

// Orchestrator assembles grounded prompts and runs them against the model.
// It keeps no per-session state; the caller carries the transcript.
type Orchestrator struct {
	config   OrchestratorConfig
	corpus   Corpus
	searcher Searcher
	model    types.CompletionModel
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewOrchestrator creates an Orchestrator answering through model.
func NewOrchestrator(config OrchestratorConfig, corpus Corpus, searcher Searcher, model types.CompletionModel, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if config.ContextDocuments <= 0 {
		config.ContextDocuments = 10
	}
	if config.SnippetLength <= 0 {
		config.SnippetLength = 300
	}
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = 20
	}

	return &Orchestrator{
		config:   config,
		corpus:   corpus,
		searcher: searcher,
		model:    model,
		log:      logger.OrNop(log).Named("chat"),
		metrics:  m,
	}
}

// BuildTurn assembles the prompt for one user message. student may be nil.
// priorFeedback, when set, overrides the flag on the last assistant turn.
func (o *Orchestrator) BuildTurn(ctx context.Context, message string, transcript []models.ChatTurn, student *models.StudentProfile, priorFeedback *bool) (models.Prompt, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.Prompt{}, fmt.Errorf("%w: message is empty", models.ErrInvalidQuery)
	}

	roster, err := o.corpus.Roster(ctx)
	if err != nil {
		return models.Prompt{}, err
	}

	var g grounding
	if name, ok := DetectSupervisor(message, roster); ok {
		docs, err := o.contextDocuments(ctx, name, message)
		if err != nil {
			return models.Prompt{}, err
		}
		g = grounding{supervisor: name, documents: docs}
		o.metrics.ContextInjected()
		o.log.Info("supervisor detected", zap.String("supervisor", name), zap.Int("documents", len(docs)))
	} else {
		// A missing overview does not fail the turn.
		st, err := o.corpus.Stats(ctx)
		if err != nil {
			o.log.Warn("corpus overview unavailable", zap.Error(err))
		}
		g = grounding{overview: st}
	}

	feedback := resolveFeedback(priorFeedback, transcript)
	messages := history(transcript, o.config.HistoryTurns)
	messages = append(messages, models.Message{Role: models.RoleUser, Content: message})

	return models.Prompt{
		ID:               uuid.NewString(),
		System:           buildSystemPrompt(student, g, feedback, o.config.SnippetLength),
		Messages:         messages,
		Supervisor:       g.supervisor,
		ContextDocuments: len(g.documents),
	}, nil
}

// contextDocuments picks the supervisor's documents most similar to the
// message, topped up with their most recent ones, up to the configured cap.
func (o *Orchestrator) contextDocuments(ctx context.Context, name, message string) ([]models.Document, error) {
	limit := o.config.ContextDocuments
	docs := make([]models.Document, 0, limit)
	seen := make(map[string]bool, limit)
	add := func(d models.Document) {
		if len(docs) < limit && !seen[d.ID] {
			seen[d.ID] = true
			docs = append(docs, d)
		}
	}

	if o.searcher != nil {
		res, err := o.searcher.Search(ctx, message, limit, models.FilterSet{Supervisor: name})
		if err != nil {
			return nil, err
		}
		for _, r := range res.Results {
			add(r.Document)
		}
	}

	if len(docs) < limit {
		recent, err := o.corpus.SupervisorDocuments(ctx, name, limit)
		if err != nil {
			return nil, err
		}
		for _, d := range recent {
			add(d)
		}
	}

	return docs, nil
}

// Complete runs a prompt and waits for the whole answer.
func (o *Orchestrator) Complete(ctx context.Context, prompt models.Prompt) (models.Completion, error) {
	text, err := o.model.Generate(ctx, prompt.All(), nil)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty response from model")
	}
	if err != nil {
		o.metrics.ChatTurn("blocking", "failed")
		o.log.Error("completion failed", zap.String("prompt_id", prompt.ID), zap.Error(err))
		return models.Completion{Supervisor: prompt.Supervisor}, fmt.Errorf("%w: %w", models.ErrCompletionFailed, err)
	}

	o.metrics.ChatTurn("blocking", "completed")
	return models.Completion{Text: text, Chunks: 1, Supervisor: prompt.Supervisor}, nil
}

// Chat builds and completes one turn.
func (o *Orchestrator) Chat(ctx context.Context, message string, transcript []models.ChatTurn, student *models.StudentProfile, priorFeedback *bool) (models.Completion, error) {
	prompt, err := o.BuildTurn(ctx, message, transcript, student, priorFeedback)
	if err != nil {
		return models.Completion{}, err
	}
	return o.Complete(ctx, prompt)
}

// ChatStream builds one turn and starts streaming its answer.
func (o *Orchestrator) ChatStream(ctx context.Context, message string, transcript []models.ChatTurn, student *models.StudentProfile, priorFeedback *bool) (*Stream, error) {
	prompt, err := o.BuildTurn(ctx, message, transcript, student, priorFeedback)
	if err != nil {
		return nil, err
	}
	return o.Stream(ctx, prompt), nil
}
