package chat_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/testkit"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/chat"
	"github.com/xhad/advisor/pkg/metrics"
	"github.com/xhad/advisor/pkg/search"
	"github.com/xhad/advisor/pkg/stats"
)

// scriptedModel streams fixed chunks, optionally failing after failAfter of them.
type scriptedModel struct {
	chunks    []string
	err       error
	failAfter int
	ignoreCB  bool

	mu        sync.Mutex
	calls     [][]models.Message
	delivered int
}

func (m *scriptedModel) Generate(ctx context.Context, messages []models.Message, onChunk types.ChunkFunc) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	if m.err != nil && m.failAfter == 0 {
		return "", m.err
	}

	var b strings.Builder
	for i, c := range m.chunks {
		if m.err != nil && i == m.failAfter {
			return "", m.err
		}
		if onChunk != nil && !m.ignoreCB {
			if err := onChunk(ctx, c); err != nil {
				return b.String(), err
			}
			m.mu.Lock()
			m.delivered++
			m.mu.Unlock()
		}
		b.WriteString(c)
	}
	return b.String(), nil
}

func (m *scriptedModel) lastCall() []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func (m *scriptedModel) deliveredChunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered
}

func anaDocs(n int) []models.Document {
	docs := make([]models.Document, 0, n)
	for i := 0; i < n; i++ {
		docs = append(docs, testkit.Doc(fmt.Sprintf("ana-%02d", i), "Ana Ruiz",
			fmt.Sprintf("Robot study %d", i), time.Date(2024-i, 1, 1, 0, 0, 0, 0, time.UTC),
			testkit.WithContent(fmt.Sprintf("Work on robot control, part %d.", i)),
			testkit.WithCategories("Robótica")))
	}
	return docs
}

func baseCorpus() []models.Document {
	return append(anaDocs(3),
		testkit.Doc("mlg-1", "María López García", "Bases de datos", testkit.Year(2022), testkit.WithCategories("Databases")),
		testkit.Doc("lg-1", "Luis Gil", "Compiladores", testkit.Year(2020), testkit.WithCategories("Compilers")),
	)
}

type fixture struct {
	orch    *chat.Orchestrator
	model   *scriptedModel
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, model *scriptedModel, config chat.OrchestratorConfig, docs ...models.Document) fixture {
	t.Helper()
	if model == nil {
		model = &scriptedModel{chunks: []string{"ok"}}
	}
	if len(docs) == 0 {
		docs = baseCorpus()
	}

	index := testkit.NewCorpus(t, docs...)
	m := metrics.New(prometheus.NewRegistry())
	agg := stats.NewAggregator(index, stats.AggregatorConfig{}, nil, m)
	engine := search.NewEngine(index, &testkit.HashEmbedder{}, search.NewPlanner(search.PlannerConfig{}), nil, m)
	orch := chat.NewOrchestrator(config, agg, engine, model, nil, m)
	require.NotNil(t, orch)

	return fixture{orch: orch, model: model, metrics: m}
}

func boolPtr(b bool) *bool { return &b }
