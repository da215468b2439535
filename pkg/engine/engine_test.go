package engine_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/testkit"
	"github.com/xhad/advisor/internal/types"
	"github.com/xhad/advisor/pkg/config"
	"github.com/xhad/advisor/pkg/engine"
	"github.com/xhad/advisor/pkg/metrics"
)

type echoModel struct{}

func (echoModel) Generate(ctx context.Context, messages []models.Message, onChunk types.ChunkFunc) (string, error) {
	answer := "echo: " + messages[len(messages)-1].Content
	if onChunk != nil {
		for _, w := range strings.SplitAfter(answer, " ") {
			if err := onChunk(ctx, w); err != nil {
				return "", err
			}
		}
	}
	return answer, nil
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	thisYear := time.Now().Year()

	docs := []models.Document{
		testkit.Doc("a1", "Ana Ruiz", "Robot navigation", time.Now(), testkit.WithImpact(2.5),
			testkit.WithQuartile("Q1"), testkit.WithCategories("Robótica")),
		testkit.Doc("a2", "Ana Ruiz", "Robot grasping", time.Now(), testkit.WithImpact(2.5),
			testkit.WithQuartile("Q1"), testkit.WithCategories("Robótica")),
		testkit.Doc("m1", "María López", "Bases de datos", testkit.Year(thisYear-10),
			testkit.WithType("Congreso"), testkit.WithCategories("Databases")),
	}

	e, err := engine.New(config.Default(), engine.Deps{
		Index:    testkit.NewCorpus(t, docs...),
		Embedder: &testkit.HashEmbedder{},
		Model:    echoModel{},
		Metrics:  metrics.New(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEngineOperations(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	filters, err := models.ParseFilters(map[string]any{"min_if_sjr": "2.0"})
	require.NoError(t, err)
	res, err := e.Search(ctx, "robot", 10, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	_, err = e.Search(ctx, "", 10, models.FilterSet{})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)

	var buf bytes.Buffer
	_, err = e.Export(ctx, &buf, "robot", 10, models.FilterSet{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Robot navigation")

	profile, err := e.Profile(ctx, "maria lopez")
	require.NoError(t, err)
	assert.Equal(t, "María López", profile.Name)

	_, err = e.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)

	st, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalDocuments)
	assert.Equal(t, 2, st.TotalSupervisors)

	kinds, err := e.ProductionTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Artículo", kinds[0].Label)

	sups, err := e.Supervisors(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", sups[0].Name)

	docs, err := e.SupervisorDocuments(ctx, "Ana Ruiz", 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = e.Recommend(ctx, models.StudentProfile{}, 5)
	assert.ErrorIs(t, err, models.ErrNoSignal)
	recs, err := e.Recommend(ctx, models.StudentProfile{Interests: "robot navigation", PreferredAreas: "robotica"}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, "Ana Ruiz", recs[0].Profile.Name)

	ranking, err := e.RankAvailability(ctx)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, "Ana Ruiz", ranking[0].Supervisor)
	assert.Equal(t, models.AvailabilityMedium, ranking[0].Label)
	assert.Equal(t, models.AvailabilityLow, ranking[1].Label)
}

func TestEngineChat(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	c, err := e.ChatTurn(ctx, "¿Qué hace Ana Ruiz?", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo: ¿Qué hace Ana Ruiz?", c.Text)
	assert.Equal(t, "Ana Ruiz", c.Supervisor)

	s, err := e.ChatStream(ctx, "hola", []models.ChatTurn{{Role: models.RoleUser, Content: "antes"}}, nil, nil)
	require.NoError(t, err)
	first, ok := s.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "echo: ", first)
	s.Abort()

	done, err := s.Result()
	require.NoError(t, err)
	assert.True(t, done.Aborted)
	assert.Equal(t, "echo: ", done.Text)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := engine.New(config.Default(), engine.Deps{})
	assert.Error(t, err)
}
