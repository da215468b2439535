package chat_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/chat"
)

var eva = &models.StudentProfile{
	Name:           "Eva",
	Degree:         "Ingeniería Robótica",
	Year:           4,
	Interests:      "robots autónomos",
	PreferredAreas: "Robótica",
}

func TestBuildTurnInjectsSupervisorContext(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{ContextDocuments: 10}, anaDocs(12)...)

	prompt, err := f.orch.BuildTurn(context.Background(), "¿Qué trabajos de robot control tiene Ana Ruiz?", nil, eva, nil)
	require.NoError(t, err)

	assert.Equal(t, "Ana Ruiz", prompt.Supervisor)
	assert.Equal(t, 10, prompt.ContextDocuments)
	assert.NotEmpty(t, prompt.ID)
	assert.True(t, strings.HasPrefix(prompt.System, "=== PUBLICATIONS BY ANA RUIZ ==="))
	assert.Contains(t, prompt.System, "10. ")
	assert.NotContains(t, prompt.System, "11. ")
	assert.NotContains(t, prompt.System, "do NOT recommend supervisors")
	assert.Contains(t, prompt.System, "Degree: Ingeniería Robótica")
	assert.Contains(t, prompt.System, "Academic year: 4")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ContextInjections))
}

func TestBuildTurnContextBoundedByCorpus(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{ContextDocuments: 10})

	prompt, err := f.orch.BuildTurn(context.Background(), "háblame de ana ruiz", nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", prompt.Supervisor)
	assert.Equal(t, 3, prompt.ContextDocuments)
	for i := 0; i < 3; i++ {
		assert.Contains(t, prompt.System, fmt.Sprintf("Robot study %d", i))
	}
}

func TestBuildTurnWithoutSupervisor(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{})

	prompt, err := f.orch.BuildTurn(context.Background(), "Quiero un TFG de robótica", nil, eva, nil)
	require.NoError(t, err)

	assert.Empty(t, prompt.Supervisor)
	assert.Zero(t, prompt.ContextDocuments)
	assert.NotContains(t, prompt.System, "PUBLICATIONS BY")
	assert.Contains(t, prompt.System, "do NOT recommend supervisors")
	assert.Contains(t, prompt.System, "Access to 3 supervisors and 5 works.")
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ContextInjections))
}

func TestBuildTurnFeedback(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{})
	ctx := context.Background()

	liked := []models.ChatTurn{
		{Role: models.RoleUser, Content: "hola"},
		{Role: models.RoleAssistant, Content: "respuesta", Feedback: boolPtr(true)},
	}

	prompt, err := f.orch.BuildTurn(ctx, "¿y ahora?", liked, eva, nil)
	require.NoError(t, err)
	assert.Contains(t, prompt.System, "Keep the same style")

	prompt, err = f.orch.BuildTurn(ctx, "¿y ahora?", liked, eva, boolPtr(false))
	require.NoError(t, err)
	assert.Contains(t, prompt.System, "Change your approach")
	assert.NotContains(t, prompt.System, "Keep the same style")

	unrated := []models.ChatTurn{
		{Role: models.RoleAssistant, Content: "antigua", Feedback: boolPtr(false)},
		{Role: models.RoleUser, Content: "hola"},
		{Role: models.RoleAssistant, Content: "respuesta"},
	}
	prompt, err = f.orch.BuildTurn(ctx, "¿y ahora?", unrated, eva, nil)
	require.NoError(t, err)
	assert.NotContains(t, prompt.System, "USER FEEDBACK")
}

func TestBuildTurnHistory(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{HistoryTurns: 4})

	var transcript []models.ChatTurn
	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		transcript = append(transcript, models.ChatTurn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	transcript = append(transcript, models.ChatTurn{Role: models.RoleSystem, Content: "ignored"})

	prompt, err := f.orch.BuildTurn(context.Background(), "última", transcript, nil, nil)
	require.NoError(t, err)

	require.Len(t, prompt.Messages, 5)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "turn 6"}, prompt.Messages[0])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "turn 9"}, prompt.Messages[3])
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "última"}, prompt.Messages[4])

	all := prompt.All()
	assert.Equal(t, models.RoleSystem, all[0].Role)
	assert.Len(t, all, 6)
}

func TestBuildTurnRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{})

	_, err := f.orch.BuildTurn(context.Background(), "   ", nil, nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}

func TestChatBlocking(t *testing.T) {
	model := &scriptedModel{chunks: []string{"Ana Ruiz ", "trabaja en robótica."}}
	f := newFixture(t, model, chat.OrchestratorConfig{})

	c, err := f.orch.Chat(context.Background(), "¿Qué hace Ana Ruiz?", nil, eva, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz trabaja en robótica.", c.Text)
	assert.Equal(t, "Ana Ruiz", c.Supervisor)
	assert.False(t, c.Aborted)

	sent := model.lastCall()
	require.NotEmpty(t, sent)
	assert.Equal(t, models.RoleSystem, sent[0].Role)
	assert.Equal(t, "¿Qué hace Ana Ruiz?", sent[len(sent)-1].Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChatTurns.WithLabelValues("blocking", "completed")))
}

func TestChatCompletionFailed(t *testing.T) {
	f := newFixture(t, &scriptedModel{err: errors.New("connection refused")}, chat.OrchestratorConfig{})

	c, err := f.orch.Chat(context.Background(), "hola", nil, nil, nil)
	assert.ErrorIs(t, err, models.ErrCompletionFailed)
	assert.Empty(t, c.Text)

	f = newFixture(t, &scriptedModel{}, chat.OrchestratorConfig{})
	_, err = f.orch.Chat(context.Background(), "hola", nil, nil, nil)
	assert.ErrorIs(t, err, models.ErrCompletionFailed)
}
