package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/chat"
)

const fencedAnalysis = "```json\n" + `{
  "style": "practical",
  "main_areas": ["Robótica", "Control"],
  "productivity": "medium",
  "summary": "Works on robot control.",
  "recommended_work": "A control project with real hardware",
  "strengths": ["hardware"]
}` + "\n```"

func TestAnalyzeSupervisor(t *testing.T) {
	model := &scriptedModel{chunks: []string{fencedAnalysis}}
	f := newFixture(t, model, chat.OrchestratorConfig{})

	a, err := f.orch.AnalyzeSupervisor(context.Background(), "ana ruiz")
	require.NoError(t, err)

	assert.Equal(t, "Ana Ruiz", a.Supervisor)
	assert.Equal(t, 3, a.TotalWorks)
	assert.Equal(t, "practical", a.Style)
	assert.Equal(t, []string{"Robótica", "Control"}, a.MainAreas)
	assert.Equal(t, "Works on robot control.", a.Summary)

	sent := model.lastCall()
	require.Len(t, sent, 2)
	assert.Equal(t, models.RoleSystem, sent[0].Role)
	assert.Contains(t, sent[1].Content, "1. Robot study 0")
}

func TestAnalyzeSupervisorRawReply(t *testing.T) {
	f := newFixture(t, &scriptedModel{chunks: []string{"She mostly publishes on robots."}}, chat.OrchestratorConfig{})

	a, err := f.orch.AnalyzeSupervisor(context.Background(), "Ana Ruiz")
	require.NoError(t, err)
	assert.Equal(t, "She mostly publishes on robots.", a.Summary)
	assert.Empty(t, a.Style)
	assert.Equal(t, "Ana Ruiz", a.Supervisor)
}

func TestAnalyzeSupervisorErrors(t *testing.T) {
	f := newFixture(t, nil, chat.OrchestratorConfig{})
	_, err := f.orch.AnalyzeSupervisor(context.Background(), "Nadie")
	assert.ErrorIs(t, err, models.ErrNotFound)

	f = newFixture(t, &scriptedModel{err: errors.New("down")}, chat.OrchestratorConfig{})
	_, err = f.orch.AnalyzeSupervisor(context.Background(), "Ana Ruiz")
	assert.ErrorIs(t, err, models.ErrCompletionFailed)
}

func TestGenerateIdeas(t *testing.T) {
	reply := `{"ideas": [
		{"title": "Robot navigation", "description": "d", "area": "Robótica", "technologies": ["ROS"], "difficulty": "high"},
		{"title": "Grasping", "description": "d", "area": "Robótica", "technologies": ["Python"], "difficulty": "medium"},
		{"title": "Swarms", "description": "d", "area": "Robótica", "technologies": [], "difficulty": "high"}
	]}`
	model := &scriptedModel{chunks: []string{reply}}
	f := newFixture(t, model, chat.OrchestratorConfig{})

	ideas, err := f.orch.GenerateIdeas(context.Background(), *eva)
	require.NoError(t, err)
	require.Len(t, ideas.Ideas, 3)
	assert.Equal(t, "Robot navigation", ideas.Ideas[0].Title)
	assert.Equal(t, []string{"ROS"}, ideas.Ideas[0].Technologies)
	assert.Empty(t, ideas.Raw)

	sent := model.lastCall()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].Content, "- Degree: Ingeniería Robótica")
	assert.Contains(t, sent[1].Content, "- Skills: not specified")
	assert.Contains(t, sent[1].Content, "RELEVANT PUBLICATIONS")
}

func TestGenerateIdeasFallbacks(t *testing.T) {
	f := newFixture(t, &scriptedModel{chunks: []string{"1. Build a robot"}}, chat.OrchestratorConfig{})

	ideas, err := f.orch.GenerateIdeas(context.Background(), *eva)
	require.NoError(t, err)
	assert.Empty(t, ideas.Ideas)
	assert.Equal(t, "1. Build a robot", ideas.Raw)

	_, err = f.orch.GenerateIdeas(context.Background(), models.StudentProfile{Degree: "Física"})
	assert.ErrorIs(t, err, models.ErrNoSignal)
}
