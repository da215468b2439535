package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/textutil"
	"go.uber.org/zap"
)

const (
	analysisDocuments = 15
	analysisSnippet   = 250
	ideaSearchLimit   = 15
	ideaContextLimit  = 10
)

const analysisSystem = "You are an academic analyst. Reply ONLY with valid JSON."

const analysisFormat = `
Reply in JSON with exactly this structure:
{
  "style": "technical" | "outreach" | "theoretical" | "practical",
  "main_areas": ["area1", "area2", "area3"],
  "productivity": "high" | "medium" | "low",
  "summary": "Two or three sentences describing the research profile",
  "recommended_work": "What kind of final-year project fits this supervisor",
  "strengths": ["strength1", "strength2"]
}`

const ideasSystem = "You are an academic advisor who specialises in final-year projects. Reply ONLY with valid JSON."

const ideasFormat = `
Reply in JSON with exactly this structure:
{
  "ideas": [
    {
      "title": "Project title",
      "description": "Two or three sentences",
      "area": "Research area",
      "technologies": ["tech1", "tech2"],
      "difficulty": "medium" | "high"
    }
  ]
}`

// AnalyzeSupervisor asks the model to characterise a supervisor from their
// publications. A reply that is not JSON is kept whole in Summary.
func (o *Orchestrator) AnalyzeSupervisor(ctx context.Context, name string) (*models.SupervisorAnalysis, error) {
	profile, err := o.corpus.Profile(ctx, name)
	if err != nil {
		return nil, err
	}
	docs, err := o.corpus.SupervisorDocuments(ctx, profile.Name, analysisDocuments)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyse the style and research profile of %s based on their publications.\n\nPUBLICATIONS:\n", profile.Name)
	for i, doc := range docs {
		text := doc.Title
		if doc.Content != "" && doc.Content != doc.Title {
			text += ". " + doc.Content
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(text, analysisSnippet))
	}
	b.WriteString(analysisFormat)

	reply, err := o.ask(ctx, analysisSystem, b.String())
	if err != nil {
		return nil, err
	}

	analysis := &models.SupervisorAnalysis{}
	if err := decodeJSON(reply, analysis); err != nil {
		o.log.Warn("analysis reply is not JSON", zap.String("supervisor", profile.Name), zap.Error(err))
		analysis = &models.SupervisorAnalysis{Summary: strings.TrimSpace(reply)}
	}
	analysis.Supervisor = profile.Name
	analysis.TotalWorks = profile.TotalWorks
	return analysis, nil
}

// GenerateIdeas proposes three projects for a student, grounded on the
// publications closest to their profile.
func (o *Orchestrator) GenerateIdeas(ctx context.Context, student models.StudentProfile) (*models.ProjectIdeas, error) {
	query := ideaQuery(student)
	if !student.HasSignal() || textutil.Normalize(query) == "" {
		return nil, models.ErrNoSignal
	}

	var b strings.Builder
	b.WriteString("Generate 3 personalised final-year project ideas.\n\nSTUDENT PROFILE:\n")
	fmt.Fprintf(&b, "- Degree: %s\n", orUnspecified(student.Degree))
	fmt.Fprintf(&b, "- Interests: %s\n", orUnspecified(student.Interests))
	fmt.Fprintf(&b, "- Skills: %s\n", orUnspecified(student.Skills))
	fmt.Fprintf(&b, "- Preferred areas: %s\n", orUnspecified(student.PreferredAreas))

	if o.searcher != nil {
		res, err := o.searcher.Search(ctx, query, ideaSearchLimit, models.FilterSet{})
		if err != nil {
			return nil, err
		}
		b.WriteString("\nRELEVANT PUBLICATIONS IN THE DATABASE:\n")
		for i, r := range res.Results {
			if i == ideaContextLimit {
				break
			}
			fmt.Fprintf(&b, "- %s (%s), %s\n", r.Title, strings.Join(r.Categories, ", "), r.Supervisor)
		}
	}
	b.WriteString(ideasFormat)

	reply, err := o.ask(ctx, ideasSystem, b.String())
	if err != nil {
		return nil, err
	}

	ideas := &models.ProjectIdeas{}
	if err := decodeJSON(reply, ideas); err != nil {
		o.log.Warn("ideas reply is not JSON", zap.Error(err))
		return &models.ProjectIdeas{Raw: strings.TrimSpace(reply)}, nil
	}
	return ideas, nil
}

func (o *Orchestrator) ask(ctx context.Context, system, user string) (string, error) {
	reply, err := o.model.Generate(ctx, []models.Message{
		{Role: models.RoleSystem, Content: system},
		{Role: models.RoleUser, Content: user},
	}, nil)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = fmt.Errorf("empty response from model")
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrCompletionFailed, err)
	}
	return reply, nil
}

// decodeJSON parses a reply that may be wrapped in a markdown code fence.
func decodeJSON(reply string, v any) error {
	content := strings.TrimSpace(reply)
	if strings.HasPrefix(content, "```") {
		if i := strings.IndexByte(content, '\n'); i >= 0 {
			content = content[i+1:]
		}
		if i := strings.LastIndex(content, "```"); i >= 0 {
			content = content[:i]
		}
	}
	return json.Unmarshal([]byte(strings.TrimSpace(content)), v)
}

func ideaQuery(p models.StudentProfile) string {
	var parts []string
	for _, s := range []string{p.Interests, p.PreferredAreas, p.Skills} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func orUnspecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "not specified"
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
