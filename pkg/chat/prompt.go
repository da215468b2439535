package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/pkg/textutil"
)

const assistantRole = `You are an assistant that helps university students choose a topic and a supervisor for their final-year project.

Your goals:
1. Recommend research areas and suitable kinds of supervisors
2. Suggest relevant, current project ideas
3. Give information about supervisors and their research
4. Help the student make an informed decision
`

const responseRules = `
=== INSTRUCTIONS ===
- Answer concisely (3 to 6 lines) and in the student's language
- Always use the student's profile in your recommendations
- If the profile is incomplete, suggest completing it
- Give concrete, practical answers
- Use short paragraphs and, where it helps, dash lists
`

// grounding is the material injected for a detected supervisor, or the corpus
// overview used when none was detected.
type grounding struct {
	supervisor string
	documents  []models.Document
	overview   *models.CorpusStats
}

func buildSystemPrompt(student *models.StudentProfile, g grounding, feedback *bool, snippetLength int) string {
	var b strings.Builder

	if g.supervisor != "" {
		writeSupervisorContext(&b, g.supervisor, g.documents, snippetLength)
		b.WriteString("\n")
	}

	b.WriteString(assistantRole)
	writeStudent(&b, student)

	if g.supervisor == "" {
		if st := g.overview; st != nil && st.TotalDocuments > 0 {
			b.WriteString("\n=== DATABASE ===\n")
			fmt.Fprintf(&b, "Access to %d supervisors and %d works.\n", st.TotalSupervisors, st.TotalDocuments)
			if len(st.TopCategories) > 0 {
				top := make([]string, 0, 5)
				for _, c := range st.TopCategories {
					if len(top) == 5 {
						break
					}
					top = append(top, c.Label)
				}
				fmt.Fprintf(&b, "Main areas: %s\n", strings.Join(top, ", "))
			}
		}
		b.WriteString("\nIMPORTANT: do NOT recommend supervisors by name. Suggest areas and kinds of supervisors instead.\n")
	}

	if text := feedbackInstruction(feedback); text != "" {
		b.WriteString("\n=== USER FEEDBACK ===\n")
		b.WriteString(text)
		b.WriteString("\n")
	}

	b.WriteString(responseRules)
	return b.String()
}

func writeSupervisorContext(b *strings.Builder, name string, docs []models.Document, snippetLength int) {
	fmt.Fprintf(b, "=== PUBLICATIONS BY %s ===\n", strings.ToUpper(name))
	b.WriteString("The student asked about this supervisor. Base your answer on these real publications:\n\n")

	for i, doc := range docs {
		fmt.Fprintf(b, "%d. %s", i+1, strings.TrimSpace(doc.Title))
		if meta := documentMeta(doc); meta != "" {
			fmt.Fprintf(b, " (%s)", meta)
		}
		b.WriteString("\n")

		snippet := textutil.Snippet(doc.Content, snippetLength)
		if snippet != "" && snippet != strings.TrimSpace(doc.Title) {
			fmt.Fprintf(b, "   %s\n", snippet)
		}
	}

	b.WriteString("\nYou may name this supervisor since the student asked about them directly.\n")
}

func documentMeta(doc models.Document) string {
	var parts []string
	if doc.HasDate() {
		parts = append(parts, strconv.Itoa(doc.Date.Year()))
	}
	if doc.ProductionType != "" {
		parts = append(parts, doc.ProductionType)
	}
	if len(doc.Categories) > 0 {
		parts = append(parts, strings.Join(doc.Categories, ", "))
	}
	return strings.Join(parts, "; ")
}

func writeStudent(b *strings.Builder, p *models.StudentProfile) {
	b.WriteString("\n=== STUDENT ===\n")
	if p == nil {
		b.WriteString("No profile available.\n")
		return
	}

	year := ""
	if p.Year > 0 {
		year = strconv.Itoa(p.Year)
	}
	fields := []struct{ label, value string }{
		{"Name", p.Name},
		{"Degree", p.Degree},
		{"Academic year", year},
		{"Interests", p.Interests},
		{"Skills", p.Skills},
		{"Preferred areas", p.PreferredAreas},
	}

	written := 0
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			fmt.Fprintf(b, "%s: %s\n", f.label, v)
			written++
		}
	}
	if written == 0 {
		b.WriteString("No profile available.\n")
	}
}

func feedbackInstruction(feedback *bool) string {
	switch {
	case feedback == nil:
		return ""
	case *feedback:
		return "The student found your last answer helpful. Keep the same style and approach."
	default:
		return "The student did not find your last answer helpful. Change your approach and offer different alternatives."
	}
}

// resolveFeedback prefers the explicit flag, then the flag on the most recent
// assistant turn.
func resolveFeedback(prior *bool, transcript []models.ChatTurn) *bool {
	if prior != nil {
		return prior
	}
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == models.RoleAssistant {
			return transcript[i].Feedback
		}
	}
	return nil
}

// history keeps the last max user and assistant turns in order.
func history(transcript []models.ChatTurn, max int) []models.Message {
	var out []models.Message
	for _, turn := range transcript {
		if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
			continue
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		out = append(out, models.Message{Role: turn.Role, Content: turn.Content})
	}
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}
