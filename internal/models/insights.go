package models

// SupervisorAnalysis is a model-written reading of a supervisor's output.
// When the model does not answer with JSON only Summary is set, holding the raw reply.
type SupervisorAnalysis struct {
	Supervisor      string   `json:"supervisor"`
	TotalWorks      int      `json:"total_works"`
	Style           string   `json:"style"`
	MainAreas       []string `json:"main_areas"`
	Productivity    string   `json:"productivity"`
	Summary         string   `json:"summary"`
	RecommendedWork string   `json:"recommended_work"`
	Strengths       []string `json:"strengths"`
}

// ProjectIdea is one suggested final-year project.
type ProjectIdea struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Area         string   `json:"area"`
	Technologies []string `json:"technologies"`
	Difficulty   string   `json:"difficulty"`
}

// ProjectIdeas holds parsed ideas, or the raw reply when it was not JSON.
type ProjectIdeas struct {
	Ideas []ProjectIdea `json:"ideas"`
	Raw   string        `json:"raw,omitempty"`
}
