package config

import (
	"fmt"
	"math"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		}
	case "openai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "API key is required for the openai provider",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q, expected ollama or openai", c.LLM.Provider),
		})
	}

	if c.LLM.BaseURL != "" {
		if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid base URL",
			})
		}
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.LLM.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate Search config
	if c.Search.MaxLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.max_limit",
			Message: "max_limit must be positive",
		})
	}

	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		errors = append(errors, ValidationError{
			Field:   "search.default_limit",
			Message: "default_limit must be between 1 and max_limit",
		})
	}

	if c.Search.OverFetch < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.over_fetch",
			Message: "over_fetch must be at least 1",
		})
	}

	if c.Search.MaxFetch < c.Search.MaxLimit {
		errors = append(errors, ValidationError{
			Field:   "search.max_fetch",
			Message: "max_fetch must not be below max_limit",
		})
	}

	// Validate Stats config
	if c.Stats.TTL <= 0 {
		errors = append(errors, ValidationError{
			Field:   "stats.ttl",
			Message: "ttl must be positive",
		})
	}

	// Validate Recommend config
	weights := []float64{c.Recommend.RelevanceWeight, c.Recommend.CategoryWeight, c.Recommend.QualityWeight}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			errors = append(errors, ValidationError{
				Field:   "recommend.weights",
				Message: "weights must not be negative",
			})
			break
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		errors = append(errors, ValidationError{
			Field:   "recommend.weights",
			Message: fmt.Sprintf("weights must sum to 1, got %.4f", sum),
		})
	}

	if c.Recommend.Candidates < 1 {
		errors = append(errors, ValidationError{
			Field:   "recommend.candidates",
			Message: "candidates must be positive",
		})
	}

	if c.Recommend.ImpactCeiling <= 0 {
		errors = append(errors, ValidationError{
			Field:   "recommend.impact_ceiling",
			Message: "impact_ceiling must be positive",
		})
	}

	// Validate Availability config
	if c.Availability.WindowYears < 1 {
		errors = append(errors, ValidationError{
			Field:   "availability.window_years",
			Message: "window_years must be positive",
		})
	}

	if c.Availability.MediumThreshold < 1 || c.Availability.MediumThreshold > c.Availability.HighThreshold {
		errors = append(errors, ValidationError{
			Field:   "availability.medium_threshold",
			Message: "medium_threshold must be positive and not above high_threshold",
		})
	}

	// Validate Chat config
	if c.Chat.ContextDocuments < 1 {
		errors = append(errors, ValidationError{
			Field:   "chat.context_documents",
			Message: "context_documents must be positive",
		})
	}

	return errors
}
