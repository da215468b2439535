package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
	"golang.org/x/time/rate"
)

var _ types.CompletionModel = (*ChatEngine)(nil)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // "ollama" or "openai"
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	APIKey      string
	RateLimit   float64 // requests per second
}

// ChatEngine adapts a langchaingo model to the completion contract.
type ChatEngine struct {
	config  ChatConfig
	llm     llms.Model
	limiter *rate.Limiter
}

// NewWithConfig creates a new ChatEngine backed by the configured provider.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config = chatDefaults(config)
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model), openai.WithToken(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(config, model), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(config ChatConfig, model llms.Model) *ChatEngine {
	config = chatDefaults(config)
	return &ChatEngine{
		config:  config,
		llm:     model,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func chatDefaults(config ChatConfig) ChatConfig {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.BaseURL == "" && config.Provider == "ollama" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = 5
	}
	return config
}

// Generate sends the conversation to the model. When onChunk is set the
// completion is streamed through it; the full text is returned either way.
func (ce *ChatEngine) Generate(ctx context.Context, messages []models.Message, onChunk types.ChunkFunc) (string, error) {
	if err := ce.limiter.Wait(ctx); err != nil {
		return "", err
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	options := []llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}
	if onChunk != nil {
		options = append(options, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onChunk(ctx, string(chunk))
		}))
	}

	response, err := ce.llm.GenerateContent(ctx, content, options...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", errors.New("chat error: no response from LLM")
	}

	return response.Choices[0].Content, nil
}

func messageType(role models.Role) llms.ChatMessageType {
	switch role {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
